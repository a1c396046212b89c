package analytics

import (
	"fmt"
	"time"
)

// FormatRelativeTime renders ts relative to now, flooring to whole units.
func FormatRelativeTime(ts, now time.Time) string {
	if ts.IsZero() {
		return "Just now"
	}
	elapsed := now.Sub(ts)
	minutes := int(elapsed / time.Minute)
	hours := int(elapsed / time.Hour)
	days := int(elapsed / (24 * time.Hour))

	switch {
	case minutes < 1:
		return "Just now"
	case minutes < 60:
		return plural(minutes, "min")
	case hours < 24:
		return plural(hours, "hour")
	default:
		return plural(days, "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
