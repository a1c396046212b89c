package analytics

// serviceHours lists the lunch and dinner hours the histogram reports on.
var serviceHours = [...]struct {
	hour  int
	label string
}{
	{11, "11 AM"},
	{12, "12 PM"},
	{13, "1 PM"},
	{14, "2 PM"},
	{18, "6 PM"},
	{19, "7 PM"},
	{20, "8 PM"},
	{21, "9 PM"},
}

// HourCount is one bar of the peak-hour histogram.
type HourCount struct {
	Hour   int    `json:"hour"`
	Label  string `json:"label"`
	Orders int    `json:"orders"`
}

// HourHistogram counts orders per service hour in fixed hour order.
type HourHistogram struct {
	Buckets []HourCount `json:"buckets"`
}

// Total returns the number of orders counted across all buckets.
func (h HourHistogram) Total() int {
	total := 0
	for _, b := range h.Buckets {
		total += b.Orders
	}
	return total
}

// PeakHours counts orders created within the service hours. Orders outside
// them are ignored, not merged into a neighbouring hour.
func (e Engine) PeakHours(orders []Order) HourHistogram {
	buckets := make([]HourCount, len(serviceHours))
	index := make(map[int]int, len(serviceHours))
	for i, sh := range serviceHours {
		buckets[i] = HourCount{Hour: sh.hour, Label: sh.label}
		index[sh.hour] = i
	}
	for _, order := range orders {
		if !order.usable() {
			continue
		}
		if i, ok := index[order.CreatedAt.In(e.Location()).Hour()]; ok {
			buckets[i].Orders++
		}
	}
	return HourHistogram{Buckets: buckets}
}
