package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/qrdine/qrdine/internal/analytics"
)

// WriteDashboardCSV serialises the dashboard summary as metric/value rows
// followed by the revenue-by-day and category sections.
func WriteDashboardCSV(w io.Writer, summary analytics.DashboardSummary) error {
	writer := csv.NewWriter(w)

	records := [][]string{
		{"Metric", "Value"},
		{"Period", string(summary.Period)},
		{"Today Orders", strconv.Itoa(summary.TodayOrders)},
		{"Yesterday Orders", strconv.Itoa(summary.YesterdayOrders)},
		{"Orders Change", summary.OrdersChange},
		{"Today Revenue", formatFloat(summary.TodayRevenue)},
		{"Yesterday Revenue", formatFloat(summary.YesterdayRevenue)},
		{"Revenue Change", summary.RevenueChange},
		{"Pending Orders", strconv.Itoa(summary.PendingOrders)},
		{"Popular Dish", dishLabel(summary.PopularDish)},
		{"Least Ordered Dish", dishLabel(summary.LeastOrderedDish)},
		{},
		{"Date", "Day", "Orders", "Revenue"},
	}
	for _, point := range summary.RevenueByDay {
		records = append(records, []string{point.Date, point.Label, strconv.Itoa(point.Orders), formatFloat(point.Revenue)})
	}
	records = append(records, []string{}, []string{"Category", "Revenue", "Percentage"})
	for _, share := range summary.CategorySales {
		records = append(records, []string{share.Name, formatFloat(share.Revenue), strconv.Itoa(share.Percentage)})
	}
	return writeAll(writer, records)
}

// WriteTimeSeriesCSV emits one row per bucket with both series.
func WriteTimeSeriesCSV(w io.Writer, series analytics.TimeSeries) error {
	writer := csv.NewWriter(w)
	records := [][]string{{"Date", "Label", "Orders", "Revenue"}}
	for i, revenue := range series.Revenue {
		orders := 0.0
		if i < len(series.Orders) {
			orders = series.Orders[i].Value
		}
		records = append(records, []string{revenue.Date, revenue.Label, strconv.Itoa(int(orders)), formatFloat(revenue.Value)})
	}
	return writeAll(writer, records)
}

// WritePeakHoursCSV prints the service-hour histogram.
func WritePeakHoursCSV(w io.Writer, histogram analytics.HourHistogram) error {
	writer := csv.NewWriter(w)
	records := [][]string{{"Hour", "Orders"}}
	for _, bucket := range histogram.Buckets {
		records = append(records, []string{bucket.Label, strconv.Itoa(bucket.Orders)})
	}
	return writeAll(writer, records)
}

// WriteActivityCSV prints recent activity rows.
func WriteActivityCSV(w io.Writer, rows []analytics.ActivityRow) error {
	writer := csv.NewWriter(w)
	records := [][]string{{"Order", "Date", "Table", "Items", "Amount", "Payment", "Status"}}
	for _, row := range rows {
		records = append(records, []string{row.ID, row.Date, row.Table, row.Items, formatFloat(row.Amount), row.PaymentMethod, row.Status})
	}
	return writeAll(writer, records)
}

func writeAll(writer *csv.Writer, records [][]string) error {
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func dishLabel(d analytics.DishCount) string {
	return d.Name + " (" + strconv.Itoa(d.Count) + ")"
}
