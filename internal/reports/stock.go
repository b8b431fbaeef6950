package reports

import "sort"

// StockSummaryRow is one item's closing position.
type StockSummaryRow struct {
	StockItemID int64
	Name        string
	Qty         float64
	Value       float64
	AvgRate     float64
}

// StockSummary totals closing stock across items.
type StockSummary struct {
	Rows       []StockSummaryRow
	TotalValue float64
}

// BuildStockSummary finalises the per-item aggregates: average rate is
// value over quantity, zero when quantity is not positive.
func BuildStockSummary(rows []StockSummaryRow) StockSummary {
	summary := StockSummary{}
	for _, row := range rows {
		if row.Qty > 0 {
			row.AvgRate = row.Value / row.Qty
		} else {
			row.AvgRate = 0
		}
		summary.Rows = append(summary.Rows, row)
		summary.TotalValue += row.Value
	}
	sort.Slice(summary.Rows, func(i, j int) bool { return summary.Rows[i].Name < summary.Rows[j].Name })
	return summary
}
