package reports

import "time"

// DayBookRow is one journal entry in the day book.
type DayBookRow struct {
	EntryID       int64     `json:"entry_id"`
	Date          time.Time `json:"date"`
	VoucherType   string    `json:"voucher_type"`
	Reference     string    `json:"reference"`
	Narration     string    `json:"narration"`
	Amount        float64   `json:"amount"`
	IsSystemEntry bool      `json:"is_system_entry"`
}

// DayBook lists the journal chronologically for a window.
type DayBook struct {
	Rows        []DayBookRow `json:"rows"`
	TotalAmount float64      `json:"total_amount"`
}

// BuildDayBook totals the rows. Amount is each entry's debit total, so
// the day book reads like a list of voucher values.
func BuildDayBook(rows []DayBookRow) DayBook {
	book := DayBook{Rows: rows}
	for _, row := range rows {
		book.TotalAmount += row.Amount
	}
	return book
}
