package gst

// Component is one of the three Indian GST heads. Intra-state supplies
// split the rate evenly between CGST and SGST; inter-state supplies
// levy IGST at the full rate.
type Component string

const (
	ComponentCGST Component = "CGST"
	ComponentSGST Component = "SGST"
	ComponentIGST Component = "IGST"
)

// Direction picks the statutory ledger family. Sales collect output
// tax (a liability), purchases accrue input credit (an asset).
type Direction string

const (
	DirectionOutput Direction = "Output"
	DirectionInput  Direction = "Input"
)

// TaxableLine is one voucher line amount with its applicable rate.
// Amount is net of discount.
type TaxableLine struct {
	Amount      float64
	RatePercent float64
}

// Charge is one aggregated tax amount for a voucher. At most one
// charge per component is produced regardless of line count.
type Charge struct {
	Component  Component
	Direction  Direction
	LedgerName string
	Rate       float64
	Amount     float64
}

// LedgerName returns the conventional statutory ledger name for a
// component, e.g. "Output CGST".
func LedgerName(dir Direction, c Component) string {
	return string(dir) + " " + string(c)
}
