package inventory

import (
	"errors"
	"time"
)

// ValuationMethod selects the costing algorithm for outward movements.
type ValuationMethod string

const (
	// ValuationFIFO consumes inward batches oldest first at batch rates.
	ValuationFIFO ValuationMethod = "FIFO"
	// ValuationWeightedAverage costs outwards at the running average rate.
	ValuationWeightedAverage ValuationMethod = "WEIGHTED_AVERAGE"
)

// StockItem is a tracked inventory article with its GL routing.
type StockItem struct {
	ID                 int64
	Name               string
	PartNumber         string
	ValuationMethod    ValuationMethod
	GSTRate            float64
	OpeningQty         float64
	OpeningValue       float64
	InventoryAccountID *int64
	COGSAccountID      *int64
	SalesAccountID     *int64
	PurchaseAccountID  *int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Method returns the configured valuation method, defaulting to
// weighted average when unset.
func (s StockItem) Method() ValuationMethod {
	if s.ValuationMethod == ValuationFIFO {
		return ValuationFIFO
	}
	return ValuationWeightedAverage
}

// StockLedgerEntry is one chronological quantity/value record for an
// item. Rows are a derived cache owned by the issuing voucher and are
// regenerated wholesale on every (re)post.
type StockLedgerEntry struct {
	ID          int64
	Date        time.Time
	StockItemID int64
	VoucherID   int64
	QtyIn       float64
	QtyOut      float64
	Rate        float64
	Value       float64
	CostValue   float64
	IsOpening   bool
}

// Movement describes one stock effect of a voucher line awaiting
// regeneration into the stock ledger.
type Movement struct {
	Date      time.Time
	Item      StockItem
	VoucherID int64
	Qty       float64
	Rate      float64
	Amount    float64
	Outward   bool
}

// Valuation is the cost attributed to an outward movement. Shortfall is
// the quantity no inward batch could cover; it stays uncosted and the
// resulting negative balance surfaces in the nightly stock scan.
type Valuation struct {
	CostValue float64
	Shortfall float64
}

// Balance summarises closing stock for an item.
type Balance struct {
	StockItemID int64
	Qty         float64
	Value       float64
}

// ErrItemNotFound indicates a missing stock item.
var ErrItemNotFound = errors.New("inventory: stock item not found")

// ErrInvalidQuantity indicates a non-positive movement quantity.
var ErrInvalidQuantity = errors.New("inventory: quantity must be positive")
