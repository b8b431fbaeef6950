package vouchers

import (
	"errors"
	"time"

	"github.com/tallyledger/tallyledger/internal/ledger"
)

// TypeGroup routes journal line generation for a voucher type.
type TypeGroup string

const (
	GroupSales    TypeGroup = "Sales"
	GroupPurchase TypeGroup = "Purchase"
	GroupPayment  TypeGroup = "Payment"
	GroupReceipt  TypeGroup = "Receipt"
	GroupJournal  TypeGroup = "Journal"
	GroupContra   TypeGroup = "Contra"
)

// Sequencing selects how voucher numbers are allocated.
type Sequencing string

const (
	// SequencingAutomatic draws from the type's serialized counter.
	SequencingAutomatic Sequencing = "automatic"
	// SequencingManual requires a caller-supplied unique number.
	SequencingManual Sequencing = "manual"
)

// VoucherType configures numbering and routing for a family of vouchers.
type VoucherType struct {
	ID               int64
	Name             string
	TypeGroup        TypeGroup
	Sequencing       Sequencing
	Prefix           string
	CurrentSequence  int64
	DefaultAccountID *int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// StatusPosted is the only status a persisted voucher carries; edits
// supersede rather than transition.
const StatusPosted = "POSTED"

// LineItem is one commercial line of a voucher. StockItemID links the
// line to inventory; a nil value makes it a pure ledger line.
type LineItem struct {
	ID          int64
	VoucherID   int64
	LedgerID    int64
	StockItemID *int64
	Qty         float64
	Rate        float64
	Amount      float64
	Discount    float64
}

// Net returns the taxable line value after discount.
func (li LineItem) Net() float64 {
	amount := li.Amount
	if amount == 0 && li.Qty > 0 {
		amount = li.Qty * li.Rate
	}
	return amount - li.Discount
}

// Charge is one additional amount on a voucher, either a generated tax
// head or a caller-supplied cost such as freight.
type Charge struct {
	ID        int64
	VoucherID int64
	LedgerID  int64
	Name      string
	Amount    float64
}

// VoucherEntry is the user-facing transaction record. It owns its items
// and charges and weakly references the journal entry that carries its
// ledger effect. Edits never mutate it structurally in place; they
// snapshot, reverse, and repost.
type VoucherEntry struct {
	ID             int64
	Number         string
	VoucherTypeID  int64
	Date           time.Time
	PartyLedgerID  *int64
	Status         string
	Narration      string
	NetTotal       float64
	TaxTotal       float64
	GrandTotal     float64
	JournalEntryID int64
	Items          []LineItem
	Charges        []Charge
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LineItemInput describes one item line of a voucher being posted.
type LineItemInput struct {
	LedgerID    int64
	StockItemID *int64
	Qty         float64
	Rate        float64
	Amount      float64
	Discount    float64
}

// Net returns the taxable value of the input line.
func (in LineItemInput) Net() float64 {
	return LineItem{Qty: in.Qty, Rate: in.Rate, Amount: in.Amount, Discount: in.Discount}.Net()
}

// ChargeInput is a caller-supplied charge line.
type ChargeInput struct {
	LedgerID int64
	Name     string
	Amount   float64
}

// CreateInput carries everything needed to post a voucher. Exactly one
// of Items or RawLines must be present: item lines drive tax, routing
// and stock, raw lines pass through for manual voucher groups.
type CreateInput struct {
	VoucherTypeID int64
	Date          time.Time
	Number        string
	PartyLedgerID *int64
	Narration     string
	ActorID       int64
	Items         []LineItemInput
	Charges       []ChargeInput
	RawLines      []ledger.LineInput
}

var (
	// ErrValidationBlocked indicates a business rule vetoed the posting.
	ErrValidationBlocked = errors.New("vouchers: blocked by business rule")
	// ErrDuplicateVoucherNumber indicates the number is already taken.
	ErrDuplicateVoucherNumber = errors.New("vouchers: voucher number already exists")
	// ErrRoutingMissing indicates a line lacks its required ledger.
	ErrRoutingMissing = errors.New("vouchers: line item lacks ledger routing")
	// ErrPartyRequired indicates a trading voucher without a party ledger.
	ErrPartyRequired = errors.New("vouchers: party ledger required")
	// ErrMixedInput enforces exactly one of item lines or raw lines.
	ErrMixedInput = errors.New("vouchers: provide exactly one of items or raw lines")
	// ErrNumberRequired indicates manual sequencing without a number.
	ErrNumberRequired = errors.New("vouchers: manual voucher number required")
	// ErrVoucherNotFound indicates a missing voucher.
	ErrVoucherNotFound = errors.New("vouchers: voucher not found")
	// ErrVoucherTypeNotFound indicates a missing voucher type.
	ErrVoucherTypeNotFound = errors.New("vouchers: voucher type not found")
)
