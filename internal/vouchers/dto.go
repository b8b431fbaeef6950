package vouchers

import (
	"time"

	"github.com/tallyledger/tallyledger/internal/ledger"
)

// CreateVoucherRequest is the JSON payload for posting a voucher.
type CreateVoucherRequest struct {
	VoucherTypeID int64             `json:"voucher_type_id" validate:"required,gt=0"`
	Date          string            `json:"date" validate:"required,datetime=2006-01-02"`
	Number        string            `json:"number,omitempty"`
	PartyLedgerID *int64            `json:"party_ledger_id,omitempty"`
	Narration     string            `json:"narration,omitempty" validate:"max=1000"`
	Items         []LineItemRequest `json:"items,omitempty" validate:"dive"`
	Charges       []ChargeRequest   `json:"charges,omitempty" validate:"dive"`
	RawLines      []RawLineRequest  `json:"raw_lines,omitempty" validate:"dive"`
}

// LineItemRequest is one item line of the payload.
type LineItemRequest struct {
	LedgerID    int64   `json:"ledger_id" validate:"required,gt=0"`
	StockItemID *int64  `json:"stock_item_id,omitempty"`
	Qty         float64 `json:"qty" validate:"gte=0"`
	Rate        float64 `json:"rate" validate:"gte=0"`
	Amount      float64 `json:"amount" validate:"gte=0"`
	Discount    float64 `json:"discount" validate:"gte=0"`
}

// ChargeRequest is one caller-supplied charge.
type ChargeRequest struct {
	LedgerID int64   `json:"ledger_id" validate:"required,gt=0"`
	Name     string  `json:"name" validate:"required,max=100"`
	Amount   float64 `json:"amount" validate:"gte=0"`
}

// RawLineRequest is one manual journal line.
type RawLineRequest struct {
	AccountID   int64   `json:"account_id" validate:"required,gt=0"`
	Debit       float64 `json:"debit" validate:"gte=0"`
	Credit      float64 `json:"credit" validate:"gte=0"`
	Description string  `json:"description,omitempty" validate:"max=500"`
}

// ToInput converts the request into the service input. Date parsing is
// validated upstream by the datetime tag.
func (req CreateVoucherRequest) ToInput(actorID int64) (CreateInput, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return CreateInput{}, err
	}
	in := CreateInput{
		VoucherTypeID: req.VoucherTypeID,
		Date:          date,
		Number:        req.Number,
		PartyLedgerID: req.PartyLedgerID,
		Narration:     req.Narration,
		ActorID:       actorID,
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, LineItemInput{
			LedgerID:    item.LedgerID,
			StockItemID: item.StockItemID,
			Qty:         item.Qty,
			Rate:        item.Rate,
			Amount:      item.Amount,
			Discount:    item.Discount,
		})
	}
	for _, charge := range req.Charges {
		in.Charges = append(in.Charges, ChargeInput{
			LedgerID: charge.LedgerID,
			Name:     charge.Name,
			Amount:   charge.Amount,
		})
	}
	for _, line := range req.RawLines {
		in.RawLines = append(in.RawLines, ledger.LineInput{
			AccountID:   line.AccountID,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		})
	}
	return in, nil
}

// VoucherResponse is the JSON shape returned for a voucher.
type VoucherResponse struct {
	ID             int64            `json:"id"`
	Number         string           `json:"number"`
	VoucherTypeID  int64            `json:"voucher_type_id"`
	Date           string           `json:"date"`
	PartyLedgerID  *int64           `json:"party_ledger_id,omitempty"`
	Status         string           `json:"status"`
	Narration      string           `json:"narration,omitempty"`
	NetTotal       float64          `json:"net_total"`
	TaxTotal       float64          `json:"tax_total"`
	GrandTotal     float64          `json:"grand_total"`
	JournalEntryID int64            `json:"journal_entry_id"`
	Items          []ItemResponse   `json:"items,omitempty"`
	Charges        []ChargeResponse `json:"charges,omitempty"`
}

// ItemResponse mirrors one persisted line item.
type ItemResponse struct {
	ID          int64   `json:"id"`
	LedgerID    int64   `json:"ledger_id"`
	StockItemID *int64  `json:"stock_item_id,omitempty"`
	Qty         float64 `json:"qty"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount"`
	Discount    float64 `json:"discount"`
}

// ChargeResponse mirrors one persisted charge.
type ChargeResponse struct {
	ID       int64   `json:"id"`
	LedgerID int64   `json:"ledger_id"`
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
}

// NewVoucherResponse maps the domain voucher to its JSON shape.
func NewVoucherResponse(v VoucherEntry) VoucherResponse {
	resp := VoucherResponse{
		ID:             v.ID,
		Number:         v.Number,
		VoucherTypeID:  v.VoucherTypeID,
		Date:           v.Date.Format("2006-01-02"),
		PartyLedgerID:  v.PartyLedgerID,
		Status:         v.Status,
		Narration:      v.Narration,
		NetTotal:       v.NetTotal,
		TaxTotal:       v.TaxTotal,
		GrandTotal:     v.GrandTotal,
		JournalEntryID: v.JournalEntryID,
	}
	for _, item := range v.Items {
		resp.Items = append(resp.Items, ItemResponse{
			ID:          item.ID,
			LedgerID:    item.LedgerID,
			StockItemID: item.StockItemID,
			Qty:         item.Qty,
			Rate:        item.Rate,
			Amount:      item.Amount,
			Discount:    item.Discount,
		})
	}
	for _, charge := range v.Charges {
		resp.Charges = append(resp.Charges, ChargeResponse{
			ID:       charge.ID,
			LedgerID: charge.LedgerID,
			Name:     charge.Name,
			Amount:   charge.Amount,
		})
	}
	return resp
}
