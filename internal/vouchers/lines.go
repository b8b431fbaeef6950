package vouchers

import (
	"fmt"

	"github.com/tallyledger/tallyledger/internal/inventory"
	"github.com/tallyledger/tallyledger/internal/ledger"
)

// RoutedItem pairs one input line with its resolved stock item and the
// cost the valuation calculator attributed to its outward movement.
// Stock is nil for pure ledger lines; Cost is zero for inwards.
type RoutedItem struct {
	Input LineItemInput
	Stock *inventory.StockItem
	Cost  float64
}

// GenerateLines assembles the balanced journal line set for a voucher.
// Sales and Purchase derive lines from items and charges; every other
// group passes the caller's raw lines through unchanged. The output
// balances by construction: the party line carries the grand total and
// item plus charge lines sum to exactly that, while each COGS pair
// nets to zero on its own.
func GenerateLines(group TypeGroup, partyLedgerID int64, grandTotal float64, items []RoutedItem, charges []Charge, raw []ledger.LineInput) ([]ledger.LineInput, error) {
	switch group {
	case GroupSales:
		return salesLines(partyLedgerID, grandTotal, items, charges)
	case GroupPurchase:
		return purchaseLines(partyLedgerID, grandTotal, items, charges)
	default:
		return raw, nil
	}
}

func salesLines(partyLedgerID int64, grandTotal float64, items []RoutedItem, charges []Charge) ([]ledger.LineInput, error) {
	lines := []ledger.LineInput{{
		AccountID:   partyLedgerID,
		Debit:       grandTotal,
		Description: "Party",
	}}
	for idx, item := range items {
		if item.Input.LedgerID == 0 {
			return nil, fmt.Errorf("%w: item %d has no sales ledger", ErrRoutingMissing, idx)
		}
		lines = append(lines, ledger.LineInput{
			AccountID:   item.Input.LedgerID,
			Credit:      item.Input.Net(),
			Description: "Sales",
		})
		// Cost recognition only when the item routes both sides of the
		// COGS transfer and a positive cost was computed.
		if item.Stock != nil && item.Stock.COGSAccountID != nil && item.Stock.InventoryAccountID != nil && item.Cost > 0 {
			lines = append(lines,
				ledger.LineInput{AccountID: *item.Stock.COGSAccountID, Debit: item.Cost, Description: "Cost of Goods Sold"},
				ledger.LineInput{AccountID: *item.Stock.InventoryAccountID, Credit: item.Cost, Description: "Inventory Issue"},
			)
		}
	}
	for _, charge := range charges {
		if charge.LedgerID == 0 {
			return nil, fmt.Errorf("%w: charge %q has no ledger", ErrRoutingMissing, charge.Name)
		}
		lines = append(lines, ledger.LineInput{
			AccountID:   charge.LedgerID,
			Credit:      charge.Amount,
			Description: charge.Name,
		})
	}
	return lines, nil
}

func purchaseLines(partyLedgerID int64, grandTotal float64, items []RoutedItem, charges []Charge) ([]ledger.LineInput, error) {
	lines := []ledger.LineInput{{
		AccountID:   partyLedgerID,
		Credit:      grandTotal,
		Description: "Party",
	}}
	for idx, item := range items {
		// Inbound stock capitalizes onto the inventory asset account in
		// place of the line's expense ledger.
		ledgerID := item.Input.LedgerID
		if item.Stock != nil && item.Stock.InventoryAccountID != nil {
			ledgerID = *item.Stock.InventoryAccountID
		}
		if ledgerID == 0 {
			return nil, fmt.Errorf("%w: item %d has no purchase ledger", ErrRoutingMissing, idx)
		}
		lines = append(lines, ledger.LineInput{
			AccountID:   ledgerID,
			Debit:       item.Input.Net(),
			Description: "Purchase",
		})
	}
	for _, charge := range charges {
		if charge.LedgerID == 0 {
			return nil, fmt.Errorf("%w: charge %q has no ledger", ErrRoutingMissing, charge.Name)
		}
		lines = append(lines, ledger.LineInput{
			AccountID:   charge.LedgerID,
			Debit:       charge.Amount,
			Description: charge.Name,
		})
	}
	return lines, nil
}
