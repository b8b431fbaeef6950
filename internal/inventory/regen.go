package inventory

import (
	"context"
	"fmt"
	"time"
)

// CostOutward loads the item's ledger and prices qty against it as of
// the movement date. Rows belonging to the voucher being (re)posted
// must already be deleted so the movement never prices against itself.
func CostOutward(ctx context.Context, tx TxRepository, item StockItem, qty float64, asOf time.Time) (Valuation, error) {
	entries, err := tx.EntriesForItem(ctx, item.ID)
	if err != nil {
		return Valuation{}, fmt.Errorf("inventory: load entries for item %d: %w", item.ID, err)
	}
	return OutwardCost(item, entries, qty, asOf), nil
}

// Regenerate rebuilds the stock ledger rows owned by one voucher:
// delete everything scoped to the voucher id, then re-derive each
// movement from voucher state. Movements are applied in order so a later
// outward in the same voucher sees the rows inserted before it. The
// rebuild is idempotent; reposting an unchanged voucher leaves closing
// quantity and value untouched.
func Regenerate(ctx context.Context, tx TxRepository, voucherID int64, movements []Movement) ([]StockLedgerEntry, error) {
	if voucherID == 0 {
		return nil, fmt.Errorf("inventory: voucher id required for regeneration")
	}
	if err := tx.DeleteEntriesForVoucher(ctx, voucherID); err != nil {
		return nil, fmt.Errorf("inventory: clear entries for voucher %d: %w", voucherID, err)
	}

	var inserted []StockLedgerEntry
	for _, mv := range movements {
		if mv.Qty <= 0 {
			return nil, ErrInvalidQuantity
		}
		entry := StockLedgerEntry{
			Date:        mv.Date,
			StockItemID: mv.Item.ID,
			VoucherID:   voucherID,
			Rate:        mv.Rate,
		}
		if mv.Outward {
			// Outward rows carry only their cost; the commercial value
			// lives on the voucher. Keeping value zero makes closing
			// value a plain SUM(value - cost_value).
			valuation, err := CostOutward(ctx, tx, mv.Item, mv.Qty, mv.Date)
			if err != nil {
				return nil, err
			}
			entry.QtyOut = mv.Qty
			entry.CostValue = valuation.CostValue
		} else {
			entry.QtyIn = mv.Qty
			entry.Value = mv.Amount
		}
		persisted, err := tx.InsertEntry(ctx, entry)
		if err != nil {
			return nil, fmt.Errorf("inventory: insert entry for voucher %d: %w", voucherID, err)
		}
		inserted = append(inserted, persisted)
	}
	return inserted, nil
}
