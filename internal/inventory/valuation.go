package inventory

import "time"

// WeightedAverageState tracks the running quantity and value of an item.
// Inwards move the rate; outwards consume at the rate unchanged.
type WeightedAverageState struct {
	Qty   float64
	Value float64
}

// Apply folds one stock ledger entry into the running state.
func (s *WeightedAverageState) Apply(entry StockLedgerEntry) {
	if entry.QtyIn > 0 {
		s.Qty += entry.QtyIn
		s.Value += entry.Value
		return
	}
	if entry.QtyOut > 0 {
		s.Qty -= entry.QtyOut
		s.Value -= entry.CostValue
	}
}

// Rate returns the current average rate. A zero or negative quantity is
// the documented degenerate case and yields rate 0.
func (s WeightedAverageState) Rate() float64 {
	if s.Qty <= 0 {
		return 0
	}
	return s.Value / s.Qty
}

// WeightedAverageRate folds entries, which must already be ordered by
// (date, insertion sequence), into the current average rate.
func WeightedAverageRate(entries []StockLedgerEntry) float64 {
	var state WeightedAverageState
	for _, entry := range entries {
		state.Apply(entry)
	}
	return state.Rate()
}

// FIFOCost walks inward batches oldest to newest, skips quantity already
// absorbed by earlier outwards, and consumes from the first partially
// unconsumed batch at its own rate. Quantity left after all batches are
// exhausted is reported as Shortfall and contributes no cost.
func FIFOCost(entries []StockLedgerEntry, qty float64) Valuation {
	var consumed float64
	for _, entry := range entries {
		if entry.QtyOut > 0 {
			consumed += entry.QtyOut
		}
	}

	remaining := qty
	var cost float64
	for _, batch := range entries {
		if batch.QtyIn <= 0 {
			continue
		}
		if consumed >= batch.QtyIn {
			consumed -= batch.QtyIn
			continue
		}
		available := batch.QtyIn - consumed
		consumed = 0

		take := available
		if remaining < take {
			take = remaining
		}
		rate := 0.0
		if batch.QtyIn > 0 {
			rate = batch.Value / batch.QtyIn
		}
		cost += take * rate
		remaining -= take
		if remaining <= 0 {
			break
		}
	}
	if remaining < 0 {
		remaining = 0
	}
	return Valuation{CostValue: cost, Shortfall: remaining}
}

// OutwardCost dispatches on the item's valuation method. Entries must be
// ordered by (date, insertion sequence) and exclude the movement being
// costed. asOf is the movement date: the average rate for a backdated
// outward folds only entries up to that date, so inwards posted for
// later dates never move its cost. FIFO walks the full batch history.
func OutwardCost(item StockItem, entries []StockLedgerEntry, qty float64, asOf time.Time) Valuation {
	if item.Method() == ValuationFIFO {
		return FIFOCost(entries, qty)
	}
	var state WeightedAverageState
	for _, entry := range entries {
		if !asOf.IsZero() && entry.Date.After(asOf) {
			continue
		}
		state.Apply(entry)
	}
	return Valuation{CostValue: qty * state.Rate()}
}
