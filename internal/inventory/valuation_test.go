package inventory

import (
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2025, 4, d, 0, 0, 0, 0, time.UTC)
}

func inward(id int64, d int, qty, rate float64) StockLedgerEntry {
	return StockLedgerEntry{ID: id, Date: day(d), QtyIn: qty, Rate: rate, Value: qty * rate}
}

func outward(id int64, d int, qty, cost float64) StockLedgerEntry {
	return StockLedgerEntry{ID: id, Date: day(d), QtyOut: qty, CostValue: cost}
}

func TestFIFOCostConsumesOldestBatch(t *testing.T) {
	entries := []StockLedgerEntry{
		inward(1, 1, 10, 100),
		inward(2, 2, 10, 200),
	}
	v := FIFOCost(entries, 5)
	require.InDelta(t, 500.0, v.CostValue, 0.001)
	require.Zero(t, v.Shortfall)
}

func TestFIFOCostSkipsConsumedQuantity(t *testing.T) {
	// After the first outward of 5, layers are (5@100),(10@200).
	entries := []StockLedgerEntry{
		inward(1, 1, 10, 100),
		inward(2, 2, 10, 200),
		outward(3, 3, 5, 500),
	}
	v := FIFOCost(entries, 7)
	require.InDelta(t, 5*100+2*200, v.CostValue, 0.001)
	require.Zero(t, v.Shortfall)
}

func TestFIFOCostSpansBatches(t *testing.T) {
	entries := []StockLedgerEntry{
		inward(1, 1, 10, 100),
		inward(2, 2, 10, 200),
	}
	v := FIFOCost(entries, 15)
	require.InDelta(t, 10*100+5*200, v.CostValue, 0.001)
	require.Zero(t, v.Shortfall)
}

func TestFIFOCostShortfallStaysUncosted(t *testing.T) {
	entries := []StockLedgerEntry{
		inward(1, 1, 10, 100),
		inward(2, 2, 10, 200),
	}
	v := FIFOCost(entries, 50)
	require.InDelta(t, 3000.0, v.CostValue, 0.001)
	require.InDelta(t, 30.0, v.Shortfall, 0.001)
}

func TestWeightedAverageRate(t *testing.T) {
	entries := []StockLedgerEntry{
		inward(1, 1, 10, 100),
		inward(2, 2, 10, 200),
	}
	require.InDelta(t, 150.0, WeightedAverageRate(entries), 0.001)
}

func TestWeightedAverageOutwardKeepsRate(t *testing.T) {
	var state WeightedAverageState
	state.Apply(inward(1, 1, 10, 100))
	state.Apply(inward(2, 2, 10, 200))

	cost := 5 * state.Rate()
	require.InDelta(t, 750.0, cost, 0.001)

	state.Apply(outward(3, 3, 5, cost))
	require.InDelta(t, 15.0, state.Qty, 0.001)
	require.InDelta(t, 2250.0, state.Value, 0.001)
	require.InDelta(t, 150.0, state.Rate(), 0.001)
}

func TestWeightedAverageZeroQuantityRate(t *testing.T) {
	var state WeightedAverageState
	require.Zero(t, state.Rate())

	state.Apply(inward(1, 1, 10, 100))
	state.Apply(outward(2, 2, 10, 1000))
	require.Zero(t, state.Rate())
}

func TestOutwardCostDispatch(t *testing.T) {
	entries := []StockLedgerEntry{
		inward(1, 1, 10, 100),
		inward(2, 2, 10, 200),
	}

	fifo := OutwardCost(StockItem{ValuationMethod: ValuationFIFO}, entries, 5, day(3))
	require.InDelta(t, 500.0, fifo.CostValue, 0.001)

	// Unset method defaults to weighted average.
	avg := OutwardCost(StockItem{}, entries, 5, day(3))
	require.InDelta(t, 750.0, avg.CostValue, 0.001)
}

func TestOutwardCostBackdatedIgnoresLaterInwards(t *testing.T) {
	entries := []StockLedgerEntry{
		inward(1, 1, 10, 100),
		inward(2, 30, 10, 300),
	}

	// A backdated outward averages only over entries up to its date.
	avg := OutwardCost(StockItem{}, entries, 5, day(15))
	require.InDelta(t, 500.0, avg.CostValue, 0.001)

	// FIFO has no date cutoff; later batches stay consumable.
	fifo := OutwardCost(StockItem{ValuationMethod: ValuationFIFO}, entries, 15, day(15))
	require.InDelta(t, 10*100+5*300, fifo.CostValue, 0.001)
}

// The seed script writes valuation methods as raw SQL strings; pin them
// to the domain constants so Method() dispatch sees exact values.
func TestSeedUsesDomainValuationMethods(t *testing.T) {
	src, err := os.ReadFile("../../scripts/seed/main.go")
	require.NoError(t, err)

	known := []ValuationMethod{ValuationFIFO, ValuationWeightedAverage}
	re := regexp.MustCompile(`"(FIFO|WEIGHTED_[A-Z]+)"`)
	for _, m := range re.FindAllStringSubmatch(string(src), -1) {
		require.Contains(t, known, ValuationMethod(m[1]))
	}
	require.Contains(t, string(src), "DEFAULT '"+string(ValuationWeightedAverage)+"'")
}
