package gst

import (
	"fmt"
	"strings"

	"github.com/govalues/decimal"
)

// Compute derives aggregated tax charges for one voucher. Place of
// supply comes from comparing the organization and party state codes:
// matching codes split each line's rate evenly between CGST and SGST,
// differing codes levy IGST at the full rate. When either state code is
// missing the place of supply is undeterminable and no charges are
// produced. Amounts are rounded to two places per component after
// aggregation, so a voucher carries at most one charge per component.
func Compute(orgState, partyState string, dir Direction, lines []TaxableLine) ([]Charge, error) {
	orgState = strings.TrimSpace(orgState)
	partyState = strings.TrimSpace(partyState)
	if orgState == "" || partyState == "" {
		return nil, nil
	}
	intra := strings.EqualFold(orgState, partyState)

	type bucket struct {
		total decimal.Decimal
		rate  float64
		mixed bool
		seen  bool
	}
	buckets := map[Component]*bucket{
		ComponentCGST: {},
		ComponentSGST: {},
		ComponentIGST: {},
	}

	add := func(c Component, amount, rate float64) error {
		tax, err := lineTax(amount, rate)
		if err != nil {
			return err
		}
		b := buckets[c]
		b.total, err = b.total.Add(tax)
		if err != nil {
			return err
		}
		if b.seen && b.rate != rate {
			b.mixed = true
		}
		b.rate = rate
		b.seen = true
		return nil
	}

	for _, line := range lines {
		if line.RatePercent <= 0 || line.Amount <= 0 {
			continue
		}
		if intra {
			half := line.RatePercent / 2
			if err := add(ComponentCGST, line.Amount, half); err != nil {
				return nil, err
			}
			if err := add(ComponentSGST, line.Amount, half); err != nil {
				return nil, err
			}
			continue
		}
		if err := add(ComponentIGST, line.Amount, line.RatePercent); err != nil {
			return nil, err
		}
	}

	var charges []Charge
	for _, c := range []Component{ComponentCGST, ComponentSGST, ComponentIGST} {
		b := buckets[c]
		amount, ok := b.total.Round(2).Float64()
		if !ok {
			return nil, fmt.Errorf("gst: %s amount out of range", c)
		}
		if amount == 0 {
			continue
		}
		charge := Charge{
			Component:  c,
			Direction:  dir,
			LedgerName: LedgerName(dir, c),
			Amount:     amount,
		}
		if !b.mixed {
			charge.Rate = b.rate
		}
		charges = append(charges, charge)
	}
	return charges, nil
}

func lineTax(amount, rate float64) (decimal.Decimal, error) {
	a, err := decimal.NewFromFloat64(amount)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("gst: taxable amount %v: %w", amount, err)
	}
	r, err := decimal.NewFromFloat64(rate)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("gst: rate %v: %w", rate, err)
	}
	product, err := a.Mul(r)
	if err != nil {
		return decimal.Decimal{}, err
	}
	hundred := decimal.MustParse("100")
	return product.Quo(hundred)
}
