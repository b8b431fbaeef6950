package vouchers

import "strings"

// Totals caches the monetary summary persisted on the voucher header.
type Totals struct {
	Net   float64
	Tax   float64
	Grand float64
}

// ComputeTotals derives the header amounts. Net sums item values after
// discount, tax sums GST heads, grand adds every charge on top of net.
func ComputeTotals(items []LineItemInput, charges []Charge) Totals {
	var t Totals
	for _, item := range items {
		t.Net += item.Net()
	}
	for _, charge := range charges {
		if strings.Contains(strings.ToUpper(charge.Name), "GST") {
			t.Tax += charge.Amount
		}
		t.Grand += charge.Amount
	}
	t.Grand += t.Net
	return t
}
