package reports

import (
	"sort"

	"github.com/tallyledger/tallyledger/internal/ledger"
)

// BalanceSheetRow summarises an account for one section.
type BalanceSheetRow struct {
	Code    string
	Name    string
	Balance float64
}

// BalanceSheetSection contains the rows and total for a classification.
type BalanceSheetSection struct {
	Label string
	Rows  []BalanceSheetRow
	Total float64
}

// BalanceSheet is the structured response for the balance sheet report.
type BalanceSheet struct {
	Assets                    BalanceSheetSection
	Liabilities               BalanceSheetSection
	Equity                    BalanceSheetSection
	TotalLiabilitiesAndEquity float64
}

// BuildBalanceSheet aggregates balances into assets, liabilities and
// equity. Assets are debit-positive; the other two sections flip sign.
func BuildBalanceSheet(accounts []AccountBalance) BalanceSheet {
	assets := BalanceSheetSection{Label: "Assets"}
	liabilities := BalanceSheetSection{Label: "Liabilities"}
	equity := BalanceSheetSection{Label: "Equity"}

	for _, acc := range accounts {
		switch acc.Type {
		case ledger.AccountTypeAsset:
			row := BalanceSheetRow{Code: acc.Code, Name: acc.Name, Balance: acc.Closing()}
			assets.Rows = append(assets.Rows, row)
			assets.Total += row.Balance
		case ledger.AccountTypeLiability:
			row := BalanceSheetRow{Code: acc.Code, Name: acc.Name, Balance: -acc.Closing()}
			liabilities.Rows = append(liabilities.Rows, row)
			liabilities.Total += row.Balance
		case ledger.AccountTypeEquity:
			row := BalanceSheetRow{Code: acc.Code, Name: acc.Name, Balance: -acc.Closing()}
			equity.Rows = append(equity.Rows, row)
			equity.Total += row.Balance
		}
	}

	sort.Slice(assets.Rows, func(i, j int) bool { return assets.Rows[i].Code < assets.Rows[j].Code })
	sort.Slice(liabilities.Rows, func(i, j int) bool { return liabilities.Rows[i].Code < liabilities.Rows[j].Code })
	sort.Slice(equity.Rows, func(i, j int) bool { return equity.Rows[i].Code < equity.Rows[j].Code })

	return BalanceSheet{
		Assets:                    assets,
		Liabilities:               liabilities,
		Equity:                    equity,
		TotalLiabilitiesAndEquity: liabilities.Total + equity.Total,
	}
}
