package reports

import (
	"sort"

	"github.com/tallyledger/tallyledger/internal/ledger"
)

// ProfitAndLossRow is one income or expense account summary.
type ProfitAndLossRow struct {
	Code   string
	Name   string
	Amount float64
}

// ProfitAndLossSection groups rows by nature.
type ProfitAndLossSection struct {
	Label string
	Rows  []ProfitAndLossRow
	Total float64
}

// ProfitAndLoss contains the structured output for the report.
type ProfitAndLoss struct {
	Income    ProfitAndLossSection
	Expense   ProfitAndLossSection
	NetProfit float64
}

// BuildProfitAndLoss splits balances into income and expense sections.
// Income rows are credit-positive, expense rows debit-positive.
func BuildProfitAndLoss(accounts []AccountBalance) ProfitAndLoss {
	income := ProfitAndLossSection{Label: "Income"}
	expense := ProfitAndLossSection{Label: "Expense"}

	for _, acc := range accounts {
		switch acc.Type {
		case ledger.AccountTypeIncome:
			row := ProfitAndLossRow{Code: acc.Code, Name: acc.Name, Amount: acc.Credit - acc.Debit}
			income.Rows = append(income.Rows, row)
			income.Total += row.Amount
		case ledger.AccountTypeExpense:
			row := ProfitAndLossRow{Code: acc.Code, Name: acc.Name, Amount: acc.Debit - acc.Credit}
			expense.Rows = append(expense.Rows, row)
			expense.Total += row.Amount
		}
	}

	sort.Slice(income.Rows, func(i, j int) bool { return income.Rows[i].Code < income.Rows[j].Code })
	sort.Slice(expense.Rows, func(i, j int) bool { return expense.Rows[i].Code < expense.Rows[j].Code })

	return ProfitAndLoss{
		Income:    income,
		Expense:   expense,
		NetProfit: income.Total - expense.Total,
	}
}
