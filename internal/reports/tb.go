package reports

import (
	"sort"

	"github.com/tallyledger/tallyledger/internal/ledger"
)

// AccountBalance models one postable account with period aggregates.
// Opening carries activity before the reporting window plus opening
// entries; Debit and Credit sum the window itself.
type AccountBalance struct {
	AccountID int64
	Code      string
	Name      string
	Type      ledger.AccountType
	Opening   float64
	Debit     float64
	Credit    float64
}

// Closing computes the closing balance for the account.
func (a AccountBalance) Closing() float64 {
	return a.Opening + a.Debit - a.Credit
}

// TrialBalanceRow is one account line of the trial balance.
type TrialBalanceRow struct {
	Code    string
	Name    string
	Opening float64
	Debit   float64
	Credit  float64
	Closing float64
}

// TrialBalanceGroup aggregates rows per account type.
type TrialBalanceGroup struct {
	Type    ledger.AccountType
	Rows    []TrialBalanceRow
	Opening float64
	Debit   float64
	Credit  float64
	Closing float64
}

// TrialBalance is the structured report output.
type TrialBalance struct {
	Groups       []TrialBalanceGroup
	TotalDebit   float64
	TotalCredit  float64
	TotalOpening float64
	TotalClosing float64
}

var trialBalanceOrder = []ledger.AccountType{
	ledger.AccountTypeAsset,
	ledger.AccountTypeLiability,
	ledger.AccountTypeEquity,
	ledger.AccountTypeIncome,
	ledger.AccountTypeExpense,
}

// BuildTrialBalance groups balances by account type in statement order.
func BuildTrialBalance(accounts []AccountBalance) TrialBalance {
	groups := make(map[ledger.AccountType]*TrialBalanceGroup)
	for _, acc := range accounts {
		grp, ok := groups[acc.Type]
		if !ok {
			grp = &TrialBalanceGroup{Type: acc.Type}
			groups[acc.Type] = grp
		}
		row := TrialBalanceRow{
			Code:    acc.Code,
			Name:    acc.Name,
			Opening: acc.Opening,
			Debit:   acc.Debit,
			Credit:  acc.Credit,
			Closing: acc.Closing(),
		}
		grp.Rows = append(grp.Rows, row)
		grp.Opening += row.Opening
		grp.Debit += row.Debit
		grp.Credit += row.Credit
		grp.Closing += row.Closing
	}

	result := TrialBalance{}
	for _, accType := range trialBalanceOrder {
		grp, ok := groups[accType]
		if !ok {
			continue
		}
		sort.Slice(grp.Rows, func(i, j int) bool { return grp.Rows[i].Code < grp.Rows[j].Code })
		result.Groups = append(result.Groups, *grp)
		result.TotalOpening += grp.Opening
		result.TotalDebit += grp.Debit
		result.TotalCredit += grp.Credit
		result.TotalClosing += grp.Closing
	}
	return result
}
