package reports

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads report aggregates straight off the pool; reports are
// read-only and need no transaction.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AccountBalances aggregates journal activity per postable account.
// Opening covers everything dated before from plus opening entries;
// Debit and Credit cover the window inclusive.
func (r *Repository) AccountBalances(ctx context.Context, from, to time.Time) ([]AccountBalance, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("reports repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT a.id, a.code, a.name, a.type,
COALESCE(SUM(CASE WHEN je.date < $1 OR je.is_opening THEN jl.debit - jl.credit ELSE 0 END), 0) AS opening,
COALESCE(SUM(CASE WHEN je.date >= $1 AND je.date <= $2 AND NOT je.is_opening THEN jl.debit ELSE 0 END), 0) AS debit,
COALESCE(SUM(CASE WHEN je.date >= $1 AND je.date <= $2 AND NOT je.is_opening THEN jl.credit ELSE 0 END), 0) AS credit
FROM accounts a
JOIN journal_lines jl ON jl.account_id = a.id
JOIN journal_entries je ON je.id = jl.entry_id
WHERE NOT a.is_group AND NOT a.is_deleted AND je.date <= $2
GROUP BY a.id, a.code, a.name, a.type
ORDER BY a.code`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []AccountBalance
	for rows.Next() {
		var b AccountBalance
		if err := rows.Scan(&b.AccountID, &b.Code, &b.Name, &b.Type, &b.Opening, &b.Debit, &b.Credit); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// DayBookRows lists journal entries in a window, oldest first, with each
// entry's debit total as its amount.
func (r *Repository) DayBookRows(ctx context.Context, from, to time.Time) ([]DayBookRow, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("reports repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT je.id, je.date, je.voucher_type, COALESCE(je.reference,''), COALESCE(je.narration,''), je.is_system_entry,
COALESCE(SUM(jl.debit), 0) AS amount
FROM journal_entries je
JOIN journal_lines jl ON jl.entry_id = je.id
WHERE je.date >= $1 AND je.date <= $2
GROUP BY je.id, je.date, je.voucher_type, je.reference, je.narration, je.is_system_entry
ORDER BY je.date, je.id`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DayBookRow
	for rows.Next() {
		var row DayBookRow
		if err := rows.Scan(&row.EntryID, &row.Date, &row.VoucherType, &row.Reference, &row.Narration, &row.IsSystemEntry, &row.Amount); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// StockBalances aggregates closing stock per item as of a date.
func (r *Repository) StockBalances(ctx context.Context, asOf time.Time) ([]StockSummaryRow, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("reports repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT si.id, si.name,
COALESCE(SUM(sle.qty_in - sle.qty_out), 0) AS qty,
COALESCE(SUM(sle.value - sle.cost_value), 0) AS value
FROM stock_items si
LEFT JOIN stock_ledger_entries sle ON sle.stock_item_id = si.id AND sle.date <= $1
GROUP BY si.id, si.name
ORDER BY si.name`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []StockSummaryRow
	for rows.Next() {
		var row StockSummaryRow
		if err := rows.Scan(&row.StockItemID, &row.Name, &row.Qty, &row.Value); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
