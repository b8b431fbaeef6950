package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tallyledger/tallyledger/internal/platform/db"
)

// AccountBalance carries a per-account aggregate inside a year.
type AccountBalance struct {
	AccountID int64
	Balance   float64
}

// TxRepository exposes ledger operations bound to one transaction.
type TxRepository interface {
	Organization(ctx context.Context) (Organization, error)
	FindYearForDate(ctx context.Context, date time.Time) (FinancialYear, error)
	GetYearForUpdate(ctx context.Context, id int64) (FinancialYear, error)
	GetAccount(ctx context.Context, id int64) (Account, error)
	InsertJournalEntry(ctx context.Context, in EntryInput) (JournalEntry, error)
	GetJournalWithLines(ctx context.Context, id int64) (JournalEntry, error)
	ListEntriesByReference(ctx context.Context, reference string) ([]JournalEntry, error)
	AccountBalances(ctx context.Context, fyID int64, accType AccountType) ([]AccountBalance, error)
	FirstEquityAccount(ctx context.Context) (Account, error)
	MarkYearClosed(ctx context.Context, id int64) error
}

// Repository persists ledger entities in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes fn within a RepeatableRead transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// Bind wraps an externally managed transaction so callers composing a
// larger unit of work can reuse the ledger queries.
func (r *Repository) Bind(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

type txRepository struct {
	tx pgx.Tx
}

const accountColumns = `id, code, name, type, parent_id, is_group, COALESCE(state_code,''), COALESCE(gstin,''), is_deleted, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.IsGroup, &a.StateCode, &a.GSTIN, &a.IsDeleted, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *txRepository) Organization(ctx context.Context) (Organization, error) {
	var org Organization
	err := r.tx.QueryRow(ctx, `SELECT id, name, COALESCE(state_code,''), COALESCE(gstin,''), books_beginning_from
FROM organizations ORDER BY id LIMIT 1`).
		Scan(&org.ID, &org.Name, &org.StateCode, &org.GSTIN, &org.BooksBeginningFrom)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Organization{}, nil
		}
		return Organization{}, err
	}
	return org, nil
}

func (r *txRepository) FindYearForDate(ctx context.Context, date time.Time) (FinancialYear, error) {
	var fy FinancialYear
	err := r.tx.QueryRow(ctx, `SELECT id, name, start_date, end_date, is_closed, is_locked, locked_upto, created_at, updated_at
FROM financial_years WHERE $1 BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1`, date).
		Scan(&fy.ID, &fy.Name, &fy.StartDate, &fy.EndDate, &fy.IsClosed, &fy.IsLocked, &fy.LockedUpto, &fy.CreatedAt, &fy.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FinancialYear{}, ErrNoFinancialYear
		}
		return FinancialYear{}, err
	}
	return fy, nil
}

func (r *txRepository) GetYearForUpdate(ctx context.Context, id int64) (FinancialYear, error) {
	var fy FinancialYear
	err := r.tx.QueryRow(ctx, `SELECT id, name, start_date, end_date, is_closed, is_locked, locked_upto, created_at, updated_at
FROM financial_years WHERE id=$1 FOR UPDATE`, id).
		Scan(&fy.ID, &fy.Name, &fy.StartDate, &fy.EndDate, &fy.IsClosed, &fy.IsLocked, &fy.LockedUpto, &fy.CreatedAt, &fy.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FinancialYear{}, ErrYearNotFound
		}
		return FinancialYear{}, err
	}
	return fy, nil
}

func (r *txRepository) GetAccount(ctx context.Context, id int64) (Account, error) {
	return scanAccount(r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id))
}

func (r *txRepository) InsertJournalEntry(ctx context.Context, in EntryInput) (JournalEntry, error) {
	var entry JournalEntry
	entry.Date = in.Date
	entry.VoucherType = in.VoucherType
	entry.Reference = in.Reference
	entry.Narration = in.Narration
	entry.FinancialYearID = in.FinancialYearID
	entry.IsOpening = in.IsOpening
	entry.IsSystemEntry = in.IsSystemEntry
	entry.IsLocked = in.IsLocked
	err := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (date, voucher_type, reference, narration, financial_year_id, is_opening, is_system_entry, is_locked)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, created_at, updated_at`,
		in.Date, in.VoucherType, in.Reference, in.Narration, in.FinancialYearID, in.IsOpening, in.IsSystemEntry, in.IsLocked).
		Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return JournalEntry{}, err
	}
	for _, line := range in.Lines {
		var lineID int64
		err := r.tx.QueryRow(ctx, `INSERT INTO journal_lines (entry_id, account_id, debit, credit, description)
VALUES ($1,$2,$3,$4,$5) RETURNING id`, entry.ID, line.AccountID, line.Debit, line.Credit, line.Description).
			Scan(&lineID)
		if err != nil {
			return JournalEntry{}, err
		}
		entry.Lines = append(entry.Lines, JournalLine{
			ID:          lineID,
			EntryID:     entry.ID,
			AccountID:   line.AccountID,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		})
	}
	return entry, nil
}

func (r *txRepository) GetJournalWithLines(ctx context.Context, id int64) (JournalEntry, error) {
	var entry JournalEntry
	err := r.tx.QueryRow(ctx, `SELECT id, date, voucher_type, COALESCE(reference,''), COALESCE(narration,''), financial_year_id, is_opening, is_system_entry, is_locked, created_at, updated_at
FROM journal_entries WHERE id=$1`, id).
		Scan(&entry.ID, &entry.Date, &entry.VoucherType, &entry.Reference, &entry.Narration, &entry.FinancialYearID, &entry.IsOpening, &entry.IsSystemEntry, &entry.IsLocked, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, ErrEntryNotFound
		}
		return JournalEntry{}, err
	}
	rows, err := r.tx.Query(ctx, `SELECT id, entry_id, account_id, debit, credit, COALESCE(description,'')
FROM journal_lines WHERE entry_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return JournalEntry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &line.Debit, &line.Credit, &line.Description); err != nil {
			return JournalEntry{}, err
		}
		entry.Lines = append(entry.Lines, line)
	}
	return entry, rows.Err()
}

func (r *txRepository) ListEntriesByReference(ctx context.Context, reference string) ([]JournalEntry, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, date, voucher_type, COALESCE(reference,''), COALESCE(narration,''), financial_year_id, is_opening, is_system_entry, is_locked, created_at, updated_at
FROM journal_entries WHERE reference=$1 ORDER BY id ASC`, reference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.Date, &e.VoucherType, &e.Reference, &e.Narration, &e.FinancialYearID, &e.IsOpening, &e.IsSystemEntry, &e.IsLocked, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *txRepository) AccountBalances(ctx context.Context, fyID int64, accType AccountType) ([]AccountBalance, error) {
	// Income balances are credit-positive, expense balances debit-positive.
	expr := `SUM(jl.credit - jl.debit)`
	if accType == AccountTypeExpense {
		expr = `SUM(jl.debit - jl.credit)`
	}
	rows, err := r.tx.Query(ctx, `SELECT jl.account_id, `+expr+` AS bal
FROM journal_lines jl
JOIN journal_entries je ON je.id = jl.entry_id
JOIN accounts a ON a.id = jl.account_id
WHERE je.financial_year_id=$1 AND a.type=$2
GROUP BY jl.account_id
HAVING ABS(`+expr+`) >= 0.005
ORDER BY jl.account_id`, fyID, accType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var balances []AccountBalance
	for rows.Next() {
		var b AccountBalance
		if err := rows.Scan(&b.AccountID, &b.Balance); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func (r *txRepository) FirstEquityAccount(ctx context.Context) (Account, error) {
	acc, err := scanAccount(r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts
WHERE type=$1 AND NOT is_group AND NOT is_deleted
ORDER BY CASE WHEN name='Retained Earnings' THEN 0 ELSE 1 END, id LIMIT 1`, AccountTypeEquity))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return Account{}, ErrNoEquityAccount
		}
		return Account{}, err
	}
	return acc, nil
}

func (r *txRepository) MarkYearClosed(ctx context.Context, id int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE financial_years SET is_closed=TRUE, updated_at=NOW() WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrYearNotFound
	}
	return nil
}
