package gst

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tallyledger/tallyledger/internal/ledger"
	"github.com/tallyledger/tallyledger/internal/platform/db"
)

// TxRepository exposes tax lookups bound to one transaction.
type TxRepository interface {
	GetOrCreateTaxLedger(ctx context.Context, dir Direction, c Component) (ledger.Account, error)
}

// Repository resolves statutory tax ledgers in PostgreSQL.
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
		return errors.New("gst repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// Bind wraps an externally managed transaction.
func (r *Repository) Bind(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

type txRepository struct {
	tx pgx.Tx
}

// GetOrCreateTaxLedger resolves the conventional statutory ledger for a
// component, creating it on first use. Output heads are liabilities,
// input heads are assets claimable as credit.
func (r *txRepository) GetOrCreateTaxLedger(ctx context.Context, dir Direction, c Component) (ledger.Account, error) {
	name := LedgerName(dir, c)
	acc, err := scanAccount(r.tx.QueryRow(ctx,
		`SELECT id, code, name, type, parent_id, is_group, COALESCE(state_code,''), COALESCE(gstin,''), is_deleted, created_at, updated_at
FROM accounts WHERE name=$1 AND NOT is_deleted LIMIT 1`, name))
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return ledger.Account{}, err
	}

	accType := ledger.AccountTypeLiability
	if dir == DirectionInput {
		accType = ledger.AccountTypeAsset
	}
	acc = ledger.Account{
		Code: "GST-" + strings.ToUpper(string(dir)) + "-" + string(c),
		Name: name,
		Type: accType,
	}
	err = r.tx.QueryRow(ctx, `INSERT INTO accounts (code, name, type, is_group)
VALUES ($1,$2,$3,FALSE) RETURNING id, created_at, updated_at`, acc.Code, acc.Name, acc.Type).
		Scan(&acc.ID, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		return ledger.Account{}, err
	}
	return acc, nil
}

func scanAccount(row pgx.Row) (ledger.Account, error) {
	var a ledger.Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.IsGroup, &a.StateCode, &a.GSTIN, &a.IsDeleted, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return ledger.Account{}, err
	}
	return a, nil
}
