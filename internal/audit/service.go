// Package audit provides append-only audit logs and voucher snapshots.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry represents one audit_logs record. Before and After hold full
// serialized states so edits leave a reviewable trail.
type Entry struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Before   any
	After    any
	At       time.Time
}

// Logger writes audit records outside of any caller transaction, used
// for post-commit notifications such as year closing.
type Logger struct {
	pool *pgxpool.Pool
}

// NewLogger returns a Logger.
func NewLogger(pool *pgxpool.Pool) *Logger {
	return &Logger{pool: pool}
}

// Record persists the log entry.
func (l *Logger) Record(ctx context.Context, entry Entry) error {
	if l == nil || l.pool == nil {
		return errors.New("audit logger not initialised")
	}
	query, args, err := insertArgs(entry)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, query, args...)
	return err
}

// TxRepository exposes audit writes bound to one transaction so the
// trail commits or rolls back together with the business writes.
type TxRepository interface {
	Record(ctx context.Context, entry Entry) error
	SnapshotVoucher(ctx context.Context, voucherID int64, snapshot any) (int, error)
}

// Repository binds audit writes to caller-managed transactions.
type Repository struct{}

// NewRepository constructs Repository.
func NewRepository() *Repository {
	return &Repository{}
}

// Bind wraps an externally managed transaction.
func (r *Repository) Bind(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) Record(ctx context.Context, entry Entry) error {
	query, args, err := insertArgs(entry)
	if err != nil {
		return err
	}
	_, err = r.tx.Exec(ctx, query, args...)
	return err
}

// SnapshotVoucher stores the full pre-edit voucher state under the next
// monotonically increasing version number for that voucher.
func (r *txRepository) SnapshotVoucher(ctx context.Context, voucherID int64, snapshot any) (int, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return 0, fmt.Errorf("audit: marshal snapshot: %w", err)
	}
	var version int
	err = r.tx.QueryRow(ctx, `INSERT INTO voucher_versions (voucher_id, version_number, snapshot)
SELECT $1, COALESCE(MAX(version_number), 0) + 1, $2 FROM voucher_versions WHERE voucher_id=$1
RETURNING version_number`, voucherID, payload).Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func insertArgs(entry Entry) (string, []any, error) {
	if entry.Action == "" || entry.Entity == "" || entry.EntityID == "" {
		return "", nil, errors.New("audit log requires action/entity/entity_id")
	}
	before, err := json.Marshal(entry.Before)
	if err != nil {
		return "", nil, err
	}
	after, err := json.Marshal(entry.After)
	if err != nil {
		return "", nil, err
	}
	query := `INSERT INTO audit_logs (actor_id, action, entity, entity_id, before_state, after_state, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE(NULLIF($7, '0001-01-01T00:00:00Z'::timestamptz), NOW()))`
	return query, []any{entry.ActorID, entry.Action, entry.Entity, entry.EntityID, before, after, entry.At}, nil
}
