package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/tallyledger/tallyledger/internal/jobs"
	"github.com/tallyledger/tallyledger/internal/ledger"
)

// Tasks bundles the dependencies shared by background task handlers.
type Tasks struct {
	pool    *pgxpool.Pool
	closer  *ledger.Service
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewTasks constructs the task handler set.
func NewTasks(pool *pgxpool.Pool, closer *ledger.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *Tasks {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tasks{pool: pool, closer: closer, logger: logger, metrics: metrics}
}

const ledgerIntegrityQuery = `SELECT je.id, COALESCE(je.reference,''), SUM(jl.debit) AS debit, SUM(jl.credit) AS credit
FROM journal_entries je
JOIN journal_lines jl ON jl.entry_id = je.id
GROUP BY je.id, je.reference
HAVING ABS(SUM(jl.debit) - SUM(jl.credit)) > $1`

const stockIntegrityQuery = `SELECT si.id, si.name, COALESCE(SUM(sle.qty_in - sle.qty_out), 0) AS qty
FROM stock_items si
JOIN stock_ledger_entries sle ON sle.stock_item_id = si.id
GROUP BY si.id, si.name
HAVING COALESCE(SUM(sle.qty_in - sle.qty_out), 0) < 0`

// HandleLedgerIntegrity flags journal entries whose lines do not balance.
// Posting validates balance on the way in, so any hit here means manual
// interference with the journal tables.
func (t *Tasks) HandleLedgerIntegrity(ctx context.Context, task *asynq.Task) error {
	var payload IntegrityPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := t.metrics.Track("ledger_integrity")

	rows, err := t.pool.Query(ctx, ledgerIntegrityQuery, ledger.BalanceTolerance)
	if err != nil {
		return tracker.End(err)
	}
	defer rows.Close()

	var hits int
	for rows.Next() {
		var (
			entryID       int64
			reference     string
			debit, credit float64
		)
		if err := rows.Scan(&entryID, &reference, &debit, &credit); err != nil {
			return tracker.End(err)
		}
		hits++
		t.logger.Error("unbalanced journal entry",
			slog.Int64("entry_id", entryID),
			slog.String("reference", reference),
			slog.Float64("debit", debit),
			slog.Float64("credit", credit))
	}
	if err := rows.Err(); err != nil {
		return tracker.End(err)
	}
	t.metrics.AddViolations("ledger_unbalanced", hits)
	return tracker.End(nil)
}

// HandleStockIntegrity flags items whose closing quantity has gone negative.
func (t *Tasks) HandleStockIntegrity(ctx context.Context, task *asynq.Task) error {
	var payload IntegrityPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := t.metrics.Track("stock_integrity")

	rows, err := t.pool.Query(ctx, stockIntegrityQuery)
	if err != nil {
		return tracker.End(err)
	}
	defer rows.Close()

	var hits int
	for rows.Next() {
		var (
			itemID int64
			name   string
			qty    float64
		)
		if err := rows.Scan(&itemID, &name, &qty); err != nil {
			return tracker.End(err)
		}
		hits++
		t.logger.Warn("negative stock balance",
			slog.Int64("stock_item_id", itemID),
			slog.String("name", name),
			slog.Float64("qty", qty))
	}
	if err := rows.Err(); err != nil {
		return tracker.End(err)
	}
	t.metrics.AddViolations("stock_negative", hits)
	return tracker.End(nil)
}
