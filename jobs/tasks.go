package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskYearClose runs a financial-year close in the background.
	TaskYearClose = "fy:close"
	// TaskLedgerIntegrity scans journal entries for unbalanced totals.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskStockIntegrity scans stock items for negative closing balances.
	TaskStockIntegrity = "stock:integrity"
)

// YearClosePayload identifies the year to close and who asked for it.
type YearClosePayload struct {
	YearID  int64 `json:"year_id"`
	ActorID int64 `json:"actor_id"`
}

// NewYearCloseTask constructs an Asynq task for a year-end close.
func NewYearCloseTask(payload YearClosePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskYearClose, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// IntegrityPayload carries scheduling metadata for integrity scans.
type IntegrityPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLedgerIntegrityTask constructs the nightly ledger balance scan.
func NewLedgerIntegrityTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(IntegrityPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, body, asynq.Queue(QueueDefault)), nil
}

// NewStockIntegrityTask constructs the nightly negative-stock scan.
func NewStockIntegrityTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(IntegrityPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockIntegrity, body, asynq.Queue(QueueDefault)), nil
}
