package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/tallyledger/tallyledger/internal/ledger"
	"github.com/tallyledger/tallyledger/internal/shared"
)

// HandleYearClose runs the financial-year close batch. An already closed
// year is terminal; a held lock means another worker owns the run and the
// task retries later.
func (t *Tasks) HandleYearClose(ctx context.Context, task *asynq.Task) error {
	var payload YearClosePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := t.metrics.Track("fy_close")

	result, err := t.closer.CloseFinancialYear(ctx, ledger.CloseInput{
		YearID:  payload.YearID,
		ActorID: payload.ActorID,
	})
	switch {
	case err == nil:
	case errors.Is(err, ledger.ErrYearAlreadyClosed):
		t.logger.Info("year already closed, skipping", slog.Int64("year_id", payload.YearID))
		_ = tracker.End(nil)
		return asynq.SkipRetry
	case errors.Is(err, shared.ErrLockHeld):
		return tracker.End(err)
	default:
		return tracker.End(err)
	}

	t.logger.Info("year close batch finished",
		slog.Int64("year_id", payload.YearID),
		slog.Float64("net_profit", result.NetProfit))
	return tracker.End(nil)
}
