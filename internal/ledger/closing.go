package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/tallyledger/tallyledger/internal/audit"
	"github.com/tallyledger/tallyledger/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// Locker serializes the year-close batch across processes.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// Recorder counts completed closes. The observability metrics satisfy
// it; nil disables counting.
type Recorder interface {
	YearClosed()
}

// Service owns financial-year lifecycle operations.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	locker  Locker
	logger  *slog.Logger
	metrics Recorder
	now     func() time.Time
}

// NewService constructs the ledger service.
func NewService(repo RepositoryPort, auditor AuditPort, locker Locker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: auditor, locker: locker, logger: logger, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithMetrics attaches close counters.
func (s *Service) WithMetrics(metrics Recorder) {
	s.metrics = metrics
}

// CloseInput identifies the year to close and the requesting actor.
type CloseInput struct {
	YearID  int64
	ActorID int64
}

// CloseResult reports the outcome of a year-end close.
type CloseResult struct {
	Entry     JournalEntry
	NetProfit float64
}

// CloseFinancialYear zeroes income and expense balances into retained
// earnings and marks the year closed. The whole run holds an advisory
// lock on the year so concurrent closes and postings into the year
// serialize behind it.
func (s *Service) CloseFinancialYear(ctx context.Context, in CloseInput) (CloseResult, error) {
	if in.YearID == 0 {
		return CloseResult{}, errors.New("ledger: year id required")
	}
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, shared.FinancialYearLockKey(in.YearID))
		if err != nil {
			return CloseResult{}, err
		}
		defer release()
	}

	var result CloseResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		fy, err := tx.GetYearForUpdate(ctx, in.YearID)
		if err != nil {
			return err
		}
		if fy.IsClosed {
			return ErrYearAlreadyClosed
		}

		// The close aborts before any write when no equity target exists.
		equity, err := tx.FirstEquityAccount(ctx)
		if err != nil {
			return err
		}

		incomes, err := tx.AccountBalances(ctx, fy.ID, AccountTypeIncome)
		if err != nil {
			return err
		}
		expenses, err := tx.AccountBalances(ctx, fy.ID, AccountTypeExpense)
		if err != nil {
			return err
		}

		lines, netProfit := buildClosingLines(incomes, expenses, equity.ID, fy.Name)
		result.NetProfit = netProfit

		if len(lines) > 0 {
			input := EntryInput{
				Date:            fy.EndDate,
				VoucherType:     "Journal",
				Reference:       fmt.Sprintf("CLOSE/%s", fy.Short()),
				Narration:       fmt.Sprintf("Year End Closing Entry - %s", fy.Name),
				FinancialYearID: fy.ID,
				IsSystemEntry:   true,
				IsLocked:        true,
				Lines:           lines,
			}
			if err := input.Validate(); err != nil {
				return err
			}
			entry, err := tx.InsertJournalEntry(ctx, input)
			if err != nil {
				return err
			}
			result.Entry = entry
		}

		return tx.MarkYearClosed(ctx, fy.ID)
	})
	if err != nil {
		return CloseResult{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, audit.Entry{
			ActorID:  in.ActorID,
			Action:   "fy.close",
			Entity:   "financial_year",
			EntityID: fmt.Sprintf("%d", in.YearID),
			After:    map[string]any{"net_profit": result.NetProfit, "entry_id": result.Entry.ID},
			At:       s.now(),
		})
	}
	if s.metrics != nil {
		s.metrics.YearClosed()
	}
	s.logger.Info("financial year closed",
		slog.Int64("year_id", in.YearID),
		slog.Float64("net_profit", result.NetProfit))
	return result, nil
}

// buildClosingLines emits one zeroing line per non-zero income or
// expense account plus a single balancing transfer to equity. Credit to
// equity means profit, debit means loss.
func buildClosingLines(incomes, expenses []AccountBalance, equityID int64, yearName string) ([]LineInput, float64) {
	var lines []LineInput
	var totalDebit, totalCredit float64

	appendZeroing := func(accountID int64, debit, credit float64) {
		lines = append(lines, LineInput{
			AccountID:   accountID,
			Debit:       debit,
			Credit:      credit,
			Description: "Closing Transfer",
		})
		totalDebit += debit
		totalCredit += credit
	}

	for _, bal := range incomes {
		// Income carries a credit balance; a negative one flips sides.
		if bal.Balance >= 0 {
			appendZeroing(bal.AccountID, bal.Balance, 0)
		} else {
			appendZeroing(bal.AccountID, 0, -bal.Balance)
		}
	}
	for _, bal := range expenses {
		if bal.Balance >= 0 {
			appendZeroing(bal.AccountID, 0, bal.Balance)
		} else {
			appendZeroing(bal.AccountID, -bal.Balance, 0)
		}
	}

	diff := totalDebit - totalCredit
	if math.Abs(diff) >= 0.005 {
		line := LineInput{AccountID: equityID}
		if diff > 0 {
			line.Credit = diff
			line.Description = fmt.Sprintf("Net Profit Transfer FY %s", yearName)
		} else {
			line.Debit = -diff
			line.Description = fmt.Sprintf("Net Loss Transfer FY %s", yearName)
		}
		lines = append(lines, line)
	}
	return lines, diff
}
