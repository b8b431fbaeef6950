package reports

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// BalanceSource abstracts the report aggregate queries.
type BalanceSource interface {
	AccountBalances(ctx context.Context, from, to time.Time) ([]AccountBalance, error)
	StockBalances(ctx context.Context, asOf time.Time) ([]StockSummaryRow, error)
	DayBookRows(ctx context.Context, from, to time.Time) ([]DayBookRow, error)
}

// Service builds reports. Identical concurrent requests for the same
// window collapse into one aggregate query via singleflight.
type Service struct {
	source  BalanceSource
	group   singleflight.Group
	logger  *slog.Logger
	printer *message.Printer
}

// NewService constructs the report service. Amounts are rendered with
// Indian digit grouping.
func NewService(source BalanceSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		source:  source,
		logger:  logger,
		printer: message.NewPrinter(language.MustParse("en-IN")),
	}
}

// FormatAmount renders an amount in the report locale, e.g. "1,23,456.79".
func (s *Service) FormatAmount(v float64) string {
	return s.printer.Sprintf("%.2f", v)
}

// TrialBalance builds the grouped trial balance for a date window.
func (s *Service) TrialBalance(ctx context.Context, from, to time.Time) (TrialBalance, error) {
	key := fmt.Sprintf("tb:%s:%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	result, err, _ := s.group.Do(key, func() (any, error) {
		balances, err := s.source.AccountBalances(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return BuildTrialBalance(balances), nil
	})
	if err != nil {
		return TrialBalance{}, err
	}
	return result.(TrialBalance), nil
}

// ProfitAndLoss builds the income statement for a date window.
func (s *Service) ProfitAndLoss(ctx context.Context, from, to time.Time) (ProfitAndLoss, error) {
	key := fmt.Sprintf("pl:%s:%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	result, err, _ := s.group.Do(key, func() (any, error) {
		balances, err := s.source.AccountBalances(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return BuildProfitAndLoss(balances), nil
	})
	if err != nil {
		return ProfitAndLoss{}, err
	}
	return result.(ProfitAndLoss), nil
}

// BalanceSheet builds the position statement as of a date.
func (s *Service) BalanceSheet(ctx context.Context, asOf time.Time) (BalanceSheet, error) {
	key := "bs:" + asOf.Format("2006-01-02")
	result, err, _ := s.group.Do(key, func() (any, error) {
		balances, err := s.source.AccountBalances(ctx, time.Time{}, asOf)
		if err != nil {
			return nil, err
		}
		return BuildBalanceSheet(balances), nil
	})
	if err != nil {
		return BalanceSheet{}, err
	}
	return result.(BalanceSheet), nil
}

// DayBook builds the chronological journal listing for a window.
func (s *Service) DayBook(ctx context.Context, from, to time.Time) (DayBook, error) {
	key := fmt.Sprintf("db:%s:%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	result, err, _ := s.group.Do(key, func() (any, error) {
		rows, err := s.source.DayBookRows(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return BuildDayBook(rows), nil
	})
	if err != nil {
		return DayBook{}, err
	}
	return result.(DayBook), nil
}

// StockSummary builds the closing stock report as of a date.
func (s *Service) StockSummary(ctx context.Context, asOf time.Time) (StockSummary, error) {
	key := "stock:" + asOf.Format("2006-01-02")
	result, err, _ := s.group.Do(key, func() (any, error) {
		rows, err := s.source.StockBalances(ctx, asOf)
		if err != nil {
			return nil, err
		}
		return BuildStockSummary(rows), nil
	})
	if err != nil {
		return StockSummary{}, err
	}
	return result.(StockSummary), nil
}
