package ledger

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// AccountType enumerates chart-of-accounts categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// BalanceTolerance is the maximum accepted debit/credit drift per entry.
const BalanceTolerance = 0.01

// Account models a chart-of-accounts node. Groups aggregate descendants
// and never receive postings; only non-group leaves are postable.
type Account struct {
	ID        int64
	Code      string
	Name      string
	Type      AccountType
	ParentID  *int64
	IsGroup   bool
	StateCode string
	GSTIN     string
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Postable reports whether the account may receive journal lines.
func (a Account) Postable() bool {
	return !a.IsGroup && !a.IsDeleted
}

// FinancialYear is the fiscal window governing posting dates.
type FinancialYear struct {
	ID         int64
	Name       string
	StartDate  time.Time
	EndDate    time.Time
	IsClosed   bool
	IsLocked   bool
	LockedUpto *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Covers reports whether date falls inside the year, inclusive.
func (fy FinancialYear) Covers(date time.Time) bool {
	return !date.Before(fy.StartDate) && !date.After(fy.EndDate)
}

// Short returns the compact year label used in voucher numbers, e.g. "24-25".
func (fy FinancialYear) Short() string {
	return fmt.Sprintf("%02d-%02d", fy.StartDate.Year()%100, fy.EndDate.Year()%100)
}

// Organization holds the single-company settings the engine reads.
type Organization struct {
	ID                 int64
	Name               string
	StateCode          string
	GSTIN              string
	BooksBeginningFrom *time.Time
}

// JournalEntry is the canonical double-entry record.
type JournalEntry struct {
	ID              int64
	Date            time.Time
	VoucherType     string
	Reference       string
	Narration       string
	FinancialYearID int64
	IsOpening       bool
	IsSystemEntry   bool
	IsLocked        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Lines           []JournalLine
}

// JournalLine stores one debit or credit against an account.
type JournalLine struct {
	ID          int64
	EntryID     int64
	AccountID   int64
	Debit       float64
	Credit      float64
	Description string
}

// LineInput describes a journal line for posting.
type LineInput struct {
	AccountID   int64
	Debit       float64
	Credit      float64
	Description string
}

// EntryInput groups the fields required to persist a journal entry.
type EntryInput struct {
	Date            time.Time
	VoucherType     string
	Reference       string
	Narration       string
	FinancialYearID int64
	IsOpening       bool
	IsSystemEntry   bool
	IsLocked        bool
	Lines           []LineInput
}

var (
	// ErrNoFinancialYear indicates no year covers the posting date.
	ErrNoFinancialYear = errors.New("ledger: no financial year covers date")
	// ErrYearClosed indicates the covering year has been closed.
	ErrYearClosed = errors.New("ledger: financial year is closed")
	// ErrYearLocked indicates the year, or the specific date, is locked.
	ErrYearLocked = errors.New("ledger: financial year is locked")
	// ErrBeforeBooksBegin indicates the date precedes books-beginning.
	ErrBeforeBooksBegin = errors.New("ledger: date precedes books beginning")
	// ErrUnbalanced indicates debits do not equal credits.
	ErrUnbalanced = errors.New("ledger: journal lines must balance")
	// ErrTooFewLines indicates fewer than two lines.
	ErrTooFewLines = errors.New("ledger: journal requires at least two lines")
	// ErrEntryNotFound indicates a missing journal entry.
	ErrEntryNotFound = errors.New("ledger: journal entry not found")
	// ErrAccountNotFound indicates a missing account.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrNotPostable indicates a group or deleted account on a line.
	ErrNotPostable = errors.New("ledger: account is not postable")
	// ErrYearNotFound indicates a missing financial year.
	ErrYearNotFound = errors.New("ledger: financial year not found")
	// ErrYearAlreadyClosed guards closing idempotency.
	ErrYearAlreadyClosed = errors.New("ledger: financial year already closed")
	// ErrNoEquityAccount aborts closing when no equity target exists.
	ErrNoEquityAccount = errors.New("ledger: no equity account for closing transfer")
)

// Validate checks structural and balance invariants of the entry.
func (in EntryInput) Validate() error {
	if len(in.Lines) < 2 {
		return ErrTooFewLines
	}
	var debit, credit float64
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("ledger: line %d missing account", idx)
		}
		if line.Debit < 0 || line.Credit < 0 {
			return fmt.Errorf("ledger: line %d negative amount", idx)
		}
		if line.Debit > 0 && line.Credit > 0 {
			return fmt.Errorf("ledger: line %d cannot be both debit and credit", idx)
		}
		debit += line.Debit
		credit += line.Credit
	}
	if math.Abs(debit-credit) >= BalanceTolerance {
		return fmt.Errorf("%w: debit=%.2f credit=%.2f", ErrUnbalanced, debit, credit)
	}
	return nil
}

// EnsurePostable validates that the date may receive postings in fy.
// The checks mirror period rules: closed year, locked year, a
// locked-upto cutoff inside the year, and the books-beginning floor.
func EnsurePostable(fy FinancialYear, org Organization, date time.Time) error {
	if fy.IsClosed {
		return fmt.Errorf("%w: %s", ErrYearClosed, fy.Name)
	}
	if fy.IsLocked {
		return fmt.Errorf("%w: %s", ErrYearLocked, fy.Name)
	}
	if fy.LockedUpto != nil && !date.After(*fy.LockedUpto) {
		return fmt.Errorf("%w: period locked upto %s", ErrYearLocked, fy.LockedUpto.Format("2006-01-02"))
	}
	if org.BooksBeginningFrom != nil && date.Before(*org.BooksBeginningFrom) {
		return fmt.Errorf("%w: books begin %s", ErrBeforeBooksBegin, org.BooksBeginningFrom.Format("2006-01-02"))
	}
	return nil
}
