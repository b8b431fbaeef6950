package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testYear() FinancialYear {
	return FinancialYear{
		ID:        1,
		Name:      "FY 2024-25",
		StartDate: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestEntryInputValidate(t *testing.T) {
	base := EntryInput{
		Date:            time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		FinancialYearID: 1,
		Lines: []LineInput{
			{AccountID: 1, Debit: 100},
			{AccountID: 2, Credit: 100},
		},
	}
	require.NoError(t, base.Validate())

	tooFew := base
	tooFew.Lines = base.Lines[:1]
	require.ErrorIs(t, tooFew.Validate(), ErrTooFewLines)

	unbalanced := base
	unbalanced.Lines = []LineInput{
		{AccountID: 1, Debit: 100},
		{AccountID: 2, Credit: 99.50},
	}
	require.ErrorIs(t, unbalanced.Validate(), ErrUnbalanced)

	// Drift inside the tolerance passes.
	nearly := base
	nearly.Lines = []LineInput{
		{AccountID: 1, Debit: 100},
		{AccountID: 2, Credit: 99.995},
	}
	require.NoError(t, nearly.Validate())

	bothSides := base
	bothSides.Lines = []LineInput{
		{AccountID: 1, Debit: 100, Credit: 100},
		{AccountID: 2, Credit: 0},
	}
	require.Error(t, bothSides.Validate())

	negative := base
	negative.Lines = []LineInput{
		{AccountID: 1, Debit: -100},
		{AccountID: 2, Credit: -100},
	}
	require.Error(t, negative.Validate())
}

func TestFinancialYearShort(t *testing.T) {
	require.Equal(t, "24-25", testYear().Short())
}

func TestFinancialYearCovers(t *testing.T) {
	fy := testYear()
	require.True(t, fy.Covers(fy.StartDate))
	require.True(t, fy.Covers(fy.EndDate))
	require.False(t, fy.Covers(fy.EndDate.AddDate(0, 0, 1)))
}

func TestEnsurePostable(t *testing.T) {
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	org := Organization{}

	require.NoError(t, EnsurePostable(testYear(), org, date))

	closed := testYear()
	closed.IsClosed = true
	require.ErrorIs(t, EnsurePostable(closed, org, date), ErrYearClosed)

	locked := testYear()
	locked.IsLocked = true
	require.ErrorIs(t, EnsurePostable(locked, org, date), ErrYearLocked)

	cutoff := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	partial := testYear()
	partial.LockedUpto = &cutoff
	require.ErrorIs(t, EnsurePostable(partial, org, date), ErrYearLocked)
	require.NoError(t, EnsurePostable(partial, org, cutoff.AddDate(0, 0, 1)))

	booksFrom := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	withBooks := Organization{BooksBeginningFrom: &booksFrom}
	require.ErrorIs(t, EnsurePostable(testYear(), withBooks, date), ErrBeforeBooksBegin)
	require.NoError(t, EnsurePostable(testYear(), withBooks, booksFrom))
}

func TestAccountPostable(t *testing.T) {
	require.True(t, Account{}.Postable())
	require.False(t, Account{IsGroup: true}.Postable())
	require.False(t, Account{IsDeleted: true}.Postable())
}
