package vouchers

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tallyledger/tallyledger/internal/audit"
	"github.com/tallyledger/tallyledger/internal/gst"
	"github.com/tallyledger/tallyledger/internal/inventory"
	"github.com/tallyledger/tallyledger/internal/ledger"
	"github.com/tallyledger/tallyledger/internal/rules"
)

// fakeStore keeps the whole posting surface in memory so the
// orchestrator runs end to end without a database.
type fakeStore struct {
	org      ledger.Organization
	years    []ledger.FinancialYear
	types    map[int64]VoucherType
	accounts map[int64]ledger.Account
	items    map[int64]inventory.StockItem

	vouchers  map[int64]VoucherEntry
	journals  map[int64]ledger.JournalEntry
	stockRows []inventory.StockLedgerEntry
	snapshots map[int64][]any
	audits    []audit.Entry

	nextID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		types:     map[int64]VoucherType{},
		accounts:  map[int64]ledger.Account{},
		items:     map[int64]inventory.StockItem{},
		vouchers:  map[int64]VoucherEntry{},
		journals:  map[int64]ledger.JournalEntry{},
		snapshots: map[int64][]any{},
		nextID:    100,
	}
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return fn(ctx, f)
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) Organization(context.Context) (ledger.Organization, error) {
	return f.org, nil
}

func (f *fakeStore) FindYearForDate(_ context.Context, date time.Time) (ledger.FinancialYear, error) {
	for _, fy := range f.years {
		if fy.Covers(date) {
			return fy, nil
		}
	}
	return ledger.FinancialYear{}, ledger.ErrNoFinancialYear
}

func (f *fakeStore) GetVoucherType(_ context.Context, id int64) (VoucherType, error) {
	vt, ok := f.types[id]
	if !ok {
		return VoucherType{}, ErrVoucherTypeNotFound
	}
	return vt, nil
}

func (f *fakeStore) NextSequence(_ context.Context, voucherTypeID int64) (int64, error) {
	vt, ok := f.types[voucherTypeID]
	if !ok {
		return 0, ErrVoucherTypeNotFound
	}
	seq := vt.CurrentSequence
	vt.CurrentSequence++
	f.types[voucherTypeID] = vt
	return seq, nil
}

func (f *fakeStore) GetAccount(_ context.Context, id int64) (ledger.Account, error) {
	acc, ok := f.accounts[id]
	if !ok {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	return acc, nil
}

func (f *fakeStore) GetStockItem(_ context.Context, id int64) (inventory.StockItem, error) {
	item, ok := f.items[id]
	if !ok {
		return inventory.StockItem{}, inventory.ErrItemNotFound
	}
	return item, nil
}

func (f *fakeStore) TaxLedger(_ context.Context, dir gst.Direction, c gst.Component) (ledger.Account, error) {
	name := gst.LedgerName(dir, c)
	for _, acc := range f.accounts {
		if acc.Name == name {
			return acc, nil
		}
	}
	accType := ledger.AccountTypeLiability
	if dir == gst.DirectionInput {
		accType = ledger.AccountTypeAsset
	}
	acc := ledger.Account{ID: f.id(), Name: name, Type: accType}
	f.accounts[acc.ID] = acc
	return acc, nil
}

func (f *fakeStore) InsertVoucher(_ context.Context, v VoucherEntry) (VoucherEntry, error) {
	for _, existing := range f.vouchers {
		if existing.Number == v.Number {
			return VoucherEntry{}, ErrDuplicateVoucherNumber
		}
	}
	v.ID = f.id()
	for i := range v.Items {
		v.Items[i].ID = f.id()
		v.Items[i].VoucherID = v.ID
	}
	for i := range v.Charges {
		v.Charges[i].ID = f.id()
		v.Charges[i].VoucherID = v.ID
	}
	f.vouchers[v.ID] = v
	return v, nil
}

func (f *fakeStore) GetVoucher(_ context.Context, id int64) (VoucherEntry, error) {
	v, ok := f.vouchers[id]
	if !ok {
		return VoucherEntry{}, ErrVoucherNotFound
	}
	return v, nil
}

func (f *fakeStore) ListVouchers(_ context.Context, limit, offset int) ([]VoucherEntry, int, error) {
	ids := make([]int64, 0, len(f.vouchers))
	for id := range f.vouchers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	var page []VoucherEntry
	for i, id := range ids {
		if i < offset {
			continue
		}
		if len(page) == limit {
			break
		}
		page = append(page, f.vouchers[id])
	}
	return page, len(ids), nil
}

func (f *fakeStore) ReplaceVoucherBody(_ context.Context, v VoucherEntry) error {
	existing, ok := f.vouchers[v.ID]
	if !ok {
		return ErrVoucherNotFound
	}
	v.Number = existing.Number
	v.JournalEntryID = existing.JournalEntryID
	f.vouchers[v.ID] = v
	return nil
}

func (f *fakeStore) RepointJournal(_ context.Context, voucherID, journalEntryID int64) error {
	v, ok := f.vouchers[voucherID]
	if !ok {
		return ErrVoucherNotFound
	}
	v.JournalEntryID = journalEntryID
	f.vouchers[voucherID] = v
	return nil
}

func (f *fakeStore) InsertJournalEntry(_ context.Context, in ledger.EntryInput) (ledger.JournalEntry, error) {
	entry := ledger.JournalEntry{
		ID:              f.id(),
		Date:            in.Date,
		VoucherType:     in.VoucherType,
		Reference:       in.Reference,
		Narration:       in.Narration,
		FinancialYearID: in.FinancialYearID,
		IsOpening:       in.IsOpening,
		IsSystemEntry:   in.IsSystemEntry,
		IsLocked:        in.IsLocked,
	}
	for _, line := range in.Lines {
		entry.Lines = append(entry.Lines, ledger.JournalLine{
			ID:          f.id(),
			EntryID:     entry.ID,
			AccountID:   line.AccountID,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		})
	}
	f.journals[entry.ID] = entry
	return entry, nil
}

func (f *fakeStore) GetJournalWithLines(_ context.Context, id int64) (ledger.JournalEntry, error) {
	entry, ok := f.journals[id]
	if !ok {
		return ledger.JournalEntry{}, ledger.ErrEntryNotFound
	}
	return entry, nil
}

func (f *fakeStore) ListEntriesByReference(_ context.Context, reference string) ([]ledger.JournalEntry, error) {
	var entries []ledger.JournalEntry
	for _, entry := range f.journals {
		if entry.Reference == reference {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// The fake doubles as inventory.TxRepository so RegenerateStock can run
// the real rebuild logic against in-memory rows.

func (f *fakeStore) EntriesForItem(_ context.Context, itemID int64) ([]inventory.StockLedgerEntry, error) {
	var entries []inventory.StockLedgerEntry
	for _, e := range f.stockRows {
		if e.StockItemID == itemID {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Date.Equal(entries[j].Date) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].Date.Before(entries[j].Date)
	})
	return entries, nil
}

func (f *fakeStore) DeleteEntriesForVoucher(_ context.Context, voucherID int64) error {
	kept := f.stockRows[:0]
	for _, e := range f.stockRows {
		if e.VoucherID != voucherID {
			kept = append(kept, e)
		}
	}
	f.stockRows = kept
	return nil
}

func (f *fakeStore) InsertEntry(_ context.Context, entry inventory.StockLedgerEntry) (inventory.StockLedgerEntry, error) {
	entry.ID = f.id()
	f.stockRows = append(f.stockRows, entry)
	return entry, nil
}

func (f *fakeStore) ClosingBalance(_ context.Context, itemID int64) (inventory.Balance, error) {
	bal := inventory.Balance{StockItemID: itemID}
	for _, e := range f.stockRows {
		if e.StockItemID == itemID {
			bal.Qty += e.QtyIn - e.QtyOut
			bal.Value += e.Value - e.CostValue
		}
	}
	return bal, nil
}

func (f *fakeStore) RegenerateStock(ctx context.Context, voucherID int64, movements []inventory.Movement) ([]inventory.StockLedgerEntry, error) {
	return inventory.Regenerate(ctx, f, voucherID, movements)
}

func (f *fakeStore) SnapshotVoucher(_ context.Context, voucherID int64, snapshot any) (int, error) {
	f.snapshots[voucherID] = append(f.snapshots[voucherID], snapshot)
	return len(f.snapshots[voucherID]), nil
}

func (f *fakeStore) RecordAudit(_ context.Context, entry audit.Entry) error {
	f.audits = append(f.audits, entry)
	return nil
}

const (
	partyID     int64 = 1
	salesAccID  int64 = 2
	invAccID    int64 = 3
	cogsAccID   int64 = 4
	purchAccID  int64 = 5
	stockItemID int64 = 10
	salesTypeID int64 = 20
	purchTypeID int64 = 21
	manualType  int64 = 22
)

func seedStore(partyState string) *fakeStore {
	f := newFakeStore()
	f.org = ledger.Organization{ID: 1, Name: "Acme Traders", StateCode: "27"}
	f.years = []ledger.FinancialYear{{
		ID:        1,
		Name:      "FY 2025-26",
		StartDate: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}}
	f.accounts[partyID] = ledger.Account{ID: partyID, Name: "Sharma & Sons", Type: ledger.AccountTypeAsset, StateCode: partyState}
	f.accounts[salesAccID] = ledger.Account{ID: salesAccID, Name: "Sales", Type: ledger.AccountTypeIncome}
	f.accounts[invAccID] = ledger.Account{ID: invAccID, Name: "Inventory", Type: ledger.AccountTypeAsset}
	f.accounts[cogsAccID] = ledger.Account{ID: cogsAccID, Name: "COGS", Type: ledger.AccountTypeExpense}
	f.accounts[purchAccID] = ledger.Account{ID: purchAccID, Name: "Purchases", Type: ledger.AccountTypeExpense}

	inv, cogs, sales, purch := invAccID, cogsAccID, salesAccID, purchAccID
	f.items[stockItemID] = inventory.StockItem{
		ID:                 stockItemID,
		Name:               "Widget",
		ValuationMethod:    inventory.ValuationWeightedAverage,
		GSTRate:            18,
		InventoryAccountID: &inv,
		COGSAccountID:      &cogs,
		SalesAccountID:     &sales,
		PurchaseAccountID:  &purch,
	}
	// Opening stock 10 @ 100.
	f.stockRows = append(f.stockRows, inventory.StockLedgerEntry{
		ID:          1,
		Date:        time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		StockItemID: stockItemID,
		QtyIn:       10,
		Rate:        100,
		Value:       1000,
		IsOpening:   true,
	})

	f.types[salesTypeID] = VoucherType{ID: salesTypeID, Name: "Sales", TypeGroup: GroupSales, Sequencing: SequencingAutomatic, Prefix: "SAL", CurrentSequence: 1}
	f.types[purchTypeID] = VoucherType{ID: purchTypeID, Name: "Purchase", TypeGroup: GroupPurchase, Sequencing: SequencingAutomatic, Prefix: "PUR", CurrentSequence: 1}
	f.types[manualType] = VoucherType{ID: manualType, Name: "Journal", TypeGroup: GroupJournal, Sequencing: SequencingManual}
	return f
}

func newTestService(f *fakeStore) *Service {
	svc := NewService(f, nil, slog.Default())
	svc.WithNow(func() time.Time { return time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC) })
	return svc
}

func salesInput() CreateInput {
	party := partyID
	item := stockItemID
	return CreateInput{
		VoucherTypeID: salesTypeID,
		Date:          time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		PartyLedgerID: &party,
		Narration:     "Sold widgets",
		ActorID:       7,
		Items: []LineItemInput{{
			LedgerID:    salesAccID,
			StockItemID: &item,
			Qty:         5,
			Rate:        300,
		}},
	}
}

func entryBalance(entry ledger.JournalEntry) (debit, credit float64) {
	for _, line := range entry.Lines {
		debit += line.Debit
		credit += line.Credit
	}
	return debit, credit
}

func TestCreateSalesVoucher(t *testing.T) {
	f := seedStore("27")
	svc := newTestService(f)

	v, err := svc.Create(context.Background(), salesInput())
	require.NoError(t, err)

	require.Equal(t, "SAL/25-26/0001", v.Number)
	require.InDelta(t, 1500.0, v.NetTotal, 0.001)
	require.InDelta(t, 270.0, v.TaxTotal, 0.001)
	require.InDelta(t, 1770.0, v.GrandTotal, 0.001)
	require.Len(t, v.Charges, 2)
	require.Equal(t, "CGST", v.Charges[0].Name)
	require.InDelta(t, 135.0, v.Charges[0].Amount, 0.001)

	entry, err := f.GetJournalWithLines(context.Background(), v.JournalEntryID)
	require.NoError(t, err)
	debit, credit := entryBalance(entry)
	require.Less(t, math.Abs(debit-credit), 0.01)
	// Party 1770 + COGS 500 on the debit side.
	require.InDelta(t, 2270.0, debit, 0.001)

	bal, err := f.ClosingBalance(context.Background(), stockItemID)
	require.NoError(t, err)
	require.InDelta(t, 5.0, bal.Qty, 0.001)
	require.InDelta(t, 500.0, bal.Value, 0.001)
}

func TestCreateInterStateUsesIGST(t *testing.T) {
	f := seedStore("29")
	svc := newTestService(f)

	v, err := svc.Create(context.Background(), salesInput())
	require.NoError(t, err)

	require.Len(t, v.Charges, 1)
	require.Equal(t, "IGST", v.Charges[0].Name)
	require.InDelta(t, 270.0, v.Charges[0].Amount, 0.001)
	require.InDelta(t, 1770.0, v.GrandTotal, 0.001)
}

func TestPurchaseCapitalizesInventory(t *testing.T) {
	f := seedStore("27")
	svc := newTestService(f)

	party := partyID
	item := stockItemID
	v, err := svc.Create(context.Background(), CreateInput{
		VoucherTypeID: purchTypeID,
		Date:          time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC),
		PartyLedgerID: &party,
		ActorID:       7,
		Items: []LineItemInput{{
			LedgerID:    purchAccID,
			StockItemID: &item,
			Qty:         10,
			Rate:        200,
		}},
	})
	require.NoError(t, err)

	entry, err := f.GetJournalWithLines(context.Background(), v.JournalEntryID)
	require.NoError(t, err)
	debit, credit := entryBalance(entry)
	require.Less(t, math.Abs(debit-credit), 0.01)

	// The line debits the inventory asset, not the expense ledger.
	var invDebit float64
	for _, line := range entry.Lines {
		if line.AccountID == invAccID {
			invDebit += line.Debit
		}
	}
	require.InDelta(t, 2000.0, invDebit, 0.001)

	bal, err := f.ClosingBalance(context.Background(), stockItemID)
	require.NoError(t, err)
	require.InDelta(t, 20.0, bal.Qty, 0.001)
	require.InDelta(t, 3000.0, bal.Value, 0.001)
}

func TestAmendLeavesReversalTrail(t *testing.T) {
	f := seedStore("27")
	svc := newTestService(f)

	v, err := svc.Create(context.Background(), salesInput())
	require.NoError(t, err)

	balBefore, err := f.ClosingBalance(context.Background(), stockItemID)
	require.NoError(t, err)

	amended, err := svc.Amend(context.Background(), v.ID, salesInput())
	require.NoError(t, err)
	require.Equal(t, v.Number, amended.Number)
	require.NotEqual(t, v.JournalEntryID, amended.JournalEntryID)

	entries, err := f.ListEntriesByReference(context.Background(), v.Number)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.True(t, entries[1].IsSystemEntry)

	// Reversal mirrors the original's sides.
	origDebit, origCredit := entryBalance(entries[0])
	revDebit, revCredit := entryBalance(entries[1])
	require.InDelta(t, origDebit, revCredit, 0.001)
	require.InDelta(t, origCredit, revDebit, 0.001)

	require.Len(t, f.snapshots[v.ID], 1)

	// Reposting an unchanged payload leaves closing stock untouched.
	balAfter, err := f.ClosingBalance(context.Background(), stockItemID)
	require.NoError(t, err)
	require.InDelta(t, balBefore.Qty, balAfter.Qty, 0.001)
	require.InDelta(t, balBefore.Value, balAfter.Value, 0.001)
}

func TestCreateClosedYearRejected(t *testing.T) {
	f := seedStore("27")
	f.years[0].IsClosed = true
	svc := newTestService(f)

	_, err := svc.Create(context.Background(), salesInput())
	require.ErrorIs(t, err, ledger.ErrYearClosed)
}

func TestCreateWithoutCoveringYear(t *testing.T) {
	f := seedStore("27")
	svc := newTestService(f)

	in := salesInput()
	in.Date = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), in)
	require.ErrorIs(t, err, ledger.ErrNoFinancialYear)
}

func TestManualNumberRequiredAndUnique(t *testing.T) {
	f := seedStore("27")
	svc := newTestService(f)

	in := CreateInput{
		VoucherTypeID: manualType,
		Date:          time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		ActorID:       7,
		RawLines: []ledger.LineInput{
			{AccountID: purchAccID, Debit: 100},
			{AccountID: partyID, Credit: 100},
		},
	}
	_, err := svc.Create(context.Background(), in)
	require.ErrorIs(t, err, ErrNumberRequired)

	in.Number = "JRN-001"
	_, err = svc.Create(context.Background(), in)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), in)
	require.ErrorIs(t, err, ErrDuplicateVoucherNumber)
}

func TestMixedInputRejected(t *testing.T) {
	f := seedStore("27")
	svc := newTestService(f)

	in := salesInput()
	in.RawLines = []ledger.LineInput{{AccountID: partyID, Debit: 10}}
	_, err := svc.Create(context.Background(), in)
	require.ErrorIs(t, err, ErrMixedInput)

	in = salesInput()
	in.Items = nil
	_, err = svc.Create(context.Background(), in)
	require.ErrorIs(t, err, ErrMixedInput)
}

func TestRoutingMissingAbortsVoucher(t *testing.T) {
	f := seedStore("27")
	svc := newTestService(f)

	in := salesInput()
	in.Items[0].LedgerID = 0
	_, err := svc.Create(context.Background(), in)
	require.ErrorIs(t, err, ErrRoutingMissing)
}

func TestPartyRequiredForTrading(t *testing.T) {
	f := seedStore("27")
	svc := newTestService(f)

	in := salesInput()
	in.PartyLedgerID = nil
	_, err := svc.Create(context.Background(), in)
	require.ErrorIs(t, err, ErrPartyRequired)
}

func TestRuleBlockAbortsBeforeWrite(t *testing.T) {
	f := seedStore("27")
	blocker := rules.Func(func(context.Context, rules.Event, rules.Subject) ([]rules.Result, error) {
		return []rules.Result{{RuleName: "max-value", Action: rules.ActionBlock, Message: "over limit"}}, nil
	})
	svc := NewService(f, blocker, slog.Default())

	_, err := svc.Create(context.Background(), salesInput())
	require.ErrorIs(t, err, ErrValidationBlocked)
	require.Empty(t, f.vouchers)
	require.Empty(t, f.journals)
}

func TestFIFOCostingOnSale(t *testing.T) {
	f := seedStore("27")
	item := f.items[stockItemID]
	item.ValuationMethod = inventory.ValuationFIFO
	f.items[stockItemID] = item
	// Second batch 10 @ 200 behind the opening 10 @ 100.
	f.stockRows = append(f.stockRows, inventory.StockLedgerEntry{
		ID:          2,
		Date:        time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		StockItemID: stockItemID,
		QtyIn:       10,
		Rate:        200,
		Value:       2000,
	})
	svc := newTestService(f)

	v, err := svc.Create(context.Background(), salesInput())
	require.NoError(t, err)

	entry, err := f.GetJournalWithLines(context.Background(), v.JournalEntryID)
	require.NoError(t, err)
	var cogs float64
	for _, line := range entry.Lines {
		if line.AccountID == cogsAccID {
			cogs += line.Debit
		}
	}
	// 5 of the oldest batch at 100.
	require.InDelta(t, 500.0, cogs, 0.001)
}

func TestListVouchersPaginates(t *testing.T) {
	f := seedStore("27")
	svc := newTestService(f)

	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), salesInput())
		require.NoError(t, err)
	}

	page, meta, err := svc.List(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, 3, meta.Total)
	require.Equal(t, 2, meta.TotalPages)
	// Newest first.
	require.Equal(t, "SAL/25-26/0003", page[0].Number)

	page, meta, err = svc.List(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, 2, meta.Page)
}

func TestCreateGroupPartyRejected(t *testing.T) {
	f := seedStore("27")
	f.accounts[partyID] = ledger.Account{ID: partyID, Name: "Sundry Debtors", Type: ledger.AccountTypeAsset, StateCode: "27", IsGroup: true}
	svc := newTestService(f)

	_, err := svc.Create(context.Background(), salesInput())
	require.ErrorIs(t, err, ledger.ErrNotPostable)
	require.Empty(t, f.vouchers)
	require.Empty(t, f.journals)
}
