package vouchers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tallyledger/tallyledger/internal/audit"
	"github.com/tallyledger/tallyledger/internal/gst"
	"github.com/tallyledger/tallyledger/internal/inventory"
	"github.com/tallyledger/tallyledger/internal/ledger"
	"github.com/tallyledger/tallyledger/internal/rules"
	"github.com/tallyledger/tallyledger/internal/shared"
)

// TxStore is the transactional surface the orchestrator drives. One
// implementation composes the ledger, inventory, gst and audit
// repositories over a single database transaction; tests swap in an
// in-memory fake.
type TxStore interface {
	Organization(ctx context.Context) (ledger.Organization, error)
	FindYearForDate(ctx context.Context, date time.Time) (ledger.FinancialYear, error)
	GetVoucherType(ctx context.Context, id int64) (VoucherType, error)
	NextSequence(ctx context.Context, voucherTypeID int64) (int64, error)
	GetAccount(ctx context.Context, id int64) (ledger.Account, error)
	GetStockItem(ctx context.Context, id int64) (inventory.StockItem, error)
	TaxLedger(ctx context.Context, dir gst.Direction, c gst.Component) (ledger.Account, error)

	InsertVoucher(ctx context.Context, v VoucherEntry) (VoucherEntry, error)
	GetVoucher(ctx context.Context, id int64) (VoucherEntry, error)
	ListVouchers(ctx context.Context, limit, offset int) ([]VoucherEntry, int, error)
	ReplaceVoucherBody(ctx context.Context, v VoucherEntry) error
	RepointJournal(ctx context.Context, voucherID, journalEntryID int64) error

	InsertJournalEntry(ctx context.Context, in ledger.EntryInput) (ledger.JournalEntry, error)
	GetJournalWithLines(ctx context.Context, id int64) (ledger.JournalEntry, error)
	ListEntriesByReference(ctx context.Context, reference string) ([]ledger.JournalEntry, error)

	RegenerateStock(ctx context.Context, voucherID int64, movements []inventory.Movement) ([]inventory.StockLedgerEntry, error)

	SnapshotVoucher(ctx context.Context, voucherID int64, snapshot any) (int, error)
	RecordAudit(ctx context.Context, entry audit.Entry) error
}

// Store opens one atomic unit of work.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
}

// Recorder counts posting outcomes. The observability metrics satisfy
// it; nil disables counting.
type Recorder interface {
	VoucherPosted(voucherType string)
	VoucherAmended()
}

// Service orchestrates voucher posting and amendment.
type Service struct {
	store     Store
	validator rules.Validator
	logger    *slog.Logger
	metrics   Recorder
	now       func() time.Time
}

// NewService constructs the voucher service. A nil validator disables
// business rule evaluation.
func NewService(store Store, validator rules.Validator, logger *slog.Logger) *Service {
	if validator == nil {
		validator = rules.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, validator: validator, logger: logger, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithMetrics attaches posting counters.
func (s *Service) WithMetrics(metrics Recorder) {
	s.metrics = metrics
}

// Create posts a new voucher as one atomic unit: rules, period guard,
// number allocation, tax, line generation, persistence and stock
// regeneration all succeed or nothing is written, including the
// sequence increment.
func (s *Service) Create(ctx context.Context, in CreateInput) (VoucherEntry, error) {
	if err := s.checkRules(ctx, rules.EventBeforeSave, in); err != nil {
		return VoucherEntry{}, err
	}
	var (
		out   VoucherEntry
		group TypeGroup
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		v, g, err := s.post(ctx, tx, nil, in)
		if err != nil {
			return err
		}
		group = g
		if err := tx.RecordAudit(ctx, audit.Entry{
			ActorID:  in.ActorID,
			Action:   "voucher.create",
			Entity:   "voucher",
			EntityID: fmt.Sprintf("%d", v.ID),
			After:    v,
			At:       s.now(),
		}); err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return VoucherEntry{}, err
	}
	if s.metrics != nil {
		s.metrics.VoucherPosted(string(group))
	}
	s.logger.Info("voucher posted",
		slog.String("number", out.Number),
		slog.Int64("voucher_id", out.ID),
		slog.Float64("grand_total", out.GrandTotal))
	return out, nil
}

// Amend supersedes a posted voucher: snapshot the current state, post a
// dated-today reversal of its journal entry, repost the new payload
// under the unchanged number, regenerate stock, repoint the voucher and
// record the audit trail. One edit leaves three journal entries under
// the voucher number.
func (s *Service) Amend(ctx context.Context, voucherID int64, in CreateInput) (VoucherEntry, error) {
	if err := s.checkRules(ctx, rules.EventBeforeUpdate, in); err != nil {
		return VoucherEntry{}, err
	}
	var out VoucherEntry
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		existing, err := tx.GetVoucher(ctx, voucherID)
		if err != nil {
			return err
		}
		if _, err := tx.SnapshotVoucher(ctx, voucherID, existing); err != nil {
			return err
		}
		if err := s.reverse(ctx, tx, existing); err != nil {
			return err
		}
		v, _, err := s.post(ctx, tx, &existing, in)
		if err != nil {
			return err
		}
		if err := tx.RecordAudit(ctx, audit.Entry{
			ActorID:  in.ActorID,
			Action:   "voucher.amend",
			Entity:   "voucher",
			EntityID: fmt.Sprintf("%d", voucherID),
			Before:   existing,
			After:    v,
			At:       s.now(),
		}); err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return VoucherEntry{}, err
	}
	if s.metrics != nil {
		s.metrics.VoucherAmended()
	}
	s.logger.Info("voucher amended",
		slog.String("number", out.Number),
		slog.Int64("voucher_id", out.ID))
	return out, nil
}

// Get loads one voucher with its items and charges.
func (s *Service) Get(ctx context.Context, voucherID int64) (VoucherEntry, error) {
	var out VoucherEntry
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		v, err := tx.GetVoucher(ctx, voucherID)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// List returns a page of voucher headers, newest first.
func (s *Service) List(ctx context.Context, page, perPage int) ([]VoucherEntry, shared.Pagination, error) {
	if perPage <= 0 || perPage > 100 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	var (
		entries []VoucherEntry
		total   int
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		var err error
		entries, total, err = tx.ListVouchers(ctx, perPage, (page-1)*perPage)
		return err
	})
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return entries, shared.NewPagination(page, perPage, total), nil
}

// History returns every journal entry posted under the voucher's
// number, oldest first.
func (s *Service) History(ctx context.Context, voucherID int64) ([]ledger.JournalEntry, error) {
	var entries []ledger.JournalEntry
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		v, err := tx.GetVoucher(ctx, voucherID)
		if err != nil {
			return err
		}
		entries, err = tx.ListEntriesByReference(ctx, v.Number)
		return err
	})
	return entries, err
}

// reverse posts the mirrored entry voiding the voucher's current
// journal entry. It is dated today, not on the original date, so the
// void lands in an open period.
func (s *Service) reverse(ctx context.Context, tx TxStore, existing VoucherEntry) error {
	original, err := tx.GetJournalWithLines(ctx, existing.JournalEntryID)
	if err != nil {
		return err
	}
	revDate := s.now()
	org, err := tx.Organization(ctx)
	if err != nil {
		return err
	}
	fy, err := tx.FindYearForDate(ctx, revDate)
	if err != nil {
		return err
	}
	if err := ledger.EnsurePostable(fy, org, revDate); err != nil {
		return err
	}

	revLines := make([]ledger.LineInput, 0, len(original.Lines))
	for _, line := range original.Lines {
		revLines = append(revLines, ledger.LineInput{
			AccountID:   line.AccountID,
			Debit:       line.Credit,
			Credit:      line.Debit,
			Description: line.Description,
		})
	}
	revInput := ledger.EntryInput{
		Date:            revDate,
		VoucherType:     original.VoucherType,
		Reference:       existing.Number,
		Narration:       "Reversal of " + existing.Number,
		FinancialYearID: fy.ID,
		IsSystemEntry:   true,
		Lines:           revLines,
	}
	if err := revInput.Validate(); err != nil {
		return err
	}
	_, err = tx.InsertJournalEntry(ctx, revInput)
	return err
}

// post runs the shared posting pipeline. existing is nil for a fresh
// create; for an amendment it carries the voucher whose number and id
// the replacement keeps.
func (s *Service) post(ctx context.Context, tx TxStore, existing *VoucherEntry, in CreateInput) (VoucherEntry, TypeGroup, error) {
	hasItems := len(in.Items) > 0
	hasRaw := len(in.RawLines) > 0
	if hasItems == hasRaw {
		return VoucherEntry{}, "", ErrMixedInput
	}

	org, err := tx.Organization(ctx)
	if err != nil {
		return VoucherEntry{}, "", err
	}
	fy, err := tx.FindYearForDate(ctx, in.Date)
	if err != nil {
		return VoucherEntry{}, "", err
	}
	if err := ledger.EnsurePostable(fy, org, in.Date); err != nil {
		return VoucherEntry{}, "", err
	}
	vt, err := tx.GetVoucherType(ctx, in.VoucherTypeID)
	if err != nil {
		return VoucherEntry{}, "", err
	}

	trading := vt.TypeGroup == GroupSales || vt.TypeGroup == GroupPurchase
	if trading && hasItems && (in.PartyLedgerID == nil || *in.PartyLedgerID == 0) {
		return VoucherEntry{}, "", ErrPartyRequired
	}
	if hasItems && !trading {
		return VoucherEntry{}, "", fmt.Errorf("%w: item lines require a trading voucher type", ErrMixedInput)
	}

	number, err := s.allocateNumber(ctx, tx, existing, vt, fy, in)
	if err != nil {
		return VoucherEntry{}, "", err
	}

	routed, charges, err := s.routeItems(ctx, tx, org, vt, in)
	if err != nil {
		return VoucherEntry{}, "", err
	}
	totals := ComputeTotals(in.Items, charges)

	v := VoucherEntry{
		Number:        number,
		VoucherTypeID: vt.ID,
		Date:          in.Date,
		PartyLedgerID: in.PartyLedgerID,
		Status:        StatusPosted,
		Narration:     in.Narration,
		NetTotal:      totals.Net,
		TaxTotal:      totals.Tax,
		GrandTotal:    totals.Grand,
		Charges:       charges,
	}
	for _, item := range in.Items {
		v.Items = append(v.Items, LineItem{
			LedgerID:    item.LedgerID,
			StockItemID: item.StockItemID,
			Qty:         item.Qty,
			Rate:        item.Rate,
			Amount:      item.Amount,
			Discount:    item.Discount,
		})
	}
	if existing == nil {
		v, err = tx.InsertVoucher(ctx, v)
		if err != nil {
			return VoucherEntry{}, "", err
		}
	} else {
		v.ID = existing.ID
		v.CreatedAt = existing.CreatedAt
		if err := tx.ReplaceVoucherBody(ctx, v); err != nil {
			return VoucherEntry{}, "", err
		}
	}

	// Stock rows are rebuilt before line generation so COGS lines use
	// exactly the cost the ledger records.
	movements, movementIdx := buildMovements(in.Date, vt.TypeGroup, routed)
	entries, err := tx.RegenerateStock(ctx, v.ID, movements)
	if err != nil {
		return VoucherEntry{}, "", err
	}
	for pos, idx := range movementIdx {
		if pos < len(entries) && entries[pos].QtyOut > 0 {
			routed[idx].Cost = entries[pos].CostValue
		}
	}

	var partyID int64
	if in.PartyLedgerID != nil {
		partyID = *in.PartyLedgerID
	}
	lines, err := GenerateLines(vt.TypeGroup, partyID, totals.Grand, routed, charges, in.RawLines)
	if err != nil {
		return VoucherEntry{}, "", err
	}
	entryInput := ledger.EntryInput{
		Date:            in.Date,
		VoucherType:     vt.Name,
		Reference:       number,
		Narration:       in.Narration,
		FinancialYearID: fy.ID,
		Lines:           lines,
	}
	if err := entryInput.Validate(); err != nil {
		return VoucherEntry{}, "", err
	}
	entry, err := tx.InsertJournalEntry(ctx, entryInput)
	if err != nil {
		return VoucherEntry{}, "", err
	}
	if err := tx.RepointJournal(ctx, v.ID, entry.ID); err != nil {
		return VoucherEntry{}, "", err
	}
	v.JournalEntryID = entry.ID
	return v, vt.TypeGroup, nil
}

func (s *Service) allocateNumber(ctx context.Context, tx TxStore, existing *VoucherEntry, vt VoucherType, fy ledger.FinancialYear, in CreateInput) (string, error) {
	if existing != nil {
		return existing.Number, nil
	}
	if vt.Sequencing == SequencingManual {
		number := strings.TrimSpace(in.Number)
		if number == "" {
			return "", ErrNumberRequired
		}
		return number, nil
	}
	seq, err := tx.NextSequence(ctx, vt.ID)
	if err != nil {
		return "", err
	}
	return FormatNumber(vt.Prefix, fy.Short(), seq), nil
}

// routeItems resolves stock links, computes aggregated tax charges and
// get-or-creates their statutory ledgers.
func (s *Service) routeItems(ctx context.Context, tx TxStore, org ledger.Organization, vt VoucherType, in CreateInput) ([]RoutedItem, []Charge, error) {
	charges := make([]Charge, 0, len(in.Charges)+3)
	for _, c := range in.Charges {
		charges = append(charges, Charge{LedgerID: c.LedgerID, Name: c.Name, Amount: c.Amount})
	}
	if len(in.Items) == 0 {
		return nil, charges, nil
	}

	routed := make([]RoutedItem, 0, len(in.Items))
	taxable := make([]gst.TaxableLine, 0, len(in.Items))
	for _, item := range in.Items {
		ri := RoutedItem{Input: item}
		line := gst.TaxableLine{Amount: item.Net()}
		if item.StockItemID != nil {
			stock, err := tx.GetStockItem(ctx, *item.StockItemID)
			if err != nil {
				return nil, nil, err
			}
			ri.Stock = &stock
			line.RatePercent = stock.GSTRate
		}
		routed = append(routed, ri)
		taxable = append(taxable, line)
	}

	var partyState string
	if in.PartyLedgerID != nil && *in.PartyLedgerID != 0 {
		party, err := tx.GetAccount(ctx, *in.PartyLedgerID)
		if err != nil {
			return nil, nil, err
		}
		if !party.Postable() {
			return nil, nil, fmt.Errorf("%w: %s", ledger.ErrNotPostable, party.Name)
		}
		partyState = party.StateCode
	}
	dir := gst.DirectionOutput
	if vt.TypeGroup == GroupPurchase {
		dir = gst.DirectionInput
	}
	taxCharges, err := gst.Compute(org.StateCode, partyState, dir, taxable)
	if err != nil {
		return nil, nil, err
	}
	for _, tc := range taxCharges {
		acc, err := tx.TaxLedger(ctx, dir, tc.Component)
		if err != nil {
			return nil, nil, err
		}
		charges = append(charges, Charge{LedgerID: acc.ID, Name: string(tc.Component), Amount: tc.Amount})
	}
	return routed, charges, nil
}

// buildMovements emits one stock movement per stock-linked line and
// remembers which routed item each movement belongs to.
func buildMovements(date time.Time, group TypeGroup, routed []RoutedItem) ([]inventory.Movement, []int) {
	var movements []inventory.Movement
	var idx []int
	for i, item := range routed {
		if item.Stock == nil || item.Input.Qty <= 0 {
			continue
		}
		movements = append(movements, inventory.Movement{
			Date:    date,
			Item:    *item.Stock,
			Qty:     item.Input.Qty,
			Rate:    item.Input.Rate,
			Amount:  item.Input.Net(),
			Outward: group == GroupSales,
		})
		idx = append(idx, i)
	}
	return movements, idx
}

func (s *Service) checkRules(ctx context.Context, event rules.Event, in CreateInput) error {
	hasStock := false
	for _, item := range in.Items {
		if item.StockItemID != nil {
			hasStock = true
			break
		}
	}
	var approx []Charge
	for _, c := range in.Charges {
		approx = append(approx, Charge{Name: c.Name, Amount: c.Amount})
	}
	subject := rules.Subject{
		VoucherTypeID: in.VoucherTypeID,
		PartyID:       in.PartyLedgerID,
		Date:          in.Date,
		GrandTotal:    ComputeTotals(in.Items, approx).Grand,
		LineCount:     len(in.Items) + len(in.RawLines),
		HasStockLines: hasStock,
	}
	results, err := s.validator.Evaluate(ctx, event, subject)
	if err != nil {
		return fmt.Errorf("vouchers: rule evaluation: %w", err)
	}
	if blocked, ok := rules.Blocking(results); ok {
		return fmt.Errorf("%w: %s: %s", ErrValidationBlocked, blocked.RuleName, blocked.Message)
	}
	for _, r := range results {
		if r.Action == rules.ActionWarn {
			s.logger.Warn("voucher rule warning",
				slog.String("rule", r.RuleName),
				slog.String("message", r.Message))
		}
	}
	return nil
}

// IsExpected reports whether err belongs to the anticipated taxonomy,
// as opposed to an integrity failure.
func IsExpected(err error) bool {
	for _, target := range []error{
		ErrValidationBlocked, ErrDuplicateVoucherNumber, ErrRoutingMissing,
		ErrPartyRequired, ErrMixedInput, ErrNumberRequired,
		ErrVoucherNotFound, ErrVoucherTypeNotFound,
		ledger.ErrNoFinancialYear, ledger.ErrYearClosed, ledger.ErrYearLocked,
		ledger.ErrBeforeBooksBegin, ledger.ErrNotPostable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
