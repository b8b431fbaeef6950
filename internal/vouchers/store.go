package vouchers

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tallyledger/tallyledger/internal/audit"
	"github.com/tallyledger/tallyledger/internal/gst"
	"github.com/tallyledger/tallyledger/internal/inventory"
	"github.com/tallyledger/tallyledger/internal/ledger"
	"github.com/tallyledger/tallyledger/internal/platform/db"
)

// PgStore composes the per-domain repositories over one PostgreSQL
// transaction so a posting commits or rolls back as a single unit.
type PgStore struct {
	pool      *pgxpool.Pool
	ledgerRep *ledger.Repository
	invRep    *inventory.Repository
	gstRep    *gst.Repository
	auditRep  *audit.Repository
}

// NewPgStore constructs the composed store.
func NewPgStore(pool *pgxpool.Pool, ledgerRep *ledger.Repository, invRep *inventory.Repository, gstRep *gst.Repository, auditRep *audit.Repository) *PgStore {
	return &PgStore{pool: pool, ledgerRep: ledgerRep, invRep: invRep, gstRep: gstRep, auditRep: auditRep}
}

// WithTx opens one RepeatableRead transaction and hands the orchestrator
// a TxStore bound to it.
func (s *PgStore) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	if s == nil || s.pool == nil {
		return errors.New("voucher store not initialised")
	}
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxStore{
			vouchers:  &txRepository{tx: tx},
			ledger:    s.ledgerRep.Bind(tx),
			inventory: s.invRep.Bind(tx),
			gst:       s.gstRep.Bind(tx),
			audit:     s.auditRep.Bind(tx),
		})
	})
}

type pgTxStore struct {
	vouchers  *txRepository
	ledger    ledger.TxRepository
	inventory inventory.TxRepository
	gst       gst.TxRepository
	audit     audit.TxRepository
}

func (s *pgTxStore) Organization(ctx context.Context) (ledger.Organization, error) {
	return s.ledger.Organization(ctx)
}

func (s *pgTxStore) FindYearForDate(ctx context.Context, date time.Time) (ledger.FinancialYear, error) {
	return s.ledger.FindYearForDate(ctx, date)
}

func (s *pgTxStore) GetVoucherType(ctx context.Context, id int64) (VoucherType, error) {
	return s.vouchers.GetVoucherType(ctx, id)
}

func (s *pgTxStore) NextSequence(ctx context.Context, voucherTypeID int64) (int64, error) {
	return s.vouchers.NextSequence(ctx, voucherTypeID)
}

func (s *pgTxStore) GetAccount(ctx context.Context, id int64) (ledger.Account, error) {
	return s.ledger.GetAccount(ctx, id)
}

func (s *pgTxStore) GetStockItem(ctx context.Context, id int64) (inventory.StockItem, error) {
	return s.inventory.GetStockItem(ctx, id)
}

func (s *pgTxStore) TaxLedger(ctx context.Context, dir gst.Direction, c gst.Component) (ledger.Account, error) {
	return s.gst.GetOrCreateTaxLedger(ctx, dir, c)
}

func (s *pgTxStore) InsertVoucher(ctx context.Context, v VoucherEntry) (VoucherEntry, error) {
	return s.vouchers.InsertVoucher(ctx, v)
}

func (s *pgTxStore) GetVoucher(ctx context.Context, id int64) (VoucherEntry, error) {
	return s.vouchers.GetVoucher(ctx, id)
}

func (s *pgTxStore) ListVouchers(ctx context.Context, limit, offset int) ([]VoucherEntry, int, error) {
	return s.vouchers.ListVouchers(ctx, limit, offset)
}

func (s *pgTxStore) ReplaceVoucherBody(ctx context.Context, v VoucherEntry) error {
	return s.vouchers.ReplaceVoucherBody(ctx, v)
}

func (s *pgTxStore) RepointJournal(ctx context.Context, voucherID, journalEntryID int64) error {
	return s.vouchers.RepointJournal(ctx, voucherID, journalEntryID)
}

func (s *pgTxStore) InsertJournalEntry(ctx context.Context, in ledger.EntryInput) (ledger.JournalEntry, error) {
	return s.ledger.InsertJournalEntry(ctx, in)
}

func (s *pgTxStore) GetJournalWithLines(ctx context.Context, id int64) (ledger.JournalEntry, error) {
	return s.ledger.GetJournalWithLines(ctx, id)
}

func (s *pgTxStore) ListEntriesByReference(ctx context.Context, reference string) ([]ledger.JournalEntry, error) {
	return s.ledger.ListEntriesByReference(ctx, reference)
}

func (s *pgTxStore) RegenerateStock(ctx context.Context, voucherID int64, movements []inventory.Movement) ([]inventory.StockLedgerEntry, error) {
	return inventory.Regenerate(ctx, s.inventory, voucherID, movements)
}

func (s *pgTxStore) SnapshotVoucher(ctx context.Context, voucherID int64, snapshot any) (int, error) {
	return s.audit.SnapshotVoucher(ctx, voucherID, snapshot)
}

func (s *pgTxStore) RecordAudit(ctx context.Context, entry audit.Entry) error {
	return s.audit.Record(ctx, entry)
}
