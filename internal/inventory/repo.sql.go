package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tallyledger/tallyledger/internal/platform/db"
)

// TxRepository exposes stock ledger operations bound to one transaction.
type TxRepository interface {
	GetStockItem(ctx context.Context, id int64) (StockItem, error)
	EntriesForItem(ctx context.Context, itemID int64) ([]StockLedgerEntry, error)
	DeleteEntriesForVoucher(ctx context.Context, voucherID int64) error
	InsertEntry(ctx context.Context, entry StockLedgerEntry) (StockLedgerEntry, error)
	ClosingBalance(ctx context.Context, itemID int64) (Balance, error)
}

// Repository persists inventory entities in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes fn within a RepeatableRead transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// Bind wraps an externally managed transaction.
func (r *Repository) Bind(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetStockItem(ctx context.Context, id int64) (StockItem, error) {
	var item StockItem
	var method *string
	err := r.tx.QueryRow(ctx, `SELECT id, name, COALESCE(part_number,''), valuation_method, gst_rate, opening_qty, opening_value,
inventory_account_id, cogs_account_id, sales_account_id, purchase_account_id, created_at, updated_at
FROM stock_items WHERE id=$1`, id).
		Scan(&item.ID, &item.Name, &item.PartNumber, &method, &item.GSTRate, &item.OpeningQty, &item.OpeningValue,
			&item.InventoryAccountID, &item.COGSAccountID, &item.SalesAccountID, &item.PurchaseAccountID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockItem{}, ErrItemNotFound
		}
		return StockItem{}, err
	}
	if method != nil {
		item.ValuationMethod = ValuationMethod(*method)
	}
	return item, nil
}

// EntriesForItem returns the item's ledger ordered by (date, id); the
// serial id is the same-day tiebreak that makes recalculation
// deterministic.
func (r *txRepository) EntriesForItem(ctx context.Context, itemID int64) ([]StockLedgerEntry, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, date, stock_item_id, voucher_id, qty_in, qty_out, rate, value, cost_value, is_opening
FROM stock_ledger_entries WHERE stock_item_id=$1 ORDER BY date ASC, id ASC`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []StockLedgerEntry
	for rows.Next() {
		var e StockLedgerEntry
		var voucherID *int64
		if err := rows.Scan(&e.ID, &e.Date, &e.StockItemID, &voucherID, &e.QtyIn, &e.QtyOut, &e.Rate, &e.Value, &e.CostValue, &e.IsOpening); err != nil {
			return nil, err
		}
		if voucherID != nil {
			e.VoucherID = *voucherID
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *txRepository) DeleteEntriesForVoucher(ctx context.Context, voucherID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM stock_ledger_entries WHERE voucher_id=$1`, voucherID)
	return err
}

func (r *txRepository) InsertEntry(ctx context.Context, entry StockLedgerEntry) (StockLedgerEntry, error) {
	var voucherID any
	if entry.VoucherID != 0 {
		voucherID = entry.VoucherID
	}
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_ledger_entries (date, stock_item_id, voucher_id, qty_in, qty_out, rate, value, cost_value, is_opening)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		entry.Date, entry.StockItemID, voucherID, entry.QtyIn, entry.QtyOut, entry.Rate, entry.Value, entry.CostValue, entry.IsOpening).
		Scan(&entry.ID)
	if err != nil {
		return StockLedgerEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) ClosingBalance(ctx context.Context, itemID int64) (Balance, error) {
	bal := Balance{StockItemID: itemID}
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(SUM(qty_in - qty_out),0), COALESCE(SUM(value - cost_value),0)
FROM stock_ledger_entries WHERE stock_item_id=$1`, itemID).
		Scan(&bal.Qty, &bal.Value)
	return bal, err
}
