package vouchers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// txRepository runs the voucher table SQL inside one transaction.
type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetVoucherType(ctx context.Context, id int64) (VoucherType, error) {
	var vt VoucherType
	err := r.tx.QueryRow(ctx, `SELECT id, name, type_group, sequencing, COALESCE(prefix,''), current_sequence, default_account_id, created_at, updated_at
FROM voucher_types WHERE id=$1`, id).
		Scan(&vt.ID, &vt.Name, &vt.TypeGroup, &vt.Sequencing, &vt.Prefix, &vt.CurrentSequence, &vt.DefaultAccountID, &vt.CreatedAt, &vt.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return VoucherType{}, ErrVoucherTypeNotFound
		}
		return VoucherType{}, err
	}
	return vt, nil
}

// NextSequence serializes number allocation on the voucher type row.
// The UPDATE takes a row lock, so concurrent allocations queue instead
// of reading the same counter value.
func (r *txRepository) NextSequence(ctx context.Context, voucherTypeID int64) (int64, error) {
	var next int64
	err := r.tx.QueryRow(ctx, `UPDATE voucher_types SET current_sequence = current_sequence + 1, updated_at = NOW()
WHERE id=$1 RETURNING current_sequence - 1`, voucherTypeID).Scan(&next)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrVoucherTypeNotFound
		}
		return 0, err
	}
	return next, nil
}

func (r *txRepository) InsertVoucher(ctx context.Context, v VoucherEntry) (VoucherEntry, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO voucher_entries (voucher_number, voucher_type_id, date, party_ledger_id, status, narration, net_total, tax_total, grand_total)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id, created_at, updated_at`,
		v.Number, v.VoucherTypeID, v.Date, v.PartyLedgerID, v.Status, v.Narration, v.NetTotal, v.TaxTotal, v.GrandTotal).
		Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return VoucherEntry{}, mapVoucherError(err)
	}
	if err := r.insertBody(ctx, &v); err != nil {
		return VoucherEntry{}, err
	}
	return v, nil
}

// ReplaceVoucherBody updates the header in place and swaps the owned
// items and charges wholesale, keeping the voucher id and number.
func (r *txRepository) ReplaceVoucherBody(ctx context.Context, v VoucherEntry) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE voucher_entries SET date=$2, party_ledger_id=$3, status=$4, narration=$5, net_total=$6, tax_total=$7, grand_total=$8, updated_at=NOW()
WHERE id=$1`, v.ID, v.Date, v.PartyLedgerID, v.Status, v.Narration, v.NetTotal, v.TaxTotal, v.GrandTotal)
	if err != nil {
		return mapVoucherError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrVoucherNotFound
	}
	if _, err := r.tx.Exec(ctx, `DELETE FROM voucher_line_items WHERE voucher_id=$1`, v.ID); err != nil {
		return err
	}
	if _, err := r.tx.Exec(ctx, `DELETE FROM voucher_charges WHERE voucher_id=$1`, v.ID); err != nil {
		return err
	}
	return r.insertBody(ctx, &v)
}

func (r *txRepository) insertBody(ctx context.Context, v *VoucherEntry) error {
	for i := range v.Items {
		item := &v.Items[i]
		item.VoucherID = v.ID
		err := r.tx.QueryRow(ctx, `INSERT INTO voucher_line_items (voucher_id, ledger_id, stock_item_id, qty, rate, amount, discount)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
			v.ID, item.LedgerID, item.StockItemID, item.Qty, item.Rate, item.Amount, item.Discount).
			Scan(&item.ID)
		if err != nil {
			return err
		}
	}
	for i := range v.Charges {
		charge := &v.Charges[i]
		charge.VoucherID = v.ID
		err := r.tx.QueryRow(ctx, `INSERT INTO voucher_charges (voucher_id, ledger_id, charge_type, amount)
VALUES ($1,$2,$3,$4) RETURNING id`, v.ID, charge.LedgerID, charge.Name, charge.Amount).
			Scan(&charge.ID)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetVoucher(ctx context.Context, id int64) (VoucherEntry, error) {
	var v VoucherEntry
	var journalID *int64
	err := r.tx.QueryRow(ctx, `SELECT id, voucher_number, voucher_type_id, date, party_ledger_id, status, COALESCE(narration,''), net_total, tax_total, grand_total, journal_entry_id, created_at, updated_at
FROM voucher_entries WHERE id=$1`, id).
		Scan(&v.ID, &v.Number, &v.VoucherTypeID, &v.Date, &v.PartyLedgerID, &v.Status, &v.Narration, &v.NetTotal, &v.TaxTotal, &v.GrandTotal, &journalID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return VoucherEntry{}, ErrVoucherNotFound
		}
		return VoucherEntry{}, err
	}
	if journalID != nil {
		v.JournalEntryID = *journalID
	}

	rows, err := r.tx.Query(ctx, `SELECT id, voucher_id, ledger_id, stock_item_id, qty, rate, amount, discount
FROM voucher_line_items WHERE voucher_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return VoucherEntry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item LineItem
		if err := rows.Scan(&item.ID, &item.VoucherID, &item.LedgerID, &item.StockItemID, &item.Qty, &item.Rate, &item.Amount, &item.Discount); err != nil {
			return VoucherEntry{}, err
		}
		v.Items = append(v.Items, item)
	}
	if err := rows.Err(); err != nil {
		return VoucherEntry{}, err
	}

	chargeRows, err := r.tx.Query(ctx, `SELECT id, voucher_id, ledger_id, charge_type, amount
FROM voucher_charges WHERE voucher_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return VoucherEntry{}, err
	}
	defer chargeRows.Close()
	for chargeRows.Next() {
		var charge Charge
		if err := chargeRows.Scan(&charge.ID, &charge.VoucherID, &charge.LedgerID, &charge.Name, &charge.Amount); err != nil {
			return VoucherEntry{}, err
		}
		v.Charges = append(v.Charges, charge)
	}
	return v, chargeRows.Err()
}

// ListVouchers returns header rows newest first plus the total count.
func (r *txRepository) ListVouchers(ctx context.Context, limit, offset int) ([]VoucherEntry, int, error) {
	var total int
	if err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM voucher_entries`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.tx.Query(ctx, `SELECT id, voucher_number, voucher_type_id, date, party_ledger_id, status, COALESCE(narration,''), net_total, tax_total, grand_total, created_at, updated_at
FROM voucher_entries ORDER BY date DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []VoucherEntry
	for rows.Next() {
		var v VoucherEntry
		if err := rows.Scan(&v.ID, &v.Number, &v.VoucherTypeID, &v.Date, &v.PartyLedgerID, &v.Status, &v.Narration, &v.NetTotal, &v.TaxTotal, &v.GrandTotal, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, v)
	}
	return result, total, rows.Err()
}

func (r *txRepository) RepointJournal(ctx context.Context, voucherID, journalEntryID int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE voucher_entries SET journal_entry_id=$2, updated_at=NOW() WHERE id=$1`, voucherID, journalEntryID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrVoucherNotFound
	}
	return nil
}

// mapVoucherError translates the unique-violation safety net on
// voucher_number into the domain error.
func mapVoucherError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateVoucherNumber
	}
	return err
}
