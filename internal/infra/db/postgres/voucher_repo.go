package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"brontie-core/internal/domain"
	"brontie-core/internal/domain/model"
	"brontie-core/internal/domain/ports/repository"
)

var _ repository.VoucherRepository = (*voucherRepo)(nil)

type voucherRepo struct{ pool *pgxpool.Pool }

func NewVoucherRepo(pool *pgxpool.Pool) *voucherRepo {
	return &voucherRepo{pool: pool}
}

const voucherColumns = `id, payment_ref, gift_item_id, merchant_id, sender_email, recipient_email, recipient_token, recipient_became_sender, amount_gross::text, processor_fee::text, currency, status, created_at, issued_at, redeemed_at, refunded_at, expired_at`

func (r *voucherRepo) Save(ctx context.Context, tx repository.Tx, v *model.Voucher) error {
	const q = `
INSERT INTO vouchers (
  id, payment_ref, gift_item_id, merchant_id, sender_email, recipient_email, recipient_token, recipient_became_sender, amount_gross, processor_fee, currency, status, created_at, issued_at, redeemed_at, refunded_at, expired_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
) ON CONFLICT (id) DO UPDATE SET
  recipient_became_sender=$8, amount_gross=$9, processor_fee=$10, status=$12, issued_at=$14, redeemed_at=$15, refunded_at=$16, expired_at=$17;`

	_, err := execSQL(ctx, r.pool, tx, q,
		v.ID, v.PaymentRef, v.GiftItemID, v.MerchantID, v.SenderEmail, v.RecipientEmail,
		v.RecipientToken, v.RecipientBecameSender, numArgPtr(v.AmountGross), numArgPtr(v.ProcessorFee),
		v.Currency, string(v.Status), v.CreatedAt, v.IssuedAt, v.RedeemedAt, v.RefundedAt, v.ExpiredAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *voucherRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Voucher, error) {
	q := `SELECT ` + voucherColumns + ` FROM vouchers WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanVoucher(row)
}

func (r *voucherRepo) FindByPaymentRef(ctx context.Context, tx repository.Tx, paymentRef string) (*model.Voucher, error) {
	q := `SELECT ` + voucherColumns + ` FROM vouchers WHERE payment_ref=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, paymentRef)
	if err != nil {
		return nil, err
	}
	return scanVoucher(row)
}

func (r *voucherRepo) List(ctx context.Context, tx repository.Tx, merchantID string, dr *model.DateRange) ([]*model.Voucher, error) {
	const q = `
SELECT ` + voucherColumns + ` FROM vouchers
WHERE ($1 = '' OR merchant_id = $1)
  AND ($2::timestamptz IS NULL OR created_at >= $2)
  AND ($3::timestamptz IS NULL OR created_at <= $3)
ORDER BY created_at ASC;`

	var from, to *time.Time
	if dr != nil {
		from, to = dr.From, dr.To
	}
	rows, err := queryRows(ctx, r.pool, tx, q, merchantID, from, to)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	return scanVouchers(rows)
}

func (r *voucherRepo) ListIssuedBefore(ctx context.Context, tx repository.Tx, before time.Time, limit int) ([]*model.Voucher, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + voucherColumns + ` FROM vouchers WHERE status='issued' AND issued_at < $1 ORDER BY issued_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, before, limit)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	return scanVouchers(rows)
}

func scanVoucher(row pgx.Row) (*model.Voucher, error) {
	v := &model.Voucher{}
	var amountGross, processorFee *string
	var status string
	if err := row.Scan(&v.ID, &v.PaymentRef, &v.GiftItemID, &v.MerchantID, &v.SenderEmail, &v.RecipientEmail,
		&v.RecipientToken, &v.RecipientBecameSender, &amountGross, &processorFee,
		&v.Currency, &status, &v.CreatedAt, &v.IssuedAt, &v.RedeemedAt, &v.RefundedAt, &v.ExpiredAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	v.Status = model.VoucherStatus(status)
	var err error
	if v.AmountGross, err = numParsePtr(amountGross); err != nil {
		return nil, err
	}
	if v.ProcessorFee, err = numParsePtr(processorFee); err != nil {
		return nil, err
	}
	return v, nil
}

func scanVouchers(rows pgx.Rows) ([]*model.Voucher, error) {
	var out []*model.Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
