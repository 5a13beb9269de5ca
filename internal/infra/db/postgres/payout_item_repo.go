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

var _ repository.PayoutItemRepository = (*payoutItemRepo)(nil)

type payoutItemRepo struct{ pool *pgxpool.Pool }

func NewPayoutItemRepo(pool *pgxpool.Pool) *payoutItemRepo {
	return &payoutItemRepo{pool: pool}
}

const payoutColumns = `p.id, p.voucher_id, p.merchant_id, p.amount_payable::text, p.processor_fee::text, p.platform_fee::text, p.currency, p.status, p.created_at, p.paid_at, p.transfer_ref`

// Insert relies on the voucher_id uniqueness constraint: a duplicate creation
// attempt is absorbed by ON CONFLICT DO NOTHING and reported as inserted=false.
func (r *payoutItemRepo) Insert(ctx context.Context, tx repository.Tx, item *model.PayoutItem) (bool, error) {
	const q = `
INSERT INTO payout_items (
  id, voucher_id, merchant_id, amount_payable, processor_fee, platform_fee, currency, status, created_at, paid_at, transfer_ref
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
) ON CONFLICT (voucher_id) DO NOTHING;`

	ct, err := execSQL(ctx, r.pool, tx, q,
		item.ID, item.VoucherID, item.MerchantID,
		numArg(item.AmountPayable), numArg(item.ProcessorFee), numArg(item.PlatformFee),
		item.Currency, string(item.Status), item.CreatedAt, item.PaidAt, item.TransferRef)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return ct.RowsAffected() == 1, nil
}

func (r *payoutItemRepo) FindByVoucherID(ctx context.Context, tx repository.Tx, voucherID string) (*model.PayoutItem, error) {
	const q = `SELECT ` + payoutColumns + ` FROM payout_items p WHERE p.voucher_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, voucherID)
	if err != nil {
		return nil, err
	}
	return scanPayoutItem(row)
}

func (r *payoutItemRepo) ListPending(ctx context.Context, tx repository.Tx, merchantID string, redeemedIn *model.DateRange) ([]*model.PayoutItem, error) {
	const q = `
SELECT ` + payoutColumns + `
FROM payout_items p
JOIN vouchers v ON v.id = p.voucher_id
WHERE p.status = 'pending'
  AND ($1 = '' OR p.merchant_id = $1)
  AND ($2::timestamptz IS NULL OR v.redeemed_at >= $2)
  AND ($3::timestamptz IS NULL OR v.redeemed_at <= $3)
ORDER BY p.created_at ASC;`

	var from, to *time.Time
	if redeemedIn != nil {
		from, to = redeemedIn.From, redeemedIn.To
	}
	rows, err := queryRows(ctx, r.pool, tx, q, merchantID, from, to)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	return scanPayoutItems(rows)
}

// MarkPaidUpTo is a single UPDATE: the merchant batch transitions atomically,
// and only rows still pending are touched, so a retried call affects zero.
func (r *payoutItemRepo) MarkPaidUpTo(ctx context.Context, tx repository.Tx, merchantID string, cutoff time.Time, paidAt time.Time, transferRef string) (int, error) {
	const q = `
UPDATE payout_items p
   SET status = 'paid', paid_at = $3, transfer_ref = $4
  FROM vouchers v
 WHERE v.id = p.voucher_id
   AND p.merchant_id = $1
   AND p.status = 'pending'
   AND v.redeemed_at <= $2;`

	ct, err := execSQL(ctx, r.pool, tx, q, merchantID, cutoff, paidAt, transferRef)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return int(ct.RowsAffected()), nil
}

func (r *payoutItemRepo) Reverse(ctx context.Context, tx repository.Tx, voucherID string) (bool, error) {
	const q = `UPDATE payout_items SET status='reversed' WHERE voucher_id=$1 AND status='pending';`
	ct, err := execSQL(ctx, r.pool, tx, q, voucherID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return ct.RowsAffected() == 1, nil
}

func (r *payoutItemRepo) ListRecentPaid(ctx context.Context, tx repository.Tx, limit int) ([]*model.PayoutItem, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + payoutColumns + ` FROM payout_items p WHERE p.status='paid' ORDER BY p.paid_at DESC LIMIT $1;`
	rows, err := queryRows(ctx, r.pool, tx, q, limit)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	return scanPayoutItems(rows)
}

func scanPayoutItem(row pgx.Row) (*model.PayoutItem, error) {
	p := &model.PayoutItem{}
	var amount, processor, platform string
	var status string
	if err := row.Scan(&p.ID, &p.VoucherID, &p.MerchantID, &amount, &processor, &platform,
		&p.Currency, &status, &p.CreatedAt, &p.PaidAt, &p.TransferRef); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	p.Status = model.PayoutItemStatus(status)
	var err error
	if p.AmountPayable, err = numParse(amount); err != nil {
		return nil, err
	}
	if p.ProcessorFee, err = numParse(processor); err != nil {
		return nil, err
	}
	if p.PlatformFee, err = numParse(platform); err != nil {
		return nil, err
	}
	return p, nil
}

func scanPayoutItems(rows pgx.Rows) ([]*model.PayoutItem, error) {
	var out []*model.PayoutItem
	for rows.Next() {
		p, err := scanPayoutItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
