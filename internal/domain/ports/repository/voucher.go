package repository

import (
	"context"
	"time"

	"brontie-core/internal/domain/model"
)

type VoucherRepository interface {
	Save(ctx context.Context, tx Tx, v *model.Voucher) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Voucher, error)
	// FindByPaymentRef backs the idempotent create path: at most one voucher
	// per checkout-session reference.
	FindByPaymentRef(ctx context.Context, tx Tx, paymentRef string) (*model.Voucher, error)
	// List returns vouchers created within the range, optionally scoped to one
	// merchant (empty merchantID means all merchants). A nil range means all
	// time. Creation-date filtering is enough for every analytics bucket since
	// terminal buckets also require the creation timestamp in range.
	List(ctx context.Context, tx Tx, merchantID string, r *model.DateRange) ([]*model.Voucher, error)
	// ListIssuedBefore returns issued vouchers whose issue timestamp is older
	// than the cutoff, for the expiry worker.
	ListIssuedBefore(ctx context.Context, tx Tx, before time.Time, limit int) ([]*model.Voucher, error)
}
