package repository

import (
	"context"
	"time"

	"brontie-core/internal/domain/model"
)

type PayoutItemRepository interface {
	// Insert creates the payout item unless one already exists for the same
	// voucher. Returns false (and no error) on the duplicate path so batch
	// callers can skip and continue.
	Insert(ctx context.Context, tx Tx, item *model.PayoutItem) (bool, error)
	FindByVoucherID(ctx context.Context, tx Tx, voucherID string) (*model.PayoutItem, error)
	// ListPending returns pending items, optionally scoped to one merchant and
	// filtered by the associated voucher's redemption timestamp.
	ListPending(ctx context.Context, tx Tx, merchantID string, redeemedIn *model.DateRange) ([]*model.PayoutItem, error)
	// MarkPaidUpTo transitions every pending item of the merchant whose voucher
	// was redeemed on or before the cutoff, stamping paidAt and the transfer
	// reference. Returns the number of items transitioned. The status=pending
	// predicate makes retries mark zero additional items.
	MarkPaidUpTo(ctx context.Context, tx Tx, merchantID string, cutoff time.Time, paidAt time.Time, transferRef string) (int, error)
	Reverse(ctx context.Context, tx Tx, voucherID string) (bool, error)
	ListRecentPaid(ctx context.Context, tx Tx, limit int) ([]*model.PayoutItem, error)
}
