package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"brontie-core/internal/domain"
	"brontie-core/internal/domain/model"
	"brontie-core/internal/domain/ports/adapter"
	"brontie-core/internal/domain/ports/repository"
)

// Compile-time check
var _ VoucherUseCase = (*voucherUC)(nil)

type VoucherUseCase interface {
	// CreateFromCheckout records a voucher for a confirmed checkout session.
	// Idempotent on the payment reference: a retried confirmation returns the
	// existing voucher and created=false.
	CreateFromCheckout(ctx context.Context, in CreateVoucherInput) (v *model.Voucher, created bool, err error)
	// Redeem transitions the voucher to redeemed and creates its payout item
	// (at most once) in the same transaction.
	Redeem(ctx context.Context, voucherID string) (*model.Voucher, error)
	// Refund marks the voucher refunded; a still-pending payout item for it is
	// reversed in the same transaction.
	Refund(ctx context.Context, voucherID string) error
	// ExpireIssuedBefore expires issued vouchers older than the cutoff and
	// returns how many were expired.
	ExpireIssuedBefore(ctx context.Context, before time.Time) (int, error)
}

type CreateVoucherInput struct {
	PaymentRef     string
	GiftItemID     string
	SenderEmail    string
	RecipientEmail string
	RecipientToken string
	AmountGross    *decimal.Decimal // nil: use the gift item price
}

type voucherUC struct {
	vouchers  repository.VoucherRepository
	giftItems repository.GiftItemRepository
	merchants repository.MerchantRepository
	payouts   repository.PayoutItemRepository
	tm        repository.TransactionManager
	events    adapter.EventPublisher

	log *zerolog.Logger
}

func NewVoucherUseCase(
	vouchers repository.VoucherRepository,
	giftItems repository.GiftItemRepository,
	merchants repository.MerchantRepository,
	payouts repository.PayoutItemRepository,
	tm repository.TransactionManager,
	events adapter.EventPublisher,
	logger *zerolog.Logger,
) *voucherUC {
	return &voucherUC{
		vouchers:  vouchers,
		giftItems: giftItems,
		merchants: merchants,
		payouts:   payouts,
		tm:        tm,
		events:    events,
		log:       logger,
	}
}

func (u *voucherUC) CreateFromCheckout(ctx context.Context, in CreateVoucherInput) (*model.Voucher, bool, error) {
	if in.PaymentRef == "" || in.GiftItemID == "" {
		return nil, false, domain.ErrInvalidArgument
	}
	if existing, err := u.vouchers.FindByPaymentRef(ctx, repository.NoTX, in.PaymentRef); err == nil && existing != nil {
		return existing, false, nil
	}
	item, err := u.giftItems.FindByID(ctx, repository.NoTX, in.GiftItemID)
	if err != nil {
		return nil, false, err
	}
	v, err := model.NewIssuedVoucher(uuid.NewString(), in.PaymentRef, item, in.SenderEmail, in.RecipientEmail, in.RecipientToken, in.AmountGross)
	if err != nil {
		return nil, false, err
	}
	if err := u.vouchers.Save(ctx, repository.NoTX, v); err != nil {
		// A concurrent confirmation may have won the insert; fall back to it.
		if existing, ferr := u.vouchers.FindByPaymentRef(ctx, repository.NoTX, in.PaymentRef); ferr == nil && existing != nil {
			return existing, false, nil
		}
		return nil, false, err
	}
	u.log.Info().Str("voucher_id", v.ID).Str("merchant_id", v.MerchantID).Msg("voucher issued")
	return v, true, nil
}

func (u *voucherUC) Redeem(ctx context.Context, voucherID string) (*model.Voucher, error) {
	var redeemed *model.Voucher
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		v, err := u.vouchers.FindByID(ctx, tx, voucherID)
		if err != nil {
			return err
		}
		now := time.Now()
		if err := v.Redeem(now); err != nil {
			return err
		}
		if err := u.vouchers.Save(ctx, tx, v); err != nil {
			return err
		}

		item, err := u.giftItems.FindByID(ctx, tx, v.GiftItemID)
		if err != nil {
			return err
		}
		merchant, err := u.merchants.FindByID(ctx, tx, v.MerchantID)
		if err != nil {
			return err
		}
		fees := model.ComputeFees(v.EffectiveGross(item), merchant, v.ProcessorFee, now)
		pi, err := model.NewPayoutItem(uuid.NewString(), v, fees)
		if err != nil {
			return err
		}
		inserted, err := u.payouts.Insert(ctx, tx, pi)
		if err != nil {
			return err
		}
		if !inserted {
			u.log.Warn().Str("voucher_id", v.ID).Msg("payout item already exists, skipping")
		}
		redeemed = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	if u.events != nil {
		_ = u.events.Publish(ctx, "voucher.redeemed", map[string]interface{}{
			"voucher_id":  redeemed.ID,
			"merchant_id": redeemed.MerchantID,
			"redeemed_at": redeemed.RedeemedAt,
		})
	}
	return redeemed, nil
}

func (u *voucherUC) Refund(ctx context.Context, voucherID string) error {
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		v, err := u.vouchers.FindByID(ctx, tx, voucherID)
		if err != nil {
			return err
		}
		if err := v.Refund(time.Now()); err != nil {
			return err
		}
		if err := u.vouchers.Save(ctx, tx, v); err != nil {
			return err
		}
		// Only a still-pending liability can be reversed; paid items stay paid
		// and are handled by the external chargeback process.
		if _, err := u.payouts.Reverse(ctx, tx, v.ID); err != nil && err != domain.ErrNotFound {
			return err
		}
		u.log.Info().Str("voucher_id", v.ID).Msg("voucher refunded")
		return nil
	})
}

func (u *voucherUC) ExpireIssuedBefore(ctx context.Context, before time.Time) (int, error) {
	stale, err := u.vouchers.ListIssuedBefore(ctx, repository.NoTX, before, 500)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, v := range stale {
		if err := v.Expire(time.Now()); err != nil {
			continue
		}
		if err := u.vouchers.Save(ctx, repository.NoTX, v); err != nil {
			u.log.Error().Err(err).Str("voucher_id", v.ID).Msg("expire voucher save failed")
			continue
		}
		expired++
	}
	return expired, nil
}
