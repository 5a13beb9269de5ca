package model

import (
	"time"

	"brontie-core/internal/domain"

	"github.com/shopspring/decimal"
)

type VoucherStatus string

const (
	VoucherStatusPending  VoucherStatus = "pending"  // checkout opened, payment not confirmed
	VoucherStatusIssued   VoucherStatus = "issued"   // paid; redeemable at the café
	VoucherStatusRedeemed VoucherStatus = "redeemed" // scanned and honored in person
	VoucherStatusRefunded VoucherStatus = "refunded" // sender refunded before redemption
	VoucherStatusExpired  VoucherStatus = "expired"  // validity window elapsed unredeemed
)

// Voucher is one purchased gift. The redeemed/refunded/expired timestamps are
// set if and only if the status holds the corresponding value.
type Voucher struct {
	ID         string // UUID
	PaymentRef string // checkout-session reference; at most one voucher per ref
	GiftItemID string
	MerchantID string

	SenderEmail    string
	RecipientEmail string
	// RecipientToken groups all gifts received by one person for viral/cohort
	// analytics; RecipientBecameSender marks that the recipient later purchased
	// a gift of their own.
	RecipientToken        string
	RecipientBecameSender bool

	AmountGross  *decimal.Decimal // nil: fall back to the gift item price
	ProcessorFee *decimal.Decimal // nil or zero: estimate at fee-computation time
	Currency     string

	Status     VoucherStatus
	CreatedAt  time.Time
	IssuedAt   *time.Time
	RedeemedAt *time.Time
	RefundedAt *time.Time
	ExpiredAt  *time.Time
}

// NewIssuedVoucher creates a voucher for a confirmed checkout session.
func NewIssuedVoucher(id, paymentRef string, item *GiftItem, senderEmail, recipientEmail, recipientToken string, amountGross *decimal.Decimal) (*Voucher, error) {
	if id == "" || paymentRef == "" || item == nil {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Voucher{
		ID:             id,
		PaymentRef:     paymentRef,
		GiftItemID:     item.ID,
		MerchantID:     item.MerchantID,
		SenderEmail:    senderEmail,
		RecipientEmail: recipientEmail,
		RecipientToken: recipientToken,
		AmountGross:    amountGross,
		Currency:       item.Currency,
		Status:         VoucherStatusIssued,
		CreatedAt:      now,
		IssuedAt:       &now,
	}, nil
}

// EffectiveGross resolves the voucher's gross amount: the stored amount when
// present, otherwise the gift item price, otherwise zero. This is the single
// place the fallback chain is defined.
func (v *Voucher) EffectiveGross(item *GiftItem) decimal.Decimal {
	if v.AmountGross != nil {
		return *v.AmountGross
	}
	if item != nil {
		return item.Price
	}
	return decimal.Decimal{}
}

// Redeem transitions an issued voucher to redeemed.
func (v *Voucher) Redeem(at time.Time) error {
	if v.Status != VoucherStatusIssued {
		return domain.ErrVoucherNotRedeemable
	}
	v.Status = VoucherStatusRedeemed
	v.RedeemedAt = &at
	return nil
}

// Refund transitions an issued voucher to refunded.
func (v *Voucher) Refund(at time.Time) error {
	if v.Status != VoucherStatusIssued {
		return domain.ErrVoucherNotRedeemable
	}
	v.Status = VoucherStatusRefunded
	v.RefundedAt = &at
	return nil
}

// Expire transitions an issued voucher to expired.
func (v *Voucher) Expire(at time.Time) error {
	if v.Status != VoucherStatusIssued {
		return domain.ErrVoucherNotRedeemable
	}
	v.Status = VoucherStatusExpired
	v.ExpiredAt = &at
	return nil
}
