package model

import (
	"time"

	"brontie-core/internal/domain"

	"github.com/shopspring/decimal"
)

type PayoutItemStatus string

const (
	PayoutItemStatusPending  PayoutItemStatus = "pending"
	PayoutItemStatusPaid     PayoutItemStatus = "paid"
	PayoutItemStatusReversed PayoutItemStatus = "reversed"
)

// PayoutItem is the platform's liability to a merchant for one redeemed
// voucher. Amounts are fixed at creation from the fee settings in force at
// redemption time; later fee-setting changes never rewrite existing items.
type PayoutItem struct {
	ID         string // UUID
	VoucherID  string // unique: at most one payout item per voucher
	MerchantID string

	AmountPayable decimal.Decimal
	ProcessorFee  decimal.Decimal
	PlatformFee   decimal.Decimal
	Currency      string

	Status      PayoutItemStatus
	CreatedAt   time.Time
	PaidAt      *time.Time
	TransferRef string // external transfer id, set on the pending->paid transition
}

// NewPayoutItem freezes the fee decomposition of a redeemed voucher into a
// pending payout item.
func NewPayoutItem(id string, voucher *Voucher, fees FeeBreakdown) (*PayoutItem, error) {
	if id == "" || voucher == nil || voucher.Status != VoucherStatusRedeemed {
		return nil, domain.ErrInvalidArgument
	}
	rounded := fees.Rounded()
	return &PayoutItem{
		ID:            id,
		VoucherID:     voucher.ID,
		MerchantID:    voucher.MerchantID,
		AmountPayable: rounded.NetToMerchant,
		ProcessorFee:  rounded.ProcessorFee,
		PlatformFee:   rounded.PlatformFee,
		Currency:      voucher.Currency,
		Status:        PayoutItemStatusPending,
		CreatedAt:     time.Now(),
	}, nil
}

// MarkPaid transitions pending->paid. Paid and reversed are terminal.
func (p *PayoutItem) MarkPaid(transferRef string, at time.Time) error {
	if p.Status != PayoutItemStatusPending {
		return domain.ErrPayoutItemFinal
	}
	p.Status = PayoutItemStatusPaid
	p.PaidAt = &at
	p.TransferRef = transferRef
	return nil
}

// Reverse transitions pending->reversed (chargeback or correction).
func (p *PayoutItem) Reverse() error {
	if p.Status != PayoutItemStatusPending {
		return domain.ErrPayoutItemFinal
	}
	p.Status = PayoutItemStatusReversed
	return nil
}
