// File: internal/infra/adapters/transfer/stripe_transfer.go
package transfer

import (
	"context"
	"fmt"

	"brontie-core/internal/domain"
	"brontie-core/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v83"
	stripetransfer "github.com/stripe/stripe-go/v83/transfer"
)

var _ adapter.FundsTransferAdapter = (*StripeTransferAdapter)(nil)

// StripeTransferAdapter moves batch payouts to merchant connected accounts.
type StripeTransferAdapter struct {
	log *zerolog.Logger
}

func NewStripeTransferAdapter(apiKey string, logger *zerolog.Logger) *StripeTransferAdapter {
	stripe.Key = apiKey
	return &StripeTransferAdapter{log: logger}
}

func (a *StripeTransferAdapter) Transfer(ctx context.Context, req adapter.TransferRequest) (*adapter.TransferResult, error) {
	if req.AccountRef == "" {
		return nil, fmt.Errorf("%w: merchant %s has no connected account", domain.ErrInvalidArgument, req.MerchantID)
	}
	cents := req.Amount.Round(2).Mul(decimal.NewFromInt(100)).IntPart()
	if cents <= 0 {
		return nil, fmt.Errorf("%w: non-positive transfer amount %s", domain.ErrInvalidArgument, req.Amount.String())
	}

	params := &stripe.TransferParams{
		Amount:      stripe.Int64(cents),
		Currency:    stripe.String(req.Currency),
		Destination: stripe.String(req.AccountRef),
		Description: stripe.String(req.Description),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)

	t, err := stripetransfer.New(params)
	if err != nil {
		a.log.Error().Err(err).
			Str("merchant_id", req.MerchantID).
			Str("amount", req.Amount.String()).
			Msg("stripe transfer failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}

	a.log.Info().
		Str("merchant_id", req.MerchantID).
		Str("transfer_ref", t.ID).
		Int64("amount_cents", cents).
		Msg("transfer created")

	return &adapter.TransferResult{TransferRef: t.ID}, nil
}
