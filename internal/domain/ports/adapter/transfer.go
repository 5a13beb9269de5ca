package adapter

import (
	"context"

	"github.com/shopspring/decimal"
)

// TransferRequest asks the external rail to move one merchant batch's funds.
// The idempotency key makes a retried request a no-op on the provider side,
// so a crash between transfer and status recording cannot double-pay.
type TransferRequest struct {
	MerchantID     string
	AccountRef     string
	Amount         decimal.Decimal
	Currency       string
	IdempotencyKey string
	Description    string
}

type TransferResult struct {
	TransferRef string
}

// FundsTransferAdapter executes payout transfers. Implementations must be safe
// for concurrent use; the batch manager serializes per merchant, not globally.
type FundsTransferAdapter interface {
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
}
