package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrAlreadyExists        = errors.New("entity already exists")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrOperationFailed      = errors.New("operation failed")
	ErrInvalidExecContext   = errors.New("invalid execution context")
	ErrReadDatabaseRow      = errors.New("failed to read database row")
	ErrVoucherNotRedeemable = errors.New("voucher is not redeemable")
	ErrPayoutItemFinal      = errors.New("payout item is in a terminal status")
	ErrPayoutLocked         = errors.New("payout batch already running for merchant")
	ErrTransferFailed       = errors.New("funds transfer failed")
)
