package adapter

import "context"

// EventPublisher emits domain events (voucher.redeemed, payout.paid) to
// interested consumers. Publishing is best-effort: a failed publish is logged
// by the implementation and never fails the originating operation.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
	Close()
}
