package adapter

import (
	"context"
	"time"
)

// Locker is a distributed mutual-exclusion primitive. The payout batch manager
// takes a per-merchant lock so two instances never run the same merchant's
// batch concurrently.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
