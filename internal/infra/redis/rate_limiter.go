package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter is an injected collaborator so request caps survive
// multi-instance deployment, unlike a process-local counter map.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		err = r.client.Expire(ctx, key, window)
		if err != nil {
			return false, err
		}
	}

	if count > int64(limit) {
		return false, nil
	}

	return true, nil
}

func ClientEndpointKey(client, endpoint string) string {
	return fmt.Sprintf("rate_limit:%s:%s", client, endpoint)
}
