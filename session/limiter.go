package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window counter per caller. It only throttles front-end
// traffic; a Redis failure lets the call through.
type Limiter struct {
	rdb    *redis.Client
	window time.Duration
	burst  int64
}

func NewLimiter(rdb *redis.Client, window time.Duration, burst int) *Limiter {
	if window <= 0 {
		window = time.Second
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{rdb: rdb, window: window, burst: int64(burst)}
}

func limitKey(caller string) string { return fmt.Sprintf("tools:rl:%s", caller) }

func (l *Limiter) Allow(ctx context.Context, caller string) bool {
	if l == nil || l.rdb == nil || caller == "" {
		return true
	}
	k := limitKey(caller)
	// SET NX starts the window with its TTL; INCR keeps the TTL.
	pipe := l.rdb.TxPipeline()
	pipe.SetNX(ctx, k, 0, l.window)
	incr := pipe.Incr(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return true
	}
	return incr.Val() <= l.burst
}
