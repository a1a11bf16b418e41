package db

import (
	"context"
	"time"
)

// Store is the shared counter store facade.
type Store interface {
	Pinger
	CounterStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CounterStore provides integer counters with expiry.
type CounterStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// IncrBy adds val to the counter and returns the new total.
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}
