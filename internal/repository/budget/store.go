package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/pickpoint/internal/db"
)

// store is the consumer interface for budget operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store persists request counters in redis (INCRBY + GET with TTL).
type Store struct {
	store    store
	dailyTTL time.Duration
	monthTTL time.Duration
}

// New creates a budget store. Daily keys outlive their day by dailyTTL
// (48h is plenty), monthly keys by monthTTL (62 days).
func New(s store, dailyTTL, monthTTL time.Duration) *Store {
	return &Store{
		store:    s,
		dailyTTL: dailyTTL,
		monthTTL: monthTTL,
	}
}

// IncrBy adds val to the counter, arms its TTL once and returns the shared total.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) (int64, error) {
	total, err := s.store.IncrBy(ctx, key, val)
	if err != nil {
		return 0, fmt.Errorf("budget INCRBY %s: %w", key, err)
	}

	// NX keeps the first expiry so the window never slides.
	if err := s.store.Expire(ctx, key, s.ttlForKey(key), true); err != nil {
		return total, fmt.Errorf("budget EXPIRE %s: %w", key, err)
	}
	return total, nil
}

// Get returns the current counter. A missing key reads as 0.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("budget GET %s: %w", key, err)
	}

	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget GET %s parse: %w", key, err)
	}
	return val, nil
}

// ttlForKey picks the TTL from the key shape: {prefix}budget:{provider}:daily:... or :monthly:...
func (s *Store) ttlForKey(key string) time.Duration {
	if strings.Contains(key, ":daily:") {
		return s.dailyTTL
	}
	return s.monthTTL
}
