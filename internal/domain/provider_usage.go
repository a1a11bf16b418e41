package domain

import (
	"context"
	"sync/atomic"
)

type providerUsageKey struct{}

// ProviderUsage counts places provider calls made while serving one request.
// Category searches run concurrently, so the counter is atomic.
type ProviderUsage struct {
	calls atomic.Int64
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *ProviderUsage) {
	u := &ProviderUsage{}
	return context.WithValue(ctx, providerUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *ProviderUsage {
	u, _ := ctx.Value(providerUsageKey{}).(*ProviderUsage)
	return u
}

// AddCall records one provider call.
func (u *ProviderUsage) AddCall() {
	if u != nil {
		u.calls.Add(1)
	}
}

// Calls returns the number of recorded provider calls.
func (u *ProviderUsage) Calls() int64 {
	if u == nil {
		return 0
	}
	return u.calls.Load()
}
