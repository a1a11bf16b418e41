package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pickpoint/internal/domain"
	"github.com/kailas-cloud/pickpoint/internal/domain/geo"
	"github.com/kailas-cloud/pickpoint/internal/domain/place"
	"github.com/kailas-cloud/pickpoint/internal/metrics"
)

// BudgetChecker is the local interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(n int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// Instrumented wraps a PlacesProvider with budget enforcement, per-request
// usage counting and logging. Transport metrics live in transport/google.
type Instrumented struct {
	inner    domain.PlacesProvider
	provider string
	budget   BudgetChecker
	logger   *zap.Logger
}

var _ domain.PlacesProvider = (*Instrumented)(nil)

// NewInstrumented wraps inner. budget may be nil (unlimited).
func NewInstrumented(inner domain.PlacesProvider, provider string, budget BudgetChecker, logger *zap.Logger) *Instrumented {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Instrumented{inner: inner, provider: provider, budget: budget, logger: logger}
}

// Geocode implements domain.Geocoder.
func (p *Instrumented) Geocode(ctx context.Context, address string) (geo.Point, error) {
	return call(ctx, p, "geocode", func() (geo.Point, error) {
		return p.inner.Geocode(ctx, address)
	})
}

// Autocomplete implements domain.PlacesProvider.
func (p *Instrumented) Autocomplete(
	ctx context.Context, text string, bias *domain.Bias, sessionToken string,
) ([]place.Stub, error) {
	return call(ctx, p, "autocomplete", func() ([]place.Stub, error) {
		return p.inner.Autocomplete(ctx, text, bias, sessionToken)
	})
}

// NearbySearch implements domain.PlacesProvider.
func (p *Instrumented) NearbySearch(ctx context.Context, req domain.NearbyRequest) ([]place.Candidate, error) {
	return call(ctx, p, "nearby", func() ([]place.Candidate, error) {
		return p.inner.NearbySearch(ctx, req)
	})
}

// Details implements domain.PlacesProvider.
func (p *Instrumented) Details(ctx context.Context, id, sessionToken string) (place.Details, error) {
	return call(ctx, p, "details", func() (place.Details, error) {
		return p.inner.Details(ctx, id, sessionToken)
	})
}

func call[T any](ctx context.Context, p *Instrumented, op string, fn func() (T, error)) (T, error) {
	var zero T

	if p.budget != nil {
		if err := p.budget.Check(ctx); err != nil {
			p.logger.Error("Budget exceeded",
				zap.String("provider", p.provider),
				zap.String("operation", op),
				zap.Error(err),
			)
			return zero, fmt.Errorf("budget check: %w", err)
		}
	}

	start := time.Now()
	res, err := fn()
	duration := time.Since(start)

	if billable(err) {
		domain.UsageFromContext(ctx).AddCall()
		p.record()
	}

	if err != nil {
		if isCancel(err) {
			p.logger.Debug("Places request cancelled",
				zap.String("operation", op),
				zap.Duration("duration", duration),
			)
			return zero, fmt.Errorf("%s: %w", op, err)
		}
		p.logger.Warn("Places request failed",
			zap.String("provider", p.provider),
			zap.String("operation", op),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return zero, fmt.Errorf("%s: %w", op, err)
	}

	p.logger.Debug("Places request completed",
		zap.String("provider", p.provider),
		zap.String("operation", op),
		zap.Duration("duration", duration),
	)
	return res, nil
}

func (p *Instrumented) record() {
	if p.budget == nil {
		return
	}
	p.budget.Record(1)
	remaining := metrics.ProviderBudgetRequestsRemaining
	remaining.WithLabelValues(p.provider, "daily").Set(float64(p.budget.RemainingDaily()))
	remaining.WithLabelValues(p.provider, "monthly").Set(float64(p.budget.RemainingMonthly()))
}

// billable reports whether the request reached the provider.
func billable(err error) bool {
	return err == nil || !(isCancel(err) || errors.Is(err, domain.ErrMissingCredential))
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
