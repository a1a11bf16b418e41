package aggregate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/pickpoint/internal/domain"
	"github.com/kailas-cloud/pickpoint/internal/domain/geo"
	"github.com/kailas-cloud/pickpoint/internal/domain/place"
	"github.com/kailas-cloud/pickpoint/internal/logger"
)

// Aggregator fans one query out to every public-place category and merges
// what comes back. One failing category never fails the others.
type Aggregator struct {
	searcher    NearbySearcher
	radiusM     int
	maxParallel int
	logger      *zap.Logger
}

// New creates an aggregator. maxParallel <= 0 means one goroutine per category.
func New(searcher NearbySearcher, radiusM, maxParallel int, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{searcher: searcher, radiusM: radiusM, maxParallel: maxParallel, logger: logger}
}

// Search queries each category concurrently under ctx. Results keep category
// order and exclude anything outside the allow-list; duplicates across
// categories are left for ranking. Only when every category fails does it
// return an error wrapping domain.ErrProviderUnavailable.
func (a *Aggregator) Search(
	ctx context.Context, text string, center *geo.Point, categories []string,
) ([]place.Candidate, error) {
	if len(categories) == 0 {
		categories = place.Tags()
	}
	log := logger.FromContextOr(ctx, a.logger)

	perCategory := make([][]place.Candidate, len(categories))
	errs := make([]error, len(categories))

	g := new(errgroup.Group)
	if a.maxParallel > 0 {
		g.SetLimit(a.maxParallel)
	}
	for i, category := range categories {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			found, err := a.searcher.NearbySearch(ctx, domain.NearbyRequest{
				Center:   center,
				Category: category,
				RadiusM:  a.radiusM,
				Keyword:  text,
			})
			if err != nil {
				errs[i] = err
				return nil
			}
			perCategory[i] = keepPublic(found)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}

	var out []place.Candidate
	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			log.Debug("Category search failed", zap.String("category", categories[i]), zap.Error(err))
			continue
		}
		out = append(out, perCategory[i]...)
	}

	if failed == len(categories) {
		return nil, fmt.Errorf("all %d category searches failed: %w",
			failed, errors.Join(domain.ErrProviderUnavailable, errors.Join(errs...)))
	}
	if failed > 0 {
		log.Info("Partial category failure",
			zap.Int("failed", failed), zap.Int("total", len(categories)))
	}
	return out, nil
}

func keepPublic(found []place.Candidate) []place.Candidate {
	out := make([]place.Candidate, 0, len(found))
	for _, c := range found {
		if place.Intersects(c.Categories) {
			out = append(out, c)
		}
	}
	return out
}
