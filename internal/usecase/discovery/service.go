package discovery

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pickpoint/internal/domain"
	"github.com/kailas-cloud/pickpoint/internal/domain/geo"
	"github.com/kailas-cloud/pickpoint/internal/domain/place"
	"github.com/kailas-cloud/pickpoint/internal/logger"
	"github.com/kailas-cloud/pickpoint/internal/metrics"
	"github.com/kailas-cloud/pickpoint/internal/usecase/fallback"
	"github.com/kailas-cloud/pickpoint/internal/usecase/ranking"
)

// Query is one candidate fetch.
type Query struct {
	Text         string
	Anchor       string
	Center       *geo.Point
	SessionToken string
}

// Result is a ranked candidate list ready to publish.
type Result struct {
	Candidates []place.Candidate
	Mode       ranking.Mode
	Fallback   bool
	Reason     fallback.Reason
}

// Service glues aggregation, ranking and the fallback policy together.
type Service struct {
	cfg      domain.SearchConfig
	agg      Aggregator
	provider Provider
	logger   *zap.Logger
}

// New creates a discovery service.
func New(cfg domain.SearchConfig, agg Aggregator, provider Provider, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{cfg: cfg, agg: agg, provider: provider, logger: logger}
}

// Config returns the search settings the service runs with.
func (s *Service) Config() domain.SearchConfig { return s.cfg }

// Search fetches candidates for typed text. Provider failures and empty
// results degrade to the fallback list; cancellation and unexpected errors
// are returned.
func (s *Service) Search(ctx context.Context, q Query) (Result, error) {
	var (
		found []place.Candidate
		mode  ranking.Mode
		err   error
	)

	if s.cfg.Source == domain.SourceAutocomplete {
		found, err = s.autocomplete(ctx, q)
		mode = ranking.ModeRelevance
	} else {
		found, err = s.agg.Search(ctx, q.Text, q.Center, place.Tags())
		if err == nil {
			found = ranking.Rank(found, q.Center, s.cfg.MaxResults)
		}
		mode = ranking.ModeFor(q.Center)
	}

	return s.settle(ctx, found, mode, q.Anchor, q.Center, err)
}

// Suggest lists public places around the anchor before anything is typed.
// Without a center the anchor is geocoded first; a miss yields the fallback.
func (s *Service) Suggest(ctx context.Context, anchor string, center *geo.Point) (Result, error) {
	if center == nil {
		p, err := s.provider.Geocode(ctx, anchor)
		if err != nil {
			return s.settle(ctx, nil, ranking.ModeQuality, anchor, nil, err)
		}
		center = &p
	}

	found, err := s.agg.Search(ctx, "", center, place.Tags())
	if err == nil {
		found = ranking.Rank(found, center, s.cfg.MaxResults)
	}
	return s.settle(ctx, found, ranking.ModeDistance, anchor, center, err)
}

// Nearest returns the closest place of a shortcut kind (train, subway, bus, transit).
func (s *Service) Nearest(ctx context.Context, anchor string, center *geo.Point, kind string) (place.Candidate, error) {
	category, ok := place.KindCategory(kind)
	if !ok {
		return place.Candidate{}, fmt.Errorf("%w: %q", domain.ErrUnknownKind, kind)
	}

	if center == nil {
		p, err := s.provider.Geocode(ctx, anchor)
		if err != nil {
			return place.Candidate{}, fmt.Errorf("locate %q: %w", anchor, err)
		}
		center = &p
	}

	found, err := s.agg.Search(ctx, "", center, []string{category})
	if err != nil {
		return place.Candidate{}, fmt.Errorf("nearest %s: %w", kind, err)
	}
	ranked := ranking.Rank(found, center, 1)
	if len(ranked) == 0 || ranked[0].DistanceMeters == nil {
		return place.Candidate{}, fmt.Errorf("nearest %s: %w", kind, domain.ErrNoCandidates)
	}
	return ranked[0], nil
}

func (s *Service) autocomplete(ctx context.Context, q Query) ([]place.Candidate, error) {
	var bias *domain.Bias
	if q.Center != nil {
		bias = &domain.Bias{Center: *q.Center, RadiusM: s.cfg.AutocompleteRadiusM}
	}
	stubs, err := s.provider.Autocomplete(ctx, q.Text, bias, q.SessionToken)
	if err != nil {
		return nil, err
	}
	found := make([]place.Candidate, 0, len(stubs))
	for _, st := range stubs {
		found = append(found, st.ToCandidate())
	}
	return ranking.Keep(found, s.cfg.MaxResults), nil
}

func (s *Service) settle(
	ctx context.Context, found []place.Candidate, mode ranking.Mode,
	anchor string, center *geo.Point, err error,
) (Result, error) {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Result{}, err
		}
		if !fallback.Applies(err) {
			return Result{}, err
		}
	} else if len(found) > 0 {
		return Result{Candidates: found, Mode: mode}, nil
	}

	reason := fallback.ReasonFor(err)
	metrics.FallbacksTotal.WithLabelValues(string(reason)).Inc()
	logger.FromContextOr(ctx, s.logger).Info("Showing fallback suggestions",
		zap.String("anchor", anchor), zap.String("reason", string(reason)), zap.Error(err))

	// Fallbacks are a fixed list, never ranked, so they report no mode.
	return Result{
		Candidates: fallback.Candidates(anchor, center),
		Fallback:   true,
		Reason:     reason,
	}, nil
}
