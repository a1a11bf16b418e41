package pickpoint

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/pickpoint/internal/db/redis"
	"github.com/kailas-cloud/pickpoint/internal/domain/geo"
	"github.com/kailas-cloud/pickpoint/internal/domain/place"
	budgetrepo "github.com/kailas-cloud/pickpoint/internal/repository/budget"
	"github.com/kailas-cloud/pickpoint/internal/transport/google"
	"github.com/kailas-cloud/pickpoint/internal/usecase/aggregate"
	budgetuc "github.com/kailas-cloud/pickpoint/internal/usecase/budget"
	"github.com/kailas-cloud/pickpoint/internal/usecase/discovery"
	healthuc "github.com/kailas-cloud/pickpoint/internal/usecase/health"
	provideruc "github.com/kailas-cloud/pickpoint/internal/usecase/provider"
	"github.com/kailas-cloud/pickpoint/internal/usecase/selection"
	sessionuc "github.com/kailas-cloud/pickpoint/internal/usecase/session"
	usageuc "github.com/kailas-cloud/pickpoint/internal/usecase/usage"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	providerName            = "google"
)

// Internal interfaces for substitution in tests.
type discoveryUseCase interface {
	Suggest(ctx context.Context, anchor string, center *geo.Point) (discovery.Result, error)
	Nearest(ctx context.Context, anchor string, center *geo.Point, kind string) (place.Candidate, error)
}

// Client is the pickpoint SDK entry point. It is safe for concurrent use;
// sessions it opens are independent of each other.
type Client struct {
	store     *dbRedis.Store
	discovery discoveryUseCase
	deps      sessionuc.Deps
	healthSvc healthUseCase
	usageSvc  usageUseCase
	obs       *observer
}

// New creates a Client. The context bounds the Redis readiness check when
// WithRedis is used; nothing else touches the network until the first search.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	action := budgetuc.ActionWarn
	if cfg.rejectOnCap {
		action = budgetuc.ActionReject
	}
	budget := budgetuc.NewTracker(providerName, cfg.dailyLimit, cfg.monthlyLimit, action, nil)

	var store *dbRedis.Store
	if len(cfg.redisAddrs) > 0 {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.redisAddrs,
			Password: cfg.redisPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("pickpoint: create redis store: %w", err)
		}
		if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("pickpoint: redis not ready: %w", err)
		}
		budget.WithStore(ctx, budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour))
	}

	return wireClient(cfg, store, budget, obs), nil
}

func wireClient(cfg *clientConfig, store *dbRedis.Store, budget *budgetuc.Tracker, obs *observer) *Client {
	// Internal layers log through zap; SDK users see slog output from the observer.
	log := zap.NewNop()

	client := google.NewClient(&google.Config{
		APIKey:        cfg.apiKey,
		BaseURL:       cfg.baseURL,
		Region:        cfg.region,
		Language:      cfg.language,
		Country:       cfg.country,
		GeocodeSuffix: cfg.geocodeSuffix,
		Timeout:       cfg.timeout,
		HTTPClient:    cfg.httpClient,
		Logger:        log,
	})
	provider := provideruc.NewInstrumented(client, providerName, budget, log)

	search := cfg.search
	aggregator := aggregate.New(provider, search.NearbyRadiusM, search.MaxParallel, log)
	disc := discovery.New(search, aggregator, provider, log)

	var pinger healthuc.DBPinger
	if store != nil {
		pinger = store
	}

	return &Client{
		store:     store,
		discovery: disc,
		deps: sessionuc.Deps{
			Searcher:  disc,
			Validator: selection.New(provider, log),
			Geocoder:  provider,
			Config:    search,
			Logger:    log,
		},
		healthSvc: healthuc.New(pinger, client, budget),
		usageSvc:  usageuc.New(budget),
		obs:       obs,
	}
}

// Close releases all resources. Open sessions keep working until closed,
// but budget counters are no longer persisted.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Suggest lists public places around anchor (a city or address) before
// anything is typed. Provider trouble yields the fallback list, not an error.
func (c *Client) Suggest(ctx context.Context, anchor string) (Suggestions, error) {
	return c.suggest(ctx, anchor, nil)
}

// SuggestNear lists public places around p, e.g. the device location.
func (c *Client) SuggestNear(ctx context.Context, anchor string, p Point) (Suggestions, error) {
	if !geo.ValidateCoordinates(p.Lat, p.Lng) {
		return Suggestions{}, fmt.Errorf("%w: lat=%f lng=%f", ErrInvalidCoordinates, p.Lat, p.Lng)
	}
	center := p.toGeo()
	return c.suggest(ctx, anchor, &center)
}

func (c *Client) suggest(ctx context.Context, anchor string, center *geo.Point) (_ Suggestions, err error) {
	start := time.Now()
	defer func() { c.obs.observe("suggest", start, err) }()

	res, err := c.discovery.Suggest(ctx, anchor, center)
	if err != nil {
		return Suggestions{}, fmt.Errorf("suggest: %w", err)
	}
	if res.Fallback {
		c.obs.fallback("suggest", string(res.Reason))
	}
	return Suggestions{
		Candidates: candidatesFromDomain(res.Candidates),
		Fallback:   res.Fallback,
		Reason:     string(res.Reason),
	}, nil
}

// Nearest returns the closest place of kind ("train", "subway", "bus" or
// "transit") to near, or to the geocoded anchor when near is nil.
func (c *Client) Nearest(ctx context.Context, anchor string, near *Point, kind string) (_ Candidate, err error) {
	start := time.Now()
	defer func() { c.obs.observe("nearest", start, err) }()

	var center *geo.Point
	if near != nil {
		p := near.toGeo()
		center = &p
	}
	found, err := c.discovery.Nearest(ctx, anchor, center, kind)
	if err != nil {
		return Candidate{}, fmt.Errorf("nearest: %w", err)
	}
	return candidateFromDomain(found), nil
}
