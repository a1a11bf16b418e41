package pickpoint

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/pickpoint/internal/domain"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	apiKey        string
	baseURL       string
	region        string
	language      string
	country       string
	geocodeSuffix string
	timeout       time.Duration
	httpClient    *http.Client

	search domain.SearchConfig

	dailyLimit   int64
	monthlyLimit int64
	rejectOnCap  bool

	redisAddrs    []string
	redisPassword string

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

func defaultConfig() *clientConfig {
	return &clientConfig{
		region:        "ca",
		language:      "fr",
		country:       "ca",
		geocodeSuffix: ", Canada",
		timeout:       10 * time.Second,
		search:        domain.DefaultSearchConfig(),
	}
}

// WithAPIKey sets the places provider key. Without one every search
// returns the fallback suggestions.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = key
	})
}

// WithBaseURL points the provider client at another host, e.g. a test server.
func WithBaseURL(u string) Option {
	return optionFunc(func(c *clientConfig) {
		c.baseURL = u
	})
}

// WithLocale sets the region bias, result language and country restriction.
// Defaults: ca, fr, ca.
func WithLocale(region, language, country string) Option {
	return optionFunc(func(c *clientConfig) {
		c.region = region
		c.language = language
		c.country = country
	})
}

// WithGeocodeSuffix sets the text appended to anchors before geocoding.
// Default: ", Canada".
func WithGeocodeSuffix(suffix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.geocodeSuffix = suffix
	})
}

// WithHTTPClient replaces the provider HTTP client (and its timeout).
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithTimeout sets the per-request provider timeout. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithDebounce sets how long a session waits after the last keystroke.
// Default: 250ms.
func WithDebounce(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.search.Debounce = d
	})
}

// WithMinLength sets the shortest text, in runes, that triggers a search.
// Default: 3.
func WithMinLength(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.search.MinLength = n
	})
}

// WithMaxResults caps the published candidate list. Default: 12.
func WithMaxResults(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.search.MaxResults = n
	})
}

// WithRadius sets the proximity search and autocomplete bias radii in meters.
// Defaults: 8000 and 30000.
func WithRadius(nearbyM, autocompleteM int) Option {
	return optionFunc(func(c *clientConfig) {
		c.search.NearbyRadiusM = nearbyM
		c.search.AutocompleteRadiusM = autocompleteM
	})
}

// WithAutocomplete makes sessions query provider autocomplete instead of
// one proximity search per category.
func WithAutocomplete() Option {
	return optionFunc(func(c *clientConfig) {
		c.search.Source = domain.SourceAutocomplete
	})
}

// WithBudget caps provider requests per UTC day and month (0 = unlimited).
// With reject set, requests past the cap fail and sessions fall back;
// otherwise they only log a warning.
func WithBudget(daily, monthly int64, reject bool) Option {
	return optionFunc(func(c *clientConfig) {
		c.dailyLimit = daily
		c.monthlyLimit = monthly
		c.rejectOnCap = reject
	})
}

// WithRedis persists budget counters in Redis so they survive restarts and
// are shared between processes.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisAddrs = []string{addr}
		c.redisPassword = password
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
