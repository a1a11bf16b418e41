package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pickpoint/internal/domain"
	"github.com/kailas-cloud/pickpoint/internal/domain/geo"
	"github.com/kailas-cloud/pickpoint/internal/domain/place"
	"github.com/kailas-cloud/pickpoint/internal/metrics"
)

// DefaultBaseURL is the Maps web service root.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api"

// Provider status values.
const (
	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

// Operation labels for metrics and logs.
const (
	opGeocode      = "geocode"
	opAutocomplete = "autocomplete"
	opNearby       = "nearby"
	opTextSearch   = "textsearch"
	opDetails      = "details"
)

const detailsFields = "place_id,name,formatted_address,geometry,types,rating,user_ratings_total"

// maxBodyBytes caps a decoded provider response.
const maxBodyBytes = 4 << 20

// Config holds the places client settings.
type Config struct {
	APIKey        string
	BaseURL       string
	Region        string
	Language      string
	Country       string
	GeocodeSuffix string
	Timeout       time.Duration
	HTTPClient    *http.Client
	Logger        *zap.Logger
}

// Client talks to the Maps Places and Geocoding JSON services.
type Client struct {
	apiKey        string
	baseURL       string
	region        string
	language      string
	country       string
	geocodeSuffix string
	http          *http.Client
	logger        *zap.Logger
}

// NewClient creates a places client. An empty APIKey yields a client whose
// every call fails with domain.ErrProviderUnavailable without touching the network.
func NewClient(cfg *Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	l := cfg.Logger
	if l == nil {
		l = zap.NewNop()
	}
	return &Client{
		apiKey:        cfg.APIKey,
		baseURL:       baseURL,
		region:        cfg.Region,
		language:      cfg.Language,
		country:       cfg.Country,
		geocodeSuffix: cfg.GeocodeSuffix,
		http:          hc,
		logger:        l.Named("google"),
	}
}

// Configured reports whether a credential is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Geocode implements domain.Geocoder. The first match wins.
func (c *Client) Geocode(ctx context.Context, address string) (geo.Point, error) {
	q := url.Values{}
	q.Set("address", address+c.geocodeSuffix)
	c.setLocale(q)

	var resp geocodeResponse
	if err := c.get(ctx, opGeocode, "/geocode/json", q, &resp); err != nil {
		return geo.Point{}, err
	}
	if resp.Status == statusZeroResults || len(resp.Results) == 0 || resp.Results[0].Geometry.Location == nil {
		return geo.Point{}, fmt.Errorf("geocode %q: %w", address, domain.ErrGeocodeMiss)
	}

	loc := resp.Results[0].Geometry.Location
	p, err := geo.NewPoint(loc.Lat, loc.Lng)
	if err != nil {
		return geo.Point{}, fmt.Errorf("geocode %q: %w", address, domain.ErrGeocodeMiss)
	}
	return p, nil
}

// Autocomplete returns establishment predictions in provider order.
func (c *Client) Autocomplete(
	ctx context.Context, text string, bias *domain.Bias, sessionToken string,
) ([]place.Stub, error) {
	q := url.Values{}
	q.Set("input", text)
	q.Set("types", "establishment")
	if c.country != "" {
		q.Set("components", "country:"+c.country)
	}
	if sessionToken != "" {
		q.Set("sessiontoken", sessionToken)
	}
	if bias != nil {
		q.Set("location", bias.Center.String())
		q.Set("radius", strconv.Itoa(bias.RadiusM))
	}
	c.setLocale(q)

	var resp autocompleteResponse
	if err := c.get(ctx, opAutocomplete, "/place/autocomplete/json", q, &resp); err != nil {
		return nil, err
	}

	stubs := make([]place.Stub, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		if p.PlaceID == "" {
			continue
		}
		stubs = append(stubs, place.Stub{
			ID:            p.PlaceID,
			MainText:      p.StructuredFormatting.MainText,
			SecondaryText: p.StructuredFormatting.SecondaryText,
			Description:   p.Description,
		})
	}
	return stubs, nil
}

// NearbySearch runs one category search. Without a center it searches the
// whole region by text instead of by proximity.
func (c *Client) NearbySearch(ctx context.Context, req domain.NearbyRequest) ([]place.Candidate, error) {
	q := url.Values{}
	if req.Category != "" {
		q.Set("type", req.Category)
	}
	c.setLocale(q)

	op, path := opNearby, "/place/nearbysearch/json"
	if req.Center != nil {
		q.Set("location", req.Center.String())
		q.Set("radius", strconv.Itoa(req.RadiusM))
		if req.Keyword != "" {
			q.Set("keyword", req.Keyword)
		}
	} else {
		op, path = opTextSearch, "/place/textsearch/json"
		query := req.Keyword
		if query == "" {
			query = strings.ReplaceAll(req.Category, "_", " ")
		}
		q.Set("query", query)
	}

	var resp searchResponse
	if err := c.get(ctx, op, path, q, &resp); err != nil {
		return nil, err
	}

	out := make([]place.Candidate, 0, len(resp.Results))
	for i := range resp.Results {
		out = append(out, toCandidate(&resp.Results[i]))
	}
	return out, nil
}

// Details fetches the full record for a place within the given session.
func (c *Client) Details(ctx context.Context, id, sessionToken string) (place.Details, error) {
	q := url.Values{}
	q.Set("place_id", id)
	q.Set("fields", detailsFields)
	if sessionToken != "" {
		q.Set("sessiontoken", sessionToken)
	}
	c.setLocale(q)

	var resp detailsResponse
	if err := c.get(ctx, opDetails, "/place/details/json", q, &resp); err != nil {
		return place.Details{}, err
	}
	if resp.Status == statusZeroResults {
		return place.Details{}, fmt.Errorf("details %s: empty result: %w", id, domain.ErrProviderUnavailable)
	}

	r := &resp.Result
	d := place.Details{
		ID:          r.PlaceID,
		Name:        r.Name,
		Address:     firstNonEmpty(r.FormattedAddress, r.Vicinity),
		Coordinates: toPoint(r.Geometry.Location),
		Categories:  place.LowerTags(r.Types),
		Rating:      r.Rating,
		RatingCount: r.UserRatingsTotal,
	}
	if d.ID == "" {
		d.ID = id
	}
	return d, nil
}

func (c *Client) setLocale(q url.Values) {
	if c.language != "" {
		q.Set("language", c.language)
	}
	if c.region != "" {
		q.Set("region", c.region)
	}
}

// get performs one GET, decodes the JSON body into out and maps provider
// statuses. ZERO_RESULTS is not an error.
func (c *Client) get(ctx context.Context, op, path string, q url.Values, out interface{ status() (string, string) }) error {
	if c.apiKey == "" {
		metrics.ProviderErrorsTotal.WithLabelValues(op, "no_credential").Inc()
		return fmt.Errorf("%s: %w", op, domain.ErrMissingCredential)
	}
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		// The caller gave up; not a provider failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			metrics.ProviderRequestsTotal.WithLabelValues(op, "canceled").Inc()
			return fmt.Errorf("%s: %w", op, ctxErr)
		}
		return c.fail(op, "transport", fmt.Errorf("%s request: %v: %w", op, redact(err), domain.ErrProviderUnavailable))
	}
	defer func() { _ = resp.Body.Close() }()

	metrics.ProviderRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return c.fail(op, "http_"+strconv.Itoa(resp.StatusCode),
			fmt.Errorf("%s: http %d: %s: %w", op, resp.StatusCode, strings.TrimSpace(string(body)), domain.ErrProviderUnavailable))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", op, ctxErr)
		}
		return c.fail(op, "decode", fmt.Errorf("%s: decode response: %v: %w", op, err, domain.ErrProviderUnavailable))
	}

	status, msg := out.status()
	switch status {
	case statusOK:
		metrics.ProviderRequestsTotal.WithLabelValues(op, "ok").Inc()
		return nil
	case statusZeroResults:
		metrics.ProviderRequestsTotal.WithLabelValues(op, "empty").Inc()
		return nil
	default:
		if status == "" {
			status = "MISSING_STATUS"
		}
		detail := status
		if msg != "" {
			detail = status + ": " + msg
		}
		return c.fail(op, strings.ToLower(status), fmt.Errorf("%s: %s: %w", op, detail, domain.ErrProviderUnavailable))
	}
}

func (c *Client) fail(op, errType string, err error) error {
	metrics.ProviderRequestsTotal.WithLabelValues(op, "error").Inc()
	metrics.ProviderErrorsTotal.WithLabelValues(op, errType).Inc()
	c.logger.Warn("places request failed", zap.String("operation", op), zap.Error(err))
	return err
}

func (e *envelope) status() (string, string) { return e.Status, e.ErrorMessage }

func toCandidate(r *placeResult) place.Candidate {
	id := r.PlaceID
	if id == "" {
		id = r.Name + "-" + r.Vicinity
	}
	return place.Candidate{
		ID:           id,
		Name:         r.Name,
		Address:      firstNonEmpty(r.Vicinity, r.FormattedAddress),
		Coordinates:  toPoint(r.Geometry.Location),
		Categories:   place.LowerTags(r.Types),
		Rating:       r.Rating,
		RatingCount:  r.UserRatingsTotal,
		QualityScore: place.QualityScore(r.Rating, r.UserRatingsTotal),
	}
}

func toPoint(l *location) *geo.Point {
	if l == nil {
		return nil
	}
	p, err := geo.NewPoint(l.Lat, l.Lng)
	if err != nil {
		return nil
	}
	return &p
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// redact strips the query string, which carries the API key, from url errors.
func redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}
