package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/pickpoint/internal/domain"
	"github.com/kailas-cloud/pickpoint/internal/domain/geo"
	"github.com/kailas-cloud/pickpoint/internal/domain/place"
	"github.com/kailas-cloud/pickpoint/internal/usecase/discovery"
	healthuc "github.com/kailas-cloud/pickpoint/internal/usecase/health"
	"github.com/kailas-cloud/pickpoint/internal/usecase/selection"
	sessionuc "github.com/kailas-cloud/pickpoint/internal/usecase/session"
	usageuc "github.com/kailas-cloud/pickpoint/internal/usecase/usage"
)

var fredericton = geo.Point{Lat: 45.9636, Lng: -66.6431}

type stubAggregator struct {
	found []place.Candidate
	err   error
}

func (s *stubAggregator) Search(
	_ context.Context, _ string, _ *geo.Point, categories []string,
) ([]place.Candidate, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []place.Candidate
	for _, c := range s.found {
		for _, want := range categories {
			if len(c.Categories) > 0 && c.Categories[0] == want {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

type stubProvider struct {
	geocodeErr error
}

func (s *stubProvider) Geocode(_ context.Context, _ string) (geo.Point, error) {
	if s.geocodeErr != nil {
		return geo.Point{}, s.geocodeErr
	}
	return fredericton, nil
}

func (s *stubProvider) Autocomplete(
	_ context.Context, _ string, _ *domain.Bias, _ string,
) ([]place.Stub, error) {
	return nil, nil
}

type stubValidator struct{}

func (stubValidator) Validate(_ context.Context, c place.Candidate, _ string) (place.Selected, error) {
	if c.ID == "home" {
		return place.Selected{}, domain.NewPlaceError(domain.ErrInvalidPlace, c.ID, selection.ReasonNotPublic)
	}
	if c.ID == "broken" {
		return place.Selected{}, domain.NewPlaceError(domain.ErrLookupFailed, c.ID, selection.ReasonLookupFailed)
	}
	return place.NewSelected(c.ID, c.Name, c.Address, *c.Coordinates, c.Categories), nil
}

type configuredProvider bool

func (c configuredProvider) Configured() bool { return bool(c) }

func newTestRouter(t *testing.T, agg *stubAggregator, prov *stubProvider) http.Handler {
	t.Helper()
	cfg := domain.DefaultSearchConfig()
	cfg.Debounce = 10 * time.Millisecond

	disc := discovery.New(cfg, agg, prov, nil)
	reg := sessionuc.NewRegistry(sessionuc.Deps{
		Searcher:  disc,
		Validator: stubValidator{},
		Geocoder:  prov,
		Config:    cfg,
	}, time.Minute, 10, nil)
	srv := NewServer(reg, disc, usageuc.New(nil), healthuc.New(nil, configuredProvider(true), nil), nil)

	r := chi.NewRouter()
	srv.Routes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode %s: %v", rr.Body.String(), err)
	}
	return v
}

func station(id string, lat, lng float64) place.Candidate {
	return place.Candidate{
		ID:          id,
		Name:        "Station " + id,
		Coordinates: &geo.Point{Lat: lat, Lng: lng},
		Categories:  []string{"bus_station"},
	}
}

func openSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/v1/sessions", OpenSessionRequest{Anchor: "Fredericton"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("open: got %d: %s", rr.Code, rr.Body.String())
	}
	return decode[sessionuc.Snapshot](t, rr).SessionID
}

func waitSettled(t *testing.T, h http.Handler, id string) sessionuc.Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := decode[sessionuc.Snapshot](t, do(t, h, http.MethodGet, "/v1/sessions/"+id, nil))
		if snap.State == sessionuc.StateSettled || snap.State == sessionuc.StateFailed {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("session did not settle")
	return sessionuc.Snapshot{}
}

func TestHealthCheck(t *testing.T) {
	h := newTestRouter(t, &stubAggregator{}, &stubProvider{})
	rr := do(t, h, http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	resp := decode[HealthResponse](t, rr)
	if resp.Status != "ok" || resp.Checks["provider"] != "ok" {
		t.Fatalf("unexpected %+v", resp)
	}
}

func TestSessionLifecycle(t *testing.T) {
	agg := &stubAggregator{found: []place.Candidate{station("a", 45.96, -66.64), station("home", 45.97, -66.65)}}
	h := newTestRouter(t, agg, &stubProvider{})
	id := openSession(t, h)

	rr := do(t, h, http.MethodPut, "/v1/sessions/"+id+"/text", TextRequest{Text: "station"})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("text: got %d", rr.Code)
	}
	snap := waitSettled(t, h, id)
	if len(snap.Candidates) != 2 || snap.Candidates[0].ID != "a" {
		t.Fatalf("unexpected candidates %+v", snap.Candidates)
	}

	rr = do(t, h, http.MethodPost, "/v1/sessions/"+id+"/select", SelectRequest{CandidateID: "a"})
	if rr.Code != http.StatusOK {
		t.Fatalf("select: got %d: %s", rr.Code, rr.Body.String())
	}
	sel := decode[SelectedPlaceResponse](t, rr)
	if sel.ID != "a" || sel.Label != "Station a" {
		t.Fatalf("unexpected selection %+v", sel)
	}

	rr = do(t, h, http.MethodDelete, "/v1/sessions/"+id, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("close: got %d", rr.Code)
	}
	rr = do(t, h, http.MethodGet, "/v1/sessions/"+id, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get after close: got %d", rr.Code)
	}
	if decode[ErrorResponse](t, rr).Code != CodeSessionNotFound {
		t.Error("expected session_not_found")
	}
}

func TestSelect_RejectionCodes(t *testing.T) {
	tests := []struct {
		id     string
		status int
		code   ErrorCode
		msg    string
	}{
		{"home", http.StatusUnprocessableEntity, CodeInvalidPlace, selection.ReasonNotPublic},
		{"broken", http.StatusBadGateway, CodeLookupFailed, selection.ReasonLookupFailed},
	}
	for _, tc := range tests {
		t.Run(tc.id, func(t *testing.T) {
			agg := &stubAggregator{found: []place.Candidate{station(tc.id, 45.96, -66.64)}}
			h := newTestRouter(t, agg, &stubProvider{})
			id := openSession(t, h)

			do(t, h, http.MethodPut, "/v1/sessions/"+id+"/text", TextRequest{Text: "station"})
			waitSettled(t, h, id)

			rr := do(t, h, http.MethodPost, "/v1/sessions/"+id+"/select", SelectRequest{CandidateID: tc.id})
			if rr.Code != tc.status {
				t.Fatalf("got %d, want %d", rr.Code, tc.status)
			}
			resp := decode[ErrorResponse](t, rr)
			if resp.Code != tc.code || resp.Message != tc.msg {
				t.Fatalf("unexpected %+v", resp)
			}

			snap := decode[sessionuc.Snapshot](t, do(t, h, http.MethodGet, "/v1/sessions/"+id, nil))
			if len(snap.Candidates) != 0 {
				t.Error("rejection must clear candidates")
			}
		})
	}
}

func TestOpenSession_Validation(t *testing.T) {
	h := newTestRouter(t, &stubAggregator{}, &stubProvider{})
	lat := 95.0
	lng := 10.0

	tests := map[string]OpenSessionRequest{
		"missing anchor": {},
		"bad latitude":   {Anchor: "X", Lat: &lat, Lng: &lng},
		"lat only":       {Anchor: "X", Lng: &lng},
	}
	for name, req := range tests {
		if rr := do(t, h, http.MethodPost, "/v1/sessions", req); rr.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d", name, rr.Code)
		}
	}
}

func TestUseLocation(t *testing.T) {
	agg := &stubAggregator{found: []place.Candidate{station("near", 46.09, -64.78)}}
	h := newTestRouter(t, agg, &stubProvider{})
	id := openSession(t, h)

	lat, lng := 46.09, -64.78
	rr := do(t, h, http.MethodPost, "/v1/sessions/"+id+"/location", LocationRequest{Lat: &lat, Lng: &lng})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("location: got %d", rr.Code)
	}
	snap := waitSettled(t, h, id)
	if len(snap.Candidates) != 1 || snap.Candidates[0].DistanceMeters == nil {
		t.Fatalf("unexpected %+v", snap.Candidates)
	}

	rr = do(t, h, http.MethodPost, "/v1/sessions/"+id+"/location", LocationRequest{Lat: &lat})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing lng: got %d", rr.Code)
	}
}

func TestClearSession(t *testing.T) {
	h := newTestRouter(t, &stubAggregator{}, &stubProvider{})
	id := openSession(t, h)
	do(t, h, http.MethodPut, "/v1/sessions/"+id+"/text", TextRequest{Text: "gare"})

	rr := do(t, h, http.MethodPost, "/v1/sessions/"+id+"/clear", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("clear: got %d", rr.Code)
	}
	if snap := decode[sessionuc.Snapshot](t, rr); snap.State != sessionuc.StateIdle || snap.Text != "" {
		t.Fatalf("unexpected %+v", snap)
	}
}

func TestSuggestions_GeocodeMissFallback(t *testing.T) {
	h := newTestRouter(t, &stubAggregator{}, &stubProvider{geocodeErr: domain.ErrGeocodeMiss})

	rr := do(t, h, http.MethodGet, "/v1/suggestions?anchor=Nowhere", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	resp := decode[SuggestionsResponse](t, rr)
	if !resp.Fallback || resp.Reason != "geocode_miss" || len(resp.Candidates) != 3 {
		t.Fatalf("unexpected %+v", resp)
	}
}

func TestSuggestions_Validation(t *testing.T) {
	h := newTestRouter(t, &stubAggregator{}, &stubProvider{})
	for _, path := range []string{"/v1/suggestions", "/v1/suggestions?anchor=X&lat=abc&lng=1"} {
		if rr := do(t, h, http.MethodGet, path, nil); rr.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d", path, rr.Code)
		}
	}
}

func TestNearest(t *testing.T) {
	train := station("gare", 45.964, -66.643)
	train.Categories = []string{"train_station"}
	agg := &stubAggregator{found: []place.Candidate{station("bus", 45.9636, -66.6431), train}}
	h := newTestRouter(t, agg, &stubProvider{})

	rr := do(t, h, http.MethodGet, "/v1/nearest?kind=train&lat=45.9636&lng=-66.6431", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	if c := decode[place.Candidate](t, rr); c.ID != "gare" {
		t.Fatalf("nearest = %s", c.ID)
	}

	if rr := do(t, h, http.MethodGet, "/v1/nearest?kind=ferry&anchor=X", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("unknown kind: got %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/v1/nearest?kind=subway&anchor=X", nil); rr.Code != http.StatusNotFound {
		t.Errorf("no results: got %d", rr.Code)
	}
}

func TestNearest_ProviderDown(t *testing.T) {
	h := newTestRouter(t, &stubAggregator{err: domain.ErrQuotaExceeded}, &stubProvider{})
	rr := do(t, h, http.MethodGet, "/v1/nearest?kind=bus&anchor=X", nil)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("got %d", rr.Code)
	}
	if decode[ErrorResponse](t, rr).Code != CodeQuotaExceeded {
		t.Error("expected quota_exceeded")
	}
}

func TestGetUsage(t *testing.T) {
	h := newTestRouter(t, &stubAggregator{}, &stubProvider{})

	rr := do(t, h, http.MethodGet, "/v1/usage?period=month", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	resp := decode[UsageResponse](t, rr)
	if resp.Period != "month" || resp.Budget.RequestsRemaining != -1 {
		t.Fatalf("unexpected %+v", resp)
	}

	if rr := do(t, h, http.MethodGet, "/v1/usage?period=week", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("invalid period: got %d", rr.Code)
	}
}
