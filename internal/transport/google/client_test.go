package google

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pickpoint/internal/domain"
	"github.com/kailas-cloud/pickpoint/internal/domain/geo"
	"github.com/kailas-cloud/pickpoint/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterProviderMetrics()
	os.Exit(m.Run())
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(&Config{
		APIKey:        "test-key",
		BaseURL:       srv.URL,
		Region:        "ca",
		Language:      "fr",
		Country:       "ca",
		GeocodeSuffix: ", Canada",
		Logger:        zap.NewNop(),
	})
}

func writeBody(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func TestGeocode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/geocode/json" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("address") != "Moncton, Canada" {
			t.Errorf("address = %q", q.Get("address"))
		}
		if q.Get("region") != "ca" || q.Get("language") != "fr" || q.Get("key") != "test-key" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		writeBody(w, `{"status":"OK","results":[{"geometry":{"location":{"lat":46.0878,"lng":-64.7782}}}]}`)
	})

	p, err := c.Geocode(context.Background(), "Moncton")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if p.Lat != 46.0878 || p.Lng != -64.7782 {
		t.Errorf("unexpected point: %+v", p)
	}
}

func TestGeocode_ZeroResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeBody(w, `{"status":"ZERO_RESULTS","results":[]}`)
	})

	_, err := c.Geocode(context.Background(), "Nowhere")
	if !errors.Is(err, domain.ErrGeocodeMiss) {
		t.Fatalf("expected ErrGeocodeMiss, got %v", err)
	}
}

func TestStatusMapping(t *testing.T) {
	for _, status := range []string{"REQUEST_DENIED", "OVER_QUERY_LIMIT", "INVALID_REQUEST", "UNKNOWN_ERROR"} {
		t.Run(status, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				writeBody(w, `{"status":"`+status+`","error_message":"nope","results":[]}`)
			})
			_, err := c.NearbySearch(context.Background(), domain.NearbyRequest{Category: "bus_station"})
			if !errors.Is(err, domain.ErrProviderUnavailable) {
				t.Fatalf("expected ErrProviderUnavailable, got %v", err)
			}
			if !strings.Contains(err.Error(), status) {
				t.Errorf("error should carry status: %v", err)
			}
		})
	}
}

func TestHTTPErrorIsUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	_, err := c.Details(context.Background(), "abc", "tok")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestMalformedJSONIsUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeBody(w, `{"status":`)
	})
	_, err := c.Autocomplete(context.Background(), "gare", nil, "")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestMissingCredential(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) { called = true }))
	defer srv.Close()

	c := NewClient(&Config{BaseURL: srv.URL})
	if c.Configured() {
		t.Fatal("client without key must not report configured")
	}
	_, err := c.Geocode(context.Background(), "Moncton")
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if called {
		t.Error("no request may leave without a credential")
	}
}

func TestAutocomplete(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/place/autocomplete/json" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if q.Get("input") != "gare" || q.Get("sessiontoken") != "tok-1" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		if q.Get("components") != "country:ca" || q.Get("types") != "establishment" {
			t.Errorf("unexpected filters: %s", r.URL.RawQuery)
		}
		if q.Get("location") != "45.963600,-66.643100" || q.Get("radius") != "30000" {
			t.Errorf("unexpected bias: location=%s radius=%s", q.Get("location"), q.Get("radius"))
		}
		writeBody(w, `{"status":"OK","predictions":[
			{"place_id":"p1","description":"Gare, Fredericton","structured_formatting":{"main_text":"Gare","secondary_text":"Fredericton"}},
			{"place_id":"","description":"orphan"},
			{"place_id":"p2","description":"Gare routière"}
		]}`)
	})

	bias := &domain.Bias{Center: geo.Point{Lat: 45.9636, Lng: -66.6431}, RadiusM: 30000}
	stubs, err := c.Autocomplete(context.Background(), "gare", bias, "tok-1")
	if err != nil {
		t.Fatalf("Autocomplete: %v", err)
	}
	if len(stubs) != 2 {
		t.Fatalf("expected 2 stubs, got %d", len(stubs))
	}
	if stubs[0].ID != "p1" || stubs[0].MainText != "Gare" || stubs[0].SecondaryText != "Fredericton" {
		t.Errorf("unexpected first stub: %+v", stubs[0])
	}
	if stubs[1].ToCandidate().Name != "Gare routière" {
		t.Errorf("description must back a missing main text: %+v", stubs[1])
	}
}

func TestNearbySearch_WithCenter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/place/nearbysearch/json" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if q.Get("type") != "bus_station" || q.Get("radius") != "8000" || q.Get("keyword") != "terminus" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		writeBody(w, `{"status":"OK","results":[
			{"place_id":"b1","name":"Terminus","vicinity":"1 Rue King","types":["Bus_Station","establishment"],
			 "geometry":{"location":{"lat":45.96,"lng":-66.64}},"rating":4.2,"user_ratings_total":10},
			{"name":"Arrêt","vicinity":"Main St","types":["bus_station"]}
		]}`)
	})

	center := geo.Point{Lat: 45.9636, Lng: -66.6431}
	got, err := c.NearbySearch(context.Background(), domain.NearbyRequest{
		Center: &center, Category: "bus_station", RadiusM: 8000, Keyword: "terminus",
	})
	if err != nil {
		t.Fatalf("NearbySearch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].Coordinates == nil || got[0].Categories[0] != "bus_station" {
		t.Errorf("unexpected first candidate: %+v", got[0])
	}
	if got[0].QualityScore <= 0 {
		t.Error("quality score should be computed")
	}
	if got[1].ID != "Arrêt-Main St" {
		t.Errorf("missing place_id should synthesize name-vicinity, got %q", got[1].ID)
	}
	if got[1].Coordinates != nil {
		t.Error("result without geometry must have nil coordinates")
	}
}

func TestNearbySearch_NoCenterUsesTextSearch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/place/textsearch/json" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if q.Get("query") != "train station" || q.Get("type") != "train_station" || q.Has("location") {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		writeBody(w, `{"status":"ZERO_RESULTS","results":[]}`)
	})

	got, err := c.NearbySearch(context.Background(), domain.NearbyRequest{Category: "train_station"})
	if err != nil {
		t.Fatalf("ZERO_RESULTS is not an error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no candidates, got %d", len(got))
	}
}

func TestDetails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("place_id") != "p1" || q.Get("sessiontoken") != "tok" || q.Get("fields") != detailsFields {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		writeBody(w, `{"status":"OK","result":{"place_id":"p1","name":"Gare","formatted_address":"1 Rue, Moncton",
			"geometry":{"location":{"lat":46.1,"lng":-64.8}},"types":["TRAIN_STATION"]}}`)
	})

	d, err := c.Details(context.Background(), "p1", "tok")
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if d.Coordinates == nil || d.Address != "1 Rue, Moncton" || d.Categories[0] != "train_station" {
		t.Errorf("unexpected details: %+v", d)
	}
}

func TestCanceledContextIsNotProviderFailure(t *testing.T) {
	block := make(chan struct{})
	c := newTestClient(t, func(_ http.ResponseWriter, _ *http.Request) {
		<-block
	})
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Geocode(ctx, "Moncton")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if errors.Is(err, domain.ErrProviderUnavailable) {
		t.Error("cancellation must not look like an outage")
	}
}

func TestRedactDropsKey(t *testing.T) {
	c := NewClient(&Config{APIKey: "secret-key", BaseURL: "http://127.0.0.1:1"})
	_, err := c.Geocode(context.Background(), "x")
	if err == nil {
		t.Fatal("expected connection error")
	}
	if strings.Contains(err.Error(), "secret-key") {
		t.Errorf("error leaks credential: %v", err)
	}
}
