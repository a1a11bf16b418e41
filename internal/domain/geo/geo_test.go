package geo

import (
	"math"
	"testing"
)

func almost(a, b, eps float64) bool {
	if a > b {
		return a-b < eps
	}
	return b-a < eps
}

func TestHaversine_SamePoint(t *testing.T) {
	d := Haversine(45.9636, -66.6431, 45.9636, -66.6431)
	if d != 0 {
		t.Fatalf("want 0, got %f", d)
	}
}

func TestHaversine_KnownDistance(t *testing.T) {
	// Fredericton -> Moncton, roughly 155 km.
	d := Haversine(45.9636, -66.6431, 46.0878, -64.7782)
	if d < 140_000 || d > 160_000 {
		t.Fatalf("want ~145-155 km, got %f", d)
	}
}

func TestHaversine_Antipodal(t *testing.T) {
	d := Haversine(0, 0, 0, 180)
	want := math.Pi * EarthRadiusMeters
	if !almost(d, want, 1) {
		t.Fatalf("want %f, got %f", want, d)
	}
}

func TestHaversine_Symmetric(t *testing.T) {
	a := Haversine(45.5017, -73.5673, 46.8139, -71.2080)
	b := Haversine(46.8139, -71.2080, 45.5017, -73.5673)
	if !almost(a, b, 1e-6) {
		t.Fatalf("not symmetric: %f vs %f", a, b)
	}
	if a < 0 {
		t.Fatalf("negative distance %f", a)
	}
}

func TestPoint_DistanceTo(t *testing.T) {
	p := Point{Lat: 45.9636, Lng: -66.6431}
	if p.DistanceTo(p) != 0 {
		t.Fatal("distance to self must be 0")
	}
}

func TestNewPoint(t *testing.T) {
	if _, err := NewPoint(45, -66); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NewPoint(91, 0); err == nil {
		t.Fatal("expected error for lat=91")
	}
	if _, err := NewPoint(0, -181); err == nil {
		t.Fatal("expected error for lng=-181")
	}
}

func TestPoint_String(t *testing.T) {
	p := Point{Lat: 45.9636, Lng: -66.6431}
	if got := p.String(); got != "45.963600,-66.643100" {
		t.Fatalf("String() = %q", got)
	}
}

func TestValidateCoordinates(t *testing.T) {
	tests := []struct {
		lat, lon float64
		want     bool
	}{
		{0, 0, true},
		{90, 180, true},
		{-90, -180, true},
		{90.1, 0, false},
		{0, 180.1, false},
	}
	for _, tc := range tests {
		if got := ValidateCoordinates(tc.lat, tc.lon); got != tc.want {
			t.Errorf("ValidateCoordinates(%f, %f) = %v, want %v", tc.lat, tc.lon, got, tc.want)
		}
	}
}
