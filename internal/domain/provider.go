package domain

import (
	"context"

	"github.com/kailas-cloud/pickpoint/internal/domain/geo"
	"github.com/kailas-cloud/pickpoint/internal/domain/place"
)

// Geocoder resolves a free-text address to a point.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (geo.Point, error)
}

// PlacesProvider is the shared contract for the external places service.
type PlacesProvider interface {
	Geocoder
	Autocomplete(ctx context.Context, text string, bias *Bias, sessionToken string) ([]place.Stub, error)
	NearbySearch(ctx context.Context, req NearbyRequest) ([]place.Candidate, error)
	Details(ctx context.Context, id, sessionToken string) (place.Details, error)
}

// Bias restricts autocomplete predictions to a circle.
type Bias struct {
	Center  geo.Point
	RadiusM int
}

// NearbyRequest is one single-category proximity search.
// A nil Center turns it into a free-text search over the whole region.
type NearbyRequest struct {
	Center   *geo.Point
	Category string
	RadiusM  int
	Keyword  string
}
