package discovery

import (
	"context"

	"github.com/kailas-cloud/pickpoint/internal/domain"
	"github.com/kailas-cloud/pickpoint/internal/domain/geo"
	"github.com/kailas-cloud/pickpoint/internal/domain/place"
)

// Aggregator runs the multi-category proximity search.
type Aggregator interface {
	Search(ctx context.Context, text string, center *geo.Point, categories []string) ([]place.Candidate, error)
}

// Provider is the subset of the places provider discovery calls directly.
type Provider interface {
	Geocode(ctx context.Context, address string) (geo.Point, error)
	Autocomplete(ctx context.Context, text string, bias *domain.Bias, sessionToken string) ([]place.Stub, error)
}
