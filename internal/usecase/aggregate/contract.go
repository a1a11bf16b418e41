package aggregate

import (
	"context"

	"github.com/kailas-cloud/pickpoint/internal/domain"
	"github.com/kailas-cloud/pickpoint/internal/domain/place"
)

// NearbySearcher runs a single-category proximity search.
type NearbySearcher interface {
	NearbySearch(ctx context.Context, req domain.NearbyRequest) ([]place.Candidate, error)
}
