package geobias

import (
	"context"

	"github.com/kailas-cloud/pickpoint/internal/domain/geo"
)

// Geocoder resolves an address to a point.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (geo.Point, error)
}
