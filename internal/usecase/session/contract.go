package session

import (
	"context"

	"github.com/kailas-cloud/pickpoint/internal/domain/geo"
	"github.com/kailas-cloud/pickpoint/internal/domain/place"
	"github.com/kailas-cloud/pickpoint/internal/usecase/discovery"
)

// Searcher produces candidate lists for a session.
type Searcher interface {
	Search(ctx context.Context, q discovery.Query) (discovery.Result, error)
	Suggest(ctx context.Context, anchor string, center *geo.Point) (discovery.Result, error)
}

// Validator confirms a picked candidate.
type Validator interface {
	Validate(ctx context.Context, c place.Candidate, sessionToken string) (place.Selected, error)
}

// Geocoder resolves the session anchor into a bias center.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (geo.Point, error)
}
