package selection

import (
	"context"

	"github.com/kailas-cloud/pickpoint/internal/domain/place"
)

// DetailsFetcher loads the full record of a picked place.
type DetailsFetcher interface {
	Details(ctx context.Context, id, sessionToken string) (place.Details, error)
}
