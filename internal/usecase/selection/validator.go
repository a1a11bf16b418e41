package selection

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pickpoint/internal/domain"
	"github.com/kailas-cloud/pickpoint/internal/domain/place"
	"github.com/kailas-cloud/pickpoint/internal/logger"
)

// User-facing rejection reasons.
const (
	ReasonNoCoordinates = "this place has no coordinates"
	ReasonNotPublic     = "please choose a public place such as a station or a shopping centre"
	ReasonLookupFailed  = "could not load the details of this place, try again"
	ReasonGeneric       = "this is a general area, please search for a specific place"
)

// Validator turns a picked candidate into a confirmed place.
type Validator struct {
	details DetailsFetcher
	logger  *zap.Logger
}

// New creates a validator.
func New(details DetailsFetcher, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{details: details, logger: logger}
}

// Validate confirms c. Fallback candidates are never confirmed: their
// coordinates, when present, are only the bias center. Every other candidate
// is re-fetched with the provider session token and must have coordinates
// and at least one allow-listed category. Rejections are *domain.PlaceError
// values. Nothing is retried.
func (v *Validator) Validate(ctx context.Context, c place.Candidate, sessionToken string) (place.Selected, error) {
	log := logger.FromContextOr(ctx, v.logger)

	if c.IsFallback {
		log.Debug("Rejected fallback pick", zap.String("candidate_id", c.ID))
		return place.Selected{}, domain.NewPlaceError(domain.ErrCoordinatesUnavailable, c.ID, ReasonGeneric)
	}

	d, err := v.details.Details(ctx, c.ID, sessionToken)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return place.Selected{}, fmt.Errorf("details %s: %w", c.ID, err)
		}
		log.Warn("Place details lookup failed", zap.String("candidate_id", c.ID), zap.Error(err))
		return place.Selected{}, fmt.Errorf("%w: %w",
			domain.NewPlaceError(domain.ErrLookupFailed, c.ID, ReasonLookupFailed), err)
	}

	if d.Coordinates == nil {
		return place.Selected{}, domain.NewPlaceError(domain.ErrCoordinatesUnavailable, c.ID, ReasonNoCoordinates)
	}
	if !place.Intersects(d.Categories) {
		log.Info("Rejected non-public place",
			zap.String("candidate_id", c.ID), zap.Strings("categories", d.Categories))
		return place.Selected{}, domain.NewPlaceError(domain.ErrInvalidPlace, c.ID, ReasonNotPublic)
	}

	return place.NewSelected(
		firstNonEmpty(d.ID, c.ID),
		firstNonEmpty(d.Name, c.Name),
		firstNonEmpty(d.Address, c.Address),
		*d.Coordinates,
		d.Categories,
	), nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
