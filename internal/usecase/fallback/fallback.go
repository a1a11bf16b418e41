// Package fallback supplies the fixed suggestions shown when live search
// cannot produce any.
package fallback

import (
	"errors"
	"strings"

	"github.com/kailas-cloud/pickpoint/internal/domain"
	"github.com/kailas-cloud/pickpoint/internal/domain/geo"
	"github.com/kailas-cloud/pickpoint/internal/domain/place"
)

// Size is the number of fallback candidates, always.
const Size = 3

// Reason explains why the fallback list is shown.
type Reason string

// Fallback reasons.
const (
	ReasonNoCredential        Reason = "no_credential"
	ReasonGeocodeMiss         Reason = "geocode_miss"
	ReasonProviderUnavailable Reason = "provider_unavailable"
	ReasonNoCandidates        Reason = "no_candidates"
)

type entry struct {
	key      string
	prefix   string
	category string
}

var entries = [Size]entry{
	{key: "downtown", prefix: "Downtown of ", category: "city_hall"},
	{key: "bus-terminal", prefix: "Bus terminal of ", category: "bus_station"},
	{key: "shopping-centre", prefix: "Shopping centre of ", category: "shopping_mall"},
}

// Candidates returns the three generic suggestions for anchor. They carry
// center as coordinates when it is known and nil otherwise; those are for
// display only and never make a fallback selectable.
func Candidates(anchor string, center *geo.Point) []place.Candidate {
	anchor = strings.TrimSpace(anchor)
	slug := strings.ReplaceAll(place.Normalize(anchor), " ", "-")

	out := make([]place.Candidate, 0, Size)
	for _, e := range entries {
		c := place.Candidate{
			ID:         "fallback:" + e.key + ":" + slug,
			Name:       e.prefix + anchor,
			Address:    anchor,
			Categories: []string{e.category},
			IsFallback: true,
		}
		if center != nil {
			p := *center
			c.Coordinates = &p
		}
		out = append(out, c)
	}
	return out
}

// ReasonFor classifies the error that led to the fallback. A nil error
// means the search succeeded with nothing to show.
func ReasonFor(err error) Reason {
	switch {
	case err == nil, errors.Is(err, domain.ErrNoCandidates):
		return ReasonNoCandidates
	case errors.Is(err, domain.ErrMissingCredential):
		return ReasonNoCredential
	case errors.Is(err, domain.ErrGeocodeMiss):
		return ReasonGeocodeMiss
	default:
		return ReasonProviderUnavailable
	}
}

// Applies reports whether err should degrade to the fallback list instead
// of surfacing. Cancellation never does.
func Applies(err error) bool {
	return errors.Is(err, domain.ErrProviderUnavailable) ||
		errors.Is(err, domain.ErrGeocodeMiss) ||
		errors.Is(err, domain.ErrNoCandidates)
}
