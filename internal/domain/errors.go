package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrGeocodeMiss signals an anchor the provider could not resolve.
	ErrGeocodeMiss = errors.New("geocode miss")
	// ErrProviderUnavailable signals a network, auth or quota failure at the places provider.
	ErrProviderUnavailable = errors.New("places provider unavailable")
	// ErrQuotaExceeded signals an exhausted provider request budget.
	ErrQuotaExceeded = fmt.Errorf("%w: request quota exceeded", ErrProviderUnavailable)
	// ErrMissingCredential signals a provider client built without an API key.
	ErrMissingCredential = fmt.Errorf("%w: missing credential", ErrProviderUnavailable)
	// ErrNoCandidates signals a legitimately empty result.
	ErrNoCandidates = errors.New("no candidates")
	// ErrInvalidPlace signals a selection that is not a recognized public place.
	ErrInvalidPlace = errors.New("invalid place")
	// ErrCoordinatesUnavailable signals a selection without resolvable coordinates.
	ErrCoordinatesUnavailable = fmt.Errorf("%w: coordinates unavailable", ErrInvalidPlace)
	// ErrLookupFailed signals a details fetch failure after selection.
	ErrLookupFailed = errors.New("place lookup failed")
	// ErrInvalidCoordinates signals latitude/longitude out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrUnknownKind signals an unsupported nearest-of-kind shortcut.
	ErrUnknownKind = errors.New("unknown place kind")

	// ErrSessionNotFound signals a missing query session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionClosed signals an operation on a closed session.
	ErrSessionClosed = errors.New("session closed")
	// ErrTooManySessions signals the session registry is full.
	ErrTooManySessions = errors.New("too many sessions")
)

// PlaceError carries the user-facing reason a selection was rejected.
type PlaceError struct {
	Kind        error
	CandidateID string
	Reason      string
}

func (e *PlaceError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %s", e.Kind.Error(), e.CandidateID)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind.Error(), e.CandidateID, e.Reason)
}

func (e *PlaceError) Unwrap() error { return e.Kind }

// NewPlaceError creates a selection error of the given kind.
func NewPlaceError(kind error, candidateID, reason string) error {
	return &PlaceError{Kind: kind, CandidateID: candidateID, Reason: reason}
}

// ReasonOf returns the user-facing reason of err, or its message when none is set.
func ReasonOf(err error) string {
	var pe *PlaceError
	if errors.As(err, &pe) && pe.Reason != "" {
		return pe.Reason
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
