package pickpoint

import "github.com/kailas-cloud/pickpoint/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrGeocodeMiss            = domain.ErrGeocodeMiss
	ErrProviderUnavailable    = domain.ErrProviderUnavailable
	ErrQuotaExceeded          = domain.ErrQuotaExceeded
	ErrMissingCredential      = domain.ErrMissingCredential
	ErrNoCandidates           = domain.ErrNoCandidates
	ErrInvalidPlace           = domain.ErrInvalidPlace
	ErrCoordinatesUnavailable = domain.ErrCoordinatesUnavailable
	ErrLookupFailed           = domain.ErrLookupFailed
	ErrInvalidCoordinates     = domain.ErrInvalidCoordinates
	ErrUnknownKind            = domain.ErrUnknownKind
	ErrSessionClosed          = domain.ErrSessionClosed
)

// Reason returns the user-facing explanation carried by a selection error,
// or the error text when there is none.
func Reason(err error) string {
	return domain.ReasonOf(err)
}
