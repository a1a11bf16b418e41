package chi

import (
	"github.com/kailas-cloud/pickpoint/internal/domain/geo"
	"github.com/kailas-cloud/pickpoint/internal/domain/place"
)

// ErrorCode is the machine-readable error kind returned to clients.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest          ErrorCode = "bad_request"
	CodeValidationFailed    ErrorCode = "validation_failed"
	CodeUnauthorized        ErrorCode = "unauthorized"
	CodeSessionNotFound     ErrorCode = "session_not_found"
	CodeSessionClosed       ErrorCode = "session_closed"
	CodeTooManySessions     ErrorCode = "too_many_sessions"
	CodeUnknownKind         ErrorCode = "unknown_kind"
	CodeInvalidPlace        ErrorCode = "invalid_place"
	CodeLookupFailed        ErrorCode = "lookup_failed"
	CodeNoCandidates        ErrorCode = "no_candidates"
	CodeGeocodeMiss         ErrorCode = "geocode_miss"
	CodeQuotaExceeded       ErrorCode = "quota_exceeded"
	CodeProviderUnavailable ErrorCode = "provider_unavailable"
	CodeInternalError       ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// OpenSessionRequest is the body of POST /v1/sessions.
type OpenSessionRequest struct {
	Anchor string   `json:"anchor"`
	Lat    *float64 `json:"lat,omitempty"`
	Lng    *float64 `json:"lng,omitempty"`
}

// TextRequest is the body of PUT /v1/sessions/{id}/text.
type TextRequest struct {
	Text string `json:"text"`
}

// LocationRequest is the body of POST /v1/sessions/{id}/location.
type LocationRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// SelectRequest is the body of POST /v1/sessions/{id}/select.
type SelectRequest struct {
	CandidateID string `json:"candidate_id"`
}

// SelectedPlaceResponse is a validated place.
type SelectedPlaceResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Address     string    `json:"address,omitempty"`
	Label       string    `json:"label"`
	Coordinates geo.Point `json:"coordinates"`
	Categories  []string  `json:"categories"`
}

// SuggestionsResponse is the body of GET /v1/suggestions.
type SuggestionsResponse struct {
	Candidates []place.Candidate `json:"candidates"`
	Mode       string            `json:"mode,omitempty"`
	Fallback   bool              `json:"fallback"`
	Reason     string            `json:"fallback_reason,omitempty"`
}

// UsageResponse is the body of GET /v1/usage.
type UsageResponse struct {
	Period      string         `json:"period"`
	PeriodStart int64          `json:"period_start"`
	PeriodEnd   int64          `json:"period_end"`
	Provider    string         `json:"provider,omitempty"`
	Requests    int64          `json:"requests"`
	Budget      BudgetResponse `json:"budget"`
}

// BudgetResponse describes the provider request budget. Limit 0 and
// remaining -1 mean unlimited.
type BudgetResponse struct {
	RequestsLimit     int64 `json:"requests_limit"`
	RequestsRemaining int64 `json:"requests_remaining"`
	IsExhausted       bool  `json:"is_exhausted"`
	ResetsAt          int64 `json:"resets_at"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func selectedToResponse(s place.Selected) SelectedPlaceResponse {
	return SelectedPlaceResponse{
		ID:          s.ID(),
		Name:        s.Name(),
		Address:     s.Address(),
		Label:       s.Label(),
		Coordinates: s.Coordinates(),
		Categories:  s.Categories(),
	}
}
