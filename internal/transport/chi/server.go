package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pickpoint/internal/domain"
	"github.com/kailas-cloud/pickpoint/internal/domain/geo"
	domusage "github.com/kailas-cloud/pickpoint/internal/domain/usage"
	"github.com/kailas-cloud/pickpoint/internal/logger"
	discoveryuc "github.com/kailas-cloud/pickpoint/internal/usecase/discovery"
	healthuc "github.com/kailas-cloud/pickpoint/internal/usecase/health"
	sessionuc "github.com/kailas-cloud/pickpoint/internal/usecase/session"
	usageuc "github.com/kailas-cloud/pickpoint/internal/usecase/usage"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the place discovery HTTP API.
type Server struct {
	sessions      *sessionuc.Registry
	discovery     *discoveryuc.Service
	usage         *usageuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	sessions *sessionuc.Registry,
	discovery *discoveryuc.Service,
	usage *usageuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		sessions:  sessions,
		discovery: discovery,
		usage:     usage,
		health:    health,
		logger:    logger,
	}
	// Order matters: narrower sentinels wrap broader ones.
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, CodeSessionNotFound),
		sentinelHandler(domain.ErrSessionClosed, http.StatusGone, CodeSessionClosed),
		sentinelHandler(domain.ErrTooManySessions, http.StatusTooManyRequests, CodeTooManySessions),
		sentinelHandler(domain.ErrInvalidCoordinates, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrUnknownKind, http.StatusBadRequest, CodeUnknownKind),
		sentinelHandler(domain.ErrLookupFailed, http.StatusBadGateway, CodeLookupFailed),
		sentinelHandler(domain.ErrInvalidPlace, http.StatusUnprocessableEntity, CodeInvalidPlace),
		sentinelHandler(domain.ErrNoCandidates, http.StatusNotFound, CodeNoCandidates),
		sentinelHandler(domain.ErrGeocodeMiss, http.StatusNotFound, CodeGeocodeMiss),
		sentinelHandler(domain.ErrQuotaExceeded, http.StatusTooManyRequests, CodeQuotaExceeded),
		sentinelHandler(domain.ErrProviderUnavailable, http.StatusBadGateway, CodeProviderUnavailable),
	}
	return s
}

// Routes mounts every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/usage", s.GetUsage)
		r.Get("/suggestions", s.GetSuggestions)
		r.Get("/nearest", s.GetNearest)

		r.Post("/sessions", s.OpenSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.CloseSession)
			r.Put("/text", s.InputText)
			r.Post("/location", s.UseLocation)
			r.Post("/select", s.SelectCandidate)
			r.Post("/clear", s.ClearSession)
		})
	})
}

// OpenSession handles POST /v1/sessions.
func (s *Server) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Anchor) == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "anchor is required")
		return
	}
	center, err := optionalPoint(req.Lat, req.Lng)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	sess, err := s.sessions.Open(req.Anchor, center)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	logger.FromContextOr(r.Context(), s.logger).Info("Session opened",
		zap.String("session_id", sess.ID()), zap.String("anchor", sess.Anchor()))

	w.Header().Set("Location", "/v1/sessions/"+sess.ID())
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

// GetSession handles GET /v1/sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// CloseSession handles DELETE /v1/sessions/{id}.
func (s *Server) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// InputText handles PUT /v1/sessions/{id}/text. The fetch it may trigger
// runs after the debounce; poll the session to see the result.
func (s *Server) InputText(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req TextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := sess.Input(req.Text); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, sess.Snapshot())
}

// UseLocation handles POST /v1/sessions/{id}/location.
func (s *Server) UseLocation(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req LocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Lat == nil || req.Lng == nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "lat and lng are required")
		return
	}
	if err := sess.UseLocation(geo.Point{Lat: *req.Lat, Lng: *req.Lng}); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, sess.Snapshot())
}

// SelectCandidate handles POST /v1/sessions/{id}/select.
func (s *Server) SelectCandidate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.CandidateID == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "candidate_id is required")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	sel, err := sess.Select(ctx, req.CandidateID)
	setProviderHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, selectedToResponse(sel))
}

// ClearSession handles POST /v1/sessions/{id}/clear.
func (s *Server) ClearSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Clear(); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// GetSuggestions handles GET /v1/suggestions.
func (s *Server) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	anchor := strings.TrimSpace(q.Get("anchor"))
	center, err := queryPoint(q.Get("lat"), q.Get("lng"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if anchor == "" && center == nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "anchor or lat/lng is required")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.discovery.Suggest(ctx, anchor, center)
	setProviderHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SuggestionsResponse{
		Candidates: res.Candidates,
		Mode:       string(res.Mode),
		Fallback:   res.Fallback,
		Reason:     string(res.Reason),
	})
}

// GetNearest handles GET /v1/nearest.
func (s *Server) GetNearest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind := q.Get("kind")
	anchor := strings.TrimSpace(q.Get("anchor"))
	if kind == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "kind is required")
		return
	}
	center, err := queryPoint(q.Get("lat"), q.Get("lng"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if anchor == "" && center == nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "anchor or lat/lng is required")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	c, err := s.discovery.Nearest(ctx, anchor, center, kind)
	setProviderHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// GetUsage handles GET /v1/usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	period := domusage.PeriodDay
	if p := r.URL.Query().Get("period"); p != "" {
		period = domusage.Period(p)
	}
	if !period.IsValid() {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "period must be day, month or total")
		return
	}

	report := s.usage.GetReport(r.Context(), period)
	b := report.Budget()
	writeJSON(w, http.StatusOK, UsageResponse{
		Period:      string(report.Period()),
		PeriodStart: report.PeriodStart(),
		PeriodEnd:   report.PeriodEnd(),
		Provider:    report.Provider(),
		Requests:    report.Requests(),
		Budget: BudgetResponse{
			RequestsLimit:     b.RequestsLimit(),
			RequestsRemaining: b.RequestsRemaining(),
			IsExhausted:       b.IsExhausted(),
			ResetsAt:          b.ResetsAt(),
		},
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*sessionuc.Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return nil, false
	}
	return sess, true
}

func optionalPoint(lat, lng *float64) (*geo.Point, error) {
	if lat == nil && lng == nil {
		return nil, nil
	}
	if lat == nil || lng == nil {
		return nil, fmt.Errorf("%w: lat and lng go together", domain.ErrInvalidCoordinates)
	}
	p, err := geo.NewPoint(*lat, *lng)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidCoordinates, err)
	}
	return &p, nil
}

func queryPoint(lat, lng string) (*geo.Point, error) {
	if lat == "" && lng == "" {
		return nil, nil
	}
	la, errLat := strconv.ParseFloat(lat, 64)
	ln, errLng := strconv.ParseFloat(lng, 64)
	if errLat != nil || errLng != nil {
		return nil, fmt.Errorf("%w: lat=%q lng=%q", domain.ErrInvalidCoordinates, lat, lng)
	}
	return optionalPoint(&la, &ln)
}

func setProviderHeaders(w http.ResponseWriter, usage *domain.ProviderUsage) {
	if usage != nil && usage.Calls() > 0 {
		w.Header().Set("X-Provider-Calls", strconv.FormatInt(usage.Calls(), 10))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a client-safe message: the place reason when
// there is one, otherwise the matching sentinel text.
func safeDomainMessage(err error, sentinel error) string {
	var pe *domain.PlaceError
	if errors.As(err, &pe) && pe.Reason != "" {
		return pe.Reason
	}
	return sentinel.Error()
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, safeDomainMessage(err, sentinel))
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
