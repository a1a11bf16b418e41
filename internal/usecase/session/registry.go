package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pickpoint/internal/domain"
	"github.com/kailas-cloud/pickpoint/internal/domain/geo"
)

// Registry holds server-side sessions in memory, evicting idle ones.
type Registry struct {
	deps    Deps
	idleTTL time.Duration
	max     int
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a registry. Zero idleTTL disables eviction; zero max
// means unlimited.
func NewRegistry(deps Deps, idleTTL time.Duration, maxSessions int, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		deps:     deps,
		idleTTL:  idleTTL,
		max:      maxSessions,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Open creates a session. A non-nil center pins the bias instead of geocoding the anchor.
func (r *Registry) Open(anchor string, center *geo.Point) (*Session, error) {
	if center != nil && !geo.ValidateCoordinates(center.Lat, center.Lng) {
		return nil, fmt.Errorf("%w: lat=%f lng=%f", domain.ErrInvalidCoordinates, center.Lat, center.Lng)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.max > 0 && len(r.sessions) >= r.max {
		return nil, domain.ErrTooManySessions
	}

	s := New(uuid.NewString(), anchor, r.deps, Hooks{})
	if center != nil {
		s.bias.Override(*center)
	}
	r.sessions[s.ID()] = s
	return s, nil
}

// Get returns an open session.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return s, nil
}

// Close closes and forgets a session.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return s.Close()
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than the TTL and returns how many it closed.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	var stale []*Session
	for id, s := range r.sessions {
		if s.IdleSince().Before(cutoff) {
			stale = append(stale, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		_ = s.Close()
	}
	if len(stale) > 0 {
		r.logger.Info("Evicted idle sessions", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// Run sweeps every interval until ctx is done, then closes what is left.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range all {
		_ = s.Close()
	}
}
