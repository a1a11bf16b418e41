package pickpoint

import (
	"context"
	"time"

	"github.com/kailas-cloud/pickpoint/internal/domain/place"
	sessionuc "github.com/kailas-cloud/pickpoint/internal/usecase/session"
)

// Hooks receive session output. Both are optional. They run on a session
// goroutine, one at a time, and must not block for long.
type Hooks struct {
	// OnUpdate gets every new snapshot; an older one never follows a newer one.
	OnUpdate func(Snapshot)
	// OnSelect gets the confirmed place, or nil and the rejection.
	OnSelect func(*SelectedPlace, error)
}

// Session is the lifecycle of one place input field.
type Session struct {
	inner *sessionuc.Session
	obs   *observer
}

// NewSession opens a session biased towards anchor, typically the city of
// the trip end being edited.
func (c *Client) NewSession(anchor string, hooks Hooks) *Session {
	s := &Session{obs: c.obs}
	s.inner = sessionuc.New("", anchor, c.deps, sessionuc.Hooks{
		OnUpdate: func(snap sessionuc.Snapshot) {
			if snap.Fallback && snap.State == sessionuc.StateSettled {
				s.obs.fallback("session", snap.Reason)
			}
			if hooks.OnUpdate != nil {
				hooks.OnUpdate(snapshotFromDomain(snap))
			}
		},
		OnSelect: func(sel *place.Selected, err error) {
			if hooks.OnSelect == nil {
				return
			}
			if sel == nil {
				hooks.OnSelect(nil, err)
				return
			}
			p := selectedFromDomain(*sel)
			hooks.OnSelect(&p, err)
		},
	})
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.inner.ID() }

// Input registers the field's current text.
func (s *Session) Input(text string) error {
	return s.inner.Input(text)
}

// UseLocation biases the session to p and refreshes the list around it.
func (s *Session) UseLocation(p Point) error {
	return s.inner.UseLocation(p.toGeo())
}

// Select confirms the listed candidate with the given ID.
func (s *Session) Select(ctx context.Context, candidateID string) (_ SelectedPlace, err error) {
	start := time.Now()
	defer func() { s.obs.observe("select", start, err) }()

	sel, err := s.inner.Select(ctx, candidateID)
	if err != nil {
		return SelectedPlace{}, err
	}
	return selectedFromDomain(sel), nil
}

// Clear empties the field and starts a new provider session.
func (s *Session) Clear() error {
	return s.inner.Clear()
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	return snapshotFromDomain(s.inner.Snapshot())
}

// Close stops the session. Later calls return ErrSessionClosed.
func (s *Session) Close() error {
	return s.inner.Close()
}
