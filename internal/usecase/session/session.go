// Package session implements the debounced, cancellable query session that
// sits between a text input and the discovery service.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pickpoint/internal/domain"
	"github.com/kailas-cloud/pickpoint/internal/domain/geo"
	"github.com/kailas-cloud/pickpoint/internal/domain/place"
	"github.com/kailas-cloud/pickpoint/internal/logger"
	"github.com/kailas-cloud/pickpoint/internal/metrics"
	"github.com/kailas-cloud/pickpoint/internal/usecase/discovery"
	"github.com/kailas-cloud/pickpoint/internal/usecase/geobias"
)

// State is the session's position in the fetch cycle.
type State string

// Session states.
const (
	StateIdle       State = "idle"
	StateDebouncing State = "debouncing"
	StateFetching   State = "fetching"
	StateSettled    State = "settled"
	StateFailed     State = "failed"
)

// Snapshot is an immutable view of a session, published after every change.
// Seq grows with each publication.
type Snapshot struct {
	SessionID  string            `json:"session_id"`
	Seq        uint64            `json:"seq"`
	State      State             `json:"state"`
	Text       string            `json:"text"`
	Candidates []place.Candidate `json:"candidates"`
	Mode       string            `json:"mode,omitempty"`
	Fallback   bool              `json:"fallback"`
	Reason     string            `json:"fallback_reason,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Hooks receive session output. Both are optional and are never called
// concurrently for the same session.
type Hooks struct {
	OnUpdate func(Snapshot)
	OnSelect func(*place.Selected, error)
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Searcher  Searcher
	Validator Validator
	Geocoder  Geocoder
	Config    domain.SearchConfig
	Logger    *zap.Logger
}

// Session is one text input's query lifecycle. All state sits behind mu;
// hooks run outside it, serialized by notifyMu.
type Session struct {
	id        string
	anchor    string
	searcher  Searcher
	validator Validator
	bias      *geobias.Resolver
	minLength int
	debounce  time.Duration
	logger    *zap.Logger
	base      context.Context
	hooks     Hooks

	mu            sync.Mutex
	state         State
	text          string
	result        discovery.Result
	err           error
	gen           uint64
	token         uint64
	timer         *time.Timer
	cancel        context.CancelFunc
	providerToken string
	closed        bool
	lastActive    time.Time
	seq           uint64

	notifyMu  sync.Mutex
	published uint64
}

// New opens a session for anchor, typically the city of the trip end being edited.
func New(id, anchor string, deps Deps, hooks Hooks) *Session {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if id == "" {
		id = uuid.NewString()
	}
	log = log.With(zap.String("session_id", id))

	cfg := deps.Config
	if cfg.MinLength <= 0 {
		cfg.MinLength = domain.DefaultSearchConfig().MinLength
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = domain.DefaultSearchConfig().Debounce
	}

	metrics.SessionsActive.Inc()
	return &Session{
		id:            id,
		anchor:        strings.TrimSpace(anchor),
		searcher:      deps.Searcher,
		validator:     deps.Validator,
		bias:          geobias.New(deps.Geocoder, log),
		minLength:     cfg.MinLength,
		debounce:      cfg.Debounce,
		logger:        log,
		base:          logger.ContextWithLogger(context.Background(), log),
		hooks:         hooks,
		state:         StateIdle,
		providerToken: uuid.NewString(),
		lastActive:    time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Anchor returns the anchor the session biases towards.
func (s *Session) Anchor() string { return s.anchor }

// Input registers a keystroke. Text shorter than the minimum length empties
// the list and drops any pending or in-flight fetch; otherwise the debounce
// timer restarts.
func (s *Session) Input(text string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}
	s.lastActive = time.Now()
	s.stopTimerLocked()
	s.text = text

	if utf8.RuneCountInString(strings.TrimSpace(text)) < s.minLength {
		s.supersedeLocked()
		s.state = StateIdle
		s.result = discovery.Result{}
		s.err = nil
		snap := s.changedLocked()
		s.mu.Unlock()
		s.publish(snap)
		return nil
	}

	gen := s.gen
	s.state = StateDebouncing
	s.timer = time.AfterFunc(s.debounce, func() { s.fire(gen) })
	snap := s.changedLocked()
	s.mu.Unlock()
	s.publish(snap)
	return nil
}

// UseLocation pins the bias center to p and refreshes right away: a search
// for the current text when it is long enough, suggestions around p otherwise.
func (s *Session) UseLocation(p geo.Point) error {
	if !geo.ValidateCoordinates(p.Lat, p.Lng) {
		return fmt.Errorf("%w: lat=%f lng=%f", domain.ErrInvalidCoordinates, p.Lat, p.Lng)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}
	s.lastActive = time.Now()
	s.bias.Override(p)
	s.stopTimerLocked()

	text := strings.TrimSpace(s.text)
	if utf8.RuneCountInString(text) >= s.minLength {
		s.startLocked(s.searchFn(text))
		return nil
	}
	anchor := s.anchor
	center := p
	s.startLocked(func(ctx context.Context) (discovery.Result, error) {
		return s.searcher.Suggest(ctx, anchor, &center)
	})
	return nil
}

// ReasonNotListed explains a pick whose ID is not in the current list.
const ReasonNotListed = "this place is no longer listed"

// Select validates the listed candidate with the given ID. On success the
// session resets and OnSelect receives the place; on any rejection, an
// unlisted ID included, the list is cleared and OnSelect receives nil plus
// the error, which is also returned.
func (s *Session) Select(ctx context.Context, candidateID string) (place.Selected, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return place.Selected{}, domain.ErrSessionClosed
	}
	s.lastActive = time.Now()
	i := slices.IndexFunc(s.result.Candidates, func(c place.Candidate) bool { return c.ID == candidateID })

	var (
		sel place.Selected
		err error
	)
	if i < 0 {
		// Stale pick: rejected without a provider call, mu still held.
		err = domain.NewPlaceError(domain.ErrInvalidPlace, candidateID, ReasonNotListed)
	} else {
		c := s.result.Candidates[i]
		token := s.providerToken
		s.mu.Unlock()

		sel, err = s.validator.Validate(ctx, c, token)
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return place.Selected{}, err
		}
		s.mu.Lock()
	}

	if s.closed {
		s.mu.Unlock()
		return place.Selected{}, domain.ErrSessionClosed
	}
	s.stopTimerLocked()
	s.supersedeLocked()
	s.providerToken = uuid.NewString()
	s.result = discovery.Result{}
	if err != nil {
		s.state = StateFailed
		s.err = err
	} else {
		s.state = StateIdle
		s.text = ""
		s.err = nil
	}
	snap := s.changedLocked()
	s.mu.Unlock()

	if err != nil {
		metrics.SessionSelectionsTotal.WithLabelValues("rejected").Inc()
		s.logger.Info("Selection rejected", zap.String("candidate_id", candidateID), zap.Error(err))
		s.publishSelection(snap, nil, err)
		return place.Selected{}, err
	}
	metrics.SessionSelectionsTotal.WithLabelValues("accepted").Inc()
	s.publishSelection(snap, &sel, nil)
	return sel, nil
}

// Clear resets the session to idle with a fresh provider session token.
func (s *Session) Clear() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}
	s.lastActive = time.Now()
	s.stopTimerLocked()
	s.supersedeLocked()
	s.state = StateIdle
	s.text = ""
	s.result = discovery.Result{}
	s.err = nil
	s.providerToken = uuid.NewString()
	snap := s.changedLocked()
	s.mu.Unlock()
	s.publish(snap)
	return nil
}

// Close stops the timer and cancels the in-flight fetch. Every later call,
// Close included, returns ErrSessionClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionClosed
	}
	s.closed = true
	s.stopTimerLocked()
	s.supersedeLocked()
	metrics.SessionsActive.Dec()
	return nil
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// ProviderToken returns the token tying autocomplete and details calls together.
func (s *Session) ProviderToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.providerToken
}

// IdleSince returns when the session last saw a caller.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) fire(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.startLocked(s.searchFn(strings.TrimSpace(s.text)))
}

func (s *Session) searchFn(text string) func(context.Context) (discovery.Result, error) {
	anchor := s.anchor
	token := s.providerToken
	return func(ctx context.Context) (discovery.Result, error) {
		q := discovery.Query{Text: text, Anchor: anchor, SessionToken: token}
		if center, ok := s.bias.Resolve(ctx, anchor); ok {
			q.Center = &center
		}
		return s.searcher.Search(ctx, q)
	}
}

// startLocked supersedes the current fetch, mints a token and runs fn in
// the background. It releases mu.
func (s *Session) startLocked(fn func(context.Context) (discovery.Result, error)) {
	s.supersedeLocked()
	token := s.token
	ctx, cancel := context.WithCancel(s.base)
	s.cancel = cancel
	s.state = StateFetching
	s.err = nil
	snap := s.changedLocked()
	s.mu.Unlock()

	metrics.SessionFetchesTotal.Inc()
	s.publish(snap)

	go func() {
		res, err := fn(ctx)
		s.settle(token, res, err)
	}()
}

func (s *Session) settle(token uint64, res discovery.Result, err error) {
	s.mu.Lock()
	if s.closed || token != s.token {
		s.mu.Unlock()
		metrics.SessionStaleDiscardsTotal.Inc()
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if err != nil {
		s.state = StateFailed
		s.result = discovery.Result{}
		s.err = err
		s.logger.Warn("Candidate fetch failed", zap.Error(err))
	} else {
		s.state = StateSettled
		s.result = res
		s.err = nil
	}
	snap := s.changedLocked()
	s.mu.Unlock()
	s.publish(snap)
}

// supersedeLocked cancels the in-flight fetch and invalidates its token.
func (s *Session) supersedeLocked() {
	s.token++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// stopTimerLocked stops the debounce timer and bumps the generation so a
// timer that already fired does nothing.
func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

func (s *Session) changedLocked() Snapshot {
	s.seq++
	return s.viewLocked()
}

func (s *Session) viewLocked() Snapshot {
	snap := Snapshot{
		SessionID:  s.id,
		Seq:        s.seq,
		State:      s.state,
		Text:       s.text,
		Candidates: slices.Clone(s.result.Candidates),
		Mode:       string(s.result.Mode),
		Fallback:   s.result.Fallback,
		Reason:     string(s.result.Reason),
	}
	if snap.Candidates == nil {
		snap.Candidates = []place.Candidate{}
	}
	if s.err != nil {
		snap.Error = domain.ReasonOf(s.err)
	}
	return snap
}

func (s *Session) publish(snap Snapshot) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.deliverLocked(snap)
}

func (s *Session) publishSelection(snap Snapshot, sel *place.Selected, err error) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.deliverLocked(snap)
	if s.hooks.OnSelect != nil {
		s.hooks.OnSelect(sel, err)
	}
}

// deliverLocked drops snapshots older than the last one delivered.
func (s *Session) deliverLocked(snap Snapshot) {
	if snap.Seq <= s.published {
		return
	}
	s.published = snap.Seq
	if s.hooks.OnUpdate != nil {
		s.hooks.OnUpdate(snap)
	}
}
