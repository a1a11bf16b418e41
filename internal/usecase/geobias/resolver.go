package geobias

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pickpoint/internal/domain/geo"
	"github.com/kailas-cloud/pickpoint/internal/domain/place"
	"github.com/kailas-cloud/pickpoint/internal/logger"
)

type state int

const (
	statePending state = iota
	stateResolved
	stateFailed
)

// Resolver turns an anchor (city or address) into a bias center with at most
// one geocode call. A success is cached; a failure is final until Reset or
// Override. A caller's own cancellation does not count as an attempt.
type Resolver struct {
	geocoder Geocoder
	logger   *zap.Logger

	mu       sync.Mutex
	anchor   string
	state    state
	pinned   bool
	center   geo.Point
	gen      uint64
	inflight chan struct{}
}

// New creates a resolver.
func New(geocoder Geocoder, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{geocoder: geocoder, logger: logger}
}

// Resolve returns the bias center for anchor. Concurrent callers share one
// geocode call. A different anchor than last time starts over.
func (r *Resolver) Resolve(ctx context.Context, anchor string) (geo.Point, bool) {
	key := place.Normalize(anchor)
	if key == "" {
		return geo.Point{}, false
	}

	for {
		r.mu.Lock()
		if r.anchor != key {
			if r.pinned {
				r.anchor = key
			} else {
				r.resetLocked(key)
			}
		}
		switch r.state {
		case stateResolved:
			p := r.center
			r.mu.Unlock()
			return p, true
		case stateFailed:
			r.mu.Unlock()
			return geo.Point{}, false
		}

		if ch := r.inflight; ch != nil {
			r.mu.Unlock()
			select {
			case <-ch:
				continue
			case <-ctx.Done():
				return geo.Point{}, false
			}
		}

		ch := make(chan struct{})
		r.inflight = ch
		gen := r.gen
		r.mu.Unlock()

		p, err := r.geocoder.Geocode(ctx, anchor)

		r.mu.Lock()
		if r.inflight == ch {
			r.inflight = nil
		}
		close(ch)

		if gen != r.gen {
			// Reset or Override landed meanwhile; their state wins.
			r.mu.Unlock()
			if ctx.Err() != nil {
				return geo.Point{}, false
			}
			continue
		}

		if err != nil {
			if ctx.Err() != nil {
				r.mu.Unlock()
				return geo.Point{}, false
			}
			r.state = stateFailed
			r.mu.Unlock()
			logger.FromContextOr(ctx, r.logger).Info("Bias center unavailable",
				zap.String("anchor", anchor), zap.Error(err))
			return geo.Point{}, false
		}

		r.state = stateResolved
		r.center = p
		r.mu.Unlock()
		return p, true
	}
}

// Center returns the cached center without calling the provider.
func (r *Resolver) Center() (geo.Point, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.center, r.state == stateResolved
}

// Override pins the center, e.g. to the device location. A pinned center
// survives anchor changes until Reset.
func (r *Resolver) Override(p geo.Point) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.pinned = true
	r.state = stateResolved
	r.center = p
}

// Reset forgets the outcome so the next Resolve geocodes again.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked(r.anchor)
}

func (r *Resolver) resetLocked(anchor string) {
	r.gen++
	r.anchor = anchor
	r.state = statePending
	r.pinned = false
	r.center = geo.Point{}
	r.inflight = nil
}
