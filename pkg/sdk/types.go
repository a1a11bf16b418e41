package pickpoint

import (
	"github.com/kailas-cloud/pickpoint/internal/domain/geo"
	"github.com/kailas-cloud/pickpoint/internal/domain/place"
	sessionuc "github.com/kailas-cloud/pickpoint/internal/usecase/session"
)

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Candidate is a place offered to the user, not yet confirmed.
type Candidate struct {
	ID             string
	Name           string
	Address        string
	Label          string
	Coordinates    *Point
	Categories     []string
	Rating         float64
	RatingCount    int
	DistanceMeters *float64
	IsFallback     bool
}

// SelectedPlace is a confirmed public place with coordinates.
type SelectedPlace struct {
	ID          string
	Name        string
	Address     string
	Label       string
	Coordinates Point
	Categories  []string
}

// State is a session's position in the fetch cycle.
type State string

// Session states.
const (
	StateIdle       State = State(sessionuc.StateIdle)
	StateDebouncing State = State(sessionuc.StateDebouncing)
	StateFetching   State = State(sessionuc.StateFetching)
	StateSettled    State = State(sessionuc.StateSettled)
	StateFailed     State = State(sessionuc.StateFailed)
)

// Snapshot is what a session shows at one moment.
type Snapshot struct {
	State      State
	Text       string
	Candidates []Candidate
	Fallback   bool
	Reason     string
	Error      string
}

// Suggestions is a ranked list returned outside a session.
type Suggestions struct {
	Candidates []Candidate
	Fallback   bool
	Reason     string
}

func (p Point) toGeo() geo.Point { return geo.Point{Lat: p.Lat, Lng: p.Lng} }

func pointPtr(p *geo.Point) *Point {
	if p == nil {
		return nil
	}
	return &Point{Lat: p.Lat, Lng: p.Lng}
}

func candidateFromDomain(c place.Candidate) Candidate {
	return Candidate{
		ID:             c.ID,
		Name:           c.Name,
		Address:        c.Address,
		Label:          c.Label(),
		Coordinates:    pointPtr(c.Coordinates),
		Categories:     c.Categories,
		Rating:         c.Rating,
		RatingCount:    c.RatingCount,
		DistanceMeters: c.DistanceMeters,
		IsFallback:     c.IsFallback,
	}
}

func candidatesFromDomain(cs []place.Candidate) []Candidate {
	out := make([]Candidate, len(cs))
	for i, c := range cs {
		out[i] = candidateFromDomain(c)
	}
	return out
}

func selectedFromDomain(s place.Selected) SelectedPlace {
	p := s.Coordinates()
	return SelectedPlace{
		ID:          s.ID(),
		Name:        s.Name(),
		Address:     s.Address(),
		Label:       s.Label(),
		Coordinates: Point{Lat: p.Lat, Lng: p.Lng},
		Categories:  s.Categories(),
	}
}

func snapshotFromDomain(s sessionuc.Snapshot) Snapshot {
	return Snapshot{
		State:      State(s.State),
		Text:       s.Text,
		Candidates: candidatesFromDomain(s.Candidates),
		Fallback:   s.Fallback,
		Reason:     s.Reason,
		Error:      s.Error,
	}
}
