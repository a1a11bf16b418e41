package place

import (
	"math"

	"github.com/kailas-cloud/pickpoint/internal/domain/geo"
)

// Candidate is an unvalidated place surfaced by search.
type Candidate struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Address        string     `json:"address,omitempty"`
	Coordinates    *geo.Point `json:"coordinates"`
	Categories     []string   `json:"categories"`
	Rating         float64    `json:"rating,omitempty"`
	RatingCount    int        `json:"rating_count,omitempty"`
	DistanceMeters *float64   `json:"distance_meters"`
	QualityScore   float64    `json:"quality_score"`
	IsFallback     bool       `json:"is_fallback"`
}

// QualityScore weights a rating by how many people gave it.
func QualityScore(rating float64, ratingCount int) float64 {
	if rating <= 0 || ratingCount <= 0 {
		return 0
	}
	return rating * math.Log1p(float64(ratingCount))
}

// Label is the text shown in the input once the candidate is picked.
func (c *Candidate) Label() string {
	return Label(c.Name, c.Address)
}

// Stub is an autocomplete prediction: identifier and display text only.
type Stub struct {
	ID            string
	MainText      string
	SecondaryText string
	Description   string
}

// ToCandidate turns a prediction into a coordinate-less candidate.
func (s Stub) ToCandidate() Candidate {
	name := s.MainText
	if name == "" {
		name = s.Description
	}
	return Candidate{
		ID:      s.ID,
		Name:    name,
		Address: s.SecondaryText,
	}
}

// Details is the full provider record fetched on selection.
type Details struct {
	ID          string
	Name        string
	Address     string
	Coordinates *geo.Point
	Categories  []string
	Rating      float64
	RatingCount int
}
