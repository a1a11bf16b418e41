// Package ranking orders candidate places for display.
package ranking

import (
	"cmp"
	"slices"

	"github.com/kailas-cloud/pickpoint/internal/domain/geo"
	"github.com/kailas-cloud/pickpoint/internal/domain/place"
)

// DefaultLimit caps a ranked list when the caller passes no limit.
const DefaultLimit = 12

// Mode is the single ordering applied to one ranked set.
type Mode string

// Ranking modes.
const (
	ModeDistance Mode = "distance"
	ModeQuality  Mode = "quality"
	// ModeRelevance keeps the provider's own order (autocomplete predictions).
	ModeRelevance Mode = "relevance"
)

// ModeFor returns distance mode when a center is known, quality mode otherwise.
func ModeFor(center *geo.Point) Mode {
	if center != nil {
		return ModeDistance
	}
	return ModeQuality
}

// Rank dedups candidates by ID (first seen wins), orders them and truncates
// to limit. With a center, candidates are sorted by great-circle distance
// ascending and those without coordinates go last. Without one, they are
// sorted by quality score descending. Ties fall back to name, then ID, so
// ranking a ranked list changes nothing. The input slice is not modified.
func Rank(candidates []place.Candidate, center *geo.Point, limit int) []place.Candidate {
	if limit <= 0 {
		limit = DefaultLimit
	}

	out := dedup(candidates)
	for i := range out {
		c := &out[i]
		c.QualityScore = place.QualityScore(c.Rating, c.RatingCount)
		c.DistanceMeters = nil
		if center != nil && c.Coordinates != nil {
			d := center.DistanceTo(*c.Coordinates)
			c.DistanceMeters = &d
		}
	}

	if center != nil {
		slices.SortStableFunc(out, byDistance)
	} else {
		slices.SortStableFunc(out, byQuality)
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Keep dedups candidates by ID and truncates to limit without reordering.
func Keep(candidates []place.Candidate, limit int) []place.Candidate {
	if limit <= 0 {
		limit = DefaultLimit
	}
	out := dedup(candidates)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func dedup(in []place.Candidate) []place.Candidate {
	seen := make(map[string]struct{}, len(in))
	out := make([]place.Candidate, 0, len(in))
	for _, c := range in {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

func byDistance(a, b place.Candidate) int {
	switch {
	case a.DistanceMeters == nil && b.DistanceMeters != nil:
		return 1
	case a.DistanceMeters != nil && b.DistanceMeters == nil:
		return -1
	case a.DistanceMeters != nil && b.DistanceMeters != nil:
		if c := cmp.Compare(*a.DistanceMeters, *b.DistanceMeters); c != 0 {
			return c
		}
	}
	return byName(a, b)
}

func byQuality(a, b place.Candidate) int {
	if c := cmp.Compare(b.QualityScore, a.QualityScore); c != 0 {
		return c
	}
	if c := cmp.Compare(b.RatingCount, a.RatingCount); c != 0 {
		return c
	}
	return byName(a, b)
}

func byName(a, b place.Candidate) int {
	if c := place.CompareNames(a.Name, b.Name); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
