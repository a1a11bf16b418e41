package domain

import "time"

// KeyPrefix namespaces every key written to the shared store.
const KeyPrefix = "pickpoint:"

// SearchConfig holds place discovery tuning, not exposed to clients.
type SearchConfig struct {
	MinLength           int
	Debounce            time.Duration
	MaxResults          int
	NearbyRadiusM       int
	AutocompleteRadiusM int
	MaxParallel         int
	Source              Source
}

// Source selects where a session's candidates come from.
type Source string

// Candidate source constants.
const (
	// SourceNearby runs one proximity search per public-place category.
	SourceNearby Source = "nearby"
	// SourceAutocomplete runs a single biased autocomplete query.
	SourceAutocomplete Source = "autocomplete"
)

// IsValid checks if the source is one of the supported values.
func (s Source) IsValid() bool {
	return s == SourceNearby || s == SourceAutocomplete
}

// DefaultSearchConfig returns the defaults the pickup/drop-off screens were tuned with.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		MinLength:           3,
		Debounce:            250 * time.Millisecond,
		MaxResults:          12,
		NearbyRadiusM:       8_000,
		AutocompleteRadiusM: 30_000,
		MaxParallel:         8,
		Source:              SourceNearby,
	}
}
