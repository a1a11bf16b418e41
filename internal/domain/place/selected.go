package place

import "github.com/kailas-cloud/pickpoint/internal/domain/geo"

// Selected is a validated pickup/drop-off place.
type Selected struct {
	id          string
	name        string
	address     string
	coordinates geo.Point
	categories  []string
}

// NewSelected creates a validated place. Only the selection validator calls it.
func NewSelected(id, name, address string, coordinates geo.Point, categories []string) Selected {
	cats := make([]string, len(categories))
	copy(cats, categories)
	return Selected{
		id:          id,
		name:        name,
		address:     address,
		coordinates: coordinates,
		categories:  cats,
	}
}

// ID returns the provider identifier.
func (s Selected) ID() string { return s.id }

// Name returns the display name.
func (s Selected) Name() string { return s.name }

// Address returns the formatted address.
func (s Selected) Address() string { return s.address }

// Coordinates returns the resolved location.
func (s Selected) Coordinates() geo.Point { return s.coordinates }

// Categories returns the lowercased provider tags.
func (s Selected) Categories() []string { return s.categories }

// Label is the text shown in the input after selection.
func (s Selected) Label() string { return Label(s.name, s.address) }
