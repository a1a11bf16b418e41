package place

import "strings"

// Group clusters provider tags into the public-place families offered to riders.
type Group string

// Category group constants.
const (
	GroupTransit Group = "transit"
	GroupAirport Group = "airport"
	GroupRetail  Group = "retail"
	GroupCampus  Group = "campus"
	GroupCivic   Group = "civic"
	GroupPark    Group = "park"
	GroupCulture Group = "culture"
	GroupDining  Group = "dining"
)

// Category is one provider tag that counts as a public place.
type Category struct {
	Tag   string
	Group Group
}

// categories is the single allow-list: every tag here is searched by the
// aggregator and accepted by the selection validator.
var categories = []Category{
	{Tag: "transit_station", Group: GroupTransit},
	{Tag: "bus_station", Group: GroupTransit},
	{Tag: "train_station", Group: GroupTransit},
	{Tag: "subway_station", Group: GroupTransit},
	{Tag: "light_rail_station", Group: GroupTransit},
	{Tag: "airport", Group: GroupAirport},
	{Tag: "shopping_mall", Group: GroupRetail},
	{Tag: "university", Group: GroupCampus},
	{Tag: "school", Group: GroupCampus},
	{Tag: "library", Group: GroupCivic},
	{Tag: "city_hall", Group: GroupCivic},
	{Tag: "local_government_office", Group: GroupCivic},
	{Tag: "park", Group: GroupPark},
	{Tag: "stadium", Group: GroupCulture},
	{Tag: "museum", Group: GroupCulture},
	{Tag: "church", Group: GroupCulture},
	{Tag: "mosque", Group: GroupCulture},
	{Tag: "restaurant", Group: GroupDining},
	{Tag: "cafe", Group: GroupDining},
}

var allowed = func() map[string]Category {
	m := make(map[string]Category, len(categories))
	for _, c := range categories {
		m[c.Tag] = c
	}
	return m
}()

// kinds maps shortcut buttons to the category searched for them.
var kinds = map[string]string{
	"train":   "train_station",
	"subway":  "subway_station",
	"bus":     "bus_station",
	"transit": "transit_station",
}

// Categories returns a copy of the allow-list table.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Tags returns the allow-listed provider tags in table order.
func Tags() []string {
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = c.Tag
	}
	return out
}

// IsAllowed reports whether a single tag is a public-place category.
func IsAllowed(tag string) bool {
	_, ok := allowed[strings.ToLower(tag)]
	return ok
}

// Intersects reports whether any of tags is allow-listed.
func Intersects(tags []string) bool {
	for _, t := range tags {
		if IsAllowed(t) {
			return true
		}
	}
	return false
}

// AllowedOf returns the allow-listed subset of tags, preserving order.
func AllowedOf(tags []string) []string {
	var out []string
	for _, t := range tags {
		if IsAllowed(t) {
			out = append(out, strings.ToLower(t))
		}
	}
	return out
}

// KindCategory resolves a shortcut kind (train, subway, bus, transit) to its tag.
func KindCategory(kind string) (string, bool) {
	tag, ok := kinds[strings.ToLower(strings.TrimSpace(kind))]
	return tag, ok
}

// LowerTags lowercases provider tags, dropping empties.
func LowerTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
