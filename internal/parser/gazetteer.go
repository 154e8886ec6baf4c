package parser

import (
	"strings"

	"CivicScanner/internal/domain"
)

// City is one gazetteer entry: a canonical city name plus a default
// centroid used when no geotag coordinate exists.
type City struct {
	Name      string
	Latitude  float64
	Longitude float64
}

// DefaultCity is the placeholder centroid for issues whose location could
// not be determined at all.
var DefaultCity = City{Name: "Delhi", Latitude: 28.6139, Longitude: 77.2090}

// gazetteer maps known place-name spellings to canonical cities. Order
// matters for the free-text substring strategy, so it is a slice, not a
// map.
var gazetteer = []struct {
	key  string
	city City
}{
	{"delhi", City{"Delhi", 28.6139, 77.2090}},
	{"new delhi", City{"Delhi", 28.6139, 77.2090}},
	{"mumbai", City{"Mumbai", 19.0760, 72.8777}},
	{"bombay", City{"Mumbai", 19.0760, 72.8777}},
	{"bangalore", City{"Bangalore", 12.9716, 77.5946}},
	{"bengaluru", City{"Bangalore", 12.9716, 77.5946}},
	{"chennai", City{"Chennai", 13.0827, 80.2707}},
	{"madras", City{"Chennai", 13.0827, 80.2707}},
	{"kolkata", City{"Kolkata", 22.5726, 88.3639}},
	{"calcutta", City{"Kolkata", 22.5726, 88.3639}},
	{"hyderabad", City{"Hyderabad", 17.3850, 78.4867}},
	{"pune", City{"Pune", 18.5204, 73.8567}},
	{"ahmedabad", City{"Ahmedabad", 23.0225, 72.5714}},
	{"jaipur", City{"Jaipur", 26.9124, 75.7873}},
	{"lucknow", City{"Lucknow", 26.8467, 80.9462}},
	{"chandigarh", City{"Chandigarh", 30.7333, 76.7794}},
	{"noida", City{"Noida", 28.5355, 77.3910}},
	{"gurgaon", City{"Gurgaon", 28.4595, 77.0266}},
	{"gurugram", City{"Gurgaon", 28.4595, 77.0266}},
	{"faridabad", City{"Faridabad", 28.4089, 77.3178}},
	{"ghaziabad", City{"Ghaziabad", 28.6692, 77.4538}},
}

// LookupCity resolves a place-name spelling (case-insensitive) to its
// canonical gazetteer entry.
func LookupCity(name string) (City, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, e := range gazetteer {
		if e.key == key {
			return e.city, true
		}
	}
	return City{}, false
}

// findCityInText returns the first gazetteer city whose key appears as a
// substring of the lowercased text.
func findCityInText(lower string) (City, bool) {
	for _, e := range gazetteer {
		if strings.Contains(lower, e.key) {
			return e.city, true
		}
	}
	return City{}, false
}

// Centroid returns the city's default coordinates as a point.
func (c City) Centroid() *domain.Point {
	return &domain.Point{Latitude: c.Latitude, Longitude: c.Longitude}
}
