// Package region classifies coordinates into named biomes and continents
// using ordered rectangular bounding boxes.
package region

import (
	"github.com/twpayne/go-geom"
)

// Unknown is returned when no box contains the point.
const Unknown = "Unknown Region"

// Level distinguishes biome boxes from continent boxes.
type Level string

const (
	LevelBiome     Level = "biome"
	LevelContinent Level = "continent"
)

// Box is a named lat/lng rectangle. Edges are inclusive.
type Box struct {
	Name   string
	Level  Level
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
	// LargeBasin marks dense ecoregions searched by their whole box rather than a radius.
	LargeBasin bool
	// Keywords are lowercase terms showing textual affinity to the region.
	Keywords []string

	bounds *geom.Bounds
}

func newBox(b Box) Box {
	b.bounds = geom.NewBounds(geom.XY).Set(b.MinLng, b.MinLat, b.MaxLng, b.MaxLat)
	return b
}

// Contains reports whether the point lies inside the box.
func (b Box) Contains(lat, lng float64) bool {
	if b.bounds == nil {
		return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
	}
	return b.bounds.OverlapsPoint(geom.XY, geom.Coord{lng, lat})
}

// Result is the outcome of classifying one point.
type Result struct {
	Name       string `json:"region"`
	Level      Level  `json:"level,omitempty"`
	Continent  string `json:"continent"`
	LargeBasin bool   `json:"largeBasin"`
}

// Classify returns the first biome containing the point, else the first
// continent, else Unknown. Table order is priority order.
func Classify(lat, lng float64) string {
	if b, ok := Biome(lat, lng); ok {
		return b.Name
	}
	return Continent(lat, lng)
}

// Lookup classifies a point and reports its continent and basin membership.
func Lookup(lat, lng float64) Result {
	res := Result{Name: Unknown, Continent: Continent(lat, lng)}
	if b, ok := Biome(lat, lng); ok {
		res.Name = b.Name
		res.Level = LevelBiome
		res.LargeBasin = b.LargeBasin
		return res
	}
	if res.Continent != Unknown {
		res.Name = res.Continent
		res.Level = LevelContinent
	}
	return res
}

// Biome returns the first biome box containing the point.
func Biome(lat, lng float64) (Box, bool) {
	return first(biomes, lat, lng)
}

// Continent returns the continent containing the point, or Unknown.
func Continent(lat, lng float64) string {
	if b, ok := first(continents, lat, lng); ok {
		return b.Name
	}
	return Unknown
}

// LargeBasinAt returns the large-basin box containing the point.
func LargeBasinAt(lat, lng float64) (Box, bool) {
	for _, b := range biomes {
		if b.LargeBasin && b.Contains(lat, lng) {
			return b, true
		}
	}
	return Box{}, false
}

// Biomes returns a copy of the biome table in priority order.
func Biomes() []Box {
	return append([]Box(nil), biomes...)
}

// Continents returns a copy of the continent table in priority order.
func Continents() []Box {
	return append([]Box(nil), continents...)
}

// ContinentNames lists continent bucket names in table order.
func ContinentNames() []string {
	names := make([]string, len(continents))
	for i, b := range continents {
		names[i] = b.Name
	}
	return names
}

func first(boxes []Box, lat, lng float64) (Box, bool) {
	for _, b := range boxes {
		if b.Contains(lat, lng) {
			return b, true
		}
	}
	return Box{}, false
}
