package inaturalist

import (
	"strconv"
	"strings"
)

// TaxaResponse is the envelope returned by /taxa and /taxa/{id}.
type TaxaResponse struct {
	TotalResults int     `json:"total_results"`
	Page         int     `json:"page"`
	PerPage      int     `json:"per_page"`
	Results      []Taxon `json:"results"`
}

// Taxon is a raw taxon record.
type Taxon struct {
	ID                  int64       `json:"id"`
	Name                string      `json:"name"`
	Rank                string      `json:"rank"`
	RankLevel           float64     `json:"rank_level"`
	PreferredCommonName string      `json:"preferred_common_name"`
	IconicTaxonName     string      `json:"iconic_taxon_name"`
	WikipediaSummary    string      `json:"wikipedia_summary"`
	WikipediaURL        string      `json:"wikipedia_url"`
	ObservationsCount   int         `json:"observations_count"`
	DefaultPhoto        *Photo      `json:"default_photo"`
	EstablishmentMeans  *Means      `json:"establishment_means"`
	ListedTaxa          []ListedTax `json:"listed_taxa"`
}

// Photo is a raw photo record.
type Photo struct {
	ID        int64  `json:"id"`
	URL       string `json:"url"`
	MediumURL string `json:"medium_url"`
	SquareURL string `json:"square_url"`
}

// BestURL returns the largest available rendition.
func (p Photo) BestURL() string {
	if p.MediumURL != "" {
		return p.MediumURL
	}
	if p.URL != "" {
		return strings.Replace(p.URL, "/square.", "/medium.", 1)
	}
	return p.SquareURL
}

// Means is establishment metadata attached to search results.
type Means struct {
	EstablishmentMeans string `json:"establishment_means"`
	Place              *Place `json:"place"`
}

// ListedTax is a checklist entry attached to a taxon detail record.
type ListedTax struct {
	EstablishmentMeans string `json:"establishment_means"`
	Place              *Place `json:"place"`
}

// Place is a raw place record.
type Place struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// Label prefers the display name.
func (p Place) Label() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Name
}

// ObservationsResponse is the envelope returned by /observations.
type ObservationsResponse struct {
	TotalResults int           `json:"total_results"`
	Page         int           `json:"page"`
	PerPage      int           `json:"per_page"`
	Results      []Observation `json:"results"`
}

// Observation is a raw observation record.
type Observation struct {
	ID           int64    `json:"id"`
	URI          string   `json:"uri"`
	ObservedOn   string   `json:"observed_on"`
	PlaceGuess   string   `json:"place_guess"`
	QualityGrade string   `json:"quality_grade"`
	Location     string   `json:"location"`
	GeoJSON      *GeoJSON `json:"geojson"`
	Photos       []Photo  `json:"photos"`
	Taxon        *Taxon   `json:"taxon"`
}

// GeoJSON is a point geometry, coordinates are [lng, lat].
type GeoJSON struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// LatLng returns the observation coordinates from geojson, falling back to
// the "lat,lng" location string.
func (o Observation) LatLng() (lat, lng float64, ok bool) {
	if o.GeoJSON != nil && len(o.GeoJSON.Coordinates) == 2 {
		return o.GeoJSON.Coordinates[1], o.GeoJSON.Coordinates[0], true
	}
	parts := strings.Split(o.Location, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

// BoundingBox restricts observations to a rectangle.
type BoundingBox struct {
	SWLat float64
	SWLng float64
	NELat float64
	NELng float64
}

// ObservationQuery filters /observations.
type ObservationQuery struct {
	TaxonID      int64
	PerPage      int
	Page         int
	QualityGrade string
	Geo          bool
	Photos       bool
	Bounds       *BoundingBox
	OrderBy      string
	Order        string
}
