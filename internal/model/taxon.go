package model

import (
	"math"
	"strings"
)

// Rank levels, broader taxa have lower values.
const (
	RankLevelKingdom    = 10
	RankLevelPhylum     = 20
	RankLevelClass      = 30
	RankLevelOrder      = 40
	RankLevelFamily     = 50
	RankLevelGenus      = 60
	RankLevelSpecies    = 70
	RankLevelSubspecies = 75
)

var rankLevels = map[string]int{
	"kingdom":     RankLevelKingdom,
	"phylum":      RankLevelPhylum,
	"division":    RankLevelPhylum,
	"class":       RankLevelClass,
	"subclass":    33,
	"order":       RankLevelOrder,
	"suborder":    43,
	"superfamily": 47,
	"family":      RankLevelFamily,
	"subfamily":   53,
	"tribe":       55,
	"genus":       RankLevelGenus,
	"subgenus":    65,
	"species":     RankLevelSpecies,
	"subspecies":  RankLevelSubspecies,
	"variety":     RankLevelSubspecies,
}

// RankLevelForName maps a rank label to its level, or 0 when unknown.
func RankLevelForName(rank string) int {
	return rankLevels[strings.ToLower(strings.TrimSpace(rank))]
}

// RankLevelFromINat converts iNaturalist's rank_level (species=10, kingdom=70)
// to the ascending scale used here (kingdom=10, species=70).
func RankLevelFromINat(level float64) int {
	if level <= 0 {
		return 0
	}
	return int(math.Round(80 - level))
}

// EstablishmentStatus is whether a taxon is native where it was recorded.
type EstablishmentStatus string

const (
	EstablishmentNative     EstablishmentStatus = "native"
	EstablishmentIntroduced EstablishmentStatus = "introduced"
)

// EstablishmentMeans is explicit native/introduced metadata for one place.
type EstablishmentMeans struct {
	Status EstablishmentStatus `json:"status"`
	Place  string              `json:"place,omitempty"`
}

// Taxon is a named node in the biological classification.
type Taxon struct {
	ID                  int64                `json:"id"`
	Name                string               `json:"name"`
	PreferredCommonName string               `json:"preferredCommonName,omitempty"`
	Rank                string               `json:"rank"`
	RankLevel           int                  `json:"rankLevel"`
	IconicGroup         string               `json:"iconicGroup,omitempty"`
	SummaryText         string               `json:"summaryText,omitempty"`
	EstablishmentMeans  []EstablishmentMeans `json:"establishmentMeans,omitempty"`
	DefaultPhotoURL     string               `json:"defaultPhotoUrl,omitempty"`
	ObservationsCount   int                  `json:"observationsCount,omitempty"`
	WikipediaURL        string               `json:"wikipediaUrl,omitempty"`
}

// IsBinomial reports whether the scientific name has at least two words.
func (t Taxon) IsBinomial() bool {
	return strings.Contains(strings.TrimSpace(t.Name), " ")
}

// DisplayName prefers the common name.
func (t Taxon) DisplayName() string {
	if t.PreferredCommonName != "" {
		return t.PreferredCommonName
	}
	return t.Name
}

// Text joins the scientific name, common name and summary for keyword matching.
func (t Taxon) Text() string {
	return strings.Join([]string{t.Name, t.PreferredCommonName, t.SummaryText}, " ")
}

// Category derives the organism category from the iconic group.
func (t Taxon) Category() Category {
	return CategoryForIconic(t.IconicGroup)
}

// CategoryForIconic maps an iNaturalist iconic taxon name to a Category.
func CategoryForIconic(iconic string) Category {
	switch strings.ToLower(iconic) {
	case "plantae":
		return CategoryPlant
	case "fungi":
		return CategoryFungus
	case "insecta", "arachnida":
		return CategoryInsect
	case "aves", "mammalia", "reptilia", "amphibia", "actinopterygii", "mollusca", "animalia":
		return CategoryAnimal
	default:
		return CategoryOther
	}
}

// Observation is one recorded sighting of a taxon.
type Observation struct {
	ID           int64   `json:"id"`
	TaxonID      int64   `json:"taxonId,omitempty"`
	Coordinates  *Coords `json:"coordinates,omitempty"`
	ObservedDate string  `json:"observedDate,omitempty"`
	PlaceLabel   string  `json:"placeLabel,omitempty"`
	QualityGrade string  `json:"qualityGrade,omitempty"`
	PhotoURL     string  `json:"photoUrl,omitempty"`
	URI          string  `json:"uri,omitempty"`
}

// GeographicData summarizes where a taxon has been observed.
type GeographicData struct {
	NativeRegions     []string           `json:"nativeRegions,omitempty"`
	IntroducedRegions []string           `json:"introducedRegions,omitempty"`
	Density           map[string]float64 `json:"density,omitempty"`
	MainHabitat       string             `json:"mainHabitat,omitempty"`
	ObservationPoints []Coords           `json:"observationPoints,omitempty"`
	ReferencePhotos   []string           `json:"referencePhotos,omitempty"`
}
