package model

import "time"

// MatchSource records which query produced a candidate taxon.
type MatchSource string

const (
	SourceKnownSpecies  MatchSource = "known_species"
	SourceSearchTerm    MatchSource = "search_term"
	SourceTaxonomicHint MatchSource = "taxonomic_hint"
)

// CandidateMatch is a taxon competing to be the final identification.
// MatchScore is computed per request and never persisted.
type CandidateMatch struct {
	Taxon        Taxon         `json:"taxon"`
	Observations []Observation `json:"observations,omitempty"`
	MatchScore   float64       `json:"matchScore"`
	Source       MatchSource   `json:"source,omitempty"`
}

// Suggestion is the display projection of a CandidateMatch.
type Suggestion struct {
	TaxonID          int64         `json:"taxonId"`
	Name             string        `json:"name"`
	CommonName       string        `json:"commonName,omitempty"`
	Rank             string        `json:"rank"`
	RankLevel        int           `json:"rankLevel"`
	MatchScore       float64       `json:"matchScore"`
	ObservationCount int           `json:"observationCount"`
	Observations     []Observation `json:"observations,omitempty"`
	PhotoURL         string        `json:"photoUrl,omitempty"`
}

// IdentificationResult is the payload returned to callers and stored in history.
type IdentificationResult struct {
	Category         Category            `json:"category"`
	Name             string              `json:"name"`
	ScientificName   string              `json:"scientificName,omitempty"`
	TaxonomicLevel   string              `json:"taxonomicLevel,omitempty"`
	TaxonID          int64               `json:"taxonId,omitempty"`
	Confidence       float64             `json:"confidence"`
	Description      string              `json:"description,omitempty"`
	Distribution     string              `json:"distribution,omitempty"`
	Habitat          string              `json:"habitat,omitempty"`
	InterestingFacts []string            `json:"interestingFacts,omitempty"`
	LocationMatch    string              `json:"locationMatch,omitempty"`
	GeographicData   *GeographicData     `json:"geographicData,omitempty"`
	Suggestions      []Suggestion        `json:"suggestions"`
	AdditionalInfo   map[string]string   `json:"additionalInfo,omitempty"`
	NoMatch          bool                `json:"noMatch"`
	Features         *NormalizedFeatures `json:"features,omitempty"`
	Model            string              `json:"model,omitempty"`
	Region           string              `json:"region,omitempty"`
}

// ErrorResult is the failure payload returned to callers.
type ErrorResult struct {
	ErrorKind      string `json:"kind"`
	Message        string `json:"message"`
	RetryGuidance  string `json:"retryGuidance,omitempty"`
	RetryAfterSecs int    `json:"retry_after_secs,omitempty"`
}

// HistoryRecord is one stored identification.
type HistoryRecord struct {
	ID        string               `json:"id"`
	Timestamp time.Time            `json:"timestamp"`
	ImageRef  string               `json:"imageRef,omitempty"`
	Location  *LocationData        `json:"location,omitempty"`
	Result    IdentificationResult `json:"result"`
	Category  Category             `json:"category"`
}
