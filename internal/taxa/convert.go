package taxa

import (
	"strings"

	"github.com/k3a/html2text"

	"github.com/sells-group/fieldguide/internal/model"
	"github.com/sells-group/fieldguide/pkg/inaturalist"
)

func toTaxon(raw inaturalist.Taxon) model.Taxon {
	t := model.Taxon{
		ID:                  raw.ID,
		Name:                raw.Name,
		PreferredCommonName: raw.PreferredCommonName,
		Rank:                raw.Rank,
		RankLevel:           model.RankLevelFromINat(raw.RankLevel),
		IconicGroup:         raw.IconicTaxonName,
		SummaryText:         plainText(raw.WikipediaSummary),
		ObservationsCount:   raw.ObservationsCount,
		WikipediaURL:        raw.WikipediaURL,
	}
	if t.RankLevel == 0 {
		t.RankLevel = model.RankLevelForName(raw.Rank)
	}
	if raw.DefaultPhoto != nil {
		t.DefaultPhotoURL = raw.DefaultPhoto.BestURL()
	}

	seen := make(map[string]bool)
	addMeans := func(means string, place *inaturalist.Place) {
		status, ok := establishmentStatus(means)
		if !ok {
			return
		}
		em := model.EstablishmentMeans{Status: status}
		if place != nil {
			em.Place = place.Label()
		}
		key := string(em.Status) + "|" + em.Place
		if seen[key] {
			return
		}
		seen[key] = true
		t.EstablishmentMeans = append(t.EstablishmentMeans, em)
	}
	if raw.EstablishmentMeans != nil {
		addMeans(raw.EstablishmentMeans.EstablishmentMeans, raw.EstablishmentMeans.Place)
	}
	for _, lt := range raw.ListedTaxa {
		addMeans(lt.EstablishmentMeans, lt.Place)
	}
	return t
}

func toObservation(raw inaturalist.Observation, taxonID int64) model.Observation {
	o := model.Observation{
		ID:           raw.ID,
		TaxonID:      taxonID,
		ObservedDate: raw.ObservedOn,
		PlaceLabel:   raw.PlaceGuess,
		QualityGrade: raw.QualityGrade,
		URI:          raw.URI,
	}
	if raw.Taxon != nil && raw.Taxon.ID != 0 {
		o.TaxonID = raw.Taxon.ID
	}
	if lat, lng, ok := raw.LatLng(); ok {
		o.Coordinates = &model.Coords{Lat: lat, Lng: lng}
	}
	if len(raw.Photos) > 0 {
		o.PhotoURL = raw.Photos[0].BestURL()
	}
	return o
}

func establishmentStatus(means string) (model.EstablishmentStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(means)) {
	case "native", "endemic":
		return model.EstablishmentNative, true
	case "introduced", "naturalised", "naturalized", "invasive", "managed":
		return model.EstablishmentIntroduced, true
	default:
		return "", false
	}
}

func plainText(html string) string {
	if html == "" {
		return ""
	}
	return strings.Join(strings.Fields(html2text.HTML2Text(html)), " ")
}
