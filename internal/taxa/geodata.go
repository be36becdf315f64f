package taxa

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/fieldguide/internal/model"
	"github.com/sells-group/fieldguide/internal/region"
)

const (
	geoObservationPage = 200
	maxReferencePhotos = 5

	nativeShare     = 0.15
	introducedShare = 0.05
)

// GetTaxonGeographicData summarizes where a taxon is observed. A failing
// detail lookup only drops the explicit establishment data.
func (c *Client) GetTaxonGeographicData(ctx context.Context, taxonID int64) (*model.GeographicData, error) {
	var (
		detail *model.Taxon
		obs    []model.Observation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := c.GetTaxon(gctx, taxonID)
		if err != nil {
			zap.L().Warn("taxa: taxon detail unavailable, using observations only",
				zap.Int64("taxon_id", taxonID), zap.Error(err))
			return nil
		}
		detail = t
		return nil
	})
	g.Go(func() error {
		var err error
		obs, err = c.ListObservations(gctx, taxonID, ObservationOptions{
			PerPage:           geoObservationPage,
			AllowMissingPhoto: true,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var means []model.EstablishmentMeans
	if detail != nil {
		means = detail.EstablishmentMeans
	}
	return BuildGeographicData(obs, means), nil
}

// BuildGeographicData derives the density histogram, native and introduced
// continents, main habitat and reference photos from observations. Explicit
// establishment metadata takes precedence over the histogram.
func BuildGeographicData(obs []model.Observation, means []model.EstablishmentMeans) *model.GeographicData {
	gd := &model.GeographicData{Density: map[string]float64{}}

	continents := map[string]int{}
	biomes := map[string]int{}
	located := 0
	for _, o := range obs {
		if o.PhotoURL != "" && len(gd.ReferencePhotos) < maxReferencePhotos {
			gd.ReferencePhotos = append(gd.ReferencePhotos, o.PhotoURL)
		}
		if o.Coordinates == nil {
			continue
		}
		p := *o.Coordinates
		gd.ObservationPoints = append(gd.ObservationPoints, p)

		if b, ok := region.Biome(p.Lat, p.Lng); ok {
			biomes[b.Name]++
		}
		if name := region.Continent(p.Lat, p.Lng); name != region.Unknown {
			continents[name]++
			located++
		}
	}

	for name, n := range continents {
		gd.Density[name] = float64(n) / float64(located)
	}
	gd.MainHabitat = mostFrequent(biomes)

	if native, introduced := explicitRegions(means); len(native)+len(introduced) > 0 {
		gd.NativeRegions = native
		gd.IntroducedRegions = introduced
		return gd
	}

	top := mostFrequent(continents)
	for _, name := range sortedKeys(gd.Density) {
		share := gd.Density[name]
		switch {
		case name == top || share > nativeShare:
			gd.NativeRegions = append(gd.NativeRegions, name)
		case share > introducedShare:
			gd.IntroducedRegions = append(gd.IntroducedRegions, name)
		}
	}
	return gd
}

func explicitRegions(means []model.EstablishmentMeans) (native, introduced []string) {
	seen := map[string]bool{}
	for _, m := range means {
		if m.Place == "" || seen[m.Place] {
			continue
		}
		seen[m.Place] = true
		switch m.Status {
		case model.EstablishmentNative:
			native = append(native, m.Place)
		case model.EstablishmentIntroduced:
			introduced = append(introduced, m.Place)
		}
	}
	return native, introduced
}

// mostFrequent returns the key with the highest count, ties broken by name.
func mostFrequent(counts map[string]int) string {
	best, bestN := "", 0
	for _, k := range sortedKeys(counts) {
		if counts[k] > bestN {
			best, bestN = k, counts[k]
		}
	}
	return best
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
