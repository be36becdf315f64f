package taxa

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/fieldguide/internal/apperr"
	"github.com/sells-group/fieldguide/internal/model"
)

// CollectOptions controls a paged observation download.
type CollectOptions struct {
	Count        int
	QualityGrade string
	PageSize     int
	PageDelay    time.Duration
}

// Collection is the result of a paged observation download.
type Collection struct {
	Taxon        model.Taxon         `json:"taxon"`
	Observations []model.Observation `json:"observations"`
}

// Collect resolves taxonName to its best match and pages through its
// photographed observations, best quality first, until Count is reached or
// the listing runs out.
func (c *Client) Collect(ctx context.Context, taxonName string, opts CollectOptions) (*Collection, error) {
	if opts.Count <= 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "collect: count must be positive")
	}
	if opts.PageSize <= 0 || opts.PageSize > maxPerPage {
		opts.PageSize = maxPerPage
	}
	if opts.QualityGrade == "" {
		opts.QualityGrade = "research"
	}

	matches, err := c.SearchTaxaByText(ctx, taxonName, 1)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, apperr.Newf(apperr.KindInvalidInput, "collect: no taxon found for %q", taxonName)
	}

	out := &Collection{Taxon: matches[0]}
	log := zap.L().With(zap.String("taxon", out.Taxon.Name), zap.Int64("taxon_id", out.Taxon.ID))

	for page := 1; len(out.Observations) < opts.Count; page++ {
		if page > 1 && opts.PageDelay > 0 {
			select {
			case <-ctx.Done():
				return out, ctx.Err()
			case <-time.After(opts.PageDelay):
			}
		}

		batch, err := c.ListObservations(ctx, out.Taxon.ID, ObservationOptions{
			PerPage:         opts.PageSize,
			Page:            page,
			QualityGrade:    opts.QualityGrade,
			AllowMissingGeo: true,
			OrderBy:         "quality_grade",
			Order:           "desc",
		})
		if err != nil {
			if page == 1 {
				return nil, err
			}
			log.Warn("taxa: collect stopped early", zap.Int("page", page), zap.Error(err))
			break
		}
		if len(batch) == 0 {
			break
		}

		remaining := opts.Count - len(out.Observations)
		if len(batch) > remaining {
			batch = batch[:remaining]
		}
		out.Observations = append(out.Observations, batch...)
		log.Debug("taxa: collected page", zap.Int("page", page), zap.Int("total", len(out.Observations)))
	}

	return out, nil
}
