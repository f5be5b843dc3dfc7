package services

import (
	"context"
	"errors"
	"math"

	"github.com/dmitrijs2005/reforest/internal/dbx"
	"github.com/dmitrijs2005/reforest/internal/server/impact"
	"github.com/dmitrijs2005/reforest/internal/server/models"
)

// RefreshReport tallies a refresh run. Skipped counts plantings that left the
// validated state between listing and their update.
type RefreshReport struct {
	Total        int
	Updated      int
	Failed       int
	Skipped      int
	Errors       map[string]error
	OxygenKgYear float64
	CO2KgYear    float64
	// CarEquivalents is the number of cars whose yearly emissions the
	// absorbed CO2 offsets.
	CarEquivalents float64
}

var errNotValidated = errors.New("planting no longer validated")

type ImpactService struct {
	Deps
}

func NewImpactService(d Deps) *ImpactService {
	d.withDefaults()
	return &ImpactService{Deps: d}
}

// RefreshAll recomputes the impact of every validated planting as of now, one
// transaction per planting. Totals cover the plantings that were updated.
func (s *ImpactService) RefreshAll(ctx context.Context) (*RefreshReport, error) {
	validated, err := s.Repos.Plantings(s.DB).ListByState(ctx, models.PlantingValidated)
	if err != nil {
		return nil, err
	}

	rep := &RefreshReport{Total: len(validated)}
	for _, v := range validated {
		var res impact.Result
		err := s.Tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
			repo := s.Repos.Plantings(tx)
			p, err := repo.GetForUpdate(ctx, v.ID)
			if err != nil {
				return err
			}
			if p.State != models.PlantingValidated {
				return errNotValidated
			}
			res = s.Estimator.Apply(p, s.Clock.Now())
			return repo.Update(ctx, p)
		})
		if errors.Is(err, errNotValidated) {
			rep.Skipped++
			s.Logger.Info(ctx, "impact refresh skipped", "planting_id", v.ID)
			continue
		}
		if err != nil {
			rep.Failed++
			if rep.Errors == nil {
				rep.Errors = map[string]error{}
			}
			rep.Errors[v.ID] = err
			s.Logger.Error(ctx, "impact refresh failed", "planting_id", v.ID, "error", err)
			continue
		}

		rep.Updated++
		rep.OxygenKgYear += res.OxygenKgYear
		rep.CO2KgYear += res.CO2KgYear
	}

	rep.OxygenKgYear = round2(rep.OxygenKgYear)
	rep.CO2KgYear = round2(rep.CO2KgYear)
	rep.CarEquivalents = round2(impact.CarEquivalents(rep.CO2KgYear))

	s.Logger.Info(ctx, "impact refreshed",
		"total", rep.Total, "updated", rep.Updated, "failed", rep.Failed, "skipped", rep.Skipped,
		"oxygen_kg_year", rep.OxygenKgYear, "co2_kg_year", rep.CO2KgYear)
	return rep, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
