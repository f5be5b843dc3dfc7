// Package impact estimates the oxygen produced and CO2 absorbed by a planted
// tree from its species and age.
package impact

import (
	"math"
	"time"

	"github.com/dmitrijs2005/reforest/internal/server/models"
)

type Stage string

const (
	StageYoung  Stage = "young"
	StageMature Stage = "mature"
	StageOld    Stage = "old"
)

const (
	daysPerYear = 365.25
	// a tree reaches its full stage rate after this many years
	saturationYears = 10.0
	// kg of CO2 absorbed per kg of O2 produced
	co2PerOxygen = 1.5
	// annual CO2 emissions of an average car, kg
	carCO2KgYear = 4600.0
)

// Result is one estimate. Oxygen and CO2 are kg/year rounded to 2 decimals.
type Result struct {
	OxygenKgYear float64
	CO2KgYear    float64
	Years        float64
	Stage        Stage
}

type Estimator struct {
	rates RateTable
}

// NewEstimator uses the built-in table when rates is nil.
func NewEstimator(rates RateTable) *Estimator {
	if rates == nil {
		rates = DefaultRates()
	}
	return &Estimator{rates: rates}
}

// Estimate computes the output of a tree of the given species planted at
// plantedAt, as of now.
func (e *Estimator) Estimate(species string, plantedAt, now time.Time) Result {
	years := float64(AgeDays(plantedAt, now)) / daysPerYear
	stage := StageFor(years)

	rate := e.rates.Lookup(species).For(stage)
	factor := math.Min(years/saturationYears, 1.0)

	oxygen := round2(rate * factor)
	return Result{
		OxygenKgYear: oxygen,
		CO2KgYear:    round2(oxygen * co2PerOxygen),
		Years:        years,
		Stage:        stage,
	}
}

// Apply writes the estimate onto p. Plantings that are not validated get
// zero output and keep their previous timestamp; the caller persists p.
func (e *Estimator) Apply(p *models.Planting, now time.Time) Result {
	if p.State != models.PlantingValidated {
		p.OxygenKgYear = 0
		p.CO2KgYear = 0
		return Result{}
	}

	r := e.Estimate(p.Species, p.SubmittedAt, now)
	p.OxygenKgYear = r.OxygenKgYear
	p.CO2KgYear = r.CO2KgYear
	ts := now
	p.ImpactUpdatedAt = &ts
	return r
}

// StageFor classifies a tree age in years.
func StageFor(years float64) Stage {
	switch {
	case years < 2:
		return StageYoung
	case years < 10:
		return StageMature
	default:
		return StageOld
	}
}

// AgeDays counts calendar days between the planting date and now, in UTC.
// Dates in the future count as zero.
func AgeDays(plantedAt, now time.Time) int {
	from := truncateDay(plantedAt)
	to := truncateDay(now)
	if !to.After(from) {
		return 0
	}
	return int(math.Round(to.Sub(from).Hours() / 24))
}

// CarEquivalents expresses absorbed CO2 as cars taken off the road for a year.
func CarEquivalents(co2KgYear float64) float64 {
	if co2KgYear <= 0 {
		return 0
	}
	return co2KgYear / carCO2KgYear
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
