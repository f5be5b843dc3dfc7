package models

import (
	"time"

	"github.com/dmitrijs2005/reforest/internal/geo"
)

type PlantingState string

const (
	PlantingPending        PlantingState = "pending"
	PlantingInVerification PlantingState = "in_verification"
	PlantingValidated      PlantingState = "validated"
	PlantingRejected       PlantingState = "rejected"
)

// Terminal reports whether no further transition is allowed from s.
func (s PlantingState) Terminal() bool {
	return s == PlantingValidated || s == PlantingRejected
}

// Planting is a user's claim that a tree was planted at a location.
type Planting struct {
	ID          string
	SubmitterID string
	PhotoKey    string
	Lat         float64
	Lng         float64
	Species     string
	Description string
	Points      int
	State       PlantingState

	SubmittedAt time.Time
	ValidatedAt *time.Time
	ReviewerID  *string
	AdminNotes  string

	OxygenKgYear    float64
	CO2KgYear       float64
	ImpactUpdatedAt *time.Time

	// ZoneID links a validated planting to the zone it was clustered into.
	ZoneID *string
}

func (p *Planting) Point() geo.Point {
	return geo.Point{Lat: p.Lat, Lng: p.Lng}
}
