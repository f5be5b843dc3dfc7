package models

import (
	"time"

	"github.com/dmitrijs2005/reforest/internal/geo"
)

// Zone aggregates nearby validated plantings. The centroid is fixed when the
// zone is created; RadiusKm is the configured search radius.
type Zone struct {
	ID              string
	Name            string
	Description     string
	Terrain         string
	Lat             float64
	Lng             float64
	RadiusKm        float64
	MemberCount     int
	DominantSpecies string
	AutoGenerated   bool
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (z *Zone) Center() geo.Point {
	return geo.Point{Lat: z.Lat, Lng: z.Lng}
}
