package models

import (
	"time"

	"github.com/dmitrijs2005/reforest/internal/geo"
)

type VerificationState string

const (
	VerificationPending  VerificationState = "pending"
	VerificationApproved VerificationState = "approved"
	VerificationRejected VerificationState = "rejected"
)

// Verification is a peer's on-site confirmation of a planting. It is itself
// reviewed by an admin.
type Verification struct {
	ID         string
	PlantingID string
	VerifierID string

	PhotoKey string
	// LocationPhotoKey is the optional second photo that earns a bonus.
	LocationPhotoKey string

	Lat   float64
	Lng   float64
	Notes string

	State         VerificationState
	SubmittedAt   time.Time
	ReviewerID    *string
	ReviewedAt    *time.Time
	AdminNotes    string
	PointsAwarded int
}

func (v *Verification) Point() geo.Point {
	return geo.Point{Lat: v.Lat, Lng: v.Lng}
}
