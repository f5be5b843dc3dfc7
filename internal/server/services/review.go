package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/reforest/internal/common"
	"github.com/dmitrijs2005/reforest/internal/geo"
	"github.com/dmitrijs2005/reforest/internal/server/models"
)

type VerificationCounts struct {
	Pending  int
	Approved int
	Rejected int
}

func (c *VerificationCounts) add(v *models.Verification) {
	switch v.State {
	case models.VerificationPending:
		c.Pending++
	case models.VerificationApproved:
		c.Approved++
	case models.VerificationRejected:
		c.Rejected++
	}
}

func countVerifications(vs []*models.Verification) VerificationCounts {
	var c VerificationCounts
	for _, v := range vs {
		c.add(v)
	}
	return c
}

// VerificationQueue is the admin review list. Counts always cover every
// state, whatever the filter.
type VerificationQueue struct {
	Verifications []*models.Verification
	Counts        VerificationCounts
}

type VerifierHistory struct {
	VerifierID    string
	Verifications []*models.Verification
	Counts        VerificationCounts
}

// VerificationPreview is what an admin sees before deciding: the distance
// to the live planting coordinates and the points approval would award.
type VerificationPreview struct {
	Verification   *models.Verification
	Planting       *models.Planting
	DistanceMeters float64
	Points         int
	// Siblings are the other verifications filed for the same planting.
	Siblings []*models.Verification
}

// ListVerifications returns verifications in state, newest first. An empty
// state lists all of them.
func (s *VerificationService) ListVerifications(ctx context.Context, state models.VerificationState) (*VerificationQueue, error) {
	switch state {
	case "", models.VerificationPending, models.VerificationApproved, models.VerificationRejected:
	default:
		return nil, common.NewValidationError("state", fmt.Sprintf("unknown verification state %q", state))
	}

	repo := s.Repos.Verifications(s.DB)
	all, err := repo.ListByState(ctx, "")
	if err != nil {
		return nil, err
	}
	q := &VerificationQueue{Verifications: all, Counts: countVerifications(all)}
	if state == "" {
		return q, nil
	}

	if q.Verifications, err = repo.ListByState(ctx, state); err != nil {
		return nil, err
	}
	return q, nil
}

// VerifierHistory lists what verifierID has filed, newest first.
func (s *VerificationService) VerifierHistory(ctx context.Context, verifierID string) (*VerifierHistory, error) {
	if _, err := s.Repos.Profiles(s.DB).Get(ctx, verifierID); err != nil {
		return nil, fmt.Errorf("verifier %s: %w", verifierID, err)
	}
	vs, err := s.Repos.Verifications(s.DB).ListByVerifier(ctx, verifierID)
	if err != nil {
		return nil, err
	}
	return &VerifierHistory{VerifierID: verifierID, Verifications: vs, Counts: countVerifications(vs)}, nil
}

// PreviewVerification scores a verification the way ApproveVerification
// would, without writing anything. Reviewed verifications report the
// points they were awarded.
func (s *VerificationService) PreviewVerification(ctx context.Context, verificationID string) (*VerificationPreview, error) {
	v, err := s.Repos.Verifications(s.DB).Get(ctx, verificationID)
	if err != nil {
		return nil, err
	}
	p, err := s.Repos.Plantings(s.DB).Get(ctx, v.PlantingID)
	if err != nil {
		return nil, err
	}
	all, err := s.Repos.Verifications(s.DB).ListByPlanting(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	out := &VerificationPreview{
		Verification:   v,
		Planting:       p,
		DistanceMeters: roundCm(geo.DistanceMeters(p.Point(), v.Point())),
	}
	if v.State == models.VerificationPending {
		out.Points = ScoreVerification(out.DistanceMeters, v.LocationPhotoKey != "")
	} else {
		out.Points = v.PointsAwarded
	}
	for _, o := range all {
		if o.ID != v.ID {
			out.Siblings = append(out.Siblings, o)
		}
	}
	return out, nil
}
