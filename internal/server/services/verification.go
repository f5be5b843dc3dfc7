package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dmitrijs2005/reforest/internal/common"
	"github.com/dmitrijs2005/reforest/internal/dbx"
	"github.com/dmitrijs2005/reforest/internal/geo"
	"github.com/dmitrijs2005/reforest/internal/server/clustering"
	"github.com/dmitrijs2005/reforest/internal/server/impact"
	"github.com/dmitrijs2005/reforest/internal/server/models"
)

// PlantingInput is a citizen's submission. Location is nil when the client
// did not share coordinates. Points of zero means the configured default.
type PlantingInput struct {
	SubmitterID string
	PhotoKey    string
	Location    *geo.Point
	Species     string
	Description string
	Points      int
}

type VerificationInput struct {
	VerifierID       string
	PlantingID       string
	PhotoKey         string
	LocationPhotoKey string
	Location         *geo.Point
	Notes            string
}

// ApprovalOutcome reports what approving a verification credited.
type ApprovalOutcome struct {
	Verification   *models.Verification
	Points         int
	DistanceMeters float64
	LeveledUp      bool
	// UnlockedVerification is set when this approval lifted the verifier to
	// the level that grants verification rights.
	UnlockedVerification bool
}

// ValidationOutcome keeps the steps of a planting validation apart: the
// committed credit and impact, then the best-effort clustering result.
type ValidationOutcome struct {
	Planting  *models.Planting
	Credited  bool
	LeveledUp bool
	Impact    impact.Result

	Zone       *clustering.Outcome
	ClusterErr error
}

type BatchResult struct {
	Succeeded int
	Failed    int
	Errors    map[string]error
}

func (r *BatchResult) record(id string, err error) {
	if err == nil {
		r.Succeeded++
		return
	}
	r.Failed++
	if r.Errors == nil {
		r.Errors = map[string]error{}
	}
	r.Errors[id] = err
}

type NearbyPlanting struct {
	Planting   *models.Planting
	DistanceKm float64
}

// VerificationService drives plantings and verifications through review.
type VerificationService struct {
	Deps
}

func NewVerificationService(d Deps) *VerificationService {
	d.withDefaults()
	return &VerificationService{Deps: d}
}

// SubmitPlanting records a new pending planting for an existing profile.
func (s *VerificationService) SubmitPlanting(ctx context.Context, in PlantingInput) (*models.Planting, error) {
	if strings.TrimSpace(in.PhotoKey) == "" {
		return nil, common.NewValidationError("photo", "a photo of the planted tree is required")
	}
	if in.Location == nil {
		return nil, common.NewValidationError("location", "coordinates are required")
	}
	if !geo.Valid(*in.Location) {
		return nil, common.NewValidationError("location", "coordinates are out of range")
	}
	if in.Points < 0 {
		return nil, common.NewValidationError("points", "must not be negative")
	}

	if _, err := s.Repos.Profiles(s.DB).Get(ctx, in.SubmitterID); err != nil {
		return nil, fmt.Errorf("submitter %s: %w", in.SubmitterID, err)
	}

	points := in.Points
	if points == 0 {
		points = s.DefaultPoints
	}
	loc := geo.Round6(*in.Location)

	p, err := s.Repos.Plantings(s.DB).Create(ctx, &models.Planting{
		ID:          newID(),
		SubmitterID: in.SubmitterID,
		PhotoKey:    in.PhotoKey,
		Lat:         loc.Lat,
		Lng:         loc.Lng,
		Species:     strings.TrimSpace(in.Species),
		Description: in.Description,
		Points:      points,
		State:       models.PlantingPending,
		SubmittedAt: s.Clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info(ctx, "planting submitted", "planting_id", p.ID, "submitter_id", p.SubmitterID)
	return p, nil
}

// SubmitVerification files a peer check against a pending planting and moves
// the planting into verification.
func (s *VerificationService) SubmitVerification(ctx context.Context, in VerificationInput) (*models.Verification, error) {
	if strings.TrimSpace(in.PhotoKey) == "" {
		return nil, common.NewValidationError("photo", "a verification photo is required")
	}
	if in.Location == nil {
		return nil, common.NewValidationError("location", "coordinates are required")
	}
	if !geo.Valid(*in.Location) {
		return nil, common.NewValidationError("location", "coordinates are out of range")
	}

	var out *models.Verification
	err := s.Tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		verifier, err := s.Repos.Profiles(tx).Get(ctx, in.VerifierID)
		if err != nil {
			return fmt.Errorf("verifier %s: %w", in.VerifierID, err)
		}
		if !s.Authorizer.CanVerify(ctx, verifier) {
			return fmt.Errorf("%w: %s may not verify plantings", common.ErrorUnauthorized, in.VerifierID)
		}

		plantings := s.Repos.Plantings(tx)
		p, err := plantings.GetForUpdate(ctx, in.PlantingID)
		if err != nil {
			return err
		}
		if p.State != models.PlantingPending {
			return common.NewStateError("planting", p.ID, string(p.State), "verify")
		}

		loc := geo.Round6(*in.Location)
		out, err = s.Repos.Verifications(tx).Create(ctx, &models.Verification{
			ID:               newID(),
			PlantingID:       p.ID,
			VerifierID:       in.VerifierID,
			PhotoKey:         in.PhotoKey,
			LocationPhotoKey: in.LocationPhotoKey,
			Lat:              loc.Lat,
			Lng:              loc.Lng,
			Notes:            in.Notes,
			State:            models.VerificationPending,
			SubmittedAt:      s.Clock.Now(),
		})
		if err != nil {
			return err
		}

		p.State = models.PlantingInVerification
		return plantings.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info(ctx, "verification submitted",
		"verification_id", out.ID, "planting_id", out.PlantingID, "verifier_id", out.VerifierID)
	return out, nil
}

// ApproveVerification scores a pending verification against the live
// planting coordinates and credits the verifier. It does not validate the
// planting.
func (s *VerificationService) ApproveVerification(ctx context.Context, verificationID, reviewerID string) (*ApprovalOutcome, error) {
	var out *ApprovalOutcome
	err := s.Tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		verifications := s.Repos.Verifications(tx)
		v, err := verifications.GetForUpdate(ctx, verificationID)
		if err != nil {
			return err
		}
		if v.State != models.VerificationPending {
			return common.NewStateError("verification", v.ID, string(v.State), "approve")
		}

		plantings := s.Repos.Plantings(tx)
		p, err := plantings.GetForUpdate(ctx, v.PlantingID)
		if err != nil {
			return err
		}
		profiles := s.Repos.Profiles(tx)
		verifier, err := profiles.GetForUpdate(ctx, v.VerifierID)
		if err != nil {
			return err
		}
		avatars, err := s.Repos.Avatars(tx).List(ctx)
		if err != nil {
			return err
		}

		now := s.Clock.Now()
		dist := roundCm(geo.DistanceMeters(p.Point(), v.Point()))
		points := ScoreVerification(dist, v.LocationPhotoKey != "")

		before := verifier.Level
		verifier.VerificationsPerformed++
		verifier.VerificationsApproved++
		verifier.VerificationPoints += points
		leveled := s.Engine.AwardPoints(verifier, points, avatars)
		verifier.UpdatedAt = now
		if err := profiles.Update(ctx, verifier); err != nil {
			return err
		}

		v.State = models.VerificationApproved
		v.ReviewerID = &reviewerID
		v.ReviewedAt = &now
		v.PointsAwarded = points
		if err := verifications.Update(ctx, v); err != nil {
			return err
		}

		if !p.State.Terminal() && p.State != models.PlantingInVerification {
			p.State = models.PlantingInVerification
			if err := plantings.Update(ctx, p); err != nil {
				return err
			}
		}

		out = &ApprovalOutcome{
			Verification:         v,
			Points:               points,
			DistanceMeters:       dist,
			LeveledUp:            leveled,
			UnlockedVerification: leveled && before < s.VerifierLevel && verifier.Level >= s.VerifierLevel,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info(ctx, "verification approved",
		"verification_id", verificationID, "reviewer_id", reviewerID,
		"points", out.Points, "distance_m", out.DistanceMeters, "leveled_up", out.LeveledUp)
	return out, nil
}

// RejectVerification closes a pending verification without credit and
// returns the planting to the pending pool.
func (s *VerificationService) RejectVerification(ctx context.Context, verificationID, reviewerID, reason string) error {
	err := s.Tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		verifications := s.Repos.Verifications(tx)
		v, err := verifications.GetForUpdate(ctx, verificationID)
		if err != nil {
			return err
		}
		if v.State != models.VerificationPending {
			return common.NewStateError("verification", v.ID, string(v.State), "reject")
		}

		plantings := s.Repos.Plantings(tx)
		p, err := plantings.GetForUpdate(ctx, v.PlantingID)
		if err != nil {
			return err
		}
		profiles := s.Repos.Profiles(tx)
		verifier, err := profiles.GetForUpdate(ctx, v.VerifierID)
		if err != nil {
			return err
		}

		now := s.Clock.Now()
		verifier.VerificationsPerformed++
		verifier.UpdatedAt = now
		if err := profiles.Update(ctx, verifier); err != nil {
			return err
		}

		v.State = models.VerificationRejected
		v.ReviewerID = &reviewerID
		v.ReviewedAt = &now
		v.AdminNotes = reason
		if err := verifications.Update(ctx, v); err != nil {
			return err
		}

		if p.State == models.PlantingInVerification {
			p.State = models.PlantingPending
			return plantings.Update(ctx, p)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Logger.Info(ctx, "verification rejected", "verification_id", verificationID, "reviewer_id", reviewerID)
	return nil
}

// ValidatePlanting accepts a planting, computes its impact and credits the
// submitter in one transaction. Zone clustering runs after the commit and
// its failure is reported in the outcome rather than returned.
func (s *VerificationService) ValidatePlanting(ctx context.Context, plantingID, adminID string) (*ValidationOutcome, error) {
	out := &ValidationOutcome{}
	err := s.Tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		plantings := s.Repos.Plantings(tx)
		p, err := plantings.GetForUpdate(ctx, plantingID)
		if err != nil {
			return err
		}
		if p.State != models.PlantingPending && p.State != models.PlantingInVerification {
			return common.NewStateError("planting", p.ID, string(p.State), "validate")
		}

		profiles := s.Repos.Profiles(tx)
		submitter, err := profiles.GetForUpdate(ctx, p.SubmitterID)
		if err != nil {
			return err
		}
		avatars, err := s.Repos.Avatars(tx).List(ctx)
		if err != nil {
			return err
		}

		now := s.Clock.Now()
		p.State = models.PlantingValidated
		p.ReviewerID = &adminID
		p.ValidatedAt = &now
		out.Impact = s.Estimator.Apply(p, now)
		if err := plantings.Update(ctx, p); err != nil {
			return err
		}

		if !submitter.Elevated() {
			out.Credited = true
			out.LeveledUp = s.Engine.AwardPoints(submitter, p.Points, avatars)
			submitter.UpdatedAt = now
			if err := profiles.Update(ctx, submitter); err != nil {
				return err
			}
		}

		out.Planting = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info(ctx, "planting validated",
		"planting_id", plantingID, "admin_id", adminID, "credited", out.Credited,
		"leveled_up", out.LeveledUp, "oxygen_kg_year", out.Impact.OxygenKgYear)

	if s.Clusterer != nil {
		out.Zone, out.ClusterErr = s.Clusterer.OnPlantingValidated(ctx, out.Planting)
		if out.ClusterErr != nil {
			s.Logger.Warn(ctx, "zone clustering failed", "planting_id", plantingID, "error", out.ClusterErr)
		}
	}
	return out, nil
}

// RejectPlanting closes a pending planting for good.
func (s *VerificationService) RejectPlanting(ctx context.Context, plantingID, adminID, notes string) error {
	err := s.Tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		plantings := s.Repos.Plantings(tx)
		p, err := plantings.GetForUpdate(ctx, plantingID)
		if err != nil {
			return err
		}
		if p.State != models.PlantingPending {
			return common.NewStateError("planting", p.ID, string(p.State), "reject")
		}

		p.State = models.PlantingRejected
		p.ReviewerID = &adminID
		p.AdminNotes = notes
		return plantings.Update(ctx, p)
	})
	if err != nil {
		return err
	}

	s.Logger.Info(ctx, "planting rejected", "planting_id", plantingID, "admin_id", adminID)
	return nil
}

// ValidateMany validates each planting in its own transaction. A failed
// item is recorded and the batch carries on.
func (s *VerificationService) ValidateMany(ctx context.Context, plantingIDs []string, adminID string) *BatchResult {
	res := &BatchResult{}
	for _, id := range plantingIDs {
		_, err := s.ValidatePlanting(ctx, id, adminID)
		if err != nil {
			s.Logger.Warn(ctx, "batch validate item failed", "planting_id", id, "error", err)
		}
		res.record(id, err)
	}
	return res
}

func (s *VerificationService) RejectMany(ctx context.Context, plantingIDs []string, adminID, notes string) *BatchResult {
	res := &BatchResult{}
	for _, id := range plantingIDs {
		err := s.RejectPlanting(ctx, id, adminID, notes)
		if err != nil {
			s.Logger.Warn(ctx, "batch reject item failed", "planting_id", id, "error", err)
		}
		res.record(id, err)
	}
	return res
}

// NearbyPending lists pending plantings within radiusKm of point, closest
// first. limit <= 0 returns all of them.
func (s *VerificationService) NearbyPending(ctx context.Context, point geo.Point, radiusKm float64, limit int) ([]NearbyPlanting, error) {
	if !geo.Valid(point) {
		return nil, common.NewValidationError("location", "coordinates are out of range")
	}
	if radiusKm <= 0 {
		return nil, common.NewValidationError("radius", "must be positive")
	}

	pending, err := s.Repos.Plantings(s.DB).ListByState(ctx, models.PlantingPending)
	if err != nil {
		return nil, err
	}

	var out []NearbyPlanting
	for _, p := range pending {
		d := geo.Distance(point, p.Point())
		if d <= radiusKm {
			out = append(out, NearbyPlanting{Planting: p, DistanceKm: math.Round(d*100) / 100})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func roundCm(meters float64) float64 {
	return math.Round(meters*100) / 100
}

