package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dmitrijs2005/reforest/internal/common"
	"github.com/dmitrijs2005/reforest/internal/dbx"
	"github.com/dmitrijs2005/reforest/internal/server/gamification"
	"github.com/dmitrijs2005/reforest/internal/server/models"
)

// DefaultAvatars is the avatar set provisioned by SeedAvatars, one per level.
var DefaultAvatars = []models.Avatar{
	{ID: "seed", Name: "Seed", Emoji: "🌱", RequiredLevel: 1, Description: "Where it all begins"},
	{ID: "sprout", Name: "Sprout", Emoji: "🌿", RequiredLevel: 2, Description: "Growing"},
	{ID: "shrub", Name: "Shrub", Emoji: "🌳", RequiredLevel: 3, Description: "Strong already"},
	{ID: "tree", Name: "Tree", Emoji: "🌲", RequiredLevel: 4, Description: "Tall and steady"},
	{ID: "forest", Name: "Forest", Emoji: "🌴", RequiredLevel: 5, Description: "A living legend"},
}

type RoleChange string

const (
	RoleAssigned        RoleChange = "assigned"
	RoleAlreadyVerifier RoleChange = "already_verifier"
	RoleAlreadyAdmin    RoleChange = "already_admin"
)

type PlantingCounts struct {
	Total          int
	Pending        int
	InVerification int
	Validated      int
	Rejected       int
}

// VerifierStats is only filled for verifier and admin profiles.
type VerifierStats struct {
	Performed    int
	Approved     int
	Points       int
	ApprovalRate float64
}

// SpeciesImpact aggregates the validated plantings of one species.
type SpeciesImpact struct {
	Species      string
	Count        int
	OxygenKgYear float64
	CO2KgYear    float64
}

// TopSpecies caps ProfileStats.Species.
const TopSpecies = 10

// ProfileStats is the summary returned by Stats. Species holds at most
// TopSpecies entries, the most oxygen first.
type ProfileStats struct {
	Profile       *models.Profile
	Progress      float64
	NextThreshold int
	MaxLevel      bool
	Plantings     PlantingCounts
	OxygenKgYear  float64
	CO2KgYear     float64
	Species       []SpeciesImpact
	Verifications *VerifierStats
}

type RankedProfile struct {
	Position int
	Profile  *models.Profile
}

type ProfileService struct {
	Deps
}

func NewProfileService(d Deps) *ProfileService {
	d.withDefaults()
	return &ProfileService{Deps: d}
}

// ProvisionProfile creates the profile of a new account with the level-one
// avatar. An existing profile is returned unchanged with created == false.
func (s *ProfileService) ProvisionProfile(ctx context.Context, userID string, staff bool) (p *models.Profile, created bool, err error) {
	if userID == "" {
		return nil, false, common.NewValidationError("user_id", "must not be empty")
	}

	err = s.Tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		profiles := s.Repos.Profiles(tx)
		existing, err := profiles.Get(ctx, userID)
		if err == nil {
			p = existing
			return nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		avatars, err := s.Repos.Avatars(tx).List(ctx)
		if err != nil {
			return err
		}

		now := s.Clock.Now()
		np := &models.Profile{
			UserID:    userID,
			Level:     s.Engine.LevelFor(0),
			Role:      models.RoleUser,
			Staff:     staff,
			CreatedAt: now,
			UpdatedAt: now,
		}
		for _, a := range avatars {
			if a.RequiredLevel == np.Level {
				id := a.ID
				np.AvatarID = &id
				break
			}
		}

		p, err = profiles.Create(ctx, np)
		created = err == nil
		return err
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.Logger.Info(ctx, "profile provisioned", "user_id", userID, "staff", staff)
	}
	return p, created, nil
}

// AssignVerifier grants the verifier role. Verifiers and admins are left as
// they are.
func (s *ProfileService) AssignVerifier(ctx context.Context, userID string) (RoleChange, *models.Profile, error) {
	var change RoleChange
	var out *models.Profile
	err := s.Tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		profiles := s.Repos.Profiles(tx)
		p, err := profiles.GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		out = p

		switch p.Role {
		case models.RoleVerifier:
			change = RoleAlreadyVerifier
			return nil
		case models.RoleAdmin:
			change = RoleAlreadyAdmin
			return nil
		}

		p.Role = models.RoleVerifier
		p.UpdatedAt = s.Clock.Now()
		change = RoleAssigned
		return profiles.Update(ctx, p)
	})
	if err != nil {
		return "", nil, err
	}

	s.Logger.Info(ctx, "verifier role", "user_id", userID, "result", string(change))
	return change, out, nil
}

// ChangeAvatar switches to an avatar the profile has unlocked.
func (s *ProfileService) ChangeAvatar(ctx context.Context, userID, avatarID string) (*models.Profile, error) {
	var out *models.Profile
	err := s.Tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		a, err := s.Repos.Avatars(tx).Get(ctx, avatarID)
		if err != nil {
			return err
		}
		profiles := s.Repos.Profiles(tx)
		p, err := profiles.GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if !gamification.CanUseAvatar(p, a) {
			return common.NewValidationError("avatar",
				fmt.Sprintf("reach level %d to unlock %s", a.RequiredLevel, a.Name))
		}

		id := a.ID
		p.AvatarID = &id
		p.UpdatedAt = s.Clock.Now()
		out = p
		return profiles.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SeedAvatars provisions DefaultAvatars for the levels that have none yet and
// reports how many it created.
func (s *ProfileService) SeedAvatars(ctx context.Context) (int, error) {
	created := 0
	err := s.Tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.Repos.Avatars(tx)
		existing, err := repo.List(ctx)
		if err != nil {
			return err
		}
		have := map[int]bool{}
		for _, a := range existing {
			have[a.RequiredLevel] = true
		}

		for _, a := range DefaultAvatars {
			if have[a.RequiredLevel] {
				continue
			}
			if _, err := repo.Create(ctx, &a); err != nil {
				return fmt.Errorf("avatar %s: %w", a.ID, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.Logger.Info(ctx, "avatars seeded", "created", created)
	return created, nil
}

// Leaderboard ranks non-staff profiles by points. Equal points share no
// position; order among them follows the store.
func (s *ProfileService) Leaderboard(ctx context.Context, limit int) ([]RankedProfile, error) {
	top, err := s.Repos.Profiles(s.DB).Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]RankedProfile, 0, len(top))
	for i, p := range top {
		out = append(out, RankedProfile{Position: i + 1, Profile: p})
	}
	return out, nil
}

// RankOf returns the position of userID among non-staff profiles, counting
// only those with strictly more points. Staff are not ranked and get false.
func (s *ProfileService) RankOf(ctx context.Context, userID string) (int, bool, error) {
	profiles := s.Repos.Profiles(s.DB)
	p, err := profiles.Get(ctx, userID)
	if err != nil {
		return 0, false, err
	}
	if p.Staff {
		return 0, false, nil
	}

	above, err := profiles.CountAbove(ctx, p.Points)
	if err != nil {
		return 0, false, err
	}
	return above + 1, true, nil
}

// Stats summarises a profile: level progress, plantings per state, the
// stored impact of its validated plantings and, for verifiers and admins,
// the verification record.
func (s *ProfileService) Stats(ctx context.Context, userID string) (*ProfileStats, error) {
	p, err := s.Repos.Profiles(s.DB).Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	plantings, err := s.Repos.Plantings(s.DB).ListBySubmitter(ctx, userID)
	if err != nil {
		return nil, err
	}

	st := &ProfileStats{Profile: p, Progress: s.Engine.ProgressToNextLevel(p)}
	next, ok := s.Engine.NextThreshold(p)
	st.NextThreshold, st.MaxLevel = next, !ok

	bySpecies := map[string]*SpeciesImpact{}
	for _, pl := range plantings {
		st.Plantings.Total++
		switch pl.State {
		case models.PlantingPending:
			st.Plantings.Pending++
		case models.PlantingInVerification:
			st.Plantings.InVerification++
		case models.PlantingValidated:
			st.Plantings.Validated++
			st.OxygenKgYear += pl.OxygenKgYear
			st.CO2KgYear += pl.CO2KgYear
			sp, ok := bySpecies[pl.Species]
			if !ok {
				sp = &SpeciesImpact{Species: pl.Species}
				bySpecies[pl.Species] = sp
			}
			sp.Count++
			sp.OxygenKgYear += pl.OxygenKgYear
			sp.CO2KgYear += pl.CO2KgYear
		case models.PlantingRejected:
			st.Plantings.Rejected++
		}
	}
	st.OxygenKgYear = round2(st.OxygenKgYear)
	st.CO2KgYear = round2(st.CO2KgYear)
	st.Species = topSpecies(bySpecies, TopSpecies)

	if p.Role == models.RoleVerifier || p.Role == models.RoleAdmin {
		st.Verifications = &VerifierStats{
			Performed:    p.VerificationsPerformed,
			Approved:     p.VerificationsApproved,
			Points:       p.VerificationPoints,
			ApprovalRate: gamification.ApprovalRate(p),
		}
	}
	return st, nil
}

func topSpecies(m map[string]*SpeciesImpact, limit int) []SpeciesImpact {
	out := make([]SpeciesImpact, 0, len(m))
	for _, sp := range m {
		sp.OxygenKgYear = round2(sp.OxygenKgYear)
		sp.CO2KgYear = round2(sp.CO2KgYear)
		out = append(out, *sp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OxygenKgYear != out[j].OxygenKgYear {
			return out[i].OxygenKgYear > out[j].OxygenKgYear
		}
		return out[i].Species < out[j].Species
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
