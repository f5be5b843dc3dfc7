package memory

import (
	"context"
	"sort"

	"github.com/dmitrijs2005/reforest/internal/common"
	"github.com/dmitrijs2005/reforest/internal/server/models"
)

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

type profileRepo struct{ s *Store }

func copyProfile(p models.Profile) *models.Profile {
	p.AvatarID = clonePtr(p.AvatarID)
	return &p
}

func (r *profileRepo) Create(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("profiles.Create"); err != nil {
		return nil, err
	}
	if _, ok := r.s.d.profiles[p.UserID]; ok {
		return nil, common.ErrorAlreadyExists
	}
	r.s.d.profiles[p.UserID] = *copyProfile(*p)
	return p, nil
}

func (r *profileRepo) Get(ctx context.Context, userID string) (*models.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail("profiles.Get"); err != nil {
		return nil, err
	}
	p, ok := r.s.d.profiles[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyProfile(p), nil
}

func (r *profileRepo) GetForUpdate(ctx context.Context, userID string) (*models.Profile, error) {
	return r.Get(ctx, userID)
}

func (r *profileRepo) Update(ctx context.Context, p *models.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("profiles.Update"); err != nil {
		return err
	}
	if _, ok := r.s.d.profiles[p.UserID]; !ok {
		return common.ErrorNotFound
	}
	r.s.d.profiles[p.UserID] = *copyProfile(*p)
	return nil
}

func (r *profileRepo) ranked() []*models.Profile {
	var out []*models.Profile
	for _, p := range r.s.d.profiles {
		if !p.Staff {
			out = append(out, copyProfile(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

func (r *profileRepo) Leaderboard(ctx context.Context, limit int) ([]*models.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := r.ranked()
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *profileRepo) CountAbove(ctx context.Context, points int) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, p := range r.s.d.profiles {
		if !p.Staff && p.Points > points {
			n++
		}
	}
	return n, nil
}

type avatarRepo struct{ s *Store }

func (r *avatarRepo) Create(ctx context.Context, a *models.Avatar) (*models.Avatar, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.d.avatars[a.ID]; ok {
		return nil, common.ErrorAlreadyExists
	}
	r.s.d.avatars[a.ID] = *a
	return a, nil
}

func (r *avatarRepo) Get(ctx context.Context, id string) (*models.Avatar, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.d.avatars[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &a, nil
}

func (r *avatarRepo) List(ctx context.Context) ([]*models.Avatar, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail("avatars.List"); err != nil {
		return nil, err
	}
	out := make([]*models.Avatar, 0, len(r.s.d.avatars))
	for _, a := range r.s.d.avatars {
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RequiredLevel != out[j].RequiredLevel {
			return out[i].RequiredLevel < out[j].RequiredLevel
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type plantingRepo struct{ s *Store }

func copyPlanting(p models.Planting) *models.Planting {
	p.ValidatedAt = clonePtr(p.ValidatedAt)
	p.ReviewerID = clonePtr(p.ReviewerID)
	p.ImpactUpdatedAt = clonePtr(p.ImpactUpdatedAt)
	p.ZoneID = clonePtr(p.ZoneID)
	return &p
}

func (r *plantingRepo) Create(ctx context.Context, p *models.Planting) (*models.Planting, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("plantings.Create"); err != nil {
		return nil, err
	}
	if _, ok := r.s.d.plantings[p.ID]; ok {
		return nil, common.ErrorAlreadyExists
	}
	r.s.d.plantings[p.ID] = *copyPlanting(*p)
	return p, nil
}

func (r *plantingRepo) Get(ctx context.Context, id string) (*models.Planting, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.d.plantings[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyPlanting(p), nil
}

func (r *plantingRepo) GetForUpdate(ctx context.Context, id string) (*models.Planting, error) {
	return r.Get(ctx, id)
}

func (r *plantingRepo) Update(ctx context.Context, p *models.Planting) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("plantings.Update"); err != nil {
		return err
	}
	if _, ok := r.s.d.plantings[p.ID]; !ok {
		return common.ErrorNotFound
	}
	r.s.d.plantings[p.ID] = *copyPlanting(*p)
	return nil
}

func (r *plantingRepo) filter(keep func(models.Planting) bool, desc bool) []*models.Planting {
	var out []*models.Planting
	for _, p := range r.s.d.plantings {
		if keep(p) {
			out = append(out, copyPlanting(p))
		}
	}
	sortedPlantings(out, desc)
	return out
}

func (r *plantingRepo) ListByState(ctx context.Context, state models.PlantingState) ([]*models.Planting, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail("plantings.ListByState"); err != nil {
		return nil, err
	}
	return r.filter(func(p models.Planting) bool { return p.State == state }, false), nil
}

func (r *plantingRepo) ListBySubmitter(ctx context.Context, submitterID string) ([]*models.Planting, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.filter(func(p models.Planting) bool { return p.SubmitterID == submitterID }, true), nil
}

func (r *plantingRepo) AssignZone(ctx context.Context, zoneID string, ids []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("plantings.AssignZone"); err != nil {
		return err
	}
	for _, id := range ids {
		p, ok := r.s.d.plantings[id]
		if !ok {
			continue
		}
		z := zoneID
		p.ZoneID = &z
		r.s.d.plantings[id] = p
	}
	return nil
}

type verificationRepo struct{ s *Store }

func copyVerification(v models.Verification) *models.Verification {
	v.ReviewerID = clonePtr(v.ReviewerID)
	v.ReviewedAt = clonePtr(v.ReviewedAt)
	return &v
}

func (r *verificationRepo) Create(ctx context.Context, v *models.Verification) (*models.Verification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.d.verifications[v.ID]; ok {
		return nil, common.ErrorAlreadyExists
	}
	r.s.d.verifications[v.ID] = *copyVerification(*v)
	return v, nil
}

func (r *verificationRepo) Get(ctx context.Context, id string) (*models.Verification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.d.verifications[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyVerification(v), nil
}

func (r *verificationRepo) GetForUpdate(ctx context.Context, id string) (*models.Verification, error) {
	return r.Get(ctx, id)
}

func (r *verificationRepo) Update(ctx context.Context, v *models.Verification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("verifications.Update"); err != nil {
		return err
	}
	if _, ok := r.s.d.verifications[v.ID]; !ok {
		return common.ErrorNotFound
	}
	r.s.d.verifications[v.ID] = *copyVerification(*v)
	return nil
}

func (r *verificationRepo) list(keep func(models.Verification) bool, desc bool) []*models.Verification {
	var out []*models.Verification
	for _, v := range r.s.d.verifications {
		if keep(v) {
			out = append(out, copyVerification(v))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.SubmittedAt.After(b.SubmittedAt) == desc
		}
		return a.ID < b.ID
	})
	return out
}

func (r *verificationRepo) ListByVerifier(ctx context.Context, verifierID string) ([]*models.Verification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.list(func(v models.Verification) bool { return v.VerifierID == verifierID }, true), nil
}

func (r *verificationRepo) ListByPlanting(ctx context.Context, plantingID string) ([]*models.Verification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.list(func(v models.Verification) bool { return v.PlantingID == plantingID }, false), nil
}

func (r *verificationRepo) ListByState(ctx context.Context, state models.VerificationState) ([]*models.Verification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail("verifications.ListByState"); err != nil {
		return nil, err
	}
	return r.list(func(v models.Verification) bool { return state == "" || v.State == state }, true), nil
}

type zoneRepo struct{ s *Store }

func (r *zoneRepo) Create(ctx context.Context, z *models.Zone) (*models.Zone, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("zones.Create"); err != nil {
		return nil, err
	}
	if _, ok := r.s.d.zones[z.ID]; ok {
		return nil, common.ErrorAlreadyExists
	}
	r.s.d.zones[z.ID] = *z
	return z, nil
}

func (r *zoneRepo) Get(ctx context.Context, id string) (*models.Zone, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	z, ok := r.s.d.zones[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &z, nil
}

func (r *zoneRepo) GetForUpdate(ctx context.Context, id string) (*models.Zone, error) {
	return r.Get(ctx, id)
}

func (r *zoneRepo) Update(ctx context.Context, z *models.Zone) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev, ok := r.s.d.zones[z.ID]
	if !ok {
		return common.ErrorNotFound
	}
	// centroid and radius are fixed at creation
	next := *z
	next.Lat, next.Lng, next.RadiusKm = prev.Lat, prev.Lng, prev.RadiusKm
	next.CreatedAt, next.AutoGenerated = prev.CreatedAt, prev.AutoGenerated
	r.s.d.zones[z.ID] = next
	return nil
}

func (r *zoneRepo) ListActive(ctx context.Context) ([]*models.Zone, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if err := r.s.fail("zones.ListActive"); err != nil {
		return nil, err
	}
	var out []*models.Zone
	for _, z := range r.s.d.zones {
		if z.Active {
			out = append(out, &z)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
