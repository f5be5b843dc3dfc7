package gamification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/reforest/internal/common"
	"github.com/dmitrijs2005/reforest/internal/server/models"
)

func testAvatars() []*models.Avatar {
	return []*models.Avatar{
		{ID: "seed", RequiredLevel: 1},
		{ID: "sprout", RequiredLevel: 2},
		{ID: "sprout-alt", RequiredLevel: 2},
		{ID: "shrub", RequiredLevel: 3},
		{ID: "forest", RequiredLevel: 5},
	}
}

func TestLevelFor(t *testing.T) {
	e := MustEngine(nil)
	tests := []struct {
		points int
		want   int
	}{
		{-50, 1}, {0, 1}, {99, 1}, {100, 2}, {249, 2}, {250, 3},
		{499, 3}, {500, 4}, {999, 4}, {1000, 5}, {1_000_000, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, e.LevelFor(tt.points), "points %d", tt.points)
	}
}

func TestLevelFor_MonotoneAndBounded(t *testing.T) {
	e := MustEngine(nil)
	prev := e.LevelFor(0)
	for p := 0; p <= 1500; p++ {
		l := e.LevelFor(p)
		assert.GreaterOrEqual(t, l, prev)
		assert.GreaterOrEqual(t, l, 1)
		assert.LessOrEqual(t, l, 5)
		prev = l
	}
}

func TestAwardPoints_LevelUpAssignsAvatar(t *testing.T) {
	e := MustEngine(nil)
	seed := "seed"
	p := &models.Profile{Points: 90, Level: 1, AvatarID: &seed}

	up := e.AwardPoints(p, 20, testAvatars())

	assert.True(t, up)
	assert.Equal(t, 110, p.Points)
	assert.Equal(t, 2, p.Level)
	require.NotNil(t, p.AvatarID)
	assert.Equal(t, "sprout", *p.AvatarID)
}

func TestAwardPoints_SkipsLevelsAndReachesVerifier(t *testing.T) {
	e := MustEngine(nil)
	p := &models.Profile{Points: 240, Level: 2}

	up := e.AwardPoints(p, 10, testAvatars())

	assert.True(t, up)
	assert.Equal(t, 3, p.Level)
	assert.Equal(t, "shrub", *p.AvatarID)
}

func TestAwardPoints_NoAvatarForLevelKeepsCurrent(t *testing.T) {
	e := MustEngine(nil)
	shrub := "shrub"
	p := &models.Profile{Points: 450, Level: 3, AvatarID: &shrub}

	up := e.AwardPoints(p, 100, testAvatars())

	assert.True(t, up)
	assert.Equal(t, 4, p.Level)
	assert.Equal(t, "shrub", *p.AvatarID)
}

func TestAwardPoints_NoLevelChange(t *testing.T) {
	e := MustEngine(nil)
	p := &models.Profile{Points: 10, Level: 1}

	assert.False(t, e.AwardPoints(p, 20, testAvatars()))
	assert.Equal(t, 30, p.Points)
	assert.Nil(t, p.AvatarID)
}

func TestAwardPoints_NegativeDeltaPassesThrough(t *testing.T) {
	e := MustEngine(nil)
	sprout := "sprout"
	p := &models.Profile{Points: 120, Level: 2, AvatarID: &sprout}

	up := e.AwardPoints(p, -50, testAvatars())

	assert.False(t, up)
	assert.Equal(t, 70, p.Points)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, "sprout", *p.AvatarID, "avatar is never downgraded")
}

func TestAwardPoints_ZeroDelta(t *testing.T) {
	e := MustEngine(nil)
	p := &models.Profile{Points: 100, Level: 2}

	assert.False(t, e.AwardPoints(p, 0, nil))
	assert.Equal(t, 100, p.Points)
}

func TestProgressToNextLevel(t *testing.T) {
	e := MustEngine(nil)
	tests := []struct {
		points int
		want   float64
	}{
		{0, 0},
		{50, 50},
		{100, 0},
		{175, 50},
		{249, 99.33333333333333},
		{250, 0},
		{750, 50},
		{1000, 100},
		{5000, 100},
	}
	for _, tt := range tests {
		p := &models.Profile{Points: tt.points, Level: e.LevelFor(tt.points)}
		assert.InDelta(t, tt.want, e.ProgressToNextLevel(p), 1e-9, "points %d", tt.points)
	}
}

func TestProgressToNextLevel_BoundsAndReset(t *testing.T) {
	e := MustEngine(nil)
	prev := -1.0
	prevLevel := 1
	for pts := -10; pts <= 1200; pts++ {
		p := &models.Profile{Points: pts, Level: e.LevelFor(pts)}
		got := e.ProgressToNextLevel(p)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 100.0)

		if p.Level == prevLevel {
			assert.GreaterOrEqual(t, got, prev, "points %d", pts)
		} else if p.Level < e.MaxLevel() {
			assert.Less(t, got, 1.0, "progress resets after level up at %d", pts)
		}
		prev, prevLevel = got, p.Level
	}
}

func TestNextThreshold(t *testing.T) {
	e := MustEngine(nil)

	next, ok := e.NextThreshold(&models.Profile{Points: 120})
	assert.True(t, ok)
	assert.Equal(t, 250, next)

	_, ok = e.NextThreshold(&models.Profile{Points: 1200})
	assert.False(t, ok)
}

func TestApprovalRate(t *testing.T) {
	assert.Equal(t, 100.0, ApprovalRate(&models.Profile{}))
	assert.InDelta(t, 70.0, ApprovalRate(&models.Profile{VerificationsPerformed: 10, VerificationsApproved: 7}), 1e-9)
	assert.Equal(t, 0.0, ApprovalRate(&models.Profile{VerificationsPerformed: 3}))
}

func TestCanUseAvatar(t *testing.T) {
	p := &models.Profile{Level: 2}
	assert.True(t, CanUseAvatar(p, &models.Avatar{RequiredLevel: 1}))
	assert.True(t, CanUseAvatar(p, &models.Avatar{RequiredLevel: 2}))
	assert.False(t, CanUseAvatar(p, &models.Avatar{RequiredLevel: 3}))
}

func TestNewEngine_RejectsBadTables(t *testing.T) {
	tests := map[string]LevelTable{
		"empty":          {},
		"not from zero":  {{Level: 1, MinPoints: 10}},
		"not ascending":  {{Level: 1, MinPoints: 0}, {Level: 2, MinPoints: 0}},
		"level descends": {{Level: 2, MinPoints: 0}, {Level: 1, MinPoints: 50}},
	}
	for name, table := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewEngine(table)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}
}

func TestNewEngine_CustomTable(t *testing.T) {
	e, err := NewEngine(LevelTable{{Level: 1, MinPoints: 0}, {Level: 2, MinPoints: 10}})
	require.NoError(t, err)

	assert.Equal(t, 2, e.MaxLevel())
	assert.Equal(t, 2, e.LevelFor(10))
	assert.Equal(t, 100.0, e.ProgressToNextLevel(&models.Profile{Points: 10}))
}
