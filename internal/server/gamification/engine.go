package gamification

import (
	"math"

	"github.com/dmitrijs2005/reforest/internal/server/models"
)

type Engine struct {
	levels LevelTable
}

// NewEngine validates the table; a nil table means DefaultLevels.
func NewEngine(levels LevelTable) (*Engine, error) {
	if levels == nil {
		levels = DefaultLevels()
	}
	if err := levels.Validate(); err != nil {
		return nil, err
	}
	return &Engine{levels: levels}, nil
}

// MustEngine is NewEngine for tables known to be valid.
func MustEngine(levels LevelTable) *Engine {
	e, err := NewEngine(levels)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Engine) Levels() LevelTable { return e.levels }

func (e *Engine) MaxLevel() int { return e.levels.max().Level }

func (e *Engine) LevelFor(points int) int {
	return e.levels[e.levels.index(points)].Level
}

// AwardPoints adds delta as given (zero and negative values are applied too),
// recomputes the level and, when the level rose, switches the avatar to the
// first one provisioned for the new level. avatars must be ordered by
// required level then id. Returns whether the level rose.
func (e *Engine) AwardPoints(p *models.Profile, delta int, avatars []*models.Avatar) bool {
	before := p.Level
	p.Points += delta
	p.Level = e.LevelFor(p.Points)

	if p.Level <= before {
		return false
	}
	for _, a := range avatars {
		if a.RequiredLevel == p.Level {
			id := a.ID
			p.AvatarID = &id
			break
		}
	}
	return true
}

// NextThreshold returns the point total of the next level, false at max level.
func (e *Engine) NextThreshold(p *models.Profile) (int, bool) {
	i := e.levels.index(p.Points)
	if i+1 >= len(e.levels) {
		return 0, false
	}
	return e.levels[i+1].MinPoints, true
}

// ProgressToNextLevel is the percentage of the current band already covered,
// in [0,100]. The max level reports 100.
func (e *Engine) ProgressToNextLevel(p *models.Profile) float64 {
	i := e.levels.index(p.Points)
	if i+1 >= len(e.levels) {
		return 100
	}
	floor := e.levels[i].MinPoints
	ceiling := e.levels[i+1].MinPoints
	if ceiling <= floor {
		return 100
	}

	pct := float64(p.Points-floor) / float64(ceiling-floor) * 100
	return math.Max(0, math.Min(100, pct))
}

// ApprovalRate is approved/performed as a percentage; 100 with no history.
func ApprovalRate(p *models.Profile) float64 {
	if p.VerificationsPerformed == 0 {
		return 100
	}
	return float64(p.VerificationsApproved) / float64(p.VerificationsPerformed) * 100
}

// CanUseAvatar reports whether p has reached the level a requires.
func CanUseAvatar(p *models.Profile, a *models.Avatar) bool {
	return a.RequiredLevel <= p.Level
}
