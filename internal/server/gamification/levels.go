// Package gamification turns points into levels, progress and avatar unlocks.
package gamification

import (
	"fmt"
	"sort"

	"github.com/dmitrijs2005/reforest/internal/common"
)

// Band is the lowest point total that reaches Level.
type Band struct {
	Level     int
	MinPoints int
}

// LevelTable is ascending by MinPoints and starts at 0.
type LevelTable []Band

// DefaultLevels is [0,100)→1, [100,250)→2, [250,500)→3, [500,1000)→4, [1000,∞)→5.
func DefaultLevels() LevelTable {
	return LevelTable{
		{Level: 1, MinPoints: 0},
		{Level: 2, MinPoints: 100},
		{Level: 3, MinPoints: 250},
		{Level: 4, MinPoints: 500},
		{Level: 5, MinPoints: 1000},
	}
}

func (t LevelTable) Validate() error {
	if len(t) == 0 {
		return common.NewValidationError("levels", "level table is empty")
	}
	if t[0].MinPoints != 0 {
		return common.NewValidationError("levels", "first level must start at 0 points")
	}
	for i := 1; i < len(t); i++ {
		if t[i].MinPoints <= t[i-1].MinPoints || t[i].Level <= t[i-1].Level {
			return common.NewValidationError("levels", fmt.Sprintf("band %d is not ascending", i))
		}
	}
	return nil
}

// index returns the band that contains points. Negative totals fall into the
// first band.
func (t LevelTable) index(points int) int {
	// first band whose floor is above points, minus one
	i := sort.Search(len(t), func(i int) bool { return t[i].MinPoints > points })
	if i == 0 {
		return 0
	}
	return i - 1
}

func (t LevelTable) max() Band {
	return t[len(t)-1]
}
