package engagement

import "github.com/mindpath-app/mindpath/internal/domain"

// XPForLevel returns the cumulative XP required to reach a given level.
// Linear curve: every level spans domain.XPPerLevel XP, no cap.
func XPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	return int64(level-1) * domain.XPPerLevel
}

// LevelForXP returns the level for a given XP amount.
func LevelForXP(xp int64) int {
	return domain.LevelForXP(xp)
}

// XPToNextLevel returns XP remaining until the next level. Always in (0, 100].
func XPToNextLevel(xp int64) int64 {
	if xp < 0 {
		xp = 0
	}
	return XPForLevel(LevelForXP(xp)+1) - xp
}

// LevelProgressPct returns progress toward the next level (0.0–100.0).
func LevelProgressPct(xp int64) float64 {
	if xp < 0 {
		return 0
	}
	thisLevel := XPForLevel(LevelForXP(xp))
	return float64(xp-thisLevel) / float64(domain.XPPerLevel) * 100.0
}

// LeveledUp reports whether moving from oldXP to newXP crosses a level boundary.
func LeveledUp(oldXP, newXP int64) bool {
	return LevelForXP(newXP) > LevelForXP(oldXP)
}
