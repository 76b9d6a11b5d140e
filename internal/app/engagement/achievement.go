package engagement

import (
	"fmt"
	"slices"

	"cloud.google.com/go/civil"

	"github.com/mindpath-app/mindpath/internal/domain"
)

// Snapshot builds the read view of state as observed on today.
// Everything time-sensitive is resolved here so rules stay clock-free.
func Snapshot(state domain.UserProgressState, today civil.Date) domain.ProgressSnapshot {
	byCat := make(map[domain.ExerciseCategory]int, len(state.CompletionsByCategory))
	for k, v := range state.CompletionsByCategory {
		byCat[k] = v
	}
	return domain.ProgressSnapshot{
		UserID:                state.UserID,
		AsOf:                  today,
		TotalXP:               state.TotalXP,
		Level:                 state.Level(),
		XPToNextLevel:         XPToNextLevel(state.TotalXP),
		LevelProgressPct:      LevelProgressPct(state.TotalXP),
		CurrentStreak:         CurrentStreak(state.ActivityDays, today),
		LongestStreak:         LongestStreak(state.ActivityDays),
		ActiveDays:            len(state.ActivityDays),
		TotalCompletions:      state.TotalCompletions(),
		CompletionsByCategory: byCat,
		UnlockedCount:         len(state.UnlockedAchievementIDs),
	}
}

// EvaluateAchievements checks every locked definition against next as observed
// on today and returns the updated state plus the newly unlocked definitions in
// definition order. Definitions already unlocked in prior or next are skipped,
// so evaluating the returned state again yields nothing.
func EvaluateAchievements(
	prior, next domain.UserProgressState,
	today civil.Date,
	defs []domain.AchievementDef,
) (domain.UserProgressState, []domain.AchievementDef) {
	snap := Snapshot(next, today)

	var newlyUnlocked []domain.AchievementDef
	out := next
	cloned := false
	for _, def := range defs {
		if def.Rule == nil || out.HasUnlocked(def.ID) || prior.HasUnlocked(def.ID) {
			continue
		}
		if !def.Rule(snap) {
			continue
		}
		if !cloned {
			out = next.Clone()
			cloned = true
		}
		idx, _ := slices.BinarySearch(out.UnlockedAchievementIDs, def.ID)
		out.UnlockedAchievementIDs = slices.Insert(out.UnlockedAchievementIDs, idx, def.ID)
		newlyUnlocked = append(newlyUnlocked, def)
	}

	// Carry prior unlocks forward; the unlocked set never shrinks.
	for _, id := range prior.UnlockedAchievementIDs {
		if out.HasUnlocked(id) {
			continue
		}
		if !cloned {
			out = next.Clone()
			cloned = true
		}
		idx, _ := slices.BinarySearch(out.UnlockedAchievementIDs, id)
		out.UnlockedAchievementIDs = slices.Insert(out.UnlockedAchievementIDs, idx, id)
	}

	return out, newlyUnlocked
}

// FindAchievement returns the definition with the given id.
func FindAchievement(defs []domain.AchievementDef, id string) (domain.AchievementDef, bool) {
	for _, d := range defs {
		if d.ID == id {
			return d, true
		}
	}
	return domain.AchievementDef{}, false
}

// ─── Achievement Definitions ────────────────────────────────────────────────

// AllAchievements returns the built-in achievement catalog.
func AllAchievements() []domain.AchievementDef {
	return []domain.AchievementDef{
		// ── Getting Started ────────────────────────────────────────────
		{
			ID: "first_exercise", Title: "First Breath", Category: domain.CatGettingStarted,
			Description: "Complete your first guided exercise", Icon: "🌱",
			Rule: func(s domain.ProgressSnapshot) bool { return s.TotalCompletions >= 1 },
		},
		{
			ID: "explorer", Title: "Explorer", Category: domain.CatGettingStarted,
			Description: "Complete an exercise in every category", Icon: "🧭",
			Rule: func(s domain.ProgressSnapshot) bool {
				for _, c := range domain.AllCategories() {
					if s.CompletionsByCategory[c] == 0 {
						return false
					}
				}
				return true
			},
		},

		// ── Progress ───────────────────────────────────────────────────
		{
			ID: "level_2", Title: "Leveling Up", Category: domain.CatProgress,
			Description: "Reach level 2", Icon: "⬆️",
			Rule: func(s domain.ProgressSnapshot) bool { return s.Level >= 2 },
		},
		{
			ID: "level_5", Title: "Steady Climber", Category: domain.CatProgress,
			Description: "Reach level 5", Icon: "🧗",
			Rule: func(s domain.ProgressSnapshot) bool { return s.Level >= 5 },
		},
		{
			ID: "level_10", Title: "Summit", Category: domain.CatProgress,
			Description: "Reach level 10", Icon: "🏔️",
			Rule: func(s domain.ProgressSnapshot) bool { return s.Level >= 10 },
		},
		{
			ID: "xp_500", Title: "Half a Thousand", Category: domain.CatProgress,
			Description: "Earn 500 XP", Icon: "✨",
			Rule: func(s domain.ProgressSnapshot) bool { return s.TotalXP >= 500 },
		},
		{
			ID: "xp_1000", Title: "Thousand Moments", Category: domain.CatProgress,
			Description: "Earn 1000 XP", Icon: "💫",
			Rule: func(s domain.ProgressSnapshot) bool { return s.TotalXP >= 1000 },
		},

		// ── Streaks ────────────────────────────────────────────────────
		{
			ID: "streak_3", Title: "Warming Up", Category: domain.CatStreaks,
			Description: "Keep a 3-day streak", Icon: "🔥",
			Rule: func(s domain.ProgressSnapshot) bool { return s.CurrentStreak >= 3 },
		},
		{
			ID: "streak_7", Title: "Week of Calm", Category: domain.CatStreaks,
			Description: "Keep a 7-day streak", Icon: "📅",
			Rule: func(s domain.ProgressSnapshot) bool { return s.CurrentStreak >= 7 },
		},
		{
			ID: "streak_30", Title: "Monthly Ritual", Category: domain.CatStreaks,
			Description: "Keep a 30-day streak", Icon: "🌕",
			Rule: func(s domain.ProgressSnapshot) bool { return s.CurrentStreak >= 30 },
		},
		{
			ID: "streak_longest_14", Title: "Fortnight of Focus", Category: domain.CatStreaks,
			Description: "Reach a 14-day streak at any time", Icon: "🏅",
			Rule: func(s domain.ProgressSnapshot) bool { return s.LongestStreak >= 14 },
		},

		// ── Mastery ────────────────────────────────────────────────────
		categoryMastery("breathing_10", "Deep Breather", "🌬️", domain.CategoryBreathing, 10),
		categoryMastery("cognitive_10", "Thought Reframer", "🧠", domain.CategoryCognitive, 10),
		categoryMastery("journaling_10", "Storyteller", "📓", domain.CategoryJournaling, 10),
		categoryMastery("mindfulness_10", "Present Mind", "🧘", domain.CategoryMindfulness, 10),
	}
}

func categoryMastery(id, title, icon string, cat domain.ExerciseCategory, n int) domain.AchievementDef {
	return domain.AchievementDef{
		ID: id, Title: title, Category: domain.CatMastery, Icon: icon,
		Description: fmt.Sprintf("Complete %d %s exercises", n, cat),
		Rule:        func(s domain.ProgressSnapshot) bool { return s.CompletionsByCategory[cat] >= n },
	}
}
