// Package domain holds the mindpath data model: progress state, moods,
// exercises, achievements and notifications.
// Domain types carry no infrastructure dependency.
package domain

import (
	"slices"
	"time"

	"cloud.google.com/go/civil"
)

// XPPerLevel is the cumulative XP span of every level.
const XPPerLevel = 100

// ─── Progress State ─────────────────────────────────────────────────────────

// UserProgressState is the aggregate root of one user's progression.
// Level and streak lengths are derived on read and never stored.
type UserProgressState struct {
	UserID                 string                   `json:"user_id"`
	TotalXP                int64                    `json:"total_xp"`
	ActivityDays           []civil.Date             `json:"activity_days"`
	UnlockedAchievementIDs []string                 `json:"unlocked_achievement_ids"`
	CompletionsByCategory  map[ExerciseCategory]int `json:"completions_by_category"`
	Version                int64                    `json:"version"` // Store-owned optimistic lock token
}

// NewUserProgressState returns the zero state for a fresh user.
func NewUserProgressState(userID string) UserProgressState {
	return UserProgressState{
		UserID:                userID,
		CompletionsByCategory: map[ExerciseCategory]int{},
	}
}

// Level derives the level from TotalXP: every 100 XP is one level, starting at 1.
func (s UserProgressState) Level() int {
	return LevelForXP(s.TotalXP)
}

// LevelForXP returns floor(xp/100)+1. Negative XP is treated as 0.
func LevelForXP(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	return int(xp/XPPerLevel) + 1
}

// HasActivity reports whether day is already in ActivityDays.
func (s UserProgressState) HasActivity(day civil.Date) bool {
	_, found := slices.BinarySearchFunc(s.ActivityDays, day, CompareDates)
	return found
}

// HasUnlocked reports whether the achievement id is in the unlocked set.
func (s UserProgressState) HasUnlocked(id string) bool {
	_, found := slices.BinarySearch(s.UnlockedAchievementIDs, id)
	return found
}

// TotalCompletions sums completions across categories.
func (s UserProgressState) TotalCompletions() int {
	total := 0
	for _, n := range s.CompletionsByCategory {
		total += n
	}
	return total
}

// Clone returns a deep copy so transitions never alias the prior state.
func (s UserProgressState) Clone() UserProgressState {
	out := s
	out.ActivityDays = slices.Clone(s.ActivityDays)
	out.UnlockedAchievementIDs = slices.Clone(s.UnlockedAchievementIDs)
	out.CompletionsByCategory = make(map[ExerciseCategory]int, len(s.CompletionsByCategory))
	for k, v := range s.CompletionsByCategory {
		out.CompletionsByCategory[k] = v
	}
	return out
}

// CompareDates orders civil dates chronologically.
func CompareDates(a, b civil.Date) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

// ProgressSnapshot is the read view achievement rules are evaluated against.
// Streak fields are observed as of AsOf.
type ProgressSnapshot struct {
	UserID                string                   `json:"user_id"`
	AsOf                  civil.Date               `json:"as_of"`
	TotalXP               int64                    `json:"total_xp"`
	Level                 int                      `json:"level"`
	XPToNextLevel         int64                    `json:"xp_to_next_level"`
	LevelProgressPct      float64                  `json:"level_progress_pct"`
	CurrentStreak         int                      `json:"current_streak"`
	LongestStreak         int                      `json:"longest_streak"`
	ActiveDays            int                      `json:"active_days"`
	TotalCompletions      int                      `json:"total_completions"`
	CompletionsByCategory map[ExerciseCategory]int `json:"completions_by_category"`
	UnlockedCount         int                      `json:"unlocked_count"`
}

// ─── Exercises ──────────────────────────────────────────────────────────────

// ExerciseCategory groups guided exercises.
type ExerciseCategory string

const (
	CategoryBreathing   ExerciseCategory = "breathing"
	CategoryCognitive   ExerciseCategory = "cognitive"
	CategoryJournaling  ExerciseCategory = "journaling"
	CategoryMindfulness ExerciseCategory = "mindfulness"
)

// AllCategories lists every exercise category in display order.
func AllCategories() []ExerciseCategory {
	return []ExerciseCategory{CategoryBreathing, CategoryCognitive, CategoryJournaling, CategoryMindfulness}
}

// Valid reports whether c is a known category.
func (c ExerciseCategory) Valid() bool {
	return slices.Contains(AllCategories(), c)
}

// ExerciseDefinition is an entry of the static exercise catalog.
type ExerciseDefinition struct {
	ID              string           `json:"id" toml:"id"`
	Title           string           `json:"title" toml:"title"`
	Description     string           `json:"description" toml:"description"`
	DurationMinutes int              `json:"duration_minutes" toml:"duration_minutes"`
	XPReward        int64            `json:"xp_reward" toml:"xp_reward"`
	Category        ExerciseCategory `json:"category" toml:"category"`
}

// ExerciseCompletionEvent is the engine input for one finished exercise.
// OccurredAt is expected in the user's location; its calendar day is the activity day.
type ExerciseCompletionEvent struct {
	UserID     string    `json:"user_id"`
	ExerciseID string    `json:"exercise_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ExerciseCatalog resolves exercise ids to definitions.
type ExerciseCatalog interface {
	Lookup(id string) (ExerciseDefinition, bool)
}

// CompletionRecord is the durable audit row of an applied completion.
type CompletionRecord struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user_id"`
	ExerciseID string           `json:"exercise_id"`
	Category   ExerciseCategory `json:"category"`
	XPAwarded  int64            `json:"xp_awarded"`
	OccurredAt time.Time        `json:"occurred_at"`
	Day        civil.Date       `json:"day"`
}

// ─── Achievement Types ──────────────────────────────────────────────────────

// AchievementCategory groups achievements by theme.
type AchievementCategory string

const (
	CatGettingStarted AchievementCategory = "getting_started"
	CatStreaks        AchievementCategory = "streaks"
	CatProgress       AchievementCategory = "progress"
	CatMastery        AchievementCategory = "mastery"
)

// AchievementDef defines a single achievement's unlock rule.
type AchievementDef struct {
	ID          string                      `json:"id"`
	Title       string                      `json:"title"`
	Description string                      `json:"description"`
	Category    AchievementCategory         `json:"category"`
	Icon        string                      `json:"icon"`
	Rule        func(ProgressSnapshot) bool `json:"-"` // Not serialized
}

// UnlockedAchievement records when a user earned an achievement.
type UnlockedAchievement struct {
	ID         string    `json:"id"`
	UnlockedAt time.Time `json:"unlocked_at"`
	Notified   bool      `json:"notified"`
}

// ─── Users ──────────────────────────────────────────────────────────────────

// User is the registered owner of a progress state.
type User struct {
	ID        string    `json:"id"`
	TimeZone  string    `json:"time_zone"`
	CreatedAt time.Time `json:"created_at"`
}

// Location resolves the user's IANA time zone, falling back to UTC.
func (u User) Location() *time.Location {
	if u.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ─── Notification Types ─────────────────────────────────────────────────────

// NotificationType categorizes notifications.
type NotificationType string

const (
	NotifyAchievement NotificationType = "achievement"
	NotifyLevelUp     NotificationType = "level_up"
)

// Notification is a user-facing message.
type Notification struct {
	ID        int64            `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	CreatedAt time.Time        `json:"created_at"`
	Shown     bool             `json:"shown"`
}

// NotificationPolicy governs how often notifications are sent.
type NotificationPolicy struct {
	MaxPerDay  int    `json:"max_per_day" toml:"max_per_day"`
	QuietStart string `json:"quiet_start" toml:"quiet_start"` // "22:00"
	QuietEnd   string `json:"quiet_end" toml:"quiet_end"`     // "08:00"
}

// DefaultNotificationPolicy returns the default policy: 3/day, quiet 22:00–08:00.
func DefaultNotificationPolicy() NotificationPolicy {
	return NotificationPolicy{
		MaxPerDay:  3,
		QuietStart: "22:00",
		QuietEnd:   "08:00",
	}
}
