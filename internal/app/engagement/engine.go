package engagement

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/mindpath-app/mindpath/internal/domain"
)

// Engine composes ledger, streak tracker and achievement evaluator into one
// pure step. It holds only configuration; it never touches storage.
type Engine struct {
	Catalog      domain.ExerciseCatalog
	Achievements []domain.AchievementDef
}

// NewEngine creates an engine over the given catalog and achievement rules.
func NewEngine(catalog domain.ExerciseCatalog, achievements []domain.AchievementDef) *Engine {
	return &Engine{Catalog: catalog, Achievements: achievements}
}

// Outcome is the result of applying one completion.
type Outcome struct {
	Prior         domain.UserProgressState `json:"-"`
	State         domain.UserProgressState `json:"-"`
	Exercise      domain.ExerciseDefinition `json:"exercise"`
	Day           civil.Date               `json:"day"`
	XPAwarded     int64                    `json:"xp_awarded"`
	PreviousLevel int                      `json:"previous_level"`
	Level         int                      `json:"level"`
	LeveledUp     bool                     `json:"leveled_up"`
	NewlyUnlocked []domain.AchievementDef  `json:"newly_unlocked"`
	Snapshot      domain.ProgressSnapshot  `json:"snapshot"`
}

// Complete applies a completion and evaluates achievements against the result.
// now is the evaluation instant in the user's location; its day is "today".
// Either the whole step succeeds or the prior state is left as it was.
func (e *Engine) Complete(prior domain.UserProgressState, event domain.ExerciseCompletionEvent, now time.Time) (Outcome, error) {
	next, xp, err := ApplyExerciseCompletion(prior, event, e.Catalog, now)
	if err != nil {
		return Outcome{}, err
	}

	today := DayOf(now)
	next, unlocked := EvaluateAchievements(prior, next, today, e.Achievements)

	exercise, _ := e.Catalog.Lookup(event.ExerciseID)
	return Outcome{
		Prior:         prior,
		State:         next,
		Exercise:      exercise,
		Day:           DayOf(event.OccurredAt),
		XPAwarded:     xp,
		PreviousLevel: prior.Level(),
		Level:         next.Level(),
		LeveledUp:     LeveledUp(prior.TotalXP, next.TotalXP),
		NewlyUnlocked: unlocked,
		Snapshot:      Snapshot(next, today),
	}, nil
}

// Reevaluate runs the achievement rules over state without any new activity.
// Used after catalog changes so existing progress can unlock new rules.
func (e *Engine) Reevaluate(state domain.UserProgressState, today civil.Date) (domain.UserProgressState, []domain.AchievementDef) {
	return EvaluateAchievements(state, state, today, e.Achievements)
}
