package engagement

import (
	"fmt"
	"time"

	"github.com/mindpath-app/mindpath/internal/domain"
)

// MaxFutureDays is how far past the evaluator's local day an activity may fall
// before it is rejected as clock skew.
const MaxFutureDays = 1

// minActivityTime is the earliest accepted activity timestamp.
var minActivityTime = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// ValidateActivityTime rejects zero, prehistoric and far-future timestamps.
func ValidateActivityTime(t, now time.Time) error {
	if t.IsZero() || t.Before(minActivityTime) {
		return fmt.Errorf("%w: %s", domain.ErrInvalidActivityDate, t.Format(time.RFC3339))
	}
	limit := DayOf(now.In(t.Location())).AddDays(MaxFutureDays)
	if DayOf(t).After(limit) {
		return fmt.Errorf("%w: %s is after %s", domain.ErrInvalidActivityDate, DayOf(t), limit)
	}
	return nil
}

// ApplyExerciseCompletion awards the exercise's XP and records the event's day
// as activity. It returns the new state and the XP awarded. On any error the
// returned state is the unchanged input; the input is never mutated.
func ApplyExerciseCompletion(
	state domain.UserProgressState,
	event domain.ExerciseCompletionEvent,
	catalog domain.ExerciseCatalog,
	now time.Time,
) (domain.UserProgressState, int64, error) {
	if event.UserID != "" && state.UserID != "" && event.UserID != state.UserID {
		return state, 0, fmt.Errorf("%w: event %q, state %q", domain.ErrUserMismatch, event.UserID, state.UserID)
	}

	exercise, ok := catalog.Lookup(event.ExerciseID)
	if !ok {
		return state, 0, fmt.Errorf("%w: %q", domain.ErrUnknownExercise, event.ExerciseID)
	}
	if exercise.XPReward <= 0 {
		return state, 0, fmt.Errorf("%w: %q has xp_reward %d", domain.ErrInvalidExercise, exercise.ID, exercise.XPReward)
	}

	if err := ValidateActivityTime(event.OccurredAt, now); err != nil {
		return state, 0, err
	}

	next := RecordActivity(state.Clone(), DayOf(event.OccurredAt))
	next.TotalXP += exercise.XPReward
	if next.CompletionsByCategory == nil {
		next.CompletionsByCategory = map[domain.ExerciseCategory]int{}
	}
	next.CompletionsByCategory[exercise.Category]++

	return next, exercise.XPReward, nil
}
