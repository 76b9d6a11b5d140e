// Package engagement implements the mindpath progression engine.
// Streaks, levels, XP and achievements are pure transitions over
// domain.UserProgressState; Service hosts them over the SQLite store.
package engagement

import (
	"slices"
	"time"

	"cloud.google.com/go/civil"

	"github.com/mindpath-app/mindpath/internal/domain"
)

// DayOf normalizes a timestamp to its calendar day in the timestamp's own location.
// Callers convert to the user's location first.
func DayOf(t time.Time) civil.Date {
	return civil.DateOf(t)
}

// RecordActivity inserts day into the activity history.
// Recording a day already present returns the state unchanged.
// History is insertion-only: streaks break by observation, never by deletion.
func RecordActivity(state domain.UserProgressState, day civil.Date) domain.UserProgressState {
	idx, found := slices.BinarySearchFunc(state.ActivityDays, day, domain.CompareDates)
	if found {
		return state
	}
	next := state.Clone()
	next.ActivityDays = slices.Insert(next.ActivityDays, idx, day)
	return next
}

// CurrentStreak returns the streak length as observed on today.
// The run ends at the latest activity day on or before today; if that day is
// more than one day before today the streak is broken and 0 is returned.
func CurrentStreak(days []civil.Date, today civil.Date) int {
	end, ok := latestOnOrBefore(days, today)
	if !ok {
		return 0
	}
	if today.DaysSince(days[end]) > 1 {
		return 0
	}
	return runEndingAt(days, end)
}

// LongestStreak returns the longest run of consecutive days anywhere in history.
func LongestStreak(days []civil.Date) int {
	longest, run := 0, 0
	for i := range days {
		if i > 0 && days[i].DaysSince(days[i-1]) == 1 {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}
	return longest
}

// ─── Week View ──────────────────────────────────────────────────────────────

// DayMark is one cell of the 7-day streak display.
type DayMark struct {
	Date      civil.Date `json:"date"`
	Weekday   string     `json:"weekday"`
	Completed bool       `json:"completed"`
	Today     bool       `json:"today"`
}

// WeekView projects the current streak onto Monday..Sunday of today's week.
// A day is completed only if it belongs to the live streak run, so a broken
// streak (current length 0) marks nothing even when history has days this week.
func WeekView(days []civil.Date, today civil.Date) [7]DayMark {
	var week [7]DayMark
	start := weekStart(today)

	streak := CurrentStreak(days, today)
	var runStart, runEnd civil.Date
	if streak > 0 {
		end, _ := latestOnOrBefore(days, today)
		runEnd = days[end]
		runStart = runEnd.AddDays(-(streak - 1))
	}

	for i := range week {
		d := start.AddDays(i)
		week[i] = DayMark{
			Date:      d,
			Weekday:   weekdayOf(d).String()[:3],
			Today:     d == today,
			Completed: streak > 0 && !d.Before(runStart) && !d.After(runEnd),
		}
	}
	return week
}

// CompletedDays returns only the completed dates of a week view.
func CompletedDays(week [7]DayMark) []civil.Date {
	var out []civil.Date
	for _, m := range week {
		if m.Completed {
			out = append(out, m.Date)
		}
	}
	return out
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// latestOnOrBefore returns the index of the last day <= today.
func latestOnOrBefore(days []civil.Date, today civil.Date) (int, bool) {
	idx, found := slices.BinarySearchFunc(days, today, domain.CompareDates)
	if found {
		return idx, true
	}
	if idx == 0 {
		return 0, false
	}
	return idx - 1, true
}

// runEndingAt counts consecutive days ending at days[end].
func runEndingAt(days []civil.Date, end int) int {
	n := 1
	for i := end; i > 0 && days[i].DaysSince(days[i-1]) == 1; i-- {
		n++
	}
	return n
}

func weekdayOf(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}

// weekStart returns the Monday of d's week.
func weekStart(d civil.Date) civil.Date {
	offset := (int(weekdayOf(d)) + 6) % 7
	return d.AddDays(-offset)
}
