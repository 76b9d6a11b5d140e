package domain

import (
	"fmt"
	"strings"
	"time"
)

// Mood is the closed set of moods a user can log.
type Mood int

const (
	MoodGreat Mood = iota
	MoodGood
	MoodOkay
	MoodLow
	MoodSad
	MoodAnxious
	MoodStressed
	MoodAngry

	moodCount
)

// MoodInfo is the display metadata of a mood.
type MoodInfo struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Emoji string `json:"emoji"`
}

// moodTable is indexed by Mood; its length is pinned to moodCount.
var moodTable = [moodCount]MoodInfo{
	MoodGreat:    {Key: "great", Label: "Great", Emoji: "😄"},
	MoodGood:     {Key: "good", Label: "Good", Emoji: "🙂"},
	MoodOkay:     {Key: "okay", Label: "Okay", Emoji: "😐"},
	MoodLow:      {Key: "low", Label: "Low", Emoji: "😔"},
	MoodSad:      {Key: "sad", Label: "Sad", Emoji: "😢"},
	MoodAnxious:  {Key: "anxious", Label: "Anxious", Emoji: "😰"},
	MoodStressed: {Key: "stressed", Label: "Stressed", Emoji: "😫"},
	MoodAngry:    {Key: "angry", Label: "Angry", Emoji: "😠"},
}

// AllMoods lists every mood in display order.
func AllMoods() []Mood {
	out := make([]Mood, 0, moodCount)
	for m := Mood(0); m < moodCount; m++ {
		out = append(out, m)
	}
	return out
}

// Valid reports whether m is a declared mood.
func (m Mood) Valid() bool {
	return m >= 0 && m < moodCount
}

// Info returns the display metadata for m.
func (m Mood) Info() MoodInfo {
	if !m.Valid() {
		return MoodInfo{}
	}
	return moodTable[m]
}

func (m Mood) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Mood(%d)", int(m))
	}
	return moodTable[m].Key
}

// ParseMood resolves a mood key (case-insensitive).
func ParseMood(s string) (Mood, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for m := Mood(0); m < moodCount; m++ {
		if moodTable[m].Key == key {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMood, s)
}

// MarshalText encodes the mood as its key.
func (m Mood) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMood, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mood key.
func (m *Mood) UnmarshalText(b []byte) error {
	parsed, err := ParseMood(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Intensity bounds for mood entries.
const (
	MinIntensity = 1
	MaxIntensity = 10
)

// ClampIntensity pins v into [MinIntensity, MaxIntensity].
func ClampIntensity(v int) int {
	return min(max(v, MinIntensity), MaxIntensity)
}

// MoodEntry is one append-only mood submission. It never awards XP.
type MoodEntry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Mood       Mood      `json:"mood"`
	Intensity  int       `json:"intensity"`
	Note       string    `json:"note,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
