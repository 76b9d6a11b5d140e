package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindpath-app/mindpath/internal/domain"
)

func TestDefault_AllBuiltinsValid(t *testing.T) {
	c := Default()
	assert.Equal(t, len(Builtin), c.Len())
	for _, e := range c.List() {
		assert.NoError(t, Validate(e), e.ID)
	}
}

func TestDefault_EveryCategoryCovered(t *testing.T) {
	c := Default()
	for _, cat := range domain.AllCategories() {
		assert.NotEmpty(t, c.ByCategory(cat), "category %s has no exercises", cat)
	}
}

func TestLookup_CaseInsensitive(t *testing.T) {
	c := Default()
	e, ok := c.Lookup("  Box-Breathing ")
	require.True(t, ok)
	assert.Equal(t, "box-breathing", e.ID)

	_, ok = c.Lookup("no-such-exercise")
	assert.False(t, ok)
}

func TestNew_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		def  domain.ExerciseDefinition
	}{
		{"empty id", domain.ExerciseDefinition{XPReward: 10, DurationMinutes: 1, Category: domain.CategoryBreathing}},
		{"zero xp", domain.ExerciseDefinition{ID: "a", DurationMinutes: 1, Category: domain.CategoryBreathing}},
		{"negative xp", domain.ExerciseDefinition{ID: "a", XPReward: -5, DurationMinutes: 1, Category: domain.CategoryBreathing}},
		{"zero duration", domain.ExerciseDefinition{ID: "a", XPReward: 5, Category: domain.CategoryBreathing}},
		{"bad category", domain.ExerciseDefinition{ID: "a", XPReward: 5, DurationMinutes: 1, Category: "dancing"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New([]domain.ExerciseDefinition{tt.def})
			assert.ErrorIs(t, err, domain.ErrInvalidExercise)
		})
	}
}

func TestNew_RejectsDuplicateIDs(t *testing.T) {
	d := Builtin[0]
	_, err := New([]domain.ExerciseDefinition{d, d})
	assert.ErrorIs(t, err, domain.ErrInvalidExercise)
}

func TestLoad_MissingFileFallsBack(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, len(Builtin), c.Len())
}

func TestLoad_ExtendsBuiltins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exercises.toml")
	content := `
[[exercise]]
id = "mindful-walk"
title = "Mindful Walk"
duration_minutes = 15
xp_reward = 50
category = "mindfulness"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, len(Builtin)+1, c.Len())

	e, ok := c.Lookup("mindful-walk")
	require.True(t, ok)
	assert.Equal(t, int64(50), e.XPReward)
	assert.Equal(t, domain.CategoryMindfulness, e.Category)
}

func TestLoad_InvalidFileEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exercises.toml")
	content := `
[[exercise]]
id = "broken"
title = "Broken"
duration_minutes = 5
xp_reward = 0
category = "breathing"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := Load(path)
	assert.ErrorIs(t, err, domain.ErrInvalidExercise)
}
