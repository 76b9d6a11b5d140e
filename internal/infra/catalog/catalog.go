// Package catalog provides the exercise catalog: the built-in guided
// exercises plus any extras loaded from a TOML file.
// It maps exercise ids like "box-breathing" to their definitions.
package catalog

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/mindpath-app/mindpath/internal/domain"
)

// Builtin is the built-in list of guided exercises.
var Builtin = []domain.ExerciseDefinition{
	{
		ID:              "box-breathing",
		Title:           "Box Breathing",
		Description:     "Inhale, hold, exhale, hold for four counts each",
		DurationMinutes: 4,
		XPReward:        20,
		Category:        domain.CategoryBreathing,
	},
	{
		ID:              "478-breathing",
		Title:           "4-7-8 Breathing",
		Description:     "Slow exhale pattern for winding down",
		DurationMinutes: 5,
		XPReward:        25,
		Category:        domain.CategoryBreathing,
	},
	{
		ID:              "thought-record",
		Title:           "Thought Record",
		Description:     "Catch an automatic thought and weigh the evidence",
		DurationMinutes: 10,
		XPReward:        40,
		Category:        domain.CategoryCognitive,
	},
	{
		ID:              "reframe",
		Title:           "Reframing",
		Description:     "Rewrite a worry from a kinder angle",
		DurationMinutes: 8,
		XPReward:        30,
		Category:        domain.CategoryCognitive,
	},
	{
		ID:              "gratitude-journal",
		Title:           "Gratitude Journal",
		Description:     "Write down three things that went well",
		DurationMinutes: 5,
		XPReward:        25,
		Category:        domain.CategoryJournaling,
	},
	{
		ID:              "free-write",
		Title:           "Free Writing",
		Description:     "Ten minutes of unfiltered writing",
		DurationMinutes: 10,
		XPReward:        35,
		Category:        domain.CategoryJournaling,
	},
	{
		ID:              "body-scan",
		Title:           "Body Scan",
		Description:     "Move attention slowly from head to toe",
		DurationMinutes: 12,
		XPReward:        45,
		Category:        domain.CategoryMindfulness,
	},
	{
		ID:              "five-senses",
		Title:           "5-4-3-2-1 Grounding",
		Description:     "Name things you can see, touch, hear, smell and taste",
		DurationMinutes: 3,
		XPReward:        15,
		Category:        domain.CategoryMindfulness,
	},
}

// Catalog is an immutable id-indexed set of exercises.
type Catalog struct {
	entries []domain.ExerciseDefinition
	byID    map[string]int
}

// New builds a catalog, validating every definition.
// Later definitions with a duplicate id are rejected.
func New(defs []domain.ExerciseDefinition) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]int, len(defs))}
	for _, d := range defs {
		if err := Validate(d); err != nil {
			return nil, err
		}
		key := normalizeID(d.ID)
		if _, dup := c.byID[key]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", domain.ErrInvalidExercise, d.ID)
		}
		c.byID[key] = len(c.entries)
		c.entries = append(c.entries, d)
	}
	return c, nil
}

// Default returns the catalog of built-in exercises.
func Default() *Catalog {
	c, err := New(Builtin)
	if err != nil {
		panic(fmt.Sprintf("builtin catalog invalid: %v", err))
	}
	return c
}

// Lookup finds an exercise by id (case-insensitive).
func (c *Catalog) Lookup(id string) (domain.ExerciseDefinition, bool) {
	i, ok := c.byID[normalizeID(id)]
	if !ok {
		return domain.ExerciseDefinition{}, false
	}
	return c.entries[i], true
}

// List returns all exercises in catalog order.
func (c *Catalog) List() []domain.ExerciseDefinition {
	return slices.Clone(c.entries)
}

// ByCategory returns the exercises of one category.
func (c *Catalog) ByCategory(cat domain.ExerciseCategory) []domain.ExerciseDefinition {
	var out []domain.ExerciseDefinition
	for _, e := range c.entries {
		if e.Category == cat {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of exercises.
func (c *Catalog) Len() int { return len(c.entries) }

// Validate checks a single definition.
func Validate(d domain.ExerciseDefinition) error {
	switch {
	case strings.TrimSpace(d.ID) == "":
		return fmt.Errorf("%w: empty id", domain.ErrInvalidExercise)
	case d.XPReward <= 0:
		return fmt.Errorf("%w: %q xp_reward must be positive, got %d", domain.ErrInvalidExercise, d.ID, d.XPReward)
	case d.DurationMinutes <= 0:
		return fmt.Errorf("%w: %q duration_minutes must be positive", domain.ErrInvalidExercise, d.ID)
	case !d.Category.Valid():
		return fmt.Errorf("%w: %q unknown category %q", domain.ErrInvalidExercise, d.ID, d.Category)
	}
	return nil
}

// fileFormat is the TOML layout of an extra exercise file:
//
//	[[exercise]]
//	id = "walk"
//	...
type fileFormat struct {
	Exercises []domain.ExerciseDefinition `toml:"exercise"`
}

// Load returns the built-in catalog extended with the exercises in path.
// An empty path or a missing file yields the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	var f fileFormat
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	defs := append(slices.Clone(Builtin), f.Exercises...)
	return New(defs)
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
