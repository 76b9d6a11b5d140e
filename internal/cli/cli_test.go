package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mindpath-app/mindpath/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

// execute runs the root command with args against a fresh MINDPATH_HOME
// unless the caller already set one.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores every flag to its default; cobra keeps values between runs.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func home(t *testing.T) {
	t.Helper()
	t.Setenv("MINDPATH_HOME", t.TempDir())
}

func TestExercises(t *testing.T) {
	home(t)

	out, err := execute(t, "exercises")
	require.NoError(t, err)
	assert.Contains(t, out, "box-breathing")
	assert.Contains(t, out, "thought-record")

	out, err = execute(t, "exercises", "--category", "journaling")
	require.NoError(t, err)
	assert.Contains(t, out, "gratitude-journal")
	assert.NotContains(t, out, "box-breathing")

	_, err = execute(t, "exercises", "--category", "yoga")
	assert.Error(t, err)
}

func TestCompleteAndProgress(t *testing.T) {
	home(t)

	out, err := execute(t, "user", "add", "alice", "--tz", "Europe/Lisbon")
	require.NoError(t, err)
	assert.Contains(t, out, "Europe/Lisbon")

	out, err = execute(t, "complete", "alice", "box-breathing")
	require.NoError(t, err)
	assert.Contains(t, out, "+20 XP (total 20)")
	assert.Contains(t, out, "Achievement unlocked: First Breath")

	out, err = execute(t, "complete", "alice", "thought-record")
	require.NoError(t, err)
	assert.Contains(t, out, "+40 XP (total 60)")
	assert.NotContains(t, out, "First Breath", "unlocks are reported once")

	out, err = execute(t, "progress", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Level:        1")
	assert.Contains(t, out, "XP:           60")
	assert.Contains(t, out, "40 XP to level 2")
	assert.Contains(t, out, "Streak:       1 day(s)")
	assert.Contains(t, out, "●")
	assert.Contains(t, out, "thought-record")
}

func TestComplete_Errors(t *testing.T) {
	home(t)

	_, err := execute(t, "complete", "ghost", "box-breathing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = execute(t, "user", "add", "bob")
	require.NoError(t, err)

	_, err = execute(t, "complete", "bob", "juggling")
	assert.ErrorIs(t, err, domain.ErrUnknownExercise)

	_, err = execute(t, "complete", "bob", "box-breathing", "--at", "1999-12-31")
	assert.ErrorIs(t, err, domain.ErrInvalidActivityDate)

	_, err = execute(t, "complete", "bob", "box-breathing", "--at", "yesterday")
	assert.Error(t, err)
}

func TestMood(t *testing.T) {
	home(t)
	_, err := execute(t, "user", "add", "carol")
	require.NoError(t, err)

	out, err := execute(t, "mood", "carol", "anxious", "--intensity", "9", "--note", "deadline")
	require.NoError(t, err)
	assert.Contains(t, out, "Anxious (intensity 9)")
	assert.Contains(t, out, "Suggested: breathing")
	assert.Contains(t, out, "box-breathing")

	out, err = execute(t, "mood", "carol", "great", "--intensity", "40")
	require.NoError(t, err)
	assert.Contains(t, out, "intensity 10", "intensity is clamped")

	_, err = execute(t, "mood", "carol", "meh")
	assert.ErrorIs(t, err, domain.ErrInvalidMood)

	out, err = execute(t, "moods", "carol")
	require.NoError(t, err)
	assert.Contains(t, out, "anxious")
	assert.Contains(t, out, "deadline")

	out, err = execute(t, "progress", "carol")
	require.NoError(t, err)
	assert.Contains(t, out, "XP:           0", "moods never award XP")
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"recommend", "anxious", "--intensity", "8"}, "Suggested: breathing"},
		{[]string{"recommend", "anxious", "--intensity", "3"}, "Suggested: cognitive"},
		{[]string{"recommend", "sad"}, "Suggested: journaling"},
		{[]string{"recommend", "unknown"}, "Suggested: mindfulness"},
	}
	for _, tt := range tests {
		out, err := execute(t, tt.args...)
		require.NoError(t, err, tt.args)
		assert.Contains(t, out, tt.want, tt.args)
	}
}

func TestAchievements(t *testing.T) {
	home(t)

	out, err := execute(t, "achievements")
	require.NoError(t, err)
	assert.Contains(t, out, "first_exercise")
	assert.Contains(t, out, "streak_7")

	_, err = execute(t, "user", "add", "dana")
	require.NoError(t, err)
	_, err = execute(t, "complete", "dana", "body-scan")
	require.NoError(t, err)

	out, err = execute(t, "achievements", "dana", "--reevaluate")
	require.NoError(t, err)
	assert.Contains(t, out, "Re-evaluated: 0 new unlock(s)")
	assert.Regexp(t, `first_exercise\s+\S+ First Breath\s+\d{4}-\d{2}-\d{2}`, out)
	assert.Regexp(t, `streak_7\s+\S+ .+\s+-`, out)
}

func TestNotifications(t *testing.T) {
	home(t)
	_, err := execute(t, "config", "init")
	require.NoError(t, err)

	_, err = execute(t, "user", "add", "erin")
	require.NoError(t, err)
	_, err = execute(t, "complete", "erin", "box-breathing")
	require.NoError(t, err)

	// Quiet hours or the daily cap may suppress delivery depending on the
	// wall clock, so only the ack round-trip is asserted.
	_, err = execute(t, "notifications", "erin", "--ack")
	require.NoError(t, err)
	out, err := execute(t, "notifications", "erin")
	require.NoError(t, err)
	assert.Contains(t, out, "No pending notifications.")
}

func TestConfig(t *testing.T) {
	home(t)

	out, err := execute(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "config.toml")

	_, err = execute(t, "config", "init")
	assert.Error(t, err, "refuses to overwrite")

	_, err = execute(t, "config", "init", "--force")
	require.NoError(t, err)

	t.Setenv("MINDPATH_API_PORT", "9555")
	out, err = execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "port = 9555")
}

func TestParseAt(t *testing.T) {
	at, err := parseAt("")
	require.NoError(t, err)
	assert.True(t, at.IsZero())

	at, err = parseAt("2025-07-02T09:30:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, 7, at.UTC().Hour())

	at, err = parseAt("2025-07-02")
	require.NoError(t, err)
	assert.Equal(t, 12, at.Hour())

	_, err = parseAt("July 2nd")
	assert.Error(t, err)
}

func TestLevelBar(t *testing.T) {
	assert.Equal(t, "[..............................]   0%", levelBar(0))
	assert.Equal(t, "[==============================] 100%", levelBar(140))
	assert.Contains(t, levelBar(50), "==============>")
}
