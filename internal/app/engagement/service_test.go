package engagement_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/mindpath-app/mindpath/internal/app/engagement"
	"github.com/mindpath-app/mindpath/internal/domain"
	"github.com/mindpath-app/mindpath/internal/infra/sqlite"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

// testDB creates a temporary SQLite database for testing.
func testDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	require.NoError(t, err, "open test db")
	t.Cleanup(func() { db.Close() })
	return db
}

// fixedClock is a mutable test clock.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	db    *sqlite.DB
	svc   *engagement.Service
	clock *fixedClock
}

func newFixture(t *testing.T, policy domain.NotificationPolicy) *fixture {
	t.Helper()
	db := testDB(t)
	clock := &fixedClock{t: time.Date(2025, 7, 2, 12, 0, 0, 0, time.UTC)}
	db.SetClock(clock.Now)

	log := zaptest.NewLogger(t)
	notifier := engagement.NewNotificationServiceWithPolicy(db, policy, log)
	eng := engagement.NewEngine(testCatalog(), engagement.AllAchievements())
	svc := engagement.NewService(db, eng, notifier, log, engagement.WithClock(clock.Now))
	return &fixture{db: db, svc: svc, clock: clock}
}

func openPolicy() domain.NotificationPolicy {
	return domain.NotificationPolicy{MaxPerDay: 10, QuietStart: "00:00", QuietEnd: "00:00"}
}

// ═══════════════════════════════════════════════════════════════════════════
// Service Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestService_RegisterUser(t *testing.T) {
	f := newFixture(t, openPolicy())
	ctx := context.Background()

	u, err := f.svc.RegisterUser(ctx, "alice", "Europe/Berlin")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", u.TimeZone)

	// Re-registering updates the zone.
	u, err = f.svc.RegisterUser(ctx, "alice", "America/New_York")
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", u.TimeZone)

	_, err = f.svc.RegisterUser(ctx, "bob", "Mars/Olympus")
	assert.ErrorIs(t, err, domain.ErrInvalidTimeZone)

	u, err = f.svc.RegisterUser(ctx, "carol", "")
	require.NoError(t, err)
	assert.Equal(t, "UTC", u.TimeZone)
}

func TestService_CompleteExercise(t *testing.T) {
	f := newFixture(t, openPolicy())
	ctx := context.Background()
	_, err := f.svc.RegisterUser(ctx, "alice", "UTC")
	require.NoError(t, err)

	out, err := f.svc.CompleteExercise(ctx, domain.ExerciseCompletionEvent{UserID: "alice", ExerciseID: "breath-30"})
	require.NoError(t, err)
	assert.Equal(t, int64(30), out.XPAwarded)
	assert.Equal(t, int64(1), out.State.Version)
	require.Len(t, out.NewlyUnlocked, 1)
	assert.Equal(t, "first_exercise", out.NewlyUnlocked[0].ID)

	stored, err := f.db.LoadProgress(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(30), stored.TotalXP)
	assert.Equal(t, []string{"first_exercise"}, stored.UnlockedAchievementIDs)
	assert.Equal(t, out.State.ActivityDays, stored.ActivityDays)

	log, err := f.svc.Completions(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, "breath-30", log[0].ExerciseID)
	assert.Equal(t, date(2025, 7, 2), log[0].Day)
}

func TestService_CompleteUsesUserTimeZone(t *testing.T) {
	f := newFixture(t, openPolicy())
	ctx := context.Background()
	_, err := f.svc.RegisterUser(ctx, "kiri", "Pacific/Auckland")
	require.NoError(t, err)

	// 2025-07-02 12:00 UTC is 2025-07-03 00:00 in Auckland (UTC+12).
	out, err := f.svc.CompleteExercise(ctx, domain.ExerciseCompletionEvent{
		UserID: "kiri", ExerciseID: "sit-10",
		OccurredAt: time.Date(2025, 7, 2, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, date(2025, 7, 3), out.Day)
}

func TestService_RejectionPersistsNothing(t *testing.T) {
	f := newFixture(t, openPolicy())
	ctx := context.Background()
	_, err := f.svc.RegisterUser(ctx, "alice", "UTC")
	require.NoError(t, err)

	_, err = f.svc.CompleteExercise(ctx, domain.ExerciseCompletionEvent{UserID: "alice", ExerciseID: "nope"})
	require.ErrorIs(t, err, domain.ErrUnknownExercise)

	_, err = f.svc.CompleteExercise(ctx, domain.ExerciseCompletionEvent{
		UserID: "alice", ExerciseID: "sit-10", OccurredAt: f.clock.Now().AddDate(0, 0, 5),
	})
	require.ErrorIs(t, err, domain.ErrInvalidActivityDate)

	snap, err := f.svc.Progress(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, snap.TotalXP)
	assert.Zero(t, snap.ActiveDays)
}

func TestService_UnknownUser(t *testing.T) {
	f := newFixture(t, openPolicy())
	ctx := context.Background()

	_, err := f.svc.CompleteExercise(ctx, domain.ExerciseCompletionEvent{UserID: "ghost", ExerciseID: "sit-10"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = f.svc.Progress(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = f.svc.LogMood(ctx, "ghost", domain.MoodOkay, 5, "", time.Time{})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestService_ConcurrentCompletionsKeepAllXP(t *testing.T) {
	f := newFixture(t, openPolicy())
	ctx := context.Background()
	_, err := f.svc.RegisterUser(ctx, "alice", "UTC")
	require.NoError(t, err)
	_, err = f.svc.RegisterUser(ctx, "bob", "UTC")
	require.NoError(t, err)

	const n = 12
	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := 0; i < n; i++ {
		for _, user := range []string{"alice", "bob"} {
			wg.Add(1)
			go func(user string) {
				defer wg.Done()
				_, err := f.svc.CompleteExercise(ctx, domain.ExerciseCompletionEvent{UserID: user, ExerciseID: "journal-20"})
				errs <- err
			}(user)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	for _, user := range []string{"alice", "bob"} {
		state, err := f.db.LoadProgress(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, int64(n*20), state.TotalXP, user)
		assert.Equal(t, int64(n), state.Version, user)
		assert.Equal(t, n, state.CompletionsByCategory[domain.CategoryJournaling], user)
		assert.Len(t, state.ActivityDays, 1, user)
	}
}

func TestService_StreakAcrossDays(t *testing.T) {
	f := newFixture(t, openPolicy())
	ctx := context.Background()
	_, err := f.svc.RegisterUser(ctx, "alice", "UTC")
	require.NoError(t, err)

	var out engagement.Outcome
	for i := 0; i < 3; i++ {
		out, err = f.svc.CompleteExercise(ctx, domain.ExerciseCompletionEvent{UserID: "alice", ExerciseID: "sit-10"})
		require.NoError(t, err)
		f.clock.Advance(24 * time.Hour)
	}
	assert.Equal(t, 3, out.Snapshot.CurrentStreak)
	assert.True(t, containsID(out.NewlyUnlocked, "streak_3"))

	// Clock is now day 4; skip it and observe on day 5.
	f.clock.Advance(24 * time.Hour)
	snap, err := f.svc.Progress(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, snap.CurrentStreak)
	assert.Equal(t, 3, snap.LongestStreak)
	assert.Equal(t, 3, snap.ActiveDays)

	week, err := f.svc.Week(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, engagement.CompletedDays(week))
}

func TestService_Achievements(t *testing.T) {
	f := newFixture(t, openPolicy())
	ctx := context.Background()
	_, err := f.svc.RegisterUser(ctx, "alice", "UTC")
	require.NoError(t, err)
	_, err = f.svc.CompleteExercise(ctx, domain.ExerciseCompletionEvent{UserID: "alice", ExerciseID: "sit-10"})
	require.NoError(t, err)

	list, err := f.svc.Achievements(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, len(engagement.AllAchievements()))
	for _, a := range list {
		if a.ID == "first_exercise" {
			assert.True(t, a.Unlocked)
			require.NotNil(t, a.UnlockedAt)
		} else {
			assert.False(t, a.Unlocked, a.ID)
		}
	}
}

func TestService_Reevaluate(t *testing.T) {
	f := newFixture(t, openPolicy())
	ctx := context.Background()
	_, err := f.svc.RegisterUser(ctx, "alice", "UTC")
	require.NoError(t, err)

	// Progress recorded before any rule existed.
	prior, err := f.db.LoadProgress(ctx, "alice")
	require.NoError(t, err)
	next := prior.Clone()
	next.TotalXP = 520
	_, err = f.db.SaveProgress(ctx, prior, next, nil)
	require.NoError(t, err)

	unlocked, err := f.svc.Reevaluate(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, containsID(unlocked, "xp_500"))
	assert.True(t, containsID(unlocked, "level_5"))

	again, err := f.svc.Reevaluate(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, again)
}

func containsID(defs []domain.AchievementDef, id string) bool {
	for _, d := range defs {
		if d.ID == id {
			return true
		}
	}
	return false
}

// ═══════════════════════════════════════════════════════════════════════════
// Mood Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestService_LogMood(t *testing.T) {
	f := newFixture(t, openPolicy())
	ctx := context.Background()
	_, err := f.svc.RegisterUser(ctx, "alice", "UTC")
	require.NoError(t, err)

	res, err := f.svc.LogMood(ctx, "alice", domain.MoodAnxious, 42, "  exam tomorrow ", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, domain.MaxIntensity, res.Entry.Intensity)
	assert.Equal(t, "exam tomorrow", res.Entry.Note)
	assert.Equal(t, domain.CategoryBreathing, res.Recommendation)

	f.clock.Advance(time.Minute)
	_, err = f.svc.LogMood(ctx, "alice", domain.MoodGood, 3, "", time.Time{})
	require.NoError(t, err)

	moods, err := f.svc.Moods(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, moods, 2)
	assert.Equal(t, domain.MoodGood, moods[0].Mood, "newest first")

	// Moods never touch progression.
	snap, err := f.svc.Progress(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, snap.TotalXP)
	assert.Zero(t, snap.ActiveDays)
}

func TestService_MoodSummary(t *testing.T) {
	f := newFixture(t, openPolicy())
	ctx := context.Background()
	_, err := f.svc.RegisterUser(ctx, "alice", "UTC")
	require.NoError(t, err)

	now := f.clock.Now()
	logs := []struct {
		mood domain.Mood
		at   time.Time
	}{
		{domain.MoodAnxious, now.Add(-time.Hour)},
		{domain.MoodGreat, now.Add(-2 * time.Hour)},
		{domain.MoodAnxious, now.AddDate(0, 0, -3)},
		{domain.MoodSad, now.AddDate(0, 0, -40)},
	}
	for _, l := range logs {
		_, err := f.svc.LogMood(ctx, "alice", l.mood, 5, "", l.at)
		require.NoError(t, err)
	}

	got, err := f.svc.MoodSummary(ctx, "alice", 0)
	require.NoError(t, err)
	want := []engagement.MoodCount{
		{Mood: domain.MoodGreat, Count: 1},
		{Mood: domain.MoodAnxious, Count: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MoodSummary() mismatch (-want +got):\n%s", diff)
	}

	got, err = f.svc.MoodSummary(ctx, "alice", 1)
	require.NoError(t, err)
	assert.Len(t, got, 2, "both moods logged today")

	_, err = f.svc.MoodSummary(ctx, "ghost", 7)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestService_LogMoodInvalid(t *testing.T) {
	f := newFixture(t, openPolicy())
	ctx := context.Background()
	_, err := f.svc.RegisterUser(ctx, "alice", "UTC")
	require.NoError(t, err)

	_, err = f.svc.LogMood(ctx, "alice", domain.Mood(42), 5, "", time.Time{})
	assert.ErrorIs(t, err, domain.ErrInvalidMood)
}

// ═══════════════════════════════════════════════════════════════════════════
// Notification Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestNotification_LevelUpAndAchievement(t *testing.T) {
	f := newFixture(t, openPolicy())
	ctx := context.Background()
	_, err := f.svc.RegisterUser(ctx, "alice", "UTC")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = f.svc.CompleteExercise(ctx, domain.ExerciseCompletionEvent{UserID: "alice", ExerciseID: "think-40"})
		require.NoError(t, err)
	}

	pending, err := f.svc.Notifications().Pending(ctx, "alice", 10)
	require.NoError(t, err)
	var types []domain.NotificationType
	for _, n := range pending {
		types = append(types, n.Type)
	}
	// first_exercise on #1; level 2 + level_2 on #3 (120 XP).
	assert.ElementsMatch(t, []domain.NotificationType{
		domain.NotifyAchievement, domain.NotifyLevelUp, domain.NotifyAchievement,
	}, types)

	unlocked, err := f.db.ListUnlockedAchievements(ctx, "alice")
	require.NoError(t, err)
	for _, u := range unlocked {
		assert.True(t, u.Notified, u.ID)
	}
}

func TestNotification_DailyLimit(t *testing.T) {
	f := newFixture(t, domain.NotificationPolicy{MaxPerDay: 1, QuietStart: "23:00", QuietEnd: "05:00"})
	ctx := context.Background()
	_, err := f.svc.RegisterUser(ctx, "alice", "UTC")
	require.NoError(t, err)

	n := f.svc.Notifications()
	at := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	id1, err := n.Create(ctx, domain.Notification{UserID: "alice", Type: domain.NotifyLevelUp, Title: "First", CreatedAt: at})
	require.NoError(t, err)
	assert.NotZero(t, id1)

	id2, err := n.Create(ctx, domain.Notification{UserID: "alice", Type: domain.NotifyLevelUp, Title: "Second", CreatedAt: at.Add(time.Hour)})
	require.NoError(t, err)
	assert.Zero(t, id2, "second should be suppressed (daily limit)")

	id3, err := n.Create(ctx, domain.Notification{UserID: "alice", Type: domain.NotifyLevelUp, Title: "Tomorrow", CreatedAt: at.AddDate(0, 0, 1)})
	require.NoError(t, err)
	assert.NotZero(t, id3, "limit resets on the next local day")
}

func TestNotification_QuietHours(t *testing.T) {
	f := newFixture(t, domain.DefaultNotificationPolicy())
	ctx := context.Background()
	_, err := f.svc.RegisterUser(ctx, "alice", "UTC")
	require.NoError(t, err)
	n := f.svc.Notifications()

	tests := []struct {
		hour, min  int
		suppressed bool
	}{
		{0, 30, true},
		{23, 0, true},
		{7, 59, true},
		{8, 0, false},
		{10, 0, false},
		{21, 59, false},
	}
	for i, tt := range tests {
		// One notification per day so the daily cap never interferes.
		at := time.Date(2025, 7, 1+i, tt.hour, tt.min, 0, 0, time.UTC)
		id, err := n.Create(ctx, domain.Notification{UserID: "alice", Type: domain.NotifyAchievement, Title: "x", CreatedAt: at})
		require.NoError(t, err)
		assert.Equal(t, tt.suppressed, id == 0, "%02d:%02d", tt.hour, tt.min)
	}
}

func TestNotification_QuietHoursInUserZone(t *testing.T) {
	f := newFixture(t, domain.DefaultNotificationPolicy())
	ctx := context.Background()
	_, err := f.svc.RegisterUser(ctx, "kiri", "Pacific/Auckland")
	require.NoError(t, err)

	// Service clock is 12:00 UTC = midnight in Auckland: the level-up is quiet.
	_, err = f.svc.CompleteExercise(ctx, domain.ExerciseCompletionEvent{UserID: "kiri", ExerciseID: "think-40"})
	require.NoError(t, err)

	pending, err := f.svc.Notifications().Pending(ctx, "kiri", 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestNotification_MarkShown(t *testing.T) {
	f := newFixture(t, openPolicy())
	ctx := context.Background()
	_, err := f.svc.RegisterUser(ctx, "alice", "UTC")
	require.NoError(t, err)
	_, err = f.svc.RegisterUser(ctx, "bob", "UTC")
	require.NoError(t, err)
	n := f.svc.Notifications()

	id, err := n.Create(ctx, domain.Notification{UserID: "alice", Type: domain.NotifyAchievement, Title: "x", CreatedAt: f.clock.Now()})
	require.NoError(t, err)

	assert.ErrorIs(t, n.MarkShown(ctx, "bob", id), domain.ErrNotificationNotFound)
	require.NoError(t, n.MarkShown(ctx, "alice", id))

	pending, err := n.Pending(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestNotification_DefaultPolicy(t *testing.T) {
	policy := domain.DefaultNotificationPolicy()
	assert.Equal(t, 3, policy.MaxPerDay)
	assert.Equal(t, "22:00", policy.QuietStart)
	assert.Equal(t, "08:00", policy.QuietEnd)
}
