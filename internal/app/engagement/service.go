package engagement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mindpath-app/mindpath/internal/domain"
	"github.com/mindpath-app/mindpath/internal/infra/metrics"
	"github.com/mindpath-app/mindpath/internal/infra/sqlite"
)

// MaxApplyAttempts bounds reload-and-reapply cycles after a concurrent write.
const MaxApplyAttempts = 3

// DefaultMoodHistory is the page size used when no mood limit is given.
const DefaultMoodHistory = 30

// Service hosts the engine: it loads a user's state, applies one action,
// persists the result and emits notifications. Writes for the same user are
// serialized; different users proceed in parallel.
type Service struct {
	db        *sqlite.DB
	engine    *Engine
	notifier  *NotificationService
	log       *zap.Logger
	now       func() time.Time
	defaultTZ string
	locks     userLocks
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the service clock.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithDefaultTimeZone sets the zone assigned to users registered without one.
func WithDefaultTimeZone(tz string) ServiceOption {
	return func(s *Service) { s.defaultTZ = tz }
}

// NewService creates a progression service.
func NewService(db *sqlite.DB, engine *Engine, notifier *NotificationService, log *zap.Logger, opts ...ServiceOption) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		db:        db,
		engine:    engine,
		notifier:  notifier,
		log:       log.Named("engagement"),
		now:       time.Now,
		defaultTZ: "UTC",
		locks:     userLocks{m: map[string]*userLock{}},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the underlying pure engine.
func (s *Service) Engine() *Engine { return s.engine }

// Notifications returns the notification service.
func (s *Service) Notifications() *NotificationService { return s.notifier }

// ─── Users ──────────────────────────────────────────────────────────────────

// RegisterUser creates a user, or updates the time zone of an existing one.
// An empty time zone means the configured default.
func (s *Service) RegisterUser(ctx context.Context, userID, tz string) (domain.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.User{}, fmt.Errorf("%w: empty user id", domain.ErrUserNotFound)
	}
	if tz == "" {
		tz = s.defaultTZ
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return domain.User{}, fmt.Errorf("%w: %q", domain.ErrInvalidTimeZone, tz)
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	err := s.db.CreateUser(ctx, domain.User{ID: userID, TimeZone: tz, CreatedAt: s.now()})
	switch {
	case err == nil:
		s.log.Info("user registered", zap.String("user_id", userID), zap.String("time_zone", tz))
	case errors.Is(err, domain.ErrUserExists):
		if err := s.db.UpdateUserTimeZone(ctx, userID, tz); err != nil {
			return domain.User{}, err
		}
	default:
		return domain.User{}, err
	}
	return s.db.GetUser(ctx, userID)
}

// ─── Completions ────────────────────────────────────────────────────────────

// CompleteExercise applies one exercise completion for a user.
// A zero OccurredAt means now. The timestamp is converted to the user's time
// zone before its calendar day is taken.
func (s *Service) CompleteExercise(ctx context.Context, event domain.ExerciseCompletionEvent) (Outcome, error) {
	unlock := s.locks.lock(event.UserID)
	defer unlock()

	user, err := s.db.GetUser(ctx, event.UserID)
	if err != nil {
		return Outcome{}, err
	}
	loc := user.Location()
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}
	event.OccurredAt = event.OccurredAt.In(loc)

	for attempt := 1; attempt <= MaxApplyAttempts; attempt++ {
		prior, err := s.db.LoadProgress(ctx, event.UserID)
		if err != nil {
			return Outcome{}, err
		}

		now := s.now().In(loc)
		out, err := s.engine.Complete(prior, event, now)
		if err != nil {
			metrics.CompletionsRejected.WithLabelValues(rejectReason(err)).Inc()
			s.log.Debug("completion rejected",
				zap.String("user_id", event.UserID),
				zap.String("exercise_id", event.ExerciseID),
				zap.Error(err))
			return Outcome{}, err
		}

		rec := domain.CompletionRecord{
			ID:         uuid.NewString(),
			UserID:     event.UserID,
			ExerciseID: out.Exercise.ID,
			Category:   out.Exercise.Category,
			XPAwarded:  out.XPAwarded,
			OccurredAt: event.OccurredAt,
			Day:        out.Day,
		}
		version, err := s.db.SaveProgress(ctx, prior, out.State, &rec)
		if errors.Is(err, domain.ErrStaleState) {
			metrics.StaleRetries.Inc()
			s.log.Warn("stale progress, retrying",
				zap.String("user_id", event.UserID),
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return Outcome{}, fmt.Errorf("save progress: %w", err)
		}
		out.State.Version = version

		s.record(out)
		if err := s.notifier.NotifyOutcome(ctx, out, now); err != nil {
			s.log.Warn("notification failed", zap.String("user_id", event.UserID), zap.Error(err))
		}
		return out, nil
	}
	return Outcome{}, fmt.Errorf("complete %q for %q after %d attempts: %w",
		event.ExerciseID, event.UserID, MaxApplyAttempts, domain.ErrStaleState)
}

// record emits metrics and the audit log line for an applied completion.
func (s *Service) record(out Outcome) {
	cat := string(out.Exercise.Category)
	metrics.XPAwarded.WithLabelValues(cat).Add(float64(out.XPAwarded))
	metrics.ExercisesCompleted.WithLabelValues(cat).Inc()
	if out.LeveledUp {
		metrics.LevelUps.Inc()
	}
	ids := make([]string, 0, len(out.NewlyUnlocked))
	for _, a := range out.NewlyUnlocked {
		metrics.AchievementsUnlocked.WithLabelValues(a.ID).Inc()
		ids = append(ids, a.ID)
	}

	s.log.Info("exercise completed",
		zap.String("user_id", out.State.UserID),
		zap.String("exercise_id", out.Exercise.ID),
		zap.Stringer("day", out.Day),
		zap.Int64("xp_awarded", out.XPAwarded),
		zap.Int64("total_xp", out.State.TotalXP),
		zap.Int("level", out.Level),
		zap.Bool("leveled_up", out.LeveledUp),
		zap.Int("current_streak", out.Snapshot.CurrentStreak),
		zap.Strings("unlocked", ids))
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnknownExercise):
		return "unknown_exercise"
	case errors.Is(err, domain.ErrInvalidActivityDate):
		return "invalid_date"
	case errors.Is(err, domain.ErrInvalidExercise):
		return "invalid_exercise"
	case errors.Is(err, domain.ErrUserMismatch):
		return "user_mismatch"
	default:
		return "other"
	}
}

// ─── Moods ──────────────────────────────────────────────────────────────────

// MoodResult is a stored mood entry with its exercise hint.
type MoodResult struct {
	Entry          domain.MoodEntry        `json:"entry"`
	Recommendation domain.ExerciseCategory `json:"recommendation"`
}

// LogMood appends a mood entry. Moods never award XP or touch streaks.
func (s *Service) LogMood(ctx context.Context, userID string, mood domain.Mood, intensity int, note string, at time.Time) (MoodResult, error) {
	if !mood.Valid() {
		return MoodResult{}, fmt.Errorf("%w: %d", domain.ErrInvalidMood, int(mood))
	}
	user, err := s.db.GetUser(ctx, userID)
	if err != nil {
		return MoodResult{}, err
	}
	if at.IsZero() {
		at = s.now()
	}

	entry := domain.MoodEntry{
		ID:         uuid.NewString(),
		UserID:     userID,
		Mood:       mood,
		Intensity:  domain.ClampIntensity(intensity),
		Note:       strings.TrimSpace(note),
		OccurredAt: at.In(user.Location()),
	}
	if err := s.db.AppendMood(ctx, entry); err != nil {
		return MoodResult{}, err
	}
	metrics.MoodsLogged.WithLabelValues(mood.String()).Inc()
	s.log.Debug("mood logged",
		zap.String("user_id", userID),
		zap.Stringer("mood", mood),
		zap.Int("intensity", entry.Intensity))

	return MoodResult{Entry: entry, Recommendation: Recommend(mood, entry.Intensity)}, nil
}

// Moods returns a user's mood history, newest first.
func (s *Service) Moods(ctx context.Context, userID string, limit int) ([]domain.MoodEntry, error) {
	if _, err := s.db.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultMoodHistory
	}
	return s.db.ListMoods(ctx, userID, limit)
}

// MoodCount is one row of a mood summary.
type MoodCount struct {
	Mood  domain.Mood `json:"mood"`
	Count int         `json:"count"`
}

// MoodSummary counts a user's check-ins per mood over the last days days,
// in mood display order. Moods never logged in the window are omitted.
func (s *Service) MoodSummary(ctx context.Context, userID string, days int) ([]MoodCount, error) {
	if _, err := s.db.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	if days <= 0 {
		days = DefaultMoodHistory
	}
	counts, err := s.db.MoodCounts(ctx, userID, s.now().AddDate(0, 0, -days))
	if err != nil {
		return nil, fmt.Errorf("mood counts: %w", err)
	}
	out := make([]MoodCount, 0, len(counts))
	for _, m := range domain.AllMoods() {
		if n := counts[m]; n > 0 {
			out = append(out, MoodCount{Mood: m, Count: n})
		}
	}
	return out, nil
}

// ─── Read Views ─────────────────────────────────────────────────────────────

// Progress returns the user's snapshot as of the user's current local day.
func (s *Service) Progress(ctx context.Context, userID string) (domain.ProgressSnapshot, error) {
	state, user, err := s.load(ctx, userID)
	if err != nil {
		return domain.ProgressSnapshot{}, err
	}
	return Snapshot(state, DayOf(s.now().In(user.Location()))), nil
}

// Week returns the Monday..Sunday streak view of the user's current week.
func (s *Service) Week(ctx context.Context, userID string) ([7]DayMark, error) {
	state, user, err := s.load(ctx, userID)
	if err != nil {
		return [7]DayMark{}, err
	}
	return WeekView(state.ActivityDays, DayOf(s.now().In(user.Location()))), nil
}

// AchievementStatus pairs a definition with the user's unlock record.
type AchievementStatus struct {
	domain.AchievementDef
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// Achievements lists every definition with the user's unlock status,
// in definition order.
func (s *Service) Achievements(ctx context.Context, userID string) ([]AchievementStatus, error) {
	if _, err := s.db.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	unlocked, err := s.db.ListUnlockedAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	at := make(map[string]time.Time, len(unlocked))
	for _, u := range unlocked {
		at[u.ID] = u.UnlockedAt
	}

	out := make([]AchievementStatus, 0, len(s.engine.Achievements))
	for _, def := range s.engine.Achievements {
		st := AchievementStatus{AchievementDef: def}
		if t, ok := at[def.ID]; ok {
			st.Unlocked = true
			st.UnlockedAt = &t
		}
		out = append(out, st)
	}
	return out, nil
}

// Completions returns a user's most recent completion log entries.
func (s *Service) Completions(ctx context.Context, userID string, limit int) ([]domain.CompletionRecord, error) {
	if _, err := s.db.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.db.ListCompletions(ctx, userID, limit)
}

// Reevaluate re-runs achievement rules over a user's stored state, persisting
// any unlock the current rule set grants. Returns the newly unlocked definitions.
func (s *Service) Reevaluate(ctx context.Context, userID string) ([]domain.AchievementDef, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	for attempt := 1; attempt <= MaxApplyAttempts; attempt++ {
		prior, user, err := s.load(ctx, userID)
		if err != nil {
			return nil, err
		}
		next, unlocked := s.engine.Reevaluate(prior, DayOf(s.now().In(user.Location())))
		if len(unlocked) == 0 {
			return nil, nil
		}
		if _, err := s.db.SaveProgress(ctx, prior, next, nil); err != nil {
			if errors.Is(err, domain.ErrStaleState) {
				metrics.StaleRetries.Inc()
				continue
			}
			return nil, fmt.Errorf("save progress: %w", err)
		}
		for _, a := range unlocked {
			metrics.AchievementsUnlocked.WithLabelValues(a.ID).Inc()
		}
		return unlocked, nil
	}
	return nil, fmt.Errorf("reevaluate %q: %w", userID, domain.ErrStaleState)
}

func (s *Service) load(ctx context.Context, userID string) (domain.UserProgressState, domain.User, error) {
	user, err := s.db.GetUser(ctx, userID)
	if err != nil {
		return domain.UserProgressState{}, user, err
	}
	state, err := s.db.LoadProgress(ctx, userID)
	if err != nil {
		return state, user, err
	}
	return state, user, nil
}

// ─── Per-user Locks ─────────────────────────────────────────────────────────

// userLocks hands out one mutex per user id and forgets it once unused.
type userLocks struct {
	mu sync.Mutex
	m  map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// lock acquires the user's mutex and returns its release func.
func (l *userLocks) lock(userID string) func() {
	l.mu.Lock()
	ul, ok := l.m[userID]
	if !ok {
		ul = &userLock{}
		l.m[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.m, userID)
		}
		l.mu.Unlock()
	}
}
