package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/mindpath-app/mindpath/internal/domain"
)

// ─── Users ──────────────────────────────────────────────────────────────────

// CreateUser registers a user with a zeroed progress aggregate.
// Returns domain.ErrUserExists if the id is taken.
func (d *DB) CreateUser(ctx context.Context, u domain.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = d.now()
	}
	result, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (id, time_zone, total_xp, version, created_at, updated_at)
		 VALUES (?, ?, 0, 0, ?, ?)`,
		u.ID, u.TimeZone, u.CreatedAt.Unix(), u.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %q", domain.ErrUserExists, u.ID)
	}
	return nil
}

// UpdateUserTimeZone changes a user's time zone.
func (d *DB) UpdateUserTimeZone(ctx context.Context, id, tz string) error {
	result, err := d.db.ExecContext(ctx,
		`UPDATE users SET time_zone = ?, updated_at = ? WHERE id = ?`,
		tz, d.now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("update time zone: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %q", domain.ErrUserNotFound, id)
	}
	return nil
}

// GetUser retrieves a user by id.
func (d *DB) GetUser(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	var createdAt int64
	err := d.db.QueryRowContext(ctx,
		`SELECT id, time_zone, created_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.TimeZone, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, fmt.Errorf("%w: %q", domain.ErrUserNotFound, id)
	}
	if err != nil {
		return u, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = time.Unix(createdAt, 0)
	return u, nil
}

// ─── Progress Aggregate ─────────────────────────────────────────────────────

// LoadProgress reads a user's full progress aggregate.
func (d *DB) LoadProgress(ctx context.Context, userID string) (domain.UserProgressState, error) {
	state := domain.NewUserProgressState(userID)

	err := d.db.QueryRowContext(ctx,
		`SELECT total_xp, version FROM users WHERE id = ?`, userID,
	).Scan(&state.TotalXP, &state.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return state, fmt.Errorf("%w: %q", domain.ErrUserNotFound, userID)
	}
	if err != nil {
		return state, fmt.Errorf("load user: %w", err)
	}

	if state.ActivityDays, err = d.activityDays(ctx, userID); err != nil {
		return state, err
	}
	if state.CompletionsByCategory, err = d.completionCounts(ctx, userID); err != nil {
		return state, err
	}
	if state.UnlockedAchievementIDs, err = d.unlockedIDs(ctx, userID); err != nil {
		return state, err
	}
	return state, nil
}

// SaveProgress atomically persists the transition prior → next.
// The write only succeeds if the stored version still equals prior.Version;
// otherwise domain.ErrStaleState is returned and nothing is written.
// rec, if non-nil, is appended to the completion log in the same transaction.
// Returns the new version.
func (d *DB) SaveProgress(ctx context.Context, prior, next domain.UserProgressState, rec *domain.CompletionRecord) (int64, error) {
	if next.TotalXP < prior.TotalXP {
		return 0, fmt.Errorf("total_xp would decrease from %d to %d", prior.TotalXP, next.TotalXP)
	}
	now := d.now()

	err := d.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE users SET total_xp = ?, version = version + 1, updated_at = ?
			 WHERE id = ? AND version = ?`,
			next.TotalXP, now.Unix(), next.UserID, prior.Version,
		)
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			var exists int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE id = ?`, next.UserID).Scan(&exists); err != nil {
				return fmt.Errorf("check user: %w", err)
			}
			if exists == 0 {
				return fmt.Errorf("%w: %q", domain.ErrUserNotFound, next.UserID)
			}
			return fmt.Errorf("%w: user %q version %d", domain.ErrStaleState, next.UserID, prior.Version)
		}

		for _, day := range next.ActivityDays {
			if prior.HasActivity(day) {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO activity_days (user_id, day) VALUES (?, ?)`,
				next.UserID, day.String(),
			); err != nil {
				return fmt.Errorf("insert activity day: %w", err)
			}
		}

		for cat, count := range next.CompletionsByCategory {
			if prior.CompletionsByCategory[cat] == count {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO completion_counts (user_id, category, count) VALUES (?, ?, ?)
				 ON CONFLICT(user_id, category) DO UPDATE SET count = excluded.count`,
				next.UserID, string(cat), count,
			); err != nil {
				return fmt.Errorf("upsert completion count: %w", err)
			}
		}

		for _, id := range next.UnlockedAchievementIDs {
			if prior.HasUnlocked(id) {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO user_achievements (user_id, achievement_id, unlocked_at, notified)
				 VALUES (?, ?, ?, 0)`,
				next.UserID, id, now.Unix(),
			); err != nil {
				return fmt.Errorf("insert achievement: %w", err)
			}
		}

		if rec != nil {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO exercise_completions (id, user_id, exercise_id, category, xp_awarded, occurred_at, day)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				rec.ID, rec.UserID, rec.ExerciseID, string(rec.Category), rec.XPAwarded,
				rec.OccurredAt.Unix(), rec.Day.String(),
			); err != nil {
				return fmt.Errorf("insert completion: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return prior.Version + 1, nil
}

// ─── Achievements ───────────────────────────────────────────────────────────

// ListUnlockedAchievements returns a user's unlocked achievements, newest first.
func (d *DB) ListUnlockedAchievements(ctx context.Context, userID string) ([]domain.UnlockedAchievement, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT achievement_id, unlocked_at, notified FROM user_achievements
		 WHERE user_id = ? ORDER BY unlocked_at DESC, achievement_id ASC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var achievements []domain.UnlockedAchievement
	for rows.Next() {
		var a domain.UnlockedAchievement
		var unlockedAt int64
		if err := rows.Scan(&a.ID, &unlockedAt, &a.Notified); err != nil {
			return nil, err
		}
		a.UnlockedAt = time.Unix(unlockedAt, 0)
		achievements = append(achievements, a)
	}
	return achievements, rows.Err()
}

// MarkAchievementNotified flags an achievement's notification as sent.
func (d *DB) MarkAchievementNotified(ctx context.Context, userID, id string) error {
	_, err := d.db.ExecContext(ctx,
		`UPDATE user_achievements SET notified = 1 WHERE user_id = ? AND achievement_id = ?`,
		userID, id,
	)
	return err
}

// ─── Completion Log ─────────────────────────────────────────────────────────

// ListCompletions returns a user's most recent completions.
func (d *DB) ListCompletions(ctx context.Context, userID string, limit int) ([]domain.CompletionRecord, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, user_id, exercise_id, category, xp_awarded, occurred_at, day
		 FROM exercise_completions WHERE user_id = ?
		 ORDER BY occurred_at DESC LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CompletionRecord
	for rows.Next() {
		var r domain.CompletionRecord
		var occurredAt int64
		var day string
		if err := rows.Scan(&r.ID, &r.UserID, &r.ExerciseID, &r.Category, &r.XPAwarded, &occurredAt, &day); err != nil {
			return nil, err
		}
		r.OccurredAt = time.Unix(occurredAt, 0)
		if r.Day, err = civil.ParseDate(day); err != nil {
			return nil, fmt.Errorf("parse completion day %q: %w", day, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ─── Aggregate Readers ──────────────────────────────────────────────────────

func (d *DB) activityDays(ctx context.Context, userID string) ([]civil.Date, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT day FROM activity_days WHERE user_id = ? ORDER BY day ASC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("load activity days: %w", err)
	}
	defer rows.Close()

	var days []civil.Date
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		day, err := civil.ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("parse activity day %q: %w", s, err)
		}
		days = append(days, day)
	}
	return days, rows.Err()
}

func (d *DB) completionCounts(ctx context.Context, userID string) (map[domain.ExerciseCategory]int, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT category, count FROM completion_counts WHERE user_id = ?`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("load completion counts: %w", err)
	}
	defer rows.Close()

	counts := map[domain.ExerciseCategory]int{}
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, err
		}
		counts[domain.ExerciseCategory(cat)] = n
	}
	return counts, rows.Err()
}

func (d *DB) unlockedIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT achievement_id FROM user_achievements WHERE user_id = ? ORDER BY achievement_id ASC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("load achievements: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
