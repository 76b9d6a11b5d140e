package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/mindpath-app/mindpath/internal/domain"
)

// ─── Mood Log ───────────────────────────────────────────────────────────────

// AppendMood records a mood entry. The log is append-only.
func (d *DB) AppendMood(ctx context.Context, e domain.MoodEntry) error {
	key, err := e.Mood.MarshalText()
	if err != nil {
		return err
	}
	_, err = d.db.ExecContext(ctx,
		`INSERT INTO mood_entries (id, user_id, mood, intensity, note, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, string(key), e.Intensity, e.Note, e.OccurredAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert mood: %w", err)
	}
	return nil
}

// ListMoods returns a user's most recent mood entries, newest first.
func (d *DB) ListMoods(ctx context.Context, userID string, limit int) ([]domain.MoodEntry, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, user_id, mood, intensity, note, occurred_at
		 FROM mood_entries WHERE user_id = ?
		 ORDER BY occurred_at DESC, rowid DESC LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.MoodEntry
	for rows.Next() {
		var e domain.MoodEntry
		var mood string
		var occurredAt int64
		if err := rows.Scan(&e.ID, &e.UserID, &mood, &e.Intensity, &e.Note, &occurredAt); err != nil {
			return nil, err
		}
		if e.Mood, err = domain.ParseMood(mood); err != nil {
			return nil, err
		}
		e.OccurredAt = time.Unix(occurredAt, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MoodCounts returns how often each mood was logged since the given time.
func (d *DB) MoodCounts(ctx context.Context, userID string, since time.Time) (map[domain.Mood]int, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT mood, COUNT(*) FROM mood_entries
		 WHERE user_id = ? AND occurred_at >= ? GROUP BY mood`, userID, since.Unix(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[domain.Mood]int{}
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		m, err := domain.ParseMood(key)
		if err != nil {
			return nil, err
		}
		counts[m] = n
	}
	return counts, rows.Err()
}
