package engagement

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mindpath-app/mindpath/internal/domain"
	"github.com/mindpath-app/mindpath/internal/infra/metrics"
	"github.com/mindpath-app/mindpath/internal/infra/sqlite"
)

// NotificationService manages progression notifications.
//   - At most policy.MaxPerDay notifications per user-local day
//   - Nothing created during quiet hours (user's time zone)
//   - Only level-ups and achievement unlocks notify; a broken streak never does
type NotificationService struct {
	db     *sqlite.DB
	policy domain.NotificationPolicy
	log    *zap.Logger
}

// NewNotificationService creates a notification service with default policy.
func NewNotificationService(db *sqlite.DB, log *zap.Logger) *NotificationService {
	return NewNotificationServiceWithPolicy(db, domain.DefaultNotificationPolicy(), log)
}

// NewNotificationServiceWithPolicy creates a notification service with custom policy.
func NewNotificationServiceWithPolicy(db *sqlite.DB, policy domain.NotificationPolicy, log *zap.Logger) *NotificationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &NotificationService{db: db, policy: policy, log: log.Named("notify")}
}

// Create stores a notification if policy allows it.
// notif.CreatedAt must be set in the user's location; it drives both the
// daily cap and the quiet-hour check.
// Returns the notification ID (0 if suppressed by policy) and any error.
func (n *NotificationService) Create(ctx context.Context, notif domain.Notification) (int64, error) {
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = time.Now()
	}

	if n.isQuietHour(notif.CreatedAt) {
		metrics.NotificationsSent.WithLabelValues(string(notif.Type), "quiet_hours").Inc()
		return 0, nil
	}

	y, m, d := notif.CreatedAt.Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, notif.CreatedAt.Location())
	todayCount, err := n.db.NotificationCountSince(ctx, notif.UserID, startOfDay)
	if err != nil {
		return 0, fmt.Errorf("count today: %w", err)
	}
	if todayCount >= n.policy.MaxPerDay {
		metrics.NotificationsSent.WithLabelValues(string(notif.Type), "daily_cap").Inc()
		return 0, nil
	}

	notif.Shown = false
	id, err := n.db.InsertNotification(ctx, notif)
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}
	metrics.NotificationsSent.WithLabelValues(string(notif.Type), "created").Inc()
	n.log.Debug("notification created",
		zap.String("user_id", notif.UserID),
		zap.String("type", string(notif.Type)),
		zap.Int64("id", id))
	return id, nil
}

// NotifyOutcome emits the level-up and achievement notifications of a completion.
// Policy suppression is silent; storage errors are returned.
func (n *NotificationService) NotifyOutcome(ctx context.Context, out Outcome, at time.Time) error {
	userID := out.State.UserID
	if out.LeveledUp {
		if _, err := n.Create(ctx, domain.Notification{
			UserID:    userID,
			Type:      domain.NotifyLevelUp,
			Title:     fmt.Sprintf("Level %d reached", out.Level),
			Body:      fmt.Sprintf("You earned %d XP and reached level %d.", out.XPAwarded, out.Level),
			CreatedAt: at,
		}); err != nil {
			return err
		}
	}
	for _, a := range out.NewlyUnlocked {
		if _, err := n.Create(ctx, domain.Notification{
			UserID:    userID,
			Type:      domain.NotifyAchievement,
			Title:     "Achievement unlocked: " + a.Title,
			Body:      strings.TrimSpace(a.Icon + " " + a.Description),
			CreatedAt: at,
		}); err != nil {
			return err
		}
		if err := n.db.MarkAchievementNotified(ctx, userID, a.ID); err != nil {
			return fmt.Errorf("mark achievement notified: %w", err)
		}
	}
	return nil
}

// Pending returns a user's unshown notifications.
func (n *NotificationService) Pending(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	return n.db.ListPendingNotifications(ctx, userID, limit)
}

// MarkShown marks a notification as shown.
func (n *NotificationService) MarkShown(ctx context.Context, userID string, id int64) error {
	return n.db.MarkNotificationShown(ctx, userID, id)
}

// Policy returns the current notification policy.
func (n *NotificationService) Policy() domain.NotificationPolicy {
	return n.policy
}

// isQuietHour returns true if the given time falls within quiet hours.
// Policy: no notifications between QuietStart and QuietEnd.
func (n *NotificationService) isQuietHour(t time.Time) bool {
	startHour, startMin := parseHHMM(n.policy.QuietStart)
	endHour, endMin := parseHHMM(n.policy.QuietEnd)

	timeMinutes := t.Hour()*60 + t.Minute()
	startMinutes := startHour*60 + startMin
	endMinutes := endHour*60 + endMin

	if startMinutes == endMinutes {
		return false // No quiet window
	}
	if startMinutes > endMinutes {
		// Wraps midnight: e.g., 22:00 – 08:00
		return timeMinutes >= startMinutes || timeMinutes < endMinutes
	}
	return timeMinutes >= startMinutes && timeMinutes < endMinutes
}

// parseHHMM parses "HH:MM" into hour and minute.
func parseHHMM(s string) (int, int) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	return h, m
}
