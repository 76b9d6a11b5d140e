// Package metrics provides Prometheus metrics for mindpath.
// Counters and gauges for progression, moods, HTTP traffic and health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Progression ────────────────────────────────────────────────────────────

// XPAwarded tracks total XP awarded, by exercise category.
var XPAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "mindpath",
	Name:      "xp_awarded_total",
	Help:      "Total XP awarded for exercise completions.",
}, []string{"category"})

// ExercisesCompleted tracks applied completions by category.
var ExercisesCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "mindpath",
	Name:      "exercises_completed_total",
	Help:      "Total exercise completions applied.",
}, []string{"category"})

// CompletionsRejected tracks completions the engine refused, by reason.
var CompletionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "mindpath",
	Name:      "completions_rejected_total",
	Help:      "Total completions rejected by the progression engine.",
}, []string{"reason"})

// LevelUps tracks level transitions.
var LevelUps = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "mindpath",
	Name:      "level_ups_total",
	Help:      "Total level-up transitions.",
})

// AchievementsUnlocked tracks unlocks by achievement id.
var AchievementsUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "mindpath",
	Name:      "achievements_unlocked_total",
	Help:      "Total achievements unlocked.",
}, []string{"achievement"})

// StaleRetries tracks optimistic-lock retries on the progress aggregate.
var StaleRetries = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "mindpath",
	Name:      "progress_stale_retries_total",
	Help:      "Progress writes retried after a concurrent update.",
})

// ─── Moods ──────────────────────────────────────────────────────────────────

// MoodsLogged tracks mood entries by mood key.
var MoodsLogged = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "mindpath",
	Name:      "moods_logged_total",
	Help:      "Total mood entries recorded.",
}, []string{"mood"})

// ─── Notifications ──────────────────────────────────────────────────────────

// NotificationsSent tracks notifications created, by type and outcome.
var NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "mindpath",
	Name:      "notifications_total",
	Help:      "Notifications created or suppressed by policy.",
}, []string{"type", "outcome"})

// ─── HTTP ───────────────────────────────────────────────────────────────────

// HTTPRequestDuration tracks API latency by route pattern and status.
var HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "mindpath",
	Name:      "http_request_duration_seconds",
	Help:      "HTTP request duration in seconds.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
}, []string{"method", "route", "status"})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "mindpath",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})
