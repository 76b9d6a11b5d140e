package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"

	"github.com/mindpath-app/mindpath/internal/app/engagement"
	"github.com/mindpath-app/mindpath/internal/domain"
)

// ─── Request / Response Types ───────────────────────────────────────────────

type registerRequest struct {
	TimeZone string `json:"time_zone"`
}

type completionRequest struct {
	ExerciseID string     `json:"exercise_id"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}

type completionResponse struct {
	ExerciseID    string                  `json:"exercise_id"`
	Category      domain.ExerciseCategory `json:"category"`
	Day           civil.Date              `json:"day"`
	XPAwarded     int64                   `json:"xp_awarded"`
	TotalXP       int64                   `json:"total_xp"`
	Level         int                     `json:"level"`
	LeveledUp     bool                    `json:"leveled_up"`
	XPToNextLevel int64                   `json:"xp_to_next_level"`
	CurrentStreak int                     `json:"current_streak"`
	LongestStreak int                     `json:"longest_streak"`
	NewlyUnlocked []domain.AchievementDef `json:"newly_unlocked"`
}

type moodRequest struct {
	Mood       string     `json:"mood"`
	Intensity  int        `json:"intensity"`
	Note       string     `json:"note"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}

type weekResponse struct {
	CurrentStreak int                   `json:"current_streak"`
	Days          [7]engagement.DayMark `json:"days"`
}

type recommendationResponse struct {
	Mood      string                      `json:"mood"`
	Intensity int                         `json:"intensity"`
	Category  domain.ExerciseCategory     `json:"category"`
	Exercises []domain.ExerciseDefinition `json:"exercises"`
}

// ─── Catalog Endpoints ──────────────────────────────────────────────────────

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	if cat := r.URL.Query().Get("category"); cat != "" {
		c := domain.ExerciseCategory(cat)
		if !c.Valid() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown category %q", cat))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"exercises": nonNil(s.catalog.ByCategory(c))})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"exercises": s.catalog.List()})
}

func (s *Server) handleListAchievements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"achievements": s.svc.Engine().Achievements})
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	intensity := 5
	if v := q.Get("intensity"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "intensity must be an integer")
			return
		}
		intensity = n
	}
	mood := q.Get("mood")
	cat := engagement.RecommendKey(mood, intensity)
	writeJSON(w, http.StatusOK, recommendationResponse{
		Mood:      mood,
		Intensity: domain.ClampIntensity(intensity),
		Category:  cat,
		Exercises: nonNil(s.catalog.ByCategory(cat)),
	})
}

// ─── User Endpoints ─────────────────────────────────────────────────────────

func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
	}
	user, err := s.svc.RegisterUser(r.Context(), chi.URLParam(r, "userID"), req.TimeZone)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req completionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.ExerciseID == "" {
		writeError(w, http.StatusBadRequest, "exercise_id is required")
		return
	}

	event := domain.ExerciseCompletionEvent{
		UserID:     chi.URLParam(r, "userID"),
		ExerciseID: req.ExerciseID,
	}
	if req.OccurredAt != nil {
		event.OccurredAt = *req.OccurredAt
	}

	out, err := s.svc.CompleteExercise(r.Context(), event)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, completionResponse{
		ExerciseID:    out.Exercise.ID,
		Category:      out.Exercise.Category,
		Day:           out.Day,
		XPAwarded:     out.XPAwarded,
		TotalXP:       out.State.TotalXP,
		Level:         out.Level,
		LeveledUp:     out.LeveledUp,
		XPToNextLevel: out.Snapshot.XPToNextLevel,
		CurrentStreak: out.Snapshot.CurrentStreak,
		LongestStreak: out.Snapshot.LongestStreak,
		NewlyUnlocked: nonNil(out.NewlyUnlocked),
	})
}

func (s *Server) handleListCompletions(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r, 50)
	if !ok {
		return
	}
	recs, err := s.svc.Completions(r.Context(), chi.URLParam(r, "userID"), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"completions": nonNil(recs)})
}

func (s *Server) handleLogMood(w http.ResponseWriter, r *http.Request) {
	var req moodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	mood, err := domain.ParseMood(req.Mood)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if req.Intensity == 0 {
		req.Intensity = 5
	}
	var at time.Time
	if req.OccurredAt != nil {
		at = *req.OccurredAt
	}

	res, err := s.svc.LogMood(r.Context(), chi.URLParam(r, "userID"), mood, req.Intensity, req.Note, at)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListMoods(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r, engagement.DefaultMoodHistory)
	if !ok {
		return
	}
	moods, err := s.svc.Moods(r.Context(), chi.URLParam(r, "userID"), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"moods": nonNil(moods)})
}

func (s *Server) handleMoodSummary(w http.ResponseWriter, r *http.Request) {
	days := engagement.DefaultMoodHistory
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 365 {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 365")
			return
		}
		days = n
	}
	counts, err := s.svc.MoodSummary(r.Context(), chi.URLParam(r, "userID"), days)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": days, "moods": nonNil(counts)})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Progress(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	week, err := s.svc.Week(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	snap, err := s.svc.Progress(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, weekResponse{CurrentStreak: snap.CurrentStreak, Days: week})
}

func (s *Server) handleUserAchievements(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Achievements(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if r.URL.Query().Get("unlocked") == "true" {
		filtered := make([]engagement.AchievementStatus, 0, len(list))
		for _, a := range list {
			if a.Unlocked {
				filtered = append(filtered, a)
			}
		}
		list = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{"achievements": list})
}

func (s *Server) handleReevaluate(w http.ResponseWriter, r *http.Request) {
	unlocked, err := s.svc.Reevaluate(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"newly_unlocked": nonNil(unlocked)})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r, 20)
	if !ok {
		return
	}
	pending, err := s.svc.Notifications().Pending(r.Context(), chi.URLParam(r, "userID"), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": nonNil(pending)})
}

func (s *Server) handleNotificationShown(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	if err := s.svc.Notifications().MarkShown(r.Context(), chi.URLParam(r, "userID"), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// limitParam parses ?limit= with a default, writing a 400 on bad input.
func limitParam(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > 500 {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
		return 0, false
	}
	return n, true
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
