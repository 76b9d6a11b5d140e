package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency.

var (
	// Progression errors
	ErrUnknownExercise     = errors.New("exercise not found in catalog")
	ErrInvalidActivityDate = errors.New("activity date outside accepted range")
	ErrInvalidExercise     = errors.New("invalid exercise definition")
	ErrUserMismatch        = errors.New("event belongs to a different user")

	// Mood errors
	ErrInvalidMood = errors.New("unknown mood")

	// User errors
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("user already exists")
	ErrInvalidTimeZone = errors.New("invalid time zone")

	// Store errors
	ErrStaleState = errors.New("progress state changed concurrently")

	// Notification errors
	ErrNotificationNotFound = errors.New("notification not found")
)
