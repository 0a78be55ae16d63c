package store

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("store disabled")

// Config configures the store.
//
// Driver values:
//   - "sqlite": SQLite database file (the default and only backend)
//
// If Driver is empty or "none", the store is disabled; the orchestrator
// refuses to run without one.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// CheckRecord is one monitoring run's outcome. Append-only.
type CheckRecord struct {
	ID            string
	CheckedAt     time.Time
	ContentHash   string
	HasChanged    bool
	ChangeDetails string

	// FreshnessMarker is the source-reported "last updated" stamp observed
	// during this check, kept so the next run can short-circuit on it.
	FreshnessMarker string
}

type NotificationStatus string

const (
	NotificationSent   NotificationStatus = "sent"
	NotificationFailed NotificationStatus = "failed"
)

// NotificationRecord is the aggregate outcome of one fan-out attempt.
// It exists only for checks where a dispatch was actually attempted.
type NotificationRecord struct {
	ID           string
	CheckID      string
	Recipients   []string
	SentAt       time.Time
	Status       NotificationStatus
	ErrorMessage string
}

// Subscriber is read-only from this core's perspective; signup, verification
// and unsubscription live outside it.
type Subscriber struct {
	ID         string
	Email      string
	IsActive   bool
	IsVerified bool
}

// Status is the operator-facing summary of the history.
type Status struct {
	LastCheck          time.Time
	TotalChecks        int
	TotalNotifications int
	ActiveSubscribers  int
}
