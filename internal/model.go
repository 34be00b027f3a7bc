package internal

import "time"

// Feature names known to the gate.
const (
	FeatureCountdown = "countdown"
)

// Subscription statuses.
const (
	StatusFree    = "free"
	StatusTrial   = "trial"
	StatusActive  = "active"
	StatusExpired = "expired"
)

// WorkHours is the configured workday window, wall-clock, same calendar day.
type WorkHours struct {
	StartTime string `json:"start_time"` // "HH:MM"
	EndTime   string `json:"end_time"`   // "HH:MM"
}

// DefaultWorkHours is the window applied on first load.
func DefaultWorkHours() WorkHours {
	return WorkHours{StartTime: "08:00", EndTime: "16:00"}
}

// Subscription is the one-per-installation record driving the feature gate.
type Subscription struct {
	Status     string          `json:"status"`
	TrialEnds  *time.Time      `json:"trial_ends,omitempty"`
	ExpiresAt  *time.Time      `json:"expires_at,omitempty"`
	LicenseKey string          `json:"license_key,omitempty"`
	Features   map[string]bool `json:"features"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// NewFreeSubscription returns the record written on first run.
func NewFreeSubscription() *Subscription {
	return &Subscription{
		Status:    StatusFree,
		Features:  map[string]bool{},
		UpdatedAt: time.Now(),
	}
}

// Trial records a time-boxed full-feature grant.
type Trial struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Active reports whether the trial window contains now.
func (t *Trial) Active(now time.Time) bool {
	return t != nil && !now.Before(t.StartTime) && now.Before(t.EndTime)
}

// License records an activated license key.
type License struct {
	Key         string     `json:"key"`
	ActivatedAt time.Time  `json:"activated_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// Valid reports whether the license grants access at now.
func (l *License) Valid(now time.Time) bool {
	if l == nil || l.Key == "" {
		return false
	}
	return l.ExpiresAt == nil || now.Before(*l.ExpiresAt)
}

// AuthSession is the cached read-only copy of the identity provider's session.
type AuthSession struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// UserStatus is the aggregate answer to a get-user-status request.
type UserStatus struct {
	IsPro          bool       `json:"is_pro"`
	IsTrialActive  bool       `json:"is_trial_active"`
	TrialStartTime *time.Time `json:"trial_start_time,omitempty"`
	TrialEndTime   *time.Time `json:"trial_end_time,omitempty"`
}

// TrialStatus is pushed to tabs when a trial starts or is queried.
type TrialStatus struct {
	IsActive       bool       `json:"is_active"`
	TrialStartTime *time.Time `json:"trial_start_time,omitempty"`
	TrialEndTime   *time.Time `json:"trial_end_time,omitempty"`
}

// Tab event types fanned out by the coordinator.
const (
	EventVisibility   = "visibility"
	EventTrialStatus  = "trial-status-updated"
	EventOpenSettings = "open-settings"
)

// TabEvent is a fire-and-forget push delivered to an attached tab.
type TabEvent struct {
	Type        string       `json:"type"`
	Hidden      *bool        `json:"hidden,omitempty"`
	TrialStatus *TrialStatus `json:"trial_status,omitempty"`
	SentAt      time.Time    `json:"sent_at"`
}

type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *AppError) Error() string { return e.Message }

func NewAppError(code int, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}
