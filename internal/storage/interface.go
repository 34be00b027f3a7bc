package storage

import (
	"context"

	"github.com/yourname/daybar/internal"
)

// SettingsRepository is the durable store for per-installation display
// settings shared by every tab and the coordinator.
type SettingsRepository interface {
	WorkHours(ctx context.Context) (internal.WorkHours, error)
	SaveWorkHours(ctx context.Context, wh internal.WorkHours) error
	Hidden(ctx context.Context) (bool, error)
	SetHidden(ctx context.Context, hidden bool) error
	CountdownDuration(ctx context.Context) (int, error)
	SetCountdownDuration(ctx context.Context, minutes int) error
}

// AccountRepository is the durable store for subscription, trial, license and
// cached identity records. Missing records come back as nil (or a fresh free
// subscription), never as an error.
type AccountRepository interface {
	Subscription(ctx context.Context) (*internal.Subscription, error)
	SaveSubscription(ctx context.Context, sub *internal.Subscription) error
	Trial(ctx context.Context) (*internal.Trial, error)
	SaveTrial(ctx context.Context, trial *internal.Trial) error
	License(ctx context.Context) (*internal.License, error)
	SaveLicense(ctx context.Context, lic *internal.License) error
	Session(ctx context.Context) (*internal.AuthSession, string, error)
	SaveSession(ctx context.Context, session *internal.AuthSession, token string) error
	ClearSession(ctx context.Context) error
}

// SettingsReloader is implemented by backends that can re-read their durable
// state after an external writer touched it.
type SettingsReloader interface {
	ReloadSettings() error
}
