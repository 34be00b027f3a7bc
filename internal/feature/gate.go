// Package feature resolves whether a named feature is enabled for the
// current subscription, trial and login state.
package feature

import (
	"context"
	"time"

	"github.com/yourname/daybar/internal"
	"github.com/yourname/daybar/internal/storage"
)

// Gate owns the trial-expiry transition. Its only side effect is persisting
// that transition, once.
type Gate struct {
	accounts storage.AccountRepository
	logger   internal.Logger
	now      func() time.Time
}

func New(accounts storage.AccountRepository, logger internal.Logger) *Gate {
	return NewWithClock(accounts, logger, time.Now)
}

// NewWithClock is New with an injectable clock.
func NewWithClock(accounts storage.AccountRepository, logger internal.Logger, now func() time.Time) *Gate {
	if logger == nil {
		logger = internal.NopLogger{}
	}
	return &Gate{accounts: accounts, logger: logger, now: now}
}

// IsEnabled reports whether the named feature is currently available.
// A signed-in user gets the countdown regardless of the stored subscription;
// everything else comes from the subscription record, with the trial lazily
// expired on read. Any storage uncertainty resolves to disabled.
func (g *Gate) IsEnabled(ctx context.Context, feature string) bool {
	if feature == internal.FeatureCountdown {
		session, _, err := g.accounts.Session(ctx)
		if err == nil && session != nil {
			return true
		}
	}

	sub, err := g.accounts.Subscription(ctx)
	if err != nil {
		g.logger.Debugf("feature: subscription unavailable, disabling %q: %v", feature, err)
		return false
	}
	sub = g.expireIfDue(ctx, sub)
	return sub.Features[feature]
}

// expireIfDue transitions trial → expired once the trial window has passed.
// Re-checking an already-expired record never rewrites identical state.
func (g *Gate) expireIfDue(ctx context.Context, sub *internal.Subscription) *internal.Subscription {
	if sub.Status != internal.StatusTrial || sub.TrialEnds == nil {
		return sub
	}
	if g.now().Before(*sub.TrialEnds) {
		return sub
	}

	sub.Status = internal.StatusExpired
	sub.Features = map[string]bool{}
	sub.UpdatedAt = g.now()
	if err := g.accounts.SaveSubscription(ctx, sub); err != nil {
		g.logger.Warnf("feature: failed to persist trial expiry: %v", err)
	}
	return sub
}
