package feature

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourname/daybar/internal"
	"github.com/yourname/daybar/internal/storage"
)

func setupAccounts(t *testing.T) *storage.FileStorage {
	t.Helper()
	dir := t.TempDir()
	s, err := storage.NewFileStorage(filepath.Join(dir, "settings.json"), filepath.Join(dir, "account.json"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSignedInUserGetsCountdown(t *testing.T) {
	accounts := setupAccounts(t)
	ctx := context.Background()
	require.NoError(t, accounts.SaveSession(ctx, &internal.AuthSession{UserID: "u1", Email: "u1@example.com"}, "tok"))

	// Even with an expired subscription on record.
	past := time.Now().Add(-time.Hour)
	require.NoError(t, accounts.SaveSubscription(ctx, &internal.Subscription{
		Status: internal.StatusExpired, TrialEnds: &past, Features: map[string]bool{},
	}))

	gate := New(accounts, nil)
	assert.True(t, gate.IsEnabled(ctx, internal.FeatureCountdown))
}

func TestLoginDoesNotUnlockOtherFeatures(t *testing.T) {
	accounts := setupAccounts(t)
	ctx := context.Background()
	require.NoError(t, accounts.SaveSession(ctx, &internal.AuthSession{UserID: "u1"}, "tok"))

	gate := New(accounts, nil)
	assert.False(t, gate.IsEnabled(ctx, "themes"))
}

func TestFreeUserDisabled(t *testing.T) {
	accounts := setupAccounts(t)
	gate := New(accounts, nil)
	assert.False(t, gate.IsEnabled(context.Background(), internal.FeatureCountdown))
}

func TestActiveTrialEnabled(t *testing.T) {
	accounts := setupAccounts(t)
	ctx := context.Background()
	ends := time.Now().Add(48 * time.Hour)
	require.NoError(t, accounts.SaveSubscription(ctx, &internal.Subscription{
		Status:    internal.StatusTrial,
		TrialEnds: &ends,
		Features:  map[string]bool{internal.FeatureCountdown: true},
	}))

	gate := New(accounts, nil)
	assert.True(t, gate.IsEnabled(ctx, internal.FeatureCountdown))
}

func TestTrialLazilyExpires(t *testing.T) {
	accounts := setupAccounts(t)
	ctx := context.Background()
	ends := time.Now().Add(time.Hour)
	require.NoError(t, accounts.SaveSubscription(ctx, &internal.Subscription{
		Status:    internal.StatusTrial,
		TrialEnds: &ends,
		Features:  map[string]bool{internal.FeatureCountdown: true},
	}))

	// Clock starts inside the trial window, then jumps past it.
	current := time.Now()
	gate := NewWithClock(accounts, nil, func() time.Time { return current })
	assert.True(t, gate.IsEnabled(ctx, internal.FeatureCountdown))

	current = ends.Add(time.Minute)
	assert.False(t, gate.IsEnabled(ctx, internal.FeatureCountdown))

	// The transition is persisted.
	sub, err := accounts.Subscription(ctx)
	require.NoError(t, err)
	assert.Equal(t, internal.StatusExpired, sub.Status)
	assert.False(t, sub.Features[internal.FeatureCountdown])

	// Re-checking an already-expired record does not rewrite it.
	firstWrite := sub.UpdatedAt
	assert.False(t, gate.IsEnabled(ctx, internal.FeatureCountdown))
	sub, err = accounts.Subscription(ctx)
	require.NoError(t, err)
	assert.Equal(t, firstWrite, sub.UpdatedAt)
}
