package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourname/daybar/internal"
)

func setupFileStorage(t *testing.T) *FileStorage {
	t.Helper()
	dir := t.TempDir()
	s, err := NewFileStorage(filepath.Join(dir, "settings.json"), filepath.Join(dir, "account.json"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDefaultsOnFirstLoad(t *testing.T) {
	s := setupFileStorage(t)
	ctx := context.Background()

	wh, err := s.WorkHours(ctx)
	assert.NoError(t, err)
	assert.Equal(t, internal.DefaultWorkHours(), wh)

	hidden, err := s.Hidden(ctx)
	assert.NoError(t, err)
	assert.False(t, hidden)

	minutes, err := s.CountdownDuration(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 25, minutes)
}

func TestSettingsRoundTripAcrossReload(t *testing.T) {
	dir := t.TempDir()
	settingsFile := filepath.Join(dir, "settings.json")
	accountFile := filepath.Join(dir, "account.json")
	ctx := context.Background()

	s, err := NewFileStorage(settingsFile, accountFile, nil)
	require.NoError(t, err)

	require.NoError(t, s.SaveWorkHours(ctx, internal.WorkHours{StartTime: "09:30", EndTime: "18:00"}))
	require.NoError(t, s.SetHidden(ctx, true))
	require.NoError(t, s.SetCountdownDuration(ctx, 45))
	require.NoError(t, s.Close())

	s2, err := NewFileStorage(settingsFile, accountFile, nil)
	require.NoError(t, err)
	defer s2.Close()

	wh, err := s2.WorkHours(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "09:30", wh.StartTime)
	assert.Equal(t, "18:00", wh.EndTime)

	hidden, err := s2.Hidden(ctx)
	assert.NoError(t, err)
	assert.True(t, hidden)

	minutes, err := s2.CountdownDuration(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 45, minutes)
}

func TestAccountRecords(t *testing.T) {
	s := setupFileStorage(t)
	ctx := context.Background()

	// Missing records are nil or free, never errors.
	sub, err := s.Subscription(ctx)
	assert.NoError(t, err)
	assert.Equal(t, internal.StatusFree, sub.Status)

	trial, err := s.Trial(ctx)
	assert.NoError(t, err)
	assert.Nil(t, trial)

	now := time.Now()
	end := now.Add(7 * 24 * time.Hour)
	require.NoError(t, s.SaveTrial(ctx, &internal.Trial{
		ID: "t1", UserID: "u1", Email: "u1@example.com", StartTime: now, EndTime: end,
	}))

	trial, err = s.Trial(ctx)
	assert.NoError(t, err)
	require.NotNil(t, trial)
	assert.True(t, trial.Active(now.Add(time.Hour)))
	assert.False(t, trial.Active(end.Add(time.Minute)))
}

func TestSessionRecord(t *testing.T) {
	s := setupFileStorage(t)
	ctx := context.Background()

	session, token, err := s.Session(ctx)
	assert.NoError(t, err)
	assert.Nil(t, session)
	assert.Empty(t, token)

	require.NoError(t, s.SaveSession(ctx, &internal.AuthSession{
		UserID: "u1", Email: "u1@example.com", FirstName: "Demo",
	}, "tok-abc"))

	session, token, err = s.Session(ctx)
	assert.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "u1", session.UserID)
	assert.Equal(t, "tok-abc", token)

	require.NoError(t, s.ClearSession(ctx))
	session, token, err = s.Session(ctx)
	assert.NoError(t, err)
	assert.Nil(t, session)
	assert.Empty(t, token)
}

func TestReloadSettingsPicksUpExternalWrites(t *testing.T) {
	dir := t.TempDir()
	settingsFile := filepath.Join(dir, "settings.json")
	ctx := context.Background()

	writer, err := NewFileStorage(settingsFile, filepath.Join(dir, "a.json"), nil)
	require.NoError(t, err)
	require.NoError(t, writer.SetHidden(ctx, true))
	require.NoError(t, writer.Close())

	reader, err := NewFileStorage(settingsFile, filepath.Join(dir, "b.json"), nil)
	require.NoError(t, err)
	defer reader.Close()

	hidden, err := reader.Hidden(ctx)
	assert.NoError(t, err)
	assert.True(t, hidden)

	// External writer flips it back to visible.
	external, err := NewFileStorage(settingsFile, filepath.Join(dir, "c.json"), nil)
	require.NoError(t, err)
	require.NoError(t, external.SetHidden(ctx, false))
	require.NoError(t, external.Close())

	require.NoError(t, reader.ReloadSettings())
	hidden, err = reader.Hidden(ctx)
	assert.NoError(t, err)
	assert.False(t, hidden)
}
