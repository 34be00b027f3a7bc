package overlay

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourname/daybar/internal"
	"github.com/yourname/daybar/internal/guard"
	"github.com/yourname/daybar/internal/storage"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []bool
}

func (n *recordingNotifier) NotifyVisibility(ctx context.Context, hidden bool) error {
	n.mu.Lock()
	n.calls = append(n.calls, hidden)
	n.mu.Unlock()
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type fixture struct {
	surface  *MemorySurface
	store    *storage.FileStorage
	notifier *recordingNotifier
	ctrl     *Controller
	now      time.Time
	nowMu    sync.Mutex
}

func (f *fixture) advance(d time.Duration) {
	f.nowMu.Lock()
	f.now = f.now.Add(d)
	f.nowMu.Unlock()
}

func setup(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFileStorage(filepath.Join(dir, "settings.json"), filepath.Join(dir, "account.json"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{
		surface:  NewMemorySurface(),
		store:    store,
		notifier: &recordingNotifier{},
		now:      time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
	}
	f.ctrl = New(f.surface, store, guard.New(nil, nil), f.notifier, nil, Options{
		Now: func() time.Time {
			f.nowMu.Lock()
			defer f.nowMu.Unlock()
			return f.now
		},
	})
	f.ctrl.Load(context.Background())
	return f
}

func TestEnsureMountedIsIdempotent(t *testing.T) {
	f := setup(t)

	f.ctrl.EnsureMounted()
	first := f.surface.Root(NodeRoot)
	require.NotNil(t, first)

	f.ctrl.EnsureMounted()
	assert.Same(t, first, f.surface.Root(NodeRoot), "second mount must not replace the tree")
}

func TestMountDefersUntilSurfaceReady(t *testing.T) {
	f := setup(t)
	f.surface.SetReady(false)

	f.ctrl.opts.MountRetryDelay = 10 * time.Millisecond
	f.ctrl.EnsureMounted()
	assert.Nil(t, f.surface.Root(NodeRoot))

	f.surface.SetReady(true)
	assert.Eventually(t, func() bool {
		return f.surface.Root(NodeRoot) != nil
	}, time.Second, 5*time.Millisecond)
}

func TestMountRetriesAreBounded(t *testing.T) {
	f := setup(t)
	f.surface.SetReady(false)
	f.ctrl.opts.MountRetryDelay = time.Millisecond
	f.ctrl.opts.MountMaxRetries = 3

	f.ctrl.EnsureMounted()
	time.Sleep(50 * time.Millisecond)

	f.ctrl.mu.Lock()
	attempts := f.ctrl.mountAttempts
	f.ctrl.mu.Unlock()
	assert.LessOrEqual(t, attempts, 3)
}

func TestRenderUpdatesBar(t *testing.T) {
	f := setup(t)
	f.ctrl.EnsureMounted()
	f.ctrl.Render()

	root := f.surface.Root(NodeRoot)
	require.NotNil(t, root)
	// Default hours 08:00–16:00, now 12:00 → 50%.
	assert.Equal(t, 50.0, root.Find(NodeBarFill).Width)
	assert.Contains(t, root.Find(NodeBarLabel).Text, "50%")
	assert.Equal(t, "08:00 – 16:00", root.Find(NodeRangeLabel).Text)
}

func TestSelfHealAfterHostWipe(t *testing.T) {
	f := setup(t)
	f.ctrl.opts.RemountDebounce = 10 * time.Millisecond
	f.ctrl.EnsureMounted()
	require.NotNil(t, f.surface.Root(NodeRoot))

	f.surface.Wipe()
	f.ctrl.healCheck()

	assert.Eventually(t, func() bool {
		return f.surface.Root(NodeRoot) != nil
	}, time.Second, 5*time.Millisecond)
}

func TestRenderSchedulesRemountWhenMissing(t *testing.T) {
	f := setup(t)
	f.ctrl.opts.RemountDebounce = 10 * time.Millisecond
	f.ctrl.EnsureMounted()
	f.surface.Wipe()

	f.ctrl.Render()
	assert.Eventually(t, func() bool {
		return f.surface.Root(NodeRoot) != nil
	}, time.Second, 5*time.Millisecond)
}

func TestSetHiddenPersistsAndNotifies(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.ctrl.EnsureMounted()

	require.NoError(t, f.ctrl.SetHidden(ctx, true, false))
	assert.True(t, f.ctrl.Hidden())
	assert.Equal(t, 1, f.notifier.count())

	hidden, err := f.store.Hidden(ctx)
	require.NoError(t, err)
	assert.True(t, hidden)

	root := f.surface.Root(NodeRoot)
	assert.True(t, root.Hidden)
	assert.Equal(t, "Show", root.Find(NodeHideButton).Text)
}

func TestSetHiddenFromSyncSkipsPersistAndBroadcast(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.ctrl.EnsureMounted()

	require.NoError(t, f.ctrl.SetHidden(ctx, true, true))
	assert.True(t, f.ctrl.Hidden())
	assert.Equal(t, 0, f.notifier.count(), "sync-originated change must not re-broadcast")

	hidden, err := f.store.Hidden(ctx)
	require.NoError(t, err)
	assert.False(t, hidden, "sync-originated change must not re-persist")
}

func TestSetHiddenIsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.ctrl.EnsureMounted()

	require.NoError(t, f.ctrl.SetHidden(ctx, true, false))
	require.NoError(t, f.ctrl.SetHidden(ctx, true, false))
	assert.Equal(t, 1, f.notifier.count(), "no-op change must not notify again")
}

func TestHiddenStateSurvivesReload(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.ctrl.EnsureMounted()
	require.NoError(t, f.ctrl.SetHidden(ctx, true, false))

	// A fresh controller over the same store comes up hidden without any
	// broadcast on its own.
	next := New(f.surface, f.store, guard.New(nil, nil), f.notifier, nil, Options{})
	next.Load(ctx)
	assert.True(t, next.Hidden())
	assert.Equal(t, 1, f.notifier.count())
}

func TestCountdownRejectsInvalidDuration(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.ctrl.EnsureMounted()

	assert.ErrorIs(t, f.ctrl.StartCountdown(ctx, 0), ErrInvalidDuration)
	assert.ErrorIs(t, f.ctrl.StartCountdown(ctx, -5), ErrInvalidDuration)
	assert.False(t, f.ctrl.CountdownActive())
}

func TestCountdownLifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.ctrl.EnsureMounted()

	require.NoError(t, f.ctrl.StartCountdown(ctx, 1))
	assert.True(t, f.ctrl.CountdownActive())

	root := f.surface.Root(NodeRoot)
	assert.False(t, root.Find(NodeCountdownBar).Hidden)

	f.advance(30 * time.Second)
	f.ctrl.Render()
	assert.Equal(t, 50.0, root.Find(NodeCountdownFill).Width)
	assert.Equal(t, "00:30", root.Find(NodeCountdownLabel).Text)

	// Natural completion → terminal visual, not active.
	f.advance(30 * time.Second)
	f.ctrl.Render()
	assert.False(t, f.ctrl.CountdownActive())
	assert.Equal(t, 100.0, root.Find(NodeCountdownFill).Width)
	assert.Equal(t, "Done", root.Find(NodeCountdownLabel).Text)

	// Still "Done" inside the hold window; idle afterwards.
	f.advance(time.Second)
	f.ctrl.Render()
	assert.Equal(t, "Done", root.Find(NodeCountdownLabel).Text)

	f.advance(5 * time.Second)
	f.ctrl.Render()
	assert.True(t, root.Find(NodeCountdownBar).Hidden)
	assert.False(t, f.ctrl.CountdownActive(), "completion must not re-trigger a start")
}

func TestCountdownStopZeroesBar(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.ctrl.EnsureMounted()
	require.NoError(t, f.ctrl.StartCountdown(ctx, 10))

	f.ctrl.StopCountdown()
	assert.False(t, f.ctrl.CountdownActive())

	root := f.surface.Root(NodeRoot)
	assert.True(t, root.Find(NodeCountdownBar).Hidden)
	assert.Equal(t, 0.0, root.Find(NodeCountdownFill).Width)
}

func TestCountdownReset(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.ctrl.EnsureMounted()
	require.NoError(t, f.ctrl.StartCountdown(ctx, 2))

	f.advance(time.Minute)
	f.ctrl.Render()
	require.NoError(t, f.ctrl.ResetCountdown(ctx))

	root := f.surface.Root(NodeRoot)
	assert.Equal(t, 0.0, root.Find(NodeCountdownFill).Width)
	assert.Equal(t, "02:00", root.Find(NodeCountdownLabel).Text)
}

func TestCountdownDurationPersisted(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.ctrl.EnsureMounted()
	require.NoError(t, f.ctrl.StartCountdown(ctx, 45))

	minutes, err := f.store.CountdownDuration(ctx)
	require.NoError(t, err)
	assert.Equal(t, 45, minutes)
}

func TestSaveWorkHoursRejectsMalformed(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	assert.Error(t, f.ctrl.SaveWorkHours(ctx, internal.WorkHours{StartTime: "9am", EndTime: "17:00"}))
	assert.Error(t, f.ctrl.SaveWorkHours(ctx, internal.WorkHours{StartTime: "09:00", EndTime: "25:00"}))
}

func TestSaveWorkHoursRendersAfterSave(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.ctrl.EnsureMounted()

	require.NoError(t, f.ctrl.SaveWorkHours(ctx, internal.WorkHours{StartTime: "10:00", EndTime: "14:00"}))

	wh, err := f.store.WorkHours(ctx)
	require.NoError(t, err)
	assert.Equal(t, "10:00", wh.StartTime)

	// now=12:00 within 10:00–14:00 → 50%.
	root := f.surface.Root(NodeRoot)
	assert.Equal(t, 50.0, root.Find(NodeBarFill).Width)
	assert.Equal(t, "10:00 – 14:00", root.Find(NodeRangeLabel).Text)
}

func TestPanelsToggle(t *testing.T) {
	f := setup(t)
	f.ctrl.EnsureMounted()
	root := f.surface.Root(NodeRoot)

	assert.True(t, root.Find(NodeSettingsPanel).Hidden)
	f.ctrl.ToggleSettingsPanel()
	assert.False(t, root.Find(NodeSettingsPanel).Hidden)
	f.ctrl.ToggleSettingsPanel()
	assert.True(t, root.Find(NodeSettingsPanel).Hidden)

	f.ctrl.ToggleCountdownPanel()
	assert.False(t, root.Find(NodeCountdownPanel).Hidden)
}

func TestRenderViewShowsProgress(t *testing.T) {
	f := setup(t)
	f.ctrl.EnsureMounted()
	f.ctrl.Render()

	view := f.ctrl.RenderView()
	assert.Contains(t, view, "08:00 – 16:00")
	assert.Contains(t, view, "50%")
}

func TestGuardedLoadFallsBackWhenRuntimeDead(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewFileStorage(filepath.Join(dir, "s.json"), filepath.Join(dir, "a.json"), nil)
	require.NoError(t, err)
	defer store.Close()

	dead := guard.New(func() bool { return false }, nil)
	ctrl := New(NewMemorySurface(), store, dead, nil, nil, Options{})
	ctrl.Load(context.Background())

	assert.Equal(t, internal.DefaultWorkHours(), ctrl.workHours)
	assert.False(t, ctrl.Hidden())
}
