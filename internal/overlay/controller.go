package overlay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yourname/daybar/internal"
	"github.com/yourname/daybar/internal/guard"
	"github.com/yourname/daybar/internal/progress"
	"github.com/yourname/daybar/internal/storage"
)

// ErrInvalidDuration rejects countdown starts with a non-positive duration.
var ErrInvalidDuration = errors.New("countdown duration must be a positive number of minutes")

// SyncNotifier relays a locally-made visibility change to the coordinator so
// it can fan the change out to other tabs.
type SyncNotifier interface {
	NotifyVisibility(ctx context.Context, hidden bool) error
}

// Options tune the controller's cadences. Zero values get defaults.
type Options struct {
	CoarseInterval  time.Duration // work bar re-render
	FineInterval    time.Duration // countdown re-render while active
	HealInterval    time.Duration // overlay existence check
	RemountDebounce time.Duration // delay before a missing-node remount
	MountRetryDelay time.Duration // retry delay while the surface is not ready
	MountMaxRetries int
	CompleteHold    time.Duration // how long the "complete" visual persists

	Now func() time.Time
}

func (o *Options) applyDefaults() {
	if o.CoarseInterval <= 0 {
		o.CoarseInterval = 30 * time.Second
	}
	if o.FineInterval <= 0 {
		o.FineInterval = time.Second
	}
	if o.HealInterval <= 0 {
		o.HealInterval = 5 * time.Second
	}
	if o.RemountDebounce <= 0 {
		o.RemountDebounce = 250 * time.Millisecond
	}
	if o.MountRetryDelay <= 0 {
		o.MountRetryDelay = 200 * time.Millisecond
	}
	if o.MountMaxRetries <= 0 {
		o.MountMaxRetries = 25
	}
	if o.CompleteHold <= 0 {
		o.CompleteHold = 3 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

type countdownState struct {
	durationMinutes int
	startMs         int64
	active          bool
}

// Controller maintains exactly one overlay instance in its surface,
// reflecting the persisted work hours, visibility and any running countdown.
type Controller struct {
	mu       sync.Mutex
	surface  Surface
	settings storage.SettingsRepository
	g        *guard.Guard
	notifier SyncNotifier
	logger   internal.Logger
	opts     Options

	root      *Node
	hidden    bool
	workHours internal.WorkHours

	countdown     countdownState
	completeUntil time.Time

	fineTicker    *time.Ticker
	fineC         chan struct{} // wakes the run loop to re-read the ticker set
	stopCh        chan struct{}
	running       bool
	mountAttempts int
	mountTimer    *time.Timer
	remountTimer  *time.Timer
}

// New builds a Controller. The guard is the only path to the settings store
// and the notifier; both may point at a runtime that dies mid-session.
func New(surface Surface, settings storage.SettingsRepository, g *guard.Guard, notifier SyncNotifier, logger internal.Logger, opts Options) *Controller {
	opts.applyDefaults()
	if logger == nil {
		logger = internal.NopLogger{}
	}
	if g == nil {
		g = guard.New(nil, logger)
	}
	return &Controller{
		surface:   surface,
		settings:  settings,
		g:         g,
		notifier:  notifier,
		logger:    logger,
		opts:      opts,
		workHours: internal.DefaultWorkHours(),
		fineC:     make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Load pulls persisted settings through the guard, falling back to defaults
// and "visible" when the runtime is unreachable.
func (c *Controller) Load(ctx context.Context) {
	wh, err := guard.Call(c.g, ctx, internal.DefaultWorkHours(), func(ctx context.Context) (internal.WorkHours, error) {
		return c.settings.WorkHours(ctx)
	})
	if err != nil {
		c.logger.Warnf("overlay: reading work hours: %v", err)
		wh = internal.DefaultWorkHours()
	}
	hidden, err := guard.Call(c.g, ctx, false, func(ctx context.Context) (bool, error) {
		return c.settings.Hidden(ctx)
	})
	if err != nil {
		c.logger.Warnf("overlay: reading visibility: %v", err)
		hidden = false
	}

	c.mu.Lock()
	c.workHours = wh
	c.hidden = hidden
	c.mu.Unlock()
}

// Start loads settings, mounts the overlay and launches the ticking loop.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()

	c.Load(ctx)
	c.EnsureMounted()
	c.Render()
	go c.run()
}

// Stop cancels every timer the controller owns.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stopCh)
	c.stopFineTickerLocked()
	if c.mountTimer != nil {
		c.mountTimer.Stop()
		c.mountTimer = nil
	}
	if c.remountTimer != nil {
		c.remountTimer.Stop()
		c.remountTimer = nil
	}
	c.mu.Unlock()
}

func (c *Controller) run() {
	coarse := time.NewTicker(c.opts.CoarseInterval)
	heal := time.NewTicker(c.opts.HealInterval)
	defer coarse.Stop()
	defer heal.Stop()

	for {
		c.mu.Lock()
		var fineCh <-chan time.Time
		if c.fineTicker != nil {
			fineCh = c.fineTicker.C
		}
		c.mu.Unlock()

		select {
		case <-c.stopCh:
			return
		case <-coarse.C:
			c.Render()
		case <-fineCh:
			c.Render()
		case <-c.fineC:
			// Ticker set changed; loop to pick up the new channel.
		case <-heal.C:
			c.healCheck()
		}
	}
}

// EnsureMounted creates the overlay tree if the surface no longer holds it.
// Idempotent: an existing root is left alone. If the surface is not ready
// yet, mounting is retried on a bounded schedule rather than spinning.
func (c *Controller) EnsureMounted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureMountedLocked()
}

func (c *Controller) ensureMountedLocked() {
	if !c.surface.Ready() {
		if c.mountAttempts >= c.opts.MountMaxRetries {
			c.logger.Warnf("overlay: surface never became ready after %d attempts, giving up", c.mountAttempts)
			return
		}
		c.mountAttempts++
		if c.mountTimer != nil {
			c.mountTimer.Stop()
		}
		c.mountTimer = time.AfterFunc(c.opts.MountRetryDelay, c.EnsureMounted)
		return
	}
	c.mountAttempts = 0

	if existing := c.surface.Root(NodeRoot); existing != nil {
		c.root = existing
		return
	}

	c.root = buildTree()
	c.root.Hidden = c.hidden
	c.surface.Attach(c.root)
	c.logger.Debugf("overlay: mounted")
	c.applyVisibilityLocked()
}

func buildTree() *Node {
	return &Node{
		ID:   NodeRoot,
		Kind: "overlay",
		Children: []*Node{
			{ID: NodeBar, Kind: "bar", Children: []*Node{
				{ID: NodeBarFill, Kind: "fill"},
				{ID: NodeBarLabel, Kind: "label"},
			}},
			{ID: NodeRangeLabel, Kind: "label"},
			{ID: NodeCountdownBar, Kind: "bar", Hidden: true, Children: []*Node{
				{ID: NodeCountdownFill, Kind: "fill"},
				{ID: NodeCountdownLabel, Kind: "label"},
			}},
			{ID: NodeSettingsButton, Kind: "button", Text: "Settings"},
			{ID: NodeSettingsPanel, Kind: "panel", Hidden: true},
			{ID: NodeCountdownButton, Kind: "button", Text: "Countdown"},
			{ID: NodeCountdownPanel, Kind: "panel", Hidden: true},
			{ID: NodeHideButton, Kind: "button", Text: "Hide"},
		},
	}
}

// Render recomputes progress and updates the mounted tree. A tree the host
// has torn out schedules a debounced remount and skips this cycle.
func (c *Controller) Render() {
	c.mu.Lock()
	defer c.mu.Unlock()

	mounted := c.surface.Root(NodeRoot)
	if mounted == nil || mounted != c.root {
		c.scheduleRemountLocked()
		return
	}

	now := c.opts.Now()
	c.renderWorkLocked(now)
	c.renderCountdownLocked(now)
}

func (c *Controller) scheduleRemountLocked() {
	if c.remountTimer != nil {
		return
	}
	c.remountTimer = time.AfterFunc(c.opts.RemountDebounce, func() {
		c.mu.Lock()
		c.remountTimer = nil
		c.ensureMountedLocked()
		c.mu.Unlock()
		c.Render()
	})
}

func (c *Controller) renderWorkLocked(now time.Time) {
	start, err := progress.ParseClock(c.workHours.StartTime)
	if err != nil {
		start = 0
	}
	end, err := progress.ParseClock(c.workHours.EndTime)
	if err != nil {
		end = 0
	}
	nowMin := now.Hour()*60 + now.Minute()
	wp := progress.Work(nowMin, start, end)

	if fill := c.root.Find(NodeBarFill); fill != nil {
		fill.Width = wp.Percent
	}
	if label := c.root.Find(NodeBarLabel); label != nil {
		label.Text = fmt.Sprintf("%.0f%% · %s left", wp.Percent, formatMinutes(wp.RemainingMinutes))
	}
	if rng := c.root.Find(NodeRangeLabel); rng != nil {
		rng.Text = c.workHours.StartTime + " – " + c.workHours.EndTime
	}
}

func (c *Controller) renderCountdownLocked(now time.Time) {
	bar := c.root.Find(NodeCountdownBar)
	fill := c.root.Find(NodeCountdownFill)
	label := c.root.Find(NodeCountdownLabel)
	if bar == nil || fill == nil || label == nil {
		return
	}

	if !c.countdown.active {
		if !c.completeUntil.IsZero() {
			if now.Before(c.completeUntil) {
				// Terminal "complete" visual holds until the window passes.
				bar.Hidden = false
				fill.Width = 100
				label.Text = "Done"
				return
			}
			c.completeUntil = time.Time{}
			c.stopFineTickerLocked()
		}
		bar.Hidden = true
		fill.Width = 0
		label.Text = ""
		return
	}

	cp := progress.Countdown(now.UnixMilli(), c.countdown.startMs, c.countdown.durationMinutes)
	bar.Hidden = false
	fill.Width = cp.Percent
	label.Text = formatRemaining(cp.RemainingMs)

	if cp.Complete {
		// Natural completion: hold the terminal visual, then revert to idle.
		// Does not restart the countdown. The fine ticker keeps running so
		// the revert happens on time; the idle branch cancels it.
		c.countdown.active = false
		c.completeUntil = now.Add(c.opts.CompleteHold)
		fill.Width = 100
		label.Text = "Done"
	}
}

// StartCountdown begins a countdown of the given duration. Non-positive
// durations are rejected; the running fine ticker, if any, is replaced.
func (c *Controller) StartCountdown(ctx context.Context, durationMinutes int) error {
	if durationMinutes <= 0 {
		return ErrInvalidDuration
	}

	c.mu.Lock()
	c.stopFineTickerLocked()
	c.countdown = countdownState{
		durationMinutes: durationMinutes,
		startMs:         c.opts.Now().UnixMilli(),
		active:          true,
	}
	c.completeUntil = time.Time{}
	if c.running {
		c.fineTicker = time.NewTicker(c.opts.FineInterval)
		c.wakeRunLoopLocked()
	}
	c.mu.Unlock()

	// Persist the duration for next time; best-effort.
	if err := guard.Do(c.g, ctx, func(ctx context.Context) error {
		return c.settings.SetCountdownDuration(ctx, durationMinutes)
	}); err != nil {
		c.logger.Debugf("overlay: persisting countdown duration: %v", err)
	}

	c.Render()
	return nil
}

// ResetCountdown restarts the current (or last) duration from now.
func (c *Controller) ResetCountdown(ctx context.Context) error {
	c.mu.Lock()
	duration := c.countdown.durationMinutes
	c.mu.Unlock()
	if duration <= 0 {
		return ErrInvalidDuration
	}
	return c.StartCountdown(ctx, duration)
}

// StopCountdown clears countdown state and zeroes the visual bar.
func (c *Controller) StopCountdown() {
	c.mu.Lock()
	c.countdown.active = false
	c.completeUntil = time.Time{}
	c.stopFineTickerLocked()
	if c.root != nil {
		if bar := c.root.Find(NodeCountdownBar); bar != nil {
			bar.Hidden = true
		}
		if fill := c.root.Find(NodeCountdownFill); fill != nil {
			fill.Width = 0
		}
		if label := c.root.Find(NodeCountdownLabel); label != nil {
			label.Text = ""
		}
	}
	c.mu.Unlock()
}

// CountdownActive reports whether a countdown is currently running.
func (c *Controller) CountdownActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.countdown.active
}

func (c *Controller) stopFineTickerLocked() {
	if c.fineTicker != nil {
		c.fineTicker.Stop()
		c.fineTicker = nil
		c.wakeRunLoopLocked()
	}
}

func (c *Controller) wakeRunLoopLocked() {
	select {
	case c.fineC <- struct{}{}:
	default:
	}
}

// SetHidden applies a visibility change. Unless fromSync is set (the change
// arrived from the coordinator's broadcast), the new state is persisted and
// the coordinator is notified so other tabs follow. No-op when already in
// the target state.
func (c *Controller) SetHidden(ctx context.Context, hidden, fromSync bool) error {
	c.mu.Lock()
	if c.hidden == hidden {
		c.mu.Unlock()
		return nil
	}
	c.hidden = hidden
	c.applyVisibilityLocked()
	c.mu.Unlock()

	if fromSync {
		return nil
	}

	if err := guard.Do(c.g, ctx, func(ctx context.Context) error {
		return c.settings.SetHidden(ctx, hidden)
	}); err != nil {
		return err
	}
	if c.notifier != nil {
		if err := guard.Do(c.g, ctx, func(ctx context.Context) error {
			return c.notifier.NotifyVisibility(ctx, hidden)
		}); err != nil {
			c.logger.Debugf("overlay: notifying coordinator: %v", err)
		}
	}
	return nil
}

// Hidden reports the current visibility state.
func (c *Controller) Hidden() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hidden
}

func (c *Controller) applyVisibilityLocked() {
	if c.root == nil {
		return
	}
	c.root.Hidden = c.hidden
	if btn := c.root.Find(NodeHideButton); btn != nil {
		if c.hidden {
			btn.Text = "Show"
		} else {
			btn.Text = "Hide"
		}
	}
}

// SaveWorkHours validates and persists a new window, then re-renders. The
// render strictly follows the completed save.
func (c *Controller) SaveWorkHours(ctx context.Context, wh internal.WorkHours) error {
	if _, err := progress.ParseClock(wh.StartTime); err != nil {
		return err
	}
	if _, err := progress.ParseClock(wh.EndTime); err != nil {
		return err
	}

	if err := guard.Do(c.g, ctx, func(ctx context.Context) error {
		return c.settings.SaveWorkHours(ctx, wh)
	}); err != nil {
		return err
	}

	c.mu.Lock()
	c.workHours = wh
	c.mu.Unlock()
	c.Render()
	return nil
}

// ToggleSettingsPanel flips the settings panel open state.
func (c *Controller) ToggleSettingsPanel() {
	c.togglePanel(NodeSettingsPanel)
}

// ToggleCountdownPanel flips the countdown panel open state.
func (c *Controller) ToggleCountdownPanel() {
	c.togglePanel(NodeCountdownPanel)
}

func (c *Controller) togglePanel(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.root == nil {
		return
	}
	if panel := c.root.Find(id); panel != nil {
		panel.Hidden = !panel.Hidden
	}
}

// healCheck is the periodic existence check behind the self-healing
// invariant: within a bounded delay the overlay either exists in the
// expected state or a recreation has been scheduled.
func (c *Controller) healCheck() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if mounted := c.surface.Root(NodeRoot); mounted == nil || mounted != c.root {
		c.logger.Debugf("overlay: missing from surface, scheduling recreation")
		c.scheduleRemountLocked()
	}
}

func formatMinutes(minutes int) string {
	h := minutes / 60
	m := minutes % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %02dm", h, m)
}

func formatRemaining(ms int64) string {
	total := ms / 1000
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
