// Package coordinator is the background-process source of broadcast truth
// for overlay visibility and trial status across every attached tab.
package coordinator

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/yourname/daybar/internal"
	"github.com/yourname/daybar/internal/guard"
	"github.com/yourname/daybar/internal/storage"
)

// ErrTrialUsed rejects a second trial for the same installation.
var ErrTrialUsed = errors.New("trial already used")

const tabEventBuffer = 16

type tabSession struct {
	id       string
	events   chan internal.TabEvent
	lastSeen time.Time
}

// Options tune the coordinator. Zero values get defaults.
type Options struct {
	SettleDelay   time.Duration // wait after tab navigation before pushing
	TrialDuration time.Duration
	Now           func() time.Time
}

func (o *Options) applyDefaults() {
	if o.SettleDelay <= 0 {
		o.SettleDelay = 1500 * time.Millisecond
	}
	if o.TrialDuration <= 0 {
		o.TrialDuration = 7 * 24 * time.Hour
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Coordinator keeps an in-memory mirror of the persisted visibility state and
// fans changes out to registered tabs. One instance per background process.
type Coordinator struct {
	mu     sync.Mutex
	hidden bool
	tabs   map[string]*tabSession

	settings storage.SettingsRepository
	accounts storage.AccountRepository
	g        *guard.Guard
	logger   internal.Logger
	opts     Options

	watcher *fsnotify.Watcher
	closed  chan struct{}
}

func New(settings storage.SettingsRepository, accounts storage.AccountRepository, g *guard.Guard, logger internal.Logger, opts Options) *Coordinator {
	opts.applyDefaults()
	if logger == nil {
		logger = internal.NopLogger{}
	}
	if g == nil {
		g = guard.New(nil, logger)
	}
	c := &Coordinator{
		tabs:     make(map[string]*tabSession),
		settings: settings,
		accounts: accounts,
		g:        g,
		logger:   logger,
		opts:     opts,
		closed:   make(chan struct{}),
	}
	c.loadMirror(context.Background())
	return c
}

// loadMirror seeds the in-memory visibility mirror from the store; an
// unreachable store means "visible".
func (c *Coordinator) loadMirror(ctx context.Context) {
	hidden, err := guard.Call(c.g, ctx, false, func(ctx context.Context) (bool, error) {
		return c.settings.Hidden(ctx)
	})
	if err != nil {
		c.logger.Warnf("coordinator: loading visibility: %v", err)
		hidden = false
	}
	c.mu.Lock()
	c.hidden = hidden
	c.mu.Unlock()
}

// Close stops the settings watcher and drops all tab sessions.
func (c *Coordinator) Close() {
	c.mu.Lock()
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
	if c.watcher != nil {
		c.watcher.Close()
		c.watcher = nil
	}
	// Tab channels are never closed: a concurrent push holding a session
	// reference must not hit a closed channel. Dropping the map entries is
	// enough for readers, which re-resolve the session on every poll.
	c.tabs = make(map[string]*tabSession)
	c.mu.Unlock()
}

// --- tab registry ---

// RegisterTab adds a tab session and returns its id and push channel.
// An empty id gets a generated one; re-registering an id replaces the
// previous session.
func (c *Coordinator) RegisterTab(id string) (string, <-chan internal.TabEvent) {
	if id == "" {
		id = uuid.NewString()
	}
	tab := &tabSession{
		id:       id,
		events:   make(chan internal.TabEvent, tabEventBuffer),
		lastSeen: c.opts.Now(),
	}
	c.mu.Lock()
	c.tabs[id] = tab
	c.mu.Unlock()
	c.logger.Debugf("coordinator: tab %s registered", id)
	return id, tab.events
}

func (c *Coordinator) UnregisterTab(id string) {
	c.mu.Lock()
	delete(c.tabs, id)
	c.mu.Unlock()
}

// TabAlive is the liveness probe behind the "is a tab's overlay already
// alive" ping.
func (c *Coordinator) TabAlive(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.tabs[id]
	return ok
}

// TabEvents exposes a tab's push channel for the long-poll surface.
func (c *Coordinator) TabEvents(id string) (<-chan internal.TabEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tab, ok := c.tabs[id]
	if !ok {
		return nil, false
	}
	tab.lastSeen = c.opts.Now()
	return tab.events, true
}

// TabCount reports how many tabs are attached.
func (c *Coordinator) TabCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tabs)
}

// push delivers an event to one tab without ever blocking the fan-out; a
// full queue drops the event, the persisted store remains the consistency
// point.
func (c *Coordinator) push(tab *tabSession, ev internal.TabEvent) {
	select {
	case tab.events <- ev:
	default:
		c.logger.Debugf("coordinator: tab %s queue full, dropping %s", tab.id, ev.Type)
	}
}

// --- visibility ---

// Hidden reports the mirrored visibility state.
func (c *Coordinator) Hidden() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hidden
}

// SetVisibility updates the mirror and the store. It does not broadcast;
// the per-tab-load hook and external set calls drive that explicitly.
func (c *Coordinator) SetVisibility(ctx context.Context, hidden bool) error {
	c.mu.Lock()
	c.hidden = hidden
	c.mu.Unlock()
	return guard.Do(c.g, ctx, func(ctx context.Context) error {
		return c.settings.SetHidden(ctx, hidden)
	})
}

// SetVisibilityMirrorOnly updates the mirror without touching the store.
// Used for sync-originated changes where the store already holds the value.
func (c *Coordinator) SetVisibilityMirrorOnly(hidden bool) error {
	c.mu.Lock()
	c.hidden = hidden
	c.mu.Unlock()
	return nil
}

// PushOpenSettings asks the named tab to open its settings panel; with no
// tab named, every tab is asked.
func (c *Coordinator) PushOpenSettings(tabID string) {
	c.mu.Lock()
	targets := make([]*tabSession, 0, len(c.tabs))
	for id, tab := range c.tabs {
		if tabID == "" || id == tabID {
			targets = append(targets, tab)
		}
	}
	c.mu.Unlock()

	ev := internal.TabEvent{Type: internal.EventOpenSettings, SentAt: c.opts.Now()}
	for _, tab := range targets {
		c.push(tab, ev)
	}
}

// BroadcastVisibility pushes the current state to every tab except the one
// the change came from. Per-tab failures never abort the fan-out.
func (c *Coordinator) BroadcastVisibility(excludeTabID string) {
	c.mu.Lock()
	hidden := c.hidden
	targets := make([]*tabSession, 0, len(c.tabs))
	for id, tab := range c.tabs {
		if id != excludeTabID {
			targets = append(targets, tab)
		}
	}
	c.mu.Unlock()

	ev := internal.TabEvent{Type: internal.EventVisibility, Hidden: &hidden, SentAt: c.opts.Now()}
	for _, tab := range targets {
		c.push(tab, ev)
	}
}

// TabNavigated is the per-tab-load hook: once the page settles, push the
// current visibility to that tab. Unknown tabs are expected (restricted
// pages, tabs that never attached) and only logged.
func (c *Coordinator) TabNavigated(id string) {
	go func() {
		timer := time.NewTimer(c.opts.SettleDelay)
		defer timer.Stop()
		select {
		case <-c.closed:
			return
		case <-timer.C:
		}

		c.mu.Lock()
		tab, ok := c.tabs[id]
		hidden := c.hidden
		c.mu.Unlock()
		if !ok {
			c.logger.Debugf("coordinator: tab %s has no live overlay, skipping push", id)
			return
		}
		c.push(tab, internal.TabEvent{Type: internal.EventVisibility, Hidden: &hidden, SentAt: c.opts.Now()})
	}()
}

// --- trial / account ---

// StartTrial grants the time-boxed trial once per installation, persists it
// and broadcasts the new status to every tab.
func (c *Coordinator) StartTrial(ctx context.Context, userID, email string) (*internal.Trial, error) {
	existing, err := c.accounts.Trial(ctx)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrTrialUsed
	}

	now := c.opts.Now()
	trial := &internal.Trial{
		ID:        uuid.NewString(),
		UserID:    userID,
		Email:     email,
		StartTime: now,
		EndTime:   now.Add(c.opts.TrialDuration),
	}
	if err := c.accounts.SaveTrial(ctx, trial); err != nil {
		return nil, err
	}

	ends := trial.EndTime
	sub := &internal.Subscription{
		Status:    internal.StatusTrial,
		TrialEnds: &ends,
		Features:  map[string]bool{internal.FeatureCountdown: true},
		UpdatedAt: now,
	}
	if err := c.accounts.SaveSubscription(ctx, sub); err != nil {
		return nil, err
	}

	c.BroadcastTrialStatus(ctx)
	return trial, nil
}

// TrialStatus answers get-trial-status; an active answer is also pushed to
// every tab so page-level UI can reflect it.
func (c *Coordinator) TrialStatus(ctx context.Context) (internal.TrialStatus, error) {
	trial, err := c.accounts.Trial(ctx)
	if err != nil {
		return internal.TrialStatus{}, err
	}
	status := c.trialStatusOf(trial)
	if status.IsActive {
		c.broadcastTrialStatusValue(status)
	}
	return status, nil
}

func (c *Coordinator) trialStatusOf(trial *internal.Trial) internal.TrialStatus {
	if trial == nil {
		return internal.TrialStatus{}
	}
	start, end := trial.StartTime, trial.EndTime
	return internal.TrialStatus{
		IsActive:       trial.Active(c.opts.Now()),
		TrialStartTime: &start,
		TrialEndTime:   &end,
	}
}

// BroadcastTrialStatus pushes the current trial status to every tab.
func (c *Coordinator) BroadcastTrialStatus(ctx context.Context) {
	trial, err := c.accounts.Trial(ctx)
	if err != nil {
		c.logger.Warnf("coordinator: reading trial for broadcast: %v", err)
		return
	}
	c.broadcastTrialStatusValue(c.trialStatusOf(trial))
}

func (c *Coordinator) broadcastTrialStatusValue(status internal.TrialStatus) {
	c.mu.Lock()
	targets := make([]*tabSession, 0, len(c.tabs))
	for _, tab := range c.tabs {
		targets = append(targets, tab)
	}
	c.mu.Unlock()

	ev := internal.TabEvent{Type: internal.EventTrialStatus, TrialStatus: &status, SentAt: c.opts.Now()}
	for _, tab := range targets {
		c.push(tab, ev)
	}
}

// UserStatus aggregates pro/trial/free for get-user-status.
func (c *Coordinator) UserStatus(ctx context.Context) (internal.UserStatus, error) {
	now := c.opts.Now()

	sub, err := c.accounts.Subscription(ctx)
	if err != nil {
		return internal.UserStatus{}, err
	}
	lic, err := c.accounts.License(ctx)
	if err != nil {
		return internal.UserStatus{}, err
	}
	trial, err := c.accounts.Trial(ctx)
	if err != nil {
		return internal.UserStatus{}, err
	}

	status := internal.UserStatus{
		IsPro:         sub.Status == internal.StatusActive || lic.Valid(now),
		IsTrialActive: trial.Active(now),
	}
	if trial != nil {
		start, end := trial.StartTime, trial.EndTime
		status.TrialStartTime = &start
		status.TrialEndTime = &end
	}
	return status, nil
}

// ApplyAuthCompletion stores an externally received authentication
// completion: the cached session copy plus the durable token.
func (c *Coordinator) ApplyAuthCompletion(ctx context.Context, session *internal.AuthSession, token string) error {
	if session == nil || session.UserID == "" {
		return internal.NewAppError(400, "auth completion without a user")
	}
	return c.accounts.SaveSession(ctx, session, token)
}

// ClearAuth drops the cached session on sign-out.
func (c *Coordinator) ClearAuth(ctx context.Context) error {
	return c.accounts.ClearSession(ctx)
}

// ApplyLicense persists a validated license and flips the subscription to
// active with the countdown unlocked.
func (c *Coordinator) ApplyLicense(ctx context.Context, lic *internal.License) error {
	if err := c.accounts.SaveLicense(ctx, lic); err != nil {
		return err
	}
	sub := &internal.Subscription{
		Status:     internal.StatusActive,
		ExpiresAt:  lic.ExpiresAt,
		LicenseKey: lic.Key,
		Features:   map[string]bool{internal.FeatureCountdown: true},
		UpdatedAt:  c.opts.Now(),
	}
	return c.accounts.SaveSubscription(ctx, sub)
}

// --- external writer reconciliation ---

// WatchSettingsFile follows the settings file for writes made by other
// processes; a changed visibility flag is mirrored and re-broadcast.
// The parent directory is watched because the store replaces the file by
// rename, which would drop a watch on the file itself.
func (c *Coordinator) WatchSettingsFile(path string, reloader storage.SettingsReloader) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}
	c.mu.Lock()
	c.watcher = watcher
	c.mu.Unlock()

	go func() {
		for {
			select {
			case <-c.closed:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Name != path {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				c.reconcileSettings(reloader)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				c.logger.Warnf("coordinator: settings watcher: %v", err)
			}
		}
	}()
	return nil
}

func (c *Coordinator) reconcileSettings(reloader storage.SettingsReloader) {
	if err := reloader.ReloadSettings(); err != nil {
		c.logger.Warnf("coordinator: reloading settings: %v", err)
		return
	}
	ctx := context.Background()
	hidden, err := guard.Call(c.g, ctx, false, func(ctx context.Context) (bool, error) {
		return c.settings.Hidden(ctx)
	})
	if err != nil {
		return
	}

	c.mu.Lock()
	changed := c.hidden != hidden
	c.hidden = hidden
	c.mu.Unlock()
	if changed {
		c.logger.Infof("coordinator: visibility changed externally, hidden=%v", hidden)
		c.BroadcastVisibility("")
	}
}
