package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/yourname/daybar/internal"
)

// settingsDoc is the on-disk shape of the settings file.
type settingsDoc struct {
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	CountdownDuration int    `json:"countdown_duration"`
	Hidden            bool   `json:"hidden"`
}

// accountDoc is the on-disk shape of the account file.
type accountDoc struct {
	Subscription *internal.Subscription `json:"subscription,omitempty"`
	Trial        *internal.Trial        `json:"trial,omitempty"`
	License      *internal.License      `json:"license,omitempty"`
	Session      *internal.AuthSession  `json:"session,omitempty"`
	SessionToken string                 `json:"session_token,omitempty"`
}

// FileStorage keeps settings and account records in memory and flushes them
// to JSON files through debounced background save workers.
type FileStorage struct {
	mu       sync.RWMutex
	settings settingsDoc
	account  accountDoc

	settingsFile string
	accountFile  string

	saveSettingsChan chan struct{}
	saveAccountChan  chan struct{}
	shutdownChan     chan struct{}
	saveDelay        time.Duration
	logger           internal.Logger
}

func NewFileStorage(settingsFile, accountFile string, logger internal.Logger) (*FileStorage, error) {
	if logger == nil {
		logger = internal.NopLogger{}
	}
	s := &FileStorage{
		settings: settingsDoc{
			StartTime:         internal.DefaultWorkHours().StartTime,
			EndTime:           internal.DefaultWorkHours().EndTime,
			CountdownDuration: 25,
		},
		settingsFile:     settingsFile,
		accountFile:      accountFile,
		saveSettingsChan: make(chan struct{}, 1),
		saveAccountChan:  make(chan struct{}, 1),
		shutdownChan:     make(chan struct{}),
		saveDelay:        500 * time.Millisecond,
		logger:           logger,
	}

	if err := s.loadSettings(); err != nil {
		logger.Errorf("storage: failed to load settings: %v", err)
		return nil, err
	}
	if err := s.loadAccount(); err != nil {
		logger.Errorf("storage: failed to load account records: %v", err)
		return nil, err
	}

	go s.saveWorker(s.saveSettingsChan, s.flushSettings)
	go s.saveWorker(s.saveAccountChan, s.flushAccount)

	return s, nil
}

// Close stops the save workers and flushes any pending state.
func (s *FileStorage) Close() error {
	close(s.shutdownChan)
	if err := s.flushSettings(); err != nil {
		return err
	}
	return s.flushAccount()
}

func (s *FileStorage) loadSettings() error {
	data, err := os.ReadFile(s.settingsFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	var doc settingsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	s.mu.Lock()
	if doc.StartTime == "" {
		doc.StartTime = internal.DefaultWorkHours().StartTime
	}
	if doc.EndTime == "" {
		doc.EndTime = internal.DefaultWorkHours().EndTime
	}
	s.settings = doc
	s.mu.Unlock()
	return nil
}

// ReloadSettings re-reads the settings file. Used when an external writer
// changed it underneath us.
func (s *FileStorage) ReloadSettings() error {
	return s.loadSettings()
}

func (s *FileStorage) loadAccount() error {
	data, err := os.ReadFile(s.accountFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	var doc accountDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	s.mu.Lock()
	s.account = doc
	s.mu.Unlock()
	return nil
}

// saveWorker coalesces bursts of writes into a single delayed flush.
func (s *FileStorage) saveWorker(trigger <-chan struct{}, flush func() error) {
	for {
		select {
		case <-s.shutdownChan:
			return
		case <-trigger:
			timer := time.NewTimer(s.saveDelay)
			select {
			case <-s.shutdownChan:
				timer.Stop()
				return
			case <-timer.C:
			}
			if err := flush(); err != nil {
				s.logger.Errorf("storage: flush failed: %v", err)
			}
		}
	}
}

func (s *FileStorage) scheduleSave(trigger chan struct{}) {
	select {
	case trigger <- struct{}{}:
	default:
	}
}

func (s *FileStorage) flushSettings() error {
	s.mu.RLock()
	doc := s.settings
	s.mu.RUnlock()
	return writeJSONAtomic(s.settingsFile, doc)
}

func (s *FileStorage) flushAccount() error {
	s.mu.RLock()
	doc := s.account
	s.mu.RUnlock()
	return writeJSONAtomic(s.accountFile, doc)
}

// writeJSONAtomic writes via a temp file in the same directory so the rename
// is atomic and external watchers never observe a half-written file.
func writeJSONAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// --- SettingsRepository ---

func (s *FileStorage) WorkHours(ctx context.Context) (internal.WorkHours, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return internal.WorkHours{StartTime: s.settings.StartTime, EndTime: s.settings.EndTime}, nil
}

func (s *FileStorage) SaveWorkHours(ctx context.Context, wh internal.WorkHours) error {
	s.mu.Lock()
	s.settings.StartTime = wh.StartTime
	s.settings.EndTime = wh.EndTime
	s.mu.Unlock()
	s.scheduleSave(s.saveSettingsChan)
	return nil
}

func (s *FileStorage) Hidden(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Hidden, nil
}

func (s *FileStorage) SetHidden(ctx context.Context, hidden bool) error {
	s.mu.Lock()
	s.settings.Hidden = hidden
	s.mu.Unlock()
	s.scheduleSave(s.saveSettingsChan)
	return nil
}

func (s *FileStorage) CountdownDuration(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.CountdownDuration, nil
}

func (s *FileStorage) SetCountdownDuration(ctx context.Context, minutes int) error {
	s.mu.Lock()
	s.settings.CountdownDuration = minutes
	s.mu.Unlock()
	s.scheduleSave(s.saveSettingsChan)
	return nil
}

// --- AccountRepository ---

func (s *FileStorage) Subscription(ctx context.Context) (*internal.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account.Subscription == nil {
		return internal.NewFreeSubscription(), nil
	}
	sub := *s.account.Subscription
	return &sub, nil
}

func (s *FileStorage) SaveSubscription(ctx context.Context, sub *internal.Subscription) error {
	s.mu.Lock()
	copied := *sub
	s.account.Subscription = &copied
	s.mu.Unlock()
	s.scheduleSave(s.saveAccountChan)
	return nil
}

func (s *FileStorage) Trial(ctx context.Context) (*internal.Trial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account.Trial == nil {
		return nil, nil
	}
	trial := *s.account.Trial
	return &trial, nil
}

func (s *FileStorage) SaveTrial(ctx context.Context, trial *internal.Trial) error {
	s.mu.Lock()
	copied := *trial
	s.account.Trial = &copied
	s.mu.Unlock()
	s.scheduleSave(s.saveAccountChan)
	return nil
}

func (s *FileStorage) License(ctx context.Context) (*internal.License, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account.License == nil {
		return nil, nil
	}
	lic := *s.account.License
	return &lic, nil
}

func (s *FileStorage) SaveLicense(ctx context.Context, lic *internal.License) error {
	s.mu.Lock()
	copied := *lic
	s.account.License = &copied
	s.mu.Unlock()
	s.scheduleSave(s.saveAccountChan)
	return nil
}

func (s *FileStorage) Session(ctx context.Context) (*internal.AuthSession, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account.Session == nil {
		return nil, "", nil
	}
	session := *s.account.Session
	return &session, s.account.SessionToken, nil
}

func (s *FileStorage) SaveSession(ctx context.Context, session *internal.AuthSession, token string) error {
	s.mu.Lock()
	copied := *session
	s.account.Session = &copied
	s.account.SessionToken = token
	s.mu.Unlock()
	s.scheduleSave(s.saveAccountChan)
	return nil
}

func (s *FileStorage) ClearSession(ctx context.Context) error {
	s.mu.Lock()
	s.account.Session = nil
	s.account.SessionToken = ""
	s.mu.Unlock()
	s.scheduleSave(s.saveAccountChan)
	return nil
}

// --- Compile-time assertions ---
var _ SettingsRepository = (*FileStorage)(nil)
var _ AccountRepository = (*FileStorage)(nil)
var _ SettingsReloader = (*FileStorage)(nil)
