package storage

import "github.com/yourname/daybar/internal"

func NewFileRepositories(settingsFile, accountFile string, logger internal.Logger) (SettingsRepository, AccountRepository, error) {
	store, err := NewFileStorage(settingsFile, accountFile, logger)
	if err != nil {
		return nil, nil, err
	}
	return store, store, nil
}

func NewPostgresRepositories(dsn string, logger internal.Logger) (SettingsRepository, AccountRepository, error) {
	store, err := NewPostgresStorage(dsn, logger)
	if err != nil {
		return nil, nil, err
	}
	return store, store, nil
}
