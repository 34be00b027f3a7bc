package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yourname/daybar/internal"
)

// Settings keys in the settings table.
const (
	keyStartTime         = "start_time"
	keyEndTime           = "end_time"
	keyCountdownDuration = "countdown_duration"
	keyHidden            = "hidden"
)

// Record kinds in the account_records table.
const (
	kindSubscription = "subscription"
	kindTrial        = "trial"
	kindLicense      = "license"
	kindSession      = "session"
)

type sessionRecord struct {
	Session *internal.AuthSession `json:"session"`
	Token   string                `json:"token"`
}

type PostgresStorage struct {
	pool   *pgxpool.Pool
	logger internal.Logger
}

func NewPostgresStorage(dsn string, logger internal.Logger) (*PostgresStorage, error) {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Errorf("failed to connect to postgres: %v", err)
		return nil, err
	}
	return &PostgresStorage{pool: pool, logger: logger}, nil
}

func (p *PostgresStorage) getSetting(ctx context.Context, key, fallback string) (string, error) {
	row := p.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key)
	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fallback, nil
		}
		p.logger.Errorf("failed to read setting %s: %v", key, err)
		return "", err
	}
	return value, nil
}

func (p *PostgresStorage) putSetting(ctx context.Context, key, value string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO settings (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	if err != nil {
		p.logger.Errorf("failed to write setting %s: %v", key, err)
	}
	return err
}

func (p *PostgresStorage) getRecord(ctx context.Context, kind string, out interface{}) (bool, error) {
	row := p.pool.QueryRow(ctx, `SELECT payload FROM account_records WHERE kind = $1`, kind)
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		p.logger.Errorf("failed to read %s record: %v", kind, err)
		return false, err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return false, err
	}
	return true, nil
}

func (p *PostgresStorage) putRecord(ctx context.Context, kind string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO account_records (kind, payload, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (kind) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		kind, payload, time.Now())
	if err != nil {
		p.logger.Errorf("failed to write %s record: %v", kind, err)
	}
	return err
}

// --- SettingsRepository ---

func (p *PostgresStorage) WorkHours(ctx context.Context) (internal.WorkHours, error) {
	defaults := internal.DefaultWorkHours()
	start, err := p.getSetting(ctx, keyStartTime, defaults.StartTime)
	if err != nil {
		return defaults, err
	}
	end, err := p.getSetting(ctx, keyEndTime, defaults.EndTime)
	if err != nil {
		return defaults, err
	}
	return internal.WorkHours{StartTime: start, EndTime: end}, nil
}

func (p *PostgresStorage) SaveWorkHours(ctx context.Context, wh internal.WorkHours) error {
	if err := p.putSetting(ctx, keyStartTime, wh.StartTime); err != nil {
		return err
	}
	return p.putSetting(ctx, keyEndTime, wh.EndTime)
}

func (p *PostgresStorage) Hidden(ctx context.Context) (bool, error) {
	v, err := p.getSetting(ctx, keyHidden, "false")
	if err != nil {
		return false, err
	}
	return v == "true", nil
}

func (p *PostgresStorage) SetHidden(ctx context.Context, hidden bool) error {
	return p.putSetting(ctx, keyHidden, strconv.FormatBool(hidden))
}

func (p *PostgresStorage) CountdownDuration(ctx context.Context) (int, error) {
	v, err := p.getSetting(ctx, keyCountdownDuration, "25")
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.Atoi(v)
	if err != nil {
		return 25, nil
	}
	return minutes, nil
}

func (p *PostgresStorage) SetCountdownDuration(ctx context.Context, minutes int) error {
	return p.putSetting(ctx, keyCountdownDuration, strconv.Itoa(minutes))
}

// --- AccountRepository ---

func (p *PostgresStorage) Subscription(ctx context.Context) (*internal.Subscription, error) {
	var sub internal.Subscription
	found, err := p.getRecord(ctx, kindSubscription, &sub)
	if err != nil {
		return nil, err
	}
	if !found {
		return internal.NewFreeSubscription(), nil
	}
	return &sub, nil
}

func (p *PostgresStorage) SaveSubscription(ctx context.Context, sub *internal.Subscription) error {
	return p.putRecord(ctx, kindSubscription, sub)
}

func (p *PostgresStorage) Trial(ctx context.Context) (*internal.Trial, error) {
	var trial internal.Trial
	found, err := p.getRecord(ctx, kindTrial, &trial)
	if err != nil || !found {
		return nil, err
	}
	return &trial, nil
}

func (p *PostgresStorage) SaveTrial(ctx context.Context, trial *internal.Trial) error {
	return p.putRecord(ctx, kindTrial, trial)
}

func (p *PostgresStorage) License(ctx context.Context) (*internal.License, error) {
	var lic internal.License
	found, err := p.getRecord(ctx, kindLicense, &lic)
	if err != nil || !found {
		return nil, err
	}
	return &lic, nil
}

func (p *PostgresStorage) SaveLicense(ctx context.Context, lic *internal.License) error {
	return p.putRecord(ctx, kindLicense, lic)
}

func (p *PostgresStorage) Session(ctx context.Context) (*internal.AuthSession, string, error) {
	var rec sessionRecord
	found, err := p.getRecord(ctx, kindSession, &rec)
	if err != nil || !found {
		return nil, "", err
	}
	return rec.Session, rec.Token, nil
}

func (p *PostgresStorage) SaveSession(ctx context.Context, session *internal.AuthSession, token string) error {
	return p.putRecord(ctx, kindSession, sessionRecord{Session: session, Token: token})
}

func (p *PostgresStorage) ClearSession(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM account_records WHERE kind = $1`, kindSession)
	if err != nil {
		p.logger.Errorf("failed to clear session record: %v", err)
	}
	return err
}

// --- Compile-time assertions ---
var _ SettingsRepository = (*PostgresStorage)(nil)
var _ AccountRepository = (*PostgresStorage)(nil)
