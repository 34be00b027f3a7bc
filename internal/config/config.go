package config

import (
	"errors"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	LogLevel string

	ListenAddr string

	DBType       string
	DBDSN        string
	SettingsFile string
	AccountFile  string

	AuthServiceURL     string
	CheckoutServiceURL string
	LicenseServiceURL  string
	CheckoutPriceID    string

	// Delay between a tab finishing navigation and the coordinator pushing
	// state to it, so the tab's own startup settles first.
	TabSettleDelay time.Duration
	TrialDuration  time.Duration

	LocalAuthToken string
}

var (
	cfg  *Config
	once sync.Once
)

func Load() *Config {
	once.Do(func() {
		_ = godotenv.Load()
		cfg = &Config{
			Env:                getEnv("APP_ENV", "development"),
			LogLevel:           getEnv("LOG_LEVEL", "info"),
			ListenAddr:         getEnv("LISTEN_ADDR", ":8170"),
			DBType:             getEnv("STORAGE_BACKEND", "file"),
			DBDSN:              getEnv("POSTGRES_DSN", ""),
			SettingsFile:       getEnv("SETTINGS_FILE", "data/settings.json"),
			AccountFile:        getEnv("ACCOUNT_FILE", "data/account.json"),
			AuthServiceURL:     getEnv("AUTH_SERVICE_URL", ""),
			CheckoutServiceURL: getEnv("CHECKOUT_SERVICE_URL", ""),
			LicenseServiceURL:  getEnv("LICENSE_SERVICE_URL", ""),
			CheckoutPriceID:    getEnv("CHECKOUT_PRICE_ID", "price_monthly"),
			TabSettleDelay:     getDuration("TAB_SETTLE_DELAY_MS", 1500) * time.Millisecond,
			TrialDuration:      getDuration("TRIAL_DAYS", 7) * 24 * time.Hour,
			LocalAuthToken:     getEnv("LOCAL_AUTH_TOKEN", "MOCK-TOKEN"),
		}
		if err := cfg.Validate(); err != nil {
			panic("Invalid config: " + err.Error())
		}
	})
	return cfg
}

func (c *Config) Validate() error {
	if c.DBType == "postgres" && c.DBDSN == "" {
		return errors.New("POSTGRES_DSN is required when STORAGE_BACKEND=postgres")
	}
	if c.DBType == "file" && (c.SettingsFile == "" || c.AccountFile == "") {
		return errors.New("File storage requires SETTINGS_FILE and ACCOUNT_FILE to be set")
	}
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return errors.New("APP_ENV must be one of: development, staging, production")
	}
	if c.Env != "development" && c.AuthServiceURL == "" {
		return errors.New("AUTH_SERVICE_URL is required outside development")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback int64) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return time.Duration(n)
		}
	}
	return time.Duration(fallback)
}
