package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v8"
	"github.com/fatali-fataliyev/finance_tracker/internal/subscription"
	"github.com/subosito/gotenv"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"development"`
	Port     string `env:"APP_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogDir   string `env:"LOG_DIR"`

	DB           Database     `envPrefix:"DB_"`
	FullDSN      string       `env:"FULL_DSN"`
	Admin        Admin        `envPrefix:"ADMIN_"`
	Session      Session      `envPrefix:"SESSION_"`
	Subscription Subscription `envPrefix:"SUBSCRIPTION_"`
}

type Database struct {
	Driver   string `env:"DRIVER" envDefault:"sqlite"`
	Path     string `env:"PATH" envDefault:"budget_tracker.db"`
	User     string `env:"USER"`
	Password string `env:"PASS"`
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"3306"`
	Name     string `env:"NAME" envDefault:"budget_tracker"`
}

// Admin credentials bootstrap an administrator on startup. Both empty means
// no admin is created.
type Admin struct {
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
}

type Session struct {
	TTLDays         int `env:"TTL_DAYS" envDefault:"90"`
	RenewWithinDays int `env:"RENEW_WITHIN_DAYS" envDefault:"5"`
}

type Subscription struct {
	SettledAfterDays   int `env:"SETTLED_AFTER_DAYS" envDefault:"25"`
	ImminentWithinDays int `env:"IMMINENT_WITHIN_DAYS" envDefault:"5"`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load() (Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}
	return Parse()
}

func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.DB.Driver = strings.ToLower(strings.TrimSpace(cfg.DB.Driver))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DB.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.DB.Path) == "" {
			return errors.New("DB_PATH is required for the sqlite driver")
		}
	case DriverMySQL:
		if c.FullDSN == "" && (c.DB.User == "" || c.DB.Password == "") {
			return errors.New("mysql driver requires FULL_DSN or DB_USER and DB_PASS")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown DB_DRIVER: '%s', allowed: sqlite, mysql, memory", c.DB.Driver)
	}

	if (c.Admin.Username == "") != (c.Admin.Password == "") {
		return errors.New("ADMIN_USERNAME and ADMIN_PASSWORD must be set together")
	}
	if c.Session.TTLDays <= 0 {
		return fmt.Errorf("SESSION_TTL_DAYS must be positive, got %d", c.Session.TTLDays)
	}
	if c.Session.RenewWithinDays < 0 || c.Session.RenewWithinDays >= c.Session.TTLDays {
		return fmt.Errorf("SESSION_RENEW_WITHIN_DAYS must be between 0 and SESSION_TTL_DAYS, got %d", c.Session.RenewWithinDays)
	}
	if err := c.Thresholds().Validate(); err != nil {
		return fmt.Errorf("invalid subscription thresholds: %w", err)
	}
	return nil
}

// MySQLDSN returns FULL_DSN when set, otherwise a DSN built from the DB_ keys.
func (c Config) MySQLDSN() string {
	if c.FullDSN != "" {
		return c.FullDSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&multiStatements=true",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLDays) * 24 * time.Hour
}

func (c Config) SessionRenewWithin() time.Duration {
	return time.Duration(c.Session.RenewWithinDays) * 24 * time.Hour
}

func (c Config) Thresholds() subscription.Thresholds {
	return subscription.Thresholds{
		SettledAfter:   c.Subscription.SettledAfterDays,
		ImminentWithin: c.Subscription.ImminentWithinDays,
	}
}

func (c Config) HasAdmin() bool {
	return c.Admin.Username != ""
}
