package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

type Config struct {
	// HTTP Server
	Port               string
	DashboardTimeout   time.Duration
	RateLimitPerMinute int
	TrustedProxies     []string

	// Storage
	DataBackend  string
	SQLiteDBPath string
	SeedFile     string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Auth
	AuthSecret string
	AuthIssuer string

	// Dashboard
	RecentLimit       int
	IncomeWindowDays  int
	ExpenseWindowDays int

	// Logging
	LogLevel  string
	LogFormat string
}

var defaults = map[string]any{
	"PORT":                  "8081",
	"DASHBOARD_TIMEOUT":     "5s",
	"RATE_LIMIT_PER_MINUTE": 60,
	"TRUSTED_PROXIES":       "",
	"DATA_BACKEND":          BackendMemory,
	"SQLITE_DB_PATH":        "./data/bilancio.db",
	"SEED_FILE":             "",
	"AMQP_URL":              "",
	"AMQP_EXCHANGE":         "bilancio",
	"AMQP_QUEUE":            "transactions_recorded",
	"AUTH_SECRET":           "",
	"AUTH_ISSUER":           "",
	"RECENT_LIMIT":          5,
	"INCOME_WINDOW_DAYS":    60,
	"EXPENSE_WINDOW_DAYS":   30,
	"LOG_LEVEL":             "info",
	"LOG_FORMAT":            "text",
}

// Load reads configuration from the environment, falling back to the file
// named by CONFIG_FILE when set.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	return FromViper(v), nil
}

// FromViper builds a Config from v after registering the defaults.
func FromViper(v *viper.Viper) *Config {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	return &Config{
		Port:               v.GetString("PORT"),
		DashboardTimeout:   v.GetDuration("DASHBOARD_TIMEOUT"),
		RateLimitPerMinute: v.GetInt("RATE_LIMIT_PER_MINUTE"),
		TrustedProxies:     splitList(v.GetString("TRUSTED_PROXIES")),

		DataBackend:  strings.ToLower(strings.TrimSpace(v.GetString("DATA_BACKEND"))),
		SQLiteDBPath: v.GetString("SQLITE_DB_PATH"),
		SeedFile:     v.GetString("SEED_FILE"),

		AMQPURL:      v.GetString("AMQP_URL"),
		AMQPExchange: v.GetString("AMQP_EXCHANGE"),
		AMQPQueue:    v.GetString("AMQP_QUEUE"),

		AuthSecret: v.GetString("AUTH_SECRET"),
		AuthIssuer: v.GetString("AUTH_ISSUER"),

		RecentLimit:       v.GetInt("RECENT_LIMIT"),
		IncomeWindowDays:  v.GetInt("INCOME_WINDOW_DAYS"),
		ExpenseWindowDays: v.GetInt("EXPENSE_WINDOW_DAYS"),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IncomeWindow and ExpenseWindow convert the configured day counts.
func (c *Config) IncomeWindow() time.Duration {
	return time.Duration(c.IncomeWindowDays) * 24 * time.Hour
}

func (c *Config) ExpenseWindow() time.Duration {
	return time.Duration(c.ExpenseWindowDays) * 24 * time.Hour
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of [%s %s]", c.DataBackend, BackendMemory, BackendSQLite))
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.AuthSecret != "" && len(c.AuthSecret) < 16 {
		errs = append(errs, "auth secret must be at least 16 characters")
	}

	if c.DashboardTimeout < 0 {
		errs = append(errs, fmt.Sprintf("invalid dashboard timeout %v: must not be negative", c.DashboardTimeout))
	}
	if c.RateLimitPerMinute < 1 {
		errs = append(errs, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}
	if c.RecentLimit < 1 || c.RecentLimit > 100 {
		errs = append(errs, fmt.Sprintf("invalid recent limit %d: must be between 1 and 100", c.RecentLimit))
	}
	if c.IncomeWindowDays < 1 {
		errs = append(errs, fmt.Sprintf("invalid income window %d days: must be at least 1", c.IncomeWindowDays))
	}
	if c.ExpenseWindowDays < 1 {
		errs = append(errs, fmt.Sprintf("invalid expense window %d days: must be at least 1", c.ExpenseWindowDays))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// ErrAMQPDisabled is returned by components that need AMQP when AMQP_URL is empty.
var ErrAMQPDisabled = errors.New("AMQP_URL is not configured")

// RequireAMQP reports ErrAMQPDisabled when no broker is configured.
func (c *Config) RequireAMQP() error {
	if c.AMQPURL == "" {
		return ErrAMQPDisabled
	}
	return nil
}
