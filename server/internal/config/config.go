package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata" // plant timezones resolve on hosts without zoneinfo

	"gopkg.in/yaml.v3"
)

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold-based alert condition.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression: "remaining_kg < 0", "rate_ton < 1.5",
	// "state == stopped".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Default values for the server configuration.
const (
	DefaultHTTPPort       = 8080
	DefaultTimezone       = "UTC"
	DefaultLockWindow     = 5 * time.Minute
	DefaultActiveInterval = time.Second
	DefaultIdleInterval   = 60 * time.Second
	DefaultBackend        = "memory"
	DefaultSQLitePath     = "plantops.db"
)

// Config holds the server configuration parsed from the `server:` section of
// config.yaml.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, WebSocket hub and /metrics listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// Timezone is the IANA zone that defines the plant's calendar day (default UTC).
	Timezone string `yaml:"timezone"`

	// Factories lists the factory IDs served. Empty accepts any factory on the
	// API; metrics and alerts then have nothing to report.
	Factories []string `yaml:"factories"`

	// Lock configures the edit-lock window.
	Lock LockConfig `yaml:"lock"`

	// Refresh configures live view recomputation cadences.
	Refresh RefreshConfig `yaml:"refresh"`

	// Auth configures API keys and the supervisor credential.
	Auth AuthConfig `yaml:"auth"`

	// Storage selects the records backend.
	Storage StorageConfig `yaml:"storage"`

	// Alerts holds rule definitions and webhook delivery targets.
	Alerts AlertsConfig `yaml:"alerts"`
}

// LockConfig controls the edit lock.
type LockConfig struct {
	// Window is how long a record stays freely editable after creation. Default: 5m.
	Window time.Duration `yaml:"window"`
}

// RefreshConfig controls live recomputation.
type RefreshConfig struct {
	// ActiveInterval is the tick while a cooking cycle is open. Default: 1s.
	ActiveInterval time.Duration `yaml:"active_interval"`

	// IdleInterval is the tick otherwise. Default: 60s.
	IdleInterval time.Duration `yaml:"idle_interval"`
}

// AuthConfig controls client authentication on the server side.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	// Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header to read the key from. Defaults to "X-API-Key" if empty.
	Header string `yaml:"header"`

	// SupervisorHashEnv names the environment variable holding the bcrypt hash
	// of the supervisor credential. Unset means locked records cannot be edited.
	SupervisorHashEnv string `yaml:"supervisor_hash_env"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "X-API-Key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "X-API-Key"
}

// SupervisorHash returns the supervisor credential hash resolved from the environment.
func (a AuthConfig) SupervisorHash() string {
	if a.SupervisorHashEnv == "" {
		return ""
	}
	return os.Getenv(a.SupervisorHashEnv)
}

// StorageConfig selects where records are kept.
type StorageConfig struct {
	// Backend is one of: memory | sqlite. Default: memory.
	Backend string `yaml:"backend"`

	// Path is the SQLite database file. Default: plantops.db.
	Path string `yaml:"path"`

	// Retention drops records dated further back than this from memory.
	// Zero keeps everything.
	Retention time.Duration `yaml:"retention"`
}

// Location returns the configured plant timezone.
func (s ServerConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			Timezone: DefaultTimezone,
			Lock:     LockConfig{Window: DefaultLockWindow},
			Refresh: RefreshConfig{
				ActiveInterval: DefaultActiveInterval,
				IdleInterval:   DefaultIdleInterval,
			},
			Storage: StorageConfig{
				Backend: DefaultBackend,
				Path:    DefaultSQLitePath,
			},
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	if _, err := s.Location(); err != nil {
		return fmt.Errorf("server.timezone %q: %w", s.Timezone, err)
	}
	seen := make(map[string]bool, len(s.Factories))
	for _, f := range s.Factories {
		if f == "" {
			return fmt.Errorf("server.factories: empty factory id")
		}
		if seen[f] {
			return fmt.Errorf("server.factories: duplicate factory id %q", f)
		}
		seen[f] = true
	}
	if s.Lock.Window <= 0 {
		return fmt.Errorf("server.lock.window must be positive")
	}
	if s.Refresh.ActiveInterval <= 0 || s.Refresh.IdleInterval <= 0 {
		return fmt.Errorf("server.refresh intervals must be positive")
	}
	switch s.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", s.Auth.Mode)
	}
	switch s.Storage.Backend {
	case "memory":
	case "sqlite":
		if s.Storage.Path == "" {
			return fmt.Errorf("server.storage.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("server.storage.backend %q unknown: want memory|sqlite", s.Storage.Backend)
	}
	if s.Storage.Retention < 0 {
		return fmt.Errorf("server.storage.retention must not be negative")
	}
	for i, r := range s.Alerts.Rules {
		if r.Name == "" || r.Condition == "" {
			return fmt.Errorf("server.alerts.rules[%d]: name and condition are required", i)
		}
	}
	return nil
}
