package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Auth      AuthConfig      `yaml:"auth"`
	Auction   AuctionConfig   `yaml:"auction"`
	Scout     ScoutConfig     `yaml:"scout"`
	Media     MediaConfig     `yaml:"media"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	Driver   string `yaml:"driver"` // "postgres" or "memory"
}

// DSN returns the Postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	Insecure       bool   `yaml:"insecure"`
}

// AuthConfig holds the admin account and session settings. The admin
// email is compared exactly (case-sensitive) against the signed-in
// identity to gate privileged operations.
type AuthConfig struct {
	AdminEmail        string        `yaml:"admin_email"`
	AdminPasswordHash string        `yaml:"admin_password_hash"` // bcrypt
	SessionTTL        time.Duration `yaml:"session_ttl"`
	SessionStore      string        `yaml:"session_store"` // "memory" or "redis"
	RedisAddr         string        `yaml:"redis_addr"`
}

// AuctionConfig holds the bidding rules.
type AuctionConfig struct {
	BidStep          int           `yaml:"bid_step"`
	RosterCap        int           `yaml:"roster_cap"`
	SoldResetDelay   time.Duration `yaml:"sold_reset_delay"`
	DefaultBasePrice int           `yaml:"default_base_price"`
	DefaultBudget    int           `yaml:"default_budget"`
}

// ScoutConfig holds the narrative text API settings. APIKey may be
// supplied via the SCOUT_API_KEY environment variable instead.
type ScoutConfig struct {
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// MediaConfig holds object storage settings for player images and
// franchise logos.
type MediaConfig struct {
	Root    string `yaml:"root"`
	BaseURL string `yaml:"base_url"`
}

// Load reads a YAML configuration file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
			Driver:  "postgres",
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "auctiond",
			ServiceVersion: "0.1.0",
		},
		Auth: AuthConfig{
			SessionTTL:   24 * time.Hour,
			SessionStore: "memory",
			RedisAddr:    "localhost:6379",
		},
		Auction: AuctionConfig{
			BidStep:          50,
			RosterCap:        12,
			SoldResetDelay:   1500 * time.Millisecond,
			DefaultBasePrice: 50,
			DefaultBudget:    6000,
		},
		Scout: ScoutConfig{
			BaseURL: "https://generativelanguage.googleapis.com",
			Model:   "gemini-3-flash-preview",
			Timeout: 15 * time.Second,
		},
		Media: MediaConfig{
			Root:    "media",
			BaseURL: "/media",
		},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if key := os.Getenv("SCOUT_API_KEY"); key != "" {
		cfg.Scout.APIKey = key
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
		// valid
	default:
		return fmt.Errorf("unsupported database driver %q: must be \"postgres\" or \"memory\"", c.Database.Driver)
	}
	switch c.Auth.SessionStore {
	case "memory", "redis":
		// valid
	default:
		return fmt.Errorf("unsupported session store %q: must be \"memory\" or \"redis\"", c.Auth.SessionStore)
	}
	if c.Auth.AdminEmail == "" {
		return fmt.Errorf("auth.admin_email is required")
	}
	if c.Auction.BidStep <= 0 {
		return fmt.Errorf("auction.bid_step must be positive, got %d", c.Auction.BidStep)
	}
	if c.Auction.RosterCap <= 0 {
		return fmt.Errorf("auction.roster_cap must be positive, got %d", c.Auction.RosterCap)
	}
	if c.Auction.SoldResetDelay < 0 {
		return fmt.Errorf("auction.sold_reset_delay must not be negative")
	}
	return nil
}
