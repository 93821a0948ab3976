package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/claude/liftguard/internal/guardrail"
	"github.com/claude/liftguard/internal/models"
	"github.com/claude/liftguard/internal/policy"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const defaultDeloadPct = 10

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Engine    EngineConfig    `yaml:"engine"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	// Driver is "postgres" (default) or "sqlite".
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	// Path is the database file for the sqlite driver.
	Path string `yaml:"path"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type CatalogConfig struct {
	// Path to the exercise content table. Empty uses the built-in table.
	Path string `yaml:"path"`
}

// EngineConfig tunes the progression and guardrail rules.
type EngineConfig struct {
	WeekStart          string                          `yaml:"week_start"`
	MaxSessionsPerWeek int                             `yaml:"max_sessions_per_week"`
	DefaultDeloadPct   float64                         `yaml:"default_deload_pct"`
	Equipment          map[string]policy.EquipmentRule `yaml:"equipment"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Policy builds the equipment policy, applying any configured overrides to
// the defaults.
func (e EngineConfig) Policy() (policy.Policy, error) {
	p := policy.Default()
	for name, rule := range e.Equipment {
		eq := models.Equipment(strings.ToLower(name))
		if !eq.Valid() {
			return p, fmt.Errorf("engine.equipment: unknown equipment %q", name)
		}
		p = p.With(eq, rule)
	}
	return p, nil
}

// ScheduleRules builds the calendar rules.
func (e EngineConfig) ScheduleRules() (guardrail.ScheduleRules, error) {
	r := guardrail.DefaultScheduleRules()
	if e.WeekStart != "" {
		wd, err := parseWeekday(e.WeekStart)
		if err != nil {
			return r, err
		}
		r.WeekStart = wd
	}
	if e.MaxSessionsPerWeek > 0 {
		r.MaxSessionsPerWeek = e.MaxSessionsPerWeek
	}
	return r, nil
}

// DeloadPct is the reduction used when a deload is started without one.
func (e EngineConfig) DeloadPct() float64 {
	if e.DefaultDeloadPct > 0 {
		return policy.Percent(e.DefaultDeloadPct)
	}
	return defaultDeloadPct
}

func parseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("engine.week_start: unknown weekday %q", s)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix LIFTGUARD_ and underscore-separated paths:
//
//	LIFTGUARD_SERVER_HOST, LIFTGUARD_SERVER_PORT,
//	LIFTGUARD_DB_DRIVER, LIFTGUARD_DB_PATH,
//	LIFTGUARD_DB_HOST, LIFTGUARD_DB_PORT, LIFTGUARD_DB_NAME,
//	LIFTGUARD_DB_USER, LIFTGUARD_DB_PASSWORD, LIFTGUARD_DB_SSLMODE,
//	LIFTGUARD_AUTH_API_KEY,
//	LIFTGUARD_TS_ENABLED, LIFTGUARD_TS_HOSTNAME, LIFTGUARD_TS_STATE_DIR,
//	LIFTGUARD_CATALOG_PATH,
//	LIFTGUARD_ENGINE_WEEK_START, LIFTGUARD_ENGINE_DELOAD_PCT
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverPostgres
	}
	if cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = "liftguard"
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString("LIFTGUARD_SERVER_HOST", &cfg.Server.Host)
	setInt("LIFTGUARD_SERVER_PORT", &cfg.Server.Port)
	setString("LIFTGUARD_DB_DRIVER", &cfg.Database.Driver)
	setString("LIFTGUARD_DB_PATH", &cfg.Database.Path)
	setString("LIFTGUARD_DB_HOST", &cfg.Database.Host)
	setInt("LIFTGUARD_DB_PORT", &cfg.Database.Port)
	setString("LIFTGUARD_DB_NAME", &cfg.Database.Name)
	setString("LIFTGUARD_DB_USER", &cfg.Database.User)
	setString("LIFTGUARD_DB_PASSWORD", &cfg.Database.Password)
	setString("LIFTGUARD_DB_SSLMODE", &cfg.Database.SSLMode)
	setString("LIFTGUARD_AUTH_API_KEY", &cfg.Auth.APIKey)
	if v := os.Getenv("LIFTGUARD_TS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	setString("LIFTGUARD_TS_HOSTNAME", &cfg.Tailscale.Hostname)
	setString("LIFTGUARD_TS_STATE_DIR", &cfg.Tailscale.StateDir)
	setString("LIFTGUARD_CATALOG_PATH", &cfg.Catalog.Path)
	setString("LIFTGUARD_ENGINE_WEEK_START", &cfg.Engine.WeekStart)
	if v := os.Getenv("LIFTGUARD_ENGINE_DELOAD_PCT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Engine.DefaultDeloadPct = f
		}
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.StateDir == "" {
		return fmt.Errorf("tailscale.state_dir is required when tailscale is enabled")
	}
	if _, err := c.Engine.Policy(); err != nil {
		return err
	}
	if _, err := c.Engine.ScheduleRules(); err != nil {
		return err
	}
	return nil
}
