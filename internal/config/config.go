// Package config loads and validates service configuration from a YAML file,
// a .env file, and ROBOSYNC_* environment variables. The loaded Config is an
// explicit value passed into the sync cycle; no package reads ambient
// environment state after Load returns.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	// WorkDir is the git working directory to synchronize. Defaults to the
	// current process directory.
	WorkDir string `yaml:"work_dir"`
	// DeviceID overrides host-name identity resolution when set.
	DeviceID string `yaml:"device_id"`
	// Remote is the git remote pushed to after each commit.
	Remote string `yaml:"remote"`
	// DisablePush skips the push step entirely (local-only devices).
	DisablePush bool `yaml:"disable_push"`

	Author  AuthorConfig  `yaml:"author"`
	Journal JournalConfig `yaml:"journal"`
	Events  EventsConfig  `yaml:"events"`
	Daemon  DaemonConfig  `yaml:"daemon"`
	Logging LoggingConfig `yaml:"logging"`
}

// AuthorConfig sets the commit author recorded on auto-commits.
type AuthorConfig struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// JournalConfig configures the optional local cycle-history store.
type JournalConfig struct {
	// Path of the SQLite database file. Empty disables journaling.
	Path string `yaml:"path"`
}

// EventsConfig configures optional cycle-outcome publishing over NATS.
type EventsConfig struct {
	// URL of the NATS server. Empty disables publishing.
	URL string `yaml:"url"`
	// SubjectPrefix prefixes the per-outcome subject, e.g.
	// robosync.cycle.committed-and-pushed.
	SubjectPrefix string `yaml:"subject_prefix"`
}

// DaemonConfig configures the in-process periodic scheduler.
type DaemonConfig struct {
	Interval     Duration `yaml:"interval"`
	InitialDelay Duration `yaml:"initial_delay"`
	// MetricsAddr enables a Prometheus /metrics listener when set,
	// e.g. ":9090".
	MetricsAddr string `yaml:"metrics_addr"`
}

// LoggingConfig selects log level and output format.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// Duration wraps time.Duration for YAML ("10m", "1h30m") parsing.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) { return time.Duration(d).String(), nil }

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Load reads configuration for the service. A missing config file is not an
// error: defaults plus environment overrides still produce a usable Config,
// so a bare `robosync sync` works inside any git working directory.
func Load(path string) (*Config, error) {
	loadDotEnv()

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to defaults
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv loads .env then .env.local without overriding the process
// environment, matching the usual local-development layering.
func loadDotEnv() {
	for _, p := range []string{".env", ".env.local"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

func (c *Config) applyDefaults() {
	if c.WorkDir == "" {
		if wd, err := os.Getwd(); err == nil {
			c.WorkDir = wd
		} else {
			c.WorkDir = "."
		}
	}
	if c.Remote == "" {
		c.Remote = "origin"
	}
	if c.Author.Name == "" {
		c.Author.Name = "robosync"
	}
	if c.Author.Email == "" {
		c.Author.Email = "robosync@local"
	}
	if c.Events.SubjectPrefix == "" {
		c.Events.SubjectPrefix = "robosync.cycle"
	}
	if c.Daemon.Interval == 0 {
		c.Daemon.Interval = Duration(10 * time.Minute)
	}
	if c.Daemon.InitialDelay == 0 {
		c.Daemon.InitialDelay = Duration(1 * time.Minute)
	}
	c.Logging.Level = NormalizeLogLevel(string(c.Logging.Level))
	c.Logging.Format = NormalizeLogFormat(string(c.Logging.Format))
}

// Validate rejects configurations that could not run a single cycle.
func (c *Config) Validate() error {
	if c.Daemon.Interval < 0 {
		return fmt.Errorf("daemon interval must be positive, got %s", c.Daemon.Interval.Std())
	}
	if c.Daemon.InitialDelay < 0 {
		return fmt.Errorf("daemon initial_delay must not be negative, got %s", c.Daemon.InitialDelay.Std())
	}
	if c.Daemon.Interval.Std() > 0 && c.Daemon.Interval.Std() < time.Second {
		return fmt.Errorf("daemon interval %s is below the 1s minimum", c.Daemon.Interval.Std())
	}
	return nil
}
