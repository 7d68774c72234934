package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Environment variable names. Each overrides the corresponding file value.
const (
	EnvWorkDir      = "ROBOSYNC_WORK_DIR"
	EnvDeviceID     = "ROBOSYNC_DEVICE_ID"
	EnvRemote       = "ROBOSYNC_REMOTE"
	EnvDisablePush  = "ROBOSYNC_DISABLE_PUSH"
	EnvJournalPath  = "ROBOSYNC_JOURNAL_PATH"
	EnvNATSURL      = "ROBOSYNC_NATS_URL"
	EnvInterval     = "ROBOSYNC_INTERVAL"
	EnvInitialDelay = "ROBOSYNC_INITIAL_DELAY"
	EnvMetricsAddr  = "ROBOSYNC_METRICS_ADDR"
	EnvLogLevel     = "ROBOSYNC_LOG_LEVEL"
	EnvLogFormat    = "ROBOSYNC_LOG_FORMAT"
)

func (c *Config) applyEnvOverrides() {
	overrideString(EnvWorkDir, &c.WorkDir)
	overrideString(EnvDeviceID, &c.DeviceID)
	overrideString(EnvRemote, &c.Remote)
	overrideBool(EnvDisablePush, &c.DisablePush)
	overrideString(EnvJournalPath, &c.Journal.Path)
	overrideString(EnvNATSURL, &c.Events.URL)
	overrideDuration(EnvInterval, &c.Daemon.Interval)
	overrideDuration(EnvInitialDelay, &c.Daemon.InitialDelay)
	overrideString(EnvMetricsAddr, &c.Daemon.MetricsAddr)
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = LogLevel(v)
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Logging.Format = LogFormat(v)
	}
}

func overrideString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideBool(key string, dst *bool) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("Ignoring invalid boolean environment override", "key", key, "value", v)
		return
	}
	*dst = parsed
}

func overrideDuration(key string, dst *Duration) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("Ignoring invalid duration environment override", "key", key, "value", v)
		return
	}
	*dst = Duration(parsed)
}
