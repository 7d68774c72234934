package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.WorkDir == "" {
		t.Error("expected work_dir default to current directory")
	}
	if cfg.Remote != "origin" {
		t.Errorf("expected remote origin, got %q", cfg.Remote)
	}
	if cfg.Daemon.Interval.Std() != 10*time.Minute {
		t.Errorf("expected 10m interval, got %s", cfg.Daemon.Interval.Std())
	}
	if cfg.Daemon.InitialDelay.Std() != time.Minute {
		t.Errorf("expected 1m initial delay, got %s", cfg.Daemon.InitialDelay.Std())
	}
	if cfg.Logging.Level != LogLevelInfo || cfg.Logging.Format != LogFormatText {
		t.Errorf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.DisablePush {
		t.Error("push should be enabled by default")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "robosync.yaml")
	content := `
work_dir: /srv/robot-state
device_id: unit1
remote: upstream
journal:
  path: /var/lib/robosync/journal.db
events:
  url: nats://localhost:4222
daemon:
  interval: 5m
  initial_delay: 30s
  metrics_addr: ":9102"
logging:
  level: DEBUG
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.WorkDir != "/srv/robot-state" {
		t.Errorf("work_dir = %q", cfg.WorkDir)
	}
	if cfg.DeviceID != "unit1" {
		t.Errorf("device_id = %q", cfg.DeviceID)
	}
	if cfg.Remote != "upstream" {
		t.Errorf("remote = %q", cfg.Remote)
	}
	if cfg.Journal.Path != "/var/lib/robosync/journal.db" {
		t.Errorf("journal path = %q", cfg.Journal.Path)
	}
	if cfg.Events.URL != "nats://localhost:4222" {
		t.Errorf("events url = %q", cfg.Events.URL)
	}
	if cfg.Daemon.Interval.Std() != 5*time.Minute {
		t.Errorf("interval = %s", cfg.Daemon.Interval.Std())
	}
	if cfg.Daemon.InitialDelay.Std() != 30*time.Second {
		t.Errorf("initial_delay = %s", cfg.Daemon.InitialDelay.Std())
	}
	if cfg.Daemon.MetricsAddr != ":9102" {
		t.Errorf("metrics_addr = %q", cfg.Daemon.MetricsAddr)
	}
	if cfg.Logging.Level != LogLevelDebug {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != LogFormatJSON {
		t.Errorf("format = %q", cfg.Logging.Format)
	}
}

func TestEnvOverridesBeatFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "robosync.yaml")
	if err := os.WriteFile(path, []byte("remote: upstream\ndevice_id: unit1\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(EnvRemote, "mirror")
	t.Setenv(EnvDeviceID, "unit2")
	t.Setenv(EnvInterval, "90s")
	t.Setenv(EnvDisablePush, "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Remote != "mirror" {
		t.Errorf("remote = %q, want env override", cfg.Remote)
	}
	if cfg.DeviceID != "unit2" {
		t.Errorf("device_id = %q, want env override", cfg.DeviceID)
	}
	if cfg.Daemon.Interval.Std() != 90*time.Second {
		t.Errorf("interval = %s, want 90s", cfg.Daemon.Interval.Std())
	}
	if !cfg.DisablePush {
		t.Error("expected push disabled via env")
	}
}

func TestInvalidDurationRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "robosync.yaml")
	if err := os.WriteFile(path, []byte("daemon:\n  interval: soon\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}

func TestIntervalBelowMinimumRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "robosync.yaml")
	if err := os.WriteFile(path, []byte("daemon:\n  interval: 100ms\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for sub-second interval")
	}
}

func TestNewLoggerFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	lc := LoggingConfig{Level: LogLevelInfo, Format: LogFormatJSON}
	logger := lc.NewLogger(&buf, slog.LevelInfo)

	logger.Debug("below-threshold")
	logger.Info("visible")

	out := buf.String()
	if strings.Contains(out, "below-threshold") {
		t.Error("debug record should be filtered at info level")
	}
	if !strings.Contains(out, `"msg":"visible"`) {
		t.Errorf("expected JSON output, got %q", out)
	}

	buf.Reset()
	lc.Format = LogFormatText
	lc.NewLogger(&buf, slog.LevelDebug).Debug("now-visible")
	if !strings.Contains(buf.String(), "now-visible") {
		t.Error("debug record should pass at debug level")
	}
}

func TestNormalizers(t *testing.T) {
	if NormalizeLogLevel("WARN") != LogLevelWarn {
		t.Error("WARN should normalize to warn")
	}
	if NormalizeLogLevel("verbose") != LogLevelInfo {
		t.Error("unknown level should fall back to info")
	}
	if NormalizeLogFormat("JSON") != LogFormatJSON {
		t.Error("JSON should normalize to json")
	}
	if NormalizeLogFormat("xml") != LogFormatText {
		t.Error("unknown format should fall back to text")
	}
}
