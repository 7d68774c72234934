package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/robolab/robosync/internal/config"
	"git.home.luguber.info/robolab/robosync/internal/daemon"
	"git.home.luguber.info/robolab/robosync/internal/identity"
	"git.home.luguber.info/robolab/robosync/internal/journal"
	"git.home.luguber.info/robolab/robosync/internal/logfields"
	"git.home.luguber.info/robolab/robosync/internal/version"
	"github.com/alecthomas/kong"
)

var CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"robosync.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `help:"Show version and exit"`

	Sync struct {
		WorkDir string `short:"w" help:"Working directory to synchronize (overrides config)"`
		Device  string `short:"d" help:"Device identity (overrides config and host name)"`
		NoPush  bool   `help:"Commit locally without pushing"`
	} `cmd:"" help:"Run exactly one synchronization cycle"`

	Daemon struct{} `cmd:"" help:"Run periodic synchronization in-process"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Write a starter configuration file"`

	History struct {
		Limit int `short:"n" help:"Number of cycles to show" default:"20"`
	} `cmd:"" help:"Show recent cycle results from the journal"`
}

func main() {
	ctx := kong.Parse(&CLI, kong.Vars{"version": version.Version})

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "robosync: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg)

	switch ctx.Command() {
	case "sync":
		os.Exit(runSync(cfg))
	case "init":
		if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", logfields.Error(err))
			os.Exit(1)
		}
		slog.Info("Configuration file written", logfields.Path(CLI.Config))
	case "daemon":
		if err := runDaemon(cfg); err != nil {
			slog.Error("Daemon failed", logfields.Error(err))
			os.Exit(1)
		}
	case "history":
		if err := runHistory(cfg, CLI.History.Limit); err != nil {
			slog.Error("History failed", logfields.Error(err))
			os.Exit(1)
		}
	}
}

func setupLogging(cfg *config.Config) {
	level := cfg.Logging.Level.SlogLevel()
	if CLI.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(cfg.Logging.NewLogger(os.Stderr, level))
}

func runDaemon(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := daemon.New(cfg, CLI.Config)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	<-ctx.Done()
	slog.Info("Shutdown signal received, stopping daemon...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := d.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop daemon: %w", err)
	}
	slog.Info("Daemon stopped")
	return nil
}

func runHistory(cfg *config.Config, limit int) error {
	if cfg.Journal.Path == "" {
		return fmt.Errorf("no journal path configured")
	}
	store, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			slog.Warn("Failed to close journal", logfields.Error(cerr))
		}
	}()

	records, err := store.Recent(context.Background(), limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no recorded cycles")
		return nil
	}
	for _, rec := range records {
		line := fmt.Sprintf("%s  %-20s  %s", rec.StartedAt.Format(time.RFC3339), rec.Outcome, rec.Branch)
		if rec.CommitHash != "" {
			line += "  " + rec.CommitHash[:8]
		}
		if rec.Outcome == "failed" {
			line += fmt.Sprintf("  [%s] %s", rec.Stage, rec.Detail)
		}
		fmt.Println(line)
	}
	return nil
}

// resolveDevice applies the flag > config > host-name precedence.
func resolveDevice(cfg *config.Config) identity.Identity {
	if CLI.Sync.Device != "" {
		return identity.From(CLI.Sync.Device)
	}
	if cfg.DeviceID != "" {
		return identity.From(cfg.DeviceID)
	}
	return identity.Resolve()
}
