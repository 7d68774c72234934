package main

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/robolab/robosync/internal/config"
	"git.home.luguber.info/robolab/robosync/internal/cycle"
	"git.home.luguber.info/robolab/robosync/internal/events"
	"git.home.luguber.info/robolab/robosync/internal/git"
	"git.home.luguber.info/robolab/robosync/internal/journal"
	"git.home.luguber.info/robolab/robosync/internal/logfields"
)

// syncTimeout bounds the single cycle; the external timer must never find
// a previous invocation still wedged on a dead remote.
const syncTimeout = 5 * time.Minute

// runSync executes exactly one synchronization cycle and returns the
// process exit code. Scheduling is the caller's job (systemd timer, cron);
// overlapping invocations against one working directory are not supported.
func runSync(cfg *config.Config) int {
	if CLI.Sync.WorkDir != "" {
		cfg.WorkDir = CLI.Sync.WorkDir
	}
	if CLI.Sync.NoPush {
		cfg.DisablePush = true
	}
	device := resolveDevice(cfg)

	slog.Info("Starting sync cycle",
		logfields.Path(cfg.WorkDir),
		logfields.Branch(device.Branch()),
		logfields.Remote(cfg.Remote))

	client := git.NewClient(cfg.WorkDir).
		WithRemote(cfg.Remote).
		WithAuthor(cfg.Author.Name, cfg.Author.Email)
	c := cycle.New(client, device)
	if cfg.DisablePush {
		c = c.WithPushDisabled()
	}

	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()
	res := c.Run(ctx)

	recordResult(ctx, cfg, res)
	reportResult(res)
	return res.ExitCode()
}

// recordResult feeds the optional journal and event sinks. Neither may
// change the cycle's classification.
func recordResult(ctx context.Context, cfg *config.Config, res cycle.Result) {
	if cfg.Journal.Path != "" {
		store, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			slog.Warn("Journal unavailable", logfields.Error(err))
		} else {
			if err := store.Append(ctx, journal.FromResult(res)); err != nil {
				slog.Warn("Journal append failed", logfields.Error(err))
			}
			if err := store.Close(); err != nil {
				slog.Warn("Failed to close journal", logfields.Error(err))
			}
		}
	}

	if cfg.Events.URL != "" {
		publisher, err := events.NewPublisher(cfg.Events.URL, cfg.Events.SubjectPrefix)
		if err != nil {
			slog.Warn("Event publishing unavailable", logfields.Error(err))
		} else {
			if err := publisher.Publish(res); err != nil {
				slog.Warn("Event publish failed", logfields.Error(err))
			}
			publisher.Close()
		}
	}
}

func reportResult(res cycle.Result) {
	attrs := []any{
		logfields.CycleID(res.ID),
		logfields.Outcome(string(res.Outcome)),
		logfields.Branch(res.Branch),
		logfields.DurationMS(float64(res.Duration.Milliseconds())),
	}
	switch res.Outcome {
	case cycle.OutcomeFailed:
		attrs = append(attrs, logfields.Stage(res.Stage), slog.String("detail", res.Detail))
		slog.Error("Sync cycle failed", attrs...)
	case cycle.OutcomeCommittedNoPush:
		attrs = append(attrs, slog.String("detail", res.Detail), logfields.Commit(res.Commit))
		slog.Info("Sync cycle finished", attrs...)
	case cycle.OutcomeCommittedAndPushed:
		attrs = append(attrs, logfields.Commit(res.Commit))
		slog.Info("Sync cycle finished", attrs...)
	default:
		slog.Info("Sync cycle finished", attrs...)
	}
}
