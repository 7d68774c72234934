// Package daemon runs the sync cycle on a fixed interval inside one
// process, for hosts without an external oneshot timer. Serialization of
// cycles comes from the scheduler's singleton mode plus a per-directory
// file lock; the cycle logic itself stays single-shot and stateless.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"git.home.luguber.info/robolab/robosync/internal/config"
	"git.home.luguber.info/robolab/robosync/internal/cycle"
	"git.home.luguber.info/robolab/robosync/internal/events"
	"git.home.luguber.info/robolab/robosync/internal/git"
	"git.home.luguber.info/robolab/robosync/internal/identity"
	"git.home.luguber.info/robolab/robosync/internal/journal"
	"git.home.luguber.info/robolab/robosync/internal/lock"
	"git.home.luguber.info/robolab/robosync/internal/logfields"
	"git.home.luguber.info/robolab/robosync/internal/metrics"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"
)

// cycleTimeout bounds one scheduled cycle; a wedged remote must not pile
// up cycles behind it.
const cycleTimeout = 5 * time.Minute

// Daemon owns the scheduler and the optional journal, event and metrics
// sinks around the per-tick sync cycle.
type Daemon struct {
	mu         sync.RWMutex
	cfg        *config.Config
	configPath string
	device     identity.Identity

	scheduler gocron.Scheduler
	jobID     uuid.UUID

	registry   *prom.Registry
	recorder   metrics.Recorder
	store      *journal.Store
	publisher  *events.Publisher
	locker     *lock.Locker
	httpServer *http.Server
	watcher    *ConfigWatcher
}

// New creates a daemon for the given configuration. configPath is watched
// for changes when non-empty.
func New(cfg *config.Config, configPath string) (*Daemon, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	return &Daemon{
		cfg:        cfg,
		configPath: configPath,
		device:     deviceFor(cfg),
		scheduler:  scheduler,
		recorder:   metrics.NoopRecorder{},
	}, nil
}

func deviceFor(cfg *config.Config) identity.Identity {
	if cfg.DeviceID != "" {
		return identity.From(cfg.DeviceID)
	}
	return identity.Resolve()
}

// Start acquires the working-directory lock, wires the sinks and begins
// periodic execution. It returns once the daemon is running.
func (d *Daemon) Start(ctx context.Context) error {
	cfg := d.snapshot()

	d.locker = lock.New(cfg.WorkDir)
	if err := d.locker.Acquire(); err != nil {
		return fmt.Errorf("acquire working-directory lock: %w", err)
	}

	if cfg.Journal.Path != "" {
		store, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			_ = d.locker.Release()
			return fmt.Errorf("open journal: %w", err)
		}
		d.store = store
	}

	if cfg.Events.URL != "" {
		publisher, err := events.NewPublisher(cfg.Events.URL, cfg.Events.SubjectPrefix)
		if err != nil {
			slog.Warn("Event publishing unavailable", logfields.Error(err))
		} else {
			d.publisher = publisher
		}
	}

	if cfg.Daemon.MetricsAddr != "" {
		d.registry = prom.NewRegistry()
		d.recorder = metrics.NewPrometheusRecorder(d.registry)
		d.startMetricsServer(cfg.Daemon.MetricsAddr)
	}

	interval := cfg.Daemon.Interval.Std()
	job, err := d.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(d.runCycle),
		gocron.WithName("sync-cycle"),
		// One cycle at a time; a tick that fires while the previous cycle
		// still runs is skipped, matching oneshot timer semantics.
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartDateTime(time.Now().Add(cfg.Daemon.InitialDelay.Std()))),
	)
	if err != nil {
		_ = d.locker.Release()
		return fmt.Errorf("schedule sync cycle: %w", err)
	}
	d.jobID = job.ID()
	d.scheduler.Start()

	if d.configPath != "" {
		watcher, err := NewConfigWatcher(d.configPath, d)
		if err != nil {
			slog.Warn("Config watching unavailable", logfields.Error(err))
		} else {
			d.watcher = watcher
			if err := watcher.Start(ctx); err != nil {
				slog.Warn("Config watcher failed to start", logfields.Error(err))
				d.watcher = nil
			}
		}
	}

	slog.Info("Daemon started",
		logfields.Path(cfg.WorkDir),
		logfields.Branch(d.Device().Branch()),
		logfields.Interval(interval.String()))
	return nil
}

// Stop shuts the scheduler down, waiting for a running cycle to finish,
// then closes the sinks and releases the lock.
func (d *Daemon) Stop(ctx context.Context) error {
	slog.Info("Stopping daemon")
	var firstErr error

	if d.watcher != nil {
		d.watcher.Stop()
	}
	if err := d.scheduler.Shutdown(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("shutdown scheduler: %w", err)
	}
	if d.httpServer != nil {
		if err := d.httpServer.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("shutdown metrics server: %w", err)
		}
	}
	if d.publisher != nil {
		d.publisher.Close()
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close journal: %w", err)
		}
	}
	if d.locker != nil {
		if err := d.locker.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// runCycle executes one scheduled synchronization pass.
func (d *Daemon) runCycle() {
	cfg := d.snapshot()
	device := d.Device()

	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()

	client := git.NewClient(cfg.WorkDir).
		WithRemote(cfg.Remote).
		WithAuthor(cfg.Author.Name, cfg.Author.Email)
	c := cycle.New(client, device).WithRecorder(d.recorder)
	if cfg.DisablePush {
		c = c.WithPushDisabled()
	}

	res := c.Run(ctx)
	d.report(ctx, res)
}

func (d *Daemon) report(ctx context.Context, res cycle.Result) {
	attrs := []any{
		logfields.CycleID(res.ID),
		logfields.Outcome(string(res.Outcome)),
		logfields.Branch(res.Branch),
		logfields.DurationMS(float64(res.Duration.Milliseconds())),
	}
	if res.Outcome == cycle.OutcomeFailed {
		attrs = append(attrs, logfields.Stage(res.Stage), slog.String("detail", res.Detail))
		slog.Error("Sync cycle failed", attrs...)
	} else {
		slog.Info("Sync cycle finished", attrs...)
	}

	if d.store != nil {
		if err := d.store.Append(ctx, journal.FromResult(res)); err != nil {
			slog.Warn("Journal append failed", logfields.CycleID(res.ID), logfields.Error(err))
		}
	}
	if d.publisher != nil {
		if err := d.publisher.Publish(res); err != nil {
			slog.Warn("Event publish failed", logfields.CycleID(res.ID), logfields.Error(err))
		}
	}
}

func (d *Daemon) startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(d.registry))
	d.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("Metrics listener started", slog.String("addr", addr))
		if err := d.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics listener failed", logfields.Error(err))
		}
	}()
}

func (d *Daemon) snapshot() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// GetConfig returns the active configuration.
func (d *Daemon) GetConfig() *config.Config { return d.snapshot() }

// Device returns the identity cycles currently commit as.
func (d *Daemon) Device() identity.Identity {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.device
}

// ReloadConfig applies a changed configuration. The working directory,
// journal path and metrics address are fixed for the process lifetime;
// changing those requires a restart. Interval changes reschedule the job
// in place; device and logging changes take effect from the next cycle.
func (d *Daemon) ReloadConfig(ctx context.Context, newCfg *config.Config) error {
	current := d.snapshot()

	if newCfg.WorkDir != current.WorkDir {
		return fmt.Errorf("work_dir change requires daemon restart")
	}
	if newCfg.Journal.Path != current.Journal.Path {
		return fmt.Errorf("journal path change requires daemon restart")
	}
	if newCfg.Daemon.MetricsAddr != current.Daemon.MetricsAddr {
		return fmt.Errorf("metrics_addr change requires daemon restart")
	}

	if newCfg.Daemon.Interval != current.Daemon.Interval {
		_, err := d.scheduler.Update(d.jobID,
			gocron.DurationJob(newCfg.Daemon.Interval.Std()),
			gocron.NewTask(d.runCycle),
			gocron.WithName("sync-cycle"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("reschedule sync cycle: %w", err)
		}
		slog.Info("Sync interval updated", logfields.Interval(newCfg.Daemon.Interval.Std().String()))
	}

	device := d.Device()
	if newCfg.DeviceID != current.DeviceID {
		device = deviceFor(newCfg)
		slog.Info("Device identity updated",
			logfields.Device(device.String()), logfields.Branch(device.Branch()))
	}

	if newCfg.Logging != current.Logging {
		slog.SetDefault(newCfg.Logging.NewLogger(os.Stderr, newCfg.Logging.Level.SlogLevel()))
		slog.Info("Logging configuration updated",
			slog.String("level", string(newCfg.Logging.Level)),
			slog.String("format", string(newCfg.Logging.Format)))
	}

	d.mu.Lock()
	d.cfg = newCfg
	d.device = device
	d.mu.Unlock()
	return nil
}
