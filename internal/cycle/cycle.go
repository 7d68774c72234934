// Package cycle implements the synchronization state machine: one linear
// pass from status check through optional push. Each invocation is
// stateless and idempotent; all durable state lives in the repository.
package cycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/robolab/robosync/internal/identity"
	"git.home.luguber.info/robolab/robosync/internal/logfields"
	"git.home.luguber.info/robolab/robosync/internal/metrics"
	"github.com/google/uuid"
)

// Repo is the version-control surface the cycle drives. The concrete
// implementation lives in internal/git; tests substitute fakes.
type Repo interface {
	Status() (changed bool, err error)
	EnsureBranch(name string) error
	StageAll() error
	Commit(message string) (hash string, err error)
	Push(ctx context.Context, branch string) error
}

// Timestamp layout used in commit messages, second resolution.
const messageTimeLayout = "2006-01-02 15:04:05"

// Cycle runs one synchronization pass for a device against a repository.
type Cycle struct {
	repo     Repo
	device   identity.Identity
	push     bool
	now      func() time.Time
	recorder metrics.Recorder
}

// New creates a cycle for the given repository and device identity.
func New(repo Repo, device identity.Identity) *Cycle {
	return &Cycle{
		repo:     repo,
		device:   device,
		push:     true,
		now:      time.Now,
		recorder: metrics.NoopRecorder{},
	}
}

// WithRecorder injects a metrics recorder (fluent helper).
func (c *Cycle) WithRecorder(r metrics.Recorder) *Cycle {
	if r != nil {
		c.recorder = r
	}
	return c
}

// WithClock overrides the time source, used by tests for deterministic
// commit messages.
func (c *Cycle) WithClock(now func() time.Time) *Cycle {
	if now != nil {
		c.now = now
	}
	return c
}

// WithPushDisabled turns the push step off; committed cycles then terminate
// as OutcomeCommittedNoPush.
func (c *Cycle) WithPushDisabled() *Cycle {
	c.push = false
	return c
}

// Run executes exactly one cycle. It never returns an error: every failure
// is folded into the Result so callers map outcomes, not exceptions.
func (c *Cycle) Run(ctx context.Context) Result {
	started := c.now()
	runStart := time.Now()
	res := Result{
		ID:        uuid.NewString(),
		Device:    c.device.String(),
		Branch:    c.device.Branch(),
		StartedAt: started,
	}

	var changed bool
	err := c.timeStage(StageStatus, func() error {
		var serr error
		changed, serr = c.repo.Status()
		return serr
	})
	if err != nil {
		return c.finish(c.fail(res, StageStatus, err), runStart)
	}
	if !changed {
		res.Outcome = OutcomeNoChanges
		slog.Debug("Working tree unchanged, nothing to do",
			logfields.CycleID(res.ID), logfields.Branch(res.Branch))
		return c.finish(res, runStart)
	}

	if err := c.timeStage(StageBranch, func() error { return c.repo.EnsureBranch(res.Branch) }); err != nil {
		return c.finish(c.fail(res, StageBranch, err), runStart)
	}

	if err := c.timeStage(StageStage, c.repo.StageAll); err != nil {
		return c.finish(c.fail(res, StageStage, err), runStart)
	}

	res.Message = fmt.Sprintf("Auto-commit from %s: %s", c.device, started.Format(messageTimeLayout))
	err = c.timeStage(StageCommit, func() error {
		hash, cerr := c.repo.Commit(res.Message)
		res.Commit = hash
		return cerr
	})
	if err != nil {
		return c.finish(c.fail(res, StageCommit, err), runStart)
	}
	slog.Info("Committed working tree changes",
		logfields.CycleID(res.ID), logfields.Branch(res.Branch), logfields.Commit(res.Commit))

	if !c.push {
		res.Outcome = OutcomeCommittedNoPush
		res.Detail = "push disabled by configuration"
		return c.finish(res, runStart)
	}

	pushErr := c.timeStage(StagePush, func() error { return c.repo.Push(ctx, res.Branch) })
	c.recorder.IncPushResult(pushErr == nil)
	if pushErr != nil {
		// The authoritative side effect (the local commit) is already
		// durable; the next scheduled cycle retries the push for free.
		res.Outcome = OutcomeCommittedNoPush
		res.Detail = pushErr.Error()
		slog.Info("Push failed, keeping local commit",
			logfields.CycleID(res.ID), logfields.Branch(res.Branch), logfields.Error(pushErr))
		return c.finish(res, runStart)
	}

	res.Outcome = OutcomeCommittedAndPushed
	return c.finish(res, runStart)
}

func (c *Cycle) timeStage(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	c.recorder.ObserveStageDuration(stage, time.Since(start))
	if err != nil {
		c.recorder.IncStageResult(stage, metrics.ResultFailed)
	} else {
		c.recorder.IncStageResult(stage, metrics.ResultSuccess)
	}
	return err
}

func (c *Cycle) fail(res Result, stage string, err error) Result {
	res.Outcome = OutcomeFailed
	res.Stage = stage
	res.Detail = err.Error()
	return res
}

func (c *Cycle) finish(res Result, runStart time.Time) Result {
	res.Duration = time.Since(runStart)
	c.recorder.ObserveCycleDuration(res.Duration)
	c.recorder.IncCycleOutcome(string(res.Outcome))
	return res
}
