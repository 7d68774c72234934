package cycle

import "time"

// Outcome is the terminal state of one synchronization cycle.
type Outcome string

const (
	// OutcomeNoChanges means the working tree was clean; nothing ran past
	// the status check.
	OutcomeNoChanges Outcome = "no-changes"
	// OutcomeCommittedNoPush means a local commit was created but the push
	// did not happen (remote unavailable or push disabled). Still success.
	OutcomeCommittedNoPush Outcome = "committed-no-push"
	// OutcomeCommittedAndPushed means the commit was created and published.
	OutcomeCommittedAndPushed Outcome = "committed-and-pushed"
	// OutcomeFailed means a hard stage failure stopped the cycle.
	OutcomeFailed Outcome = "failed"
)

// Stage names used in failure reporting and metrics labels.
const (
	StageStatus = "status"
	StageBranch = "branch"
	StageStage  = "stage"
	StageCommit = "commit"
	StagePush   = "push"
)

// Result is the tagged outcome of one synchronization attempt. It is
// constructed fresh per invocation and discarded after being reported.
type Result struct {
	ID        string
	Device    string
	Branch    string
	Outcome   Outcome
	Stage     string // failing stage, set only when Outcome is OutcomeFailed
	Detail    string
	Commit    string
	Message   string
	StartedAt time.Time
	Duration  time.Duration
}

// Success reports whether the cycle as a whole succeeded. A missed push
// never counts as failure: the local commit is the authoritative side
// effect.
func (r Result) Success() bool { return r.Outcome != OutcomeFailed }

// ExitCode maps the result onto the process exit status contract.
func (r Result) ExitCode() int {
	if r.Success() {
		return 0
	}
	return 1
}
