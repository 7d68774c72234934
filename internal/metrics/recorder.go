// Package metrics provides observability hooks for sync cycles. Components
// receive a Recorder by injection; the default NoopRecorder keeps the
// one-shot path free of any metrics dependency, and the daemon swaps in the
// Prometheus implementation.
package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
)

// Recorder defines observability hooks for cycle and stage metrics.
// Implementations must be safe to share across cycles.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveCycleDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncCycleOutcome(outcome string)
	IncPushResult(success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not
// configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveCycleDuration(time.Duration)         {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncCycleOutcome(string)                     {}
func (NoopRecorder) IncPushResult(bool)                         {}
