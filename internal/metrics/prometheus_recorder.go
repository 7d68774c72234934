package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	stageDuration *prom.HistogramVec
	cycleDuration prom.Histogram
	stageResults  *prom.CounterVec
	cycleOutcome  *prom.CounterVec
	pushResults   *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "robosync",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual sync cycle stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.cycleDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "robosync",
			Name:      "cycle_duration_seconds",
			Help:      "Total sync cycle duration",
			Buckets:   prom.DefBuckets,
		})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "robosync",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.cycleOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "robosync",
			Name:      "cycle_outcomes_total",
			Help:      "Cycle outcomes by terminal state",
		}, []string{"outcome"})
		pr.pushResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "robosync",
			Name:      "push_results_total",
			Help:      "Push attempts by success/failure",
		}, []string{"result"})
		reg.MustRegister(pr.stageDuration, pr.cycleDuration, pr.stageResults, pr.cycleOutcome, pr.pushResults)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveCycleDuration(d time.Duration) {
	if p == nil || p.cycleDuration == nil {
		return
	}
	p.cycleDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncCycleOutcome(outcome string) {
	if p == nil || p.cycleOutcome == nil {
		return
	}
	p.cycleOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncPushResult(success bool) {
	if p == nil || p.pushResults == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.pushResults.WithLabelValues(res).Inc()
}
