// Package metrics exposes Prometheus collectors for the consistency engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"meridian/internal/engine/decider"
)

// Metrics counts command orchestration, conflict retries, checkpoint skips
// and saga completions.
type Metrics struct {
	commandsTotal    *prometheus.CounterVec
	conflictsTotal   *prometheus.CounterVec
	retriesScheduled *prometheus.CounterVec
	checkpointSkips  *prometheus.CounterVec
	sagaCompletions  *prometheus.CounterVec
}

// MustNew constructs and registers the collectors. Registering twice against
// the same registry reuses the existing collectors instead of panicking,
// which keeps multi-instance wiring (tests, worker + api in one process)
// safe.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meridian",
			Subsystem: "engine",
			Name:      "commands_total",
			Help:      "Commands processed, by stream type and result status.",
		}, []string{"stream_type", "status"}),
		conflictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meridian",
			Subsystem: "engine",
			Name:      "version_conflicts_total",
			Help:      "Optimistic-concurrency conflicts detected at commit.",
		}, []string{"stream_type"}),
		retriesScheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meridian",
			Subsystem: "engine",
			Name:      "conflict_retries_scheduled_total",
			Help:      "Serialized conflict retries handed to the scheduler.",
		}, []string{"stream_type"}),
		checkpointSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meridian",
			Subsystem: "engine",
			Name:      "checkpoint_skips_total",
			Help:      "Projection events skipped by the checkpoint guard.",
		}, []string{"projection"}),
		sagaCompletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "meridian",
			Subsystem: "engine",
			Name:      "saga_completions_total",
			Help:      "Sagas reaching a terminal status, by business outcome.",
		}, []string{"saga_type", "outcome"}),
	}

	m.commandsTotal = registerCounterVec(reg, m.commandsTotal)
	m.conflictsTotal = registerCounterVec(reg, m.conflictsTotal)
	m.retriesScheduled = registerCounterVec(reg, m.retriesScheduled)
	m.checkpointSkips = registerCounterVec(reg, m.checkpointSkips)
	m.sagaCompletions = registerCounterVec(reg, m.sagaCompletions)
	return m
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec) *prometheus.CounterVec {
	if err := reg.Register(vec); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return already.ExistingCollector.(*prometheus.CounterVec)
		}
		panic(err)
	}
	return vec
}

// CommandProcessed implements the orchestrator metrics hook.
func (m *Metrics) CommandProcessed(streamType string, status decider.Status) {
	m.commandsTotal.WithLabelValues(streamType, string(status)).Inc()
}

// ConflictDetected implements the orchestrator metrics hook.
func (m *Metrics) ConflictDetected(streamType string) {
	m.conflictsTotal.WithLabelValues(streamType).Inc()
}

// RetryScheduled counts a scheduled conflict retry.
func (m *Metrics) RetryScheduled(streamType string) {
	m.retriesScheduled.WithLabelValues(streamType).Inc()
}

// CheckpointSkipped counts an idempotent projection skip.
func (m *Metrics) CheckpointSkipped(projection string) {
	m.checkpointSkips.WithLabelValues(projection).Inc()
}

// SagaCompleted counts a terminal saga by business outcome.
func (m *Metrics) SagaCompleted(sagaType, outcome string) {
	m.sagaCompletions.WithLabelValues(sagaType, outcome).Inc()
}
