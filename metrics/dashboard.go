package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Fetch and action outcomes used as label values.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected"
)

// DashboardMetrics holds the instruments recorded by the dashboard. A nil
// *DashboardMetrics is valid and records nothing.
type DashboardMetrics struct {
	progress     GaugeVec
	fetches      CounterVec
	actions      CounterVec
	unregistered CounterVec

	mu sync.Mutex
	// instances maps an instance id to the process kind of its progress gauge.
	instances map[string]string
}

// NewDashboardMetrics creates the dashboard instruments in registry.
func NewDashboardMetrics(registry Registry) (*DashboardMetrics, error) {
	progress, err := registry.NewGaugeVec(prometheus.GaugeOpts{
		Name: "progress_percentage",
		Help: "Completion percentage of a process instance",
	}, []string{"process_kind", "instance_id"})
	if err != nil {
		return nil, err
	}

	fetches, err := registry.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshot_fetches_total",
		Help: "Process status snapshot fetches by outcome",
	}, []string{"outcome"})
	if err != nil {
		return nil, err
	}

	actions, err := registry.NewCounterVec(prometheus.CounterOpts{
		Name: "task_actions_total",
		Help: "Task claim, unclaim and complete calls by outcome",
	}, []string{"action", "outcome"})
	if err != nil {
		return nil, err
	}

	unregistered, err := registry.NewCounterVec(prometheus.CounterOpts{
		Name: "unregistered_activities_total",
		Help: "Activities reported by the engine that are not in the step registry",
	}, []string{"process_kind"})
	if err != nil {
		return nil, err
	}

	return &DashboardMetrics{
		progress:     progress,
		fetches:      fetches,
		actions:      actions,
		unregistered: unregistered,
		instances:    make(map[string]string),
	}, nil
}

// RecordProgress sets the completion percentage of an instance.
func (m *DashboardMetrics) RecordProgress(processKind, instanceID string, percentage int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if kind, ok := m.instances[instanceID]; ok && kind != processKind {
		m.progress.Delete(progressLabels(kind, instanceID))
	}
	m.instances[instanceID] = processKind
	m.progress.With(progressLabels(processKind, instanceID)).Set(float64(percentage))
}

// RetainInstances deletes the progress gauges of every instance not in live,
// so instances that ended or vanished stop reporting their last value. It
// returns the number of gauges deleted.
func (m *DashboardMetrics) RetainInstances(live map[string]bool) int {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	for id, kind := range m.instances {
		if live[id] {
			continue
		}
		m.progress.Delete(progressLabels(kind, id))
		delete(m.instances, id)
		deleted++
	}
	return deleted
}

func progressLabels(processKind, instanceID string) prometheus.Labels {
	return prometheus.Labels{
		"process_kind": processKind,
		"instance_id":  instanceID,
	}
}

// RecordFetch counts one snapshot fetch.
func (m *DashboardMetrics) RecordFetch(err error) {
	if m == nil {
		return
	}
	m.fetches.With(prometheus.Labels{"outcome": outcome(err)}).Inc()
}

// RecordAction counts one task action. Rejections by the engine are counted
// separately from other failures.
func (m *DashboardMetrics) RecordAction(action string, err error, rejected bool) {
	if m == nil {
		return
	}
	o := outcome(err)
	if err != nil && rejected {
		o = OutcomeRejected
	}
	m.actions.With(prometheus.Labels{"action": action, "outcome": o}).Inc()
}

// RecordUnregistered counts activities outside the step registry.
func (m *DashboardMetrics) RecordUnregistered(processKind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.unregistered.With(prometheus.Labels{"process_kind": processKind}).Add(float64(n))
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
