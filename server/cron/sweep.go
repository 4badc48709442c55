package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nomis52/taskboard/clients/engineclient"
	"github.com/nomis52/taskboard/dashboard"
)

// InstanceLister lists the active process instances.
type InstanceLister interface {
	ListProcessInstances(ctx context.Context, definitionKey string) ([]engineclient.ProcessInstance, error)
}

// ProgressBoard derives progress for a batch of instances.
type ProgressBoard interface {
	Progress(ctx context.Context, refs []dashboard.InstanceRef) map[string]dashboard.InstanceProgress
}

// GaugeRetainer drops the progress gauges of instances that are no longer
// active.
type GaugeRetainer interface {
	RetainInstances(live map[string]bool) int
}

// Sweep recomputes progress for every active instance so the progress gauges
// stay current between dashboard requests, and drops the gauges of instances
// that have left the active list. Results are not kept.
type Sweep struct {
	lister InstanceLister
	board  ProgressBoard
	gauges GaugeRetainer
	logger *slog.Logger
}

// NewSweep creates a Sweep.
func NewSweep(lister InstanceLister, board ProgressBoard, gauges GaugeRetainer, logger *slog.Logger) *Sweep {
	return &Sweep{
		lister: lister,
		board:  board,
		gauges: gauges,
		logger: logger,
	}
}

// Run performs one sweep. It fails if the instances cannot be listed or if
// any snapshot was unavailable.
func (s *Sweep) Run(ctx context.Context) error {
	instances, err := s.lister.ListProcessInstances(ctx, "")
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	refs := make([]dashboard.InstanceRef, 0, len(instances))
	live := make(map[string]bool, len(instances))
	for _, inst := range instances {
		refs = append(refs, dashboard.RefFor(inst.ID, inst.ProcessDefinitionID))
		live[inst.ID] = true
	}

	results := s.board.Progress(ctx, refs)
	dropped := s.gauges.RetainInstances(live)

	unavailable := 0
	for _, p := range results {
		if errors.Is(p.Err, dashboard.ErrSnapshotUnavailable) {
			unavailable++
		}
	}
	s.logger.Info("sweep finished", "instances", len(results), "unavailable", unavailable, "gauges_dropped", dropped)

	if unavailable > 0 {
		return fmt.Errorf("sweep: %w for %d of %d instances", dashboard.ErrSnapshotUnavailable, unavailable, len(results))
	}
	return nil
}
