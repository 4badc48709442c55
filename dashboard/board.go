package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nomis52/taskboard/lifecycle"
	"github.com/nomis52/taskboard/logging"
	"github.com/nomis52/taskboard/metrics"
	"github.com/nomis52/taskboard/progress"
	"github.com/nomis52/taskboard/steps"
)

const (
	DefaultMaxConcurrentFetches = 8
	DefaultFetchTimeout         = 10 * time.Second
)

// Board derives progress for many process instances. Every call fetches
// fresh snapshots; nothing is cached between calls.
type Board struct {
	source        SnapshotSource
	registry      *steps.Registry
	logger        *slog.Logger
	metrics       *metrics.DashboardMetrics
	maxConcurrent int
	fetchTimeout  time.Duration
}

// Option configures a Board.
type Option func(*Board)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Board) {
		b.logger = logger
	}
}

// WithMetrics records fetch outcomes and percentages.
func WithMetrics(m *metrics.DashboardMetrics) Option {
	return func(b *Board) {
		b.metrics = m
	}
}

// WithMaxConcurrentFetches bounds the number of in-flight snapshot fetches.
func WithMaxConcurrentFetches(n int) Option {
	return func(b *Board) {
		if n > 0 {
			b.maxConcurrent = n
		}
	}
}

// WithFetchTimeout bounds each snapshot fetch individually.
func WithFetchTimeout(d time.Duration) Option {
	return func(b *Board) {
		if d > 0 {
			b.fetchTimeout = d
		}
	}
}

// NewBoard creates a Board reading snapshots from source and step sequences
// from registry.
func NewBoard(source SnapshotSource, registry *steps.Registry, opts ...Option) *Board {
	b := &Board{
		source:        source,
		registry:      registry,
		logger:        slog.Default(),
		maxConcurrent: DefaultMaxConcurrentFetches,
		fetchTimeout:  DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Progress computes the progress of every referenced instance. Instances are
// fetched concurrently and independently: a failed fetch marks only that
// instance as unknown. Duplicate references are fetched once. The returned
// map is keyed by instance id and has an entry for every distinct id.
func (b *Board) Progress(ctx context.Context, refs []InstanceRef) map[string]InstanceProgress {
	batchID := uuid.NewString()
	logger := b.logger.With(logging.KeyBatchID, batchID)
	start := time.Now()

	results := NewCollection()
	sem := make(chan struct{}, b.maxConcurrent)
	var wg sync.WaitGroup

	for _, ref := range refs {
		if _, seen := results.Get(ref.InstanceID); seen {
			continue
		}
		results.Set(InstanceProgress{
			InstanceID:  ref.InstanceID,
			ProcessKind: ref.ProcessKind,
			State:       lifecycle.InstanceLoading,
		})

		wg.Add(1)
		go func(ref InstanceRef) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results.Set(unknown(ref, fmt.Errorf("%w: %w", ErrSnapshotUnavailable, ctx.Err())))
				return
			}
			results.Set(b.instance(ctx, logger, ref))
		}(ref)
	}
	wg.Wait()

	all := results.All()
	failed := 0
	for _, p := range all {
		if p.State != lifecycle.InstanceLoaded {
			failed++
		}
	}
	logger.Info("progress batch complete",
		"instances", len(all),
		"failed", failed,
		"duration", time.Since(start),
	)
	return all
}

// InstanceProgress computes the progress of a single instance.
func (b *Board) InstanceProgress(ctx context.Context, ref InstanceRef) InstanceProgress {
	return b.instance(ctx, b.logger, ref)
}

func (b *Board) instance(ctx context.Context, logger *slog.Logger, ref InstanceRef) InstanceProgress {
	logger = logger.With(logging.KeyInstanceID, ref.InstanceID, logging.KeyProcessKind, ref.ProcessKind)

	seq, err := b.registry.DefinitionFor(ref.ProcessKind)
	if err != nil {
		logger.Warn("no step sequence for process kind", logging.KeyError, err)
		return unknown(ref, err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, b.fetchTimeout)
	defer cancel()

	snap, err := b.source.ProcessStatus(fetchCtx, ref.InstanceID)
	b.metrics.RecordFetch(err)
	if err != nil {
		logger.Error("failed to fetch process status", logging.KeyError, err)
		return unknown(ref, fmt.Errorf("%w: %w", ErrSnapshotUnavailable, err))
	}

	c := progress.Classify(snap, seq)
	if len(c.Unregistered) > 0 {
		logger.Debug("ignoring unregistered activities", "activity_ids", c.Unregistered)
		b.metrics.RecordUnregistered(ref.ProcessKind, len(c.Unregistered))
	}
	if len(c.Mismatched) > 0 {
		logger.Warn("activity end times disagree with the engine's lists", "activity_ids", c.Mismatched)
	}

	p := progress.Compute(seq, snap)
	b.metrics.RecordProgress(ref.ProcessKind, ref.InstanceID, p.Percentage)
	logger.Debug("progress computed", "percentage", p.Percentage, "ended", snap.IsEnded)

	return InstanceProgress{
		InstanceID:  ref.InstanceID,
		ProcessKind: ref.ProcessKind,
		State:       lifecycle.InstanceLoaded,
		Progress:    &p,
	}
}

func unknown(ref InstanceRef, err error) InstanceProgress {
	return InstanceProgress{
		InstanceID:  ref.InstanceID,
		ProcessKind: ref.ProcessKind,
		State:       lifecycle.InstanceUnknown,
		Err:         err,
	}
}
