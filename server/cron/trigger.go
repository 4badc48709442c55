// Package cron runs the background progress sweep on a cron schedule.
//
// The CronTrigger type wraps a RunFunc and executes it according to a cron
// schedule. It is designed to be started once and run until the context is
// cancelled.
//
// Example usage:
//
//	sweep := cron.NewSweep(engine, board, dashboardMetrics, logger)
//	trigger, err := cron.NewCronTrigger("*/5 * * * *", sweep.Run, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	trigger.Start(ctx)  // Returns immediately, runs in background
//	<-ctx.Done()        // Wait for shutdown signal
package cron

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidCronSpec is returned when the cron specification cannot be parsed.
var ErrInvalidCronSpec = errors.New("invalid cron spec")

// RunFunc is the work triggered on each scheduled tick.
type RunFunc func(ctx context.Context) error

// CronTrigger executes a RunFunc according to a cron schedule. Runs never
// overlap: a tick that fires while the previous run is still going is skipped.
type CronTrigger struct {
	spec     string
	schedule cron.Schedule
	run      RunFunc
	logger   *slog.Logger
	running  atomic.Bool
	runs     atomic.Int64
}

// NewCronTrigger creates a new CronTrigger with the given cron specification.
// The spec follows standard cron format (5 fields: minute, hour, day, month, weekday).
// Returns ErrInvalidCronSpec if the specification cannot be parsed.
func NewCronTrigger(spec string, run RunFunc, logger *slog.Logger) (*CronTrigger, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, errors.Join(ErrInvalidCronSpec, err)
	}

	return &CronTrigger{
		spec:     spec,
		schedule: schedule,
		run:      run,
		logger:   logger,
	}, nil
}

// Spec returns the cron expression the trigger was created with.
func (ct *CronTrigger) Spec() string {
	return ct.spec
}

// Start launches a goroutine that triggers runs according to the cron schedule.
// Returns immediately. The goroutine exits when ctx is cancelled.
func (ct *CronTrigger) Start(ctx context.Context) {
	go ct.loop(ctx)
}

// NextRun returns the next scheduled run time from now.
func (ct *CronTrigger) NextRun() time.Time {
	return ct.schedule.Next(time.Now())
}

// Runs returns the number of runs started so far.
func (ct *CronTrigger) Runs() int64 {
	return ct.runs.Load()
}

// loop is the main scheduling loop that runs in a goroutine.
func (ct *CronTrigger) loop(ctx context.Context) {
	for {
		nextRun := ct.schedule.Next(time.Now())
		waitDuration := time.Until(nextRun)

		ct.logger.Debug("waiting for next scheduled sweep",
			"next_run", nextRun,
			"wait_duration", waitDuration,
		)

		timer := time.NewTimer(waitDuration)
		select {
		case <-ctx.Done():
			timer.Stop()
			ct.logger.Info("cron trigger shutting down")
			return
		case <-timer.C:
			go ct.execute(ctx)
		}
	}
}

// execute runs the RunFunc once unless a previous run is still in progress.
func (ct *CronTrigger) execute(ctx context.Context) {
	if !ct.running.CompareAndSwap(false, true) {
		ct.logger.Warn("previous sweep still running, skipping")
		return
	}
	defer ct.running.Store(false)
	ct.runs.Add(1)

	ct.logger.Info("starting scheduled sweep")
	if err := ct.run(ctx); err != nil {
		ct.logger.Warn("scheduled sweep completed with error", "error", err)
	} else {
		ct.logger.Info("scheduled sweep completed successfully")
	}
}
