package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nomis52/taskboard/clients/engineclient"
	"github.com/nomis52/taskboard/lifecycle"
	"github.com/nomis52/taskboard/logging"
	"github.com/nomis52/taskboard/metrics"
	"github.com/nomis52/taskboard/taskvars"
)

// ErrMissingUser is returned when a claim names no user.
var ErrMissingUser = errors.New("user id is required")

// DefaultTaskRetention is how long a task is remembered after it was last
// listed or acted on.
const DefaultTaskRetention = 15 * time.Minute

// TaskEngine performs task mutations on the engine.
type TaskEngine interface {
	Claim(ctx context.Context, taskID, userID string) error
	Unclaim(ctx context.Context, taskID string) error
	Complete(ctx context.Context, taskID string, variables map[string]any) error
}

// Actions drives operator actions on tasks. Each task has its own
// lifecycle.TaskMachine, so actions on different tasks proceed independently.
// Every action is exactly one engine call; nothing is retried.
type Actions struct {
	engine  TaskEngine
	builder *taskvars.Builder
	logger  *slog.Logger
	metrics *metrics.DashboardMetrics
	audit   *logging.AuditLog

	retention time.Duration
	now       func() time.Time

	mu    sync.Mutex
	tasks map[string]*trackedTask
}

type trackedTask struct {
	machine *lifecycle.TaskMachine
	touched time.Time
}

// ActionsOption configures Actions.
type ActionsOption func(*Actions)

// WithActionsLogger sets the logger.
func WithActionsLogger(logger *slog.Logger) ActionsOption {
	return func(a *Actions) {
		a.logger = logger
	}
}

// WithActionsMetrics records action outcomes.
func WithActionsMetrics(m *metrics.DashboardMetrics) ActionsOption {
	return func(a *Actions) {
		a.metrics = m
	}
}

// WithAuditLog captures every action log line per task.
func WithAuditLog(audit *logging.AuditLog) ActionsOption {
	return func(a *Actions) {
		a.audit = audit
	}
}

// WithTaskRetention sets how long an idle task is tracked before Prune
// forgets it.
func WithTaskRetention(d time.Duration) ActionsOption {
	return func(a *Actions) {
		if d > 0 {
			a.retention = d
		}
	}
}

// NewActions creates Actions submitting to engine and building completion
// variables with builder.
func NewActions(engine TaskEngine, builder *taskvars.Builder, opts ...ActionsOption) *Actions {
	a := &Actions{
		engine:  engine,
		builder: builder,
		logger:    slog.Default(),
		retention: DefaultTaskRetention,
		now:       time.Now,
		tasks:     make(map[string]*trackedTask),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Observe seeds or refreshes the tracked state of a task from engine data.
// A task with an action in flight or already completed here is left alone.
func (a *Actions) Observe(task engineclient.Task) {
	observed := lifecycle.TaskStateFromAssignee(task.Assignee)

	a.mu.Lock()
	defer a.mu.Unlock()
	if t, ok := a.tasks[task.ID]; ok {
		t.machine.Sync(observed)
		t.touched = a.now()
		return
	}
	a.tasks[task.ID] = &trackedTask{machine: lifecycle.NewTaskMachine(observed), touched: a.now()}
}

// State returns the tracked state of a task.
func (a *Actions) State(taskID string) (lifecycle.TaskState, bool) {
	a.mu.Lock()
	t, ok := a.tasks[taskID]
	a.mu.Unlock()
	if !ok {
		return lifecycle.TaskUnclaimed, false
	}
	return t.machine.State(), true
}

// Prune forgets tasks that have been neither listed nor acted on within the
// retention window, together with their audit entries. A task with a
// completion in flight is kept. It returns the number of tasks forgotten.
func (a *Actions) Prune() int {
	cutoff := a.now().Add(-a.retention)

	a.mu.Lock()
	var forgotten []string
	for id, t := range a.tasks {
		if t.touched.Before(cutoff) && t.machine.State() != lifecycle.TaskCompleting {
			delete(a.tasks, id)
			forgotten = append(forgotten, id)
		}
	}
	a.mu.Unlock()

	for _, id := range forgotten {
		a.audit.Forget(id)
	}
	if len(forgotten) > 0 {
		a.logger.Debug("forgot idle tasks", "tasks", len(forgotten))
	}
	return len(forgotten)
}

// Actionable observes tasks and returns those not completed here, in order.
// Tasks idle for longer than the retention window are pruned afterwards.
func (a *Actions) Actionable(tasks []engineclient.Task) []engineclient.Task {
	defer a.Prune()
	out := make([]engineclient.Task, 0, len(tasks))
	for _, t := range tasks {
		a.Observe(t)
		if state, _ := a.State(t.ID); state.Terminal() {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Claim assigns the task to userID. The task must be unclaimed. On rejection
// the task stays unclaimed and the engine's message is returned unchanged.
func (a *Actions) Claim(ctx context.Context, taskID, userID string) error {
	if userID == "" {
		return ErrMissingUser
	}
	logger := a.taskLogger(taskID)
	m := a.machine(taskID)
	if state := m.State(); state != lifecycle.TaskUnclaimed {
		return fmt.Errorf("%w: cannot claim task in state %s", lifecycle.ErrInvalidTransition, state)
	}

	err := a.engine.Claim(ctx, taskID, userID)
	a.record(string(engineclient.OpClaim), err)
	if err != nil {
		logger.Warn("claim failed", "user_id", userID, logging.KeyError, err)
		return err
	}

	if err := m.TransitionFrom(lifecycle.TaskUnclaimed, lifecycle.TaskClaimed); err != nil {
		logger.Warn("task changed state during claim", logging.KeyError, err)
	}
	logger.Info("task claimed", "user_id", userID)
	return nil
}

// Unclaim removes the assignee. The task must be claimed.
func (a *Actions) Unclaim(ctx context.Context, taskID string) error {
	logger := a.taskLogger(taskID)
	m := a.machine(taskID)
	if state := m.State(); state != lifecycle.TaskClaimed {
		return fmt.Errorf("%w: cannot unclaim task in state %s", lifecycle.ErrInvalidTransition, state)
	}

	err := a.engine.Unclaim(ctx, taskID)
	a.record(string(engineclient.OpUnclaim), err)
	if err != nil {
		logger.Warn("unclaim failed", logging.KeyError, err)
		return err
	}

	if err := m.TransitionFrom(lifecycle.TaskClaimed, lifecycle.TaskUnclaimed); err != nil {
		logger.Warn("task changed state during unclaim", logging.KeyError, err)
	}
	logger.Info("task unclaimed")
	return nil
}

// Complete builds the completion variables for a task of type
// taskDefinitionKey from raw and submits them. The task must be claimed and
// is completing while the call is in flight, so a second concurrent Complete
// fails without reaching the engine. On failure the task returns to claimed.
// The submitted variables are returned on success.
func (a *Actions) Complete(ctx context.Context, taskID, taskDefinitionKey string, raw map[string]any) (map[string]any, error) {
	logger := a.taskLogger(taskID)
	m := a.machine(taskID)
	if err := m.TransitionFrom(lifecycle.TaskClaimed, lifecycle.TaskCompleting); err != nil {
		return nil, err
	}

	builder := a.currentBuilder()
	vars := builder.Build(taskDefinitionKey, raw)
	if !builder.Knows(taskDefinitionKey) {
		logger.Debug("no variable rules for task type, submitting input unchanged", "task_definition_key", taskDefinitionKey)
	}

	err := a.engine.Complete(ctx, taskID, vars)
	a.record(string(engineclient.OpComplete), err)
	if err != nil {
		if rerr := m.TransitionFrom(lifecycle.TaskCompleting, lifecycle.TaskClaimed); rerr != nil {
			logger.Error("failed to revert task state", logging.KeyError, rerr)
		}
		logger.Warn("completion failed", logging.KeyError, err)
		return nil, err
	}

	if err := m.TransitionFrom(lifecycle.TaskCompleting, lifecycle.TaskCompleted); err != nil {
		logger.Error("failed to mark task completed", logging.KeyError, err)
	}
	logger.Info("task completed", "task_definition_key", taskDefinitionKey, "variables", len(vars))
	return vars, nil
}

// SetBuilder replaces the completion variable builder. Completions already
// in flight keep the builder they started with.
func (a *Actions) SetBuilder(builder *taskvars.Builder) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.builder = builder
}

func (a *Actions) currentBuilder() *taskvars.Builder {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.builder
}

// machine returns the tracked machine for taskID, creating an unclaimed one
// if the task has not been observed, and marks the task as recently used.
func (a *Actions) machine(taskID string) *lifecycle.TaskMachine {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.tasks[taskID]
	if !ok {
		t = &trackedTask{machine: lifecycle.NewTaskMachine(lifecycle.TaskUnclaimed)}
		a.tasks[taskID] = t
	}
	t.touched = a.now()
	return t.machine
}

func (a *Actions) taskLogger(taskID string) *slog.Logger {
	return a.audit.Logger(a.logger, taskID).With(logging.KeyTaskID, taskID)
}

func (a *Actions) record(action string, err error) {
	a.metrics.RecordAction(action, err, engineclient.IsRejection(err))
}
