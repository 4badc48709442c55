// Package lifecycle models the client-side states of tasks and process
// instances as explicit finite state machines.
//
// The engine owns the authoritative state. These machines only track what the
// dashboard has observed and which action is in flight, so that concurrent
// per-row actions can be reasoned about and tested independently.
package lifecycle

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidTransition is returned when a state change is not allowed.
var ErrInvalidTransition = errors.New("invalid state transition")

// TaskState is the client-observed state of a task.
type TaskState int

const (
	TaskUnclaimed TaskState = iota
	TaskClaimed
	TaskCompleting
	TaskCompleted
)

// String returns a human-readable representation of the TaskState
func (s TaskState) String() string {
	switch s {
	case TaskUnclaimed:
		return "unclaimed"
	case TaskClaimed:
		return "claimed"
	case TaskCompleting:
		return "completing"
	case TaskCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler.
func (s TaskState) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Terminal reports whether no further transitions are possible.
func (s TaskState) Terminal() bool {
	return s == TaskCompleted
}

var taskTransitions = map[TaskState][]TaskState{
	TaskUnclaimed:  {TaskClaimed},
	TaskClaimed:    {TaskUnclaimed, TaskCompleting},
	TaskCompleting: {TaskCompleted, TaskClaimed},
}

// CanTransition reports whether a task may move from one state to another.
func CanTransition(from, to TaskState) bool {
	for _, allowed := range taskTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TaskStateFromAssignee seeds a task's state from engine data: a task with an
// assignee is claimed.
func TaskStateFromAssignee(assignee string) TaskState {
	if assignee != "" {
		return TaskClaimed
	}
	return TaskUnclaimed
}

// TaskMachine tracks the state of a single task. It is safe for concurrent use.
type TaskMachine struct {
	mu    sync.Mutex
	state TaskState
}

// NewTaskMachine creates a machine in the given state.
func NewTaskMachine(initial TaskState) *TaskMachine {
	return &TaskMachine{state: initial}
}

// State returns the current state.
func (m *TaskMachine) State() TaskState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Transition moves the machine to the given state.
func (m *TaskMachine) Transition(to TaskState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitionLocked(m.state, to)
}

// TransitionFrom moves the machine to the given state only if it is currently
// in from. It lets callers claim an action atomically.
func (m *TaskMachine) TransitionFrom(from, to TaskState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != from {
		return fmt.Errorf("%w: task is %s, want %s", ErrInvalidTransition, m.state, from)
	}
	return m.transitionLocked(from, to)
}

func (m *TaskMachine) transitionLocked(from, to TaskState) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	m.state = to
	return nil
}

// Sync adopts the state observed on the engine unless an action is in flight
// or the task has completed. It reports whether the state changed.
func (m *TaskMachine) Sync(observed TaskState) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == observed || m.state == TaskCompleting || m.state.Terminal() {
		return false
	}
	m.state = observed
	return true
}
