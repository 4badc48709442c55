package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/taskboard/clients/engineclient"
	"github.com/nomis52/taskboard/lifecycle"
	"github.com/nomis52/taskboard/logging"
	"github.com/nomis52/taskboard/taskvars"
)

type completeCall struct {
	taskID string
	vars   map[string]any
}

// fakeEngine records calls and fails with the configured errors.
type fakeEngine struct {
	mu          sync.Mutex
	claimErr    error
	unclaimErr  error
	completeErr error
	claims      []string
	unclaims    []string
	completes   []completeCall
	release     chan struct{}
}

func (f *fakeEngine) Claim(ctx context.Context, taskID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claims = append(f.claims, taskID+":"+userID)
	return f.claimErr
}

func (f *fakeEngine) Unclaim(ctx context.Context, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unclaims = append(f.unclaims, taskID)
	return f.unclaimErr
}

func (f *fakeEngine) Complete(ctx context.Context, taskID string, vars map[string]any) error {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completes = append(f.completes, completeCall{taskID: taskID, vars: vars})
	return f.completeErr
}

func newActions(engine *fakeEngine, opts ...ActionsOption) *Actions {
	opts = append([]ActionsOption{WithActionsLogger(logging.Discard())}, opts...)
	return NewActions(engine, taskvars.NewBuilder(taskvars.DefaultTable()), opts...)
}

func rejection(op engineclient.Operation, msg string) error {
	return &engineclient.RejectionError{Op: op, TaskID: "t1", StatusCode: 500, Message: msg}
}

func TestActions_ClaimSuccess(t *testing.T) {
	engine := &fakeEngine{}
	actions := newActions(engine)
	actions.Observe(engineclient.Task{ID: "t1"})

	require.NoError(t, actions.Claim(context.Background(), "t1", "manager1"))

	state, ok := actions.State("t1")
	assert.True(t, ok)
	assert.Equal(t, lifecycle.TaskClaimed, state)
	assert.Equal(t, []string{"t1:manager1"}, engine.claims)
}

func TestActions_ClaimRejectedStaysUnclaimed(t *testing.T) {
	msg := "Cannot claim task 't1': task is already claimed by someone else."
	engine := &fakeEngine{claimErr: rejection(engineclient.OpClaim, msg)}
	actions := newActions(engine)
	actions.Observe(engineclient.Task{ID: "t1"})

	err := actions.Claim(context.Background(), "t1", "manager1")
	require.Error(t, err)
	assert.ErrorIs(t, err, engineclient.ErrClaimRejected)

	var rej *engineclient.RejectionError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, msg, rej.Message)

	state, _ := actions.State("t1")
	assert.Equal(t, lifecycle.TaskUnclaimed, state)
	assert.Len(t, engine.claims, 1, "claims are never retried")
}

func TestActions_ClaimRequiresUnclaimed(t *testing.T) {
	engine := &fakeEngine{}
	actions := newActions(engine)
	actions.Observe(engineclient.Task{ID: "t1", Assignee: "finance1"})

	err := actions.Claim(context.Background(), "t1", "manager1")
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
	assert.Empty(t, engine.claims)
}

func TestActions_ClaimRequiresUser(t *testing.T) {
	engine := &fakeEngine{}
	actions := newActions(engine)
	assert.ErrorIs(t, actions.Claim(context.Background(), "t1", ""), ErrMissingUser)
	assert.Empty(t, engine.claims)
}

func TestActions_ClaimUnobservedTaskTreatedAsUnclaimed(t *testing.T) {
	engine := &fakeEngine{}
	actions := newActions(engine)
	require.NoError(t, actions.Claim(context.Background(), "t9", "manager1"))
	state, _ := actions.State("t9")
	assert.Equal(t, lifecycle.TaskClaimed, state)
}

func TestActions_Unclaim(t *testing.T) {
	engine := &fakeEngine{}
	actions := newActions(engine)
	actions.Observe(engineclient.Task{ID: "t1", Assignee: "manager1"})

	require.NoError(t, actions.Unclaim(context.Background(), "t1"))
	state, _ := actions.State("t1")
	assert.Equal(t, lifecycle.TaskUnclaimed, state)

	err := actions.Unclaim(context.Background(), "t1")
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
	assert.Len(t, engine.unclaims, 1)
}

func TestActions_UnclaimRejected(t *testing.T) {
	engine := &fakeEngine{unclaimErr: rejection(engineclient.OpUnclaim, "no")}
	actions := newActions(engine)
	actions.Observe(engineclient.Task{ID: "t1", Assignee: "manager1"})

	assert.ErrorIs(t, actions.Unclaim(context.Background(), "t1"), engineclient.ErrUnclaimRejected)
	state, _ := actions.State("t1")
	assert.Equal(t, lifecycle.TaskClaimed, state)
}

func TestActions_CompleteBuildsVariables(t *testing.T) {
	engine := &fakeEngine{}
	actions := newActions(engine)
	actions.Observe(engineclient.Task{ID: "t1", Assignee: "manager1"})

	raw := map[string]any{"reviewApproved": "true", "reviewComments": ""}
	vars, err := actions.Complete(context.Background(), "t1", taskvars.ReviewOrder, raw)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"reviewApproved": true}, vars)
	require.Len(t, engine.completes, 1)
	assert.Equal(t, vars, engine.completes[0].vars)
	assert.Equal(t, map[string]any{"reviewApproved": "true", "reviewComments": ""}, raw, "input is not modified")

	state, _ := actions.State("t1")
	assert.Equal(t, lifecycle.TaskCompleted, state)
}

func TestActions_CompleteFailureRevertsToClaimed(t *testing.T) {
	engine := &fakeEngine{completeErr: rejection(engineclient.OpComplete, "Task t1 is not assigned")}
	actions := newActions(engine)
	actions.Observe(engineclient.Task{ID: "t1", Assignee: "manager1"})

	_, err := actions.Complete(context.Background(), "t1", taskvars.PaymentApproval, map[string]any{})
	require.Error(t, err)
	assert.ErrorIs(t, err, engineclient.ErrCompleteRejected)
	assert.Contains(t, err.Error(), "Task t1 is not assigned")

	state, _ := actions.State("t1")
	assert.Equal(t, lifecycle.TaskClaimed, state)
	assert.Len(t, engine.completes, 1, "completions are never retried")

	// The operator may try again, which is a new single call.
	engine.completeErr = nil
	_, err = actions.Complete(context.Background(), "t1", taskvars.PaymentApproval, map[string]any{})
	require.NoError(t, err)
	assert.Len(t, engine.completes, 2)
}

func TestActions_CompleteRequiresClaimed(t *testing.T) {
	engine := &fakeEngine{}
	actions := newActions(engine)
	actions.Observe(engineclient.Task{ID: "t1"})

	_, err := actions.Complete(context.Background(), "t1", taskvars.ReviewOrder, nil)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
	assert.Empty(t, engine.completes)
}

func TestActions_ConcurrentCompleteSubmitsOnce(t *testing.T) {
	engine := &fakeEngine{release: make(chan struct{})}
	actions := newActions(engine)
	actions.Observe(engineclient.Task{ID: "t1", Assignee: "manager1"})

	first := make(chan error, 1)
	go func() {
		_, err := actions.Complete(context.Background(), "t1", taskvars.ReviewOrder, nil)
		first <- err
	}()

	require.Eventually(t, func() bool {
		state, _ := actions.State("t1")
		return state == lifecycle.TaskCompleting
	}, time.Second, time.Millisecond)

	_, err := actions.Complete(context.Background(), "t1", taskvars.ReviewOrder, nil)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)

	close(engine.release)
	require.NoError(t, <-first)
	assert.Len(t, engine.completes, 1)
}

func TestActions_Actionable(t *testing.T) {
	engine := &fakeEngine{}
	actions := newActions(engine)
	tasks := []engineclient.Task{
		{ID: "t1", Assignee: "manager1", TaskDefinitionKey: taskvars.ReviewOrder},
		{ID: "t2"},
		{ID: "t3", Assignee: "finance1"},
	}

	assert.Len(t, actions.Actionable(tasks), 3)

	_, err := actions.Complete(context.Background(), "t1", taskvars.ReviewOrder, nil)
	require.NoError(t, err)

	got := actions.Actionable(tasks)
	require.Len(t, got, 2)
	assert.Equal(t, "t2", got[0].ID)
	assert.Equal(t, "t3", got[1].ID)
}

func TestActions_ObserveFollowsEngine(t *testing.T) {
	actions := newActions(&fakeEngine{})
	actions.Observe(engineclient.Task{ID: "t1"})
	actions.Observe(engineclient.Task{ID: "t1", Assignee: "someone"})

	state, _ := actions.State("t1")
	assert.Equal(t, lifecycle.TaskClaimed, state)

	_, ok := actions.State("never-seen")
	assert.False(t, ok)
}

func TestActions_AuditLog(t *testing.T) {
	audit := logging.NewAuditLog(10)
	engine := &fakeEngine{claimErr: rejection(engineclient.OpClaim, "taken")}
	actions := newActions(engine, WithAuditLog(audit))

	_ = actions.Claim(context.Background(), "t1", "manager1")

	entries := audit.Entries("t1")
	require.Len(t, entries, 1)
	assert.Equal(t, "claim failed", entries[0].Message)
	assert.Equal(t, "t1", entries[0].Attributes[logging.KeyTaskID])
	assert.Contains(t, entries[0].Attributes[logging.KeyError], "taken")
}

func TestActions_SetBuilder(t *testing.T) {
	engine := &fakeEngine{}
	actions := newActions(engine)
	actions.SetBuilder(taskvars.NewBuilder(taskvars.DefaultTable().Merge(taskvars.Table{
		"UserTask_Escalate": {Decision: "escalated", Always: true},
	})))
	actions.Observe(engineclient.Task{ID: "t1", Assignee: "manager1"})

	vars, err := actions.Complete(context.Background(), "t1", "UserTask_Escalate", map[string]any{"note": "x"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"note": "x", "escalated": true}, vars)
}

func TestActions_PruneForgetsIdleTasks(t *testing.T) {
	clock := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	audit := logging.NewAuditLog(10)
	engine := &fakeEngine{}
	actions := newActions(engine, WithAuditLog(audit), WithTaskRetention(10*time.Minute))
	actions.now = func() time.Time { return clock }

	listed := []engineclient.Task{
		{ID: "t1", Assignee: "manager1"},
		{ID: "t2", Assignee: "manager1"},
	}
	actions.Actionable(listed)
	_, err := actions.Complete(context.Background(), "t1", taskvars.ReviewOrder, nil)
	require.NoError(t, err)
	require.NotEmpty(t, audit.Entries("t1"))

	// t2 keeps being listed, t1 has left the engine listing.
	clock = clock.Add(6 * time.Minute)
	assert.Len(t, actions.Actionable(listed[1:]), 1)
	assert.Equal(t, 0, actions.Prune())

	clock = clock.Add(6 * time.Minute)
	assert.Equal(t, 1, actions.Prune())

	_, ok := actions.State("t1")
	assert.False(t, ok)
	assert.Empty(t, audit.Entries("t1"))
	state, ok := actions.State("t2")
	assert.True(t, ok)
	assert.Equal(t, lifecycle.TaskClaimed, state)
}

func TestActions_PruneKeepsCompletionInFlight(t *testing.T) {
	clock := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	engine := &fakeEngine{release: make(chan struct{})}
	actions := newActions(engine, WithTaskRetention(time.Minute))
	actions.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}
	actions.Observe(engineclient.Task{ID: "t1", Assignee: "manager1"})

	done := make(chan error, 1)
	go func() {
		_, err := actions.Complete(context.Background(), "t1", taskvars.ReviewOrder, nil)
		done <- err
	}()
	require.Eventually(t, func() bool {
		state, _ := actions.State("t1")
		return state == lifecycle.TaskCompleting
	}, time.Second, time.Millisecond)

	mu.Lock()
	clock = clock.Add(time.Hour)
	mu.Unlock()
	assert.Equal(t, 0, actions.Prune())

	close(engine.release)
	require.NoError(t, <-done)
	state, ok := actions.State("t1")
	assert.True(t, ok)
	assert.Equal(t, lifecycle.TaskCompleted, state)
}
