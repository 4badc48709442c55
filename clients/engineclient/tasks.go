package engineclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ListTasks returns the tasks matching filter.
func (c *Client) ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	q := url.Values{}
	if filter.Assignee != "" {
		q.Set("assignee", filter.Assignee)
	}
	if filter.CandidateGroup != "" {
		q.Set("candidateGroup", filter.CandidateGroup)
	}
	if filter.ProcessInstanceID != "" {
		q.Set("processInstanceId", filter.ProcessInstanceID)
	}

	var wire []wireTask
	if err := c.get(ctx, "/tasks", q, &wire); err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}

	tasks := make([]Task, 0, len(wire))
	for _, w := range wire {
		tasks = append(tasks, w.toTask())
	}
	return tasks, nil
}

// Task returns one task including its current variables.
func (c *Client) Task(ctx context.Context, taskID string) (Task, error) {
	var wire wireTask
	if err := c.get(ctx, "/tasks/"+escape(taskID), nil, &wire); err != nil {
		return Task{}, fmt.Errorf("getting task %s: %w", taskID, err)
	}
	return wire.toTask(), nil
}

// TaskVariables returns the variables visible to a task.
func (c *Client) TaskVariables(ctx context.Context, taskID string) (map[string]any, error) {
	vars := map[string]any{}
	if err := c.get(ctx, "/tasks/"+escape(taskID)+"/variables", nil, &vars); err != nil {
		return nil, fmt.Errorf("getting variables of task %s: %w", taskID, err)
	}
	return vars, nil
}

// Claim assigns a task to userID. A refusal by the engine is returned as a
// *RejectionError wrapping ErrClaimRejected.
func (c *Client) Claim(ctx context.Context, taskID, userID string) error {
	return c.mutate(ctx, OpClaim, taskID, request{
		method: http.MethodPost,
		path:   "/tasks/" + escape(taskID) + "/claim",
		query:  url.Values{"userId": []string{userID}},
	})
}

// Unclaim removes the assignee of a task.
func (c *Client) Unclaim(ctx context.Context, taskID string) error {
	return c.mutate(ctx, OpUnclaim, taskID, request{
		method: http.MethodPost,
		path:   "/tasks/" + escape(taskID) + "/unclaim",
	})
}

// Complete submits variables and completes a task. The call is made exactly
// once; on failure the task remains with its current owner.
func (c *Client) Complete(ctx context.Context, taskID string, variables map[string]any) error {
	if variables == nil {
		variables = map[string]any{}
	}
	return c.mutate(ctx, OpComplete, taskID, request{
		method: http.MethodPost,
		path:   "/tasks/" + escape(taskID) + "/complete",
		body:   variables,
	})
}
