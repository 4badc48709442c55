package engineclient

import (
	"context"
	"fmt"
	"net/url"

	"github.com/nomis52/taskboard/progress"
)

// ListProcessInstances returns the active process instances, optionally only
// those of one process definition key.
func (c *Client) ListProcessInstances(ctx context.Context, definitionKey string) ([]ProcessInstance, error) {
	q := url.Values{}
	if definitionKey != "" {
		q.Set("processDefinitionKey", definitionKey)
	}

	var wire []wireProcessInstance
	if err := c.get(ctx, "/process-instances", q, &wire); err != nil {
		return nil, fmt.Errorf("listing process instances: %w", err)
	}

	out := make([]ProcessInstance, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.toProcessInstance())
	}
	return out, nil
}

// ProcessInstance returns one process instance.
func (c *Client) ProcessInstance(ctx context.Context, instanceID string) (ProcessInstance, error) {
	var wire wireProcessInstance
	if err := c.get(ctx, "/process-instances/"+escape(instanceID), nil, &wire); err != nil {
		return ProcessInstance{}, fmt.Errorf("getting process instance %s: %w", instanceID, err)
	}
	return wire.toProcessInstance(), nil
}

// ProcessInstanceVariables returns the variables of one running instance.
func (c *Client) ProcessInstanceVariables(ctx context.Context, instanceID string) (map[string]any, error) {
	vars := map[string]any{}
	if err := c.get(ctx, "/process-instances/"+escape(instanceID)+"/variables", nil, &vars); err != nil {
		return nil, fmt.Errorf("getting variables of process instance %s: %w", instanceID, err)
	}
	return vars, nil
}

// ProcessStatus returns the activity history snapshot of one instance.
func (c *Client) ProcessStatus(ctx context.Context, instanceID string) (progress.Snapshot, error) {
	var wire wireStatus
	if err := c.get(ctx, "/process-instances/"+escape(instanceID)+"/status", nil, &wire); err != nil {
		return progress.Snapshot{}, fmt.Errorf("getting status of process instance %s: %w", instanceID, err)
	}
	return wire.toSnapshot(), nil
}
