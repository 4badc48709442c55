// Package dashboard combines the engine boundary with the progress and task
// rules: it derives progress for many process instances concurrently and
// drives operator task actions through their lifecycle.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nomis52/taskboard/lifecycle"
	"github.com/nomis52/taskboard/progress"
	"github.com/nomis52/taskboard/steps"
)

// ErrSnapshotUnavailable is returned for an instance whose status snapshot
// could not be fetched. The instance is shown as unknown.
var ErrSnapshotUnavailable = errors.New("snapshot unavailable")

// SnapshotSource fetches the activity history of one process instance.
type SnapshotSource interface {
	ProcessStatus(ctx context.Context, instanceID string) (progress.Snapshot, error)
}

// InstanceRef names a process instance and the kind of process it runs.
type InstanceRef struct {
	InstanceID  string `json:"instanceId"`
	ProcessKind string `json:"processKind"`
}

// RefFor builds an InstanceRef from an engine process definition id such as
// "order_process:3:abc".
func RefFor(instanceID, processDefinitionID string) InstanceRef {
	return InstanceRef{
		InstanceID:  instanceID,
		ProcessKind: steps.ProcessKindFromDefinitionID(processDefinitionID),
	}
}

// InstanceProgress is the outcome of deriving progress for one instance.
// Progress is set only when State is loaded.
type InstanceProgress struct {
	InstanceID  string
	ProcessKind string
	State       lifecycle.InstanceState
	Progress    *progress.Progress
	Err         error
}

// MarshalJSON renders Err as a string.
func (p InstanceProgress) MarshalJSON() ([]byte, error) {
	out := struct {
		InstanceID  string                  `json:"instanceId"`
		ProcessKind string                  `json:"processKind"`
		State       lifecycle.InstanceState `json:"state"`
		Progress    *progress.Progress      `json:"progress,omitempty"`
		Error       string                  `json:"error,omitempty"`
	}{
		InstanceID:  p.InstanceID,
		ProcessKind: p.ProcessKind,
		State:       p.State,
		Progress:    p.Progress,
	}
	if p.Err != nil {
		out.Error = p.Err.Error()
	}
	return json.Marshal(out)
}
