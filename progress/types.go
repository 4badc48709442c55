package progress

import (
	"time"

	"github.com/nomis52/taskboard/steps"
)

// ActivityRecord is one historical occurrence of a process node being entered
// (and possibly left) as reported by the engine.
type ActivityRecord struct {
	ActivityID   string     `json:"activityId"`
	ActivityName string     `json:"activityName"`
	ActivityType string     `json:"activityType"`
	StartTime    *time.Time `json:"startTime,omitempty"`
	EndTime      *time.Time `json:"endTime,omitempty"`
}

// Completed reports whether the record has an end time.
func (r ActivityRecord) Completed() bool {
	return r.EndTime != nil
}

// Snapshot is the engine-reported activity history of one process instance.
// IsEnded is authoritative: an ended instance is always 100% complete.
type Snapshot struct {
	CompletedActivities []ActivityRecord `json:"completedActivities"`
	ActiveActivities    []ActivityRecord `json:"activeActivities"`
	IsEnded             bool             `json:"isEnded"`
}

// StepStatus is the display status of a registered step.
type StepStatus int

const (
	StatusPending StepStatus = iota
	StatusActive
	StatusCompleted
)

// String returns a human-readable representation of the StepStatus
func (s StepStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler.
func (s StepStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// StepProgress pairs a registered step with its status.
type StepProgress struct {
	Step   steps.StepDefinition `json:"step"`
	Status StepStatus           `json:"status"`
}

// Progress is the derived view of one snapshot. It is rebuilt from scratch
// for every snapshot and never updated in place.
type Progress struct {
	// PerStep maps every registered step id to its status.
	PerStep map[string]StepStatus `json:"perStep"`
	// Steps holds the same statuses in registry order.
	Steps []StepProgress `json:"steps"`
	// CurrentStep is nil when the instance has not started.
	CurrentStep *steps.StepDefinition `json:"currentStep,omitempty"`
	// Percentage is in [0, 100].
	Percentage int `json:"percentage"`
}
