package engineclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nomis52/taskboard/progress"
)

// Task is a unit of human work waiting in the engine.
type Task struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	Assignee            string         `json:"assignee,omitempty"`
	ProcessInstanceID   string         `json:"processInstanceId"`
	ProcessDefinitionID string         `json:"processDefinitionId"`
	TaskDefinitionKey   string         `json:"taskDefinitionKey"`
	Variables           map[string]any `json:"variables"`
	Created             *time.Time     `json:"created,omitempty"`
	Due                 *time.Time     `json:"due,omitempty"`
}

// TaskFilter narrows a task listing. The engine applies the first non-empty
// field in the order ProcessInstanceID, Assignee, CandidateGroup.
type TaskFilter struct {
	Assignee          string
	CandidateGroup    string
	ProcessInstanceID string
}

// ProcessInstance is a running execution of a process definition.
type ProcessInstance struct {
	ID                  string         `json:"id"`
	ProcessDefinitionID string         `json:"processDefinitionId"`
	BusinessKey         string         `json:"businessKey,omitempty"`
	Variables           map[string]any `json:"variables"`
}

// User is an entry of the engine's identity directory.
type User struct {
	ID        string   `json:"id"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Email     string   `json:"email"`
	Groups    []string `json:"groups"`
}

// Group is a candidate group of the identity directory.
type Group struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	UserIDs []string `json:"userIds"`
}

// wireTask mirrors the engine's task payload.
type wireTask struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	Assignee            *string        `json:"assignee"`
	ProcessInstanceID   string         `json:"processInstanceId"`
	ProcessDefinitionID string         `json:"processDefinitionId"`
	TaskDefinitionKey   string         `json:"taskDefinitionKey"`
	Variables           map[string]any `json:"variables"`
	Created             engineTime     `json:"created"`
	Due                 engineTime     `json:"due"`
}

func (w wireTask) toTask() Task {
	t := Task{
		ID:                  w.ID,
		Name:                w.Name,
		ProcessInstanceID:   w.ProcessInstanceID,
		ProcessDefinitionID: w.ProcessDefinitionID,
		TaskDefinitionKey:   w.TaskDefinitionKey,
		Variables:           w.Variables,
		Created:             w.Created.ptr(),
		Due:                 w.Due.ptr(),
	}
	if w.Assignee != nil {
		t.Assignee = *w.Assignee
	}
	if t.Variables == nil {
		t.Variables = map[string]any{}
	}
	return t
}

type wireProcessInstance struct {
	ID                  string         `json:"id"`
	ProcessDefinitionID string         `json:"processDefinitionId"`
	BusinessKey         *string        `json:"businessKey"`
	Variables           map[string]any `json:"variables"`
}

func (w wireProcessInstance) toProcessInstance() ProcessInstance {
	pi := ProcessInstance{
		ID:                  w.ID,
		ProcessDefinitionID: w.ProcessDefinitionID,
		Variables:           w.Variables,
	}
	if w.BusinessKey != nil {
		pi.BusinessKey = *w.BusinessKey
	}
	if pi.Variables == nil {
		pi.Variables = map[string]any{}
	}
	return pi
}

type wireActivity struct {
	ActivityID   string     `json:"activityId"`
	ActivityName string     `json:"activityName"`
	ActivityType string     `json:"activityType"`
	StartTime    engineTime `json:"startTime"`
	EndTime      engineTime `json:"endTime"`
}

type wireStatus struct {
	CompletedActivities []wireActivity `json:"completedActivities"`
	ActiveActivities    []wireActivity `json:"activeActivities"`
	IsEnded             bool           `json:"isEnded"`
}

func (w wireStatus) toSnapshot() progress.Snapshot {
	convert := func(in []wireActivity) []progress.ActivityRecord {
		out := make([]progress.ActivityRecord, 0, len(in))
		for _, a := range in {
			out = append(out, progress.ActivityRecord{
				ActivityID:   a.ActivityID,
				ActivityName: a.ActivityName,
				ActivityType: a.ActivityType,
				StartTime:    a.StartTime.ptr(),
				EndTime:      a.EndTime.ptr(),
			})
		}
		return out
	}
	return progress.Snapshot{
		CompletedActivities: convert(w.CompletedActivities),
		ActiveActivities:    convert(w.ActiveActivities),
		IsEnded:             w.IsEnded,
	}
}

// engineTime decodes the timestamp encodings the engine produces: epoch
// milliseconds, RFC 3339 with or without a zone, or null.
type engineTime struct {
	t   time.Time
	set bool
}

var engineTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func (e *engineTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*e = engineTime{}
		return nil
	}

	if data[0] != '"' {
		ms, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid timestamp %s: %w", data, err)
		}
		*e = engineTime{t: time.UnixMilli(ms).UTC(), set: true}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*e = engineTime{}
		return nil
	}
	for _, layout := range engineTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*e = engineTime{t: t, set: true}
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}

func (e engineTime) ptr() *time.Time {
	if !e.set {
		return nil
	}
	t := e.t
	return &t
}
