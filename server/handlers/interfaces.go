// Package handlers provides HTTP handlers for the taskboard server.
//
// Handlers use interfaces to access server dependencies, avoiding
// circular imports. Providers are consulted on every request so a config
// reload takes effect without re-registering routes.
package handlers

import (
	"context"

	"github.com/nomis52/taskboard/clients/engineclient"
	"github.com/nomis52/taskboard/config"
	"github.com/nomis52/taskboard/dashboard"
	"github.com/nomis52/taskboard/lifecycle"
	"github.com/nomis52/taskboard/logging"
	"github.com/nomis52/taskboard/server/types"
)

// ConfigProvider provides access to the current configuration.
type ConfigProvider interface {
	Config() *config.Config
}

// Reloader can reload its configuration.
type Reloader interface {
	Reload() error
}

// PropertiesProvider describes the running server.
type PropertiesProvider interface {
	Properties() types.ServerProperties
}

// Engine is the read side of the engine API used by the handlers.
type Engine interface {
	ListTasks(ctx context.Context, filter engineclient.TaskFilter) ([]engineclient.Task, error)
	Task(ctx context.Context, taskID string) (engineclient.Task, error)
	TaskVariables(ctx context.Context, taskID string) (map[string]any, error)
	ListProcessInstances(ctx context.Context, definitionKey string) ([]engineclient.ProcessInstance, error)
	ProcessInstance(ctx context.Context, instanceID string) (engineclient.ProcessInstance, error)
	ProcessInstanceVariables(ctx context.Context, instanceID string) (map[string]any, error)
	Users(ctx context.Context) ([]engineclient.User, error)
	User(ctx context.Context, userID string) (engineclient.User, error)
	UserGroups(ctx context.Context, userID string) ([]string, error)
	Groups(ctx context.Context) ([]engineclient.Group, error)
	Group(ctx context.Context, groupID string) (engineclient.Group, error)
	UsersInGroup(ctx context.Context, groupID string) ([]engineclient.User, error)
}

// EngineProvider provides the current engine client.
type EngineProvider interface {
	Engine() Engine
}

// ProgressBoard derives instance progress.
type ProgressBoard interface {
	Progress(ctx context.Context, refs []dashboard.InstanceRef) map[string]dashboard.InstanceProgress
	InstanceProgress(ctx context.Context, ref dashboard.InstanceRef) dashboard.InstanceProgress
}

// BoardProvider provides the current progress board.
type BoardProvider interface {
	Board() ProgressBoard
}

// TaskActions drives operator actions on tasks.
type TaskActions interface {
	Actionable(tasks []engineclient.Task) []engineclient.Task
	Observe(task engineclient.Task)
	State(taskID string) (lifecycle.TaskState, bool)
	Claim(ctx context.Context, taskID, userID string) error
	Unclaim(ctx context.Context, taskID string) error
	Complete(ctx context.Context, taskID, taskDefinitionKey string, raw map[string]any) (map[string]any, error)
}

// AuditProvider returns the captured log lines of a task.
type AuditProvider interface {
	Entries(taskID string) []logging.AuditEntry
}
