package handlers

import (
	"log/slog"
	"net/http"

	"github.com/nomis52/taskboard/clients/engineclient"
	"github.com/nomis52/taskboard/lifecycle"
	"github.com/nomis52/taskboard/logging"
)

// TaskView is a task together with its lifecycle state on this dashboard.
type TaskView struct {
	engineclient.Task
	State lifecycle.TaskState `json:"state"`
}

// TasksHandler lists the tasks an operator can still act on.
type TasksHandler struct {
	logger  *slog.Logger
	engine  EngineProvider
	actions TaskActions
}

// NewTasksHandler creates a new TasksHandler.
func NewTasksHandler(logger *slog.Logger, engine EngineProvider, actions TaskActions) *TasksHandler {
	return &TasksHandler{
		logger:  logger,
		engine:  engine,
		actions: actions,
	}
}

// ServeHTTP implements http.Handler.
func (h *TasksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := engineclient.TaskFilter{
		Assignee:          q.Get("assignee"),
		CandidateGroup:    q.Get("candidateGroup"),
		ProcessInstanceID: q.Get("processInstanceId"),
	}

	tasks, err := h.engine.Engine().ListTasks(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	actionable := h.actions.Actionable(tasks)
	views := make([]TaskView, 0, len(actionable))
	for _, t := range actionable {
		views = append(views, h.view(t))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *TasksHandler) view(t engineclient.Task) TaskView {
	state, ok := h.actions.State(t.ID)
	if !ok {
		state = lifecycle.TaskStateFromAssignee(t.Assignee)
	}
	return TaskView{Task: t, State: state}
}

// TaskHandler returns a single task.
type TaskHandler struct {
	logger  *slog.Logger
	engine  EngineProvider
	actions TaskActions
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(logger *slog.Logger, engine EngineProvider, actions TaskActions) *TaskHandler {
	return &TaskHandler{
		logger:  logger,
		engine:  engine,
		actions: actions,
	}
}

// ServeHTTP implements http.Handler.
func (h *TaskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	task, err := h.engine.Engine().Task(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.actions.Observe(task)
	state, _ := h.actions.State(task.ID)
	writeJSON(w, http.StatusOK, TaskView{Task: task, State: state})
}

// TaskVariablesHandler returns the process variables visible to a task, which
// the completion form shows next to its inputs.
type TaskVariablesHandler struct {
	logger *slog.Logger
	engine EngineProvider
}

// NewTaskVariablesHandler creates a new TaskVariablesHandler.
func NewTaskVariablesHandler(logger *slog.Logger, engine EngineProvider) *TaskVariablesHandler {
	return &TaskVariablesHandler{
		logger: logger,
		engine: engine,
	}
}

// ServeHTTP implements http.Handler.
func (h *TaskVariablesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	vars, err := h.engine.Engine().TaskVariables(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if vars == nil {
		vars = map[string]any{}
	}
	writeJSON(w, http.StatusOK, vars)
}

// TaskLogResponse holds the captured log lines of one task.
type TaskLogResponse struct {
	TaskID  string               `json:"taskId"`
	Entries []logging.AuditEntry `json:"entries"`
}

// TaskLogHandler returns the action log of a task.
type TaskLogHandler struct {
	audit AuditProvider
}

// NewTaskLogHandler creates a new TaskLogHandler.
func NewTaskLogHandler(audit AuditProvider) *TaskLogHandler {
	return &TaskLogHandler{audit: audit}
}

// ServeHTTP implements http.Handler.
func (h *TaskLogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	entries := h.audit.Entries(id)
	if entries == nil {
		entries = []logging.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, TaskLogResponse{TaskID: id, Entries: entries})
}
