package handlers

import (
	"log/slog"
	"net/http"

	"github.com/nomis52/taskboard/clients/engineclient"
	"github.com/nomis52/taskboard/steps"
)

// ProcessInstanceView is a running instance with the process kind its
// progress is derived for.
type ProcessInstanceView struct {
	engineclient.ProcessInstance
	ProcessKind string `json:"processKind"`
}

// ProcessInstancesHandler lists the running instances with their business
// keys and variables, optionally of one process definition key.
type ProcessInstancesHandler struct {
	logger *slog.Logger
	engine EngineProvider
}

// NewProcessInstancesHandler creates a new ProcessInstancesHandler.
func NewProcessInstancesHandler(logger *slog.Logger, engine EngineProvider) *ProcessInstancesHandler {
	return &ProcessInstancesHandler{
		logger: logger,
		engine: engine,
	}
}

// ServeHTTP implements http.Handler.
func (h *ProcessInstancesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	instances, err := h.engine.Engine().ListProcessInstances(r.Context(), r.URL.Query().Get("processDefinitionKey"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	views := make([]ProcessInstanceView, 0, len(instances))
	for _, inst := range instances {
		views = append(views, ProcessInstanceView{
			ProcessInstance: inst,
			ProcessKind:     steps.ProcessKindFromDefinitionID(inst.ProcessDefinitionID),
		})
	}
	writeJSON(w, http.StatusOK, views)
}

// ProcessInstanceVariablesHandler returns the variables of one instance.
type ProcessInstanceVariablesHandler struct {
	logger *slog.Logger
	engine EngineProvider
}

// NewProcessInstanceVariablesHandler creates a new ProcessInstanceVariablesHandler.
func NewProcessInstanceVariablesHandler(logger *slog.Logger, engine EngineProvider) *ProcessInstanceVariablesHandler {
	return &ProcessInstanceVariablesHandler{
		logger: logger,
		engine: engine,
	}
}

// ServeHTTP implements http.Handler.
func (h *ProcessInstanceVariablesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	vars, err := h.engine.Engine().ProcessInstanceVariables(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if vars == nil {
		vars = map[string]any{}
	}
	writeJSON(w, http.StatusOK, vars)
}
