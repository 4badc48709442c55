package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/nomis52/taskboard/clients/engineclient"
	"github.com/nomis52/taskboard/dashboard"
	"github.com/nomis52/taskboard/logging"
	"github.com/nomis52/taskboard/steps"
)

// ProgressHandler derives progress for every active instance, optionally of
// one process definition key. The response is keyed by instance id.
type ProgressHandler struct {
	logger *slog.Logger
	engine EngineProvider
	board  BoardProvider
}

// NewProgressHandler creates a new ProgressHandler.
func NewProgressHandler(logger *slog.Logger, engine EngineProvider, board BoardProvider) *ProgressHandler {
	return &ProgressHandler{
		logger: logger,
		engine: engine,
		board:  board,
	}
}

// ServeHTTP implements http.Handler.
func (h *ProgressHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	instances, err := h.engine.Engine().ListProcessInstances(r.Context(), r.URL.Query().Get("processDefinitionKey"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	refs := make([]dashboard.InstanceRef, 0, len(instances))
	for _, inst := range instances {
		refs = append(refs, dashboard.RefFor(inst.ID, inst.ProcessDefinitionID))
	}
	writeJSON(w, http.StatusOK, h.board.Board().Progress(r.Context(), refs))
}

// InstanceProgressHandler derives progress for one instance. An instance
// whose snapshot is unavailable is still a 200 with state unknown.
//
// The process kind comes from the processDefinitionKey query parameter or from
// the runtime instance. Ended instances are gone from the runtime but the
// engine still reports their status, so a missing instance is derived as
// fallbackKind and is a 404 only if its status is missing too.
type InstanceProgressHandler struct {
	logger       *slog.Logger
	engine       EngineProvider
	board        BoardProvider
	fallbackKind string
}

// NewInstanceProgressHandler creates a new InstanceProgressHandler.
func NewInstanceProgressHandler(logger *slog.Logger, engine EngineProvider, board BoardProvider) *InstanceProgressHandler {
	return &InstanceProgressHandler{
		logger:       logger,
		engine:       engine,
		board:        board,
		fallbackKind: steps.OrderProcessKind,
	}
}

// ServeHTTP implements http.Handler.
func (h *InstanceProgressHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ref := dashboard.InstanceRef{InstanceID: id, ProcessKind: r.URL.Query().Get("processDefinitionKey")}
	running := false

	if ref.ProcessKind == "" {
		inst, err := h.engine.Engine().ProcessInstance(r.Context(), id)
		switch {
		case err == nil:
			ref = dashboard.RefFor(inst.ID, inst.ProcessDefinitionID)
			running = true
		case errors.Is(err, engineclient.ErrNotFound):
			h.logger.Debug("instance not running, deriving from status", logging.KeyInstanceID, id, logging.KeyProcessKind, h.fallbackKind)
			ref.ProcessKind = h.fallbackKind
		default:
			writeError(w, h.logger, err)
			return
		}
	}

	p := h.board.Board().InstanceProgress(r.Context(), ref)
	if !running && errors.Is(p.Err, engineclient.ErrNotFound) {
		writeError(w, h.logger, p.Err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
