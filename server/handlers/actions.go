package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/nomis52/taskboard/lifecycle"
)

// maxBodyBytes bounds request bodies of task actions.
const maxBodyBytes = 1 << 20

// ActionResponse is returned by a successful task action.
type ActionResponse struct {
	TaskID    string              `json:"taskId"`
	State     lifecycle.TaskState `json:"state"`
	Variables map[string]any      `json:"variables,omitempty"`
}

type claimRequest struct {
	UserID string `json:"userId"`
}

// ClaimHandler assigns a task to a user. The user is taken from the userId
// query parameter or a JSON body.
type ClaimHandler struct {
	logger  *slog.Logger
	actions TaskActions
}

// NewClaimHandler creates a new ClaimHandler.
func NewClaimHandler(logger *slog.Logger, actions TaskActions) *ClaimHandler {
	return &ClaimHandler{
		logger:  logger,
		actions: actions,
	}
}

// ServeHTTP implements http.Handler.
func (h *ClaimHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		var req claimRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, h.logger, err)
			return
		}
		userID = req.UserID
	}

	if err := h.actions.Claim(r.Context(), id, userID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	state, _ := h.actions.State(id)
	writeJSON(w, http.StatusOK, ActionResponse{TaskID: id, State: state})
}

// UnclaimHandler removes the assignee of a task.
type UnclaimHandler struct {
	logger  *slog.Logger
	actions TaskActions
}

// NewUnclaimHandler creates a new UnclaimHandler.
func NewUnclaimHandler(logger *slog.Logger, actions TaskActions) *UnclaimHandler {
	return &UnclaimHandler{
		logger:  logger,
		actions: actions,
	}
}

// ServeHTTP implements http.Handler.
func (h *UnclaimHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.actions.Unclaim(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	state, _ := h.actions.State(id)
	writeJSON(w, http.StatusOK, ActionResponse{TaskID: id, State: state})
}

// CompleteHandler completes a task. The body is the raw form input as a JSON
// object; the completion variables are derived from it by task type.
type CompleteHandler struct {
	logger  *slog.Logger
	engine  EngineProvider
	actions TaskActions
}

// NewCompleteHandler creates a new CompleteHandler.
func NewCompleteHandler(logger *slog.Logger, engine EngineProvider, actions TaskActions) *CompleteHandler {
	return &CompleteHandler{
		logger:  logger,
		engine:  engine,
		actions: actions,
	}
}

// ServeHTTP implements http.Handler.
func (h *CompleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := decodeBody(r, &raw); err != nil {
		writeError(w, h.logger, err)
		return
	}

	task, err := h.engine.Engine().Task(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.actions.Observe(task)

	vars, err := h.actions.Complete(r.Context(), task.ID, task.TaskDefinitionKey, raw)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	state, _ := h.actions.State(task.ID)
	writeJSON(w, http.StatusOK, ActionResponse{TaskID: task.ID, State: state, Variables: vars})
}

// decodeBody decodes an optional JSON body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: invalid JSON body: %w", errBadRequest, err)
}
