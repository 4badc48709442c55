package handlers

import (
	"log/slog"
	"net/http"

	"github.com/nomis52/taskboard/clients/engineclient"
)

// IdentityHandler serves the engine's user and group directory.
type IdentityHandler struct {
	logger *slog.Logger
	engine EngineProvider
}

// NewIdentityHandler creates a new IdentityHandler.
func NewIdentityHandler(logger *slog.Logger, engine EngineProvider) *IdentityHandler {
	return &IdentityHandler{
		logger: logger,
		engine: engine,
	}
}

// Users lists all users.
func (h *IdentityHandler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.engine.Engine().Users(r.Context())
	h.respond(w, users, err)
}

// User returns the user in the id path value.
func (h *IdentityHandler) User(w http.ResponseWriter, r *http.Request) {
	user, err := h.engine.Engine().User(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UserGroups lists the group ids of the user in the id path value.
func (h *IdentityHandler) UserGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.engine.Engine().UserGroups(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if groups == nil {
		groups = []string{}
	}
	writeJSON(w, http.StatusOK, groups)
}

// Group returns the group in the id path value.
func (h *IdentityHandler) Group(w http.ResponseWriter, r *http.Request) {
	group, err := h.engine.Engine().Group(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// Groups lists all groups.
func (h *IdentityHandler) Groups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.engine.Engine().Groups(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if groups == nil {
		groups = []engineclient.Group{}
	}
	writeJSON(w, http.StatusOK, groups)
}

// GroupUsers lists the members of the group in the id path value.
func (h *IdentityHandler) GroupUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.engine.Engine().UsersInGroup(r.Context(), r.PathValue("id"))
	h.respond(w, users, err)
}

func (h *IdentityHandler) respond(w http.ResponseWriter, users []engineclient.User, err error) {
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if users == nil {
		users = []engineclient.User{}
	}
	writeJSON(w, http.StatusOK, users)
}
