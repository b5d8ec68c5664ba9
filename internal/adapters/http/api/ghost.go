// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"

	"github.com/veloclub/segweek/internal/domain/types"
)

// GhostHandler handles ghost comparison requests.
type GhostHandler struct {
	deps Dependencies
}

// NewGhostHandler creates a new ghost handler.
func NewGhostHandler(deps Dependencies) *GhostHandler {
	return &GhostHandler{deps: deps}
}

// ghostResponse wraps the comparison so "nothing to compare" is an
// explicit null rather than an error.
type ghostResponse struct {
	Ghost *types.GhostComparison `json:"ghost"`
}

// HandleGetGhost handles GET /ghost?week=ID&participant=ID requests.
func (h *GhostHandler) HandleGetGhost(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_ghost"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	weekID := r.URL.Query().Get("week")
	participantID := r.URL.Query().Get("participant")
	if weekID == "" || participantID == "" {
		writeError(w, http.StatusBadRequest, "bad_request",
			wrapOp(op, errors.New("week and participant are required")))
		return
	}

	g, err := h.deps.Ghost(r.Context(), weekID, participantID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", wrapOp(op, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", wrapOp(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ghostResponse{Ghost: g})
}
