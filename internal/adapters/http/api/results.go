// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
)

// ResultsHandler handles result retraction requests.
type ResultsHandler struct {
	deps Dependencies
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(deps Dependencies) *ResultsHandler {
	return &ResultsHandler{deps: deps}
}

type retractResponse struct {
	Status        string `json:"status"`
	WeekID        string `json:"week_id"`
	ParticipantID string `json:"participant_id"`
}

// HandleDeleteResult handles DELETE /results?week=ID&participant=ID
// requests.
func (h *ResultsHandler) HandleDeleteResult(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_result"
	if r.Method != http.MethodDelete {
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

	if err := h.deps.Retract(r.Context(), weekID, participantID); err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", wrapOp(op, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", wrapOp(op, err))
		return
	}
	writeJSON(w, http.StatusOK, retractResponse{
		Status:        "retracted",
		WeekID:        weekID,
		ParticipantID: participantID,
	})
}
