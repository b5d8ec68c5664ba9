// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/veloclub/segweek/internal/domain/model"
)

// observationRequest mirrors the upstream activity payload for
// POST /observations.
type observationRequest struct {
	ParticipantID      string          `json:"participant_id"`
	DisplayName        string          `json:"display_name"`
	ExternalActivityID string          `json:"external_activity_id"`
	StartAt            int64           `json:"start_at"`
	DeviceName         string          `json:"device_name"`
	Efforts            []effortRequest `json:"efforts"`
}

type effortRequest struct {
	SegmentID      string `json:"segment_id"`
	ElapsedSeconds int64  `json:"elapsed_seconds"`
	StartAt        int64  `json:"start_at"`
	PRRank         *int   `json:"pr_rank"`
}

func (o observationRequest) toModel() model.Observation {
	m := model.Observation{
		ParticipantID:      o.ParticipantID,
		DisplayName:        o.DisplayName,
		ExternalActivityID: o.ExternalActivityID,
		StartAt:            o.StartAt,
		DeviceName:         o.DeviceName,
	}
	for _, e := range o.Efforts {
		m.Efforts = append(m.Efforts, model.ObservedEffort{
			SegmentID:      e.SegmentID,
			ElapsedSeconds: e.ElapsedSeconds,
			StartAt:        e.StartAt,
			PRRank:         e.PRRank,
		})
	}
	return m
}

type batchAckResponse struct {
	Status   string `json:"status"`
	Accepted int    `json:"accepted"`
}

// ObservationsHandler handles observation intake requests.
type ObservationsHandler struct {
	deps Dependencies
}

// NewObservationsHandler creates a new observations handler.
func NewObservationsHandler(deps Dependencies) *ObservationsHandler {
	return &ObservationsHandler{deps: deps}
}

// HandlePostObservation handles POST /observations requests. The
// observation is processed synchronously so the caller gets the full
// per-week diagnostic trail back.
func (h *ObservationsHandler) HandlePostObservation(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_observation"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req observationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapOp(op, err))
		return
	}
	o := req.toModel()
	if err := o.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapOp(op, err))
		return
	}

	ack, err := h.deps.SubmitObservation(r.Context(), o)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", wrapOp(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ack)
}

// HandlePostBatch handles POST /observations/batch requests. Payload is
// a JSON array of observations; they are enqueued for the worker pool
// and processed asynchronously.
func (h *ObservationsHandler) HandlePostBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_observation_batch"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var reqs []observationRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapOp(op, err))
		return
	}

	// Validate the whole batch before enqueueing any of it.
	observations := make([]model.Observation, 0, len(reqs))
	for _, req := range reqs {
		o := req.toModel()
		if err := o.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", wrapOp(op, err))
			return
		}
		observations = append(observations, o)
	}

	accepted := 0
	for _, o := range observations {
		if !h.deps.EnqueueObservation(r.Context(), o) {
			writeJSON(w, http.StatusTooManyRequests, batchAckResponse{
				Status:   "backpressure",
				Accepted: accepted,
			})
			return
		}
		accepted++
	}
	writeJSON(w, http.StatusAccepted, batchAckResponse{
		Status:   "accepted",
		Accepted: accepted,
	})
}
