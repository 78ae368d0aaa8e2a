// Package httpx provides the HTTP intake surface for the channel
// resolution job system.
package httpx

import (
	"net/http"

	"github.com/streamnotify/channel-resolver/internal/service"
)

// SubmitHandlers provides HTTP handlers for job submission.
type SubmitHandlers struct {
	Svc *service.IntakeService
}

// submitResponse is the accepted-submission body. Resolution is
// asynchronous; the job ID is the caller's handle for status polling.
type submitResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"jobId"`
	Message string `json:"message"`
}

// Submit handles HTTP requests to submit a channel for resolution.
func (h *SubmitHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	var req service.SubmitRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	rec, err := h.Svc.Submit(r.Context(), req)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, submitResponse{
		Success: true,
		JobID:   rec.JobID,
		Message: "channel resolution queued",
	})
}
