package httpx

import (
	"errors"
	"net/http"

	"github.com/streamnotify/channel-resolver/internal/core"
)

// JobHandlers provides HTTP handlers for job status reads.
type JobHandlers struct {
	Store core.JobStore
}

// GetJob handles HTTP requests to read a job record by ID. An expired
// record reads the same as one that never existed.
func (h *JobHandlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_path",
			Err:     errors.New("job id is required"),
		})
		return
	}

	rec, err := h.Store.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, core.ErrRecordNotFound) {
			WriteError(w, ErrorParams{
				Code:    http.StatusNotFound,
				ErrCode: "not_found",
				Err:     errors.New("job not found or expired"),
			})
			return
		}
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, rec)
}
