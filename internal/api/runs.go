package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/content-factory/topic-monitor/internal/models"
	"github.com/content-factory/topic-monitor/internal/monitoring"
)

type runResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	RunID   string                 `json:"runId,omitempty"`
	Results []models.KeywordResult `json:"results"`
}

// triggerRun runs synchronously; a client disconnect does not abort the run
func (s *Server) triggerRun(w http.ResponseWriter, r *http.Request) {
	summary, err := s.runner.RunAnalysis(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, monitoring.ErrRunInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, monitoring.ErrWebhookNotConfigured):
		writeJSON(w, http.StatusPreconditionFailed, runResponse{
			Message: err.Error(),
			Results: []models.KeywordResult{},
		})
	case err != nil:
		internalError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, runResponse{
			Success: summary.Success,
			Message: fmt.Sprintf("%d/%d succeeded", summary.Succeeded(), len(summary.Results)),
			RunID:   summary.RunID,
			Results: summary.Results,
		})
	}
}
