package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/content-factory/topic-monitor/internal/storage"
)

type updateSettingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type webhookTestRequest struct {
	WebhookURL string `json:"webhookUrl"`
}

func (s *Server) listSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.ListSettings(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "settings": settings})
}

func (s *Server) getSetting(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	value, err := s.store.GetSetting(r.Context(), key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "setting not found")
	case err != nil:
		internalError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"setting": map[string]string{"key": key, "value": value},
		})
	}
}

func (s *Server) updateSetting(w http.ResponseWriter, r *http.Request) {
	var req updateSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "key must not be empty")
		return
	}

	value := strings.TrimSpace(req.Value)
	if req.Key == storage.SettingCronTime && s.scheduler != nil {
		if err := s.scheduler.Reschedule(value); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if err := s.store.SetSetting(r.Context(), req.Key, value); err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"setting": map[string]string{"key": req.Key, "value": value},
	})
}

// testWebhook sends the connectivity message to the given URL, or to the stored webhook
func (s *Server) testWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookTestRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	webhookURL := strings.TrimSpace(req.WebhookURL)
	if webhookURL == "" {
		stored, err := s.store.GetSetting(r.Context(), storage.SettingFeishuWebhook)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			internalError(w, r, err)
			return
		}
		webhookURL = stored
	}
	if webhookURL == "" {
		writeError(w, http.StatusBadRequest, "webhookUrl is required")
		return
	}

	result := s.dispatcher.Test(r.Context(), webhookURL)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, result)
}
