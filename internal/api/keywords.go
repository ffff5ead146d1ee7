package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/content-factory/topic-monitor/internal/models"
	"github.com/content-factory/topic-monitor/internal/storage"
)

type createKeywordRequest struct {
	Keyword  string `json:"keyword"`
	Platform string `json:"platform"`
	Enabled  *bool  `json:"enabled"`
}

type updateKeywordRequest struct {
	Keyword  *string `json:"keyword"`
	Platform *string `json:"platform"`
	Enabled  *bool   `json:"enabled"`
}

func (s *Server) listKeywords(w http.ResponseWriter, r *http.Request) {
	keywords, err := s.store.ListKeywords(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "keywords": keywords})
}

func (s *Server) createKeyword(w http.ResponseWriter, r *http.Request) {
	var req createKeywordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	keyword := strings.TrimSpace(req.Keyword)
	if keyword == "" {
		writeError(w, http.StatusBadRequest, "keyword must not be empty")
		return
	}
	platform, err := models.ParsePlatform(req.Platform)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	enabled := req.Enabled == nil || *req.Enabled

	created, err := s.store.CreateKeyword(r.Context(), keyword, platform, enabled)
	if errors.Is(err, storage.ErrKeywordExists) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "keyword": created})
}

func (s *Server) updateKeyword(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid keyword id")
		return
	}

	var req updateKeywordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var update models.KeywordUpdate
	if req.Keyword != nil {
		if keyword := strings.TrimSpace(*req.Keyword); keyword != "" {
			update.Keyword = &keyword
		}
	}
	if req.Platform != nil {
		platform, err := models.ParsePlatform(*req.Platform)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		update.Platform = &platform
	}
	update.Enabled = req.Enabled
	if update.Empty() {
		writeError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	updated, err := s.store.UpdateKeyword(r.Context(), id, update)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "keyword not found")
	case errors.Is(err, storage.ErrKeywordExists):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		internalError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "keyword": updated})
	}
}

func (s *Server) deleteKeyword(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid keyword id")
		return
	}

	err := s.store.DeleteKeyword(r.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "keyword not found")
	case err != nil:
		internalError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}
