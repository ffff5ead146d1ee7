package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/content-factory/topic-monitor/internal/models"
	"github.com/content-factory/topic-monitor/internal/storage"
)

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var filter storage.ReportFilter

	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := query.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid "+name)
				return
			}
			*dst = n
		}
	}
	if v := query.Get("keyword_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid keyword_id")
			return
		}
		filter.KeywordID = &id
	}
	if v := query.Get("platform"); v != "" {
		platform, err := models.ParsePlatform(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Platform = platform
	}
	filter = filter.Normalize()

	reports, total, err := s.store.ListReports(r.Context(), filter)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"reports": reports,
		"total":   total,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid report id")
		return
	}

	report, err := s.store.GetReport(r.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "report not found")
	case err != nil:
		internalError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "report": report})
	}
}
