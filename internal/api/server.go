// Package api serves the admin HTTP interface: keyword registry, report history,
// settings and manual runs.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/content-factory/topic-monitor/internal/models"
	"github.com/content-factory/topic-monitor/internal/notifications"
	"github.com/content-factory/topic-monitor/internal/storage"
)

// Runner triggers analysis runs and reports their metrics
type Runner interface {
	RunAnalysis(ctx context.Context) (*models.RunSummary, error)
	GetMetrics() string
}

// Rescheduler swaps the cron schedule of the running scheduler
type Rescheduler interface {
	Reschedule(spec string) error
}

// Server holds the handler dependencies
type Server struct {
	store      storage.Store
	runner     Runner
	dispatcher notifications.Dispatcher
	scheduler  Rescheduler
}

// NewServer creates the admin API
func NewServer(store storage.Store, runner Runner, dispatcher notifications.Dispatcher, scheduler Rescheduler) *Server {
	return &Server{
		store:      store,
		runner:     runner,
		dispatcher: dispatcher,
		scheduler:  scheduler,
	}
}

// Router registers every route
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.healthCheck).Methods("GET")
	router.HandleFunc("/metrics", s.metrics).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/keywords", s.listKeywords).Methods("GET")
	api.HandleFunc("/keywords", s.createKeyword).Methods("POST")
	api.HandleFunc("/keywords/{id:[0-9]+}", s.updateKeyword).Methods("PUT")
	api.HandleFunc("/keywords/{id:[0-9]+}", s.deleteKeyword).Methods("DELETE")

	api.HandleFunc("/reports", s.listReports).Methods("GET")
	api.HandleFunc("/reports/{id:[0-9]+}", s.getReport).Methods("GET")

	api.HandleFunc("/settings", s.listSettings).Methods("GET")
	api.HandleFunc("/settings", s.updateSetting).Methods("PUT")
	api.HandleFunc("/settings/webhook/test", s.testWebhook).Methods("POST")
	api.HandleFunc("/settings/{key}", s.getSetting).Methods("GET")

	api.HandleFunc("/runs", s.triggerRun).Methods("POST")

	return router
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) metrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(s.runner.GetMetrics()))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.WithError(err).Error("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}

// internalError logs the cause and hides it from the client
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	logrus.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).WithError(err).Error("Request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil
}
