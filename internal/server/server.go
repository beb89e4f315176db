// Package server exposes the REST and WebSocket surface of the detection
// engine: dataset management, model training, batch prediction, and control
// of the live scoring stream.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"net/http"

	"netsentry/internal/dataset"
	"netsentry/internal/events"
	"netsentry/internal/ingest"
	"netsentry/internal/model"
	"netsentry/internal/registry"
	"netsentry/internal/stream"
	"netsentry/internal/train"

	"github.com/gorilla/mux"
)

// StreamAnalyzer is the AI surface the analyze endpoint talks to. A nil
// analyzer disables the endpoint.
type StreamAnalyzer interface {
	AnalyzeStream(ctx context.Context, prompt string, sendChunk func(string) error) error
}

// APIHandler holds the dependencies for API handlers.
type APIHandler struct {
	registry *registry.Registry
	trainer  *train.Trainer
	engine   *stream.Engine
	datasets *dataset.Manager
	hub      *events.Hub
	analyzer StreamAnalyzer
}

// New wires the API handler. The hub and analyzer may be nil; the
// corresponding routes then report unavailable.
func New(reg *registry.Registry, trainer *train.Trainer, engine *stream.Engine, datasets *dataset.Manager, hub *events.Hub, analyzer StreamAnalyzer) *APIHandler {
	return &APIHandler{
		registry: reg,
		trainer:  trainer,
		engine:   engine,
		datasets: datasets,
		hub:      hub,
		analyzer: analyzer,
	}
}

// Router builds the full route table.
func (h *APIHandler) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/v1/datasets", h.uploadDatasetHandler).Methods("POST")
	r.HandleFunc("/api/v1/datasets", h.listDatasetsHandler).Methods("GET")
	r.HandleFunc("/api/v1/datasets/generate", h.generateDatasetHandler).Methods("POST")

	r.HandleFunc("/api/v1/train", h.trainHandler).Methods("POST")
	r.HandleFunc("/api/v1/predict", h.predictHandler).Methods("POST")
	r.HandleFunc("/api/v1/models", h.modelsHandler).Methods("GET")

	r.HandleFunc("/api/v1/stream/start", h.startStreamHandler).Methods("POST")
	r.HandleFunc("/api/v1/stream/stop", h.stopStreamHandler).Methods("POST")
	r.HandleFunc("/api/v1/stream/status", h.streamStatusHandler).Methods("GET")
	r.HandleFunc("/api/v1/stream/results", h.streamResultsHandler).Methods("GET")

	r.HandleFunc("/api/v1/alerts", h.alertsHandler).Methods("GET")
	r.HandleFunc("/api/v1/alerts/threshold", h.thresholdHandler).Methods("PUT")

	r.HandleFunc("/api/v1/ai/analyze", h.aiAnalyzeHandler).Methods("POST")

	if h.hub != nil {
		r.Handle("/ws", h.hub)
	}
	r.HandleFunc("/healthz", h.healthHandler).Methods("GET")

	return r
}

func (h *APIHandler) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON encodes v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeError maps err onto the API error envelope with a status code
// derived from its class.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor buckets an error into an HTTP status: bad input 400, missing
// resources 404, operations against an untrained registry 409, everything
// else 500.
func statusFor(err error) int {
	switch {
	case model.IsDataError(err),
		errors.Is(err, model.ErrInvalidThreshold),
		errors.Is(err, ingest.ErrUnknownSource):
		return http.StatusBadRequest
	case errors.Is(err, fs.ErrNotExist),
		errors.Is(err, model.ErrModelNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrModelNotTrained),
		errors.Is(err, model.ErrNotFitted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
