package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"netsentry/internal/model"
)

const (
	defaultResultsLimit = 100
	defaultAlertsLimit  = 50

	// defaultAlertThreshold is applied when a threshold update omits the
	// value.
	defaultAlertThreshold = 0.7
)

// startStreamHandler launches the scoring loop. An empty body starts a
// synthetic stream with defaults; a running stream is reported as-is.
func (h *APIHandler) startStreamHandler(w http.ResponseWriter, r *http.Request) {
	var cfg model.StreamConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil && err != io.EOF {
		writeErrorMessage(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	status, err := h.engine.Start(cfg)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *APIHandler) stopStreamHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Stop())
}

func (h *APIHandler) streamStatusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Status())
}

func (h *APIHandler) streamResultsHandler(w http.ResponseWriter, r *http.Request) {
	results := h.engine.RecentResults(limitParam(r, defaultResultsLimit))
	if results == nil {
		results = []model.ScoringResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *APIHandler) alertsHandler(w http.ResponseWriter, r *http.Request) {
	alerts := h.engine.RecentAlerts(limitParam(r, defaultAlertsLimit))
	if alerts == nil {
		alerts = []model.Alert{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

// thresholdHandler updates the alert threshold. An omitted value resets to
// the default; values outside [0,1] are rejected and the old threshold
// stays in effect.
func (h *APIHandler) thresholdHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Threshold *float64 `json:"threshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeErrorMessage(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	v := defaultAlertThreshold
	if req.Threshold != nil {
		v = *req.Threshold
	}
	if err := h.engine.SetThreshold(v); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":   fmt.Sprintf("Alert threshold set to %g", v),
		"threshold": v,
	})
}

// aiAnalyzeHandler streams an AI assessment of the prompt back as plain
// text chunks.
func (h *APIHandler) aiAnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	if h.analyzer == nil {
		writeErrorMessage(w, http.StatusServiceUnavailable, "AI analysis is not enabled")
		return
	}

	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err))
		return
	}
	if req.Prompt == "" {
		writeErrorMessage(w, http.StatusBadRequest, "No prompt provided")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErrorMessage(w, http.StatusInternalServerError, "streaming is not supported")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	sendChunk := func(chunk string) error {
		if _, err := io.WriteString(w, chunk); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := h.analyzer.AnalyzeStream(r.Context(), req.Prompt, sendChunk); err != nil {
		// Headers are already out; the truncated body is the signal.
		log.Printf("AI analysis stream failed: %v", err)
	}
}

// limitParam reads the limit query parameter, falling back to def when
// absent or unusable.
func limitParam(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
