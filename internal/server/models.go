package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"netsentry/internal/model"
)

// detailedLimit caps the per-row echo in prediction responses.
const detailedLimit = 100

// trainHandler fits the feature pipeline on a stored dataset and trains the
// full model panel, swapping the registry on success.
func (h *APIHandler) trainHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Dataset string `json:"dataset"`
		Target  string `json:"target"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err))
		return
	}
	if req.Dataset == "" {
		writeErrorMessage(w, http.StatusBadRequest, "No dataset provided")
		return
	}

	tbl, err := h.datasets.Load(req.Dataset)
	if err != nil {
		writeError(w, err)
		return
	}

	results, err := h.trainer.TrainTable(r.Context(), tbl, req.Target, req.Dataset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Models trained successfully",
		"results": results,
	})
}

// predictHandler scores a stored dataset with one trained model and returns
// per-row attack labels and probabilities plus an aggregate summary.
func (h *APIHandler) predictHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Dataset string `json:"dataset"`
		Model   string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err))
		return
	}
	if req.Dataset == "" {
		writeErrorMessage(w, http.StatusBadRequest, "No dataset provided")
		return
	}

	tbl, err := h.datasets.Load(req.Dataset)
	if err != nil {
		writeError(w, err)
		return
	}

	pipe := h.registry.Pipeline()
	if !pipe.Fitted() {
		writeError(w, model.ErrModelNotTrained)
		return
	}

	X, err := pipe.Transform(tbl)
	if err != nil {
		writeError(w, err)
		return
	}

	preds, err := h.registry.Predict(X, req.Model)
	if err != nil {
		writeError(w, err)
		return
	}
	probs, err := h.registry.PredictProba(X, req.Model)
	if err != nil {
		writeError(w, err)
		return
	}

	attackPreds := make([]int, len(preds))
	attackProbs := make([]float64, len(preds))
	threats := 0
	for i, class := range preds {
		attackPreds[i] = pipe.AttackLabel(class)
		attackProbs[i] = pipe.AttackProbability(probs[i])
		if attackPreds[i] == 1 {
			threats++
		}
	}

	percentage := 0.0
	if len(preds) > 0 {
		percentage = float64(threats) / float64(len(preds)) * 100
	}

	scoredAt := time.Now().UTC().Format(time.RFC3339)
	limit := len(tbl.Rows)
	if limit > detailedLimit {
		limit = detailedLimit
	}
	detailed := make([]map[string]any, 0, limit)
	for i := 0; i < limit; i++ {
		row := make(map[string]any, len(tbl.Columns)+3)
		for j, col := range tbl.Columns {
			row[col] = tbl.Cell(i, j)
		}
		row["threat_prediction"] = attackPreds[i]
		row["threat_probability"] = attackProbs[i]
		row["timestamp"] = scoredAt
		detailed = append(detailed, row)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"predictions":   attackPreds,
		"probabilities": attackProbs,
		"summary": map[string]any{
			"total_records":     len(preds),
			"threats_detected":  threats,
			"benign_records":    len(preds) - threats,
			"threat_percentage": percentage,
		},
		"detailed_data": detailed,
	})
}

// modelsHandler reports the trained panel with its held-out metrics.
func (h *APIHandler) modelsHandler(w http.ResponseWriter, r *http.Request) {
	names := h.registry.Names()
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"models":  names,
		"results": h.registry.Results(),
	})
}
