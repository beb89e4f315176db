package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"netsentry/internal/dataset"
)

// maxUploadBytes caps the in-memory portion of a multipart upload.
const maxUploadBytes = 32 << 20

// uploadDatasetHandler accepts a multipart CSV upload, stores it under a
// collision-proof name, and returns the stored name with a structural
// analysis of the table.
func (h *APIHandler) uploadDatasetHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeErrorMessage(w, http.StatusBadRequest, "No file selected")
		return
	}

	name, err := h.datasets.SaveUpload(header.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}

	tbl, err := h.datasets.Load(name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "File uploaded successfully",
		"filename":  name,
		"data_info": dataset.Analyze(tbl),
	})
}

// listDatasetsHandler returns the locally stored datasets plus the static
// catalog of well-known public ones.
func (h *APIHandler) listDatasetsHandler(w http.ResponseWriter, r *http.Request) {
	names, err := h.datasets.List()
	if err != nil {
		writeError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"datasets": names,
		"catalog":  dataset.Catalog(),
	})
}

// generateDatasetHandler creates a labeled dataset on disk. The kind
// defaults to sample; rows 0 picks the kind's default size.
func (h *APIHandler) generateDatasetHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type string `json:"type"`
		Rows int    `json:"rows"`
		Seed int64  `json:"seed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err))
		return
	}
	if req.Type == "" {
		req.Type = dataset.KindSample
	}
	if req.Type != dataset.KindSample && req.Type != dataset.KindFlows {
		writeErrorMessage(w, http.StatusBadRequest, fmt.Sprintf("unknown dataset kind %q", req.Type))
		return
	}

	name, err := h.datasets.GenerateTo(req.Type, req.Rows, req.Seed)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Dataset generated successfully",
		"filename": name,
	})
}
