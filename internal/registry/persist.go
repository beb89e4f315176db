package registry

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"netsentry/internal/ml"
	"netsentry/internal/model"
	"netsentry/internal/pipeline"
)

func init() {
	gob.Register(&ml.RandomForest{})
	gob.Register(&ml.GradientBoosting{})
	gob.Register(&ml.LinearSVM{})
	gob.Register(&ml.LogisticRegression{})
	gob.Register(&ml.DecisionTree{})
	gob.Register(&ml.GaussianNB{})
	gob.Register(&ml.KNN{})
	gob.Register(&ml.MLP{})
	gob.Register(&ml.SoftVotingEnsemble{})
}

// Summary is the human-readable manifest written beside the gob artifacts.
type Summary struct {
	CreatedAt string                            `json:"created_at"`
	Target    string                            `json:"target"`
	Features  []string                          `json:"features"`
	Classes   []string                          `json:"classes"`
	Results   map[string]model.EvaluationResult `json:"results"`
}

// SaveDir writes the current generation (pipeline, models, summary) under
// a timestamped directory below root and returns that directory.
func (r *Registry) SaveDir(root string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.pipe == nil || len(r.models) == 0 {
		return "", model.ErrModelNotTrained
	}

	dir := filepath.Join(root, time.Now().UTC().Format("20060102T150405Z"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}

	if err := encodeGobFile(filepath.Join(dir, "pipeline.gob"), r.pipe); err != nil {
		return "", err
	}
	if err := encodeGobFile(filepath.Join(dir, "models.gob"), r.models); err != nil {
		return "", err
	}

	summary := Summary{
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Target:    r.pipe.TargetColumn,
		Features:  r.pipe.FeatureNames(),
		Classes:   r.pipe.ClassNames(),
		Results:   make(map[string]model.EvaluationResult, len(r.models)),
	}
	for name, e := range r.models {
		summary.Results[name] = e.Metrics
	}
	file, err := os.Create(filepath.Join(dir, "summary.json"))
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()
	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return "", fmt.Errorf("failed to encode summary to json: %w", err)
	}
	return dir, nil
}

// LoadDir restores a saved generation into a fresh registry.
func LoadDir(dir string) (*Registry, error) {
	pipe := &pipeline.Pipeline{}
	if err := decodeGobFile(filepath.Join(dir, "pipeline.gob"), pipe); err != nil {
		return nil, err
	}
	var entries map[string]Entry
	if err := decodeGobFile(filepath.Join(dir, "models.gob"), &entries); err != nil {
		return nil, err
	}
	r := New()
	r.Swap(pipe, entries)
	return r, nil
}

// LatestDir returns the most recent saved generation under root, or "" when
// none exists. Directory names are timestamps, so lexical order is
// chronological.
func LatestDir(root string) (string, error) {
	items, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to scan model directory: %w", err)
	}
	var dirs []string
	for _, it := range items {
		if it.IsDir() {
			dirs = append(dirs, it.Name())
		}
	}
	if len(dirs) == 0 {
		return "", nil
	}
	sort.Strings(dirs)
	return filepath.Join(root, dirs[len(dirs)-1]), nil
}

func encodeGobFile(path string, v any) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create '%s': %w", path, err)
	}
	defer file.Close()
	if err := gob.NewEncoder(file).Encode(v); err != nil {
		return fmt.Errorf("failed to encode gob for '%s': %w", path, err)
	}
	return nil
}

func decodeGobFile(path string, v any) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open '%s': %w", path, err)
	}
	defer file.Close()
	if err := gob.NewDecoder(file).Decode(v); err != nil {
		return fmt.Errorf("failed to decode gob from '%s': %w", path, err)
	}
	return nil
}
