// Package registry holds the fitted model set and the feature pipeline
// that produced their inputs behind a single swap barrier, so scoring
// readers never observe a half-updated generation.
package registry

import (
	"errors"
	"sort"
	"sync"

	"netsentry/internal/ml"
	"netsentry/internal/model"
	"netsentry/internal/pipeline"
)

// Entry pairs one fitted model with its evaluation metrics.
type Entry struct {
	Model   ml.Classifier
	Metrics model.EvaluationResult
}

// Registry is the in-memory mapping from model name to fitted model. A
// training run replaces the whole generation, models plus pipeline, under
// one write lock; a model enters only after its fit returned successfully.
type Registry struct {
	mu     sync.RWMutex
	models map[string]Entry
	pipe   *pipeline.Pipeline
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{models: map[string]Entry{}}
}

// Swap replaces the fitted generation wholesale. Readers blocked on the
// lock observe either the old generation or the new one, never a mix.
func (r *Registry) Swap(p *pipeline.Pipeline, entries map[string]Entry) {
	models := make(map[string]Entry, len(entries))
	for name, e := range entries {
		models[name] = e
	}
	r.mu.Lock()
	r.pipe = p
	r.models = models
	r.mu.Unlock()
}

// Get resolves a fitted model by name. The reserved name "ensemble" (or an
// empty name) selects the soft-voting ensemble and reports
// ErrModelNotTrained before any training has completed; other unknown
// names report ErrModelNotFound.
func (r *Registry) Get(name string) (ml.Classifier, error) {
	if name == "" {
		name = ml.EnsembleName
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.models[name]
	if !ok {
		if name == ml.EnsembleName {
			return nil, model.ErrModelNotTrained
		}
		return nil, model.ErrModelNotFound
	}
	return e.Model, nil
}

// Predict delegates hard classification to the named model.
func (r *Registry) Predict(X [][]float64, name string) ([]int, error) {
	m, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return m.Predict(X)
}

// PredictProba delegates probability output to the named model. Models
// without native probabilities fall back to a one-hot encoding of the hard
// prediction: full confidence in the predicted class, zero elsewhere. The
// fallback is an approximation, not a calibrated confidence.
func (r *Registry) PredictProba(X [][]float64, name string) ([][]float64, error) {
	m, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	probs, err := m.PredictProba(X)
	if err == nil {
		return probs, nil
	}
	if !errors.Is(err, ml.ErrNoProbability) {
		return nil, err
	}
	pred, err := m.Predict(X)
	if err != nil {
		return nil, err
	}
	k := m.NumClasses()
	out := make([][]float64, len(pred))
	for i, c := range pred {
		row := make([]float64, k)
		if c >= 0 && c < k {
			row[c] = 1
		}
		out[i] = row
	}
	return out, nil
}

// Pipeline returns the fitted feature pipeline of the current generation,
// nil before any training.
func (r *Registry) Pipeline() *pipeline.Pipeline {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pipe
}

// HasEnsemble reports whether a usable ensemble is registered. The
// streaming loop checks this up front to pick the model branch or the
// rule-based branch before scoring.
func (r *Registry) HasEnsemble() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.models[ml.EnsembleName]
	return ok
}

// Names lists the registered models in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Results returns a copy of the evaluation metrics per registered model.
func (r *Registry) Results() map[string]model.EvaluationResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]model.EvaluationResult, len(r.models))
	for name, e := range r.models {
		out[name] = e.Metrics
	}
	return out
}
