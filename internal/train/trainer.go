// Package train fits the fixed classifier panel on one dataset, evaluates
// every variant on the held-out split, combines the well-generalizing
// subset into a soft-voting ensemble, and publishes the finished
// generation to the model registry.
package train

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"netsentry/internal/ml"
	"netsentry/internal/model"
	"netsentry/internal/pipeline"
	"netsentry/internal/registry"
)

// Trainer owns panel training and the handoff of finished generations to
// the registry and the persistence sink.
type Trainer struct {
	// Config tunes every panel variant; the zero value selects the
	// standard defaults.
	Config ml.Config

	// TestFraction overrides the held-out split size; 0 selects the
	// standard fraction.
	TestFraction float64

	// SnapshotDir, when set, receives a gob snapshot of every trained
	// generation.
	SnapshotDir string

	registry *registry.Registry
	writer   model.ResultWriter
}

// New builds a trainer. writer may be nil when no persistence is wired.
func New(reg *registry.Registry, writer model.ResultWriter) *Trainer {
	return &Trainer{registry: reg, writer: writer}
}

// TrainTable fits a fresh feature pipeline on tbl, trains the panel on the
// stratified split, swaps the new generation into the registry, and hands
// the run off for durable storage. Pipeline errors surface to the caller;
// per-variant failures are recorded in the result map instead.
func (t *Trainer) TrainTable(ctx context.Context, tbl *model.Table, target, dataset string) (map[string]model.EvaluationResult, error) {
	startedAt := time.Now()

	fraction := t.TestFraction
	if fraction <= 0 {
		fraction = pipeline.DefaultTestFraction
	}
	pipe := pipeline.New()
	split, err := pipe.FitTransform(tbl, target, fraction)
	if err != nil {
		return nil, err
	}
	log.Printf("Training panel on %d rows (%d features, %d classes) from %s.",
		len(split.XTrain)+len(split.XTest), len(pipe.FeatureNames()), len(pipe.ClassNames()), dataset)

	results, entries := t.TrainAll(ctx, split)
	if len(entries) == 0 {
		return results, fmt.Errorf("no panel variant trained successfully")
	}
	t.registry.Swap(pipe, entries)

	if t.SnapshotDir != "" {
		if dir, err := t.registry.SaveDir(t.SnapshotDir); err != nil {
			log.Printf("Error saving model snapshot: %v", err)
		} else {
			log.Printf("Saved model snapshot to %s", dir)
		}
	}

	if t.writer != nil {
		run := model.TrainingRun{
			ID:        uuid.New().String(),
			Dataset:   dataset,
			Target:    pipe.TargetColumn,
			StartedAt: startedAt,
			Results:   results,
		}
		if err := t.writer.RecordTrainingRun(ctx, run); err != nil {
			log.Printf("Error persisting training run: %v", err)
		}
	}
	return results, nil
}

// TrainAll fits every panel variant independently on the same training
// split and evaluates it on the test split. A variant that fails is
// recorded with its error and excluded from the ensemble pool; it never
// aborts the rest of the panel. The ensemble lands under the reserved
// "ensemble" key.
func (t *Trainer) TrainAll(ctx context.Context, split *pipeline.Split) (map[string]model.EvaluationResult, map[string]registry.Entry) {
	results := make(map[string]model.EvaluationResult, len(ml.Kinds())+1)
	entries := make(map[string]registry.Entry, len(ml.Kinds())+1)
	binary := classCount(split.YTrain, split.YTest) == 2

	for _, kind := range ml.Kinds() {
		name := string(kind)
		if err := ctx.Err(); err != nil {
			results[name] = model.EvaluationResult{Model: name, Err: "training canceled"}
			continue
		}
		log.Printf("Training %s...", name)
		res, clf := t.trainOne(kind, split, binary)
		results[name] = res
		if !res.Failed() {
			entries[name] = registry.Entry{Model: clf, Metrics: res}
		}
	}

	ensembleRes, ensemble := t.buildEnsemble(split, results, entries, binary)
	results[ml.EnsembleName] = ensembleRes
	if !ensembleRes.Failed() && ensemble != nil {
		entries[ml.EnsembleName] = registry.Entry{Model: ensemble, Metrics: ensembleRes}
	}
	return results, entries
}

func (t *Trainer) trainOne(kind ml.Kind, split *pipeline.Split, binary bool) (model.EvaluationResult, ml.Classifier) {
	name := string(kind)
	start := time.Now()
	clf, err := ml.New(kind, t.Config)
	if err != nil {
		return model.EvaluationResult{Model: name, Err: err.Error()}, nil
	}
	if err := clf.Fit(split.XTrain, split.YTrain); err != nil {
		log.Printf("Error training %s: %v", name, err)
		return model.EvaluationResult{Model: name, Err: err.Error()}, nil
	}
	res, err := evaluate(name, clf, split, binary)
	if err != nil {
		log.Printf("Error evaluating %s: %v", name, err)
		return model.EvaluationResult{Model: name, Err: err.Error()}, nil
	}
	res.TrainTime = time.Since(start).Seconds()
	log.Printf("%s trained in %.2fs, f1=%.4f", name, res.TrainTime, res.F1)
	return res, clf
}

// buildEnsemble assembles the soft-voting ensemble from the whitelisted
// members that trained successfully. With fewer than two available it
// degrades to the single best-F1 variant under the ensemble key.
func (t *Trainer) buildEnsemble(split *pipeline.Split, results map[string]model.EvaluationResult, entries map[string]registry.Entry, binary bool) (model.EvaluationResult, ml.Classifier) {
	start := time.Now()
	var members []ml.Classifier
	for _, kind := range ml.EnsembleKinds() {
		if e, ok := entries[string(kind)]; ok {
			members = append(members, e.Model)
		}
	}

	if len(members) < 2 {
		best := ""
		for _, kind := range ml.Kinds() {
			name := string(kind)
			res, ok := results[name]
			if !ok || res.Failed() {
				continue
			}
			if best == "" || res.F1 > results[best].F1 {
				best = name
			}
		}
		if best == "" {
			return model.EvaluationResult{Model: ml.EnsembleName, Err: "no successfully trained member available"}, nil
		}
		log.Printf("Fewer than 2 ensemble members available, falling back to %s.", best)
		res := results[best]
		res.Model = ml.EnsembleName
		res.TrainTime = time.Since(start).Seconds()
		return res, entries[best].Model
	}

	ens, err := ml.NewSoftVotingEnsemble(members)
	if err != nil {
		return model.EvaluationResult{Model: ml.EnsembleName, Err: err.Error()}, nil
	}
	res, err := evaluate(ml.EnsembleName, ens, split, binary)
	if err != nil {
		return model.EvaluationResult{Model: ml.EnsembleName, Err: err.Error()}, nil
	}
	res.TrainTime = time.Since(start).Seconds()
	log.Printf("Ensemble of %d members evaluated, f1=%.4f", len(members), res.F1)
	return res, ens
}

// evaluate scores a fitted model on the held-out split. ROC AUC is
// computed only for binary targets from models with probability output.
func evaluate(name string, clf ml.Classifier, split *pipeline.Split, binary bool) (model.EvaluationResult, error) {
	pred, err := clf.Predict(split.XTest)
	if err != nil {
		return model.EvaluationResult{}, err
	}
	precision, recall, f1 := ml.WeightedPRF(split.YTest, pred)
	res := model.EvaluationResult{
		Model:     name,
		Accuracy:  ml.Accuracy(split.YTest, pred),
		Precision: precision,
		Recall:    recall,
		F1:        f1,
	}
	if binary {
		if probs, err := clf.PredictProba(split.XTest); err == nil {
			scores := make([]float64, len(probs))
			for i := range probs {
				scores[i] = probs[i][1]
			}
			res.AUC = ml.ROCAUC(split.YTest, scores)
			res.HasAUC = true
		}
	}
	return res, nil
}

func classCount(train, test []int) int {
	k := 0
	for _, y := range train {
		if y+1 > k {
			k = y + 1
		}
	}
	for _, y := range test {
		if y+1 > k {
			k = y + 1
		}
	}
	return k
}
