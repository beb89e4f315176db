// Package ml implements the fixed panel of classifiers used by the training
// engine: tree ensembles, gradient boosting (depth-wise and leaf-wise),
// linear and margin models, naive Bayes, nearest neighbors, and a shallow
// neural network. All models are pure Go, deterministic under a fixed seed,
// and share the Classifier interface.
package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// Classifier is the common capability surface of every panel variant.
// Labels are expected to be contiguous integer codes 0..K-1 (the feature
// pipeline's target encoding).
type Classifier interface {
	// Fit trains the model on X (rows of feature vectors) and y (labels).
	Fit(X [][]float64, y []int) error

	// Predict returns the hard label for each row of X.
	Predict(X [][]float64) ([]int, error)

	// PredictProba returns per-class probabilities for each row of X, or
	// ErrNoProbability when the variant has no native probability output.
	PredictProba(X [][]float64) ([][]float64, error)

	// Name returns the panel key for this variant.
	Name() string

	// NumClasses returns the number of classes seen at fit time, 0 before
	// fitting.
	NumClasses() int
}

// ErrNoProbability marks variants without native probability output.
// Callers that need probabilities anyway fall back to one-hot encoding of
// the hard prediction.
var ErrNoProbability = errors.New("model has no probability output")

// ErrNotTrained is returned by Predict/PredictProba before Fit succeeds.
var ErrNotTrained = errors.New("model is not trained")

// Kind identifies one variant of the fixed panel. The set is closed: New
// rejects anything outside it.
type Kind string

const (
	KindRandomForest       Kind = "random_forest"
	KindXGBoost            Kind = "xgboost"
	KindLightGBM           Kind = "lightgbm"
	KindSVM                Kind = "svm"
	KindLogisticRegression Kind = "logistic_regression"
	KindDecisionTree       Kind = "decision_tree"
	KindNaiveBayes         Kind = "naive_bayes"
	KindKNN                Kind = "knn"
	KindNeuralNetwork      Kind = "neural_network"
)

// Kinds returns the full panel in its canonical training order.
func Kinds() []Kind {
	return []Kind{
		KindRandomForest,
		KindXGBoost,
		KindLightGBM,
		KindSVM,
		KindLogisticRegression,
		KindDecisionTree,
		KindNaiveBayes,
		KindKNN,
		KindNeuralNetwork,
	}
}

// EnsembleKinds is the whitelist of panel variants eligible for the
// soft-voting ensemble.
func EnsembleKinds() []Kind {
	return []Kind{KindRandomForest, KindXGBoost, KindLightGBM, KindLogisticRegression}
}

// DefaultSeed keeps every variant reproducible run to run.
const DefaultSeed int64 = 42

// Config carries the shared hyperparameters. Zero values select per-variant
// defaults, so Config{} yields the standard panel.
type Config struct {
	Seed         int64   // random seed (default 42)
	Trees        int     // forest size / boosting rounds
	MaxDepth     int     // tree depth limit (0 = unlimited for single trees)
	LearningRate float64 // boosting shrinkage / gradient step size
	NumLeaves    int     // leaf budget for leaf-wise boosting
	Neighbors    int     // k for the neighbor model
	HiddenUnits  int     // hidden layer width for the neural net
	Epochs       int     // iteration budget for gradient-trained models
	L2           float64 // ridge penalty for linear models
}

func (c Config) seed() int64 {
	if c.Seed == 0 {
		return DefaultSeed
	}
	return c.Seed
}

// New constructs one panel variant. Unknown kinds are rejected, keeping the
// panel a closed set.
func New(kind Kind, cfg Config) (Classifier, error) {
	switch kind {
	case KindRandomForest:
		return NewRandomForest(cfg), nil
	case KindXGBoost:
		return NewGradientBoosting(cfg), nil
	case KindLightGBM:
		return NewLeafwiseBoosting(cfg), nil
	case KindSVM:
		return NewLinearSVM(cfg), nil
	case KindLogisticRegression:
		return NewLogisticRegression(cfg), nil
	case KindDecisionTree:
		return NewDecisionTree(cfg), nil
	case KindNaiveBayes:
		return NewGaussianNB(), nil
	case KindKNN:
		return NewKNN(cfg), nil
	case KindNeuralNetwork:
		return NewMLP(cfg), nil
	default:
		return nil, fmt.Errorf("unknown classifier kind %q", kind)
	}
}

// checkTrainingData validates shapes and returns (rows, features, classes).
func checkTrainingData(X [][]float64, y []int) (int, int, int, error) {
	if len(X) == 0 {
		return 0, 0, 0, errors.New("training data is empty")
	}
	if len(X) != len(y) {
		return 0, 0, 0, fmt.Errorf("feature rows (%d) and labels (%d) differ", len(X), len(y))
	}
	d := len(X[0])
	if d == 0 {
		return 0, 0, 0, errors.New("training rows have no features")
	}
	classes := 0
	for i, row := range X {
		if len(row) != d {
			return 0, 0, 0, fmt.Errorf("row %d has %d features, want %d", i, len(row), d)
		}
		if y[i] < 0 {
			return 0, 0, 0, fmt.Errorf("label %d at row %d is negative", y[i], i)
		}
		if y[i]+1 > classes {
			classes = y[i] + 1
		}
	}
	if classes < 2 {
		return 0, 0, 0, errors.New("training data has fewer than 2 classes")
	}
	return len(X), d, classes, nil
}

// checkPredictData validates a prediction batch against the fitted width.
func checkPredictData(X [][]float64, want int) error {
	for i, row := range X {
		if len(row) != want {
			return fmt.Errorf("row %d has %d features, model was fitted with %d", i, len(row), want)
		}
	}
	return nil
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// softmax writes the normalized exponentials of src into dst (may alias).
func softmax(dst, src []float64) {
	max := src[0]
	for _, v := range src[1:] {
		if v > max {
			max = v
		}
	}
	sum := 0.0
	for i, v := range src {
		e := math.Exp(v - max)
		dst[i] = e
		sum += e
	}
	for i := range dst {
		dst[i] /= sum
	}
}

// shuffledIndices returns a deterministic permutation of [0,n).
func shuffledIndices(n int, rng *rand.Rand) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	return idx
}
