package ml

import (
	"math"
	"sort"
)

// KNN is a brute-force k-nearest-neighbors classifier over euclidean
// distance. It memorizes the training set; probabilities are the vote
// fraction among the K nearest points.
type KNN struct {
	K int

	X        [][]float64
	Y        []int
	Classes  int
	Features int
}

// NewKNN builds an unfitted model, K defaults to 5.
func NewKNN(cfg Config) *KNN {
	m := &KNN{K: cfg.Neighbors}
	if m.K <= 0 {
		m.K = 5
	}
	return m
}

func (m *KNN) Name() string    { return string(KindKNN) }
func (m *KNN) NumClasses() int { return m.Classes }

// Fit stores the training set. K is capped at the number of samples.
func (m *KNN) Fit(X [][]float64, y []int) error {
	n, d, k, err := checkTrainingData(X, y)
	if err != nil {
		return err
	}
	m.Features = d
	m.Classes = k
	m.X = make([][]float64, n)
	m.Y = make([]int, n)
	for i := range X {
		row := make([]float64, d)
		copy(row, X[i])
		m.X[i] = row
		m.Y[i] = y[i]
	}
	if m.K > n {
		m.K = n
	}
	return nil
}

type neighbor struct {
	dist  float64
	class int
}

func (m *KNN) nearest(x []float64) []neighbor {
	all := make([]neighbor, len(m.X))
	for i, train := range m.X {
		s := 0.0
		for j, v := range train {
			diff := v - x[j]
			s += diff * diff
		}
		all[i] = neighbor{dist: math.Sqrt(s), class: m.Y[i]}
	}
	sort.Slice(all, func(a, b int) bool { return all[a].dist < all[b].dist })
	return all[:m.K]
}

// Predict returns the majority class among the K nearest neighbors.
func (m *KNN) Predict(X [][]float64) ([]int, error) {
	probs, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(probs))
	for i, p := range probs {
		out[i] = argmax(p)
	}
	return out, nil
}

// PredictProba returns per-class vote fractions among the K nearest.
func (m *KNN) PredictProba(X [][]float64) ([][]float64, error) {
	if m.X == nil {
		return nil, ErrNotTrained
	}
	if err := checkPredictData(X, m.Features); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, x := range X {
		probs := make([]float64, m.Classes)
		for _, nb := range m.nearest(x) {
			probs[nb.class]++
		}
		for c := range probs {
			probs[c] /= float64(m.K)
		}
		out[i] = probs
	}
	return out, nil
}
