package ml

import "math"

// LinearSVM is a one-vs-rest margin classifier trained with hinge-loss SGD.
// When Calibrated (the panel default) probabilities come from a sigmoid of
// the decision margin, normalized across classes; it is a calibration
// approximation, not a posterior. With Calibrated off PredictProba reports
// ErrNoProbability and callers one-hot the hard prediction.
type LinearSVM struct {
	Epochs       int
	LearningRate float64
	L2           float64
	Calibrated   bool
	Seed         int64

	W        [][]float64 // [class][feature+1], last column is the bias
	Classes  int
	Features int
}

// NewLinearSVM builds an unfitted, calibration-enabled model.
func NewLinearSVM(cfg Config) *LinearSVM {
	m := &LinearSVM{
		Epochs:       cfg.Epochs,
		LearningRate: cfg.LearningRate,
		L2:           cfg.L2,
		Calibrated:   true,
		Seed:         cfg.seed(),
	}
	if m.Epochs <= 0 {
		m.Epochs = 200
	}
	if m.LearningRate <= 0 {
		m.LearningRate = 0.01
	}
	if m.L2 <= 0 {
		m.L2 = 1e-3
	}
	return m
}

func (m *LinearSVM) Name() string    { return string(KindSVM) }
func (m *LinearSVM) NumClasses() int { return m.Classes }

// Fit trains one hinge-loss separator per class.
func (m *LinearSVM) Fit(X [][]float64, y []int) error {
	n, d, k, err := checkTrainingData(X, y)
	if err != nil {
		return err
	}
	m.Features = d
	m.Classes = k
	m.W = make([][]float64, k)
	for c := range m.W {
		m.W[c] = make([]float64, d+1)
	}

	rng := newRand(m.Seed)
	for epoch := 0; epoch < m.Epochs; epoch++ {
		lr := m.LearningRate / (1 + 0.01*float64(epoch))
		for _, i := range shuffledIndices(n, rng) {
			x := X[i]
			for c := 0; c < k; c++ {
				target := -1.0
				if y[i] == c {
					target = 1
				}
				w := m.W[c]
				margin := target * m.margin(c, x)
				if margin < 1 {
					for j := 0; j < d; j++ {
						w[j] += lr * (target*x[j] - m.L2*w[j])
					}
					w[d] += lr * target
				} else {
					for j := 0; j < d; j++ {
						w[j] -= lr * m.L2 * w[j]
					}
				}
			}
		}
	}
	return nil
}

func (m *LinearSVM) margin(class int, x []float64) float64 {
	w := m.W[class]
	s := w[len(w)-1]
	for j, v := range x {
		s += w[j] * v
	}
	return s
}

// Predict returns the class with the largest decision margin.
func (m *LinearSVM) Predict(X [][]float64) ([]int, error) {
	if m.W == nil {
		return nil, ErrNotTrained
	}
	if err := checkPredictData(X, m.Features); err != nil {
		return nil, err
	}
	out := make([]int, len(X))
	for i, x := range X {
		best, bestScore := 0, math.Inf(-1)
		for c := 0; c < m.Classes; c++ {
			if s := m.margin(c, x); s > bestScore {
				best, bestScore = c, s
			}
		}
		out[i] = best
	}
	return out, nil
}

// PredictProba returns sigmoid-calibrated margins normalized across classes.
func (m *LinearSVM) PredictProba(X [][]float64) ([][]float64, error) {
	if m.W == nil {
		return nil, ErrNotTrained
	}
	if !m.Calibrated {
		return nil, ErrNoProbability
	}
	if err := checkPredictData(X, m.Features); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, x := range X {
		probs := make([]float64, m.Classes)
		sum := 0.0
		for c := 0; c < m.Classes; c++ {
			probs[c] = 1 / (1 + math.Exp(-m.margin(c, x)))
			sum += probs[c]
		}
		if sum > 0 {
			for c := range probs {
				probs[c] /= sum
			}
		}
		out[i] = probs
	}
	return out, nil
}
