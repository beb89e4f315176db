package ml

import "math"

// GaussianNB models each feature as an independent per-class Gaussian.
// Variances are floored by a smoothing term proportional to the largest
// feature variance so constant columns do not produce infinite densities.
type GaussianNB struct {
	Priors   []float64   // log prior per class
	Mean     [][]float64 // [class][feature]
	Variance [][]float64 // [class][feature], smoothed
	Classes  int
	Features int
}

const varSmoothing = 1e-9

// NewGaussianNB builds an unfitted model. The variant has no
// hyperparameters beyond the fixed smoothing term.
func NewGaussianNB() *GaussianNB { return &GaussianNB{} }

func (m *GaussianNB) Name() string    { return string(KindNaiveBayes) }
func (m *GaussianNB) NumClasses() int { return m.Classes }

// Fit estimates per-class feature means, variances and log priors.
func (m *GaussianNB) Fit(X [][]float64, y []int) error {
	n, d, k, err := checkTrainingData(X, y)
	if err != nil {
		return err
	}
	m.Features = d
	m.Classes = k
	m.Priors = make([]float64, k)
	m.Mean = make([][]float64, k)
	m.Variance = make([][]float64, k)
	counts := make([]int, k)
	for c := 0; c < k; c++ {
		m.Mean[c] = make([]float64, d)
		m.Variance[c] = make([]float64, d)
	}
	for i, x := range X {
		c := y[i]
		counts[c]++
		for j, v := range x {
			m.Mean[c][j] += v
		}
	}
	for c := 0; c < k; c++ {
		for j := 0; j < d; j++ {
			m.Mean[c][j] /= float64(counts[c])
		}
	}
	for i, x := range X {
		c := y[i]
		for j, v := range x {
			diff := v - m.Mean[c][j]
			m.Variance[c][j] += diff * diff
		}
	}
	maxVar := 0.0
	for c := 0; c < k; c++ {
		for j := 0; j < d; j++ {
			m.Variance[c][j] /= float64(counts[c])
			if m.Variance[c][j] > maxVar {
				maxVar = m.Variance[c][j]
			}
		}
	}
	eps := varSmoothing * maxVar
	if eps <= 0 {
		eps = varSmoothing
	}
	for c := 0; c < k; c++ {
		m.Priors[c] = math.Log(float64(counts[c]) / float64(n))
		for j := 0; j < d; j++ {
			m.Variance[c][j] += eps
		}
	}
	return nil
}

func (m *GaussianNB) logJoint(x []float64) []float64 {
	joint := make([]float64, m.Classes)
	for c := 0; c < m.Classes; c++ {
		s := m.Priors[c]
		for j, v := range x {
			variance := m.Variance[c][j]
			diff := v - m.Mean[c][j]
			s += -0.5*math.Log(2*math.Pi*variance) - diff*diff/(2*variance)
		}
		joint[c] = s
	}
	return joint
}

// Predict returns the class with the highest posterior.
func (m *GaussianNB) Predict(X [][]float64) ([]int, error) {
	if m.Mean == nil {
		return nil, ErrNotTrained
	}
	if err := checkPredictData(X, m.Features); err != nil {
		return nil, err
	}
	out := make([]int, len(X))
	for i, x := range X {
		out[i] = argmax(m.logJoint(x))
	}
	return out, nil
}

// PredictProba exponentiates and normalizes the per-class log joint.
func (m *GaussianNB) PredictProba(X [][]float64) ([][]float64, error) {
	if m.Mean == nil {
		return nil, ErrNotTrained
	}
	if err := checkPredictData(X, m.Features); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, x := range X {
		probs := make([]float64, m.Classes)
		softmax(probs, m.logJoint(x))
		out[i] = probs
	}
	return out, nil
}
