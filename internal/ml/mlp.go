package ml

import "math"

// MLP is a single-hidden-layer perceptron with ReLU activation and a
// softmax output, trained with momentum SGD on cross-entropy loss.
type MLP struct {
	HiddenUnits  int
	Epochs       int
	LearningRate float64
	Momentum     float64
	Seed         int64

	W1 [][]float64 // [hidden][feature+1], bias last
	W2 [][]float64 // [class][hidden+1], bias last

	Classes  int
	Features int
}

// NewMLP builds an unfitted network with a 100-unit hidden layer.
func NewMLP(cfg Config) *MLP {
	m := &MLP{
		HiddenUnits:  cfg.HiddenUnits,
		Epochs:       cfg.Epochs,
		LearningRate: cfg.LearningRate,
		Momentum:     0.9,
		Seed:         cfg.seed(),
	}
	if m.HiddenUnits <= 0 {
		m.HiddenUnits = 100
	}
	if m.Epochs <= 0 {
		m.Epochs = 200
	}
	if m.LearningRate <= 0 {
		m.LearningRate = 0.01
	}
	return m
}

func (m *MLP) Name() string    { return string(KindNeuralNetwork) }
func (m *MLP) NumClasses() int { return m.Classes }

// Fit trains the network with per-sample momentum SGD.
func (m *MLP) Fit(X [][]float64, y []int) error {
	n, d, k, err := checkTrainingData(X, y)
	if err != nil {
		return err
	}
	m.Features = d
	m.Classes = k
	h := m.HiddenUnits
	rng := newRand(m.Seed)

	// He initialization keeps ReLU activations from saturating at start.
	m.W1 = make([][]float64, h)
	scale1 := math.Sqrt(2 / float64(d))
	for u := range m.W1 {
		m.W1[u] = make([]float64, d+1)
		for j := 0; j < d; j++ {
			m.W1[u][j] = rng.NormFloat64() * scale1
		}
	}
	m.W2 = make([][]float64, k)
	scale2 := math.Sqrt(2 / float64(h))
	for c := range m.W2 {
		m.W2[c] = make([]float64, h+1)
		for u := 0; u < h; u++ {
			m.W2[c][u] = rng.NormFloat64() * scale2
		}
	}

	v1 := make([][]float64, h)
	for u := range v1 {
		v1[u] = make([]float64, d+1)
	}
	v2 := make([][]float64, k)
	for c := range v2 {
		v2[c] = make([]float64, h+1)
	}

	hidden := make([]float64, h)
	logits := make([]float64, k)
	probs := make([]float64, k)
	deltaHidden := make([]float64, h)

	for epoch := 0; epoch < m.Epochs; epoch++ {
		lr := m.LearningRate / (1 + 0.01*float64(epoch))
		for _, i := range shuffledIndices(n, rng) {
			x := X[i]
			m.forward(x, hidden, logits)
			softmax(probs, logits)

			// Output layer gradient is softmax minus one-hot.
			for c := 0; c < k; c++ {
				g := probs[c]
				if y[i] == c {
					g--
				}
				w, vel := m.W2[c], v2[c]
				for u := 0; u < h; u++ {
					vel[u] = m.Momentum*vel[u] - lr*g*hidden[u]
				}
				vel[h] = m.Momentum*vel[h] - lr*g
				for u := 0; u <= h; u++ {
					w[u] += vel[u]
				}
			}

			for u := 0; u < h; u++ {
				if hidden[u] <= 0 {
					deltaHidden[u] = 0
					continue
				}
				g := 0.0
				for c := 0; c < k; c++ {
					gc := probs[c]
					if y[i] == c {
						gc--
					}
					// W2 already took its step; the gradient drift is
					// negligible at these learning rates.
					g += gc * m.W2[c][u]
				}
				deltaHidden[u] = g
			}
			for u := 0; u < h; u++ {
				if deltaHidden[u] == 0 {
					continue
				}
				w, vel := m.W1[u], v1[u]
				for j := 0; j < d; j++ {
					vel[j] = m.Momentum*vel[j] - lr*deltaHidden[u]*x[j]
				}
				vel[d] = m.Momentum*vel[d] - lr*deltaHidden[u]
				for j := 0; j <= d; j++ {
					w[j] += vel[j]
				}
			}
		}
	}
	return nil
}

func (m *MLP) forward(x []float64, hidden, logits []float64) {
	d := m.Features
	for u := range m.W1 {
		w := m.W1[u]
		s := w[d]
		for j, v := range x {
			s += w[j] * v
		}
		if s < 0 {
			s = 0
		}
		hidden[u] = s
	}
	h := m.HiddenUnits
	for c := range m.W2 {
		w := m.W2[c]
		s := w[h]
		for u, v := range hidden {
			s += w[u] * v
		}
		logits[c] = s
	}
}

// Predict returns the argmax class of the softmax output.
func (m *MLP) Predict(X [][]float64) ([]int, error) {
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

// PredictProba runs the forward pass and softmaxes the logits.
func (m *MLP) PredictProba(X [][]float64) ([][]float64, error) {
	if m.W1 == nil {
		return nil, ErrNotTrained
	}
	if err := checkPredictData(X, m.Features); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	hidden := make([]float64, m.HiddenUnits)
	logits := make([]float64, m.Classes)
	for i, x := range X {
		m.forward(x, hidden, logits)
		probs := make([]float64, m.Classes)
		softmax(probs, logits)
		out[i] = probs
	}
	return out, nil
}
