package ml

// LogisticRegression is a multinomial (softmax) linear model trained with
// SGD and a ridge penalty. Inputs are expected standardized, which the
// feature pipeline guarantees.
type LogisticRegression struct {
	Epochs       int
	LearningRate float64
	L2           float64
	Seed         int64

	W        [][]float64 // [class][feature+1], last column is the bias
	Classes  int
	Features int
}

// NewLogisticRegression builds an unfitted model with panel defaults.
func NewLogisticRegression(cfg Config) *LogisticRegression {
	m := &LogisticRegression{
		Epochs:       cfg.Epochs,
		LearningRate: cfg.LearningRate,
		L2:           cfg.L2,
		Seed:         cfg.seed(),
	}
	if m.Epochs <= 0 {
		m.Epochs = 200
	}
	if m.LearningRate <= 0 {
		m.LearningRate = 0.1
	}
	if m.L2 <= 0 {
		m.L2 = 1e-4
	}
	return m
}

func (m *LogisticRegression) Name() string    { return string(KindLogisticRegression) }
func (m *LogisticRegression) NumClasses() int { return m.Classes }

// Fit runs epoch-shuffled SGD on the softmax cross-entropy objective.
func (m *LogisticRegression) Fit(X [][]float64, y []int) error {
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
	scores := make([]float64, k)
	for epoch := 0; epoch < m.Epochs; epoch++ {
		lr := m.LearningRate / (1 + 0.01*float64(epoch))
		for _, i := range shuffledIndices(n, rng) {
			x := X[i]
			for c := 0; c < k; c++ {
				scores[c] = m.score(c, x)
			}
			softmax(scores, scores)
			for c := 0; c < k; c++ {
				residual := scores[c]
				if y[i] == c {
					residual -= 1
				}
				w := m.W[c]
				for j := 0; j < d; j++ {
					w[j] -= lr * (residual*x[j] + m.L2*w[j])
				}
				w[d] -= lr * residual
			}
		}
	}
	return nil
}

func (m *LogisticRegression) score(class int, x []float64) float64 {
	w := m.W[class]
	s := w[len(w)-1]
	for j, v := range x {
		s += w[j] * v
	}
	return s
}

// Predict returns the argmax class.
func (m *LogisticRegression) Predict(X [][]float64) ([]int, error) {
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

// PredictProba returns softmax class probabilities.
func (m *LogisticRegression) PredictProba(X [][]float64) ([][]float64, error) {
	if m.W == nil {
		return nil, ErrNotTrained
	}
	if err := checkPredictData(X, m.Features); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, x := range X {
		scores := make([]float64, m.Classes)
		for c := range scores {
			scores[c] = m.score(c, x)
		}
		softmax(scores, scores)
		out[i] = scores
	}
	return out, nil
}
