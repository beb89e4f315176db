package ml

import (
	"math"
	"math/rand"
	"sync"
)

// RandomForest bags Gini trees over bootstrap resamples with sqrt(d)
// feature subsets per split, averaging leaf distributions for probability
// output. Trees are grown concurrently; each draws from its own seeded
// generator so results are reproducible regardless of scheduling.
type RandomForest struct {
	NumTrees int
	MaxDepth int
	Seed     int64

	Trees    []*DecisionTree
	Classes  int
	Features int
}

// NewRandomForest builds an unfitted forest. Defaults: 100 trees,
// unbounded depth.
func NewRandomForest(cfg Config) *RandomForest {
	trees := cfg.Trees
	if trees <= 0 {
		trees = 100
	}
	return &RandomForest{
		NumTrees: trees,
		MaxDepth: cfg.MaxDepth,
		Seed:     cfg.seed(),
	}
}

func (f *RandomForest) Name() string    { return string(KindRandomForest) }
func (f *RandomForest) NumClasses() int { return f.Classes }

// Fit grows all trees on bootstrap resamples of (X, y).
func (f *RandomForest) Fit(X [][]float64, y []int) error {
	n, d, k, err := checkTrainingData(X, y)
	if err != nil {
		return err
	}
	f.Features = d
	f.Classes = k
	f.Trees = make([]*DecisionTree, f.NumTrees)

	maxFeatures := int(math.Ceil(math.Sqrt(float64(d))))

	var wg sync.WaitGroup
	wg.Add(f.NumTrees)
	for t := 0; t < f.NumTrees; t++ {
		go func(t int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(f.Seed + int64(t)))
			sample := make([]int, n)
			for i := range sample {
				sample[i] = rng.Intn(n)
			}
			tree := &DecisionTree{
				MaxDepth:    f.MaxDepth,
				MinSamples:  2,
				MaxFeatures: maxFeatures,
				Seed:        f.Seed + int64(t),
			}
			tree.fitIndices(X, y, sample, d, k)
			f.Trees[t] = tree
		}(t)
	}
	wg.Wait()
	return nil
}

// Predict returns the class with the highest averaged leaf probability.
func (f *RandomForest) Predict(X [][]float64) ([]int, error) {
	probs, err := f.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(probs))
	for i, p := range probs {
		out[i] = argmax(p)
	}
	return out, nil
}

// PredictProba averages the leaf distributions across all trees.
func (f *RandomForest) PredictProba(X [][]float64) ([][]float64, error) {
	if len(f.Trees) == 0 {
		return nil, ErrNotTrained
	}
	if err := checkPredictData(X, f.Features); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i := range out {
		out[i] = make([]float64, f.Classes)
	}
	for _, tree := range f.Trees {
		treeProbs, err := tree.PredictProba(X)
		if err != nil {
			return nil, err
		}
		for i, p := range treeProbs {
			for c, v := range p {
				out[i][c] += v
			}
		}
	}
	inv := 1 / float64(len(f.Trees))
	for i := range out {
		for c := range out[i] {
			out[i][c] *= inv
		}
	}
	return out, nil
}
