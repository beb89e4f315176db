package ml

import (
	"math/rand"
	"sort"
)

// TreeNode is one node of a fitted decision tree. Fields are exported so
// trained trees survive gob round-trips.
type TreeNode struct {
	Feature   int
	Threshold float64
	Left      *TreeNode
	Right     *TreeNode
	Leaf      bool
	Probs     []float64 // class distribution at a leaf
}

// DecisionTree is a CART classifier splitting on Gini impurity. With
// MaxFeatures > 0 each split considers a random feature subset, which is
// how the random forest decorrelates its members.
type DecisionTree struct {
	MaxDepth    int   // 0 = grow until pure
	MinSamples  int   // minimum samples to attempt a split
	MaxFeatures int   // 0 = consider every feature
	Seed        int64 // split-subset randomness

	Root     *TreeNode
	Classes  int
	Features int

	rng *rand.Rand
}

// NewDecisionTree builds an unfitted tree with panel defaults.
func NewDecisionTree(cfg Config) *DecisionTree {
	return &DecisionTree{
		MaxDepth:   cfg.MaxDepth,
		MinSamples: 2,
		Seed:       cfg.seed(),
	}
}

func (t *DecisionTree) Name() string    { return string(KindDecisionTree) }
func (t *DecisionTree) NumClasses() int { return t.Classes }

// Fit grows the tree on the full sample.
func (t *DecisionTree) Fit(X [][]float64, y []int) error {
	_, d, k, err := checkTrainingData(X, y)
	if err != nil {
		return err
	}
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	return t.fitIndices(X, y, idx, d, k)
}

// fitIndices grows the tree on a sample given by idx, which may contain
// duplicates (bootstrap resampling).
func (t *DecisionTree) fitIndices(X [][]float64, y []int, idx []int, features, classes int) error {
	t.Features = features
	t.Classes = classes
	if t.MinSamples < 2 {
		t.MinSamples = 2
	}
	t.rng = newRand(t.Seed)
	t.Root = t.grow(X, y, idx, 0)
	return nil
}

func (t *DecisionTree) grow(X [][]float64, y []int, idx []int, depth int) *TreeNode {
	counts := make([]float64, t.Classes)
	for _, i := range idx {
		counts[y[i]]++
	}
	if len(idx) < t.MinSamples || isPure(counts) || (t.MaxDepth > 0 && depth >= t.MaxDepth) {
		return leafNode(counts, len(idx))
	}

	feature, threshold, gain := t.bestSplit(X, y, idx, counts)
	if gain <= 0 {
		return leafNode(counts, len(idx))
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return leafNode(counts, len(idx))
	}
	return &TreeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      t.grow(X, y, left, depth+1),
		Right:     t.grow(X, y, right, depth+1),
	}
}

// bestSplit scans candidate features with a sorted sweep, maintaining
// running class counts so each feature costs O(n log n).
func (t *DecisionTree) bestSplit(X [][]float64, y []int, idx []int, total []float64) (int, float64, float64) {
	n := float64(len(idx))
	parent := gini(total, n)

	candidates := t.candidateFeatures()
	sorted := make([]int, len(idx))
	leftCounts := make([]float64, t.Classes)

	bestFeature, bestThreshold, bestGain := -1, 0.0, 0.0
	for _, f := range candidates {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool { return X[sorted[a]][f] < X[sorted[b]][f] })

		for c := range leftCounts {
			leftCounts[c] = 0
		}
		for pos := 1; pos < len(sorted); pos++ {
			leftCounts[y[sorted[pos-1]]]++
			prev, cur := X[sorted[pos-1]][f], X[sorted[pos]][f]
			if prev == cur {
				continue
			}
			nl := float64(pos)
			nr := n - nl
			var gl, gr float64
			gl = giniLeft(leftCounts, nl)
			gr = giniRight(total, leftCounts, nr)
			weighted := (nl*gl + nr*gr) / n
			if gain := parent - weighted; gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (prev + cur) / 2
			}
		}
	}
	return bestFeature, bestThreshold, bestGain
}

func (t *DecisionTree) candidateFeatures() []int {
	if t.MaxFeatures <= 0 || t.MaxFeatures >= t.Features {
		all := make([]int, t.Features)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return t.rng.Perm(t.Features)[:t.MaxFeatures]
}

// Predict returns the majority class of the reached leaf.
func (t *DecisionTree) Predict(X [][]float64) ([]int, error) {
	probs, err := t.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(probs))
	for i, p := range probs {
		out[i] = argmax(p)
	}
	return out, nil
}

// PredictProba returns the class distribution of the reached leaf.
func (t *DecisionTree) PredictProba(X [][]float64) ([][]float64, error) {
	if t.Root == nil {
		return nil, ErrNotTrained
	}
	if err := checkPredictData(X, t.Features); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, x := range X {
		node := t.Root
		for !node.Leaf {
			if x[node.Feature] <= node.Threshold {
				node = node.Left
			} else {
				node = node.Right
			}
		}
		p := make([]float64, len(node.Probs))
		copy(p, node.Probs)
		out[i] = p
	}
	return out, nil
}

func leafNode(counts []float64, n int) *TreeNode {
	probs := make([]float64, len(counts))
	if n > 0 {
		for c, v := range counts {
			probs[c] = v / float64(n)
		}
	}
	return &TreeNode{Leaf: true, Probs: probs}
}

func isPure(counts []float64) bool {
	seen := false
	for _, c := range counts {
		if c > 0 {
			if seen {
				return false
			}
			seen = true
		}
	}
	return true
}

func gini(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := c / n
		g -= p * p
	}
	return g
}

func giniLeft(left []float64, nl float64) float64 {
	return gini(left, nl)
}

func giniRight(total, left []float64, nr float64) float64 {
	if nr == 0 {
		return 0
	}
	g := 1.0
	for c := range total {
		p := (total[c] - left[c]) / nr
		g -= p * p
	}
	return g
}
