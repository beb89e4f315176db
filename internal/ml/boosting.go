package ml

import (
	"math"
	"sort"
)

// RegNode is one node of a boosted regression tree. Leaves carry additive
// raw-score contributions. Exported for gob.
type RegNode struct {
	Feature   int
	Threshold float64
	Left      *RegNode
	Right     *RegNode
	Leaf      bool
	Weight    float64
}

// GradientBoosting is softmax gradient boosting over regression trees with
// second-order leaf weights (w = -G/(H+lambda), split gain from the same
// statistics). Growth strategy separates the two panel variants: depth-wise
// growth for the xgboost-style booster, best-first leaf-wise growth under a
// leaf budget for the lightgbm-style booster.
type GradientBoosting struct {
	Variant      Kind
	Rounds       int
	LearningRate float64
	MaxDepth     int     // depth cap; 0 = unbounded (leaf-wise only)
	NumLeaves    int     // leaf budget; 0 selects depth-wise growth
	Lambda       float64 // L2 on leaf weights
	MinChild     float64 // minimum hessian sum per child
	Seed         int64

	Base     []float64   // initial per-class log-odds
	Forest   [][]*RegNode // [round][class]
	Classes  int
	Features int
}

// NewGradientBoosting builds the depth-wise (xgboost-style) booster.
func NewGradientBoosting(cfg Config) *GradientBoosting {
	g := &GradientBoosting{
		Variant:      KindXGBoost,
		Rounds:       cfg.Trees,
		LearningRate: cfg.LearningRate,
		MaxDepth:     cfg.MaxDepth,
		Lambda:       1,
		MinChild:     1,
		Seed:         cfg.seed(),
	}
	if g.Rounds <= 0 {
		g.Rounds = 100
	}
	if g.LearningRate <= 0 {
		g.LearningRate = 0.3
	}
	if g.MaxDepth <= 0 {
		g.MaxDepth = 6
	}
	return g
}

// NewLeafwiseBoosting builds the leaf-wise (lightgbm-style) booster.
func NewLeafwiseBoosting(cfg Config) *GradientBoosting {
	g := &GradientBoosting{
		Variant:      KindLightGBM,
		Rounds:       cfg.Trees,
		LearningRate: cfg.LearningRate,
		MaxDepth:     cfg.MaxDepth, // 0 keeps depth unbounded
		NumLeaves:    cfg.NumLeaves,
		Lambda:       1,
		MinChild:     1,
		Seed:         cfg.seed(),
	}
	if g.Rounds <= 0 {
		g.Rounds = 100
	}
	if g.LearningRate <= 0 {
		g.LearningRate = 0.1
	}
	if g.NumLeaves <= 1 {
		g.NumLeaves = 31
	}
	return g
}

func (g *GradientBoosting) Name() string    { return string(g.Variant) }
func (g *GradientBoosting) NumClasses() int { return g.Classes }

// Fit boosts Rounds trees per class against the softmax objective.
func (g *GradientBoosting) Fit(X [][]float64, y []int) error {
	n, d, k, err := checkTrainingData(X, y)
	if err != nil {
		return err
	}
	g.Features = d
	g.Classes = k

	// Initial raw scores from class priors.
	g.Base = make([]float64, k)
	for _, label := range y {
		g.Base[label]++
	}
	for c := range g.Base {
		p := g.Base[c] / float64(n)
		if p <= 0 {
			p = 1e-9
		}
		g.Base[c] = math.Log(p)
	}

	raw := make([][]float64, n)
	for i := range raw {
		raw[i] = make([]float64, k)
		copy(raw[i], g.Base)
	}

	grad := make([]float64, n)
	hess := make([]float64, n)
	probs := make([]float64, k)
	g.Forest = make([][]*RegNode, g.Rounds)

	for round := 0; round < g.Rounds; round++ {
		g.Forest[round] = make([]*RegNode, k)
		for c := 0; c < k; c++ {
			for i := 0; i < n; i++ {
				softmax(probs, raw[i])
				p := probs[c]
				target := 0.0
				if y[i] == c {
					target = 1
				}
				grad[i] = p - target
				hess[i] = p * (1 - p)
				if hess[i] < 1e-16 {
					hess[i] = 1e-16
				}
			}
			tree := g.growTree(X, grad, hess)
			g.Forest[round][c] = tree
			for i := 0; i < n; i++ {
				raw[i][c] += g.LearningRate * regPredict(tree, X[i])
			}
		}
	}
	return nil
}

// Predict returns the argmax of the softmax over accumulated raw scores.
func (g *GradientBoosting) Predict(X [][]float64) ([]int, error) {
	probs, err := g.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(probs))
	for i, p := range probs {
		out[i] = argmax(p)
	}
	return out, nil
}

// PredictProba runs every boosted tree and softmaxes the raw scores.
func (g *GradientBoosting) PredictProba(X [][]float64) ([][]float64, error) {
	if len(g.Forest) == 0 {
		return nil, ErrNotTrained
	}
	if err := checkPredictData(X, g.Features); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, x := range X {
		raw := make([]float64, g.Classes)
		copy(raw, g.Base)
		for _, round := range g.Forest {
			for c, tree := range round {
				raw[c] += g.LearningRate * regPredict(tree, x)
			}
		}
		softmax(raw, raw)
		out[i] = raw
	}
	return out, nil
}

func regPredict(node *RegNode, x []float64) float64 {
	for !node.Leaf {
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Weight
}

// growTree dispatches on the growth strategy.
func (g *GradientBoosting) growTree(X [][]float64, grad, hess []float64) *RegNode {
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	if g.NumLeaves > 0 {
		return g.growLeafwise(X, grad, hess, idx)
	}
	return g.growDepthwise(X, grad, hess, idx, 0)
}

func (g *GradientBoosting) growDepthwise(X [][]float64, grad, hess []float64, idx []int, depth int) *RegNode {
	if depth >= g.MaxDepth || len(idx) < 2 {
		return g.leaf(grad, hess, idx)
	}
	feature, threshold, gain := g.bestRegSplit(X, grad, hess, idx)
	if gain <= 0 {
		return g.leaf(grad, hess, idx)
	}
	left, right := partition(X, idx, feature, threshold)
	if len(left) == 0 || len(right) == 0 {
		return g.leaf(grad, hess, idx)
	}
	return &RegNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      g.growDepthwise(X, grad, hess, left, depth+1),
		Right:     g.growDepthwise(X, grad, hess, right, depth+1),
	}
}

// pendingLeaf is a grown leaf whose best split is precomputed, awaiting the
// best-first selection of leaf-wise growth.
type pendingLeaf struct {
	node      *RegNode
	idx       []int
	depth     int
	gain      float64
	feature   int
	threshold float64
}

func (g *GradientBoosting) growLeafwise(X [][]float64, grad, hess []float64, idx []int) *RegNode {
	root := g.leaf(grad, hess, idx)
	pending := []*pendingLeaf{g.pend(X, grad, hess, root, idx, 0)}
	leaves := 1

	for leaves < g.NumLeaves {
		best := -1
		for i, p := range pending {
			if p.gain > 0 && (best < 0 || p.gain > pending[best].gain) {
				best = i
			}
		}
		if best < 0 {
			break
		}
		p := pending[best]
		pending = append(pending[:best], pending[best+1:]...)

		left, right := partition(X, p.idx, p.feature, p.threshold)
		if len(left) == 0 || len(right) == 0 {
			continue
		}
		p.node.Leaf = false
		p.node.Weight = 0
		p.node.Feature = p.feature
		p.node.Threshold = p.threshold
		p.node.Left = g.leaf(grad, hess, left)
		p.node.Right = g.leaf(grad, hess, right)
		pending = append(pending,
			g.pend(X, grad, hess, p.node.Left, left, p.depth+1),
			g.pend(X, grad, hess, p.node.Right, right, p.depth+1))
		leaves++
	}
	return root
}

func (g *GradientBoosting) pend(X [][]float64, grad, hess []float64, node *RegNode, idx []int, depth int) *pendingLeaf {
	p := &pendingLeaf{node: node, idx: idx, depth: depth}
	if len(idx) < 2 || (g.MaxDepth > 0 && depth >= g.MaxDepth) {
		return p
	}
	p.feature, p.threshold, p.gain = g.bestRegSplit(X, grad, hess, idx)
	return p
}

func (g *GradientBoosting) leaf(grad, hess []float64, idx []int) *RegNode {
	var gSum, hSum float64
	for _, i := range idx {
		gSum += grad[i]
		hSum += hess[i]
	}
	return &RegNode{Leaf: true, Weight: -gSum / (hSum + g.Lambda)}
}

// bestRegSplit sweeps sorted feature values accumulating gradient and
// hessian sums, scoring splits by GL^2/(HL+l) + GR^2/(HR+l) - G^2/(H+l).
func (g *GradientBoosting) bestRegSplit(X [][]float64, grad, hess []float64, idx []int) (int, float64, float64) {
	var gTotal, hTotal float64
	for _, i := range idx {
		gTotal += grad[i]
		hTotal += hess[i]
	}
	parent := gTotal * gTotal / (hTotal + g.Lambda)

	sorted := make([]int, len(idx))
	bestFeature, bestThreshold, bestGain := -1, 0.0, 0.0
	for f := 0; f < g.Features; f++ {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool { return X[sorted[a]][f] < X[sorted[b]][f] })

		var gl, hl float64
		for pos := 1; pos < len(sorted); pos++ {
			gl += grad[sorted[pos-1]]
			hl += hess[sorted[pos-1]]
			prev, cur := X[sorted[pos-1]][f], X[sorted[pos]][f]
			if prev == cur {
				continue
			}
			gr := gTotal - gl
			hr := hTotal - hl
			if hl < g.MinChild || hr < g.MinChild {
				continue
			}
			gain := gl*gl/(hl+g.Lambda) + gr*gr/(hr+g.Lambda) - parent
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (prev + cur) / 2
			}
		}
	}
	return bestFeature, bestThreshold, bestGain
}

func partition(X [][]float64, idx []int, feature int, threshold float64) ([]int, []int) {
	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}
