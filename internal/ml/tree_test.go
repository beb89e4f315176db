package ml

import "testing"

func TestDecisionTreeSeparableSplit(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {10}, {11}, {12}}
	y := []int{0, 0, 0, 1, 1, 1}

	tree := NewDecisionTree(Config{})
	if err := tree.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit tree: %v", err)
	}

	pred, err := tree.Predict(X)
	if err != nil {
		t.Fatalf("Failed to predict: %v", err)
	}
	for i := range y {
		if pred[i] != y[i] {
			t.Errorf("Row %d: expected class %d, got %d", i, y[i], pred[i])
		}
	}

	probs, err := tree.PredictProba([][]float64{{2}, {11}})
	if err != nil {
		t.Fatalf("Failed to predict probabilities: %v", err)
	}
	if !almostEqual(probs[0][0], 1) || !almostEqual(probs[1][1], 1) {
		t.Errorf("Expected pure leaves on cleanly separable data, got %v", probs)
	}
}

func TestDecisionTreeDepthLimit(t *testing.T) {
	// Three classes along one feature need depth 2 for purity; depth 1
	// can distinguish at most two of them.
	X := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}}
	y := []int{0, 0, 1, 1, 2, 2}

	tree := NewDecisionTree(Config{MaxDepth: 1})
	if err := tree.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit tree: %v", err)
	}
	pred, err := tree.Predict(X)
	if err != nil {
		t.Fatalf("Failed to predict: %v", err)
	}
	distinct := map[int]bool{}
	for _, p := range pred {
		distinct[p] = true
	}
	if len(distinct) > 2 {
		t.Errorf("Expected at most 2 distinct predictions at depth 1, got %d", len(distinct))
	}

	deep := NewDecisionTree(Config{})
	if err := deep.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit unlimited tree: %v", err)
	}
	pred, _ = deep.Predict(X)
	if acc := Accuracy(y, pred); !almostEqual(acc, 1) {
		t.Errorf("Expected unlimited tree to fit training data exactly, accuracy %v", acc)
	}
}

func TestDecisionTreeNoUsefulSplit(t *testing.T) {
	// Identical rows with mixed labels cannot be split; the tree must
	// degrade to a single majority leaf instead of recursing forever.
	X := [][]float64{{1, 1}, {1, 1}, {1, 1}, {1, 1}}
	y := []int{0, 0, 0, 1}

	tree := NewDecisionTree(Config{})
	if err := tree.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit tree: %v", err)
	}
	if !tree.Root.Leaf {
		t.Fatal("Expected root to be a leaf when no split has positive gain")
	}
	pred, err := tree.Predict([][]float64{{1, 1}})
	if err != nil {
		t.Fatalf("Failed to predict: %v", err)
	}
	if pred[0] != 0 {
		t.Errorf("Expected majority class 0, got %d", pred[0])
	}
}

func TestLeafwiseBoostingRespectsLeafBudget(t *testing.T) {
	X, y := blobs(20, 3, 3, 7)

	model := NewLeafwiseBoosting(Config{Trees: 5, NumLeaves: 2})
	if err := model.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}
	for r, round := range model.Forest {
		for c, root := range round {
			if leaves := countRegLeaves(root); leaves > 2 {
				t.Errorf("Round %d class %d: expected at most 2 leaves, got %d", r, c, leaves)
			}
		}
	}
}

func countRegLeaves(node *RegNode) int {
	if node == nil {
		return 0
	}
	if node.Leaf {
		return 1
	}
	return countRegLeaves(node.Left) + countRegLeaves(node.Right)
}
