package ml

import "sort"

// Accuracy is the fraction of exact label matches.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return 0
	}
	hits := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(yTrue))
}

// WeightedPRF computes precision, recall, and F1, each averaged per class
// and weighted by true-class support. Classes with an undefined ratio
// (zero denominator) contribute 0, matching zero_division=0 semantics, so
// heavily imbalanced data never produces NaN metrics.
func WeightedPRF(yTrue, yPred []int) (precision, recall, f1 float64) {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return 0, 0, 0
	}
	classes := 0
	for i := range yTrue {
		if yTrue[i]+1 > classes {
			classes = yTrue[i] + 1
		}
		if yPred[i]+1 > classes {
			classes = yPred[i] + 1
		}
	}
	tp := make([]float64, classes)
	fp := make([]float64, classes)
	fn := make([]float64, classes)
	support := make([]float64, classes)
	for i := range yTrue {
		support[yTrue[i]]++
		if yTrue[i] == yPred[i] {
			tp[yTrue[i]]++
		} else {
			fp[yPred[i]]++
			fn[yTrue[i]]++
		}
	}
	total := float64(len(yTrue))
	for c := 0; c < classes; c++ {
		var p, r, f float64
		if tp[c]+fp[c] > 0 {
			p = tp[c] / (tp[c] + fp[c])
		}
		if tp[c]+fn[c] > 0 {
			r = tp[c] / (tp[c] + fn[c])
		}
		if p+r > 0 {
			f = 2 * p * r / (p + r)
		}
		w := support[c] / total
		precision += w * p
		recall += w * r
		f1 += w * f
	}
	return precision, recall, f1
}

// ROCAUC computes the area under the ROC curve for a binary target from
// positive-class scores, using the rank statistic with average ranks for
// ties. Returns 0.5 when either class is absent.
func ROCAUC(yTrue []int, scores []float64) float64 {
	n := len(yTrue)
	if n == 0 || n != len(scores) {
		return 0.5
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && scores[idx[j+1]] == scores[idx[i]] {
			j++
		}
		// average rank across the tie group, 1-based
		avg := float64(i+j+2) / 2
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}

	var pos, neg, rankSum float64
	for i := range yTrue {
		if yTrue[i] == 1 {
			pos++
			rankSum += ranks[i]
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0.5
	}
	return (rankSum - pos*(pos+1)/2) / (pos * neg)
}
