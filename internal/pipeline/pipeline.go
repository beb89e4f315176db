// Package pipeline fits and applies the deterministic transform from raw
// tabular records to numeric feature vectors: mean imputation for numeric
// columns, per-column label encoding for categorical columns, standard
// scaling of the full matrix, and a stratified train/test split. A fitted
// Pipeline is immutable; refitting builds a whole new generation.
package pipeline

import (
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"netsentry/internal/model"
)

const (
	// DefaultTestFraction is the held-out share of the stratified split.
	DefaultTestFraction = 0.2

	// SplitSeed fixes the stratified shuffle so splits are reproducible.
	SplitSeed int64 = 42
)

// targetCandidates is the probe order for target-column autodetection.
var targetCandidates = []string{"label", "class", "attack_type", "attack", "target"}

// Split is the stratified train/test partition produced by FitTransform.
type Split struct {
	XTrain [][]float64
	XTest  [][]float64
	YTrain []int
	YTest  []int
}

// FeatureColumn is the fitted state of one feature column. Fields are
// exported so trained pipelines survive gob round-trips.
type FeatureColumn struct {
	Name        string
	Categorical bool
	Mean        float64        // imputation value for numeric columns
	Codes       map[string]int // category value -> integer code
	Center      float64        // scaler mean
	Scale       float64        // scaler deviation, 1 for constant columns
}

// Pipeline owns one fitted preprocessing generation: the target column,
// per-feature encoders and scaler parameters, and the target class names
// in code order. The zero value is unfitted.
type Pipeline struct {
	TargetColumn string
	Columns      []FeatureColumn
	Classes      []string
}

// New returns an unfitted pipeline.
func New() *Pipeline { return &Pipeline{} }

// Fitted reports whether FitTransform has completed on this generation.
func (p *Pipeline) Fitted() bool { return p != nil && len(p.Columns) > 0 }

// FeatureNames returns the fitted feature columns in vector order.
func (p *Pipeline) FeatureNames() []string {
	names := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		names[i] = c.Name
	}
	return names
}

// ClassNames returns the target class names in code order.
func (p *Pipeline) ClassNames() []string { return p.Classes }

// BenignClass returns the code of the class representing benign traffic,
// or -1 when no class name matches a known benign spelling.
func (p *Pipeline) BenignClass() int {
	for i, name := range p.Classes {
		switch strings.ToLower(name) {
		case "normal", "benign", "0", "no":
			return i
		}
	}
	return -1
}

// AttackProbability folds a class-probability vector into the probability
// that the record is not benign. When no class name is recognizably benign
// the first class is assumed benign, which reduces to the probability of
// class 1 in the common binary 0/1 encoding.
func (p *Pipeline) AttackProbability(probs []float64) float64 {
	if len(probs) == 0 {
		return 0
	}
	benign := p.BenignClass()
	if benign < 0 || benign >= len(probs) {
		benign = 0
	}
	attack := 1 - probs[benign]
	if attack < 0 {
		attack = 0
	} else if attack > 1 {
		attack = 1
	}
	return attack
}

// AttackLabel reports 1 when a hard class prediction is anything but the
// benign class.
func (p *Pipeline) AttackLabel(class int) int {
	benign := p.BenignClass()
	if benign < 0 {
		benign = 0
	}
	if class == benign {
		return 0
	}
	return 1
}

// FitTransform fits the pipeline on tbl and returns the stratified split.
// target selects the label column; when empty, conventional names are
// probed (label, class, attack_type, attack, target) and the last column
// is the fallback. testFraction <= 0 selects the default 0.2.
//
// On any error the previous fitted generation is left untouched.
func (p *Pipeline) FitTransform(tbl *model.Table, target string, testFraction float64) (*Split, error) {
	if tbl == nil || len(tbl.Rows) < 2 {
		return nil, model.NewDataError("dataset has fewer than 2 rows")
	}
	if len(tbl.Columns) == 0 {
		return nil, model.NewDataError("dataset has no columns")
	}
	if testFraction <= 0 {
		testFraction = DefaultTestFraction
	}

	targetIdx := -1
	if target != "" {
		if targetIdx = tbl.ColumnIndex(target); targetIdx < 0 {
			return nil, model.NewDataError("target column %q not found", target)
		}
	} else {
		for _, cand := range targetCandidates {
			if idx := tbl.ColumnIndex(cand); idx >= 0 {
				targetIdx = idx
				break
			}
		}
		if targetIdx < 0 {
			targetIdx = len(tbl.Columns) - 1
		}
	}
	if len(tbl.Columns) < 2 {
		return nil, model.NewDataError("dataset has no feature columns")
	}

	cols := make([]FeatureColumn, 0, len(tbl.Columns)-1)
	for j, name := range tbl.Columns {
		if j == targetIdx {
			continue
		}
		cols = append(cols, fitColumn(tbl, j, name))
	}

	n := len(tbl.Rows)
	X := make([][]float64, n)
	for i := range X {
		row := make([]float64, len(cols))
		k := 0
		for j := range tbl.Columns {
			if j == targetIdx {
				continue
			}
			row[k] = cols[k].encode(tbl.Cell(i, j))
			k++
		}
		X[i] = row
	}

	// Scale the full matrix before splitting, the way the fitted scaler
	// is applied to every later transform.
	for k := range cols {
		center, scale := columnMoments(X, k)
		cols[k].Center, cols[k].Scale = center, scale
		for i := range X {
			X[i][k] = (X[i][k] - center) / scale
		}
	}

	y, classes := encodeTarget(tbl, targetIdx)

	split, err := stratifiedSplit(X, y, classes, testFraction, SplitSeed)
	if err != nil {
		return nil, err
	}

	p.TargetColumn = tbl.Columns[targetIdx]
	p.Columns = cols
	p.Classes = classes
	return split, nil
}

// Transform applies the fitted imputer, encoders, and scaler to tbl,
// dropping the target column if present. Unseen categorical values map to
// the sentinel code 0. Columns the pipeline was not fitted with are
// ignored; a missing fitted column is a DataError.
func (p *Pipeline) Transform(tbl *model.Table) ([][]float64, error) {
	if !p.Fitted() {
		return nil, model.ErrNotFitted
	}
	src := make([]int, len(p.Columns))
	for k, col := range p.Columns {
		idx := tbl.ColumnIndex(col.Name)
		if idx < 0 {
			return nil, model.NewDataError("column %q missing from input", col.Name)
		}
		src[k] = idx
	}
	out := make([][]float64, len(tbl.Rows))
	for i := range tbl.Rows {
		row := make([]float64, len(p.Columns))
		for k := range p.Columns {
			col := &p.Columns[k]
			row[k] = (col.encode(tbl.Cell(i, src[k])) - col.Center) / col.Scale
		}
		out[i] = row
	}
	return out, nil
}

// Vectorize encodes one live record into the fitted feature order. Fields
// the record does not carry behave like missing values: numeric columns
// impute their mean, categorical columns take the sentinel code.
func (p *Pipeline) Vectorize(rec *model.Record) ([]float64, error) {
	if !p.Fitted() {
		return nil, model.ErrNotFitted
	}
	vec := make([]float64, len(p.Columns))
	for k := range p.Columns {
		col := &p.Columns[k]
		raw, ok := rec.Feature(strings.ToLower(col.Name))
		var v float64
		switch {
		case !ok && col.Categorical:
			v = 0
		case !ok:
			v = col.Mean
		default:
			v = col.encode(raw)
		}
		vec[k] = (v - col.Center) / col.Scale
	}
	return vec, nil
}

// encode maps one raw cell to its pre-scaling numeric value.
func (c *FeatureColumn) encode(raw string) float64 {
	if c.Categorical {
		return float64(c.Codes[raw]) // unseen values take the zero code
	}
	if isMissing(raw) {
		return c.Mean
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return c.Mean
	}
	return v
}

// fitColumn decides numeric vs categorical for column j and fits its
// imputation mean or category codes.
func fitColumn(tbl *model.Table, j int, name string) FeatureColumn {
	numeric := true
	sum, count := 0.0, 0
	for i := range tbl.Rows {
		raw := tbl.Cell(i, j)
		if isMissing(raw) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			numeric = false
			break
		}
		sum += v
		count++
	}

	if numeric {
		col := FeatureColumn{Name: name}
		if count > 0 {
			col.Mean = sum / float64(count)
		}
		return col
	}

	distinct := map[string]bool{}
	for i := range tbl.Rows {
		distinct[tbl.Cell(i, j)] = true
	}
	values := make([]string, 0, len(distinct))
	for v := range distinct {
		values = append(values, v)
	}
	sort.Strings(values)
	codes := make(map[string]int, len(values))
	for code, v := range values {
		codes[v] = code
	}
	return FeatureColumn{Name: name, Categorical: true, Codes: codes}
}

// encodeTarget label-encodes the target column. Numeric targets are
// canonicalized through float parsing and ordered numerically so 0/1-style
// labels keep their natural code order; categorical targets sort lexically.
func encodeTarget(tbl *model.Table, targetIdx int) ([]int, []string) {
	n := len(tbl.Rows)
	raw := make([]string, n)
	numeric := true
	for i := 0; i < n; i++ {
		raw[i] = tbl.Cell(i, targetIdx)
		if numeric {
			if _, err := strconv.ParseFloat(strings.TrimSpace(raw[i]), 64); err != nil {
				numeric = false
			}
		}
	}

	distinct := map[string]float64{}
	for i, v := range raw {
		if numeric {
			f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
			canonical := strconv.FormatFloat(f, 'g', -1, 64)
			raw[i] = canonical
			distinct[canonical] = f
		} else {
			distinct[v] = 0
		}
	}

	classes := make([]string, 0, len(distinct))
	for v := range distinct {
		classes = append(classes, v)
	}
	if numeric {
		sort.Slice(classes, func(a, b int) bool { return distinct[classes[a]] < distinct[classes[b]] })
	} else {
		sort.Strings(classes)
	}

	codes := make(map[string]int, len(classes))
	for code, v := range classes {
		codes[v] = code
	}
	y := make([]int, n)
	for i, v := range raw {
		y[i] = codes[v]
	}
	return y, classes
}

// columnMoments computes the population mean and deviation of column k.
// Constant columns get scale 1 so scaling never divides by zero.
func columnMoments(X [][]float64, k int) (center, scale float64) {
	n := float64(len(X))
	for i := range X {
		center += X[i][k]
	}
	center /= n
	for i := range X {
		diff := X[i][k] - center
		scale += diff * diff
	}
	scale = math.Sqrt(scale / n)
	if scale == 0 {
		scale = 1
	}
	return center, scale
}

// stratifiedSplit shuffles each class group with a fixed seed and holds out
// testFraction per class, keeping at least one row on each side.
func stratifiedSplit(X [][]float64, y []int, classes []string, testFraction float64, seed int64) (*Split, error) {
	groups := make([][]int, len(classes))
	for i, c := range y {
		groups[c] = append(groups[c], i)
	}
	rng := rand.New(rand.NewSource(seed))

	var trainIdx, testIdx []int
	for c, g := range groups {
		if len(g) < 2 {
			return nil, model.NewDataError("class %q has fewer than 2 members, stratified split impossible", classes[c])
		}
		rng.Shuffle(len(g), func(a, b int) { g[a], g[b] = g[b], g[a] })
		nTest := int(math.Round(float64(len(g)) * testFraction))
		if nTest < 1 {
			nTest = 1
		}
		if nTest >= len(g) {
			nTest = len(g) - 1
		}
		testIdx = append(testIdx, g[:nTest]...)
		trainIdx = append(trainIdx, g[nTest:]...)
	}
	rng.Shuffle(len(trainIdx), func(a, b int) { trainIdx[a], trainIdx[b] = trainIdx[b], trainIdx[a] })
	rng.Shuffle(len(testIdx), func(a, b int) { testIdx[a], testIdx[b] = testIdx[b], testIdx[a] })

	split := &Split{
		XTrain: make([][]float64, len(trainIdx)),
		XTest:  make([][]float64, len(testIdx)),
		YTrain: make([]int, len(trainIdx)),
		YTest:  make([]int, len(testIdx)),
	}
	for i, idx := range trainIdx {
		split.XTrain[i] = X[idx]
		split.YTrain[i] = y[idx]
	}
	for i, idx := range testIdx {
		split.XTest[i] = X[idx]
		split.YTest[i] = y[idx]
	}
	return split, nil
}

// isMissing reports whether a cell counts as absent for imputation.
func isMissing(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "nan", "na", "null", "?":
		return true
	}
	return false
}
