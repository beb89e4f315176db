package pipeline

import (
	"errors"
	"math"
	"testing"

	"netsentry/internal/model"
)

func smallTable() *model.Table {
	return &model.Table{
		Columns: []string{"protocol", "src_bytes", "label"},
		Rows: [][]string{
			{"tcp", "100", "normal"},
			{"udp", "300", "dos"},
			{"tcp", "200", "normal"},
			{"udp", "400", "dos"},
		},
	}
}

func TestFitTransformShapes(t *testing.T) {
	p := New()
	split, err := p.FitTransform(smallTable(), "", 0.5)
	if err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}
	if !p.Fitted() {
		t.Fatal("Expected pipeline to report fitted")
	}
	if p.TargetColumn != "label" {
		t.Errorf("Expected autodetected target 'label', got %q", p.TargetColumn)
	}
	names := p.FeatureNames()
	if len(names) != 2 || names[0] != "protocol" || names[1] != "src_bytes" {
		t.Errorf("Expected feature order [protocol src_bytes], got %v", names)
	}
	if len(split.XTrain)+len(split.XTest) != 4 {
		t.Errorf("Expected split to cover all 4 rows, got %d+%d", len(split.XTrain), len(split.XTest))
	}
	for _, row := range append(split.XTrain, split.XTest...) {
		if len(row) != 2 {
			t.Fatalf("Expected 2-wide feature vectors, got %d", len(row))
		}
	}
	classes := p.ClassNames()
	if len(classes) != 2 || classes[0] != "dos" || classes[1] != "normal" {
		t.Errorf("Expected lexically sorted classes [dos normal], got %v", classes)
	}
}

func TestTransformMatchesFittedEncoding(t *testing.T) {
	p := New()
	if _, err := p.FitTransform(smallTable(), "label", 0.5); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}

	X, err := p.Transform(&model.Table{
		Columns: []string{"protocol", "src_bytes"},
		Rows:    [][]string{{"tcp", "100"}},
	})
	if err != nil {
		t.Fatalf("Failed to transform: %v", err)
	}

	// protocol codes {tcp:0 udp:1} scale to mean 0.5, dev 0.5.
	// src_bytes has mean 250 and population deviation sqrt(12500).
	wantProto := (0.0 - 0.5) / 0.5
	wantBytes := (100.0 - 250.0) / math.Sqrt(12500.0)
	if math.Abs(X[0][0]-wantProto) > 1e-9 || math.Abs(X[0][1]-wantBytes) > 1e-9 {
		t.Errorf("Expected [%v %v], got %v", wantProto, wantBytes, X[0])
	}
}

func TestTransformDropsTargetAndIgnoresExtras(t *testing.T) {
	p := New()
	if _, err := p.FitTransform(smallTable(), "", 0.5); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}
	X, err := p.Transform(&model.Table{
		Columns: []string{"label", "protocol", "src_bytes", "comment"},
		Rows:    [][]string{{"normal", "udp", "250", "noise"}},
	})
	if err != nil {
		t.Fatalf("Failed to transform: %v", err)
	}
	if len(X) != 1 || len(X[0]) != 2 {
		t.Fatalf("Expected a 1x2 matrix, got %dx%d", len(X), len(X[0]))
	}
	// src_bytes 250 sits exactly on the fitted mean.
	if math.Abs(X[0][1]) > 1e-9 {
		t.Errorf("Expected mean-value cell to scale to 0, got %v", X[0][1])
	}
}

func TestUnseenCategoryTakesSentinelCode(t *testing.T) {
	p := New()
	if _, err := p.FitTransform(smallTable(), "", 0.5); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}

	cols := []string{"protocol", "src_bytes"}
	unseen, err := p.Transform(&model.Table{Columns: cols, Rows: [][]string{{"sctp", "100"}}})
	if err != nil {
		t.Fatalf("Transform must not fail on an unseen category: %v", err)
	}
	zeroCode, err := p.Transform(&model.Table{Columns: cols, Rows: [][]string{{"tcp", "100"}}})
	if err != nil {
		t.Fatalf("Failed to transform: %v", err)
	}
	if unseen[0][0] != zeroCode[0][0] {
		t.Errorf("Expected unseen category to encode as code 0 (%v), got %v", zeroCode[0][0], unseen[0][0])
	}
}

func TestNumericMissingValuesImputeMean(t *testing.T) {
	tbl := &model.Table{
		Columns: []string{"duration", "label"},
		Rows: [][]string{
			{"1", "a"}, {"3", "a"}, {"", "b"}, {"nan", "b"},
		},
	}
	p := New()
	if _, err := p.FitTransform(tbl, "", 0.5); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}
	cols := []string{"duration"}
	missing, _ := p.Transform(&model.Table{Columns: cols, Rows: [][]string{{""}}})
	mean, _ := p.Transform(&model.Table{Columns: cols, Rows: [][]string{{"2"}}})
	if missing[0][0] != mean[0][0] {
		t.Errorf("Expected missing value to impute the fitted mean 2, got %v vs %v", missing[0][0], mean[0][0])
	}
}

func TestTransformBeforeFit(t *testing.T) {
	p := New()
	if _, err := p.Transform(smallTable()); !errors.Is(err, model.ErrNotFitted) {
		t.Errorf("Expected ErrNotFitted from Transform, got %v", err)
	}
	if _, err := p.Vectorize(&model.Record{}); !errors.Is(err, model.ErrNotFitted) {
		t.Errorf("Expected ErrNotFitted from Vectorize, got %v", err)
	}
}

func TestFitTransformDataErrors(t *testing.T) {
	p := New()

	one := &model.Table{Columns: []string{"a", "label"}, Rows: [][]string{{"1", "x"}}}
	if _, err := p.FitTransform(one, "", 0); !model.IsDataError(err) {
		t.Errorf("Expected DataError for a 1-row dataset, got %v", err)
	}

	if _, err := p.FitTransform(smallTable(), "nonexistent", 0); !model.IsDataError(err) {
		t.Errorf("Expected DataError for a missing target column, got %v", err)
	}

	lonely := &model.Table{
		Columns: []string{"a", "label"},
		Rows:    [][]string{{"1", "x"}, {"2", "y"}, {"3", "x"}},
	}
	if _, err := p.FitTransform(lonely, "", 0); !model.IsDataError(err) {
		t.Errorf("Expected DataError for a single-member class, got %v", err)
	}

	if p.Fitted() {
		t.Error("Failed fits must not leave the pipeline fitted")
	}
}

func TestStratifiedSplitProportions(t *testing.T) {
	// 850/100/50 per class at the default fraction gives exactly 200
	// held-out rows and every class on both sides.
	tbl := &model.Table{Columns: []string{"src_bytes", "label"}}
	addRows := func(n int, label string) {
		for i := 0; i < n; i++ {
			tbl.Rows = append(tbl.Rows, []string{string(rune('0' + i%10)), label})
		}
	}
	addRows(850, "normal")
	addRows(100, "dos")
	addRows(50, "probe")

	p := New()
	split, err := p.FitTransform(tbl, "label", 0)
	if err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}
	if len(split.XTrain) != 800 || len(split.XTest) != 200 {
		t.Errorf("Expected an 800/200 split, got %d/%d", len(split.XTrain), len(split.XTest))
	}

	countClasses := func(y []int) map[int]int {
		m := map[int]int{}
		for _, c := range y {
			m[c]++
		}
		return m
	}
	train, test := countClasses(split.YTrain), countClasses(split.YTest)
	for c := 0; c < 3; c++ {
		if train[c] == 0 || test[c] == 0 {
			t.Errorf("Class %d missing from a split side: train=%d test=%d", c, train[c], test[c])
		}
	}
	if test[p.BenignClass()] != 170 {
		t.Errorf("Expected 170 held-out benign rows, got %d", test[p.BenignClass()])
	}
}

func TestSplitIsDeterministic(t *testing.T) {
	a, b := New(), New()
	sa, err := a.FitTransform(smallTable(), "", 0.5)
	if err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}
	sb, _ := b.FitTransform(smallTable(), "", 0.5)
	for i := range sa.YTrain {
		if sa.YTrain[i] != sb.YTrain[i] {
			t.Fatal("Expected identical splits from identical inputs")
		}
	}
	for i := range sa.XTrain {
		for j := range sa.XTrain[i] {
			if sa.XTrain[i][j] != sb.XTrain[i][j] {
				t.Fatal("Expected identical matrices from identical inputs")
			}
		}
	}
}

func TestVectorizeMatchesTransform(t *testing.T) {
	tbl := &model.Table{
		Columns: []string{"protocol", "src_bytes", "dst_port", "label"},
		Rows: [][]string{
			{"tcp", "100", "80", "normal"},
			{"udp", "300", "53", "dos"},
			{"icmp", "200", "0", "normal"},
			{"tcp", "400", "443", "dos"},
		},
	}
	p := New()
	if _, err := p.FitTransform(tbl, "", 0.5); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}

	rec := &model.Record{Protocol: "udp", SrcBytes: 300, DstPort: 53}
	vec, err := p.Vectorize(rec)
	if err != nil {
		t.Fatalf("Failed to vectorize: %v", err)
	}
	X, err := p.Transform(&model.Table{
		Columns: []string{"protocol", "src_bytes", "dst_port"},
		Rows:    [][]string{{"udp", "300", "53"}},
	})
	if err != nil {
		t.Fatalf("Failed to transform: %v", err)
	}
	for j := range vec {
		if math.Abs(vec[j]-X[0][j]) > 1e-12 {
			t.Errorf("Column %d: vectorize %v != transform %v", j, vec[j], X[0][j])
		}
	}
}

func TestBenignClassDetection(t *testing.T) {
	p := &Pipeline{Classes: []string{"dos", "normal", "probe"}}
	if got := p.BenignClass(); got != 1 {
		t.Errorf("Expected benign class 1, got %d", got)
	}
	if got := p.AttackProbability([]float64{0.2, 0.5, 0.3}); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("Expected attack probability 0.5, got %v", got)
	}
	if p.AttackLabel(1) != 0 || p.AttackLabel(0) != 1 || p.AttackLabel(2) != 1 {
		t.Error("Expected only the benign class to map to label 0")
	}

	binary := &Pipeline{Classes: []string{"0", "1"}}
	if got := binary.AttackProbability([]float64{0.25, 0.75}); math.Abs(got-0.75) > 1e-12 {
		t.Errorf("Expected positive-class probability 0.75, got %v", got)
	}

	unknown := &Pipeline{Classes: []string{"left", "right"}}
	if got := unknown.BenignClass(); got != -1 {
		t.Errorf("Expected -1 for unrecognized class names, got %d", got)
	}
}
