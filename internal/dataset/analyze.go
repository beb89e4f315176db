package dataset

import (
	"strconv"
	"strings"

	"netsentry/internal/model"
)

// analysisSampleRows caps how many rows the analysis inspects.
const analysisSampleRows = 1000

// targetCandidates are the column names treated as likely labels, in
// preference order.
var targetCandidates = []string{"label", "class", "attack_type", "attack", "target", "category"}

// Analysis summarizes a table's shape for the upload response: what is in
// it, which columns look numeric, and which column is probably the label.
type Analysis struct {
	Rows               int            `json:"rows"`
	Columns            []string       `json:"columns"`
	NumericColumns     []string       `json:"numeric_columns"`
	CategoricalColumns []string       `json:"categorical_columns"`
	NullCounts         map[string]int `json:"null_values"`
	SuggestedTarget    string         `json:"suggested_target,omitempty"`
	TargetValues       map[string]int `json:"target_values,omitempty"`
}

// Analyze inspects up to the first thousand rows of tbl. A column counts as
// numeric when every non-empty sampled cell parses as a number.
func Analyze(tbl *model.Table) Analysis {
	a := Analysis{
		Rows:       len(tbl.Rows),
		Columns:    tbl.Columns,
		NullCounts: make(map[string]int, len(tbl.Columns)),
	}

	sample := len(tbl.Rows)
	if sample > analysisSampleRows {
		sample = analysisSampleRows
	}

	for col, name := range tbl.Columns {
		numeric := true
		nonEmpty := 0
		nulls := 0
		for row := 0; row < sample; row++ {
			cell := tbl.Cell(row, col)
			if cell == "" {
				nulls++
				continue
			}
			nonEmpty++
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				numeric = false
			}
		}
		a.NullCounts[name] = nulls
		if numeric && nonEmpty > 0 {
			a.NumericColumns = append(a.NumericColumns, name)
		} else {
			a.CategoricalColumns = append(a.CategoricalColumns, name)
		}
	}

	for _, candidate := range targetCandidates {
		if col := tbl.ColumnIndex(candidate); col >= 0 {
			a.SuggestedTarget = tbl.Columns[col]
			a.TargetValues = make(map[string]int)
			for row := 0; row < sample; row++ {
				a.TargetValues[strings.TrimSpace(tbl.Cell(row, col))]++
			}
			break
		}
	}

	return a
}
