// Package dataset manages the labeled CSV tables the training path runs
// on: loading, analysis, local generation, uploads, and a catalog of
// well-known public intrusion datasets.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"

	"netsentry/internal/model"
)

// LoadCSV reads a CSV file into a table. The first row is the header; rows
// are allowed to be ragged (missing trailing cells read back as "").
func LoadCSV(path string) (*model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, model.NewDataError("dataset %s is empty", path)
	}
	if len(records) == 1 {
		return nil, model.NewDataError("dataset %s has a header but no rows", path)
	}

	return &model.Table{Columns: records[0], Rows: records[1:]}, nil
}

// WriteCSV writes a table out, header first.
func WriteCSV(tbl *model.Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dataset file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(tbl.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range tbl.Rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
