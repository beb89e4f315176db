package model

import (
	"context"
)

// Analyzer is an AI-backed assessor for alert digests. Implementations send
// the rendered digest text to a language model and return its written
// analysis.
type Analyzer interface {
	// AnalyzeTraffic takes a textual traffic/alert summary and returns the
	// model's assessment.
	AnalyzeTraffic(ctx context.Context, input string) (string, error)
}
