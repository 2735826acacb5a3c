// Package pipeline implements the formula analysis pipeline: normalize
// the raw formula, match ingredients against the knowledge base, derive
// olfactive features, and request a structured model analysis.
package pipeline

import (
	"math"

	"github.com/scentlab/accord/internal/model"
)

// Normalize rescales a formula so its weights sum to 100. Labels pass
// through untouched. An all-zero or empty formula is returned as-is with
// zero weights so callers can still render it.
func Normalize(items []model.FormulaItem) []model.NormalizedItem {
	var total float64
	for _, it := range items {
		total += it.WeightPercent
	}
	if total == 0 {
		total = 1.0
	}

	out := make([]model.NormalizedItem, 0, len(items))
	for _, it := range items {
		out = append(out, model.NormalizedItem{
			Label:         it.Label,
			WeightPercent: round4(it.WeightPercent / total * 100),
		})
	}
	return out
}

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
