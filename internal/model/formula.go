package model

import "time"

// FormulaItem is a raw user-supplied ingredient line. Weights are relative;
// the pipeline rescales them, so they need not sum to anything in particular.
// Duplicate labels are allowed and are the caller's concern.
type FormulaItem struct {
	Label         string  `json:"label" yaml:"label"`
	WeightPercent float64 `json:"weight_percent" yaml:"weight_percent"`
}

// NormalizedItem is a FormulaItem rescaled so all weights in a formula sum
// to 100 (4-decimal rounding). An all-zero input formula normalizes to
// all-zero output.
type NormalizedItem struct {
	Label         string  `json:"label"`
	WeightPercent float64 `json:"weight_percent"`
}

// Compound is a stored perfume formula.
type Compound struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Items       []FormulaItem `json:"items"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Analysis is a stored analysis run for a compound, including the exact
// prompt and raw transport text for audit.
type Analysis struct {
	ID            string          `json:"id"`
	CompoundID    string          `json:"compound_id"`
	Model         string          `json:"model"`
	PromptVersion string          `json:"prompt_version"`
	PromptText    string          `json:"prompt_text"`
	RawResponse   string          `json:"raw_response"`
	Result        *AnalysisResult `json:"result,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
