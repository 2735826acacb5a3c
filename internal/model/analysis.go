package model

// RequiredResultKeys lists the keys a model response must contain to be
// accepted as a valid AnalysisResult. Missing keys trigger the same
// retry/fallback path as unparseable JSON.
var RequiredResultKeys = []string{
	"summary",
	"olfactive_family",
	"top_notes",
	"heart_notes",
	"base_notes",
	"accords",
	"volatility_profile",
	"similar_popular_scents",
	"improvement_suggestions",
	"risks",
}

// Note is a single entry in the note pyramid.
type Note struct {
	Name      string `json:"name"`
	Rationale string `json:"rationale,omitempty"`
}

// Accord is a blended scent impression named by the evaluator.
type Accord struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// SafetyCompliance carries advisory-level safety flags. This is not a
// substitute for formal IFRA checks.
type SafetyCompliance struct {
	Flags []string `json:"flags,omitempty"`
	Notes string   `json:"notes,omitempty"`
}

// AnalysisResult is the structured olfactive analysis of a formula.
// Pointer fields are optional per the output contract; confidence is a
// self-reported certainty in [0,1].
type AnalysisResult struct {
	Summary                string             `json:"summary"`
	OlfactiveFamily        []string           `json:"olfactive_family"`
	TopNotes               []Note             `json:"top_notes"`
	HeartNotes             []Note             `json:"heart_notes"`
	BaseNotes              []Note             `json:"base_notes"`
	Accords                []Accord           `json:"accords"`
	VolatilityProfile      map[string]float64 `json:"volatility_profile"`
	Projection             *string            `json:"projection,omitempty"`
	LongevityHours         *float64           `json:"longevity_hours,omitempty"`
	SimilarPopularScents   []any              `json:"similar_popular_scents"`
	ImprovementSuggestions []any              `json:"improvement_suggestions"`
	SafetyCompliance       *SafetyCompliance  `json:"safety_compliance,omitempty"`
	Risks                  []any              `json:"risks"`
	Confidence             *float64           `json:"confidence,omitempty"`
}
