package model

// NoteWeight is a primary note with its aggregated formula weight.
type NoteWeight struct {
	Note   string  `json:"note"`
	Weight float64 `json:"weight"`
}

// DerivedFeatures is the heuristic feature summary computed from a
// normalized formula before any model call. Field order and map key order
// are stable under encoding/json, which keeps the rendered prompt
// deterministic.
type DerivedFeatures struct {
	// VolatilityProfile maps top/heart/base to percentages summing to 100,
	// or all zero when no item matched a known volatility class.
	VolatilityProfile map[string]float64 `json:"volatility_profile"`

	// DominantFamilies holds up to three family names by aggregated weight.
	// An item contributes its full weight to each of its entry's family
	// tags, so multi-tagged ingredients are counted once per tag.
	DominantFamilies []string `json:"olfactive_family"`

	// NotesByWeight lists primary notes in descending aggregated weight.
	NotesByWeight []NoteWeight `json:"notes_by_weight"`

	// Allergens is the sorted union of matched entries' allergen tags.
	Allergens []string `json:"allergens"`
}
