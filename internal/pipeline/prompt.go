package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/scentlab/accord/internal/model"
)

const systemPrompt = "You are an expert perfumer and fragrance evaluator. Analyze the provided formula by olfactive families, note pyramid, accords, diffusion, and longevity." +
	" Consider IFRA awareness in advisory tone only." +
	" Return STRICT JSON that conforms to the provided JSON schema. Do not include any non-JSON text."

// schemaJSON is the response contract sent alongside every analysis
// request and checked against the model's reply.
const schemaJSON = `{"type":"object","properties":{"summary":{"type":"string"},"olfactive_family":{"type":"array","items":{"type":"string"}},"top_notes":{"type":"array"},"heart_notes":{"type":"array"},"base_notes":{"type":"array"},"accords":{"type":"array"},"volatility_profile":{"type":"object"},"projection":{"type":["string","null"]},"longevity_hours":{"type":["number","null"]},"similar_popular_scents":{"type":"array"},"improvement_suggestions":{"type":"array"},"safety_compliance":{"type":["object","null"]},"risks":{"type":"array"},"confidence":{"type":["number","null"]}},"required":["summary","olfactive_family","top_notes","heart_notes","base_notes","accords","volatility_profile","similar_popular_scents","improvement_suggestions","risks"],"additionalProperties":true}`

// BuildUserPrompt renders the normalized formula and derived features into
// the user prompt. Identical inputs produce a byte-identical prompt.
func BuildUserPrompt(items []model.NormalizedItem, features model.DerivedFeatures) (string, error) {
	lines := []string{"Formula (normalized to 100%):"}
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("- %s: %.4f%%", it.Label, it.WeightPercent))
	}
	lines = append(lines, "", "Derived features:")

	derived, err := json.Marshal(features)
	if err != nil {
		return "", err
	}
	lines = append(lines, string(derived), "",
		"Return JSON with keys: summary, olfactive_family, top_notes, heart_notes, base_notes, accords, volatility_profile, projection, longevity_hours, similar_popular_scents, improvement_suggestions, safety_compliance, risks, confidence.")

	return strings.Join(lines, "\n"), nil
}
