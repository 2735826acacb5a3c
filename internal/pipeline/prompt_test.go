package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scentlab/accord/internal/model"
)

func promptFixture() ([]model.NormalizedItem, model.DerivedFeatures) {
	items := []model.NormalizedItem{
		{Label: "Bergamot Oil", WeightPercent: 60},
		{Label: "Sandalwood Oil", WeightPercent: 40},
	}
	features := model.DerivedFeatures{
		VolatilityProfile: map[string]float64{"top": 60, "heart": 0, "base": 40},
		DominantFamilies:  []string{"citrus", "woody"},
		NotesByWeight:     []model.NoteWeight{{Note: "bergamot", Weight: 60}},
		Allergens:         []string{"limonene"},
	}
	return items, features
}

func TestBuildUserPrompt_Deterministic(t *testing.T) {
	items, features := promptFixture()

	first, err := BuildUserPrompt(items, features)
	require.NoError(t, err)
	second, err := BuildUserPrompt(items, features)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBuildUserPrompt_Layout(t *testing.T) {
	items, features := promptFixture()

	prompt, err := BuildUserPrompt(items, features)
	require.NoError(t, err)

	lines := strings.Split(prompt, "\n")
	assert.Equal(t, "Formula (normalized to 100%):", lines[0])
	assert.Equal(t, "- Bergamot Oil: 60.0000%", lines[1])
	assert.Equal(t, "- Sandalwood Oil: 40.0000%", lines[2])
	assert.Equal(t, "", lines[3])
	assert.Equal(t, "Derived features:", lines[4])
	assert.Contains(t, lines[5], `"volatility_profile"`)
	assert.True(t, strings.HasPrefix(lines[7], "Return JSON with keys: summary,"))
	assert.False(t, strings.HasSuffix(prompt, "\n"))
}

func TestBuildUserPrompt_FourDecimalWeights(t *testing.T) {
	prompt, err := BuildUserPrompt([]model.NormalizedItem{
		{Label: "Hedione", WeightPercent: 33.3333},
	}, model.DerivedFeatures{})
	require.NoError(t, err)

	assert.Contains(t, prompt, "- Hedione: 33.3333%")
}

func TestSchemaJSON_CoversRequiredKeys(t *testing.T) {
	for _, key := range model.RequiredResultKeys {
		assert.Contains(t, schemaJSON, `"`+key+`"`)
	}
}
