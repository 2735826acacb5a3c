package pipeline

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scentlab/accord/internal/config"
	"github.com/scentlab/accord/internal/llm"
	"github.com/scentlab/accord/internal/model"
)

func testConfigs() (config.LLMConfig, config.PipelineConfig) {
	llmCfg := config.LLMConfig{Model: "test-model", MaxTokens: 1200}
	pipeCfg := config.PipelineConfig{
		MatchThreshold: 85,
		MaxRetries:     2,
		Temperature:    0.2,
		PromptVersion:  "v1",
	}
	return llmCfg, pipeCfg
}

func TestPipeline_EndToEnd(t *testing.T) {
	var gotPrompt string
	client := clientFunc(func(ctx context.Context, req llm.Request) (string, error) {
		gotPrompt = req.Messages[1].Content
		return validResultJSON, nil
	})

	llmCfg, pipeCfg := testConfigs()
	p := New(testBase(t), client, llmCfg, pipeCfg)

	outcome, err := p.Analyze(context.Background(), []model.FormulaItem{
		{Label: "bergamot", WeightPercent: 3},
		{Label: "Sandalwood Oil", WeightPercent: 2},
	})
	require.NoError(t, err)

	var total float64
	for _, it := range outcome.Items {
		total += it.WeightPercent
	}
	assert.InDelta(t, 100.0, total, 0.001)

	assert.Equal(t, outcome.Prompt, gotPrompt)
	assert.Contains(t, outcome.Prompt, "- bergamot: 60.0000%")
	assert.Equal(t, validResultJSON, outcome.RawResponse)
	assert.Equal(t, 60.0, outcome.Features.VolatilityProfile["top"])
	assert.Equal(t, "test-model", p.Model())
	assert.Equal(t, "v1", p.PromptVersion())
}

func TestPipeline_NoClientStoresFallbackAsRaw(t *testing.T) {
	llmCfg, pipeCfg := testConfigs()
	p := New(testBase(t), nil, llmCfg, pipeCfg)

	outcome, err := p.Analyze(context.Background(), []model.FormulaItem{
		{Label: "bergamot", WeightPercent: 1},
	})
	require.NoError(t, err)

	require.NotEmpty(t, outcome.RawResponse)
	var parsed model.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(outcome.RawResponse), &parsed))
	require.NotNil(t, parsed.Confidence)
	assert.Equal(t, 0.0, *parsed.Confidence)
}
