package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scentlab/accord/internal/llm"
	"github.com/scentlab/accord/internal/model"
)

type clientFunc func(ctx context.Context, req llm.Request) (string, error)

func (f clientFunc) Complete(ctx context.Context, req llm.Request) (string, error) {
	return f(ctx, req)
}

func fixtureCompound() *model.Compound {
	return &model.Compound{
		Name: "Citrus Vetiver No. 3",
		Items: []model.FormulaItem{
			{Label: "Bergamot Oil", WeightPercent: 60},
			{Label: "Vetiver Oil", WeightPercent: 40},
		},
	}
}

func fixtureResult() *model.AnalysisResult {
	projection := "moderate"
	longevity := 6.0
	return &model.AnalysisResult{
		TopNotes:        []model.Note{{Name: "bergamot"}},
		BaseNotes:       []model.Note{{Name: "vetiver"}, {Name: "smoke"}},
		OlfactiveFamily: []string{"citrus", "woody"},
		Projection:      &projection,
		LongevityHours:  &longevity,
	}
}

func TestAsk_BuildsGroundedPrompt(t *testing.T) {
	var got llm.Request
	client := clientFunc(func(ctx context.Context, req llm.Request) (string, error) {
		got = req
		return "It should last around six hours.", nil
	})

	svc := New(client, "test-model", 800)
	answer, err := svc.Ask(context.Background(), fixtureCompound(), fixtureResult(), "How long does it last?")
	require.NoError(t, err)
	assert.Equal(t, "It should last around six hours.", answer)

	require.Len(t, got.Messages, 1)
	prompt := got.Messages[0].Content
	assert.Contains(t, prompt, "Compound: Citrus Vetiver No. 3")
	assert.Contains(t, prompt, "Bergamot Oil (60%)")
	assert.Contains(t, prompt, "- Top Notes: bergamot")
	assert.Contains(t, prompt, "- Base Notes: vetiver, smoke")
	assert.Contains(t, prompt, "- Heart Notes: None")
	assert.Contains(t, prompt, "- Longevity: 6 hours")
	assert.Contains(t, prompt, "User Question: How long does it last?")
	assert.Equal(t, 0.3, got.Temperature)
	assert.Equal(t, "test-model", got.Model)
}

func TestAsk_MissingOptionalFields(t *testing.T) {
	var prompt string
	client := clientFunc(func(ctx context.Context, req llm.Request) (string, error) {
		prompt = req.Messages[0].Content
		return "ok", nil
	})

	svc := New(client, "test-model", 800)
	_, err := svc.Ask(context.Background(), fixtureCompound(), &model.AnalysisResult{}, "What is it like?")
	require.NoError(t, err)

	assert.Contains(t, prompt, "- Olfactive Family: Unknown")
	assert.Contains(t, prompt, "- Projection: Unknown")
	assert.Contains(t, prompt, "- Longevity: 0 hours")
}

func TestAsk_NoClient(t *testing.T) {
	svc := New(nil, "test-model", 800)
	_, err := svc.Ask(context.Background(), fixtureCompound(), fixtureResult(), "anything")
	require.Error(t, err)
	assert.ErrorContains(t, err, "no language model configured")
}
