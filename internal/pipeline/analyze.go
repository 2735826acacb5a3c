package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scentlab/accord/internal/llm"
	"github.com/scentlab/accord/internal/model"
)

const correctiveMessage = "The previous response was not valid JSON per schema. Return valid JSON only."

// Requester sends the analysis prompt to the language model and enforces
// the response schema, retrying with a corrective message when the reply
// fails validation. Transport errors are never retried here.
type Requester struct {
	client      llm.Client
	model       string
	temperature float64
	maxTokens   int
	maxRetries  int
}

// Response carries the accepted analysis plus audit metadata.
type Response struct {
	Raw      string
	Result   model.AnalysisResult
	Attempts int
}

func NewRequester(client llm.Client, modelName string, temperature float64, maxTokens, maxRetries int) *Requester {
	return &Requester{
		client:      client,
		model:       modelName,
		temperature: temperature,
		maxTokens:   maxTokens,
		maxRetries:  maxRetries,
	}
}

// Request runs the prompt and returns a schema-valid result. With no
// client configured it returns the advisory fallback without any network
// call. When every attempt yields an invalid reply it returns the
// degraded fallback. Transport failures abort immediately.
func (r *Requester) Request(ctx context.Context, userPrompt string) (*Response, error) {
	if r.client == nil {
		return &Response{Result: advisoryFallback()}, nil
	}

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
		{Role: "user", Content: "JSON schema: " + schemaJSON},
	}

	attempts := 0
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		text, err := r.client.Complete(ctx, llm.Request{
			Model:       r.model,
			Messages:    messages,
			Temperature: r.temperature,
			MaxTokens:   r.maxTokens,
		})
		if err != nil {
			return nil, eris.Wrap(err, "analysis: transport")
		}
		attempts++

		result, perr := parseResult(text)
		if perr == nil {
			return &Response{Raw: text, Result: *result, Attempts: attempts}, nil
		}

		zap.L().Warn("analysis response failed schema validation",
			zap.Int("attempt", attempt+1),
			zap.Error(perr))
		messages = append(messages, llm.Message{Role: "user", Content: correctiveMessage})
	}

	zap.L().Warn("analysis retries exhausted, returning degraded result",
		zap.Int("attempts", attempts))
	return &Response{Result: degradedFallback(), Attempts: attempts}, nil
}

// parseResult extracts and validates the JSON payload from raw model
// output, tolerating code fences and surrounding prose.
func parseResult(text string) (*model.AnalysisResult, error) {
	payload := cleanJSON(text)

	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &probe); err != nil {
		return nil, eris.Wrap(err, "analysis: parse response")
	}
	for _, key := range model.RequiredResultKeys {
		if _, ok := probe[key]; !ok {
			return nil, eris.Errorf("analysis: response missing required key %q", key)
		}
	}

	var result model.AnalysisResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, eris.Wrap(err, "analysis: decode response")
	}
	return &result, nil
}

func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

func advisoryFallback() model.AnalysisResult {
	confidence := 0.0
	return fallbackResult(
		"No language model configured; returning heuristic-only advisory.",
		"Configure an API key to enable full analysis.",
		&confidence,
	)
}

func degradedFallback() model.AnalysisResult {
	confidence := 0.2
	return fallbackResult(
		"Preliminary analysis generated with limited certainty.",
		"Run formal IFRA checks.",
		&confidence,
	)
}

func fallbackResult(summary, safetyNotes string, confidence *float64) model.AnalysisResult {
	return model.AnalysisResult{
		Summary:           summary,
		OlfactiveFamily:   []string{},
		TopNotes:          []model.Note{},
		HeartNotes:        []model.Note{},
		BaseNotes:         []model.Note{},
		Accords:           []model.Accord{},
		VolatilityProfile: map[string]float64{},
		SafetyCompliance: &model.SafetyCompliance{
			Flags: []string{"advisory-only"},
			Notes: safetyNotes,
		},
		SimilarPopularScents:   []any{},
		ImprovementSuggestions: []any{},
		Risks:                  []any{},
		Confidence:             confidence,
	}
}
