package pipeline

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/scentlab/accord/internal/config"
	"github.com/scentlab/accord/internal/knowledge"
	"github.com/scentlab/accord/internal/llm"
	"github.com/scentlab/accord/internal/model"
)

// Pipeline wires the full analysis flow for a formula: normalize, derive
// features, build the prompt, and request the model analysis.
type Pipeline struct {
	deriver       *Deriver
	requester     *Requester
	model         string
	promptVersion string
}

// Outcome is one complete analysis run, retaining the exact prompt and
// raw response for persistence and audit.
type Outcome struct {
	Items       []model.NormalizedItem
	Features    model.DerivedFeatures
	Prompt      string
	RawResponse string
	Result      model.AnalysisResult
}

func New(base *knowledge.Base, client llm.Client, llmCfg config.LLMConfig, pipeCfg config.PipelineConfig) *Pipeline {
	matcher := NewMatcher(base, pipeCfg.MatchThreshold)
	return &Pipeline{
		deriver:       NewDeriver(matcher),
		requester:     NewRequester(client, llmCfg.Model, pipeCfg.Temperature, llmCfg.MaxTokens, pipeCfg.MaxRetries),
		model:         llmCfg.Model,
		promptVersion: pipeCfg.PromptVersion,
	}
}

// Analyze runs the pipeline over a raw formula. It fails only on prompt
// construction or transport errors; schema failures surface as the
// degraded result instead.
func (p *Pipeline) Analyze(ctx context.Context, formula []model.FormulaItem) (*Outcome, error) {
	items := Normalize(formula)
	features := p.deriver.Derive(items)

	prompt, err := BuildUserPrompt(items, features)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: build prompt")
	}

	resp, err := p.requester.Request(ctx, prompt)
	if err != nil {
		return nil, err
	}

	raw := resp.Raw
	if raw == "" {
		// Fallback results have no transport text; store the result
		// itself so the audit trail stays non-empty.
		if data, merr := json.Marshal(resp.Result); merr == nil {
			raw = string(data)
		}
	}

	return &Outcome{
		Items:       items,
		Features:    features,
		Prompt:      prompt,
		RawResponse: raw,
		Result:      resp.Result,
	}, nil
}

// Model reports the configured model identifier for persistence.
func (p *Pipeline) Model() string { return p.model }

// PromptVersion reports the configured prompt version for persistence.
func (p *Pipeline) PromptVersion() string { return p.promptVersion }
