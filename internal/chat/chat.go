// Package chat answers free-form questions about a compound using its
// stored analysis as grounding context.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/scentlab/accord/internal/llm"
	"github.com/scentlab/accord/internal/model"
)

const chatTemperature = 0.3

// Service runs single-turn Q&A over a compound. Unlike analysis, chat has
// no heuristic fallback: without a configured model it returns an error.
type Service struct {
	client    llm.Client
	model     string
	maxTokens int
}

func New(client llm.Client, modelName string, maxTokens int) *Service {
	return &Service{client: client, model: modelName, maxTokens: maxTokens}
}

// Ask answers a question about the compound, grounded in its most recent
// analysis result.
func (s *Service) Ask(ctx context.Context, compound *model.Compound, result *model.AnalysisResult, question string) (string, error) {
	if s.client == nil {
		return "", eris.New("chat: no language model configured")
	}

	prompt := buildContext(compound, result, question)
	answer, err := s.client.Complete(ctx, llm.Request{
		Model:       s.model,
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: chatTemperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return "", eris.Wrap(err, "chat: completion")
	}
	return answer, nil
}

func buildContext(compound *model.Compound, result *model.AnalysisResult, question string) string {
	ingredients := make([]string, 0, len(compound.Items))
	for _, it := range compound.Items {
		ingredients = append(ingredients, fmt.Sprintf("%s (%g%%)", it.Label, it.WeightPercent))
	}

	projection := "Unknown"
	if result.Projection != nil {
		projection = *result.Projection
	}
	longevity := 0.0
	if result.LongevityHours != nil {
		longevity = *result.LongevityHours
	}

	var sb strings.Builder
	sb.WriteString("You are a perfume expert. Answer the user's question about this compound concisely and helpfully.\n\n")
	fmt.Fprintf(&sb, "Compound: %s\n", compound.Name)
	fmt.Fprintf(&sb, "Ingredients: %s\n\n", strings.Join(ingredients, ", "))
	sb.WriteString("Analysis Results:\n")
	fmt.Fprintf(&sb, "- Top Notes: %s\n", joinNotes(result.TopNotes))
	fmt.Fprintf(&sb, "- Heart Notes: %s\n", joinNotes(result.HeartNotes))
	fmt.Fprintf(&sb, "- Base Notes: %s\n", joinNotes(result.BaseNotes))
	fmt.Fprintf(&sb, "- Olfactive Family: %s\n", joinOrUnknown(result.OlfactiveFamily))
	fmt.Fprintf(&sb, "- Projection: %s\n", projection)
	fmt.Fprintf(&sb, "- Longevity: %g hours\n\n", longevity)
	fmt.Fprintf(&sb, "User Question: %s\n\n", question)
	sb.WriteString("Provide a clear, concise answer based on the compound's composition and analysis.")
	return sb.String()
}

func joinNotes(notes []model.Note) string {
	if len(notes) == 0 {
		return "None"
	}
	names := make([]string, len(notes))
	for i, n := range notes {
		names[i] = n.Name
	}
	return strings.Join(names, ", ")
}

func joinOrUnknown(values []string) string {
	if len(values) == 0 {
		return "Unknown"
	}
	return strings.Join(values, ", ")
}
