package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	types "github.com/notewise/notewise-backend/internal/domain"
	"github.com/notewise/notewise-backend/internal/platform/openai"
)

// decode round-trips a GenerateJSON result into a typed struct.
func decode(obj map[string]any, out any) error {
	raw, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func generateSummaries(ctx context.Context, client openai.Client, text, guidance string) (*types.Summaries, error) {
	user := fmt.Sprintf(summaryUserTemplate, withGuidance(guidance), text)
	obj, err := client.GenerateJSON(ctx, summarySystemPrompt, user, "note_summaries", summarySchema)
	if err != nil {
		return nil, err
	}
	var s types.Summaries
	if err := decode(obj, &s); err != nil {
		return nil, fmt.Errorf("decode summaries: %w", err)
	}
	if s.Empty() {
		return nil, fmt.Errorf("summaries came back empty")
	}
	return &s, nil
}

func generateQuestions(ctx context.Context, client openai.Client, text, guidance string) ([]types.QAPair, error) {
	user := fmt.Sprintf(questionUserTemplate, withGuidance(guidance), text)
	obj, err := client.GenerateJSON(ctx, questionSystemPrompt, user, "review_questions", questionSchema)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Questions []types.QAPair `json:"questions"`
	}
	if err := decode(obj, &payload); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	if len(payload.Questions) == 0 {
		return nil, fmt.Errorf("no questions generated")
	}
	return payload.Questions, nil
}

func generateMCQs(ctx context.Context, client openai.Client, text, guidance string) (map[string][]types.MCQItem, error) {
	user := fmt.Sprintf(mcqUserTemplate, withGuidance(guidance), text)
	obj, err := client.GenerateJSON(ctx, mcqSystemPrompt, user, "multiple_choice", mcqSchema)
	if err != nil {
		return nil, err
	}
	var payload map[string][]types.MCQItem
	if err := decode(obj, &payload); err != nil {
		return nil, fmt.Errorf("decode mcqs: %w", err)
	}
	out := map[string][]types.MCQItem{}
	for _, level := range []string{types.MCQEasy, types.MCQMedium, types.MCQHard} {
		items := validMCQs(payload[level])
		if len(items) > 0 {
			out[level] = items
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable mcqs generated")
	}
	return out, nil
}

// validMCQs drops items whose answer letter does not name one of its options.
func validMCQs(items []types.MCQItem) []types.MCQItem {
	out := make([]types.MCQItem, 0, len(items))
	for _, it := range items {
		key := strings.ToUpper(strings.TrimSpace(it.Answer))
		if _, ok := it.Options[key]; !ok {
			continue
		}
		it.Answer = key
		out = append(out, it)
	}
	return out
}

func reviewBundle(ctx context.Context, client openai.Client, text string, b *types.Bundle) (types.Review, error) {
	material, err := json.Marshal(map[string]any{
		"summaries": b.Summaries,
		"questions": b.Questions,
		"mcqs":      b.MCQs,
	})
	if err != nil {
		return types.Review{}, err
	}
	user := fmt.Sprintf(reviewUserTemplate, text, string(material))
	obj, err := client.GenerateJSON(ctx, reviewSystemPrompt, user, "material_review", reviewSchema)
	if err != nil {
		return types.Review{}, err
	}
	var r types.Review
	if err := decode(obj, &r); err != nil {
		return types.Review{}, fmt.Errorf("decode review: %w", err)
	}
	return r, nil
}
