package agents

import (
	"fmt"
	"strings"
)

const summarySystemPrompt = `You are an expert study assistant. You produce faithful, self-contained summaries of lecture notes. Work only from the provided content; never invent facts that are not present.`

const summaryUserTemplate = `Summarize the following notes.

Return JSON with:
- one_sentence: a single-sentence summary
- short_paragraph: a 3-5 sentence summary
- bullet_points: the key ideas, one per bullet

%sNOTES:
%s`

const questionSystemPrompt = `You are a teacher writing high-quality open-ended review questions. Questions must be answerable from the provided notes alone. Mix recall, comparison/analysis, and application questions.`

const questionUserTemplate = `Write 5 to 10 review questions for the following notes. Each question needs a concise but complete answer (2-4 sentences).

%sNOTES:
%s`

const mcqSystemPrompt = `You are a teacher writing multiple-choice questions. Each question has exactly four options labeled A-D, exactly one correct option, and an explanation of why the correct option is right and the others are wrong. Distractors must be plausible and grounded in the notes.`

const mcqUserTemplate = `Write multiple-choice questions for the following notes at three difficulty levels: easy (basic concepts), medium (deeper understanding), hard (analysis, comparison or application). Produce 1 to 3 questions per level.

%sNOTES:
%s`

const reviewSystemPrompt = `You are a strict quality reviewer for generated study material. Check the material against the source notes for factual grounding, completeness and internal consistency (answers must match their questions, MCQ answers must name an existing option). Be concise.`

const reviewUserTemplate = `Review the generated study material below against the source notes. Return valid=true only when the material is grounded in the notes and free of contradictions. When invalid, notes must say concretely what to fix.

SOURCE NOTES:
%s

GENERATED MATERIAL:
%s`

// withGuidance prepends reviewer feedback to a regeneration prompt.
func withGuidance(guidance string) string {
	guidance = strings.TrimSpace(guidance)
	if guidance == "" {
		return ""
	}
	return fmt.Sprintf("A reviewer rejected the previous attempt with this feedback; address it:\n%s\n\n", guidance)
}

var summarySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"one_sentence":    map[string]any{"type": "string"},
		"short_paragraph": map[string]any{"type": "string"},
		"bullet_points": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
	"required":             []string{"one_sentence", "short_paragraph", "bullet_points"},
	"additionalProperties": false,
}

var questionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"questions": map[string]any{
			"type":     "array",
			"minItems": 5,
			"maxItems": 10,
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"question": map[string]any{"type": "string"},
					"answer":   map[string]any{"type": "string"},
				},
				"required":             []string{"question", "answer"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"questions"},
	"additionalProperties": false,
}

var mcqSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"easy":   mcqLevelSchema,
		"medium": mcqLevelSchema,
		"hard":   mcqLevelSchema,
	},
	"required":             []string{"easy", "medium", "hard"},
	"additionalProperties": false,
}

var mcqLevelSchema = map[string]any{
	"type":     "array",
	"minItems": 1,
	"maxItems": 3,
	"items": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question": map[string]any{"type": "string"},
			"options": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"A": map[string]any{"type": "string"},
					"B": map[string]any{"type": "string"},
					"C": map[string]any{"type": "string"},
					"D": map[string]any{"type": "string"},
				},
				"required":             []string{"A", "B", "C", "D"},
				"additionalProperties": false,
			},
			"answer":      map[string]any{"type": "string", "enum": []string{"A", "B", "C", "D"}},
			"explanation": map[string]any{"type": "string"},
		},
		"required":             []string{"question", "options", "answer", "explanation"},
		"additionalProperties": false,
	},
}

var reviewSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"valid": map[string]any{"type": "boolean"},
		"notes": map[string]any{"type": "string"},
	},
	"required":             []string{"valid", "notes"},
	"additionalProperties": false,
}
