package vision

import "github.com/khianthai/khian/internal/llm"

// VerdictSchema defines the JSON schema for handwriting verdicts.
var VerdictSchema = &llm.Schema{
	Name:        "handwriting-verdict",
	Description: "Verdict on a traced Thai character",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"detected": map[string]any{
				"type":        "string",
				"description": "The character the student wrote",
			},
			"isCorrect": map[string]any{
				"type":        "boolean",
				"description": "True only for a clean trace of the target that covers at least 80% of the guide",
			},
			"confidence": map[string]any{
				"type":        "integer",
				"minimum":     0,
				"maximum":     100,
				"description": "Overlap and quality score, 0-100",
			},
			"explanation": map[string]any{
				"type":        "string",
				"description": "Short feedback for the student, in Thai",
			},
		},
		"required":             []any{"detected", "isCorrect", "confidence", "explanation"},
		"additionalProperties": false,
	},
}
