package questiongen

import "github.com/abhisek/codequiz/internal/llm"

// QuestionSchema defines the JSON schema for LLM question responses.
var QuestionSchema = &llm.Schema{
	Name:        "quiz-question",
	Description: "A single multiple-choice programming quiz question with four options and an explanation",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question": map[string]any{
				"type":        "string",
				"description": "The question shown to the player",
			},
			"codeSnippet": map[string]any{
				"type":        "string",
				"description": "Source code the question refers to, without markdown fences. Empty string for conceptual questions.",
			},
			"options": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"A": map[string]any{"type": "string"},
					"B": map[string]any{"type": "string"},
					"C": map[string]any{"type": "string"},
					"D": map[string]any{"type": "string"},
				},
				"required":             []any{"A", "B", "C", "D"},
				"additionalProperties": false,
				"description":          "Exactly four answer options keyed by letter",
			},
			"correctAnswer": map[string]any{
				"type":        "string",
				"enum":        []any{"A", "B", "C", "D"},
				"description": "The letter of the single correct option",
			},
			"explanation": map[string]any{
				"type":        "string",
				"description": "Why the correct option is right, written to teach",
			},
		},
		"required":             []any{"question", "codeSnippet", "options", "correctAnswer", "explanation"},
		"additionalProperties": false,
	},
}
