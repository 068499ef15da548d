package questiongen

import (
	"fmt"
	"strings"

	"github.com/abhisek/codequiz/internal/quiz"
)

const systemPrompt = `You are a programming instructor writing multiple-choice quiz questions.

Rules:
- Write one focused question about the requested language and topic.
- Provide exactly 4 options labeled A, B, C and D. Exactly one is correct.
- Distractors should reflect real misconceptions, not obviously wrong filler.
- Vary which letter holds the correct answer.
- Use syntax and idioms of the requested language. Prefer practical, realistic scenarios.
- When a code snippet is requested, put only the code in codeSnippet, without markdown fences. Otherwise set codeSnippet to an empty string.
- The explanation should teach why the correct option is right.
- Match the requested difficulty level: challenging but fair.`

// buildUserMessage constructs the user message for a Request.
func buildUserMessage(req Request) string {
	lang := quiz.DisplayName(req.Language)

	var b strings.Builder

	fmt.Fprintf(&b, "Create a %s programming quiz question focused on: %s\n", lang, req.Topic)
	fmt.Fprintf(&b, "Difficulty: %s\n", req.Difficulty)
	if req.WantCode {
		fmt.Fprintf(&b, "Include a relevant %s code snippet\n", lang)
	} else {
		b.WriteString("Make it a conceptual question without code\n")
	}

	if req.Context != "" {
		b.WriteString("\n")
		b.WriteString(req.Context)
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// referenceContext formats retrieved text for the prompt, keeping at most
// max runes of it.
func referenceContext(text string, max int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if r := []rune(text); max > 0 && len(r) > max {
		text = string(r[:max])
	}
	return "Reference material:\n" + text
}
