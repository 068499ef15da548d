package questiongen

import (
	"fmt"
	"strings"

	"github.com/abhisek/codequiz/internal/quiz"
)

const (
	maxQuestionLen    = 600
	maxOptionLen      = 300
	maxExplanationLen = 1500
	maxSnippetLen     = 3000
)

// StructuralValidator checks that required fields are present, within
// length limits, and that the four options are distinct.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(d *Draft, _ Request) *ValidationError {
	fail := func(format string, args ...any) *ValidationError {
		return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf(format, args...)}
	}

	if strings.TrimSpace(d.Question) == "" {
		return fail("question is empty")
	}
	if len(d.Question) > maxQuestionLen {
		return fail("question exceeds %d characters", maxQuestionLen)
	}
	if strings.TrimSpace(d.Explanation) == "" {
		return fail("explanation is empty")
	}
	if len(d.Explanation) > maxExplanationLen {
		return fail("explanation exceeds %d characters", maxExplanationLen)
	}
	if len(d.CodeSnippet) > maxSnippetLen {
		return fail("codeSnippet exceeds %d characters", maxSnippetLen)
	}

	seen := make(map[string]string, len(quiz.Letters))
	for i, text := range d.Options.List() {
		letter := quiz.Letters[i]
		norm := strings.ToLower(strings.TrimSpace(text))
		if norm == "" {
			return fail("option %s is empty", letter)
		}
		if len(text) > maxOptionLen {
			return fail("option %s exceeds %d characters", letter, maxOptionLen)
		}
		if prev, dup := seen[norm]; dup {
			return fail("options %s and %s are identical", prev, letter)
		}
		seen[norm] = letter
	}

	answer, err := quiz.NormalizeAnswer(d.CorrectAnswer)
	if err != nil {
		return fail("correctAnswer %q is not one of A-D", d.CorrectAnswer)
	}
	d.CorrectAnswer = answer
	return nil
}
