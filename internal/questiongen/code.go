package questiongen

import (
	"strings"

	"github.com/abhisek/codequiz/internal/llm"
)

// CodeValidator reconciles the snippet with what was asked for. A missing
// snippet fails when one was requested; an unrequested snippet is dropped.
type CodeValidator struct{}

func (v *CodeValidator) Name() string { return "code" }

func (v *CodeValidator) Validate(d *Draft, req Request) *ValidationError {
	snippet := strings.TrimSpace(llm.StripCodeFence(d.CodeSnippet))

	if !req.WantCode {
		d.CodeSnippet = ""
		return nil
	}
	if snippet == "" {
		return &ValidationError{
			Validator: v.Name(),
			Message:   "codeSnippet is empty but a snippet was requested",
		}
	}
	d.CodeSnippet = snippet
	return nil
}
