package llm

import "context"

// PurposeQuestionGen labels calls made to produce quiz questions.
const PurposeQuestionGen = "question-gen"

type purposeKey struct{}

// WithPurpose tags ctx so the audit log can group calls by what they were for.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey{}, purpose)
}

// PurposeFrom returns the tag set by WithPurpose, or "unknown".
func PurposeFrom(ctx context.Context) string {
	if v, _ := ctx.Value(purposeKey{}).(string); v != "" {
		return v
	}
	return "unknown"
}
