// Package questiongen produces quiz questions. A Source drafts a question
// for a topic; the Generator picks topics, gathers reference material and
// falls back to a fixed question when the source fails.
package questiongen

import (
	"context"

	"github.com/abhisek/codequiz/internal/quiz"
)

// Request describes the question to draft.
type Request struct {
	// Language is the catalog language ID, e.g. "kotlin".
	Language   string
	Topic      string
	Difficulty quiz.Difficulty

	// WantCode asks for a code snippet in the question.
	WantCode bool

	// Context is optional reference material to ground the question.
	Context string
}

// Options holds the four answer choices keyed by letter.
type Options struct {
	A string `json:"A"`
	B string `json:"B"`
	C string `json:"C"`
	D string `json:"D"`
}

// List returns the options in letter order.
func (o Options) List() [4]string {
	return [4]string{o.A, o.B, o.C, o.D}
}

// Draft is a question as produced by a Source, before it is numbered.
type Draft struct {
	Question      string  `json:"question"`
	CodeSnippet   string  `json:"codeSnippet"`
	Options       Options `json:"options"`
	CorrectAnswer string  `json:"correctAnswer"`
	Explanation   string  `json:"explanation"`
}

// ToQuestion converts the draft into a numbered quiz question.
func (d *Draft) ToQuestion(number int) quiz.Question {
	texts := d.Options.List()
	opts := make([]quiz.Option, len(quiz.Letters))
	for i, letter := range quiz.Letters {
		opts[i] = quiz.Option{Letter: letter, Text: texts[i]}
	}
	return quiz.Question{
		QuestionNumber: number,
		Question:       d.Question,
		CodeSnippet:    d.CodeSnippet,
		Options:        opts,
		CorrectAnswer:  d.CorrectAnswer,
		Explanation:    d.Explanation,
	}
}

// Source drafts questions.
type Source interface {
	// GenerateQuestion returns a validated draft or an error. Callers are
	// expected to bound ctx; a Source does not apply its own deadline.
	GenerateQuestion(ctx context.Context, req Request) (*Draft, error)
}
