package quiz

import "time"

// ClientQuestion is a question as delivered before it is answered:
// the correct answer and explanation are withheld.
type ClientQuestion struct {
	QuestionNumber int      `json:"questionNumber"`
	Question       string   `json:"question"`
	CodeSnippet    string   `json:"codeSnippet,omitempty"`
	Options        []Option `json:"options"`
}

// Redact strips the answer from q.
func Redact(q Question) ClientQuestion {
	opts := make([]Option, len(q.Options))
	copy(opts, q.Options)
	return ClientQuestion{
		QuestionNumber: q.QuestionNumber,
		Question:       q.Question,
		CodeSnippet:    q.CodeSnippet,
		Options:        opts,
	}
}

// StatusView is the polling representation of a session.
type StatusView struct {
	SessionID              string     `json:"sessionId"`
	Language               string     `json:"language"`
	Difficulty             Difficulty `json:"difficulty"`
	CurrentQuestion        int        `json:"currentQuestion"`
	TotalQuestions         int        `json:"totalQuestions"`
	Score                  int        `json:"score"`
	CompletionPercentage   int        `json:"completionPercentage"`
	Status                 Status     `json:"status"`
	SessionDurationMinutes int64      `json:"sessionDurationMinutes"`
	Completed              bool       `json:"completed"`
}

// View builds the status view of s at now.
func View(s *Session, now time.Time) StatusView {
	return StatusView{
		SessionID:              s.SessionID,
		Language:               s.Language,
		Difficulty:             s.Difficulty,
		CurrentQuestion:        min(s.CurrentQuestionNumber(), TotalQuestions),
		TotalQuestions:         TotalQuestions,
		Score:                  s.Score,
		CompletionPercentage:   s.CompletionPercentage(),
		Status:                 s.State(now),
		SessionDurationMinutes: int64(s.Duration(now) / time.Minute),
		Completed:              s.Completed,
	}
}
