package event

import (
	"time"

	"github.com/abhisek/codequiz/internal/quiz"
)

const (
	EventTypeSessionStarted   = "quiz.session.started"
	EventTypeSessionCompleted = "quiz.session.completed"
)

// SessionEvent describes a quiz session lifecycle change.
type SessionEvent struct {
	EventType  string          `json:"eventType"`
	SessionID  string          `json:"sessionId"`
	Language   string          `json:"language"`
	Difficulty quiz.Difficulty `json:"difficulty"`
	Timestamp  int64           `json:"timestamp"`

	// Completion fields; zero on started events.
	Score            int    `json:"score,omitempty"`
	Percentage       int    `json:"percentage,omitempty"`
	Performance      string `json:"performance,omitempty"`
	CompletionTimeMs int64  `json:"completionTimeMs,omitempty"`
}

// SessionStarted builds the event emitted after a session is created.
func SessionStarted(s *quiz.Session, now time.Time) *SessionEvent {
	return &SessionEvent{
		EventType:  EventTypeSessionStarted,
		SessionID:  s.SessionID,
		Language:   s.Language,
		Difficulty: s.Difficulty,
		Timestamp:  now.UnixMilli(),
	}
}

// SessionCompleted builds the event emitted after the final answer is stored.
func SessionCompleted(sum *quiz.Summary, now time.Time) *SessionEvent {
	return &SessionEvent{
		EventType:        EventTypeSessionCompleted,
		SessionID:        sum.SessionID,
		Language:         sum.Language,
		Difficulty:       sum.Difficulty,
		Timestamp:        now.UnixMilli(),
		Score:            sum.CorrectAnswers,
		Percentage:       sum.Score,
		Performance:      sum.Performance,
		CompletionTimeMs: sum.CompletionTimeMs,
	}
}
