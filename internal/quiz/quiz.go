// Package quiz holds the quiz session model shared by the store, the engine
// and the HTTP layer.
package quiz

import (
	"fmt"
	"strings"
	"time"
)

const (
	// TotalQuestions is the fixed length of every quiz.
	TotalQuestions = 5

	// SessionTimeoutMinutes is the idle window after which a session expires, completed or not.
	SessionTimeoutMinutes = 30

	// SessionTimeout is SessionTimeoutMinutes as a Duration.
	SessionTimeout = SessionTimeoutMinutes * time.Minute
)

// Letters are the option labels in display order.
var Letters = [4]string{"A", "B", "C", "D"}

// Difficulty is the quiz difficulty, fixed at session creation.
type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

// Difficulties lists the accepted difficulties in ascending order.
var Difficulties = []Difficulty{Beginner, Intermediate, Advanced}

// ParseDifficulty validates a difficulty string (case-insensitive).
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case Beginner, Intermediate, Advanced:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDifficulty, s)
}

// NormalizeAnswer validates an answer letter (case-insensitive) and returns
// it upper-cased.
func NormalizeAnswer(s string) (string, error) {
	l := strings.ToUpper(strings.TrimSpace(s))
	for _, letter := range Letters {
		if l == letter {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAnswer, s)
}

// Status is the externally visible lifecycle state of a session.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusExpired   Status = "EXPIRED"
)

// Option is one labeled answer choice.
type Option struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// Question is one quiz item.
type Question struct {
	QuestionNumber int      `json:"questionNumber"`
	Question       string   `json:"question"`
	CodeSnippet    string   `json:"codeSnippet"`
	Options        []Option `json:"options"`
	CorrectAnswer  string   `json:"correctAnswer"`
	Explanation    string   `json:"explanation"`
}

// Validate checks the structural shape of a question: non-empty text and
// explanation, exactly four non-empty options labeled A-D in order, and a
// correct answer among them.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("question text is empty")
	}
	if strings.TrimSpace(q.Explanation) == "" {
		return fmt.Errorf("explanation is empty")
	}
	if len(q.Options) != len(Letters) {
		return fmt.Errorf("expected %d options, got %d", len(Letters), len(q.Options))
	}
	for i, o := range q.Options {
		if o.Letter != Letters[i] {
			return fmt.Errorf("option %d has letter %q, want %q", i, o.Letter, Letters[i])
		}
		if strings.TrimSpace(o.Text) == "" {
			return fmt.Errorf("option %s is empty", o.Letter)
		}
	}
	if _, err := NormalizeAnswer(q.CorrectAnswer); err != nil || q.CorrectAnswer != strings.ToUpper(q.CorrectAnswer) {
		return fmt.Errorf("correct answer %q is not one of A-D", q.CorrectAnswer)
	}
	return nil
}

// Session is one player's quiz attempt. It is the unit persisted by the
// session store.
type Session struct {
	SessionID            string     `json:"sessionId"`
	Language             string     `json:"language"`
	Difficulty           Difficulty `json:"difficulty"`
	Questions            []Question `json:"questions"`
	UserAnswers          []string   `json:"userAnswers"`
	CurrentQuestionIndex int        `json:"currentQuestionIndex"`
	Score                int        `json:"score"`
	StartTime            time.Time  `json:"startTime"`
	LastActivity         time.Time  `json:"lastActivity"`
	Completed            bool       `json:"completed"`

	// Version is the store's write sequence. Update requires the version
	// that was read and writes Version+1.
	Version int64 `json:"version"`
}

// NewSession builds an empty session started at now.
func NewSession(id, language string, difficulty Difficulty, now time.Time) *Session {
	now = now.UTC()
	return &Session{
		SessionID:    id,
		Language:     language,
		Difficulty:   difficulty,
		Questions:    []Question{},
		UserAnswers:  []string{},
		StartTime:    now,
		LastActivity: now,
	}
}

// CurrentQuestion returns the pending question, or nil if there is none.
func (s *Session) CurrentQuestion() *Question {
	if s.Completed || s.CurrentQuestionIndex >= len(s.Questions) {
		return nil
	}
	return &s.Questions[s.CurrentQuestionIndex]
}

// HasNext reports whether another question follows the current index.
func (s *Session) HasNext() bool {
	return s.CurrentQuestionIndex < TotalQuestions
}

// CurrentQuestionNumber is the 1-based number of the pending question.
func (s *Session) CurrentQuestionNumber() int {
	return s.CurrentQuestionIndex + 1
}

// CompletionPercentage is the share of answered questions, floored.
func (s *Session) CompletionPercentage() int {
	return s.CurrentQuestionIndex * 100 / TotalQuestions
}

// Duration is the time elapsed since the session started.
func (s *Session) Duration(now time.Time) time.Duration {
	return now.Sub(s.StartTime)
}

// IdleExpired reports whether the session has been idle longer than SessionTimeout.
func (s *Session) IdleExpired(now time.Time) bool {
	return now.Sub(s.LastActivity) > SessionTimeout
}

// State derives the lifecycle state at now.
func (s *Session) State(now time.Time) Status {
	switch {
	case s.Completed:
		return StatusCompleted
	case s.IdleExpired(now):
		return StatusExpired
	default:
		return StatusActive
	}
}

// AddQuestion appends q as the pending question and numbers it.
// It fails if a question is already pending or the quiz is complete.
func (s *Session) AddQuestion(q Question) error {
	if s.Completed || len(s.Questions) != s.CurrentQuestionIndex || s.CurrentQuestionIndex >= TotalQuestions {
		return fmt.Errorf("%w: cannot add question %d with %d questions at index %d",
			ErrCorruptedSession, s.CurrentQuestionIndex+1, len(s.Questions), s.CurrentQuestionIndex)
	}
	q.QuestionNumber = s.CurrentQuestionIndex + 1
	s.Questions = append(s.Questions, q)
	return nil
}

// Submit records an answer to the pending question, scores it and advances
// the index. Reaching TotalQuestions marks the session completed. The
// answered question is returned so its answer can be revealed.
func (s *Session) Submit(letter string) (Question, bool, error) {
	answer, err := NormalizeAnswer(letter)
	if err != nil {
		return Question{}, false, err
	}
	q := s.CurrentQuestion()
	if q == nil {
		return Question{}, false, fmt.Errorf("%w: no pending question at index %d", ErrCorruptedSession, s.CurrentQuestionIndex)
	}
	answered := *q

	correct := strings.EqualFold(answer, answered.CorrectAnswer)
	if correct {
		s.Score++
	}
	s.UserAnswers = append(s.UserAnswers, answer)
	s.CurrentQuestionIndex++
	if s.CurrentQuestionIndex == TotalQuestions {
		s.Completed = true
	}
	return answered, correct, nil
}

// Validate checks the session invariants.
func (s *Session) Validate() error {
	switch {
	case s.SessionID == "":
		return fmt.Errorf("%w: empty session id", ErrCorruptedSession)
	case s.CurrentQuestionIndex < 0 || s.CurrentQuestionIndex > TotalQuestions:
		return fmt.Errorf("%w: index %d out of range", ErrCorruptedSession, s.CurrentQuestionIndex)
	case len(s.UserAnswers) != s.CurrentQuestionIndex:
		return fmt.Errorf("%w: %d answers at index %d", ErrCorruptedSession, len(s.UserAnswers), s.CurrentQuestionIndex)
	case s.Score < 0 || s.Score > s.CurrentQuestionIndex:
		return fmt.Errorf("%w: score %d at index %d", ErrCorruptedSession, s.Score, s.CurrentQuestionIndex)
	case s.Completed != (s.CurrentQuestionIndex == TotalQuestions):
		return fmt.Errorf("%w: completed=%t at index %d", ErrCorruptedSession, s.Completed, s.CurrentQuestionIndex)
	}

	want := s.CurrentQuestionIndex + 1
	if s.Completed {
		want = TotalQuestions
	}
	// A freshly created session has no question yet.
	if len(s.Questions) != want && !(s.CurrentQuestionIndex == 0 && len(s.Questions) == 0) {
		return fmt.Errorf("%w: %d questions at index %d", ErrCorruptedSession, len(s.Questions), s.CurrentQuestionIndex)
	}
	return nil
}

// Stats are point-in-time session counts under the store prefix.
type Stats struct {
	Total     int `json:"totalSessions"`
	Active    int `json:"activeSessions"`
	Completed int `json:"completedSessions"`
	Expired   int `json:"expiredSessions"`
}
