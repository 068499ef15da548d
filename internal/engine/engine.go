// Package engine drives quiz sessions: it starts them, scores answers,
// requests follow-up questions and reports status. The engine holds no
// per-session state; every operation round-trips to the session store.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/golang/glog"

	"github.com/abhisek/codequiz/internal/event"
	"github.com/abhisek/codequiz/internal/metrics"
	"github.com/abhisek/codequiz/internal/quiz"
)

// Store is the session persistence the engine needs.
type Store interface {
	Create(ctx context.Context, language string, difficulty quiz.Difficulty) (*quiz.Session, error)
	Get(ctx context.Context, id string) (*quiz.Session, error)
	Update(ctx context.Context, s *quiz.Session) error
	Delete(ctx context.Context, id string) error
	ExtendTTL(ctx context.Context, id string) error
	Stats(ctx context.Context) (quiz.Stats, error)
}

// QuestionGenerator produces question n for a session. It must not fail.
type QuestionGenerator interface {
	Generate(ctx context.Context, language string, difficulty quiz.Difficulty, n int) quiz.Question
}

// Options configures an Engine.
type Options struct {
	// DefaultLanguage replaces a missing or unsupported language.
	DefaultLanguage string

	// Events receives lifecycle events. Nil disables publishing.
	Events event.Publisher

	Now func() time.Time
}

// Engine implements the quiz operations.
type Engine struct {
	store           Store
	gen             QuestionGenerator
	events          event.Publisher
	defaultLanguage string
	now             func() time.Time
}

// New creates an Engine.
func New(store Store, gen QuestionGenerator, opts Options) *Engine {
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = quiz.DefaultLanguage
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		store:           store,
		gen:             gen,
		events:          opts.Events,
		defaultLanguage: opts.DefaultLanguage,
		now:             opts.Now,
	}
}

// StartResult is returned by Start.
type StartResult struct {
	SessionID             string              `json:"sessionId"`
	Language              string              `json:"language"`
	Difficulty            quiz.Difficulty     `json:"difficulty"`
	CurrentQuestion       quiz.ClientQuestion `json:"currentQuestion"`
	TotalQuestions        int                 `json:"totalQuestions"`
	CurrentQuestionNumber int                 `json:"currentQuestionNumber"`
	Score                 int                 `json:"score"`
	IsComplete            bool                `json:"isComplete"`
}

// AnswerResult is returned by SubmitAnswer. NextQuestion is set while the
// quiz continues; Summary is set once it is complete.
type AnswerResult struct {
	Correct         bool                 `json:"correct"`
	Message         string               `json:"message"`
	CorrectAnswer   string               `json:"correctAnswer"`
	Explanation     string               `json:"explanation"`
	CurrentScore    int                  `json:"currentScore"`
	HasNextQuestion bool                 `json:"hasNextQuestion"`
	NextQuestion    *quiz.ClientQuestion `json:"nextQuestion"`
	SessionSummary  *quiz.Summary        `json:"sessionSummary"`
}

// Start creates a session and its first question.
func (e *Engine) Start(ctx context.Context, language, difficulty string) (*StartResult, error) {
	diff, err := quiz.ParseDifficulty(difficulty)
	if err != nil {
		return nil, e.fail("start", err)
	}
	lang := quiz.NormalizeLanguage(language, e.defaultLanguage)

	s, err := e.store.Create(ctx, lang, diff)
	if err != nil {
		return nil, e.fail("start", err)
	}

	first := e.gen.Generate(ctx, lang, diff, 1)
	if err := s.AddQuestion(first); err != nil {
		e.discard(s.SessionID)
		return nil, e.fail("start", err)
	}
	if err := e.store.Update(ctx, s); err != nil {
		e.discard(s.SessionID)
		return nil, e.fail("start", err)
	}

	glog.Infof("started quiz session %s: language=%s difficulty=%s", s.SessionID, lang, diff)
	metrics.SessionsStarted.WithLabelValues(lang, string(diff)).Inc()
	e.publish(ctx, event.SessionStarted(s, e.now()))

	return &StartResult{
		SessionID:             s.SessionID,
		Language:              lang,
		Difficulty:            diff,
		CurrentQuestion:       quiz.Redact(s.Questions[0]),
		TotalQuestions:        quiz.TotalQuestions,
		CurrentQuestionNumber: 1,
		Score:                 0,
		IsComplete:            false,
	}, nil
}

// SubmitAnswer scores letter against the pending question of session id,
// then either attaches the next question or completes the session.
func (e *Engine) SubmitAnswer(ctx context.Context, id, letter string) (*AnswerResult, error) {
	if _, err := quiz.NormalizeAnswer(letter); err != nil {
		return nil, e.fail("answer", err)
	}

	s, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, e.fail("answer", err)
	}

	answered, correct, err := s.Submit(letter)
	if err != nil {
		return nil, e.fail("answer", err)
	}

	res := &AnswerResult{
		Correct:       correct,
		Message:       feedback(correct, answered.Explanation),
		CorrectAnswer: answered.CorrectAnswer,
		Explanation:   answered.Explanation,
		CurrentScore:  s.Score,
	}

	if s.Completed {
		if err := e.store.Update(ctx, s); err != nil {
			return nil, e.fail("answer", err)
		}
		sum := quiz.BuildSummary(s)
		res.SessionSummary = &sum

		glog.Infof("completed quiz session %s: score %d/%d (%s)", s.SessionID, s.Score, quiz.TotalQuestions, sum.Performance)
		metrics.AnswersSubmitted.WithLabelValues(boolLabel(correct)).Inc()
		metrics.SessionsCompleted.WithLabelValues(sum.Performance).Inc()
		e.publish(ctx, event.SessionCompleted(&sum, e.now()))
		return res, nil
	}

	next := e.gen.Generate(ctx, s.Language, s.Difficulty, s.CurrentQuestionNumber())
	if err := s.AddQuestion(next); err != nil {
		return nil, e.fail("answer", err)
	}
	if err := e.store.Update(ctx, s); err != nil {
		return nil, e.fail("answer", err)
	}

	cq := quiz.Redact(*s.CurrentQuestion())
	res.HasNextQuestion = true
	res.NextQuestion = &cq

	glog.V(1).Infof("session %s: answered question %d correct=%t", s.SessionID, answered.QuestionNumber, correct)
	metrics.AnswersSubmitted.WithLabelValues(boolLabel(correct)).Inc()
	return res, nil
}

// Status returns the stored session. Expired sessions are reported as not found.
func (e *Engine) Status(ctx context.Context, id string) (*quiz.Session, error) {
	s, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, e.fail("status", err)
	}
	return s, nil
}

// KeepAlive restarts the idle window of session id. Unknown ids are ignored.
func (e *Engine) KeepAlive(ctx context.Context, id string) error {
	if err := e.store.ExtendTTL(ctx, id); err != nil {
		return e.fail("keepalive", err)
	}
	return nil
}

// Stats returns point-in-time session counts.
func (e *Engine) Stats(ctx context.Context) (quiz.Stats, error) {
	st, err := e.store.Stats(ctx)
	if err != nil {
		return quiz.Stats{}, e.fail("stats", err)
	}
	return st, nil
}

// Now returns the engine clock reading.
func (e *Engine) Now() time.Time {
	return e.now()
}

func feedback(correct bool, explanation string) string {
	if correct {
		return "Correct! " + explanation
	}
	return "Incorrect. " + explanation
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// discard removes a session that could not be fully initialized. It uses
// its own context so a cancelled request still cleans up.
func (e *Engine) discard(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.store.Delete(ctx, id); err != nil {
		glog.Warningf("could not delete orphaned session %s: %v", id, err)
	}
}

func (e *Engine) publish(ctx context.Context, ev *event.SessionEvent) {
	if e.events == nil {
		return
	}
	if err := e.events.PublishSessionEvent(context.WithoutCancel(ctx), ev); err != nil {
		glog.Warningf("publish %s for session %s: %v", ev.EventType, ev.SessionID, err)
	}
}

var sentinels = []struct {
	err  error
	kind string
}{
	{quiz.ErrSessionNotFound, "not_found"},
	{quiz.ErrCorruptedSession, "corrupted"},
	{quiz.ErrConflict, "conflict"},
	{quiz.ErrStoreUnavailable, "store_unavailable"},
	{quiz.ErrPersistFailed, "persist_failed"},
	{quiz.ErrInvalidDifficulty, "invalid_difficulty"},
	{quiz.ErrInvalidAnswer, "invalid_answer"},
}

// fail logs and counts err and guarantees the returned error matches one
// of the quiz sentinels.
func (e *Engine) fail(op string, err error) error {
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			metrics.EngineErrors.WithLabelValues(op, s.kind).Inc()
			if s.err == quiz.ErrStoreUnavailable || s.err == quiz.ErrPersistFailed || s.err == quiz.ErrCorruptedSession {
				glog.Errorf("%s: %v", op, err)
			} else {
				glog.V(1).Infof("%s: %v", op, err)
			}
			return err
		}
	}

	glog.Errorf("%s: unexpected error: %v", op, err)
	metrics.EngineErrors.WithLabelValues(op, "store_unavailable").Inc()
	return quiz.ErrStoreUnavailable
}
