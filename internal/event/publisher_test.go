package event

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/codequiz/internal/quiz"
)

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp091.Publishing
	deadline bool
	err      error
	closed   bool
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	_, f.deadline = ctx.Deadline()
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestDisabledPublisher(t *testing.T) {
	p, err := NewEventPublisher("", "")
	require.NoError(t, err)
	assert.False(t, p.Enabled())

	s := quiz.NewSession("abc", "go", quiz.Beginner, time.Now())
	assert.NoError(t, p.PublishSessionEvent(context.Background(), SessionStarted(s, time.Now())))
	assert.NoError(t, p.Close())
}

func TestPublishSessionEvent(t *testing.T) {
	ch := &fakeChannel{}
	p := &EventPublisher{channel: ch, exchangeName: DefaultExchange, enabled: true}

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := quiz.NewSession("abc", "rust", quiz.Advanced, start)
	s.Score = 4
	s.CurrentQuestionIndex = quiz.TotalQuestions
	s.Completed = true
	s.LastActivity = start.Add(2 * time.Minute)
	sum := quiz.BuildSummary(s)

	require.NoError(t, p.PublishSessionEvent(context.Background(), SessionCompleted(&sum, start.Add(2*time.Minute))))
	assert.Equal(t, DefaultExchange, ch.exchange)
	assert.Equal(t, EventTypeSessionCompleted, ch.key)
	assert.True(t, ch.deadline)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, amqp091.Persistent, ch.msg.DeliveryMode)

	var got SessionEvent
	require.NoError(t, json.Unmarshal(ch.msg.Body, &got))
	assert.Equal(t, "abc", got.SessionID)
	assert.Equal(t, 4, got.Score)
	assert.Equal(t, 80, got.Percentage)
	assert.Equal(t, quiz.TierExcellent, got.Performance)
	assert.Equal(t, int64(120000), got.CompletionTimeMs)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestPublishError(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := &EventPublisher{channel: ch, exchangeName: DefaultExchange, enabled: true}

	s := quiz.NewSession("abc", "go", quiz.Beginner, time.Now())
	err := p.PublishSessionEvent(context.Background(), SessionStarted(s, time.Now()))
	assert.ErrorContains(t, err, "channel closed")
	assert.Equal(t, EventTypeSessionStarted, ch.key)
}
