package reaper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/codequiz/internal/quiz"
	"github.com/abhisek/codequiz/internal/sessionstore"
)

// appClock moves only the application clock; Redis TTLs are left alone so
// logically expired sessions are still present for the sweep to find.
type appClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *appClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *appClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakePruner struct {
	mu     sync.Mutex
	cutoff time.Time
	err    error
}

func (p *fakePruner) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cutoff = cutoff
	return 3, p.err
}

func newStore(t *testing.T) (*sessionstore.RedisStore, *appClock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	c := &appClock{t: time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)}
	return sessionstore.New(client, sessionstore.Options{Now: c.Now}), c, mr
}

func completeSession(t *testing.T, store *sessionstore.RedisStore, s *quiz.Session) {
	t.Helper()
	for i := 0; i < quiz.TotalQuestions; i++ {
		require.NoError(t, s.AddQuestion(quiz.Question{
			Question:      "q",
			Options:       []quiz.Option{{Letter: "A", Text: "1"}, {Letter: "B", Text: "2"}, {Letter: "C", Text: "3"}, {Letter: "D", Text: "4"}},
			CorrectAnswer: "A",
			Explanation:   "e",
		}))
		_, _, err := s.Submit("A")
		require.NoError(t, err)
	}
	require.NoError(t, store.Update(context.Background(), s))
}

func TestSweep(t *testing.T) {
	store, clock, _ := newStore(t)
	ctx := context.Background()

	stale1, err := store.Create(ctx, "go", quiz.Beginner)
	require.NoError(t, err)
	stale2, err := store.Create(ctx, "rust", quiz.Beginner)
	require.NoError(t, err)
	done, err := store.Create(ctx, "java", quiz.Advanced)
	require.NoError(t, err)
	completeSession(t, store, done)

	clock.Advance(31 * time.Minute)
	_, err = store.Create(ctx, "python", quiz.Beginner)
	require.NoError(t, err)

	r := New(store, nil, Config{Now: clock.Now})
	res, err := r.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Before)
	assert.Equal(t, 2, res.After)
	assert.Equal(t, 4, res.Scanned)
	assert.Equal(t, 2, res.Deleted)
	assert.Zero(t, res.Failed)

	for _, id := range []string{stale1.SessionID, stale2.SessionID} {
		_, err := store.Get(ctx, id)
		assert.ErrorIs(t, err, quiz.ErrSessionNotFound)
	}

	// Completed sessions are kept for the longer retention window.
	clock.Advance(2 * time.Hour)
	res, err = r.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Deleted)
	assert.Zero(t, res.After)
}

func TestSweep_Empty(t *testing.T) {
	store, clock, _ := newStore(t)
	r := New(store, nil, Config{Now: clock.Now})

	res, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Duration: res.Duration}, res)
}

func TestSweep_StoreDown(t *testing.T) {
	store, clock, mr := newStore(t)
	mr.Close()

	_, err := New(store, nil, Config{Now: clock.Now}).Sweep(context.Background())
	assert.ErrorIs(t, err, quiz.ErrStoreUnavailable)
}

func TestReport(t *testing.T) {
	store, clock, _ := newStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "go", quiz.Beginner)
	require.NoError(t, err)
	done, err := store.Create(ctx, "go", quiz.Beginner)
	require.NoError(t, err)
	completeSession(t, store, done)

	pruner := &fakePruner{}
	r := New(store, pruner, Config{Now: clock.Now, AuditRetention: 30 * 24 * time.Hour})

	st, err := r.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, quiz.Stats{Total: 2, Active: 1, Completed: 1}, st)
	assert.Equal(t, clock.Now().Add(-30*24*time.Hour), pruner.cutoff)

	// Prune failures do not fail the report.
	pruner.err = errors.New("disk full")
	_, err = r.Report(ctx)
	assert.NoError(t, err)
}

func TestNextReport(t *testing.T) {
	loc := time.FixedZone("test", 3600)
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before hour", time.Date(2026, 1, 10, 1, 30, 0, 0, loc), time.Date(2026, 1, 10, 2, 0, 0, 0, loc)},
		{"exactly on hour", time.Date(2026, 1, 10, 2, 0, 0, 0, loc), time.Date(2026, 1, 11, 2, 0, 0, 0, loc)},
		{"after hour", time.Date(2026, 1, 10, 14, 0, 0, 0, loc), time.Date(2026, 1, 11, 2, 0, 0, 0, loc)},
		{"month end", time.Date(2026, 1, 31, 23, 0, 0, 0, loc), time.Date(2026, 2, 1, 2, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextReport(tt.now, 2))
		})
	}
}

func TestRun(t *testing.T) {
	store, clock, _ := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := store.Create(ctx, "go", quiz.Beginner)
	require.NoError(t, err)
	clock.Advance(time.Hour)

	r := New(store, nil, Config{SweepInterval: 10 * time.Millisecond, Now: clock.Now})
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		n, err := store.Count(context.Background())
		return err == nil && n == 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
