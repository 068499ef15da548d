// Package sessionstore persists quiz sessions in Redis under a key prefix,
// with TTL-based reclamation and versioned compare-and-swap updates.
package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/abhisek/codequiz/internal/metrics"
	"github.com/abhisek/codequiz/internal/quiz"
)

const (
	DefaultPrefix       = "quiz:session:"
	DefaultActiveTTL    = quiz.SessionTimeout
	DefaultCompletedTTL = 2 * time.Hour
	defaultScanCount    = 100

	// extendAttempts bounds keep-alive retries when a concurrent write
	// invalidates the WATCH.
	extendAttempts = 3
)

// Options configures a RedisStore. Zero values take the defaults.
type Options struct {
	Prefix       string
	ActiveTTL    time.Duration
	CompletedTTL time.Duration
	ScanCount    int64

	// Now overrides the clock. Tests pair it with miniredis FastForward.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Prefix == "" {
		o.Prefix = DefaultPrefix
	}
	if o.ActiveTTL <= 0 {
		o.ActiveTTL = DefaultActiveTTL
	}
	if o.CompletedTTL <= 0 {
		o.CompletedTTL = DefaultCompletedTTL
	}
	if o.ScanCount <= 0 {
		o.ScanCount = defaultScanCount
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// RedisStore is the session store. It is safe for concurrent use and keeps
// no in-process session state.
type RedisStore struct {
	client redis.UniversalClient
	opts   Options
}

// New returns a store over client.
func New(client redis.UniversalClient, opts Options) *RedisStore {
	return &RedisStore{client: client, opts: opts.withDefaults()}
}

// Prefix returns the key namespace.
func (s *RedisStore) Prefix() string {
	return s.opts.Prefix
}

func (s *RedisStore) key(id string) string {
	return s.opts.Prefix + id
}

func (s *RedisStore) now() time.Time {
	return s.opts.Now().UTC()
}

func (s *RedisStore) ttlFor(sess *quiz.Session) time.Duration {
	if sess.Completed {
		return s.opts.CompletedTTL
	}
	return s.opts.ActiveTTL
}

func observe(op string, start time.Time) {
	metrics.StoreOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// NewID returns a fresh session id: a random UUID rendered as 32 hex chars.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Create persists a new empty session with the active TTL.
func (s *RedisStore) Create(ctx context.Context, language string, difficulty quiz.Difficulty) (*quiz.Session, error) {
	defer observe("create", time.Now())

	for range 3 {
		sess := quiz.NewSession(NewID(), language, difficulty, s.now())
		sess.Version = 1

		data, err := json.Marshal(sess)
		if err != nil {
			return nil, fmt.Errorf("encode session: %w", err)
		}

		ok, err := s.client.SetNX(ctx, s.key(sess.SessionID), data, s.opts.ActiveTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: create: %w", quiz.ErrStoreUnavailable, err)
		}
		if ok {
			glog.V(2).Infof("sessionstore: created %s (%s/%s)", sess.SessionID, language, difficulty)
			return sess, nil
		}
		glog.Warningf("sessionstore: id collision on %s, regenerating", sess.SessionID)
	}
	return nil, fmt.Errorf("%w: could not allocate a session id", quiz.ErrStoreUnavailable)
}

// Get reads a session. Sessions past their expiry window are deleted and
// reported as not found, whatever the Redis TTL says.
func (s *RedisStore) Get(ctx context.Context, id string) (*quiz.Session, error) {
	defer observe("get", time.Now())

	if id == "" {
		return nil, quiz.ErrSessionNotFound
	}

	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, quiz.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get: %w", quiz.ErrStoreUnavailable, err)
	}

	sess, err := decode(raw)
	if err != nil {
		glog.Warningf("sessionstore: %s: %v", id, err)
		return nil, err
	}

	if sess.IdleExpired(s.now()) {
		if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
			glog.Warningf("sessionstore: failed to delete expired session %s: %v", id, err)
		}
		glog.V(2).Infof("sessionstore: %s expired on read", id)
		return nil, quiz.ErrSessionNotFound
	}
	return sess, nil
}

func decode(raw []byte) (*quiz.Session, error) {
	var sess quiz.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", quiz.ErrCorruptedSession, err)
	}
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Update writes sess if the stored version still equals sess.Version.
// On success lastActivity is stamped and sess.Version is advanced in place.
// The TTL is the active TTL, or the completed retention once the session
// is completed.
func (s *RedisStore) Update(ctx context.Context, sess *quiz.Session) error {
	defer observe("update", time.Now())

	if err := sess.Validate(); err != nil {
		return err
	}

	next := *sess
	next.LastActivity = s.now()
	next.Version = sess.Version + 1

	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", quiz.ErrPersistFailed, err)
	}

	key := s.key(sess.SessionID)
	ttl := s.ttlFor(&next)

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return quiz.ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		var head struct {
			Version int64 `json:"version"`
		}
		if err := json.Unmarshal(stored, &head); err != nil {
			return fmt.Errorf("%w: decode: %v", quiz.ErrCorruptedSession, err)
		}
		if head.Version != sess.Version {
			return fmt.Errorf("%w: stored version %d, have %d", quiz.ErrConflict, head.Version, sess.Version)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		sess.LastActivity = next.LastActivity
		sess.Version = next.Version
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("%w: %s changed during update", quiz.ErrConflict, sess.SessionID)
	case errors.Is(err, quiz.ErrConflict), errors.Is(err, quiz.ErrSessionNotFound), errors.Is(err, quiz.ErrCorruptedSession):
		return err
	default:
		return fmt.Errorf("%w: %w", quiz.ErrPersistFailed, err)
	}
}

// Delete removes a session. Deleting an absent session is not an error.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	defer observe("delete", time.Now())

	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: delete: %w", quiz.ErrStoreUnavailable, err)
	}
	return nil
}

// ExtendTTL refreshes the TTL and lastActivity of a live session without
// changing its version. Absent or already expired sessions are left alone.
func (s *RedisStore) ExtendTTL(ctx context.Context, id string) error {
	defer observe("extend", time.Now())

	key := s.key(id)
	var err error
	for range extendAttempts {
		err = s.client.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return nil
			}
			if err != nil {
				return err
			}
			var sess quiz.Session
			if err := json.Unmarshal(raw, &sess); err != nil {
				return fmt.Errorf("%w: decode: %v", quiz.ErrCorruptedSession, err)
			}
			now := s.now()
			if sess.IdleExpired(now) {
				return nil
			}
			sess.LastActivity = now
			data, err := json.Marshal(&sess)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, s.ttlFor(&sess))
				return nil
			})
			return err
		}, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("%w: %s kept changing during keep-alive", quiz.ErrConflict, id)
	case errors.Is(err, quiz.ErrCorruptedSession):
		return err
	default:
		return fmt.Errorf("%w: extend: %w", quiz.ErrStoreUnavailable, err)
	}
}

// Expired is the reaper's deletion predicate: active sessions go after
// ActiveTTL of inactivity, completed ones are kept until CompletedTTL. Reads
// apply the idle timeout to every session regardless of completion.
func (s *RedisStore) Expired(sess *quiz.Session, now time.Time) bool {
	return now.Sub(sess.LastActivity) > s.ttlFor(sess)
}

// ScanActive iterates over every stored session. The scan is a
// point-in-time walk that is not atomic with concurrent writes; entries
// that cannot be decoded are skipped. A store failure is yielded once as
// the final element.
func (s *RedisStore) ScanActive(ctx context.Context) iter.Seq2[*quiz.Session, error] {
	return func(yield func(*quiz.Session, error) bool) {
		seen := make(map[string]struct{})
		for keys, err := range s.scanKeys(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}

			vals, err := s.client.MGet(ctx, keys...).Result()
			if err != nil {
				yield(nil, fmt.Errorf("%w: mget: %w", quiz.ErrStoreUnavailable, err))
				return
			}
			for i, v := range vals {
				str, ok := v.(string)
				if !ok {
					continue // deleted since SCAN
				}
				sess, err := decode([]byte(str))
				if err != nil {
					glog.Warningf("sessionstore: skipping %s: %v", keys[i], err)
					continue
				}
				if _, dup := seen[sess.SessionID]; dup {
					continue
				}
				seen[sess.SessionID] = struct{}{}
				if !yield(sess, nil) {
					return
				}
			}
		}
	}
}

// scanKeys yields non-empty pages of keys under the prefix.
func (s *RedisStore) scanKeys(ctx context.Context) iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		var cursor uint64
		for {
			keys, next, err := s.client.Scan(ctx, cursor, s.opts.Prefix+"*", s.opts.ScanCount).Result()
			if err != nil {
				yield(nil, fmt.Errorf("%w: scan: %w", quiz.ErrStoreUnavailable, err))
				return
			}
			if len(keys) > 0 && !yield(keys, nil) {
				return
			}
			cursor = next
			if cursor == 0 {
				return
			}
		}
	}
}

// Count returns the number of keys under the prefix.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	defer observe("count", time.Now())

	seen := make(map[string]struct{})
	for keys, err := range s.scanKeys(ctx) {
		if err != nil {
			return 0, err
		}
		for _, k := range keys {
			seen[k] = struct{}{}
		}
	}
	return len(seen), nil
}

// Stats classifies every stored session. Counts are eventually consistent.
func (s *RedisStore) Stats(ctx context.Context) (quiz.Stats, error) {
	defer observe("stats", time.Now())

	var st quiz.Stats
	now := s.now()
	for sess, err := range s.ScanActive(ctx) {
		if err != nil {
			return quiz.Stats{}, err
		}
		st.Total++
		switch {
		case sess.Completed:
			st.Completed++
		case sess.IdleExpired(now):
			st.Expired++
		default:
			st.Active++
		}
	}
	return st, nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", quiz.ErrStoreUnavailable, err)
	}
	return nil
}
