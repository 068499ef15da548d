package quiz

import "errors"

var (
	// ErrSessionNotFound means the id was never issued or the session expired.
	ErrSessionNotFound = errors.New("quiz session not found or expired")

	// ErrCorruptedSession means a stored session violates an invariant, for
	// example an answer arrived with no pending question.
	ErrCorruptedSession = errors.New("quiz session is corrupted")

	// ErrStoreUnavailable means the session store could not be reached.
	ErrStoreUnavailable = errors.New("session store unavailable")

	// ErrPersistFailed means a write was not acknowledged by the store.
	ErrPersistFailed = errors.New("failed to persist quiz session")

	// ErrConflict means the session changed since it was read.
	ErrConflict = errors.New("quiz session was modified concurrently")

	ErrInvalidDifficulty = errors.New("invalid difficulty")
	ErrInvalidAnswer     = errors.New("answer must be one of A, B, C, D")
)
