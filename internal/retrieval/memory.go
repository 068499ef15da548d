package retrieval

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore is an in-process ChunkStore. It backs tests and runs where
// no MongoDB is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks map[string]Chunk
	order  []string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chunks: make(map[string]Chunk)}
}

func (m *MemoryStore) Upsert(_ context.Context, chunks []Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		if _, ok := m.chunks[c.ID]; !ok {
			m.order = append(m.order, c.ID)
		}
		c.Vector = slices.Clone(c.Vector)
		m.chunks[c.ID] = c
	}
	return nil
}

func (m *MemoryStore) All(_ context.Context) ([]Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Chunk, 0, len(m.order))
	for _, id := range m.order {
		if c := m.chunks[id]; len(c.Vector) > 0 {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemoryStore) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.chunks)), nil
}
