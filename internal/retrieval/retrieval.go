// Package retrieval looks up reference material for question generation.
//
// Chunks of ingested documents are stored with an embedding vector. A query
// is embedded with the same model and ranked against the stored vectors by
// cosine similarity.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"
)

// Chunk is one stored slice of a reference document.
type Chunk struct {
	ID        string    `bson:"_id" json:"id"`
	Content   string    `bson:"content" json:"content"`
	Source    string    `bson:"source" json:"source"`
	Language  string    `bson:"language" json:"language"`
	Index     int       `bson:"chunk_index" json:"chunkIndex"`
	Total     int       `bson:"total_chunks" json:"totalChunks"`
	Vector    []float32 `bson:"vector" json:"-"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`

	// Score is the similarity to the query. Only set on search results.
	Score float64 `bson:"-" json:"score,omitempty"`
}

// Retriever returns the chunks most similar to a query.
type Retriever interface {
	// Retrieve returns at most topK chunks whose similarity is at least
	// threshold, most similar first.
	Retrieve(ctx context.Context, query string, topK int, threshold float64) ([]Chunk, error)
}

// Embedder turns text into vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkStore persists chunks and their vectors.
type ChunkStore interface {
	Upsert(ctx context.Context, chunks []Chunk) error
	All(ctx context.Context) ([]Chunk, error)
	Count(ctx context.Context) (int64, error)
}

// VectorRetriever ranks every stored chunk against the embedded query.
type VectorRetriever struct {
	embedder Embedder
	store    ChunkStore
}

// NewVectorRetriever creates a Retriever over the given store.
func NewVectorRetriever(embedder Embedder, store ChunkStore) *VectorRetriever {
	return &VectorRetriever{embedder: embedder, store: store}
}

// Retrieve implements Retriever.
func (r *VectorRetriever) Retrieve(ctx context.Context, query string, topK int, threshold float64) ([]Chunk, error) {
	if topK <= 0 {
		return nil, nil
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vectors))
	}

	chunks, err := r.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}

	return rank(vectors[0], chunks, topK, threshold), nil
}

func rank(query []float32, chunks []Chunk, topK int, threshold float64) []Chunk {
	scored := make([]Chunk, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Vector) == 0 {
			continue
		}
		score := CosineSimilarity(query, c.Vector)
		if score < threshold {
			continue
		}
		c.Score = score
		scored = append(scored, c)
	}

	slices.SortStableFunc(scored, func(a, b Chunk) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when the lengths differ or either vector is zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
