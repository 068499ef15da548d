package retrieval

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/golang/glog"
)

// IngestConfig controls how documents are split and stored.
type IngestConfig struct {
	ChunkSize    int
	ChunkOverlap int
	// BatchSize is the number of chunks embedded and upserted per round trip.
	BatchSize int
}

// DefaultIngestConfig returns 800-rune chunks with 100 runes of overlap in
// batches of 50.
func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
		BatchSize:    50,
	}
}

// Ingester splits documents, embeds the pieces and stores them.
type Ingester struct {
	embedder Embedder
	store    ChunkStore
	config   IngestConfig
	now      func() time.Time
}

// NewIngester creates an Ingester.
func NewIngester(embedder Embedder, store ChunkStore, cfg IngestConfig) *Ingester {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultIngestConfig().BatchSize
	}
	return &Ingester{embedder: embedder, store: store, config: cfg, now: time.Now}
}

// Ingest stores text under the given source name and returns the number of
// chunks written. Re-ingesting a source overwrites chunks with the same index.
func (in *Ingester) Ingest(ctx context.Context, source, text string) (int, error) {
	pieces := SplitIntoChunks(text, in.config.ChunkSize, in.config.ChunkOverlap)
	if len(pieces) == 0 {
		return 0, nil
	}

	base := filepath.Base(source)
	language := LanguageFromFilename(base)
	created := in.now().UTC()

	written := 0
	for start := 0; start < len(pieces); start += in.config.BatchSize {
		end := min(start+in.config.BatchSize, len(pieces))
		batch := pieces[start:end]

		vectors, err := in.embedder.Embed(ctx, batch)
		if err != nil {
			return written, fmt.Errorf("embed %s chunks %d-%d: %w", base, start, end-1, err)
		}
		if len(vectors) != len(batch) {
			return written, fmt.Errorf("embed %s: got %d vectors for %d chunks", base, len(vectors), len(batch))
		}

		chunks := make([]Chunk, len(batch))
		for i, content := range batch {
			idx := start + i
			chunks[i] = Chunk{
				ID:        fmt.Sprintf("%s_chunk_%d", base, idx),
				Content:   content,
				Source:    base,
				Language:  language,
				Index:     idx,
				Total:     len(pieces),
				Vector:    vectors[i],
				CreatedAt: created,
			}
		}
		if err := in.store.Upsert(ctx, chunks); err != nil {
			return written, err
		}
		written += len(chunks)
		glog.V(2).Infof("ingest %s: stored chunks %d-%d of %d", base, start+1, end, len(pieces))
	}

	glog.Infof("ingested %s: %d chunks (language %s)", base, written, language)
	return written, nil
}
