package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keywordEmbedder maps text onto fixed axes by keyword presence.
type keywordEmbedder struct {
	axes  []string
	calls int
	err   error
}

func (k *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	k.calls++
	if k.err != nil {
		return nil, k.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, len(k.axes))
		lower := strings.ToLower(t)
		for j, a := range k.axes {
			if strings.Contains(lower, a) {
				v[j] = 1
			}
		}
		out[i] = v
	}
	return out, nil
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
	assert.Zero(t, CosineSimilarity(nil, nil))
}

func TestVectorRetriever_RanksAndFilters(t *testing.T) {
	ctx := context.Background()
	emb := &keywordEmbedder{axes: []string{"closure", "kotlin", "rust"}}
	store := NewMemoryStore()
	require.NoError(t, store.Upsert(ctx, []Chunk{
		{ID: "a", Content: "kotlin closure capture", Vector: []float32{1, 1, 0}},
		{ID: "b", Content: "rust ownership", Vector: []float32{0, 0, 1}},
		{ID: "c", Content: "kotlin coroutines", Vector: []float32{0, 1, 0}},
		{ID: "d", Content: "no vector"},
	}))

	r := NewVectorRetriever(emb, store)
	got, err := r.Retrieve(ctx, "closure kotlin programming", 2, 0.5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
	assert.Greater(t, got[0].Score, got[1].Score)

	got, err = r.Retrieve(ctx, "closure kotlin programming", 5, 0.99)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)

	got, err = r.Retrieve(ctx, "anything", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestVectorRetriever_EmbedError(t *testing.T) {
	emb := &keywordEmbedder{err: errors.New("boom")}
	r := NewVectorRetriever(emb, NewMemoryStore())
	_, err := r.Retrieve(context.Background(), "q", 2, 0.5)
	assert.Error(t, err)
}

func TestSplitIntoChunks(t *testing.T) {
	assert.Empty(t, SplitIntoChunks("   ", 800, 100))
	assert.Equal(t, []string{"short text"}, SplitIntoChunks("short text", 800, 100))

	text := strings.Repeat("word ", 400) // 2000 runes
	chunks := SplitIntoChunks(text, 800, 100)
	require.GreaterOrEqual(t, len(chunks), 3)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 800)
		assert.False(t, strings.HasPrefix(c, "ord"), "chunk should start on a word boundary")
	}

	// Consecutive chunks share text because of the overlap.
	tail := chunks[0][len(chunks[0])-20:]
	assert.Contains(t, chunks[1], strings.TrimSpace(tail))

	// No whitespace: hard cuts, still bounded and overlapping.
	solid := strings.Repeat("x", 1000)
	chunks = SplitIntoChunks(solid, 400, 50)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 400)

	// Invalid overlap is ignored rather than looping forever.
	assert.Len(t, SplitIntoChunks(solid, 500, 500), 2)
}

func TestLanguageFromFilename(t *testing.T) {
	assert.Equal(t, "javascript", LanguageFromFilename("JavaScript-Guide.pdf"))
	assert.Equal(t, "java", LanguageFromFilename("spring-in-action.txt"))
	assert.Equal(t, "kotlin", LanguageFromFilename("android_basics.md"))
	assert.Equal(t, "go", LanguageFromFilename("golang-spec.md"))
	assert.Equal(t, "general", LanguageFromFilename("notes.txt"))
}

func TestIngester(t *testing.T) {
	ctx := context.Background()
	emb := &keywordEmbedder{axes: []string{"kotlin", "closure"}}
	store := NewMemoryStore()
	in := NewIngester(emb, store, IngestConfig{ChunkSize: 100, ChunkOverlap: 10, BatchSize: 2})

	text := strings.Repeat("kotlin closure example text ", 20)
	n, err := in.Ingest(ctx, "/docs/kotlin-guide.md", text)
	require.NoError(t, err)
	assert.Greater(t, n, 2)
	assert.Equal(t, (n+1)/2, emb.calls)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(n), count)

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, "kotlin-guide.md_chunk_0", all[0].ID)
	assert.Equal(t, "kotlin", all[0].Language)
	assert.Equal(t, n, all[0].Total)

	// Re-ingesting overwrites rather than duplicating.
	_, err = in.Ingest(ctx, "kotlin-guide.md", text)
	require.NoError(t, err)
	count, _ = store.Count(ctx)
	assert.Equal(t, int64(n), count)

	n, err = in.Ingest(ctx, "empty.md", "  ")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpenAIEmbedder(t *testing.T) {
	var gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotModel = body.Model

		// Return data out of order to check index handling.
		data := make([]map[string]any, 0, len(body.Input))
		for i := len(body.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float32{float32(i), 1},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  body.Model,
			"usage":  map[string]any{"prompt_tokens": 4, "total_tokens": 4},
		})
	}))
	defer server.Close()

	e := NewOpenAIEmbedder("test-key", server.URL+"/v1", "")
	vectors, err := e.Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, DefaultEmbeddingModel, gotModel)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0, 1}, vectors[0])
	assert.Equal(t, []float32{1, 1}, vectors[1])

	vectors, err = e.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}
