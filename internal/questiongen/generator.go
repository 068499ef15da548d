package questiongen

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/abhisek/codequiz/internal/metrics"
	"github.com/abhisek/codequiz/internal/quiz"
	"github.com/abhisek/codequiz/internal/retrieval"
)

const (
	sourceLLM      = "llm"
	sourceFallback = "fallback"
)

var errNoSource = errors.New("no question source configured")

// Generator produces numbered quiz questions. It never fails: any source
// error, timeout or invalid draft yields the language's fallback question.
type Generator struct {
	source    Source
	retriever retrieval.Retriever
	config    Config

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Generator. retriever may be nil, in which case prompts carry
// no reference material.
func New(source Source, retriever retrieval.Retriever, cfg Config) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Generator{
		source:    source,
		retriever: retriever,
		config:    cfg,
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Generate returns question number n for the language and difficulty.
func (g *Generator) Generate(ctx context.Context, language string, difficulty quiz.Difficulty, n int) quiz.Question {
	start := time.Now()

	topic, wantCode := g.pick(language)
	req := Request{
		Language:   language,
		Topic:      topic.Name,
		Difficulty: difficulty,
		WantCode:   wantCode,
		Context:    g.lookupContext(ctx, topic.Name, language),
	}

	glog.V(2).Infof("generating %s question %d: topic=%q code=%t", language, n, topic.Name, wantCode)

	q, err := g.draft(ctx, req, n)
	if err != nil {
		glog.Warningf("question generation for %s failed, using fallback: %v", language, err)
		q = Fallback(language, n)
		observe(sourceFallback, start)
		return q
	}

	observe(sourceLLM, start)
	return q
}

func (g *Generator) draft(ctx context.Context, req Request, n int) (quiz.Question, error) {
	if g.source == nil {
		return quiz.Question{}, errNoSource
	}

	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	d, err := g.source.GenerateQuestion(ctx, req)
	if err != nil {
		return quiz.Question{}, err
	}

	q := d.ToQuestion(n)
	if err := q.Validate(); err != nil {
		return quiz.Question{}, err
	}
	return q, nil
}

// pick draws a topic uniformly and decides whether to ask for code.
func (g *Generator) pick(language string) (quiz.Topic, bool) {
	topics := quiz.TopicsFor(language)

	g.mu.Lock()
	defer g.mu.Unlock()
	t := topics[g.rng.IntN(len(topics))]
	return t, g.rng.Float64() < t.CodeProb
}

// lookupContext fetches reference material for the topic. Errors are logged
// and yield an empty context.
func (g *Generator) lookupContext(ctx context.Context, topic, language string) string {
	if g.retriever == nil {
		return ""
	}

	if g.config.RetrievalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.RetrievalTimeout)
		defer cancel()
	}

	query := topic + " " + language + " programming"
	chunks, err := g.retriever.Retrieve(ctx, query, g.config.TopK, g.config.Threshold)
	if err != nil {
		glog.Warningf("could not get context for topic %q in %s: %v", topic, language, err)
		return ""
	}
	if len(chunks) == 0 {
		return ""
	}
	return referenceContext(chunks[0].Content, g.config.ContextChars)
}

func observe(source string, start time.Time) {
	metrics.QuestionsGenerated.WithLabelValues(source).Inc()
	metrics.GenerationDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
}
