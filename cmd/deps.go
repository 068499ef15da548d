package cmd

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/abhisek/codequiz/internal/config"
	"github.com/abhisek/codequiz/internal/llm"
	"github.com/abhisek/codequiz/internal/questiongen"
	"github.com/abhisek/codequiz/internal/retrieval"
	"github.com/abhisek/codequiz/internal/sessionstore"
	"github.com/abhisek/codequiz/internal/store"
)

// openSessionStore dials Redis and wraps it in the session store.
func openSessionStore(ctx context.Context, cfg *config.Config) (*redis.Client, *sessionstore.RedisStore, error) {
	dialCtx, cancel := context.WithTimeout(ctx, cfg.Redis.DialTimeout)
	defer cancel()

	client, err := sessionstore.Dial(dialCtx, sessionstore.RedisConfig{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: cfg.Redis.DialTimeout,
	})
	if err != nil {
		return nil, nil, err
	}

	sessions := sessionstore.New(client, sessionstore.Options{
		Prefix:       cfg.Redis.Prefix,
		CompletedTTL: cfg.Redis.CompletedTTL,
	})
	return client, sessions, nil
}

// openAuditStore opens the SQLite LLM audit log.
func openAuditStore(cmd *cobra.Command) (*store.Store, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}

// connectChunkStore connects to the reference-material collection.
func connectChunkStore(ctx context.Context, cfg config.RetrievalConfig) (*mongo.Client, *retrieval.MongoChunkStore, error) {
	client, err := retrieval.Connect(ctx, retrieval.MongoConfig{
		URI:            cfg.MongoURI,
		Database:       cfg.MongoDatabase,
		Collection:     cfg.MongoCollection,
		ConnectTimeout: cfg.MongoTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	return client, retrieval.NewMongoChunkStore(client.Database(cfg.MongoDatabase), cfg.MongoCollection), nil
}

// buildGenerator assembles the question generator. A missing LLM provider or
// retrieval backend degrades to fallback questions or context-free prompts.
// The returned cleanup releases the retrieval connection.
func buildGenerator(ctx context.Context, cfg *config.Config, audit store.AuditRepo) (*questiongen.Generator, func()) {
	cleanup := func() {}

	var source questiongen.Source
	llmCfg := llm.ConfigFromEnv()
	if err := llmCfg.Validate(); err != nil {
		glog.Warningf("LLM provider not configured: %v; serving fallback questions only", err)
	} else if provider, err := llm.NewProvider(ctx, llmCfg, audit); err != nil {
		glog.Warningf("LLM provider unavailable: %v; serving fallback questions only", err)
	} else {
		glog.Infof("question source: %s (%s)", provider.Name(), provider.ModelID())
		source = questiongen.NewLLMSource(provider, questiongen.DefaultSourceConfig())
	}

	var retriever retrieval.Retriever
	if cfg.Retrieval.Enabled() {
		client, chunks, err := connectChunkStore(ctx, cfg.Retrieval)
		if err != nil {
			glog.Warningf("reference retrieval disabled: %v", err)
		} else {
			embedder := retrieval.NewOpenAIEmbedder(cfg.Retrieval.EmbeddingAPIKey, cfg.Retrieval.EmbeddingBaseURL, cfg.Retrieval.EmbeddingModel)
			retriever = retrieval.NewVectorRetriever(embedder, chunks)
			cleanup = func() {
				if err := client.Disconnect(context.Background()); err != nil {
					glog.Warningf("disconnect mongodb: %v", err)
				}
			}
			glog.Infof("reference retrieval enabled: %s/%s", cfg.Retrieval.MongoDatabase, cfg.Retrieval.MongoCollection)
		}
	}

	genCfg := questiongen.DefaultConfig()
	genCfg.Timeout = cfg.Quiz.GenerationTimeout
	genCfg.RetrievalTimeout = cfg.Quiz.RetrievalTimeout
	genCfg.TopK = cfg.Quiz.RetrievalTopK
	genCfg.Threshold = cfg.Quiz.RetrievalThreshold
	genCfg.ContextChars = cfg.Quiz.ContextChars

	return questiongen.New(source, retriever, genCfg), cleanup
}
