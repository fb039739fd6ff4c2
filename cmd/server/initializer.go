package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"codegraph/internal/config"
	"codegraph/internal/embeddings"
	"codegraph/internal/feedback"
	"codegraph/internal/knowledge"
	"codegraph/internal/reasoner"
	"codegraph/internal/retrieval"
	"codegraph/internal/server"
	"codegraph/internal/storage"
	"codegraph/internal/translate"
)

// ServerComponents holds every initialized component so main can register
// tools and InitializeServer can be exercised independently in tests.
type ServerComponents struct {
	Config      *config.Config
	Log         *zap.Logger
	Entities    storage.EntityRepository
	Graph       knowledge.GraphRepository
	Vector      knowledge.VectorRepository
	FeedbackLog storage.FeedbackLog
	Embedder    embeddings.Embedder
	Reasoner    *reasoner.Client
	Translator  *translate.Translator
	Retriever   *retrieval.Retriever
	Propagator  *feedback.Propagator
	Core        *server.Core

	closers []func() error
}

// Cleanup releases every resource opened during initialization, in reverse
// acquisition order.
func (c *ServerComponents) Cleanup() error {
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// InitializeServer wires every component from environment configuration.
// Extracted from main so tests can exercise it without a live stdio
// transport. When their environment variables are unset, the graph and vector
// repositories fall back to in-memory implementations. The external reasoner
// client is created only when CODEGRAPH_REASONER_ENABLED is true; otherwise it
// is left nil and the HybridRetriever runs without its symbolic channel, per
// spec.md §4.5/§5's degradation rules.
func InitializeServer() (*ServerComponents, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	comps := &ServerComponents{Config: cfg, Log: log}
	comps.closers = append(comps.closers, func() error { return log.Sync() })

	comps.Entities = storage.NewInMemoryEntityRepository()

	comps.FeedbackLog, err = initFeedbackLog(log, comps)
	if err != nil {
		return nil, err
	}

	comps.Vector, err = initVectorRepository(cfg, log)
	if err != nil {
		return nil, err
	}

	comps.Graph, err = initGraphRepository(log, comps)
	if err != nil {
		return nil, err
	}

	comps.Embedder = initEmbedder(cfg)

	if cfg.Reasoner.Enabled {
		comps.Reasoner = reasoner.New(reasoner.Config{
			Host:                    cfg.Reasoner.Host,
			Port:                    cfg.Reasoner.Port,
			InferenceCycles:         cfg.Reasoner.InferenceCycles,
			InferenceTimeout:        time.Duration(cfg.Reasoner.InferenceTimeoutMS) * time.Millisecond,
			CircuitBreakerThreshold: cfg.Reasoner.CircuitBreakerThreshold,
			CircuitResetTimeout:     time.Duration(cfg.Reasoner.CircuitResetMS) * time.Millisecond,
		}, log)
		log.Info("reasoner client configured", zap.String("host", cfg.Reasoner.Host), zap.Int("port", cfg.Reasoner.Port))
	} else {
		log.Info("reasoner disabled, symbolic retrieval channel is skipped")
	}

	comps.Translator = translate.New(comps.Embedder, translate.Mode(cfg.Translator.Mode), cfg.Reasoner.InferenceCycles)
	comps.Retriever = retrieval.New(comps.Vector, comps.Graph, comps.Reasoner, comps.Entities, cfg.Fusion, cfg.Retrieval)
	comps.Propagator = feedback.New(comps.Entities, comps.Graph, comps.FeedbackLog, cfg.Feedback)
	comps.Core = server.New(comps.Entities, comps.Graph, comps.Translator, comps.Retriever, comps.Propagator, comps.Reasoner, log)

	return comps, nil
}

func newLogger(level string) (*zap.Logger, error) {
	if os.Getenv("DEBUG") == "true" || level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// initFeedbackLog uses a durable SQLite audit log when CODEGRAPH_SQLITE_PATH
// is set, otherwise an in-memory log suitable for local development and
// tests.
func initFeedbackLog(log *zap.Logger, comps *ServerComponents) (storage.FeedbackLog, error) {
	path := os.Getenv("CODEGRAPH_SQLITE_PATH")
	if path == "" {
		log.Info("CODEGRAPH_SQLITE_PATH not set, feedback audit log is in-memory only")
		return storage.NewInMemoryFeedbackLog(), nil
	}
	l, err := storage.NewSQLiteFeedbackLog(path, 5000)
	if err != nil {
		return nil, fmt.Errorf("open sqlite feedback log: %w", err)
	}
	comps.closers = append(comps.closers, l.Close)
	log.Info("feedback audit log backed by sqlite", zap.String("path", path))
	return l, nil
}

// initVectorRepository opens a chromem-go collection, persisted to disk when
// CODEGRAPH_VECTOR_PATH is set.
func initVectorRepository(cfg *config.Config, log *zap.Logger) (knowledge.VectorRepository, error) {
	path := os.Getenv("CODEGRAPH_VECTOR_PATH")
	repo, err := knowledge.NewChromemVectorRepository(path, cfg.EmbeddingDimension)
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}
	if path == "" {
		log.Info("vector store is in-memory only (CODEGRAPH_VECTOR_PATH unset)")
	} else {
		log.Info("vector store persisted to disk", zap.String("path", path))
	}
	return repo, nil
}

// initGraphRepository dials Neo4j when CODEGRAPH_NEO4J_URI is set. Without
// it, falls back to an in-memory, single-process graph repository so the
// graph channel and graph-structural feedback propagation still work for
// local development, at the cost of persistence across restarts.
func initGraphRepository(log *zap.Logger, comps *ServerComponents) (knowledge.GraphRepository, error) {
	uri := os.Getenv("CODEGRAPH_NEO4J_URI")
	if uri == "" {
		log.Info("CODEGRAPH_NEO4J_URI not set, graph repository is in-memory only")
		return knowledge.NewInMemoryGraphRepository(), nil
	}
	repo, err := knowledge.NewNeo4jGraphRepository(knowledge.Neo4jConfig{
		URI:      uri,
		Username: os.Getenv("CODEGRAPH_NEO4J_USERNAME"),
		Password: os.Getenv("CODEGRAPH_NEO4J_PASSWORD"),
		Database: os.Getenv("CODEGRAPH_NEO4J_DATABASE"),
		Timeout:  5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to neo4j: %w", err)
	}
	comps.closers = append(comps.closers, func() error {
		return repo.Close(context.Background())
	})
	log.Info("graph repository connected", zap.String("uri", uri))
	return repo, nil
}

// initEmbedder returns a deterministic offline embedder wrapped in an LRU
// cache. spec.md treats the embedding model as pluggable infrastructure
// (§9 Open Question); no hosted embedding API is wired in this build.
func initEmbedder(cfg *config.Config) embeddings.Embedder {
	base := embeddings.NewDeterministicEmbedder(cfg.EmbeddingDimension)
	return embeddings.NewCachedEmbedder(base, 10000, 30*time.Minute)
}
