// Package config provides configuration management for the CodeGraph core.
//
// Configuration is read once at process start (environment variables override
// defaults) and is treated as an immutable snapshot thereafter; a reload
// requires a controlled restart or a dedicated atomic-swap operation — no
// component mutates a *Config in place after Load returns.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config is the complete, immutable configuration snapshot for the core.
type Config struct {
	Fusion     FusionConfig
	Retrieval  RetrievalConfig
	Reasoner   ReasonerConfig
	Feedback   FeedbackConfig
	Translator TranslatorConfig

	// EmbeddingDimension is fixed at service start (Open Question in
	// spec.md §9): vectors of any other dimension are rejected.
	EmbeddingDimension int

	RequestDeadlineMS int
	LogLevel          string
}

// FusionConfig holds the HybridRetriever's channel weights.
type FusionConfig struct {
	VectorWeight float64
	GraphWeight  float64
	NarsWeight   float64
}

// Normalized returns the weights scaled to sum to 1. It is applied to the
// configured weights; the per-request renormalisation over the remaining
// healthy channels is done by the retriever itself.
func (f FusionConfig) Normalized() FusionConfig {
	sum := f.VectorWeight + f.GraphWeight + f.NarsWeight
	if sum <= 0 {
		return FusionConfig{}
	}
	return FusionConfig{
		VectorWeight: f.VectorWeight / sum,
		GraphWeight:  f.GraphWeight / sum,
		NarsWeight:   f.NarsWeight / sum,
	}
}

// RetrievalConfig holds HybridRetriever tuning knobs.
type RetrievalConfig struct {
	PerChannelTimeoutMS int
	Overscan            int
	DefaultLimit        int
}

// ReasonerConfig holds ReasonerClient tuning knobs.
type ReasonerConfig struct {
	Enabled                bool
	Host                   string
	Port                   int
	InferenceCycles        int
	TimestepNS             int64
	InferenceTimeoutMS     int
	CircuitBreakerThreshold int
	CircuitResetMS         int
}

// FeedbackConfig holds FeedbackPropagator tuning knobs.
type FeedbackConfig struct {
	PositiveConfidence  float64
	NegativeConfidence  float64
	SimilarAttenuation  float64
	ReplaceAttenuation  float64
	MaxDepth            int
	MaxRetries          int
}

// TranslatorMode selects the QueryTranslator strategy.
type TranslatorMode string

const (
	TranslatorLLM     TranslatorMode = "llm"
	TranslatorOffline TranslatorMode = "offline"
)

// TranslatorConfig holds QueryTranslator tuning knobs.
type TranslatorConfig struct {
	Mode TranslatorMode
}

// Default returns the configuration described by spec.md §6/§9, before any
// environment override is applied.
func Default() *Config {
	return &Config{
		Fusion: FusionConfig{
			VectorWeight: 0.4,
			GraphWeight:  0.3,
			NarsWeight:   0.3,
		},
		Retrieval: RetrievalConfig{
			PerChannelTimeoutMS: 500,
			Overscan:            4,
			DefaultLimit:        10,
		},
		Reasoner: ReasonerConfig{
			Enabled:                 false,
			Host:                    "127.0.0.1",
			Port:                    9000,
			InferenceCycles:         100,
			TimestepNS:              1_000_000,
			InferenceTimeoutMS:      200,
			CircuitBreakerThreshold: 5,
			CircuitResetMS:          30_000,
		},
		Feedback: FeedbackConfig{
			PositiveConfidence: 0.9,
			NegativeConfidence: 0.9,
			SimilarAttenuation: 0.5,
			ReplaceAttenuation: 0.3,
			MaxDepth:           2,
			MaxRetries:         3,
		},
		Translator: TranslatorConfig{
			Mode: TranslatorOffline,
		},
		EmbeddingDimension: 1536,
		RequestDeadlineMS:  2000,
		LogLevel:           "info",
	}
}

// LoadFromEnv starts from Default() and applies CODEGRAPH_-prefixed
// environment variable overrides, validating the result.
func LoadFromEnv() (*Config, error) {
	cfg := Default()

	overrideFloat(&cfg.Fusion.VectorWeight, "CODEGRAPH_FUSION_VECTOR_WEIGHT")
	overrideFloat(&cfg.Fusion.GraphWeight, "CODEGRAPH_FUSION_GRAPH_WEIGHT")
	overrideFloat(&cfg.Fusion.NarsWeight, "CODEGRAPH_FUSION_NARS_WEIGHT")

	overrideInt(&cfg.Retrieval.PerChannelTimeoutMS, "CODEGRAPH_RETRIEVAL_PER_CHANNEL_TIMEOUT_MS")
	overrideInt(&cfg.Retrieval.Overscan, "CODEGRAPH_RETRIEVAL_OVERSCAN")
	overrideInt(&cfg.Retrieval.DefaultLimit, "CODEGRAPH_RETRIEVAL_DEFAULT_LIMIT")

	overrideBool(&cfg.Reasoner.Enabled, "CODEGRAPH_REASONER_ENABLED")
	overrideString(&cfg.Reasoner.Host, "CODEGRAPH_REASONER_HOST")
	overrideInt(&cfg.Reasoner.Port, "CODEGRAPH_REASONER_PORT")
	overrideInt(&cfg.Reasoner.InferenceCycles, "CODEGRAPH_REASONER_INFERENCE_CYCLES")
	overrideInt(&cfg.Reasoner.InferenceTimeoutMS, "CODEGRAPH_REASONER_INFERENCE_TIMEOUT_MS")
	overrideInt(&cfg.Reasoner.CircuitBreakerThreshold, "CODEGRAPH_REASONER_CIRCUIT_BREAKER_THRESHOLD")
	overrideInt(&cfg.Reasoner.CircuitResetMS, "CODEGRAPH_REASONER_CIRCUIT_RESET_MS")

	if v := os.Getenv("CODEGRAPH_TRANSLATOR_MODE"); v != "" {
		cfg.Translator.Mode = TranslatorMode(v)
	}

	overrideInt(&cfg.EmbeddingDimension, "CODEGRAPH_EMBEDDING_DIMENSION")
	overrideInt(&cfg.RequestDeadlineMS, "CODEGRAPH_REQUEST_DEADLINE_MS")
	overrideString(&cfg.LogLevel, "CODEGRAPH_LOG_LEVEL")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration-surface constraints from spec.md §6.
func (c *Config) Validate() error {
	if c.Fusion.VectorWeight < 0 || c.Fusion.GraphWeight < 0 || c.Fusion.NarsWeight < 0 {
		return fmt.Errorf("fusion weights must be non-negative")
	}
	if c.Fusion.VectorWeight+c.Fusion.GraphWeight+c.Fusion.NarsWeight <= 0 {
		return fmt.Errorf("fusion weights must sum to more than zero")
	}
	if c.EmbeddingDimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}
	if c.Translator.Mode != TranslatorLLM && c.Translator.Mode != TranslatorOffline {
		return fmt.Errorf("translator mode must be %q or %q", TranslatorLLM, TranslatorOffline)
	}
	c.Fusion = c.Fusion.Normalized()
	return nil
}

func overrideFloat(dst *float64, env string) {
	if v := os.Getenv(env); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func overrideInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

func overrideBool(dst *bool, env string) {
	if v := os.Getenv(env); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func overrideString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}
