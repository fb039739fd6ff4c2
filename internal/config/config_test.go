package config_test

import (
	"os"
	"testing"

	"codegraph/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() config should validate: %v", err)
	}
}

func TestFusionNormalized(t *testing.T) {
	f := config.FusionConfig{VectorWeight: 2, GraphWeight: 1, NarsWeight: 1}
	n := f.Normalized()
	sum := n.VectorWeight + n.GraphWeight + n.NarsWeight
	if sum < 0.999 || sum > 1.001 {
		t.Fatalf("normalized weights should sum to 1, got %v", sum)
	}
	if n.VectorWeight != 0.5 {
		t.Fatalf("VectorWeight = %v, want 0.5", n.VectorWeight)
	}
}

func TestValidateRejectsNegativeWeights(t *testing.T) {
	cfg := config.Default()
	cfg.Fusion.VectorWeight = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative weight")
	}
}

func TestValidateRejectsZeroSumWeights(t *testing.T) {
	cfg := config.Default()
	cfg.Fusion = config.FusionConfig{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for all-zero weights")
	}
}

func TestLoadFromEnvOverride(t *testing.T) {
	t.Setenv("CODEGRAPH_REASONER_PORT", "9100")
	t.Setenv("CODEGRAPH_TRANSLATOR_MODE", "llm")
	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv returned error: %v", err)
	}
	if cfg.Reasoner.Port != 9100 {
		t.Fatalf("Reasoner.Port = %d, want 9100", cfg.Reasoner.Port)
	}
	if cfg.Translator.Mode != config.TranslatorLLM {
		t.Fatalf("Translator.Mode = %q, want llm", cfg.Translator.Mode)
	}
	os.Unsetenv("CODEGRAPH_REASONER_PORT")
	os.Unsetenv("CODEGRAPH_TRANSLATOR_MODE")
}
