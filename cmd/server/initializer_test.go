package main

import (
	"testing"

	"codegraph/internal/storage"
)

func TestInitializeServerDefaults(t *testing.T) {
	comps, err := InitializeServer()
	if err != nil {
		t.Fatalf("InitializeServer() failed: %v", err)
	}
	defer func() {
		if err := comps.Cleanup(); err != nil {
			t.Errorf("Cleanup() failed: %v", err)
		}
	}()

	if comps.Entities == nil {
		t.Error("Entities repository not initialized")
	}
	if comps.Vector == nil {
		t.Error("Vector repository not initialized")
	}
	if comps.FeedbackLog == nil {
		t.Error("FeedbackLog not initialized")
	}
	if comps.Embedder == nil {
		t.Error("Embedder not initialized")
	}
	if comps.Translator == nil {
		t.Error("Translator not initialized")
	}
	if comps.Retriever == nil {
		t.Error("Retriever not initialized")
	}
	if comps.Propagator == nil {
		t.Error("Propagator not initialized")
	}
	if comps.Core == nil {
		t.Error("Core not initialized")
	}

	// Without CODEGRAPH_NEO4J_URI, the graph repository falls back to an
	// in-memory implementation rather than staying nil.
	if comps.Graph == nil {
		t.Error("Graph repository should fall back to an in-memory implementation without CODEGRAPH_NEO4J_URI")
	}
	if comps.Reasoner != nil {
		t.Error("Reasoner client should be nil when CODEGRAPH_REASONER_ENABLED is unset")
	}
}

func TestInitializeServerCleanupIsIdempotent(t *testing.T) {
	comps, err := InitializeServer()
	if err != nil {
		t.Fatalf("InitializeServer() failed: %v", err)
	}
	if err := comps.Cleanup(); err != nil {
		t.Errorf("Cleanup() failed: %v", err)
	}
	if err := comps.Cleanup(); err != nil {
		t.Errorf("second Cleanup() failed: %v", err)
	}
}

func TestServerComponentsNilCleanup(t *testing.T) {
	comps := &ServerComponents{}
	if err := comps.Cleanup(); err != nil {
		t.Errorf("Cleanup on a zero-value ServerComponents should not error, got: %v", err)
	}
}

func TestInitializeServerUsesSQLiteFeedbackLogWhenConfigured(t *testing.T) {
	t.Setenv("CODEGRAPH_SQLITE_PATH", t.TempDir()+"/feedback.db")

	comps, err := InitializeServer()
	if err != nil {
		t.Fatalf("InitializeServer() failed: %v", err)
	}
	defer comps.Cleanup()

	if _, ok := comps.FeedbackLog.(*storage.SQLiteFeedbackLog); !ok {
		t.Errorf("FeedbackLog = %T, want *storage.SQLiteFeedbackLog when CODEGRAPH_SQLITE_PATH is set", comps.FeedbackLog)
	}
}
