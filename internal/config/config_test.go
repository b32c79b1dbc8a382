package config

import "testing"

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Config{HTTP: HTTPConfig{Port: 0}}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_RerankExceedsMerge(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{Port: 8080},
		Retrieval: RetrievalConfig{RerankTopK: 10, MergeTopK: 5},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error when rerank_top_k exceeds merge_top_k")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected Port=8080, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 120 {
		t.Errorf("expected WriteTimeoutSec=120, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Index.SnapshotPath != "data/vector-store.json" {
		t.Errorf("expected default snapshot path, got %q", cfg.Index.SnapshotPath)
	}
	if cfg.Index.ParentMinChars != 400 || cfg.Index.ParentMaxChars != 1200 {
		t.Errorf("expected parent bounds 400/1200, got %d/%d", cfg.Index.ParentMinChars, cfg.Index.ParentMaxChars)
	}
	if cfg.Index.ChildChars != 150 || cfg.Index.ChildStride != 120 {
		t.Errorf("expected child window 150/120, got %d/%d", cfg.Index.ChildChars, cfg.Index.ChildStride)
	}
	if cfg.Retrieval.RRFK != 60 {
		t.Errorf("expected RRFK=60, got %d", cfg.Retrieval.RRFK)
	}
	if cfg.Retrieval.BreakpointHigh != 0.7 || cfg.Retrieval.BreakpointLow != 0.56 {
		t.Errorf("expected breakpoints 0.7/0.56, got %v/%v", cfg.Retrieval.BreakpointHigh, cfg.Retrieval.BreakpointLow)
	}
	if cfg.Retrieval.HybridTopK != 20 || cfg.Retrieval.MergeTopK != 20 || cfg.Retrieval.RerankTopK != 5 {
		t.Errorf("unexpected retrieval top-k defaults: %+v", cfg.Retrieval)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:  HTTPConfig{Port: 9090, ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Index: IndexConfig{SnapshotPath: "custom.json", ParentMinChars: 100, ParentMaxChars: 900, ChildChars: 200, ChildStride: 180},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 9090 {
		t.Errorf("expected Port=9090, got %d", cfg.HTTP.Port)
	}
	if cfg.Index.SnapshotPath != "custom.json" {
		t.Errorf("expected SnapshotPath='custom.json', got %q", cfg.Index.SnapshotPath)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("BOOKRAG_TEST_KEY", "secret")

	out := expandEnvVars([]byte("api_key: ${BOOKRAG_TEST_KEY}\nbase_url: ${BOOKRAG_MISSING:-https://default}"))

	want := "api_key: secret\nbase_url: https://default"
	if string(out) != want {
		t.Errorf("expandEnvVars() = %q, want %q", out, want)
	}
}
