package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRetrievalDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("FUSION_VECTOR_WEIGHT", "")
	t.Setenv("FUSION_FTS_WEIGHT", "")
	t.Setenv("FUSION_RRF_K", "")
	t.Setenv("VECTOR_BACKEND", "")
	t.Setenv("CHUNK_MAX_TOKENS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.FusionVectorWeight != 0.6 || cfg.FusionFTSWeight != 0.4 {
		t.Fatalf("expected default fusion weights 0.6/0.4, got %v/%v", cfg.FusionVectorWeight, cfg.FusionFTSWeight)
	}
	if cfg.FusionRRFK != 60 {
		t.Fatalf("expected default rrf k 60, got %d", cfg.FusionRRFK)
	}
	if cfg.VectorBackend != "pgvector" {
		t.Fatalf("expected default vector backend pgvector, got %q", cfg.VectorBackend)
	}
	if cfg.ChunkMaxTokens != 300 || cfg.ChunkOverlapTokens != 50 {
		t.Fatalf("expected default chunking 300/50, got %d/%d", cfg.ChunkMaxTokens, cfg.ChunkOverlapTokens)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("VECTOR_BACKEND", "qdrant")
	t.Setenv("EMBEDDING_PROVIDER", "openai")
	t.Setenv("FUSION_RRF_K", "75")
	t.Setenv("SEARCH_VECTOR_TIMEOUT_MS", "1500")
	t.Setenv("API_RATE_LIMIT_RPS", "12.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.VectorBackend != "qdrant" {
		t.Fatalf("expected vector backend override, got %q", cfg.VectorBackend)
	}
	if cfg.EmbeddingProvider != "openai" {
		t.Fatalf("expected provider override, got %q", cfg.EmbeddingProvider)
	}
	if cfg.FusionRRFK != 75 {
		t.Fatalf("expected rrf k 75, got %d", cfg.FusionRRFK)
	}
	if cfg.SearchVectorTimeoutMS != 1500 {
		t.Fatalf("expected vector timeout 1500, got %d", cfg.SearchVectorTimeoutMS)
	}
	if cfg.APIRateLimitRPS != 12.5 {
		t.Fatalf("expected rate limit 12.5, got %v", cfg.APIRateLimitRPS)
	}
}

func TestLoadReadsYAMLFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte("vector_backend: qdrant\nchunk_max_tokens: 120\nfusion_rrf_k: 90\n")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("FUSION_RRF_K", "45")
	t.Setenv("VECTOR_BACKEND", "")
	t.Setenv("CHUNK_MAX_TOKENS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.VectorBackend != "qdrant" {
		t.Fatalf("expected backend from file, got %q", cfg.VectorBackend)
	}
	if cfg.ChunkMaxTokens != 120 {
		t.Fatalf("expected chunk max tokens from file, got %d", cfg.ChunkMaxTokens)
	}
	if cfg.FusionRRFK != 45 {
		t.Fatalf("environment must override the file, got %d", cfg.FusionRRFK)
	}
}

func TestLoadRejectsUnreadableConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
