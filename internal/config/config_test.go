package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != ProviderOpenAI {
		t.Errorf("provider = %q", cfg.Provider)
	}
	if cfg.Agent.MaxIterations != 15 {
		t.Errorf("max iterations = %d", cfg.Agent.MaxIterations)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".claimai.yml")
	yaml := `provider: ollama
model: llama3
vector_backend: qdrant
qdrant:
  host: qdrant.internal
  port: 7000
retrieval:
  top_k: 3
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != ProviderOllama {
		t.Errorf("provider = %q", cfg.Provider)
	}
	if cfg.Qdrant.Host != "qdrant.internal" || cfg.Qdrant.Port != 7000 {
		t.Errorf("qdrant = %+v", cfg.Qdrant)
	}
	if cfg.Retrieval.TopK != 3 {
		t.Errorf("top_k = %d", cfg.Retrieval.TopK)
	}
	// Untouched values keep their defaults.
	if cfg.Retrieval.TimeoutS != 15 {
		t.Errorf("timeout = %d", cfg.Retrieval.TimeoutS)
	}
}

func TestLoadEnvOverlay(t *testing.T) {
	t.Setenv("CLAIMAI_MODEL", "gpt-4o-mini")
	t.Setenv("CLAIMAI_SERVER_PORT", "9090")
	t.Setenv("CLAIMAI_LLM_RPM", "120")
	t.Setenv("CLAIMAI_QDRANT__HOST", "qdrant.prod")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", cfg.Model)
	}
	if cfg.ServerPort != 9090 {
		t.Errorf("server port = %d", cfg.ServerPort)
	}
	if cfg.LLMRPM != 120 {
		t.Errorf("llm_rpm = %d", cfg.LLMRPM)
	}
	if cfg.Qdrant.Host != "qdrant.prod" {
		t.Errorf("qdrant host = %q", cfg.Qdrant.Host)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty provider", func(c *Config) { c.Provider = "" }},
		{"bad provider", func(c *Config) { c.Provider = "anthropic" }},
		{"empty model", func(c *Config) { c.Model = "" }},
		{"negative llm_rpm", func(c *Config) { c.LLMRPM = -1 }},
		{"negative embedding dims", func(c *Config) { c.EmbeddingDimensions = -1 }},
		{"bad backend", func(c *Config) { c.VectorBackend = "pinecone" }},
		{"qdrant without host", func(c *Config) { c.VectorBackend = BackendQdrant; c.Qdrant.Host = "" }},
		{"qdrant bad port", func(c *Config) { c.VectorBackend = BackendQdrant; c.Qdrant.Port = 0 }},
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"zero iterations", func(c *Config) { c.Agent.MaxIterations = 0 }},
		{"zero top_k", func(c *Config) { c.Retrieval.TopK = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".claimai.yml")

	cfg := DefaultConfig()
	cfg.Model = "gpt-4.1"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Model != "gpt-4.1" {
		t.Errorf("model = %q", loaded.Model)
	}
}
