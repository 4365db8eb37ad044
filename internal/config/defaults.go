package config

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderOpenAI,
		Model:             "gpt-4o",
		EmbeddingProvider: ProviderOpenAI,
		EmbeddingModel:    "text-embedding-3-small",
		VectorBackend:     BackendChromem,
		Qdrant: QdrantConfig{
			Host: "localhost",
			Port: 6334,
		},
		DataDir:        ".claimai",
		MaxConcurrency: 4,
		Agent: AgentConfig{
			MaxIterations:      15,
			AdjudicateTimeoutS: 300,
		},
		Retrieval: RetrievalConfig{
			TopK:     5,
			TimeoutS: 15,
		},
		ServerPort: 8080,
	}
}
