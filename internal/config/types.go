package config

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
)

// VectorBackend identifies the semantic search backend.
type VectorBackend string

const (
	BackendChromem VectorBackend = "chromem"
	BackendQdrant  VectorBackend = "qdrant"
)

// QdrantConfig holds Qdrant connection settings.
type QdrantConfig struct {
	Host string `yaml:"host" koanf:"host"`
	Port int    `yaml:"port" koanf:"port"`
}

// AgentConfig bounds the reasoning loop and its tool executions.
type AgentConfig struct {
	MaxIterations      int `yaml:"max_iterations" koanf:"max_iterations"`
	AdjudicateTimeoutS int `yaml:"adjudicate_timeout_s" koanf:"adjudicate_timeout_s"`
}

// RetrievalConfig bounds policy evidence search.
type RetrievalConfig struct {
	TopK     int `yaml:"top_k" koanf:"top_k"`
	TimeoutS int `yaml:"timeout_s" koanf:"timeout_s"`
}

// Config is the top-level configuration, corresponding to .claimai.yml.
type Config struct {
	Provider ProviderType `yaml:"provider" koanf:"provider"`
	Model    string       `yaml:"model" koanf:"model"`
	// LLMRPM caps model calls per minute across the whole process.
	// Zero disables throttling.
	LLMRPM            int          `yaml:"llm_rpm" koanf:"llm_rpm"`
	EmbeddingProvider ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string       `yaml:"embedding_model" koanf:"embedding_model"`
	// EmbeddingDimensions overrides the embedder's vector width. Only
	// meaningful for ollama models; zero keeps the model default.
	EmbeddingDimensions int             `yaml:"embedding_dimensions" koanf:"embedding_dimensions"`
	VectorBackend       VectorBackend   `yaml:"vector_backend" koanf:"vector_backend"`
	Qdrant              QdrantConfig    `yaml:"qdrant" koanf:"qdrant"`
	DataDir             string          `yaml:"data_dir" koanf:"data_dir"`
	MaxConcurrency      int             `yaml:"max_concurrency" koanf:"max_concurrency"`
	Agent               AgentConfig     `yaml:"agent" koanf:"agent"`
	Retrieval           RetrievalConfig `yaml:"retrieval" koanf:"retrieval"`
	ServerPort          int             `yaml:"server_port" koanf:"server_port"`
}
