package embeddings

import (
	"context"
	"fmt"
	"os"
)

// Embedder turns policy chunks and search queries into vectors for the
// semantic store.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector width this embedder produces.
	Dimensions() int

	// Name identifies the backing model.
	Name() string
}

// NewEmbedder constructs an Embedder for the given provider ("openai" or
// "ollama"). dimensions overrides the vector width for ollama models, whose
// width is not discoverable from the model name; pass 0 to keep the default.
// OpenAI models carry fixed dimensions and ignore the override.
func NewEmbedder(providerType, model string, dimensions int) (Embedder, error) {
	switch providerType {
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		return NewOpenAIEmbedder(apiKey, OpenAIModel(model)), nil

	case "ollama":
		return NewOllamaEmbedder(model, dimensions, os.Getenv("OLLAMA_HOST")), nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider type: %s", providerType)
	}
}
