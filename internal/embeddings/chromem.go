package embeddings

import (
	"context"

	chromem "github.com/philippgille/chromem-go"
)

// ChromemFunc adapts an Embedder to chromem-go's single-text embedding
// callback, used when policies live in the embedded vector store.
func ChromemFunc(e Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vectors, err := e.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vectors) == 0 {
			return nil, nil
		}
		return vectors[0], nil
	}
}
