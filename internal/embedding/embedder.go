// Package embedding implements the dense-vector embedder the
// Retrieval Stage's Qdrant index uses to turn a search query into a
// vector, grounded on the teacher's per-backend embedder pattern
// (internal/models/embedding: one struct per backend, a shared
// Embed/BatchEmbed contract) generalized to the single OpenAI-compatible
// backend this deployment needs.
package embedding

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sajor2000/chatcore/internal/apperr"
	"github.com/sajor2000/chatcore/internal/logger"
)

// OpenAIEmbedder implements retrieval.Embedder against any
// OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// NewOpenAIEmbedder builds an OpenAIEmbedder. model is passed through
// verbatim as the request's model field; dimensions is informational
// only (it does not constrain the request) since not every backend
// supports the OpenAI dimensions parameter.
func NewOpenAIEmbedder(client *openai.Client, model string, dimensions int) *OpenAIEmbedder {
	return &OpenAIEmbedder{client: client, model: openai.EmbeddingModel(model), dimensions: dimensions}
}

// Embed converts a single query string to its dense vector.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, apperr.New(apperr.KindRetrieval, fmt.Errorf("embedding: no vector returned for query"))
	}
	return vectors[0], nil
}

// BatchEmbed converts multiple texts in one request, used by ingestion
// pipelines that chunk a policy document into many passages at once.
func (e *OpenAIEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: e.model,
	})
	if err != nil {
		logger.Errorf(ctx, "embedding request failed: %v", err)
		return nil, apperr.Transient(apperr.KindRetrieval, fmt.Errorf("embedding request: %w", err))
	}

	vectors := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// Dimensions returns the embedder's configured vector width. Nothing in
// this module compares it with the Qdrant collection's vector size.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}
