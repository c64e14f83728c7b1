package detect

import (
	"context"
	"fmt"

	tokenizer "github.com/sandwich-go/gpt3-encoder"
	"github.com/sashabaranov/go-openai"
)

//go:generate moq --out mocks/openai_client.go --pkg mocks --skip-ensure . openAIClient:OpenAIClientMock

// OpenAIEmbedder implements Embedder with the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client openAIClient
	params OpenAIConfig
}

// OpenAIConfig contains parameters for OpenAIEmbedder.
type OpenAIConfig struct {
	Model             string // embedding model name
	MaxTokensRequest  int    // max length of a single input in tokens
	MaxSymbolsRequest int    // fallback max input length in symbols, if tokenizer failed
}

type openAIClient interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// NewOpenAIEmbedder makes an embedder backed by the OpenAI API.
func NewOpenAIEmbedder(client openAIClient, params OpenAIConfig) *OpenAIEmbedder {
	if params.Model == "" {
		params.Model = string(openai.SmallEmbedding3)
	}
	if params.MaxTokensRequest == 0 {
		params.MaxTokensRequest = 2048
	}
	if params.MaxSymbolsRequest == 0 {
		params.MaxSymbolsRequest = 8192
	}
	return &OpenAIEmbedder{client: client, params: params}
}

// Embed sends the batch of texts to the embeddings API and returns one vector
// per input, in input order. Inputs are reduced to the configured token limit
// before the call.
func (o *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if o.client == nil {
		return nil, fmt.Errorf("openai client is not set")
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	input := make([]string, len(texts))
	for i, t := range texts {
		input[i] = o.reduceInput(t)
	}

	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: input,
		Model: openai.EmbeddingModel(o.params.Model),
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// reduceInput caps the input length with the tokenizer and falls back to a
// plain symbol cut if the tokenizer fails.
func (o *OpenAIEmbedder) reduceInput(text string) string {
	defaultReducer := func(text string) string {
		if len(text) <= o.params.MaxSymbolsRequest {
			return text
		}
		return text[:o.params.MaxSymbolsRequest]
	}

	encoder, err := tokenizer.NewEncoder()
	if err != nil {
		return defaultReducer(text)
	}
	tokens, err := encoder.Encode(text)
	if err != nil {
		return defaultReducer(text)
	}
	if len(tokens) <= o.params.MaxTokensRequest {
		return text
	}
	return encoder.Decode(tokens[:o.params.MaxTokensRequest])
}
