package detect

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolf-whitz/wzdetect/lib/detect/mocks"
)

func TestOpenAIEmbedder_Embed(t *testing.T) {
	ctx := context.Background()

	t.Run("vectors returned in input order", func(t *testing.T) {
		client := &mocks.OpenAIClientMock{
			CreateEmbeddingsFunc: func(_ context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
				req, ok := conv.(openai.EmbeddingRequest)
				require.True(t, ok)
				assert.Equal(t, []string{"shit", "hello"}, req.Input)
				// respond out of order, Index drives placement
				return openai.EmbeddingResponse{Data: []openai.Embedding{
					{Index: 1, Embedding: []float32{2, 2}},
					{Index: 0, Embedding: []float32{1, 1}},
				}}, nil
			},
		}
		e := NewOpenAIEmbedder(client, OpenAIConfig{})
		res, err := e.Embed(ctx, []string{"shit", "hello"})
		require.NoError(t, err)
		assert.Equal(t, [][]float32{{1, 1}, {2, 2}}, res)
		assert.Len(t, client.CreateEmbeddingsCalls(), 1)
	})

	t.Run("empty batch short-circuits", func(t *testing.T) {
		client := &mocks.OpenAIClientMock{}
		e := NewOpenAIEmbedder(client, OpenAIConfig{})
		res, err := e.Embed(ctx, []string{})
		require.NoError(t, err)
		assert.Empty(t, res)
		assert.Empty(t, client.CreateEmbeddingsCalls())
	})

	t.Run("api error propagated", func(t *testing.T) {
		client := &mocks.OpenAIClientMock{
			CreateEmbeddingsFunc: func(_ context.Context, _ openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
				return openai.EmbeddingResponse{}, errors.New("quota exceeded")
			},
		}
		e := NewOpenAIEmbedder(client, OpenAIConfig{})
		_, err := e.Embed(ctx, []string{"shit"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "quota exceeded")
	})

	t.Run("response size mismatch rejected", func(t *testing.T) {
		client := &mocks.OpenAIClientMock{
			CreateEmbeddingsFunc: func(_ context.Context, _ openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
				return openai.EmbeddingResponse{Data: []openai.Embedding{{Index: 0, Embedding: []float32{1}}}}, nil
			},
		}
		e := NewOpenAIEmbedder(client, OpenAIConfig{})
		_, err := e.Embed(ctx, []string{"shit", "hello"})
		assert.Error(t, err)
	})

	t.Run("out of range index rejected", func(t *testing.T) {
		client := &mocks.OpenAIClientMock{
			CreateEmbeddingsFunc: func(_ context.Context, _ openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
				return openai.EmbeddingResponse{Data: []openai.Embedding{{Index: 5, Embedding: []float32{1}}}}, nil
			},
		}
		e := NewOpenAIEmbedder(client, OpenAIConfig{})
		_, err := e.Embed(ctx, []string{"shit"})
		assert.Error(t, err)
	})

	t.Run("nil client rejected", func(t *testing.T) {
		e := NewOpenAIEmbedder(nil, OpenAIConfig{})
		_, err := e.Embed(ctx, []string{"shit"})
		assert.Error(t, err)
	})
}

func TestOpenAIEmbedder_Defaults(t *testing.T) {
	e := NewOpenAIEmbedder(&mocks.OpenAIClientMock{}, OpenAIConfig{})
	assert.Equal(t, string(openai.SmallEmbedding3), e.params.Model)
	assert.Equal(t, 2048, e.params.MaxTokensRequest)
	assert.Equal(t, 8192, e.params.MaxSymbolsRequest)
}

func TestOpenAIEmbedder_ReduceInput(t *testing.T) {
	t.Run("short input untouched", func(t *testing.T) {
		e := NewOpenAIEmbedder(&mocks.OpenAIClientMock{}, OpenAIConfig{})
		assert.Equal(t, "hello world", e.reduceInput("hello world"))
	})

	t.Run("long input truncated", func(t *testing.T) {
		e := NewOpenAIEmbedder(&mocks.OpenAIClientMock{}, OpenAIConfig{MaxTokensRequest: 8, MaxSymbolsRequest: 32})
		long := strings.Repeat("hello world ", 100)
		reduced := e.reduceInput(long)
		assert.Less(t, len(reduced), len(long))
	})
}
