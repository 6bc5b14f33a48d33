// Package embedding provides the embedding model client and the Generator resource
// that turns resume and query text into normalized vectors.
package embedding

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"adjunct-search-go/internal/config"
	"adjunct-search-go/pkg/log"
)

// Client defines the interface for an embedding client.
type Client interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type openAICompatibleClient struct {
	cfg        config.EmbeddingConfig
	httpClient *http.Client
	client     openai.Client
}

// NewClient creates a client for an OpenAI-compatible /embeddings endpoint,
// e.g. a text-embeddings-inference server hosting all-MiniLM-L6-v2.
func NewClient(cfg config.EmbeddingConfig) Client {
	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: http.DefaultTransport.(*http.Transport).Clone(),
	}
	opts := []option.RequestOption{
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(1),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	} else {
		// self-hosted servers usually ignore the key but the SDK requires one
		opts = append(opts, option.WithAPIKey("unused"))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &openAICompatibleClient{
		cfg:        cfg,
		httpClient: httpClient,
		client:     openai.NewClient(opts...),
	}
}

// CreateEmbedding calls the embeddings API and returns the raw vector for text.
func (c *openAICompatibleClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	log.Infof("[EmbeddingClient] 开始调用 Embedding API, model: %s, input_len: %d", c.cfg.Model, len(text))
	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.cfg.Model),
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
	})
	if err != nil {
		log.Errorf("[EmbeddingClient] 调用 Embedding API 失败, error: %v", err)
		return nil, fmt.Errorf("failed to call embedding api: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		log.Warnf("[EmbeddingClient] Embedding API 返回了空的向量数据")
		return nil, fmt.Errorf("received empty embedding from api")
	}

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, f := range raw {
		vec[i] = float32(f)
	}
	log.Infof("[EmbeddingClient] 成功从 Embedding API 获取向量, 维度: %d", len(vec))
	return vec, nil
}

// Close releases idle connections held by the client transport.
func (c *openAICompatibleClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
