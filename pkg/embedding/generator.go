package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"adjunct-search-go/internal/config"
	"adjunct-search-go/pkg/log"
)

// ErrEmbedding marks every failure to produce a vector.
var ErrEmbedding = errors.New("embedding failed")

const warmupText = "warm up"

// Cache stores query vectors between requests.
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Set(ctx context.Context, key string, vec []float32)
}

// Generator is the process-wide embedding resource. It is constructed once in main
// and shared by the indexer, the search service and the backfill processor.
type Generator struct {
	client   Client
	cache    Cache
	model    string
	dims     int
	maxChars int

	mu    sync.Mutex
	ready bool
}

// NewGenerator wires a Generator around client. cache may be nil.
func NewGenerator(client Client, cfg config.EmbeddingConfig, cache Cache) *Generator {
	return &Generator{
		client:   client,
		cache:    cache,
		model:    cfg.Model,
		dims:     cfg.Dimensions,
		maxChars: cfg.MaxInputChars,
	}
}

// Model is the model version recorded next to every stored vector.
func (g *Generator) Model() string { return g.model }

// Dimensions is the expected vector length.
func (g *Generator) Dimensions() int { return g.dims }

// Init probes the model once and checks the vector dimension. Calls after a
// successful Init are no-ops; a failed Init is retried by the next caller.
func (g *Generator) Init(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ready {
		return nil
	}
	log.Infof("[EmbeddingGenerator] 初始化 embedding 模型: %s", g.model)
	vec, err := g.client.CreateEmbedding(ctx, warmupText)
	if err != nil {
		return fmt.Errorf("%w: warm-up call: %v", ErrEmbedding, err)
	}
	if g.dims > 0 && len(vec) != g.dims {
		return fmt.Errorf("%w: model %s returned %d dimensions, expected %d", ErrEmbedding, g.model, len(vec), g.dims)
	}
	if g.dims == 0 {
		g.dims = len(vec)
	}
	g.ready = true
	log.Infof("[EmbeddingGenerator] embedding 模型就绪, 维度: %d", g.dims)
	return nil
}

// Close releases the underlying HTTP transport.
func (g *Generator) Close() error {
	g.mu.Lock()
	g.ready = false
	g.mu.Unlock()
	if c, ok := g.client.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// Embed turns text into a normalized vector. Input longer than the configured
// limit is truncated first.
func (g *Generator) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := g.Init(ctx); err != nil {
		return nil, err
	}
	input := Truncate(text, g.maxChars)
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("%w: empty input", ErrEmbedding)
	}

	raw, err := g.client.CreateEmbedding(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(raw) != g.dims {
		return nil, fmt.Errorf("%w: got %d dimensions, expected %d", ErrEmbedding, len(raw), g.dims)
	}
	vec, ok := Normalize(raw)
	if !ok {
		return nil, fmt.Errorf("%w: degenerate vector", ErrEmbedding)
	}
	return vec, nil
}

// EmbedQuery is Embed with a read-through cache keyed by model and input hash.
// Cache failures never fail the call.
func (g *Generator) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if g.cache == nil {
		return g.Embed(ctx, text)
	}
	key := CacheKey(g.model, Truncate(text, g.maxChars))
	if vec, ok := g.cache.Get(ctx, key); ok && len(vec) == g.dims && g.dims > 0 {
		return vec, nil
	}
	vec, err := g.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	g.cache.Set(ctx, key, vec)
	return vec, nil
}

// CacheKey derives the cache key for an already truncated input.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embedding:query:" + model + ":" + hex.EncodeToString(sum[:])
}
