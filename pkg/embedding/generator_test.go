package embedding

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adjunct-search-go/internal/config"
)

type fakeClient struct {
	mu     sync.Mutex
	dims   int
	err    error
	inputs []string
}

func (f *fakeClient) CreateEmbedding(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, text)
	if f.err != nil {
		return nil, f.err
	}
	vec := make([]float32, f.dims)
	for i := range vec {
		vec[i] = float32(i + 1)
	}
	return vec, nil
}

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inputs)
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]float32
}

func (m *memCache) Get(_ context.Context, key string) ([]float32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *memCache) Set(_ context.Context, key string, vec []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = vec
}

func testConfig() config.EmbeddingConfig {
	return config.EmbeddingConfig{Model: "test-model", Dimensions: 4, MaxInputChars: 10}
}

func TestGenerator_EmbedNormalizesAndTruncates(t *testing.T) {
	client := &fakeClient{dims: 4}
	g := NewGenerator(client, testConfig(), nil)

	vec, err := g.Embed(context.Background(), strings.Repeat("x", 50))
	require.NoError(t, err)
	require.Len(t, vec, 4)
	assert.InDelta(t, 1.0, CosineSimilarity(vec, vec), 1e-6)

	var norm float64
	for _, f := range vec {
		norm += float64(f) * float64(f)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)

	// warm-up plus one real call, the second truncated
	require.Equal(t, 2, client.calls())
	assert.Len(t, client.inputs[1], 10)
}

func TestGenerator_InitRunsOnce(t *testing.T) {
	client := &fakeClient{dims: 4}
	g := NewGenerator(client, testConfig(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.Embed(context.Background(), "contracts law")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	warmups := 0
	for _, in := range client.inputs {
		if in == warmupText {
			warmups++
		}
	}
	assert.Equal(t, 1, warmups)
}

func TestGenerator_DimensionMismatch(t *testing.T) {
	g := NewGenerator(&fakeClient{dims: 3}, testConfig(), nil)
	_, err := g.Embed(context.Background(), "tax law")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmbedding))
}

func TestGenerator_ClientFailureWrapsErrEmbedding(t *testing.T) {
	g := NewGenerator(&fakeClient{err: errors.New("connection refused")}, testConfig(), nil)
	_, err := g.Embed(context.Background(), "tax law")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbedding)
}

func TestGenerator_EmptyInput(t *testing.T) {
	g := NewGenerator(&fakeClient{dims: 4}, testConfig(), nil)
	_, err := g.Embed(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmbedding)
}

func TestGenerator_EmbedQueryUsesCache(t *testing.T) {
	client := &fakeClient{dims: 4}
	cache := &memCache{data: map[string][]float32{}}
	g := NewGenerator(client, testConfig(), cache)

	first, err := g.EmbedQuery(context.Background(), "evidence")
	require.NoError(t, err)
	callsAfterFirst := client.calls()

	second, err := g.EmbedQuery(context.Background(), "evidence")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, callsAfterFirst, client.calls())

	_, ok := cache.data[CacheKey("test-model", "evidence")]
	assert.True(t, ok)
}

func TestCacheKey_DependsOnModel(t *testing.T) {
	assert.NotEqual(t, CacheKey("a", "text"), CacheKey("b", "text"))
	assert.Equal(t, CacheKey("a", "text"), CacheKey("a", "text"))
}
