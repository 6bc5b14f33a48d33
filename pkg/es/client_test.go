package es

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexMapping_UsesDimsAndCosine(t *testing.T) {
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(indexMapping(384)), &m))

	props := m["mappings"].(map[string]any)["properties"].(map[string]any)
	vector := props["vector"].(map[string]any)
	assert.EqualValues(t, 384, vector["dims"])
	assert.Equal(t, "cosine", vector["similarity"])
	assert.Equal(t, "dense_vector", vector["type"])
}

func TestKnnQuery(t *testing.T) {
	q := KnnQuery([]float32{0.1, 0.2}, 200, "all-MiniLM-L6-v2")
	knn := q["knn"].(map[string]any)
	assert.Equal(t, 200, knn["k"])
	assert.Equal(t, 400, knn["num_candidates"])
	assert.Equal(t, 200, q["size"])

	small := KnnQuery([]float32{0.1}, 5, "m")["knn"].(map[string]any)
	assert.Equal(t, 100, small["num_candidates"])

	filter := knn["filter"].(map[string]any)["term"].(map[string]any)
	assert.Equal(t, "all-MiniLM-L6-v2", filter["model_version"])
}
