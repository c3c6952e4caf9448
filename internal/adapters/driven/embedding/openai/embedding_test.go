package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reverie/internal/core/domain"
)

type fakeAPI struct {
	dims     int
	requests atomic.Int32
	reverse  bool
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
			return
		}
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		type item struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, len(req.Input))
		for i := range req.Input {
			vec := make([]float32, f.dims)
			vec[0] = float32(len(req.Input[i]))
			data[i] = item{Object: "embedding", Embedding: vec, Index: i}
		}
		if f.reverse {
			for i, j := 0, len(data)-1; i < j; i, j = i+1, j-1 {
				data[i], data[j] = data[j], data[i]
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  "text-embedding-3-small",
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	})
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
	})
	return mux
}

func newService(t *testing.T, api *fakeAPI, key string) *EmbeddingService {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	s, err := NewEmbeddingService(Config{APIKey: key, BaseURL: srv.URL + "/v1", Dimensions: api.dims})
	require.NoError(t, err)
	return s
}

func TestNewEmbeddingService_RequiresKey(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestNewEmbeddingService_ModelDimensions(t *testing.T) {
	s, err := NewEmbeddingService(Config{APIKey: "k", Model: "text-embedding-3-large"})
	require.NoError(t, err)
	assert.Equal(t, 3072, s.Dimensions())
	assert.Equal(t, "text-embedding-3-large", s.ModelName())

	s, err = NewEmbeddingService(Config{APIKey: "k", Model: "custom"})
	require.NoError(t, err)
	assert.Equal(t, 1536, s.Dimensions())
}

func TestEmbedBatch_OrdersByIndex(t *testing.T) {
	api := &fakeAPI{dims: 8, reverse: true}
	s := newService(t, api, "sk-test")

	vecs, err := s.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})

	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.InDelta(t, 1, vecs[0][0], 1e-6)
	assert.InDelta(t, 2, vecs[1][0], 1e-6)
	assert.InDelta(t, 3, vecs[2][0], 1e-6)
}

func TestEmbedBatch_SplitsLargeBatches(t *testing.T) {
	api := &fakeAPI{dims: 4}
	s := newService(t, api, "sk-test")
	texts := make([]string, maxBatch+5)
	for i := range texts {
		texts[i] = "dream"
	}

	vecs, err := s.EmbedBatch(context.Background(), texts)

	require.NoError(t, err)
	assert.Len(t, vecs, len(texts))
	assert.Equal(t, int32(2), api.requests.Load())
}

func TestEmbed_APIError(t *testing.T) {
	s := newService(t, &fakeAPI{dims: 4}, "sk-wrong")

	_, err := s.Embed(context.Background(), "water")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestEmbed_DimensionMismatch(t *testing.T) {
	api := &fakeAPI{dims: 4}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()
	s, err := NewEmbeddingService(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Dimensions: 8})
	require.NoError(t, err)

	_, err = s.Embed(context.Background(), "water")

	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestPing(t *testing.T) {
	s := newService(t, &fakeAPI{dims: 4}, "sk-test")
	assert.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())
}
