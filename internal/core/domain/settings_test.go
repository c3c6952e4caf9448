package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEmbeddingProvider_IsValid tests all valid and invalid providers
func TestEmbeddingProvider_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		provider EmbeddingProvider
		expected bool
	}{
		{"ollama is valid", EmbeddingProviderOllama, true},
		{"openai is valid", EmbeddingProviderOpenAI, true},
		{"hashing is valid", EmbeddingProviderHashing, true},
		{"empty is invalid", EmbeddingProvider(""), false},
		{"anthropic is invalid", EmbeddingProvider("anthropic"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.IsValid())
		})
	}
}

func TestEmbeddingProvider_Properties(t *testing.T) {
	assert.True(t, EmbeddingProviderOpenAI.RequiresAPIKey())
	assert.False(t, EmbeddingProviderOllama.RequiresAPIKey())
	assert.True(t, EmbeddingProviderHashing.IsLocal())
	assert.False(t, EmbeddingProviderOpenAI.IsLocal())
	assert.Equal(t, unknownDescription, EmbeddingProvider("x").Description())
	for _, p := range AllEmbeddingProviders() {
		assert.NotEqual(t, unknownDescription, p.Description())
		assert.NotEmpty(t, DefaultEmbeddingModels()[p])
	}
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	assert.False(t, EmbeddingSettings{}.IsConfigured())
	assert.False(t, EmbeddingSettings{Provider: EmbeddingProviderOpenAI}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: EmbeddingProviderOpenAI, APIKey: "sk"}.IsConfigured())
	assert.True(t, EmbeddingSettings{Provider: EmbeddingProviderHashing}.IsConfigured())
}

func TestStoreBackend_IsValid(t *testing.T) {
	for _, b := range AllStoreBackends() {
		assert.True(t, b.IsValid())
		assert.NotEqual(t, unknownDescription, b.Description())
	}
	assert.False(t, StoreBackend("mongo").IsValid())
	assert.True(t, CacheBackendRedis.IsValid())
	assert.False(t, CacheBackend("memcached").IsValid())
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.True(t, s.Embedding.IsConfigured())
	assert.Equal(t, StoreBackendSQLite, s.Store.Backend)
	assert.Equal(t, 4, s.Ingest.Workers)
	assert.InDelta(t, 0.6, s.Retrieval.SemanticWeight, 1e-9)
	assert.InDelta(t, 0.4, s.Retrieval.LexicalWeight, 1e-9)
	assert.Equal(t, 3, s.Retrieval.MinResults)
	assert.False(t, s.Retrieval.LexicalFallback)

	for _, id := range []string{"freudian", "jungian", "neuroscientist", "eclectic"} {
		p, ok := s.Persona(id)
		require.True(t, ok, id)
		assert.NoError(t, p.Validate())
		assert.InDelta(t, DefaultTheoreticalDiscount, p.TheoreticalDiscount, 1e-9)
	}
}

func TestPersonaProfile_Validate(t *testing.T) {
	good := DefaultPersonas()["jungian"]

	bad := good
	bad.SimilarityThreshold = 1.5
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)

	bad = good
	bad.TheoreticalDiscount = -0.1
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)

	bad = good
	bad.Overlap = bad.ChunkSize
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)

	bad = good
	bad.ID = ""
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)
}

func TestPersonaProfile_SegmentOptions(t *testing.T) {
	p := PersonaProfile{ID: "x", ChunkSize: 500, Overlap: 100, MinChunk: 100, MaxChunk: 300}

	opts := p.SegmentOptions()

	assert.Equal(t, 500, opts.TargetSize)
	assert.Equal(t, 100, opts.Overlap)
	assert.Equal(t, 500, opts.MaxSize, "max is raised to the target")
	assert.True(t, opts.RespectParagraphs)
}

func TestSegmentOptions_Validate(t *testing.T) {
	assert.NoError(t, DefaultSegmentOptions().Validate())

	tests := []struct {
		name string
		opts SegmentOptions
	}{
		{"zero target", SegmentOptions{TargetSize: 0, MinSize: 1, MaxSize: 1}},
		{"overlap equals target", SegmentOptions{TargetSize: 10, Overlap: 10, MinSize: 1, MaxSize: 10}},
		{"min above target", SegmentOptions{TargetSize: 10, MinSize: 11, MaxSize: 10}},
		{"max below target", SegmentOptions{TargetSize: 10, MinSize: 1, MaxSize: 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.opts.Validate(), ErrInvalidInput)
		})
	}
}

func TestPipelineConfigFor(t *testing.T) {
	cfg := PipelineConfigFor(DefaultPersonas()["freudian"])

	assert.Equal(t, []string{"chunker", "sparse"}, cfg.Processors)
	assert.Equal(t, DefaultChunkSize, cfg.GetProcessorConfig("chunker")["chunk_size"])
	assert.Nil(t, cfg.GetProcessorConfig("sparse"))

	var empty PipelineConfig
	assert.Nil(t, empty.GetProcessorConfig("chunker"))
}

func TestPersonaIDs_Sorted(t *testing.T) {
	assert.Equal(t, []string{"eclectic", "freudian", "jungian", "neuroscientist"}, PersonaIDs(DefaultPersonas()))
}
