package domain

import "time"

const unknownDescription = "Unknown"

// EmbeddingProvider identifies the dense embedding backend.
type EmbeddingProvider string

// Available embedding providers.
const (
	// EmbeddingProviderOllama is a local Ollama instance.
	EmbeddingProviderOllama EmbeddingProvider = "ollama"

	// EmbeddingProviderOpenAI is the OpenAI API or a compatible endpoint.
	EmbeddingProviderOpenAI EmbeddingProvider = "openai"

	// EmbeddingProviderHashing is the offline feature-hashing embedder.
	EmbeddingProviderHashing EmbeddingProvider = "hashing"
)

// IsValid returns true if the provider is recognised.
func (p EmbeddingProvider) IsValid() bool {
	switch p {
	case EmbeddingProviderOllama, EmbeddingProviderOpenAI, EmbeddingProviderHashing:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p EmbeddingProvider) RequiresAPIKey() bool {
	return p == EmbeddingProviderOpenAI
}

// IsLocal returns true if this provider runs without a remote service.
func (p EmbeddingProvider) IsLocal() bool {
	return p == EmbeddingProviderOllama || p == EmbeddingProviderHashing
}

// String returns the string representation.
func (p EmbeddingProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p EmbeddingProvider) Description() string {
	switch p {
	case EmbeddingProviderOllama:
		return "Ollama (local)"
	case EmbeddingProviderOpenAI:
		return "OpenAI (cloud)"
	case EmbeddingProviderHashing:
		return "Feature hashing (offline, deterministic)"
	default:
		return unknownDescription
	}
}

// StoreBackend identifies the knowledge store implementation.
type StoreBackend string

// Available store backends.
const (
	StoreBackendMemory   StoreBackend = "memory"
	StoreBackendSQLite   StoreBackend = "sqlite"
	StoreBackendPostgres StoreBackend = "postgres"
)

// IsValid returns true if the backend is recognised.
func (b StoreBackend) IsValid() bool {
	switch b {
	case StoreBackendMemory, StoreBackendSQLite, StoreBackendPostgres:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b StoreBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b StoreBackend) Description() string {
	switch b {
	case StoreBackendMemory:
		return "In-memory (not persisted)"
	case StoreBackendSQLite:
		return "SQLite (local file)"
	case StoreBackendPostgres:
		return "PostgreSQL with pgvector"
	default:
		return unknownDescription
	}
}

// CacheBackend identifies the query-embedding cache implementation.
type CacheBackend string

// Available cache backends.
const (
	CacheBackendNone   CacheBackend = "none"
	CacheBackendMemory CacheBackend = "memory"
	CacheBackendRedis  CacheBackend = "redis"
)

// IsValid returns true if the backend is recognised.
func (b CacheBackend) IsValid() bool {
	switch b {
	case CacheBackendNone, CacheBackendMemory, CacheBackendRedis:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b CacheBackend) String() string {
	return string(b)
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	Provider EmbeddingProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (Ollama, or an OpenAI-compatible server).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions requests a vector size where the model supports it.
	Dimensions int

	// Timeout bounds each embedding call.
	Timeout time.Duration

	// RequestsPerSecond throttles calls; zero disables throttling.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// StoreSettings holds knowledge store configuration.
type StoreSettings struct {
	Backend StoreBackend

	// DataDir holds the SQLite database file.
	DataDir string

	// DSN is the PostgreSQL connection string.
	DSN string
}

// CacheSettings holds query-embedding cache configuration.
type CacheSettings struct {
	Backend   CacheBackend
	RedisAddr string
	TTL       time.Duration
}

// IngestSettings holds batch ingestion configuration.
type IngestSettings struct {
	// Workers bounds concurrent embed/classify calls.
	Workers int

	// BatchSize is the number of chunks per store write.
	BatchSize int
}

// RetrievalSettings holds ranking configuration shared by all personas.
type RetrievalSettings struct {
	SemanticWeight float64
	LexicalWeight  float64

	// Hybrid enables lexical blending by default.
	Hybrid bool

	// CandidateMultiplier over-fetches from the store for reranking.
	CandidateMultiplier int

	// MinResults triggers the single broadening retry.
	MinResults int

	// TrackerSize caps each session's repetition tracker.
	TrackerSize int

	// LexicalFallback ranks with BM25 alone when the query cannot be embedded.
	LexicalFallback bool
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	Store     StoreSettings
	Cache     CacheSettings
	Ingest    IngestSettings
	Retrieval RetrievalSettings

	// Personas maps persona id to its profile.
	Personas map[string]PersonaProfile

	// VocabularyPath overrides the built-in theme vocabulary.
	VocabularyPath string
}

// Persona returns the profile for id.
func (s AppSettings) Persona(id string) (PersonaProfile, bool) {
	p, ok := s.Personas[id]
	return p, ok
}

// DefaultAppSettings returns settings that work offline out of the box.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:          EmbeddingProviderHashing,
			Dimensions:        DefaultHashingDimensions,
			Timeout:           30 * time.Second,
			RequestsPerSecond: 0,
		},
		Store: StoreSettings{
			Backend: StoreBackendSQLite,
		},
		Cache: CacheSettings{
			Backend: CacheBackendMemory,
			TTL:     24 * time.Hour,
		},
		Ingest: IngestSettings{
			Workers:   4,
			BatchSize: 32,
		},
		Retrieval: RetrievalSettings{
			SemanticWeight:      0.6,
			LexicalWeight:       0.4,
			Hybrid:              true,
			CandidateMultiplier: 3,
			MinResults:          3,
			TrackerSize:         DefaultTrackerSize,
			LexicalFallback:     false,
		},
		Personas: DefaultPersonas(),
	}
}

// DefaultHashingDimensions is the vector size of the hashing embedder.
const DefaultHashingDimensions = 384

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []EmbeddingProvider {
	return []EmbeddingProvider{
		EmbeddingProviderOllama,
		EmbeddingProviderOpenAI,
		EmbeddingProviderHashing,
	}
}

// AllStoreBackends returns every knowledge store backend.
func AllStoreBackends() []StoreBackend {
	return []StoreBackend{StoreBackendMemory, StoreBackendSQLite, StoreBackendPostgres}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[EmbeddingProvider]string {
	return map[EmbeddingProvider]string{
		EmbeddingProviderOllama:  "nomic-embed-text",
		EmbeddingProviderOpenAI:  "text-embedding-3-small",
		EmbeddingProviderHashing: "hashing-v1",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Local
		"hashing-v1": DefaultHashingDimensions,
	}
}

// PipelineConfig holds segmentation pipeline configuration.
// Uses generic map-based config so new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// PipelineConfigFor returns the pipeline for a persona: segment, then attach
// sparse term weights.
func PipelineConfigFor(p PersonaProfile) PipelineConfig {
	opts := p.SegmentOptions()
	return PipelineConfig{
		Processors: []string{"chunker", "sparse"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": opts.TargetSize,
				"overlap":    opts.Overlap,
				"min_chunk":  opts.MinSize,
				"max_chunk":  opts.MaxSize,
			},
		},
	}
}
