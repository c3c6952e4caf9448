package postprocessors

import (
	"github.com/custodia-labs/reverie/internal/core/ports/driven"
	"github.com/custodia-labs/reverie/internal/postprocessors/chunker"
	"github.com/custodia-labs/reverie/internal/postprocessors/sparse"
)

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("sparse", buildSparse)
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Target characters per chunk (default: 1000)
//   - overlap (int): Maximum overlapping characters between chunks (default: 200)
//   - min_chunk (int): Smallest chunk emitted (default: 200)
//   - max_chunk (int): Largest chunk emitted (default: 2000)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if size := getIntFromConfig(cfg, "chunk_size"); size > 0 {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if _, ok := cfg["overlap"]; ok {
		opts = append(opts, chunker.WithOverlap(getIntFromConfig(cfg, "overlap")))
	}
	if size := getIntFromConfig(cfg, "min_chunk"); size > 0 {
		opts = append(opts, chunker.WithMinChunk(size))
	}
	if size := getIntFromConfig(cfg, "max_chunk"); size > 0 {
		opts = append(opts, chunker.WithMaxChunk(size))
	}

	return chunker.New(opts...), nil
}

// buildSparse creates the sparse term-weight processor. It takes no config.
func buildSparse(_ map[string]any) (driven.PostProcessor, error) {
	return sparse.New(), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
