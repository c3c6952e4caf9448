package sparse

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/reverie/internal/core/domain"
)

func TestProcessor_Name(t *testing.T) {
	if New().Name() != "sparse" {
		t.Errorf("expected name 'sparse', got %q", New().Name())
	}
}

func TestProcessor_Process(t *testing.T) {
	chunks := []domain.Chunk{
		{ID: "a", Content: "The serpent coiled around the serpent's egg."},
		{ID: "b", Content: "", SparseEmbedding: map[string]float32{"keep": 1}},
		{ID: "c", Content: "the of and"},
	}

	out, err := New().Process(context.Background(), nil, chunks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out[0].SparseEmbedding["serpent"] <= 0 {
		t.Errorf("expected weight for 'serpent', got %v", out[0].SparseEmbedding)
	}
	if _, ok := out[0].SparseEmbedding["the"]; ok {
		t.Error("stop words should not be weighted")
	}
	if out[1].SparseEmbedding["keep"] != 1 {
		t.Error("existing weights should be kept")
	}
	if out[2].SparseEmbedding != nil {
		t.Errorf("expected nil weights for stop-word-only content, got %v", out[2].SparseEmbedding)
	}
}

func TestProcessor_Process_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Process(ctx, nil, []domain.Chunk{{Content: "water"}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
