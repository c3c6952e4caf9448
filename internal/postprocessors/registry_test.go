package postprocessors

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/core/ports/driven"
	"github.com/custodia-labs/reverie/internal/postprocessors/chunker"
)

type namedProcessor struct {
	name string
}

func (m *namedProcessor) Name() string { return m.name }
func (m *namedProcessor) Process(_ context.Context, _ *domain.SourceDocument, chunks []domain.Chunk) ([]domain.Chunk, error) {
	return chunks, nil
}

func TestRegistry_BuildUsesConfig(t *testing.T) {
	r := NewRegistry()
	r.Register("labelled", func(cfg map[string]any) (driven.PostProcessor, error) {
		name := "default"
		if n, ok := cfg["name"].(string); ok {
			name = n
		}
		return &namedProcessor{name: name}, nil
	})

	proc, err := r.Build("labelled", map[string]any{"name": "custom"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if proc.Name() != "custom" {
		t.Errorf("expected name 'custom', got %q", proc.Name())
	}
	if !r.Has("labelled") || r.Has("missing") {
		t.Error("Has reports the wrong registrations")
	}
}

func TestRegistry_RegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	defer func() {
		if recover() == nil {
			t.Error("expected a panic for a duplicate registration")
		}
	}()
	r.Register("chunker", buildChunker)
}

func TestRegistry_Build_UnknownProcessor(t *testing.T) {
	_, err := NewRegistry().Build("stemmer", nil)
	if !errors.Is(err, domain.ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestRegisterDefaults_NamesSorted(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	if got := r.Names(); !reflect.DeepEqual(got, []string{"chunker", "sparse"}) {
		t.Errorf("unexpected names %v", got)
	}
}

func TestBuildChunker_AppliesConfig(t *testing.T) {
	proc, err := buildChunker(map[string]any{
		"chunk_size": int64(500),
		"overlap":    float64(100),
		"min_chunk":  100,
		"max_chunk":  600,
	})
	if err != nil {
		t.Fatalf("buildChunker failed: %v", err)
	}

	opts := proc.(*chunker.Processor).Options()
	want := domain.SegmentOptions{
		TargetSize: 500, Overlap: 100, MinSize: 100, MaxSize: 600,
		RespectParagraphs: true, RespectSentences: true,
	}
	if opts != want {
		t.Errorf("expected %+v, got %+v", want, opts)
	}
}

func TestBuildChunker_MissingOverlapKeepsDefault(t *testing.T) {
	proc, err := buildChunker(map[string]any{"chunk_size": 800})
	if err != nil {
		t.Fatalf("buildChunker failed: %v", err)
	}
	if got := proc.(*chunker.Processor).Options().Overlap; got != chunker.DefaultChunkOverlap {
		t.Errorf("expected default overlap, got %d", got)
	}

	proc, err = buildChunker(nil)
	if err != nil {
		t.Fatalf("buildChunker with nil config failed: %v", err)
	}
	if proc.Name() != "chunker" {
		t.Errorf("expected name 'chunker', got %q", proc.Name())
	}
}

func TestGetIntFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      map[string]any
		expected int
	}{
		{"int value", map[string]any{"size": 100}, 100},
		{"int64 value", map[string]any{"size": int64(200)}, 200},
		{"float64 value", map[string]any{"size": float64(300)}, 300},
		{"string value", map[string]any{"size": "400"}, 0},
		{"missing key", map[string]any{"other": 100}, 0},
		{"nil config", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getIntFromConfig(tt.cfg, "size"); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}
