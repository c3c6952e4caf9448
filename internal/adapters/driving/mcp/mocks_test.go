package mcp

import (
	"context"

	"github.com/custodia-labs/reverie/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	result *domain.RetrievalResult
	err    error

	lastQuery   domain.RetrievalQuery
	lastTracker *domain.RepetitionTracker
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context,
	q domain.RetrievalQuery,
	tracker *domain.RepetitionTracker,
) (*domain.RetrievalResult, error) {
	m.lastQuery = q
	m.lastTracker = tracker
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return &domain.RetrievalResult{Passages: []domain.Passage{}}, nil
	}
	tracker.Record(m.result.IDs()...)
	return m.result, nil
}

func (m *mockRetrievalService) Analyse(_ string, maxResults int) domain.QueryAnalysis {
	return domain.QueryAnalysis{MaxResults: maxResults}
}

// mockClassificationService is a mock implementation of driving.ClassificationService.
type mockClassificationService struct {
	result        domain.Classification
	lastEmbedding []float32
	lastPersona   string
}

func (m *mockClassificationService) Classify(_ context.Context, _, persona string, embedding []float32) domain.Classification {
	m.lastPersona = persona
	m.lastEmbedding = embedding
	return m.result
}

// mockThemeService is a mock implementation of driving.ThemeService.
type mockThemeService struct {
	themes      []domain.Theme
	lastPersona string
}

func (m *mockThemeService) List(persona string) []domain.Theme {
	m.lastPersona = persona
	return m.themes
}

func (m *mockThemeService) Get(code string) (domain.Theme, error) {
	for _, t := range m.themes {
		if t.Code == code {
			return t, nil
		}
	}
	return domain.Theme{}, domain.ErrUnknownTheme
}

func (m *mockThemeService) EmbedAll(context.Context, bool) (int, error) {
	return 0, nil
}

func (m *mockThemeService) Reload(context.Context) error {
	return nil
}

func (m *mockThemeService) Watch(context.Context) error {
	return nil
}

// mockEmbedder is a mock implementation of driven.EmbeddingService.
type mockEmbedder struct {
	vector []float32
	err    error
}

func (m *mockEmbedder) Embed(context.Context, string) ([]float32, error) {
	return m.vector, m.err
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = m.vector
	}
	return out, m.err
}

func (m *mockEmbedder) Dimensions() int            { return len(m.vector) }
func (m *mockEmbedder) ModelName() string          { return "mock" }
func (m *mockEmbedder) Ping(context.Context) error { return m.err }
func (m *mockEmbedder) Close() error               { return nil }
