package mcp

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/reverie/internal/core/domain"
)

func TestNewServer(t *testing.T) {
	t.Run("nil retrieval service returns error", func(t *testing.T) {
		ports := &Ports{}
		server, err := NewServer(ports, nil)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingRetrievalService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports := &Ports{
			Retrieval: &mockRetrievalService{},
		}
		server, err := NewServer(ports, nil)
		require.NoError(t, err)
		assert.NotNil(t, server)
		assert.NotNil(t, server.sessions)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil retrieval service returns error", func(t *testing.T) {
		ports := &Ports{}
		err := ports.Validate()
		assert.ErrorIs(t, err, ErrMissingRetrievalService)
	})

	t.Run("retrieval only is valid", func(t *testing.T) {
		ports := &Ports{
			Retrieval: &mockRetrievalService{},
		}
		err := ports.Validate()
		assert.NoError(t, err)
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{
			Retrieval:      &mockRetrievalService{},
			Classification: &mockClassificationService{},
			Themes:         &mockThemeService{},
			Embedder:       &mockEmbedder{},
		}
		err := ports.Validate()
		assert.NoError(t, err)
	})
}

func TestServer_Health(t *testing.T) {
	tests := []struct {
		name     string
		embedder *mockEmbedder
		code     int
		status   string
	}{
		{name: "no embedder", code: http.StatusOK, status: "ok"},
		{name: "embedder up", embedder: &mockEmbedder{vector: []float32{1}}, code: http.StatusOK, status: "ok"},
		{name: "embedder down", embedder: &mockEmbedder{err: errors.New("connection refused")}, code: http.StatusServiceUnavailable, status: "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ports := &Ports{
				Retrieval: &mockRetrievalService{},
				Themes:    &mockThemeService{themes: []domain.Theme{{Code: "flying"}, {Code: "maze"}}},
			}
			if tt.embedder != nil {
				ports.Embedder = tt.embedder
			}
			sessions := NewSessionRegistry(0, 0)
			require.NoError(t, sessions.With("abc", func(*domain.RepetitionTracker) error { return nil }))

			server, err := NewServer(ports, sessions)
			require.NoError(t, err)

			rec := httptest.NewRecorder()
			server.httpHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var report healthReport
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
			assert.Equal(t, tt.status, report.Status)
			assert.Equal(t, 1, report.Sessions)
			assert.Equal(t, 2, report.Themes)
		})
	}
}
