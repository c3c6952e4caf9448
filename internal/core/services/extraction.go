package services

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/core/ports/driven"
	"github.com/custodia-labs/reverie/internal/core/ports/driving"
	"github.com/custodia-labs/reverie/internal/logger"
)

// Ensure ExtractionService implements the interface.
var _ driving.ExtractionService = (*ExtractionService)(nil)

// ExtractionService turns source files into text through the normaliser
// registry.
type ExtractionService struct {
	registry driven.NormaliserRegistry
}

// NewExtractionService creates an extraction service backed by registry.
func NewExtractionService(registry driven.NormaliserRegistry) *ExtractionService {
	return &ExtractionService{registry: registry}
}

// Extract detects the format of path and returns its text.
func (s *ExtractionService) Extract(ctx context.Context, path string, content []byte) (*domain.ExtractedText, error) {
	mimeType := s.registry.DetectMIMEType(path)
	logger.Debug("extracting %s as %s", filepath.Base(path), mimeType)

	out, err := s.registry.Normalise(ctx, &domain.RawDocument{
		URI:      path,
		MIMEType: mimeType,
		Content:  content,
	})
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", path, err)
	}
	return out, nil
}
