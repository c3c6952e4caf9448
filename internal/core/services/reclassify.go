package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/core/ports/driven"
	"github.com/custodia-labs/reverie/internal/core/ports/driving"
	"github.com/custodia-labs/reverie/internal/logger"
)

// Ensure ReclassificationService implements the interface.
var _ driving.ReclassificationService = (*ReclassificationService)(nil)

// ReclassificationService re-runs classification over stored chunks after
// the vocabulary or classifier changed. Every change is audited.
type ReclassificationService struct {
	classifier driving.ClassificationService
	store      driven.KnowledgeStore
	themes     ThemeLookup
	personas   map[string]domain.PersonaProfile
	now        func() time.Time
}

// NewReclassificationService creates a reclassification service.
func NewReclassificationService(
	classifier driving.ClassificationService,
	store driven.KnowledgeStore,
	themes ThemeLookup,
	personas map[string]domain.PersonaProfile,
) *ReclassificationService {
	return &ReclassificationService{
		classifier: classifier,
		store:      store,
		themes:     themes,
		personas:   personas,
		now:        time.Now,
	}
}

// Reclassify classifies every chunk in the persona's scope again, using the
// stored embedding, and updates those whose content type or themes changed.
// A failed update is counted and the pass continues.
func (s *ReclassificationService) Reclassify(ctx context.Context, persona, reason string) (*domain.ReclassifyReport, error) {
	logger.Section("Reclassify")

	if persona == "" {
		persona = "eclectic"
	}
	profile, ok := s.personas[persona]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownPersona, persona)
	}
	if reason == "" {
		reason = "reclassify"
	}

	chunks, err := s.store.ListChunks(ctx, driven.ChunkFilter{Scope: profile.Scope})
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}

	report := &domain.ReclassifyReport{Scope: profile.Scope}
	for i := range chunks {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		c := &chunks[i]
		report.Examined++

		cl := s.classifier.Classify(ctx, c.Content, profile.ID, c.Embedding)
		cl = knownThemes(s.themes, fmt.Sprintf("reclassify %s", c.ID), cl)

		audit := domain.ClassificationAudit{
			ChunkID:            c.ID,
			PreviousType:       c.ContentType,
			PreviousThemes:     c.Themes,
			PreviousConfidence: c.Confidence.Overall,
			NewType:            cl.PrimaryContentType,
			NewThemes:          cl.Themes,
			NewConfidence:      cl.Confidence.Overall,
			Reason:             reason,
			CreatedAt:          s.now(),
		}
		if !audit.Changed() {
			report.Unchanged++
			continue
		}

		if err := s.store.UpdateClassification(ctx, c.ID, cl, audit); err != nil {
			logger.Warn("reclassify %s: %v", c.ID, err)
			report.Errors++
			continue
		}
		logger.Debug("reclassify %s: %s %v -> %s %v", c.ID,
			audit.PreviousType, audit.PreviousThemes, audit.NewType, audit.NewThemes)
		report.Changed++
	}

	logger.Info("reclassify %s: %d examined, %d changed, %d errors",
		report.Scope, report.Examined, report.Changed, report.Errors)
	return report, nil
}

// History returns the audit trail of one chunk, oldest first.
func (s *ReclassificationService) History(ctx context.Context, chunkID string) ([]domain.ClassificationAudit, error) {
	return s.store.ClassificationHistory(ctx, chunkID)
}
