package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/core/ports/driven"
	"github.com/custodia-labs/reverie/internal/core/ports/driving"
	"github.com/custodia-labs/reverie/internal/logger"
	"github.com/custodia-labs/reverie/internal/postprocessors"
	"github.com/custodia-labs/reverie/internal/postprocessors/chunker"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// DefaultStoreRetryBackoff is the wait before the single store write retry.
const DefaultStoreRetryBackoff = time.Second

// ThemeLookup validates theme codes against the loaded vocabulary.
type ThemeLookup interface {
	Has(code string) bool
	ConceptsFor(codes []string) []string
}

// IngestionService runs the write path: segment, embed, classify, store.
type IngestionService struct {
	registry   *postprocessors.Registry
	embedder   driven.EmbeddingService
	classifier driving.ClassificationService
	store      driven.KnowledgeStore
	themes     ThemeLookup
	personas   map[string]domain.PersonaProfile
	cfg        domain.IngestSettings

	retryBackoff time.Duration
}

// NewIngestionService creates an ingestion service. The registry supplies
// the chunker and sparse processors for each persona's pipeline.
func NewIngestionService(
	registry *postprocessors.Registry,
	embedder driven.EmbeddingService,
	classifier driving.ClassificationService,
	store driven.KnowledgeStore,
	themes ThemeLookup,
	personas map[string]domain.PersonaProfile,
	cfg domain.IngestSettings,
) *IngestionService {
	if cfg.Workers <= 0 {
		cfg.Workers = domain.DefaultAppSettings().Ingest.Workers
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = domain.DefaultAppSettings().Ingest.BatchSize
	}
	return &IngestionService{
		registry:     registry,
		embedder:     embedder,
		classifier:   classifier,
		store:        store,
		themes:       themes,
		personas:     personas,
		cfg:          cfg,
		retryBackoff: DefaultStoreRetryBackoff,
	}
}

// SetStoreRetryBackoff overrides the wait before retrying a failed batch.
func (s *IngestionService) SetStoreRetryBackoff(d time.Duration) {
	s.retryBackoff = d
}

// Ingest writes one document. Chunks already stored for the same source and
// position are skipped, so re-running an interrupted ingestion resumes it.
// Batches are written in source order; ctx is checked between batches and
// an interrupted run returns the partial report with ctx.Err().
//
//nolint:gocyclo // Sequential write path with per-batch bookkeeping
func (s *IngestionService) Ingest(ctx context.Context, doc domain.SourceDocument) (*domain.IngestReport, error) {
	start := time.Now()
	logger.Section("Ingest")

	doc.Source = strings.TrimSpace(doc.Source)
	if doc.Source == "" {
		return nil, fmt.Errorf("%w: document has no source", domain.ErrInvalidInput)
	}
	profile, err := s.persona(doc.Persona)
	if err != nil {
		return nil, err
	}
	doc.Persona = profile.ID
	if doc.Scope == "" {
		doc.Scope = profile.Scope
	}

	report := &domain.IngestReport{Source: doc.Source, Scope: doc.Scope}
	defer func() { report.Duration = time.Since(start) }()

	// 1. Segment and weight terms
	pipeline, err := postprocessors.BuildPipeline(s.registry, domain.PipelineConfigFor(profile))
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	chunks, err := pipeline.Process(ctx, &doc)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var segErr *domain.SegmentationError
		if errors.As(err, &segErr) {
			return nil, segErr
		}
		return nil, &domain.SegmentationError{Source: doc.Source, Err: err}
	}
	report.Segments = len(chunks)
	report.Stats = chunker.ComputeStats(toSegments(chunks), nil)
	logger.Debug("ingest %q: %d segments for scope %s", doc.Source, len(chunks), doc.Scope)

	// 2. Skip positions already stored
	existing, err := s.store.ExistingPositions(ctx, doc.Scope, doc.Source)
	if err != nil {
		return nil, fmt.Errorf("existing positions: %w", err)
	}
	pending := chunks[:0]
	for _, c := range chunks {
		if existing[c.Position] {
			report.Skipped++
			continue
		}
		pending = append(pending, c)
	}
	if report.Skipped > 0 {
		logger.Info("ingest %q: %d chunks already stored, skipping", doc.Source, report.Skipped)
	}
	if len(pending) == 0 {
		return report, nil
	}

	pool, err := ants.NewPool(s.cfg.Workers, ants.WithPanicHandler(func(p any) {
		logger.Error("ingest worker panic: %v", p)
	}))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	// 3. Embed, classify and write batch by batch
	for from := 0; from < len(pending); from += s.cfg.BatchSize {
		if ctx.Err() != nil {
			report.Interrupted = true
			logger.Warn("ingest %q: interrupted before chunk %d", doc.Source, pending[from].Position)
			return report, ctx.Err()
		}
		batch := pending[from:min(from+s.cfg.BatchSize, len(pending))]

		ready, failed, degraded := s.prepareBatch(ctx, pool, doc, batch)
		if ctx.Err() != nil {
			report.Interrupted = true
			logger.Warn("ingest %q: interrupted during chunk %d..%d, batch discarded",
				doc.Source, batch[0].Position, batch[len(batch)-1].Position)
			return report, ctx.Err()
		}
		report.Failed = append(report.Failed, failed...)
		report.Degraded += degraded

		if len(ready) == 0 {
			continue
		}
		if err := s.write(ctx, doc.Source, ready); err != nil {
			return report, err
		}
		report.Written += len(ready)
		logger.Debug("ingest %q: wrote chunks %d..%d", doc.Source, ready[0].Position, ready[len(ready)-1].Position)
	}

	logger.Info("ingest %q: %d written, %d skipped, %d failed, %d degraded",
		doc.Source, report.Written, report.Skipped, len(report.Failed), report.Degraded)
	return report, nil
}

// prepareBatch embeds and classifies the batch on the pool. The returned
// chunks keep source order; chunks whose embedding failed are reported.
func (s *IngestionService) prepareBatch(
	ctx context.Context, pool *ants.Pool, doc domain.SourceDocument, batch []domain.Chunk,
) ([]domain.Chunk, []domain.ChunkFailure, int) {
	errs := make([]error, len(batch))
	degraded := make([]bool, len(batch))

	var wg sync.WaitGroup
	for i := range batch {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			errs[i] = s.prepareChunk(ctx, doc, &batch[i], &degraded[i])
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			errs[i] = fmt.Errorf("submit: %w", err)
		}
	}
	wg.Wait()

	var (
		ready    []domain.Chunk
		failed   []domain.ChunkFailure
		nDegrade int
	)
	for i, c := range batch {
		if errs[i] != nil {
			logger.Warn("ingest %q: chunk %d dropped: %v", doc.Source, c.Position, errs[i])
			failed = append(failed, domain.ChunkFailure{Position: c.Position, Error: errs[i].Error()})
			continue
		}
		if degraded[i] {
			nDegrade++
		}
		ready = append(ready, c)
	}
	return ready, failed, nDegrade
}

func (s *IngestionService) prepareChunk(ctx context.Context, doc domain.SourceDocument, c *domain.Chunk, degraded *bool) error {
	vec, err := s.embedder.Embed(ctx, c.Content)
	if err != nil {
		ee := &domain.EmbeddingError{Op: "ingest", Source: doc.Source, Position: c.Position, Attempts: 1, Err: err}
		var inner *domain.EmbeddingError
		if errors.As(err, &inner) {
			ee.Attempts = inner.Attempts
			ee.Err = inner.Err
		}
		return ee
	}
	c.Embedding = vec

	if sp, ok := s.embedder.(driven.SparseEmbedder); ok && c.SparseEmbedding == nil {
		if weights, err := sp.EmbedSparse(ctx, c.Content); err == nil && weights != nil {
			c.SparseEmbedding = weights
		}
	}

	cl := s.classifier.Classify(ctx, c.Content, doc.Persona, vec)
	cl = knownThemes(s.themes, fmt.Sprintf("ingest %q: chunk %d", doc.Source, c.Position), cl)
	c.ApplyClassification(cl)
	*degraded = cl.Degraded
	return nil
}

// knownThemes drops theme codes the vocabulary does not define. When any
// are dropped the concepts are rederived from the themes that remain. A nil
// lookup keeps the classification as is.
func knownThemes(themes ThemeLookup, label string, cl domain.Classification) domain.Classification {
	if themes == nil {
		return cl
	}
	kept := make([]string, 0, len(cl.Themes))
	for _, code := range cl.Themes {
		if !themes.Has(code) {
			logger.Warn("%s: dropping %v", label, fmt.Errorf("%w: %q", domain.ErrUnknownTheme, code))
			continue
		}
		kept = append(kept, code)
	}
	if len(kept) < len(cl.Themes) {
		cl.Concepts = themes.ConceptsFor(kept)
	}
	cl.Themes = kept
	return cl
}

// write inserts one batch, retrying once after a backoff.
func (s *IngestionService) write(ctx context.Context, source string, batch []domain.Chunk) error {
	err := s.store.InsertChunks(ctx, batch)
	if err == nil {
		return nil
	}
	logger.Warn("ingest %q: batch at chunk %d rejected, retrying once: %v", source, batch[0].Position, err)

	timer := time.NewTimer(s.retryBackoff)
	select {
	case <-ctx.Done():
		timer.Stop()
		return &domain.StoreWriteError{Source: source, FirstPosition: batch[0].Position, Count: len(batch), Err: ctx.Err()}
	case <-timer.C:
	}

	if err := s.store.InsertChunks(ctx, batch); err != nil {
		return &domain.StoreWriteError{Source: source, FirstPosition: batch[0].Position, Count: len(batch), Err: err}
	}
	return nil
}

func (s *IngestionService) persona(id string) (domain.PersonaProfile, error) {
	if id == "" {
		id = "eclectic"
	}
	p, ok := s.personas[id]
	if !ok {
		return domain.PersonaProfile{}, fmt.Errorf("%w: %q", domain.ErrUnknownPersona, id)
	}
	return p, nil
}

func toSegments(chunks []domain.Chunk) []domain.Segment {
	out := make([]domain.Segment, len(chunks))
	for i, c := range chunks {
		out[i] = domain.Segment{Index: c.Position, Start: c.StartOffset, End: c.EndOffset, Text: c.Content}
	}
	return out
}
