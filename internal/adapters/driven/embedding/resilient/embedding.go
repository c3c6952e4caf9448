// Package resilient wraps an embedding service with a per-call timeout,
// bounded retries with exponential backoff, token-bucket throttling and an
// optional query-embedding cache.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/core/ports/driven"
	"github.com/custodia-labs/reverie/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default retry budget.
const (
	DefaultAttempts       = 3
	DefaultInitialBackoff = time.Second
	DefaultMaxBackoff     = 8 * time.Second
	DefaultTimeout        = 30 * time.Second
)

// Config controls retries, throttling and caching.
type Config struct {
	// Attempts is the total number of calls per request (default 3).
	Attempts int

	// InitialBackoff is the wait after the first failure; it doubles per
	// attempt up to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Timeout bounds each individual call.
	Timeout time.Duration

	// RequestsPerSecond throttles calls to the inner service. 0 disables.
	RequestsPerSecond float64

	// Cache, when set, serves and stores single-text embeddings (Embed).
	// A cache hit skips the inner service entirely.
	Cache driven.EmbeddingCache

	// Op labels EmbeddingErrors ("query", "ingest", "theme").
	Op string
}

// EmbeddingService is a driven.EmbeddingService decorator.
type EmbeddingService struct {
	inner   driven.EmbeddingService
	cfg     Config
	limiter *rate.Limiter
}

// New wraps inner. Zero config fields take their defaults.
func New(inner driven.EmbeddingService, cfg Config) *EmbeddingService {
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultInitialBackoff
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = max(DefaultMaxBackoff, cfg.InitialBackoff)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Op == "" {
		cfg.Op = "embed"
	}

	s := &EmbeddingService{inner: inner, cfg: cfg}
	if cfg.RequestsPerSecond > 0 {
		burst := max(1, int(cfg.RequestsPerSecond))
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return s
}

// Embed returns the vector for text, consulting the cache first. Failure
// after the retry budget returns a *domain.EmbeddingError carrying a short
// hash of the text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	model := s.inner.ModelName()
	if s.cfg.Cache != nil {
		vec, ok, err := s.cfg.Cache.Get(ctx, model, text)
		switch {
		case err != nil:
			logger.Warn("embedding cache get failed: %v", err)
		case ok && len(vec) == s.inner.Dimensions():
			logger.Debug("embedding cache hit for %s", logger.QueryHash(text))
			return vec, nil
		}
	}

	var vec []float32
	attempts, err := s.retry(ctx, func(callCtx context.Context) error {
		v, err := s.inner.Embed(callCtx, text)
		if err != nil {
			return err
		}
		if len(v) != s.inner.Dimensions() {
			return fmt.Errorf("%w: got %d, expected %d", domain.ErrDimensionMismatch, len(v), s.inner.Dimensions())
		}
		vec = v
		return nil
	})
	if err != nil {
		return nil, &domain.EmbeddingError{
			Op:        s.cfg.Op,
			Position:  -1,
			QueryHash: logger.QueryHash(text),
			Attempts:  attempts,
			Err:       err,
		}
	}

	if s.cfg.Cache != nil {
		if err := s.cfg.Cache.Set(ctx, model, text, vec); err != nil {
			logger.Warn("embedding cache set failed: %v", err)
		}
	}
	return vec, nil
}

// EmbedBatch embeds texts with the same retry budget applied to the whole
// batch. The cache is not consulted.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	attempts, err := s.retry(ctx, func(callCtx context.Context) error {
		vecs, err := s.inner.EmbedBatch(callCtx, texts)
		if err != nil {
			return err
		}
		if len(vecs) != len(texts) {
			return fmt.Errorf("got %d embeddings for %d texts", len(vecs), len(texts))
		}
		out = vecs
		return nil
	})
	if err != nil {
		return nil, &domain.EmbeddingError{Op: s.cfg.Op, Position: -1, Attempts: attempts, Err: err}
	}
	return out, nil
}

// retry runs call until it succeeds, fails permanently or the attempt
// budget is spent. It returns the number of attempts made.
func (s *EmbeddingService) retry(ctx context.Context, call func(context.Context) error) (int, error) {
	backoff := s.cfg.InitialBackoff
	var lastErr error
	for attempt := 1; attempt <= s.cfg.Attempts; attempt++ {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return attempt - 1, err
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		err := call(callCtx)
		cancel()
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return attempt, ctx.Err()
		}
		if permanent(err) {
			return attempt, err
		}
		if attempt == s.cfg.Attempts {
			break
		}

		logger.Debug("embedding attempt %d/%d failed, retrying in %s: %v", attempt, s.cfg.Attempts, backoff, err)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, s.cfg.MaxBackoff)
	}
	return s.cfg.Attempts, lastErr
}

// permanent reports errors that retrying cannot fix.
func permanent(err error) bool {
	return errors.Is(err, domain.ErrDimensionMismatch) ||
		errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, context.Canceled)
}

// Dimensions returns the inner service's vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the inner service's model name.
func (s *EmbeddingService) ModelName() string {
	return s.inner.ModelName()
}

// Ping checks the inner service once, within the call timeout.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	return s.inner.Ping(ctx)
}

// Close closes the inner service.
func (s *EmbeddingService) Close() error {
	return s.inner.Close()
}

// EmbedSparse forwards to the inner service when it produces sparse
// weights, and returns nil weights otherwise.
func (s *EmbeddingService) EmbedSparse(ctx context.Context, text string) (map[string]float32, error) {
	if sp, ok := s.inner.(driven.SparseEmbedder); ok {
		return sp.EmbedSparse(ctx, text)
	}
	return nil, nil
}
