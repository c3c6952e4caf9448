package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/core/ports/driven"
	"github.com/custodia-labs/reverie/internal/core/ports/driving"
	"github.com/custodia-labs/reverie/internal/logger"
	"github.com/custodia-labs/reverie/internal/vocabulary"
)

// Ensure ThemeService implements the interface.
var _ driving.ThemeService = (*ThemeService)(nil)

// reloadDebounce coalesces the burst of events editors emit on save.
const reloadDebounce = 250 * time.Millisecond

// ThemeService holds the theme vocabulary and its embeddings in memory.
// Reads are concurrent; reloads and re-embedding swap the whole set.
type ThemeService struct {
	path     string
	store    driven.KnowledgeStore
	embedder driven.EmbeddingService

	mu         sync.RWMutex
	vocab      *vocabulary.Vocabulary
	embeddings map[string][]float32
}

// NewThemeService loads the vocabulary at path, or the built-in one when
// path is empty. store and embedder may be nil; embeddings are then never
// loaded or computed and classification stays lexical.
func NewThemeService(path string, store driven.KnowledgeStore, embedder driven.EmbeddingService) (*ThemeService, error) {
	vocab, err := vocabulary.Load(path)
	if err != nil {
		return nil, err
	}
	return &ThemeService{
		path:       path,
		store:      store,
		embedder:   embedder,
		vocab:      vocab,
		embeddings: make(map[string][]float32),
	}, nil
}

// List returns themes available to persona with known embeddings attached.
func (s *ThemeService) List(persona string) []domain.Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()

	themes := s.vocab.ForPersona(persona)
	for i := range themes {
		themes[i].Embedding = s.embeddings[themes[i].Code]
	}
	return themes
}

// ForPersona makes the service a classifier theme source.
func (s *ThemeService) ForPersona(persona string) []domain.Theme {
	return s.List(persona)
}

// Get returns one theme by code.
func (s *ThemeService) Get(code string) (domain.Theme, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.vocab.Theme(code)
	if !ok {
		return domain.Theme{}, fmt.Errorf("%w: %q", domain.ErrUnknownTheme, code)
	}
	t.Embedding = s.embeddings[code]
	return t, nil
}

// Has reports whether code is in the loaded vocabulary.
func (s *ThemeService) Has(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vocab.Has(code)
}

// ConceptsFor maps theme codes to their concepts.
func (s *ThemeService) ConceptsFor(codes []string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vocab.ConceptsFor(codes)
}

// Embedded returns how many themes carry an embedding.
func (s *ThemeService) Embedded() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.embeddings)
}

// EmbedAll embeds "label: description" for every theme lacking a vector,
// or for all themes when force is set, then saves the vocabulary.
func (s *ThemeService) EmbedAll(ctx context.Context, force bool) (int, error) {
	if s.embedder == nil {
		return 0, fmt.Errorf("embed themes: %w: no embedding service configured", domain.ErrEmbeddingUnavailable)
	}

	s.mu.RLock()
	themes := s.vocab.Themes()
	var pending []domain.Theme
	for _, t := range themes {
		if force || len(s.embeddings[t.Code]) != s.embedder.Dimensions() {
			pending = append(pending, t)
		}
	}
	s.mu.RUnlock()

	if len(pending) == 0 {
		logger.Debug("themes: all %d themes already embedded", len(themes))
		return 0, nil
	}

	texts := make([]string, len(pending))
	for i, t := range pending {
		texts[i] = t.EmbeddingText()
	}
	vecs, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		var embErr *domain.EmbeddingError
		if errors.As(err, &embErr) {
			embErr.Op = "theme"
			return 0, embErr
		}
		return 0, &domain.EmbeddingError{Op: "theme", Position: -1, Attempts: 1, Err: err}
	}

	s.mu.Lock()
	for i, t := range pending {
		s.embeddings[t.Code] = vecs[i]
	}
	for i := range themes {
		themes[i].Embedding = s.embeddings[themes[i].Code]
	}
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.SaveThemes(ctx, themes); err != nil {
			return len(pending), fmt.Errorf("save themes: %w", err)
		}
	}
	logger.Info("themes: embedded %d of %d themes with %s", len(pending), len(themes), s.embedder.ModelName())
	return len(pending), nil
}

// Reload re-reads the vocabulary file and restores stored embeddings for
// themes whose embedding text is unchanged. A vocabulary that fails to
// parse leaves the current one in place.
func (s *ThemeService) Reload(ctx context.Context) error {
	vocab, err := vocabulary.Load(s.path)
	if err != nil {
		return fmt.Errorf("reload vocabulary: %w", err)
	}

	embeddings := make(map[string][]float32)
	if s.store != nil {
		stored, err := s.store.ListThemes(ctx)
		if err != nil {
			return fmt.Errorf("load theme embeddings: %w", err)
		}
		dims := 0
		if s.embedder != nil {
			dims = s.embedder.Dimensions()
		}
		for _, st := range stored {
			t, ok := vocab.Theme(st.Code)
			if !ok || len(st.Embedding) == 0 || t.EmbeddingText() != st.EmbeddingText() {
				continue
			}
			if dims > 0 && len(st.Embedding) != dims {
				continue
			}
			embeddings[st.Code] = st.Embedding
		}
	}

	s.mu.Lock()
	s.vocab = vocab
	s.embeddings = embeddings
	s.mu.Unlock()

	logger.Debug("themes: loaded %d themes, %d with embeddings", vocab.Len(), len(embeddings))
	return nil
}

// Watch reloads the vocabulary whenever the override file changes. It
// returns nil when ctx ends, and immediately when the built-in vocabulary
// is in use.
func (s *ThemeService) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors often replace the file instead of
	// writing it in place, which drops a watch on the file itself.
	target := filepath.Clean(s.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}
	logger.Debug("themes: watching %s", target)

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce = time.After(reloadDebounce)

		case <-debounce:
			debounce = nil
			if err := s.Reload(ctx); err != nil {
				logger.Warn("themes: keeping previous vocabulary: %v", err)
				continue
			}
			logger.Info("themes: vocabulary reloaded from %s", target)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("themes: watcher error: %v", err)
		}
	}
}
