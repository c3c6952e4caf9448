package driving

import (
	"context"

	"github.com/custodia-labs/reverie/internal/core/domain"
)

// ThemeService owns the theme vocabulary and its embeddings.
type ThemeService interface {
	// List returns themes available to the persona; empty persona lists all.
	List(persona string) []domain.Theme

	// Get returns one theme or ErrUnknownTheme.
	Get(code string) (domain.Theme, error)

	// EmbedAll embeds every theme lacking a vector (or all, when force is set)
	// and persists them. Returns the number embedded.
	EmbedAll(ctx context.Context, force bool) (int, error)

	// Reload re-reads the vocabulary and refreshes embeddings from the store.
	Reload(ctx context.Context) error

	// Watch reloads whenever the vocabulary override file changes,
	// until ctx ends.
	Watch(ctx context.Context) error
}
