package mcp

import (
	"github.com/custodia-labs/reverie/internal/core/ports/driven"
	"github.com/custodia-labs/reverie/internal/core/ports/driving"
)

// Ports aggregates the services the MCP server exposes.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval ranks passages for a query.
	Retrieval driving.RetrievalService

	// Classification tags text with a content type and themes.
	Classification driving.ClassificationService

	// Themes lists the theme vocabulary.
	Themes driving.ThemeService

	// Embedder supplies the vector for semantic classification. Without
	// it, classify_text runs the lexical pass only.
	Embedder driven.EmbeddingService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	// Classification and Themes are optional
	return nil
}
