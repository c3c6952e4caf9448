// Package mcp provides an MCP (Model Context Protocol) server adapter for
// reverie. Prompt assemblers call it to fetch ranked passages for a dream
// narrative and to classify text against the theme vocabulary.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
