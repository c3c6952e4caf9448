package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for reverie resources.
	uriScheme = "reverie://"
)

// themeInfo is the resource view of one theme.
type themeInfo struct {
	Code        string   `json:"code"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Concepts    []string `json:"concepts,omitempty"`
	Personas    []string `json:"personas,omitempty"`
	Embedded    bool     `json:"embedded"`
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for the whole vocabulary.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "themes",
		Name:        "themes",
		Description: "The dream theme vocabulary",
		MIMEType:    "application/json",
	}, s.handleThemesResource)

	// Template for one persona's subset.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "themes/{persona}",
		Name:        "persona-themes",
		Description: "Themes available to a specific persona",
		MIMEType:    "application/json",
	}, s.handleThemesResource)
}

// handleThemesResource returns the vocabulary, restricted to a persona when
// the URI names one.
func (s *Server) handleThemesResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	persona, ok := extractPersona(req.Params.URI)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	infos := []themeInfo{}
	if s.ports.Themes != nil {
		for _, t := range s.ports.Themes.List(persona) {
			infos = append(infos, themeInfo{
				Code:        t.Code,
				Label:       t.Label,
				Description: t.Description,
				Concepts:    t.Concepts,
				Personas:    t.Personas,
				Embedded:    len(t.Embedding) > 0,
			})
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling themes: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractPersona parses reverie://themes or reverie://themes/{persona}.
// The bare URI yields an empty persona, meaning all themes.
func extractPersona(uri string) (string, bool) {
	const base = uriScheme + "themes"

	if uri == base {
		return "", true
	}
	if !strings.HasPrefix(uri, base+"/") {
		return "", false
	}
	persona := strings.TrimPrefix(uri, base+"/")
	if persona == "" || strings.Contains(persona, "/") {
		return "", false
	}
	return persona, true
}
