package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/samber/lo"

	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/logger"
)

// RetrieveInput is the input schema for the retrieve_passages tool.
type RetrieveInput struct {
	Query        string   `json:"query" jsonschema:"the dream narrative or question"`
	Persona      string   `json:"persona,omitempty" jsonschema:"interpreter persona (default eclectic)"`
	SessionID    string   `json:"session_id,omitempty" jsonschema:"caller session; passages already returned to it are skipped"`
	Limit        int      `json:"limit,omitempty" jsonschema:"maximum number of passages (default from persona)"`
	Threshold    float64  `json:"threshold,omitempty" jsonschema:"minimum cosine similarity (default from persona)"`
	ContentTypes []string `json:"content_types,omitempty" jsonschema:"only return these content types"`
	Themes       []string `json:"themes,omitempty" jsonschema:"only return passages carrying one of these themes"`
	BoostThemes  []string `json:"boost_themes,omitempty" jsonschema:"favour passages carrying these themes"`
	Hybrid       *bool    `json:"hybrid,omitempty" jsonschema:"blend lexical relevance into the score"`
}

// RetrieveOutput is the output schema for the retrieve_passages tool.
type RetrieveOutput struct {
	Passages  []PassageOutput `json:"passages"`
	Count     int             `json:"count"`
	Topics    []string        `json:"topics,omitempty"`
	Broadened bool            `json:"broadened,omitempty"`
	Degraded  []string        `json:"degraded,omitempty"`
}

// PassageOutput is one ranked passage.
type PassageOutput struct {
	ChunkID       string   `json:"chunk_id"`
	Source        string   `json:"source"`
	Chapter       string   `json:"chapter,omitempty"`
	Position      int      `json:"position"`
	Content       string   `json:"content"`
	ContentType   string   `json:"content_type"`
	Themes        []string `json:"themes,omitempty"`
	Concepts      []string `json:"concepts,omitempty"`
	Score         float64  `json:"score"`
	Semantic      float64  `json:"semantic"`
	Lexical       float64  `json:"lexical"`
	Boost         float64  `json:"boost"`
	MatchedThemes []string `json:"matched_themes,omitempty"`
}

// ClassifyInput is the input schema for the classify_text tool.
type ClassifyInput struct {
	Text    string `json:"text" jsonschema:"the text to classify"`
	Persona string `json:"persona,omitempty" jsonschema:"persona whose theme subset applies"`
}

// ClassifyOutput is the output schema for the classify_text tool.
type ClassifyOutput struct {
	ContentType string            `json:"content_type"`
	Themes      []string          `json:"themes"`
	Concepts    []string          `json:"concepts"`
	Symbols     []string          `json:"symbols,omitempty"`
	Keywords    []string          `json:"keywords,omitempty"`
	Confidence  domain.Confidence `json:"confidence"`
	Theoretical bool              `json:"theoretical"`
	Degraded    bool              `json:"degraded,omitempty"`
}

// ResetSessionInput is the input schema for the reset_session tool.
type ResetSessionInput struct {
	SessionID string `json:"session_id" jsonschema:"the session to forget"`
}

// ResetSessionOutput is the output schema for the reset_session tool.
type ResetSessionOutput struct {
	Existed bool `json:"existed"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve_passages",
		Description: "Retrieve ranked corpus passages relevant to a dream narrative",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reset_session",
		Description: "Forget which passages were already returned to a session",
	}, s.handleResetSession)

	if s.ports.Classification != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "classify_text",
			Description: "Classify text into a content type and dream themes",
		}, s.handleClassify)
	}
}

// handleRetrieve handles the retrieve_passages tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	q := domain.RetrievalQuery{
		Text:                input.Query,
		Persona:             input.Persona,
		SimilarityThreshold: input.Threshold,
		MaxResults:          input.Limit,
		Hybrid:              input.Hybrid,
	}
	if len(input.ContentTypes) > 0 || len(input.Themes) > 0 {
		q.Filter = &domain.MetadataFilter{
			ContentTypes: lo.Map(input.ContentTypes, func(ct string, _ int) domain.ContentType {
				return domain.ContentType(strings.ToLower(ct))
			}),
			Themes: input.Themes,
		}
	}
	if len(input.BoostThemes) > 0 {
		q.Boost = &domain.BoostSpec{Themes: input.BoostThemes}
	}

	var res *domain.RetrievalResult
	err := s.sessions.With(input.SessionID, func(tracker *domain.RepetitionTracker) error {
		var err error
		res, err = s.ports.Retrieval.Retrieve(ctx, q, tracker)
		return err
	})
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Passages:  make([]PassageOutput, len(res.Passages)),
		Count:     len(res.Passages),
		Topics:    res.Analysis.Topics,
		Broadened: res.Broadened,
		Degraded:  res.Degraded,
	}
	for i, p := range res.Passages {
		output.Passages[i] = PassageOutput{
			ChunkID:       p.Chunk.ID,
			Source:        p.Chunk.Source,
			Chapter:       p.Chunk.Chapter,
			Position:      p.Chunk.Position,
			Content:       p.Chunk.Content,
			ContentType:   string(p.Chunk.ContentType),
			Themes:        p.Chunk.Themes,
			Concepts:      p.Chunk.Concepts,
			Score:         p.Score,
			Semantic:      p.Components.Semantic,
			Lexical:       p.Components.Lexical,
			Boost:         p.Components.Boost,
			MatchedThemes: p.MatchedThemes,
		}
	}

	return nil, output, nil
}

// handleClassify handles the classify_text tool invocation.
func (s *Server) handleClassify(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ClassifyInput,
) (*mcp.CallToolResult, ClassifyOutput, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, ClassifyOutput{}, errors.New("text is required")
	}

	var vec []float32
	if s.ports.Embedder != nil {
		v, err := s.ports.Embedder.Embed(ctx, input.Text)
		if err != nil {
			logger.Warn("mcp: classify without embedding: %v", err)
		} else {
			vec = v
		}
	}

	cl := s.ports.Classification.Classify(ctx, input.Text, input.Persona, vec)
	return nil, ClassifyOutput{
		ContentType: string(cl.PrimaryContentType),
		Themes:      cl.Themes,
		Concepts:    cl.Concepts,
		Symbols:     cl.Symbols,
		Keywords:    cl.Keywords,
		Confidence:  cl.Confidence,
		Theoretical: cl.Discourse.IsTheoretical,
		Degraded:    cl.Degraded,
	}, nil
}

// handleResetSession handles the reset_session tool invocation.
func (s *Server) handleResetSession(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ResetSessionInput,
) (*mcp.CallToolResult, ResetSessionOutput, error) {
	return nil, ResetSessionOutput{Existed: s.sessions.Reset(input.SessionID)}, nil
}
