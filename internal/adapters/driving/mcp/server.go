package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/reverie/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

const instructions = `Call retrieve_passages with the dreamer's narrative to get ranked corpus
passages for the interpreting persona. Pass a stable session_id to avoid being shown
the same passages twice; call reset_session when the conversation starts over.`

const (
	healthTimeout   = 2 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Server is the MCP server for reverie.
type Server struct {
	ports    *Ports
	sessions *SessionRegistry
	server   *mcp.Server
}

// NewServer creates a new MCP server with the given ports. sessions may be
// nil, in which case a default-sized registry is used.
func NewServer(ports *Ports, sessions *SessionRegistry) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}
	if sessions == nil {
		sessions = NewSessionRegistry(0, 0)
	}

	s := &Server{
		ports:    ports,
		sessions: sessions,
		server: mcp.NewServer(
			&mcp.Implementation{Name: "reverie", Version: Version},
			&mcp.ServerOptions{Instructions: instructions},
		),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run serves over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	logger.Debug("mcp: serving over stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves streamable HTTP on addr until ctx is cancelled. The MCP
// endpoint is mounted at / and a JSON health report at /healthz.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.httpHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("mcp: shutdown: %v", err)
		}
	}()

	logger.Info("mcp: listening on %s", addr)
	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) httpHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("/", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil))
	return mux
}

// healthReport is the body of GET /healthz.
type healthReport struct {
	Status    string `json:"status"`
	Sessions  int    `json:"sessions"`
	Themes    int    `json:"themes"`
	Embedding string `json:"embedding,omitempty"`
}

// handleHealth reports "degraded" with 503 when the embedder does not
// answer, since retrieval then returns empty results.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := healthReport{Status: "ok", Sessions: s.sessions.Len()}
	if s.ports.Themes != nil {
		report.Themes = len(s.ports.Themes.List(""))
	}

	code := http.StatusOK
	if s.ports.Embedder != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		report.Embedding = s.ports.Embedder.ModelName()
		if err := s.ports.Embedder.Ping(ctx); err != nil {
			logger.Warn("mcp: health: embedder: %v", err)
			report.Status, code = "degraded", http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(report); err != nil {
		logger.Debug("mcp: health: %v", err)
	}
}
