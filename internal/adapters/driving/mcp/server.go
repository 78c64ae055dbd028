package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/parley/internal/core/domain"
	"github.com/custodia-labs/parley/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

// DefaultMaxSessions bounds the named conversations kept between calls.
// The least recently used one is closed when another is opened.
const DefaultMaxSessions = 64

const shutdownTimeout = 5 * time.Second

// Server exposes the orchestrator and knowledge base over MCP.
type Server struct {
	ports  *Ports
	server *mcp.Server

	// mu makes lookup-or-create on sessions atomic.
	mu       sync.Mutex
	sessions *lru.Cache[string, *domain.ConversationSession]
}

// Option configures a Server.
type Option func(*options)

type options struct {
	maxSessions int
}

// WithMaxSessions overrides DefaultMaxSessions.
func WithMaxSessions(n int) Option {
	return func(o *options) { o.maxSessions = n }
}

// NewServer creates an MCP server over ports.
func NewServer(ports *Ports, opts ...Option) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	o := options{maxSessions: DefaultMaxSessions}
	for _, opt := range opts {
		opt(&o)
	}

	sessions, err := lru.NewWithEvict(o.maxSessions, func(id string, session *domain.ConversationSession) {
		logger.Debug("MCP session %q released", id)
		session.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("creating session cache: %w", err)
	}

	s := &Server{
		ports:    ports,
		server:   mcp.NewServer(&mcp.Implementation{Name: "parley", Version: Version}, nil),
		sessions: sessions,
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the streamable HTTP transport on addr until ctx is
// cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	defer s.Close()

	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("MCP HTTP shutdown: %v", err)
		}
	}()

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		<-stopped
		return nil
	}
	return err
}

// Close ends every named conversation.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions.Purge()
}

// session returns the conversation for id, creating it on first use.
// An empty id yields a one-shot session the caller must close.
func (s *Server) session(id string) (session *domain.ConversationSession, oneShot bool) {
	if id == "" {
		return s.ports.Orchestrator.NewSession(), true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions.Get(id); ok && !existing.Closed() {
		return existing, false
	}
	session = s.ports.Orchestrator.NewSession()
	s.sessions.Add(id, session)
	return session, false
}
