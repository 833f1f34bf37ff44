package mcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/qa-extract/internal/logger"
)

const (
	serverName = "qa-extract"

	// Version is reported to clients during initialisation.
	Version = "0.1.0"

	instructions = "Inspect qa-extract output: validate citation markers in a JSONL stream, " +
		"summarise records per domain, and read fingerprint cache statistics."
)

// Server exposes extraction reports over the Model Context Protocol.
type Server struct {
	ports       *Ports
	inner       *mcp.Server
	drainPeriod time.Duration
}

// Option tunes a Server.
type Option func(*Server)

// WithDrainPeriod bounds how long the HTTP transport waits for open
// sessions when the context is cancelled.
func WithDrainPeriod(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.drainPeriod = d
		}
	}
}

// NewServer validates ports and registers the tools and resources.
func NewServer(ports *Ports, opts ...Option) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("mcp server: %w", err)
	}

	s := &Server{
		ports:       ports,
		drainPeriod: 5 * time.Second,
		inner: mcp.NewServer(
			&mcp.Implementation{Name: serverName, Version: Version},
			&mcp.ServerOptions{Instructions: instructions},
		),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run serves one client over stdin/stdout until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	return s.inner.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP listens on addr and serves the streamable HTTP transport.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts HTTP sessions on ln until ctx is cancelled, then drains.
// The listener is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler: mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
			return s.inner
		}, nil),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("MCP server listening on %s", ln.Addr())
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.drainPeriod)
		defer cancel()
		if err := srv.Shutdown(drainCtx); err != nil {
			logger.Warn("MCP HTTP shutdown: %v", err)
		}
		return nil
	})
	return g.Wait()
}

// Connect attaches a single session on t. Tests use it with in-memory transports.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.inner.Connect(ctx, t, nil)
}
