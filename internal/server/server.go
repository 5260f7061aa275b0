// Package server runs the HTTP surface of the relay service: the
// authorization routes, the relay ingress, metrics and the MCP endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/brizzai/monzo2discord/internal/auth"
	"github.com/brizzai/monzo2discord/internal/auth/handlers"
	"github.com/brizzai/monzo2discord/internal/auth/middleware"
	"github.com/brizzai/monzo2discord/internal/config"
	"github.com/brizzai/monzo2discord/internal/logger"
	"github.com/brizzai/monzo2discord/internal/relay"
	"github.com/brizzai/monzo2discord/internal/server/handler"
	"github.com/brizzai/monzo2discord/internal/server/tool"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// shutdownTimeout is the maximum time to wait for server shutdown
	shutdownTimeout = 5 * time.Second
)

// Server serves the HTTP API and, when enabled, the MCP endpoint.
type Server struct {
	config  *config.ServerConfig
	mcp     *mcpserver.MCPServer
	handler *handler.Handler
	tool    *tool.Handler
}

type ServerParams struct {
	fx.In

	Config       *config.ServerConfig
	AuthHandler  *handlers.Handler
	RelayHandler *relay.Handler
	Auth         *auth.Service
	Relays       *relay.Service
}

// NewServer creates a new server instance.
func NewServer(params ServerParams) (*Server, error) {
	doc, err := NewOpenAPIDocument(params.Config.Version)
	if err != nil {
		return nil, err
	}
	metrics := MetricsHandler(MetricsRegistry(params.Config.Version))

	srv := &Server{
		config:  params.Config,
		handler: handler.NewHandler(
			params.AuthHandler,
			params.RelayHandler,
			metrics,
			doc,
			middleware.Authenticate(params.Config.APIToken),
		),
		tool:    tool.NewHandler(params.Auth, params.Relays),
	}

	if params.Config.MCPEnabled {
		srv.mcp = mcpserver.NewMCPServer(
			params.Config.Name,
			params.Config.Version,
			mcpserver.WithToolCapabilities(false),
		)
		srv.tool.Register(srv.mcp)
	}
	return srv, nil
}

// HTTPHandler returns the complete handler tree.
func (s *Server) HTTPHandler() http.Handler {
	var mcpHandler http.Handler
	if s.mcp != nil {
		mcpHandler = mcpserver.NewStreamableHTTPServer(s.mcp)
	}
	return s.handler.CreateHTTPHandler(mcpHandler)
}

// Listen binds the configured address.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", s.config.Addr(), err)
	}
	return ln, nil
}

// Serve handles requests on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.HTTPHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel for server errors
	errChan := make(chan error, 1)

	go func() {
		logger.Info("Starting server",
			zap.String("address", ln.Addr().String()),
			zap.Bool("mcp", s.mcp != nil),
		)

		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down server", zap.Duration("timeout", shutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil

	case err := <-errChan:
		return err
	}
}

func registerLifecycle(lc fx.Lifecycle, s *Server, shutdowner fx.Shutdowner) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ln, err := s.Listen()
			if err != nil {
				return err
			}
			go func() {
				err := s.Serve(ctx, ln)
				if err != nil {
					logger.Error("Server stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
				done <- err
			}()
			return nil
		},
		OnStop: func(stop context.Context) error {
			cancel()
			select {
			case err := <-done:
				return err
			case <-stop.Done():
				return stop.Err()
			}
		},
	})
}

// Module provides the server dependencies
var Module = fx.Module("server",
	fx.Provide(
		NewServer,
	),
	fx.Invoke(registerLifecycle),
)
