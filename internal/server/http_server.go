// Package server constructs and starts the room chat HTTP service with
// helpers that apply sensible production defaults.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server ties the websocket hub to the chat core for one process.
type Server struct {
	cfg      Config
	hub      *Hub
	handler  *chat.Handler
	origins  *originPolicy
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// New builds a Server from cfg. A nil cfg means defaults.
func New(cfg *Config, logger *zap.Logger) *Server {
	if cfg == nil {
		cfg = NewConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := cfg.sanitize()

	hub := NewHub(logger.Named("hub"))
	s := &Server{
		cfg:     c,
		hub:     hub,
		handler: chat.NewHandler(hub, logger.Named("chat"), chat.WithDataCooldown(c.DataCooldown)),
		origins: newOriginPolicy(c.AllowedOrigins, logger),
		logger:  logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.checkOrigin,
	}
	return s
}

// Config returns the sanitized configuration in use.
func (s *Server) Config() Config {
	return s.cfg
}

// Hub returns the server's hub for shutdown coordination and inspection.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Sessions returns the chat session store.
func (s *Server) Sessions() *chat.SessionStore {
	return s.handler.Sessions()
}

// StartHub runs the hub in its own goroutine. Call it before serving.
func (s *Server) StartHub() {
	go s.hub.Run()
	s.logger.Info("hub started and ready to manage websocket connections")
}

// CreateServer creates and configures an HTTP server with the specified port and handler.
// It sets reasonable timeout values for production use.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// StartServer listens until the server is shut down. A graceful shutdown
// is not reported as an error.
func (s *Server) StartServer(httpServer *http.Server) error {
	s.logger.Info("server listening", zap.String("addr", httpServer.Addr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting HTTP requests, then closes every websocket and
// waits for the client pumps, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context, httpServer *http.Server) error {
	s.logger.Info("shutting down http server")

	var errs []error
	if httpServer != nil {
		if err := httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("http server shutdown error", zap.Error(err))
			errs = append(errs, err)
		}
	}

	timeout := s.cfg.ShutdownTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if err := s.hub.Shutdown(timeout); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
