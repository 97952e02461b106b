// Package ipc exposes the command registry to the front-end over a loopback
// HTTP endpoint.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"leaudio/internal/commands"
	"leaudio/internal/logger"
)

const (
	component       = "Bridge"
	shutdownTimeout = 5 * time.Second
	maxBodyBytes    = 1 << 20
)

// Invoker dispatches commands by name.
type Invoker interface {
	Invoke(ctx context.Context, name string, args json.RawMessage) (interface{}, error)
	Has(name string) bool
	Names() []string
}

type ServerOption func(*Server)

// WithBaseContext roots every request context in ctx, so cancelling it
// aborts in-flight invocations.
func WithBaseContext(ctx context.Context) ServerOption {
	return func(s *Server) { s.baseCtx = ctx }
}

type InvokeResponse struct {
	ID      string      `json:"id"`
	Command string      `json:"command"`
	Result  interface{} `json:"result"`
}

type ErrorResponse struct {
	ID      string `json:"id,omitempty"`
	Command string `json:"command,omitempty"`
	Error   string `json:"error"`
}

type Server struct {
	invoker    Invoker
	logger     logger.Logger
	engine     *gin.Engine
	httpServer *http.Server
	addr       string
	baseCtx    context.Context

	mu       sync.Mutex
	listener net.Listener
}

func NewServer(addr string, invoker Invoker, log logger.Logger, opts ...ServerOption) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		invoker: invoker,
		logger:  log,
		engine:  engine,
		addr:    addr,
		baseCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}

	engine.GET("/health", s.health)
	engine.GET("/ipc", s.list)
	engine.POST("/ipc/:command", s.invoke)

	s.httpServer = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       s.baseContext,
	}
	return s
}

func (s *Server) baseContext(net.Listener) context.Context {
	return s.baseCtx
}

// Handler returns the router for mounting or testing without a listener.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start binds the listener and returns once it is ready; serving continues
// in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("bridge failed to bind %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(component, err, map[string]interface{}{"addr": listener.Addr().String()})
		}
	}()

	s.logger.Info(component, "listening", map[string]interface{}{
		"addr":     listener.Addr().String(),
		"commands": s.invoker.Names(),
	})
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Shutdown satisfies shutdown.Shutdownable.
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error(component, err, nil)
		return
	}
	s.logger.Debug(component, "stopped", nil)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) list(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"commands": s.invoker.Names()})
}

func (s *Server) invoke(c *gin.Context) {
	id := uuid.NewString()
	name := c.Param("command")

	if !s.invoker.Has(name) {
		c.JSON(http.StatusNotFound, ErrorResponse{ID: id, Command: name, Error: fmt.Sprintf("%s: %s", commands.ErrUnknownCommand, name)})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, ErrorResponse{ID: id, Command: name, Error: err.Error()})
		return
	}

	start := time.Now()
	result, err := s.invoker.Invoke(c.Request.Context(), name, json.RawMessage(body))
	fields := map[string]interface{}{
		"id":       id,
		"command":  name,
		"duration": time.Since(start).String(),
	}

	if err != nil {
		fields["error"] = err.Error()
		s.logger.Warning(component, "invocation rejected", fields)
		c.JSON(statusFor(err), ErrorResponse{ID: id, Command: name, Error: err.Error()})
		return
	}

	s.logger.Debug(component, "invoked", fields)
	c.JSON(http.StatusOK, InvokeResponse{ID: id, Command: name, Result: result})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, commands.ErrUnknownCommand):
		return http.StatusNotFound
	case errors.Is(err, commands.ErrUnexpectedArgs):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
