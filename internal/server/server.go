// Package server is a reference implementation of the todo remote store.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Makepad-fr/tada-remote/internal/model"
	"github.com/Makepad-fr/tada-remote/internal/storage/sqlite"
)

// Repository is what the handlers need from storage. *sqlite.Store satisfies it.
type Repository interface {
	List(ctx context.Context, status model.Status) ([]model.Todo, error)
	Create(ctx context.Context, description string, status model.Status) (model.Todo, error)
	Update(ctx context.Context, id string, ch sqlite.Changes) (model.Todo, error)
	Delete(ctx context.Context, id string) error
	Import(ctx context.Context, r io.Reader) (int, error)
	Export(ctx context.Context, w io.Writer) error
}

// Server provides HTTP handlers for the todo store.
type Server struct {
	engine *gin.Engine
	repo   Repository
	logger *slog.Logger
}

// New constructs the HTTP server with routes and middleware configured.
// Request lines go to accessLog; nil turns the access log off. The gin mode
// is left to the caller.
func New(repo Repository, logger *slog.Logger, accessLog io.Writer) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if accessLog != nil {
		router.Use(gin.LoggerWithWriter(accessLog, "/healthz"))
	}
	router.MaxMultipartMemory = 8 << 20

	srv := &Server{
		engine: router,
		repo:   repo,
		logger: logger,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires the todo API together.
func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)

	todos := s.engine.Group("/todos")
	{
		todos.GET("", s.handleList)
		todos.GET("/filter", s.handleFilter)
		todos.POST("", s.handleCreate)
		todos.PUT("/:id", s.handleUpdate)
		todos.DELETE("/:id", s.handleDelete)
		todos.POST("/upload", s.handleUpload)
		todos.GET("/download", s.handleDownload)
	}
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondError logs the error and returns a JSON payload with a status
// derived from the storage error.
func (s *Server) respondError(c *gin.Context, fallback int, err error) {
	status := fallback
	switch {
	case errors.Is(err, sqlite.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, sqlite.ErrInvalid):
		status = http.StatusBadRequest
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	} else {
		s.logger.Warn("request rejected", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
