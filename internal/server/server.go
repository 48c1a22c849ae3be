// Package server provides the HTTP API for AI blog generation.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/blog-agent/internal/config"
	"github.com/jonathan/blog-agent/internal/db"
	"github.com/jonathan/blog-agent/internal/pipeline"
	"github.com/jonathan/blog-agent/internal/queue"
	"github.com/jonathan/blog-agent/internal/server/middleware"
	"github.com/jonathan/blog-agent/internal/server/ratelimit"
	"github.com/jonathan/blog-agent/internal/types"
)

const shutdownTimeout = 30 * time.Second

// Publisher creates posts from generation requests.
type Publisher interface {
	Publish(ctx context.Context, req types.PublishRequest, progress pipeline.ProgressCallback) (*pipeline.Result, error)
	PublishBatch(ctx context.Context, req types.BatchRequest) ([]*pipeline.Result, error)
}

// JobQueue accepts background generations and reports their state.
type JobQueue interface {
	Enqueue(ctx context.Context, payload any) (string, error)
	Status(ctx context.Context, id string) (*queue.Status, error)
}

// PostReader reads created posts back. Both methods return nil, nil when
// nothing matches.
type PostReader interface {
	GetPost(ctx context.Context, id uuid.UUID) (*db.Post, error)
	GetPostBySlug(ctx context.Context, slug string) (*db.Post, error)
}

// Deps are the collaborators of the server.
type Deps struct {
	Publisher Publisher
	Jobs      JobQueue
	Posts     PostReader
	Config    *config.Config
	Logger    *zap.Logger
}

// Server represents the HTTP server
type Server struct {
	httpServer     *http.Server
	engine         *gin.Engine
	publisher      Publisher
	jobs           JobQueue
	posts          PostReader
	requestTimeout time.Duration
	rateLimiter    *ratelimit.Limiter
	logger         *zap.Logger
}

// New creates a new server instance
func New(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("server")

	if !d.Config.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		publisher:      d.Publisher,
		jobs:           d.Jobs,
		posts:          d.Posts,
		requestTimeout: d.Config.Timeouts.Request,
		rateLimiter:    ratelimit.NewLimiter(ratelimit.FromConfig(d.Config.RateLimit)),
		logger:         logger,
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Recovery(logger),
		middleware.CORS(),
		middleware.RateLimit(s.rateLimiter, logger),
	)

	engine.GET("/health", s.handleHealth)

	blogs := engine.Group("/blogs")
	blogs.POST("/ai", s.handleGenerate)
	blogs.POST("/ai/batch", s.handleGenerateBatch)
	blogs.POST("/ai/jobs", s.handleEnqueue)
	blogs.GET("/ai/jobs/:id", s.handleJobStatus)
	blogs.GET("/slug/:slug", s.handleGetPostBySlug)
	blogs.GET("/:id", s.handleGetPost)

	s.engine = engine
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", d.Config.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// No write timeout: batches have no overall deadline.
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	defer s.rateLimiter.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}
