package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jonathan/blog-agent/internal/config"
	"github.com/jonathan/blog-agent/internal/db"
	"github.com/jonathan/blog-agent/internal/fetch"
	"github.com/jonathan/blog-agent/internal/imagegen"
	"github.com/jonathan/blog-agent/internal/imaging"
	"github.com/jonathan/blog-agent/internal/llm"
	"github.com/jonathan/blog-agent/internal/logging"
	"github.com/jonathan/blog-agent/internal/pipeline"
	"github.com/jonathan/blog-agent/internal/queue"
	"github.com/jonathan/blog-agent/internal/slug"
	"github.com/jonathan/blog-agent/internal/social"
	"github.com/jonathan/blog-agent/internal/storage"
	"github.com/jonathan/blog-agent/internal/writing"
)

// app holds the process-wide collaborators of a command.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	db      *db.DB
	rdb     *redis.Client
	queue   *queue.Queue
	llm     llm.Client
	service *pipeline.Service
}

// needs selects which backends a command connects to.
type needs struct {
	database bool
	redis    bool
	pipeline bool
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newApp(ctx context.Context, n needs) (_ *app, err error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if n.database {
		if cfg.Database.URL == "" {
			return nil, errors.New("DATABASE_URL is required")
		}
		if a.db, err = db.Connect(ctx, cfg.Database.URL); err != nil {
			return nil, err
		}
		if err = a.db.Migrate(ctx); err != nil {
			return nil, err
		}
	}

	if n.redis {
		opts, perr := redis.ParseURL(cfg.Redis.URL)
		if perr != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", perr)
		}
		a.rdb = redis.NewClient(opts)
		a.queue = queue.New(a.rdb, queueOptions(cfg.Queue))
		if err = a.queue.Ping(ctx); err != nil {
			return nil, err
		}
	}

	if n.pipeline {
		if a.llm, err = llm.NewGeminiClient(ctx, cfg.Gemini.APIKey); err != nil {
			return nil, fmt.Errorf("failed to create text model client: %w", err)
		}
		a.service = newService(cfg, a.llm, a.db, logger)
	}

	return a, nil
}

// Close releases every backend that was opened.
func (a *app) Close() {
	if a.llm != nil {
		if err := a.llm.Close(); err != nil {
			a.logger.Warn("failed to close text model client", zap.Error(err))
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Warn("failed to close redis client", zap.Error(err))
		}
	}
	if a.db != nil {
		a.db.Close()
	}
	_ = a.logger.Sync()
}

func queueOptions(cfg config.QueueConfig) queue.Options {
	return queue.Options{
		Name:              cfg.Name,
		Prefix:            cfg.Prefix,
		Attempts:          cfg.Attempts,
		BackoffBase:       cfg.BackoffBase,
		LockDuration:      cfg.LockDuration,
		CompletedMaxAge:   cfg.CompletedMaxAge,
		CompletedMaxCount: cfg.CompletedMaxCount,
		FailedMaxAge:      cfg.FailedMaxAge,
		FailedMaxCount:    cfg.FailedMaxCount,
	}
}

// newService wires the generation pipeline. With a nil database only
// Generate is usable.
func newService(cfg *config.Config, client llm.Client, database *db.DB, logger *zap.Logger) *pipeline.Service {
	deps := pipeline.Deps{
		Text:   newTextChain(cfg, client, logger),
		Images: newImageChain(cfg, logger),
		Logger: logger,
	}
	if database != nil {
		deps.Slugs = slug.NewAllocator(database)
		deps.Posts = database
		deps.Social = social.NewDistributor(database, cfg.Site.BlogURL, logger)
	}
	if covers := newCoverStore(cfg.Storage); covers != nil {
		deps.Covers = covers
	}
	return pipeline.NewService(deps)
}

func newTextChain(cfg *config.Config, client llm.Client, logger *zap.Logger) *writing.Chain {
	return writing.NewChain(client, writing.Config{
		Model:               cfg.Text.Model,
		Timeout:             cfg.Timeouts.TextGeneration,
		LocalDraftOnFailure: cfg.Text.LocalDraftOnFailure,
		SiteName:            cfg.Site.Name,
	}, logger)
}

func newImageChain(cfg *config.Config, logger *zap.Logger) *imaging.Chain {
	var gen imaging.Generator
	if cfg.Image.Enabled && cfg.Image.APIKey != "" {
		gen = imagegen.NewClient(cfg.Image.BaseURL, cfg.Image.APIKey)
	}
	downloader := fetch.NewClient(&fetch.Options{Timeout: cfg.Timeouts.Download})

	return imaging.NewChain(gen, downloader, imaging.Config{
		Enabled:            cfg.Image.Enabled,
		Model:              cfg.Image.Model,
		Size:               cfg.Image.Size,
		Timeout:            cfg.Timeouts.ImageGeneration,
		PlaceholderEnabled: cfg.Image.PlaceholderEnabled,
		PlaceholderURL:     cfg.Image.PlaceholderURL,
		SiteName:           cfg.Site.Name,
	}, logger)
}

// newCoverStore returns nil when object storage is not configured.
func newCoverStore(cfg config.StorageConfig) *storage.Client {
	if cfg.URL == "" || cfg.Key == "" {
		return nil
	}
	return storage.NewClient(cfg.URL, cfg.Key, cfg.Bucket, cfg.Folder)
}
