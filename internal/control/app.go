// Package control wires the classification service together and manages its
// lifecycle.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pressly/goose/v3"

	"github.com/vietddude/mailsift/internal/api"
	"github.com/vietddude/mailsift/internal/classify/engine"
	"github.com/vietddude/mailsift/internal/core/config"
	"github.com/vietddude/mailsift/internal/core/worker"
	"github.com/vietddude/mailsift/internal/infra/events"
	"github.com/vietddude/mailsift/internal/infra/llm"
	redisclient "github.com/vietddude/mailsift/internal/infra/redis"
	"github.com/vietddude/mailsift/internal/infra/storage"
	"github.com/vietddude/mailsift/internal/infra/storage/memory"
	"github.com/vietddude/mailsift/internal/infra/storage/postgres"
)

// App is the main application struct that owns the engine lifecycle.
type App struct {
	cfg         *config.AppConfig
	engine      *engine.Engine
	chain       *llm.Chain
	server      *api.Server
	pruner      *worker.Pruner
	db          *postgres.DB
	redisClient *redisclient.Client
	log         *slog.Logger

	cancelWorkers context.CancelFunc
}

// NewApp creates an App with all dependencies initialized.
func NewApp(cfg *config.AppConfig) (*App, error) {
	log := slog.Default()

	// 1. Durable store: Postgres if configured, in-memory otherwise.
	var resultRepo storage.ResultRepository
	var overrideRepo storage.OverrideRepository
	var db *postgres.DB
	var dbPinger api.Pinger

	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}

		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		resultRepo = postgres.NewResultRepo(db)
		overrideRepo = postgres.NewOverrideRepo(db)
		dbPinger = api.PingerFunc(db.Health)
		slog.Info("Using PostgreSQL storage")
	} else {
		store := memory.NewMemoryStorage()
		resultRepo = memory.NewResultRepo(store)
		overrideRepo = memory.NewOverrideRepo(store)
		slog.Info("Using in-memory storage")
	}

	// 2. Cache tier and event bus: Redis if configured.
	var cache engine.Cache
	var cachePinger api.Pinger
	var publisher events.Publisher = events.NewMemoryPublisher()
	var redisClient *redisclient.Client

	if cfg.Redis.URL != "" {
		var err error
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		resultCache := redisclient.NewResultCache(redisClient)
		cache = resultCache
		cachePinger = api.PingerFunc(resultCache.Ping)
		publisher = redisclient.NewEventPublisher(redisClient)
		slog.Info("Using Redis cache tier")
	} else {
		slog.Warn("No Redis configured, cache tier disabled")
	}

	// 3. Provider chain.
	chain, err := llm.NewChain(cfg.Providers, cfg.Engine.ConfidenceThreshold, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init provider chain: %w", err)
	}
	if len(cfg.Providers) == 0 {
		slog.Warn("No providers configured, rule-based classification only")
	}

	// 4. Resolution engine.
	eng := engine.New(
		engine.Config{
			BatchGroupSize:  cfg.Engine.BatchGroupSize,
			BatchGroupPause: cfg.Engine.BatchGroupPause,
		},
		overrideRepo,
		resultRepo,
		cache,
		chain,
		publisher,
		log,
	)

	server := api.NewServer(eng, chain, cachePinger, dbPinger, cfg.Server.Port, log)
	pruner := worker.NewPruner(overrideRepo)

	return &App{
		cfg:         cfg,
		engine:      eng,
		chain:       chain,
		server:      server,
		pruner:      pruner,
		db:          db,
		redisClient: redisClient,
		log:         log,
	}, nil
}

// Start launches the HTTP server and background workers.
func (a *App) Start(ctx context.Context) error {
	workerCtx, cancel := context.WithCancel(ctx)
	a.cancelWorkers = cancel

	go a.pruner.Start(workerCtx)

	go func() {
		a.log.Info("HTTP server listening", "port", a.cfg.Server.Port)
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("HTTP server failed", "error", err)
		}
	}()

	return nil
}

// Stop shuts down in reverse dependency order: server, engine writes, then
// backends.
func (a *App) Stop(ctx context.Context) error {
	if a.cancelWorkers != nil {
		a.cancelWorkers()
	}

	if err := a.server.Stop(ctx); err != nil {
		a.log.Warn("HTTP server shutdown error", "error", err)
	}

	if err := a.engine.Close(ctx); err != nil {
		a.log.Warn("engine shutdown error", "error", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("redis close error", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("database close error", "error", err)
		}
	}
	return nil
}
