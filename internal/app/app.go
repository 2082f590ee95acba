package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/tarea-editor/internal/auth"
	"github.com/gokatarajesh/tarea-editor/internal/auth/jwt"
	"github.com/gokatarajesh/tarea-editor/internal/backend"
	"github.com/gokatarajesh/tarea-editor/internal/config"
	"github.com/gokatarajesh/tarea-editor/internal/db/repository"
	"github.com/gokatarajesh/tarea-editor/internal/editor"
	"github.com/gokatarajesh/tarea-editor/internal/logging"
	"github.com/gokatarajesh/tarea-editor/internal/metrics"
	"github.com/gokatarajesh/tarea-editor/internal/server"
	"github.com/gokatarajesh/tarea-editor/internal/session"
	ws "github.com/gokatarajesh/tarea-editor/pkg/http/ws"
)

// Application aggregates shared infrastructure (store, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool    *pgxpool.Pool
	redis   *redis.Client
	http    *http.Server
	watcher *backend.ProcessingWatcher

	janitor     *session.Janitor
	broadcaster *session.Broadcaster
	bgCancels   []context.CancelFunc
}

type redisPinger struct{ client *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }

// New bootstraps the logger, the document store, Redis and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env, cfg.LogLevel)
	logger.Info().Str("store", cfg.Listening.StoreDriver).Msg("starting application bootstrap")

	a := &Application{cfg: cfg, logger: logger}
	ready := map[string]server.Pinger{}
	m := metrics.New(prometheus.DefaultRegisterer)

	client := backend.NewClient(cfg.Listening.BaseURL, &http.Client{Timeout: cfg.Listening.Timeout}).
		WithObserver(m.ObserveBackend)

	var store editor.Store = client
	if cfg.Listening.StoreDriver == config.StorePostgres {
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.pool = pool
		ready["postgres"] = pool
		store = repository.NewDocumentRepository(repository.NewQueries(pool))
	}

	var snapshots session.SnapshotStore = session.NopSnapshots{}
	if cfg.SnapshotsEnabled() {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		ready["redis"] = redisPinger{a.redis}
		snapshots = session.NewRedisSnapshots(a.redis, cfg.Sessions.SnapshotTTL)
	} else {
		logger.Warn().Msg("REDIS_ADDR not set; session drafts will not survive a restart")
	}

	var verifier *jwt.Manager
	if cfg.Security.JWTSecret != "" {
		verifier = jwt.NewManager(jwt.TokenConfig{
			Secret: []byte(cfg.Security.JWTSecret),
			Issuer: cfg.Security.JWTIssuer,
		})
	} else {
		logger.Warn().Msg("JWT_SECRET not set; bearer tokens are forwarded without verification")
	}

	hub := ws.NewHub(logger)
	var publisher session.Publisher = hub
	if a.redis != nil {
		// Events go through Redis so subscribers on other instances see them too.
		publisher = session.NewRedisPublisher(a.redis, cfg.Sessions.EventsChannel)
		a.broadcaster = session.NewBroadcaster(a.redis, hub, cfg.Sessions.EventsChannel, logger)
	}
	manager := session.NewManager(session.ManagerOptions{
		Store:     store,
		Snapshots: snapshots,
		Publisher: publisher,
		Metrics:   m,
	}, logger)
	a.janitor = session.NewJanitor(manager, cfg.Sessions.IdleTimeout, cfg.Sessions.SweepInterval, logger)

	// Audio processing always goes through the listening API, whatever the document store.
	a.watcher = backend.NewProcessingWatcher(client, backend.WatcherOptions{
		Interval: cfg.Audio.PollInterval,
		MaxPolls: cfg.Audio.MaxPolls,
		OnDone:   manager.AudioDone,
	}, logger)

	handlers := session.NewHTTPHandlers(manager, a.watcher, logger)
	a.http = server.NewHTTPServer(cfg, logger, server.Deps{
		Routes:    handlers.Routes,
		Protect:   auth.RequireOperator(verifier, logger),
		WSHandler: session.NewWSHandler(manager, hub, server.NewUpgrader(cfg.CORS), logger),
		Gatherer:  prometheus.DefaultGatherer,
		Ready:     ready,
	})
	return a, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	a.stopBackgroundWorkers()
	a.watcher.Shutdown()

	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("redis shutdown error")
		}
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	janitorCtx, cancel := context.WithCancel(ctx)
	a.bgCancels = append(a.bgCancels, cancel)
	go func() {
		if err := a.janitor.Run(janitorCtx); err != nil && err != context.Canceled {
			a.logger.Error().Err(err).Msg("session janitor stopped")
		}
	}()

	if a.broadcaster != nil {
		bcCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := a.broadcaster.Run(bcCtx); err != nil && err != context.Canceled {
				a.logger.Error().Err(err).Msg("session broadcaster stopped")
			}
		}()
	}
}

func (a *Application) stopBackgroundWorkers() {
	for _, cancel := range a.bgCancels {
		cancel()
	}
	a.bgCancels = nil
}
