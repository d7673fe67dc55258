// Command censusmap runs the map service: the HTTP API, the job workers and
// the optional artifact notifier.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/census-map-service/internal/adapter/census"
	"github.com/couchcryptid/census-map-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/census-map-service/internal/adapter/kafka"
	redisadapter "github.com/couchcryptid/census-map-service/internal/adapter/redis"
	"github.com/couchcryptid/census-map-service/internal/adapter/render"
	"github.com/couchcryptid/census-map-service/internal/adapter/shapes"
	"github.com/couchcryptid/census-map-service/internal/catalog"
	"github.com/couchcryptid/census-map-service/internal/config"
	"github.com/couchcryptid/census-map-service/internal/domain"
	"github.com/couchcryptid/census-map-service/internal/observability"
	"github.com/couchcryptid/census-map-service/internal/pipeline"
)

// readiness is ready when every member is.
type readiness []sharedobs.ReadinessChecker

func (r readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	registry, err := domain.LoadRegistry(cfg.VariablesFile)
	if err != nil {
		logger.Error("failed to load variable registry", "error", err)
		os.Exit(1)
	}
	geo, err := domain.LoadGeoLookup(cfg.StateCoordsFile)
	if err != nil {
		logger.Error("failed to load state coordinates", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()
	ready := readiness{}

	var (
		queue  pipeline.Queue
		status pipeline.StatusStore
	)
	switch cfg.QueueBackend {
	case config.QueueRedis:
		client, err := redisadapter.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := client.Close(); err != nil {
				logger.Error("redis close error", "error", err)
			}
		}()
		rq := redisadapter.NewQueue(client, cfg.QueueName)
		queue = rq
		status = redisadapter.NewStatusStore(client, cfg.StatusTTL, logger)
		ready = append(ready, rq)
		logger.Info("using redis job queue", "queue", cfg.QueueName)
	default:
		queue = pipeline.NewMemoryQueue(cfg.QueueSize)
		status = pipeline.NewMemoryStatusStore(cfg.StatusTTL, clock)
		logger.Info("using in-memory job queue", "size", cfg.QueueSize)
	}

	fetcher := census.NewClient(cfg.CensusAPIKey, cfg.CensusBaseURL, cfg.CensusTimeout, registry, metrics, logger)
	shapeRepo := shapes.NewRepository(cfg.ShapePath, metrics, logger)
	renderer := render.New(shapeRepo, geo, registry, cfg.RenderFullState, logger)
	p := pipeline.New(fetcher, renderer, registry, cfg.OutputDir, logger, metrics).WithClock(clock)

	var notifier *kafkaadapter.Notifier
	if cfg.NotificationsEnabled() {
		notifier = kafkaadapter.NewNotifier(cfg, logger)
		p.WithNotifier(notifier)
		logger.Info("artifact notifications enabled", "topic", cfg.KafkaTopic)
	}

	dispatcher := pipeline.NewDispatcher(queue, status, p, cfg.WorkerCount, cfg.JobTimeout, clock, logger, metrics)
	ready = append(ready, dispatcher)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		Ready:     ready,
		Jobs:      dispatcher,
		Results:   catalog.New(cfg.OutputDir, registry, logger, metrics),
		Registry:  registry,
		OutputDir: cfg.OutputDir,
	}, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start workers.
	workersDone := make(chan struct{})
	go func() {
		defer close(workersDone)
		if err := dispatcher.Run(ctx); err != nil {
			logger.Error("dispatcher error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-workersDone:
	case <-shutdownCtx.Done():
		logger.Warn("workers did not stop before the shutdown timeout")
	}
	if notifier != nil {
		if err := notifier.Close(); err != nil {
			logger.Error("kafka notifier close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
