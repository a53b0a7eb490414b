package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/weather-fx-panel/internal/adapter/host"
	httpadapter "github.com/couchcryptid/weather-fx-panel/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weather-fx-panel/internal/adapter/kafka"
	"github.com/couchcryptid/weather-fx-panel/internal/adapter/memory"
	"github.com/couchcryptid/weather-fx-panel/internal/config"
	"github.com/couchcryptid/weather-fx-panel/internal/configsync"
	"github.com/couchcryptid/weather-fx-panel/internal/domain"
	"github.com/couchcryptid/weather-fx-panel/internal/observability"
	"github.com/couchcryptid/weather-fx-panel/internal/panel"
	"github.com/couchcryptid/weather-fx-panel/internal/picker"
	"github.com/couchcryptid/weather-fx-panel/internal/scene"
	"github.com/couchcryptid/weather-fx-panel/internal/watch"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	key := domain.MetadataKey(cfg.PluginID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Host scene service: in-process, or remote with a Kafka change feed.
	var (
		sceneHost scene.Host
		ready     readiness
		store     *memory.Store
		feed      *watch.Feed
		reader    *kafkaadapter.Reader
	)
	if cfg.HostURL != "" {
		client := host.NewClient(cfg.HostURL, cfg.HostTimeout, logger)
		reader = kafkaadapter.NewReader(cfg, logger)
		feed = watch.New(reader, logger, metrics)
		sceneHost = scene.Combine(client, client, client, feed)
		ready = readiness{client, feed}
		logger.Info("using remote host", "url", cfg.HostURL, "changes_topic", cfg.KafkaChangesTopic)
	} else {
		store = memory.New(logger)
		if cfg.SceneFixture != "" {
			if err := store.LoadFixtureFile(cfg.SceneFixture); err != nil {
				logger.Error("failed to load scene fixture", "error", err)
				os.Exit(1)
			}
			logger.Info("scene fixture loaded", "path", cfg.SceneFixture, "items", len(store.All()))
		}
		sceneHost = store
		ready = readiness{store}
		logger.Info("using in-memory host")
	}

	// Config change events are optional.
	var publisher configsync.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled && cfg.KafkaEventsTopic != "" {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("config change events enabled", "topic", cfg.KafkaEventsTopic)
	}

	syncer := configsync.New(sceneHost, sceneHost, key, publisher, logger, metrics)
	coalescer := configsync.NewCoalescer(syncer, clockwork.NewRealClock(), cfg.CoalesceWindow, logger, metrics, domain.FieldTint)
	pk := picker.New(coalescer, metrics)
	p := panel.New(sceneHost, coalescer, pk, key, logger)

	opts := httpadapter.Options{CacheSize: cfg.FieldCacheSize, Metrics: metrics}
	if store != nil {
		opts.Selection = store
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, ready, opts, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start change feed.
	if feed != nil {
		go func() {
			if err := feed.Run(ctx); err != nil {
				logger.Error("change feed error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	p.Unmount()
	if err := coalescer.Close(shutdownCtx); err != nil {
		logger.Error("flush pending writes error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

type readinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// readiness is ready when every checker is.
type readiness []readinessChecker

func (r readiness) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
