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

	"github.com/couchcryptid/meteo-etl-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/meteo-etl-service/internal/adapter/kafka"
	"github.com/couchcryptid/meteo-etl-service/internal/adapter/openmeteo"
	"github.com/couchcryptid/meteo-etl-service/internal/adapter/parquet"
	"github.com/couchcryptid/meteo-etl-service/internal/adapter/storage"
	"github.com/couchcryptid/meteo-etl-service/internal/config"
	"github.com/couchcryptid/meteo-etl-service/internal/domain"
	"github.com/couchcryptid/meteo-etl-service/internal/observability"
	"github.com/couchcryptid/meteo-etl-service/internal/pipeline"
	"github.com/couchcryptid/meteo-etl-service/internal/scheduler"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat).With("service", "meteo-etl")
	metrics := observability.NewMetrics()

	opener := newOpener(cfg.Storage)
	if err := preflight(context.Background(), opener); err != nil {
		logger.Error("storage session rejected", "backend", cfg.Storage.Backend, "kind", domain.KindOf(err), "error", err)
		return 1
	}

	codec, err := parquet.NewCodec(cfg.ParquetCompression)
	if err != nil {
		logger.Error("invalid parquet settings", "error", err)
		return 1
	}

	keyOpts := []domain.KeyOption{domain.WithLocation(cfg.KeyLocation)}
	if !cfg.KeyUniqueSuffix {
		keyOpts = append(keyOpts, domain.WithSuffix(nil))
	}
	keys := domain.NewKeyBuilder(cfg.Storage.Root(), cfg.Storage.Prefix, keyOpts...)

	client := openmeteo.NewClient(cfg.ForecastBaseURL, cfg.ForecastLatitude, cfg.ForecastLongitude,
		cfg.FetchTimeout, logger, metrics)
	transformer := pipeline.NewTransformer(logger)
	persister := storage.NewPersister(keys, opener, codec, parquet.ContentType, cfg.UploadTimeout, logger, metrics)

	var opts []pipeline.Option
	if cfg.NotificationsEnabled() {
		notifier := kafkaadapter.NewNotifier(cfg.KafkaBrokers, cfg.KafkaNotifyTopic, logger)
		defer func() {
			if err := notifier.Close(); err != nil {
				logger.Error("kafka notifier close error", "error", err)
			}
		}()
		opts = append(opts, pipeline.WithNotifier(notifier))
		logger.Info("run notifications enabled", "topic", cfg.KafkaNotifyTopic)
	}

	p := pipeline.New(client, transformer, persister, logger, metrics, opts...)

	logger.Info("meteo etl configured",
		"mode", cfg.RunMode,
		"forecast_url", client.URL(),
		"root", keys.Root(),
		"prefix", cfg.Storage.Prefix,
	)

	if cfg.RunMode == config.ModeSchedule {
		return serve(cfg, p, logger)
	}

	if _, err := p.RunOnce(context.Background()); err != nil {
		return 1
	}
	return 0
}

// serve runs the scheduler and the ops HTTP server until SIGINT or SIGTERM.
func serve(cfg *config.Config, p *pipeline.Pipeline, logger *slog.Logger) int {
	sched := scheduler.New(p, cfg.ScheduleCron, cfg.ScheduleInterval, logger)
	if err := sched.Start(); err != nil {
		logger.Error("scheduler start failed", "error", err)
		return 1
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return 0
}
