package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/rabies-forecast-dashboard/internal/adapter/forecastapi"
	httpadapter "github.com/couchcryptid/rabies-forecast-dashboard/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/rabies-forecast-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/rabies-forecast-dashboard/internal/config"
	"github.com/couchcryptid/rabies-forecast-dashboard/internal/dashboard"
	"github.com/couchcryptid/rabies-forecast-dashboard/internal/domain"
	"github.com/couchcryptid/rabies-forecast-dashboard/internal/observability"
)

func main() {
	// A missing .env is fine; the environment alone is enough.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	client := forecastapi.NewClient(cfg.ForecastAPIURL, cfg.ForecastAPITimeout, cfg.InsightsReportRoute, logger, metrics)
	reports := forecastapi.NewCachedReports(client, cfg.ReportCacheSize, cfg.ReportCacheTTL, metrics)

	opts := []dashboard.Option{dashboard.WithHorizon(cfg.ForecastHorizonMonths)}

	// Map layers are enabled by BOUNDARY_FILE.
	if cfg.BoundaryFile != "" {
		features, err := loadBoundaries(cfg.BoundaryFile)
		if err != nil {
			logger.Error("failed to load boundaries", "file", cfg.BoundaryFile, "error", err)
			os.Exit(1)
		}
		opts = append(opts, dashboard.WithBoundaries(features))
		logger.Info("boundary map enabled",
			"file", cfg.BoundaryFile,
			"features", len(features),
			"alias_table", domain.AliasTableVersion,
		)
	} else {
		logger.Info("boundary map disabled")
	}

	// Alert feed is feature-flagged via KAFKA_ENABLED.
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		opts = append(opts, dashboard.WithPublisher(writer))
		logger.Info("alert feed enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaAlertTopic)
	} else {
		logger.Info("alert feed disabled")
	}

	dash := dashboard.New(client, logger, metrics, opts...)

	srv := httpadapter.NewServer(cfg.HTTPAddr, dash, client, reports, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start scheduled refresh.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := dash.Run(ctx, cfg.RefreshSchedule); err != nil {
			logger.Error("dashboard refresh error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	<-done
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

func loadBoundaries(path string) ([]domain.BoundaryFeature, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fc, err := domain.LoadBoundaries(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc.Barangays(), nil
}
