package config

import (
	"errors"
	"net/url"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/robfig/cron/v3"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Forecasting backend.
	ForecastAPIURL        string
	ForecastAPITimeout    time.Duration
	ForecastHorizonMonths int
	InsightsReportRoute   string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	RefreshSchedule string
	BoundaryFile    string

	ReportCacheSize int
	ReportCacheTTL  time.Duration

	// Alert feed.
	KafkaEnabled    bool
	KafkaBrokers    []string
	KafkaAlertTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	apiTimeout, err := parsePositiveDuration("FORECAST_API_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	horizon, err := parseIntInRange("FORECAST_HORIZON_MONTHS", 8, 1, 24)
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parsePositiveDuration("REPORT_CACHE_TTL", "5m")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ForecastAPIURL:        sharedcfg.EnvOrDefault("FORECAST_API_URL", "http://localhost:8000"),
		ForecastAPITimeout:    apiTimeout,
		ForecastHorizonMonths: horizon,
		InsightsReportRoute:   sharedcfg.EnvOrDefault("INSIGHTS_REPORT_ROUTE", "insights"),
		HTTPAddr:              sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:              sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:             sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:       shutdownTimeout,
		RefreshSchedule:       sharedcfg.EnvOrDefault("REFRESH_SCHEDULE", "@every 5m"),
		BoundaryFile:          os.Getenv("BOUNDARY_FILE"),
		ReportCacheSize:       parseReportCacheSize(),
		ReportCacheTTL:        cacheTTL,
		KafkaEnabled:          os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:          sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaAlertTopic:       sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "rabies-alerts"),
	}

	if u, err := url.Parse(cfg.ForecastAPIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.New("invalid FORECAST_API_URL")
	}
	if _, err := cron.ParseStandard(cfg.RefreshSchedule); err != nil {
		return nil, errors.New("invalid REFRESH_SCHEDULE: " + err.Error())
	}
	if cfg.InsightsReportRoute != "insights" && cfg.InsightsReportRoute != "insights-pdf" {
		return nil, errors.New("INSIGHTS_REPORT_ROUTE must be insights or insights-pdf")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaAlertTopic == "" {
			return nil, errors.New("KAFKA_ALERT_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

func parseReportCacheSize() int {
	if s := os.Getenv("REPORT_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 64
}
