//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/rabies-forecast-dashboard/internal/adapter/forecastapi"
	"github.com/couchcryptid/rabies-forecast-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/rabies-forecast-dashboard/internal/config"
	"github.com/couchcryptid/rabies-forecast-dashboard/internal/dashboard"
	"github.com/couchcryptid/rabies-forecast-dashboard/internal/domain"
	"github.com/couchcryptid/rabies-forecast-dashboard/internal/observability"
)

const testAlertTopic = "test-rabies-alerts"

// fakeBackend serves a minimal forecasting API with one alert per level.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/municipalities", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"success": true, "municipalities": [
			{"municipality": "CITY OF ANTIPOLO", "total_barangays": 2,
			 "barangays": [{"name": "SAN ROQUE", "predicted_next": 9, "risk_level": "HIGH"},
			               {"name": "MAYAMOT", "predicted_next": 1, "risk_level": "LOW"}]}
		]}`)
	})
	mux.HandleFunc("GET /api/alerts", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"success": true, "count": 3, "alerts": [
			{"municipality": "CITY OF ANTIPOLO", "barangay": "MAYAMOT", "forecast_date": "2025-11", "alert_level": "LOW"},
			{"municipality": "CITY OF ANTIPOLO", "barangay": "SAN ROQUE", "forecast_date": "2025-11", "alert_level": "HIGH", "predicted_cases": 9},
			{"municipality": "CAINTA", "barangay": "SAN ISIDRO", "forecast_date": "2025-11", "alert_level": "MEDIUM", "predicted_cases": 3}
		]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// TestRefreshPublishesAlerts runs a dashboard refresh against a fake backend
// and checks that the HIGH and MEDIUM alerts reach the alert topic.
func TestRefreshPublishesAlerts(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testAlertTopic)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaAlertTopic: testAlertTopic}

	writer := kafka.NewWriter(cfg, logger)
	defer writer.Close()

	backend := fakeBackend(t)
	client := forecastapi.NewClient(backend.URL, 5*time.Second, "insights", logger, metrics)
	dash := dashboard.New(client, logger, metrics, dashboard.WithPublisher(writer))

	require.NoError(t, dash.Refresh(ctx))

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testAlertTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
	})
	defer reader.Close()

	got := make(map[string]kafka.AlertEvent)
	for range 2 {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := reader.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read from alert topic")

		var ev kafka.AlertEvent
		require.NoError(t, json.Unmarshal(msg.Value, &ev))
		assert.Equal(t, string(msg.Key), ev.ID)
		got[ev.Barangay] = ev
	}

	require.Contains(t, got, "SAN ROQUE")
	require.Contains(t, got, "SAN ISIDRO")
	assert.Equal(t, domain.RiskHigh, got["SAN ROQUE"].AlertLevel)
	assert.Equal(t, domain.RiskMedium, got["SAN ISIDRO"].AlertLevel)
	assert.Equal(t, kafka.AlertID(got["SAN ROQUE"].Alert), got["SAN ROQUE"].ID)
}
