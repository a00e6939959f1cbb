// Package kafka publishes actionable forecast alerts to a Kafka topic.
package kafka

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/rabies-forecast-dashboard/internal/config"
	"github.com/couchcryptid/rabies-forecast-dashboard/internal/domain"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces alert messages to the alert topic.
// It implements dashboard.AlertPublisher.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured alert topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaAlertTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishAlerts serializes and publishes alerts in a single WriteMessages call.
// Keys are deterministic, so the same alert from consecutive refreshes lands on
// the same partition and can be compacted.
func (w *Writer) PublishAlerts(ctx context.Context, alerts []domain.Alert, refreshedAt time.Time) error {
	if len(alerts) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(alerts))
	for i := range alerts {
		msg, err := serializeToMessage(alerts[i], refreshedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write alerts: %w", err)
	}
	w.logger.Debug("alerts published", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// AlertEvent is the message value published for one alert.
type AlertEvent struct {
	ID string `json:"id"`
	domain.Alert
	RefreshedAt time.Time `json:"refreshed_at"`
}

// AlertID identifies an alert by barangay, forecast period and level.
func AlertID(a domain.Alert) string {
	sum := sha256.Sum256([]byte(a.Municipality + "|" + a.Barangay + "|" + a.ForecastDate + "|" + string(a.AlertLevel)))
	return hex.EncodeToString(sum[:])
}

// serializeToMessage marshals an alert into a Kafka message.
func serializeToMessage(alert domain.Alert, refreshedAt time.Time) (kafkago.Message, error) {
	id := AlertID(alert)
	data, err := json.Marshal(AlertEvent{ID: id, Alert: alert, RefreshedAt: refreshedAt.UTC()})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(id),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "alert_level", Value: []byte(alert.AlertLevel)},
			{Key: "refreshed_at", Value: []byte(refreshedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
