package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/weather-fx-panel/internal/config"
	"github.com/couchcryptid/weather-fx-panel/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// eventFlushInterval bounds how long a change event waits in the producer
// buffer. Each edit publishes a single event, so the kafka-go default of one
// second would only add latency.
const eventFlushInterval = 10 * time.Millisecond

// Writer announces committed weather config transactions on the events topic,
// keyed by metadata key so every event for one plugin lands on one partition
// in commit order.
type Writer struct {
	writer *kafkago.Writer
	topic  string
	logger *slog.Logger
}

func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaEventsTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchSize:    1,
		BatchTimeout: eventFlushInterval,
	}
	return &Writer{writer: w, topic: cfg.KafkaEventsTopic, logger: logger}
}

// Publish implements configsync.Publisher.
func (w *Writer) Publish(ctx context.Context, change domain.ConfigChange) error {
	msg, err := serializeChange(change)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s %s to %s: %w", change.Op, changeSubject(change), w.topic, err)
	}
	w.logger.Debug("config change published",
		"topic", w.topic,
		"op", change.Op,
		"field", change.Field,
		"items", len(change.ItemIDs),
	)
	return nil
}

// Close flushes buffered events.
func (w *Writer) Close() error {
	if err := w.writer.Close(); err != nil {
		return fmt.Errorf("close %s writer: %w", w.topic, err)
	}
	return nil
}

// serializeChange encodes a change as JSON. Headers repeat the routing facts
// (op, field, item count, commit time) so consumers can filter without
// decoding the value. Record removals carry no field header.
func serializeChange(change domain.ConfigChange) (kafkago.Message, error) {
	data, err := json.Marshal(change)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize config change: %w", err)
	}
	headers := []kafkago.Header{{Key: "op", Value: []byte(change.Op)}}
	if change.Field != "" {
		headers = append(headers, kafkago.Header{Key: "field", Value: []byte(change.Field)})
	}
	headers = append(headers,
		kafkago.Header{Key: "items", Value: []byte(strconv.Itoa(len(change.ItemIDs)))},
		kafkago.Header{Key: "changed_at", Value: []byte(change.ChangedAt.Format(time.RFC3339))},
	)
	return kafkago.Message{
		Key:     []byte(change.Key),
		Value:   data,
		Headers: headers,
	}, nil
}

func changeSubject(change domain.ConfigChange) string {
	if change.Field == "" {
		return "record"
	}
	return change.Field
}
