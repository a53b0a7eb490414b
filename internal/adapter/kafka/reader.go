package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/weather-fx-panel/internal/config"
	"github.com/couchcryptid/weather-fx-panel/internal/scene"
	"github.com/couchcryptid/weather-fx-panel/internal/watch"
	kafkago "github.com/segmentio/kafka-go"
)

// Reader consumes host item-list notifications from a Kafka topic.
// It implements watch.Source.
type Reader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewReader creates a consumer-group reader for the configured changes topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaChangesTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Reader{reader: r, logger: logger}
}

// Next blocks until a well-formed notification arrives. Malformed messages are
// logged, committed and skipped.
func (r *Reader) Next(ctx context.Context) (watch.Notification, error) {
	for {
		msg, err := r.reader.FetchMessage(ctx)
		if err != nil {
			return watch.Notification{}, fmt.Errorf("fetch change notification: %w", err)
		}

		items, err := decodeNotification(msg)
		if err != nil {
			r.logger.Warn("skipping malformed change notification",
				"error", err,
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
			if err := r.reader.CommitMessages(ctx, msg); err != nil {
				r.logger.Warn("commit offset failed", "error", err, "offset", msg.Offset)
			}
			continue
		}

		return watch.Notification{
			Items: items,
			Commit: func(ctx context.Context) error {
				return r.reader.CommitMessages(ctx, msg)
			},
		}, nil
	}
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

// decodeNotification parses a message value holding the full item list.
func decodeNotification(msg kafkago.Message) ([]scene.Item, error) {
	var items []scene.Item
	if err := json.Unmarshal(msg.Value, &items); err != nil {
		return nil, fmt.Errorf("decode item list: %w", err)
	}
	for i, it := range items {
		if it.ID == "" {
			return nil, fmt.Errorf("item %d: missing id", i)
		}
	}
	return items, nil
}
