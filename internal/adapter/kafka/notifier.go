// Package kafka publishes artifact events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/census-map-service/internal/config"
	"github.com/couchcryptid/census-map-service/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer the notifier uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Notifier produces one message per rendered artifact.
// It implements pipeline.Notifier.
type Notifier struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// NewNotifier creates a Kafka producer for the configured artifact topic.
func NewNotifier(cfg *config.Config, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Notifier{writer: w, topic: cfg.KafkaTopic, logger: logger}
}

// NotifyArtifact publishes event keyed by its artifact name, so every
// rendering of the same artifact lands on the same partition.
func (n *Notifier) NotifyArtifact(ctx context.Context, event domain.ArtifactEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish artifact event to %s: %w", n.topic, err)
	}
	n.logger.Debug("artifact event published", "topic", n.topic, "artifact", event.ArtifactName)
	return nil
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

// serializeToMessage marshals an ArtifactEvent into a Kafka message.
func serializeToMessage(event domain.ArtifactEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize artifact event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.ArtifactName),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "variable", Value: []byte(event.Variable)},
			{Key: "counties", Value: []byte(strconv.Itoa(event.Counties))},
			{Key: "rendered_at", Value: []byte(event.RenderedAt.Format(time.RFC3339))},
		},
	}, nil
}
