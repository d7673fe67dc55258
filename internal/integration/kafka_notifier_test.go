//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/census-map-service/internal/adapter/kafka"
	"github.com/couchcryptid/census-map-service/internal/config"
	"github.com/couchcryptid/census-map-service/internal/domain"
)

const testTopic = "test-census-map-artifacts"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("census-map-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

// TestNotifierPublishesArtifactEvent verifies the notifier's message lands on
// the topic with its key, headers and JSON body intact.
func TestNotifierPublishesArtifactEvent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	n := kafka.NewNotifier(&config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}, discardLogger())
	t.Cleanup(func() { _ = n.Close() })

	event := domain.ArtifactEvent{
		JobID:        "job-42",
		State:        "Delaware",
		Variable:     "totalPopulation",
		ArtifactName: "state-Delaware_var-totalPopulation_timestamp-03-05-2024.html",
		Counties:     3,
		RenderedAt:   time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC),
	}
	require.NoError(t, n.NotifyArtifact(ctx, event))

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
	})
	t.Cleanup(func() { _ = reader.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := reader.ReadMessage(readCtx)
	require.NoError(t, err, "read artifact event")

	assert.Equal(t, event.ArtifactName, string(msg.Key))
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "totalPopulation", headers["variable"])
	assert.Equal(t, "2024-03-05T14:30:00Z", headers["rendered_at"])

	var got domain.ArtifactEvent
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, event, got)
}
