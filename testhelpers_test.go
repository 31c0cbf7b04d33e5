//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/isomap/service-isochrone/internal/application"
	leadDomain "github.com/isomap/service-isochrone/internal/domain/lead"
	leadEvents "github.com/isomap/service-isochrone/internal/events"
	"github.com/isomap/service-isochrone/internal/integration/sheets"
	"github.com/isomap/service-isochrone/internal/kafka"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	KafkaBrokers []string
	Redis        *redis.Client
	Cleanup      func()
}

// leadStack holds wired-up lead capture components.
type leadStack struct {
	Service         *application.LeadService
	Consumer        *leadEvents.LeadEventConsumer
	Sheet           *recordingSheet
	CleanupProducer func()
}

// recordingSheet stands in for the spreadsheet webhook.
type recordingSheet struct {
	mu   sync.Mutex
	rows []sheets.Row
}

func (s *recordingSheet) Append(_ context.Context, row sheets.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return nil
}

func (s *recordingSheet) Rows() []sheets.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.Row(nil), s.rows...)
}

// setupContainers starts Kafka and Redis testcontainers.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	// Start Redis container with log-based wait strategy.
	redisReq := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(60 * time.Second),
	}
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: redisReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start Redis container")

	redisHost, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	redisPort, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	redisClient := redis.NewClient(&redis.Options{Addr: net.JoinHostPort(redisHost, redisPort.Port())})
	require.Eventually(t, func() bool {
		return redisClient.Ping(ctx).Err() == nil
	}, 30*time.Second, 500*time.Millisecond, "Redis not ready for connections")

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	// Pre-create required topics.
	createTopics(t, kafkaBrokers, leadDomain.TopicLeadEvents)

	cleanup := func() {
		_ = redisClient.Close()
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := redisContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Redis container: %v", err)
		}
	}

	return &testInfra{
		KafkaBrokers: kafkaBrokers,
		Redis:        redisClient,
		Cleanup:      cleanup,
	}
}

// setupLeadStack wires up lead capture through the Kafka pipeline.
func setupLeadStack(t *testing.T, brokers []string) *leadStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	sheet := &recordingSheet{}
	delivery := application.NewLeadDeliveryService(sheet, nil, "hello@isomap.io", true, logger)
	producer := kafka.NewProducer(brokers, logger)
	leadSvc := application.NewLeadService(producer, delivery, logger)

	groupID := fmt.Sprintf("test-isochrone-%s", uuid.New().String()[:8])
	consumer := leadEvents.NewLeadEventConsumer(brokers, groupID, delivery, logger)

	return &leadStack{
		Service:         leadSvc,
		Consumer:        consumer,
		Sheet:           sheet,
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, ce)
	require.NoError(t, err, "failed to publish event")
}

// waitForRows polls the recording sheet until it holds n rows.
func waitForRows(t *testing.T, sheet *recordingSheet, n int, timeout time.Duration) []sheets.Row {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(sheet.Rows()) >= n
	}, timeout, 200*time.Millisecond, "sheet did not receive %d rows", n)
	return sheet.Rows()
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
