package events

import (
	"context"

	leadDomain "github.com/isomap/service-isochrone/internal/domain/lead"
	"github.com/isomap/service-isochrone/internal/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// LeadDeliverer hands a captured lead to its downstream collaborators.
type LeadDeliverer interface {
	Deliver(ctx context.Context, l *leadDomain.Lead) error
}

// LeadEventConsumer listens to lead events and delivers captured leads.
type LeadEventConsumer struct {
	consumer *kafka.Consumer
	delivery LeadDeliverer
	logger   *zap.Logger
}

// NewLeadEventConsumer creates a new LeadEventConsumer.
func NewLeadEventConsumer(
	brokers []string,
	groupID string,
	delivery LeadDeliverer,
	logger *zap.Logger,
) *LeadEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, leadDomain.TopicLeadEvents, logger)
	return &LeadEventConsumer{
		consumer: consumer,
		delivery: delivery,
		logger:   logger,
	}
}

// Start begins consuming lead events. This blocks until the context is cancelled.
func (c *LeadEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *LeadEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *LeadEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from lead topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case leadDomain.EventLeadCaptured:
		return c.handleLeadCaptured(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled lead event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *LeadEventConsumer) handleLeadCaptured(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt leadDomain.CapturedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse CapturedEvent data",
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}

	c.logger.Info("processing lead captured event",
		zap.String("lead_id", evt.LeadID.String()),
		zap.String("source", string(evt.Source)),
	)

	if err := c.delivery.Deliver(ctx, evt.Lead()); err != nil {
		c.logger.Error("failed to deliver captured lead",
			zap.String("lead_id", evt.LeadID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}
