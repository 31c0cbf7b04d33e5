package application

import (
	"context"
	"fmt"

	leadDomain "github.com/isomap/service-isochrone/internal/domain/lead"
	"github.com/isomap/service-isochrone/internal/kafka"
	"go.uber.org/zap"
)

// ServiceName identifies this service as an event source.
const ServiceName = "service-isochrone"

const betaSignupMessage = "Thanks! We'll review your application and reach out within 48 hours."

// CaptureLeadRequest is the request DTO for both lead forms.
type CaptureLeadRequest struct {
	Email string `json:"email" binding:"required"`
}

// CaptureLeadResult is the response DTO for both lead forms.
type CaptureLeadResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// EventPublisher publishes CloudEvents to a topic.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error
}

// LeadService implements the lead capture use case.
type LeadService struct {
	publisher EventPublisher
	delivery  *LeadDeliveryService
	logger    *zap.Logger
}

// NewLeadService creates a LeadService. With a nil publisher leads are delivered inline.
func NewLeadService(publisher EventPublisher, delivery *LeadDeliveryService, logger *zap.Logger) *LeadService {
	return &LeadService{publisher: publisher, delivery: delivery, logger: logger}
}

// Capture validates the email and hands the lead to delivery, through the event
// pipeline when one is configured.
func (s *LeadService) Capture(ctx context.Context, req CaptureLeadRequest, source leadDomain.Source) (*CaptureLeadResult, error) {
	l, err := leadDomain.NewLead(req.Email, source)
	if err != nil {
		return nil, err
	}
	if err := s.delivery.Available(); err != nil {
		return nil, err
	}

	if s.publisher == nil || !s.publish(ctx, l) {
		if err := s.delivery.Deliver(ctx, l); err != nil {
			return nil, fmt.Errorf("failed to process lead: %w", err)
		}
	}

	s.logger.Info("lead captured",
		zap.String("lead_id", l.ID().String()),
		zap.String("source", string(source)),
	)

	result := &CaptureLeadResult{Success: true}
	if source == leadDomain.SourceBetaSignup {
		result.Message = betaSignupMessage
	}
	return result, nil
}

// publish reports whether the lead was handed to the event pipeline.
func (s *LeadService) publish(ctx context.Context, l *leadDomain.Lead) bool {
	cloudEvent, err := kafka.NewCloudEvent(ServiceName, leadDomain.EventLeadCaptured, leadDomain.NewCapturedEvent(l))
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", leadDomain.EventLeadCaptured),
			zap.Error(err),
		)
		return false
	}

	if err := s.publisher.PublishEvent(ctx, leadDomain.TopicLeadEvents, cloudEvent); err != nil {
		s.logger.Warn("failed to publish lead event, delivering inline",
			zap.String("topic", leadDomain.TopicLeadEvents),
			zap.String("lead_id", l.ID().String()),
			zap.Error(err),
		)
		return false
	}
	return true
}
