package application

import (
	"context"
	"fmt"

	"github.com/isomap/service-isochrone/internal/domain"
	leadDomain "github.com/isomap/service-isochrone/internal/domain/lead"
	"github.com/isomap/service-isochrone/internal/integration/postmark"
	"github.com/isomap/service-isochrone/internal/integration/sheets"
	"go.uber.org/zap"
)

const (
	welcomeSubject = "Welcome to IsoMap Beta!"
	welcomeBody    = "Thanks for your interest in IsoMap! We'll review your application and reach out within 48 hours.\n\nThe IsoMap team"
)

// SheetAppender records a lead row in the spreadsheet.
type SheetAppender interface {
	Append(ctx context.Context, row sheets.Row) error
}

// EmailSender sends a transactional email.
type EmailSender interface {
	Send(ctx context.Context, email postmark.Email) (string, error)
}

// LeadDeliveryService hands captured leads to the spreadsheet and welcome mailer.
type LeadDeliveryService struct {
	sheet        SheetAppender
	mailer       EmailSender
	welcomeFrom  string
	requireSheet bool
	logger       *zap.Logger
}

// NewLeadDeliveryService creates a LeadDeliveryService. Either collaborator may be nil.
// With requireSheet set, a missing spreadsheet makes delivery unavailable instead of
// only logging the lead.
func NewLeadDeliveryService(
	sheet SheetAppender,
	mailer EmailSender,
	welcomeFrom string,
	requireSheet bool,
	logger *zap.Logger,
) *LeadDeliveryService {
	return &LeadDeliveryService{
		sheet:        sheet,
		mailer:       mailer,
		welcomeFrom:  welcomeFrom,
		requireSheet: requireSheet,
		logger:       logger,
	}
}

// Available returns an unavailable error when leads cannot be recorded.
func (s *LeadDeliveryService) Available() error {
	if s.sheet == nil && s.requireSheet {
		return domain.NewUnavailableError("Service temporarily unavailable")
	}
	return nil
}

// Deliver records the lead and, for beta signups, sends the welcome email.
// A failed welcome email is logged and does not fail delivery.
func (s *LeadDeliveryService) Deliver(ctx context.Context, l *leadDomain.Lead) error {
	if err := s.Available(); err != nil {
		s.logger.Error("lead spreadsheet not configured", zap.String("lead_id", l.ID().String()))
		return err
	}

	if s.sheet == nil {
		s.logger.Info("lead spreadsheet not configured, lead logged only",
			zap.String("lead_id", l.ID().String()),
			zap.String("email", l.Email()),
			zap.String("source", string(l.Source())),
		)
	} else {
		row := sheets.Row{Email: l.Email(), Timestamp: l.CapturedAt(), Source: string(l.Source())}
		if err := s.sheet.Append(ctx, row); err != nil {
			s.logger.Error("failed to record lead",
				zap.String("lead_id", l.ID().String()),
				zap.Error(err),
			)
			return fmt.Errorf("failed to record lead: %w", err)
		}
	}

	if l.WantsWelcomeEmail() {
		s.sendWelcome(ctx, l)
	}

	s.logger.Info("lead delivered",
		zap.String("lead_id", l.ID().String()),
		zap.String("source", string(l.Source())),
	)
	return nil
}

func (s *LeadDeliveryService) sendWelcome(ctx context.Context, l *leadDomain.Lead) {
	if s.mailer == nil {
		s.logger.Debug("welcome mailer not configured, skipping", zap.String("lead_id", l.ID().String()))
		return
	}

	messageID, err := s.mailer.Send(ctx, postmark.Email{
		From:     s.welcomeFrom,
		To:       l.Email(),
		Subject:  welcomeSubject,
		TextBody: welcomeBody,
	})
	if err != nil {
		s.logger.Error("failed to send welcome email",
			zap.String("lead_id", l.ID().String()),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("welcome email sent",
		zap.String("lead_id", l.ID().String()),
		zap.String("message_id", messageID),
	)
}
