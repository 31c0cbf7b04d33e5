package lead

import (
	"time"

	"github.com/google/uuid"
)

const (
	// TopicLeadEvents carries every lead lifecycle event.
	TopicLeadEvents = "lead.events"

	// EventLeadCaptured is published once per accepted form submission.
	EventLeadCaptured = "lead.captured"
)

// CapturedEvent is the data payload of a lead.captured CloudEvent.
type CapturedEvent struct {
	LeadID     uuid.UUID `json:"lead_id"`
	Email      string    `json:"email"`
	Source     Source    `json:"source"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewCapturedEvent builds the event payload for a lead.
func NewCapturedEvent(l *Lead) CapturedEvent {
	return CapturedEvent{
		LeadID:     l.ID(),
		Email:      l.Email(),
		Source:     l.Source(),
		OccurredAt: l.CapturedAt(),
	}
}

// Lead rebuilds the lead carried by the event.
func (e CapturedEvent) Lead() *Lead {
	return Reconstruct(e.LeadID, e.Email, e.Source, e.OccurredAt)
}
