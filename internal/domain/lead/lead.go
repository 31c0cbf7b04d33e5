package lead

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isomap/service-isochrone/internal/domain"
)

// Source identifies the form a lead was captured from.
type Source string

const (
	SourceLandingPage Source = "landing_page"
	SourceBetaSignup  Source = "beta_signup"
)

// IsValid returns true if the source is a known capture form.
func (s Source) IsValid() bool {
	switch s {
	case SourceLandingPage, SourceBetaSignup:
		return true
	}
	return false
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Lead is an email address captured by the landing page.
type Lead struct {
	id         uuid.UUID
	email      string
	source     Source
	capturedAt time.Time
}

// NewLead validates the email and creates a lead captured now.
func NewLead(email string, source Source) (*Lead, error) {
	email = strings.TrimSpace(email)
	if email == "" || !emailPattern.MatchString(email) {
		return nil, domain.NewValidationError("Invalid email address")
	}
	if !source.IsValid() {
		return nil, domain.NewValidationError("unknown lead source")
	}

	return &Lead{
		id:         uuid.New(),
		email:      email,
		source:     source,
		capturedAt: time.Now().UTC(),
	}, nil
}

// Reconstruct rebuilds a Lead from an event payload (no validation).
func Reconstruct(id uuid.UUID, email string, source Source, capturedAt time.Time) *Lead {
	return &Lead{
		id:         id,
		email:      email,
		source:     source,
		capturedAt: capturedAt,
	}
}

// --- Getters ---

func (l *Lead) ID() uuid.UUID         { return l.id }
func (l *Lead) Email() string         { return l.email }
func (l *Lead) Source() Source        { return l.source }
func (l *Lead) CapturedAt() time.Time { return l.capturedAt }

// WantsWelcomeEmail reports whether the lead signed up for the beta and gets the welcome email.
func (l *Lead) WantsWelcomeEmail() bool {
	return l.source == SourceBetaSignup
}
