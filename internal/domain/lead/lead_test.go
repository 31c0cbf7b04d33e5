package lead

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/isomap/service-isochrone/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLead(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		source  Source
		wantErr bool
	}{
		{name: "valid landing page", email: "ada@example.com", source: SourceLandingPage},
		{name: "valid beta signup", email: "grace.hopper@navy.mil", source: SourceBetaSignup},
		{name: "trims whitespace", email: "  ada@example.com ", source: SourceLandingPage},
		{name: "empty", email: "", source: SourceLandingPage, wantErr: true},
		{name: "missing at", email: "ada.example.com", source: SourceLandingPage, wantErr: true},
		{name: "missing dot in domain", email: "ada@example", source: SourceLandingPage, wantErr: true},
		{name: "inner space", email: "ada lovelace@example.com", source: SourceLandingPage, wantErr: true},
		{name: "two at signs", email: "ada@@example.com", source: SourceLandingPage, wantErr: true},
		{name: "unknown source", email: "ada@example.com", source: Source("newsletter"), wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			l, err := NewLead(test.email, test.source)
			if test.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrValidation))
				assert.Nil(t, l)
				return
			}

			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, l.ID())
			assert.Equal(t, test.source, l.Source())
			assert.NotContains(t, l.Email(), " ")
			assert.False(t, l.CapturedAt().IsZero())
		})
	}
}

func TestNewLead_InvalidEmailMessage(t *testing.T) {
	_, err := NewLead("nope", SourceLandingPage)
	assert.Equal(t, "Invalid email address", domain.PublicMessage(err))
}

func TestLead_WantsWelcomeEmail(t *testing.T) {
	beta, err := NewLead("ada@example.com", SourceBetaSignup)
	require.NoError(t, err)
	landing, err := NewLead("ada@example.com", SourceLandingPage)
	require.NoError(t, err)

	assert.True(t, beta.WantsWelcomeEmail())
	assert.False(t, landing.WantsWelcomeEmail())
}

func TestCapturedEvent_RebuildsLead(t *testing.T) {
	original, err := NewLead("ada@example.com", SourceBetaSignup)
	require.NoError(t, err)

	rebuilt := NewCapturedEvent(original).Lead()

	assert.Equal(t, original.ID(), rebuilt.ID())
	assert.Equal(t, original.Email(), rebuilt.Email())
	assert.Equal(t, original.Source(), rebuilt.Source())
	assert.True(t, original.CapturedAt().Equal(rebuilt.CapturedAt()))
}
