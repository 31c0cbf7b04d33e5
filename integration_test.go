//go:build integration

package main_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isomap/service-isochrone/internal/application"
	leadDomain "github.com/isomap/service-isochrone/internal/domain/lead"
	"github.com/isomap/service-isochrone/internal/ratelimit"
)

// TestBetaSignup_DeliveredThroughKafka verifies that a captured beta signup is
// published to lead.events and recorded by the lead consumer.
func TestBetaSignup_DeliveredThroughKafka(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupLeadStack(t, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()

	// Start the consumer.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stack.Consumer.Start(ctx) }()
	time.Sleep(3 * time.Second) // Wait for consumer group join.

	result, err := stack.Service.Capture(ctx, application.CaptureLeadRequest{Email: "ada@example.com"}, leadDomain.SourceBetaSignup)
	require.NoError(t, err)
	assert.True(t, result.Success)

	// Assert: LeadCapturedEvent on lead.events.
	ce := consumeOneEvent(t, infra.KafkaBrokers, leadDomain.TopicLeadEvents,
		leadDomain.EventLeadCaptured, 15*time.Second)

	var captured leadDomain.CapturedEvent
	require.NoError(t, ce.ParseData(&captured))
	assert.Equal(t, "ada@example.com", captured.Email)
	assert.Equal(t, leadDomain.SourceBetaSignup, captured.Source)
	assert.Equal(t, application.ServiceName, ce.Source)

	// Assert: the consumer recorded the lead.
	rows := waitForRows(t, stack.Sheet, 1, 15*time.Second)
	assert.Equal(t, "ada@example.com", rows[0].Email)
	assert.Equal(t, "beta_signup", rows[0].Source)
}

// TestMalformedLeadEvent_IsSkipped verifies that an undecodable event does not
// block the lead events that follow it.
func TestMalformedLeadEvent_IsSkipped(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupLeadStack(t, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stack.Consumer.Start(ctx) }()
	time.Sleep(3 * time.Second)

	publishTestEvent(t, infra.KafkaBrokers, leadDomain.TopicLeadEvents,
		"service-landing", leadDomain.EventLeadCaptured, map[string]interface{}{"lead_id": "not-a-uuid"})
	publishTestEvent(t, infra.KafkaBrokers, leadDomain.TopicLeadEvents,
		"service-landing", leadDomain.EventLeadCaptured, leadDomain.CapturedEvent{
			LeadID:     uuid.New(),
			Email:      "grace@example.com",
			Source:     leadDomain.SourceLandingPage,
			OccurredAt: time.Now().UTC(),
		})

	rows := waitForRows(t, stack.Sheet, 1, 15*time.Second)
	require.Len(t, rows, 1)
	assert.Equal(t, "grace@example.com", rows[0].Email)
	assert.Equal(t, "landing_page", rows[0].Source)
}

// TestRedisLimiter_SharedWindow verifies that the limit is enforced per key
// across limiter instances sharing one Redis.
func TestRedisLimiter_SharedWindow(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	ctx := context.Background()
	first, err := ratelimit.NewRedisLimiter(infra.Redis, "test:ratelimit", 3, time.Hour)
	require.NoError(t, err)
	second, err := ratelimit.NewRedisLimiter(infra.Redis, "test:ratelimit", 3, time.Hour)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		limiter := first
		if i%2 == 1 {
			limiter = second
		}
		allowed, err := limiter.Allow(ctx, "isochrone:203.0.113.7")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d", i+1)
	}

	allowed, err := second.Allow(ctx, "isochrone:203.0.113.7")
	require.NoError(t, err)
	assert.False(t, allowed, "fourth request in the window must be refused")

	allowed, err = first.Allow(ctx, "isochrone:198.51.100.1")
	require.NoError(t, err)
	assert.True(t, allowed, "other clients keep their own budget")
}
