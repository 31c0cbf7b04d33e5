package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	leadDomain "github.com/isomap/service-isochrone/internal/domain/lead"
	"github.com/isomap/service-isochrone/internal/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingDeliverer struct {
	leads []*leadDomain.Lead
	err   error
}

func (r *recordingDeliverer) Deliver(_ context.Context, l *leadDomain.Lead) error {
	if r.err != nil {
		return r.err
	}
	r.leads = append(r.leads, l)
	return nil
}

func newTestConsumer(delivery LeadDeliverer) *LeadEventConsumer {
	return &LeadEventConsumer{delivery: delivery, logger: zap.NewNop()}
}

func capturedMessage(t *testing.T, eventType string, data interface{}) kafkago.Message {
	t.Helper()
	ce, err := kafka.NewCloudEvent("service-isochrone", eventType, data)
	require.NoError(t, err)
	value, err := json.Marshal(ce)
	require.NoError(t, err)
	return kafkago.Message{Topic: leadDomain.TopicLeadEvents, Value: value}
}

func TestLeadEventConsumer_DeliversCapturedLead(t *testing.T) {
	l, err := leadDomain.NewLead("ada@example.com", leadDomain.SourceBetaSignup)
	require.NoError(t, err)

	delivery := &recordingDeliverer{}
	consumer := newTestConsumer(delivery)

	err = consumer.handleMessage(context.Background(), capturedMessage(t, leadDomain.EventLeadCaptured, leadDomain.NewCapturedEvent(l)))
	require.NoError(t, err)

	require.Len(t, delivery.leads, 1)
	assert.Equal(t, l.ID(), delivery.leads[0].ID())
	assert.Equal(t, "ada@example.com", delivery.leads[0].Email())
	assert.True(t, delivery.leads[0].WantsWelcomeEmail())
}

func TestLeadEventConsumer_DeliveryFailureIsRetried(t *testing.T) {
	l, err := leadDomain.NewLead("ada@example.com", leadDomain.SourceLandingPage)
	require.NoError(t, err)

	consumer := newTestConsumer(&recordingDeliverer{err: errors.New("sheets unavailable")})

	err = consumer.handleMessage(context.Background(), capturedMessage(t, leadDomain.EventLeadCaptured, leadDomain.NewCapturedEvent(l)))
	assert.Error(t, err)
}

func TestLeadEventConsumer_SkipsMalformedAndUnknown(t *testing.T) {
	delivery := &recordingDeliverer{}
	consumer := newTestConsumer(delivery)

	assert.NoError(t, consumer.handleMessage(context.Background(), kafkago.Message{Value: []byte("garbage")}))
	assert.NoError(t, consumer.handleMessage(context.Background(), capturedMessage(t, "lead.deleted", map[string]string{"id": "1"})))
	assert.NoError(t, consumer.handleMessage(context.Background(), capturedMessage(t, leadDomain.EventLeadCaptured, "not an object")))
	assert.Empty(t, delivery.leads)
}
