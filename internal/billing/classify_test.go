package billing_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"

	"github.com/journeysyoga/journeys/internal/billing"
)

type mockRetriever struct {
	GetFunc func(ctx context.Context, id string) (*stripe.Subscription, error)
	calls   int
}

func (m *mockRetriever) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	m.calls++
	return m.GetFunc(ctx, id)
}

func makeEvent(t *testing.T, eventType string, object any) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	require.NoError(t, err)
	return stripe.Event{
		ID:   "evt_test_1",
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestClassifyCheckoutCompletedBareSubscriptionID(t *testing.T) {
	event := makeEvent(t, "checkout.session.completed", map[string]any{
		"mode":         "subscription",
		"customer":     "cus_123",
		"subscription": "sub_456",
	})

	periodEnd := time.Date(2026, 9, 8, 12, 0, 0, 0, time.UTC)
	retriever := &mockRetriever{
		GetFunc: func(_ context.Context, id string) (*stripe.Subscription, error) {
			require.Equal(t, "sub_456", id)
			return &stripe.Subscription{
				ID:               "sub_456",
				Status:           stripe.SubscriptionStatusTrialing,
				CurrentPeriodEnd: periodEnd.Unix(),
			}, nil
		},
	}

	update, actionable, err := billing.Classify(context.Background(), event, retriever)
	require.NoError(t, err)
	require.True(t, actionable)
	assert.Equal(t, 1, retriever.calls)
	assert.Equal(t, "evt_test_1", update.EventID)
	assert.Equal(t, "cus_123", update.CustomerID)
	assert.Equal(t, "trialing", update.RawStatus)
	require.NotNil(t, update.PeriodEnd)
	assert.True(t, periodEnd.Equal(*update.PeriodEnd))
	assert.False(t, update.CancelAtPeriodEnd)
}

func TestClassifyCheckoutCompletedInlineSubscription(t *testing.T) {
	event := makeEvent(t, "checkout.session.completed", map[string]any{
		"mode":     "subscription",
		"customer": "cus_123",
		"subscription": map[string]any{
			"id":                 "sub_456",
			"status":             "active",
			"current_period_end": 1790000000,
		},
	})

	retriever := &mockRetriever{
		GetFunc: func(_ context.Context, _ string) (*stripe.Subscription, error) {
			t.Fatal("retriever should not be called for an inline subscription object")
			return nil, nil
		},
	}

	update, actionable, err := billing.Classify(context.Background(), event, retriever)
	require.NoError(t, err)
	require.True(t, actionable)
	assert.Equal(t, 0, retriever.calls)
	assert.Equal(t, "active", update.RawStatus)
}

func TestClassifyCheckoutCompletedPaymentModeIgnored(t *testing.T) {
	event := makeEvent(t, "checkout.session.completed", map[string]any{
		"mode":     "payment",
		"customer": "cus_123",
	})

	update, actionable, err := billing.Classify(context.Background(), event, &mockRetriever{})
	require.NoError(t, err)
	assert.False(t, actionable)
	assert.Nil(t, update)
}

func TestClassifyCheckoutCompletedMissingLinksIgnored(t *testing.T) {
	cases := []map[string]any{
		{"mode": "subscription", "subscription": "sub_456"}, // no customer
		{"mode": "subscription", "customer": "cus_123"},     // no subscription
	}
	for _, object := range cases {
		event := makeEvent(t, "checkout.session.completed", object)
		update, actionable, err := billing.Classify(context.Background(), event, &mockRetriever{})
		require.NoError(t, err)
		assert.False(t, actionable)
		assert.Nil(t, update)
	}
}

func TestClassifyInvoicePaymentSucceeded(t *testing.T) {
	event := makeEvent(t, "invoice.payment_succeeded", map[string]any{
		"customer":     "cus_123",
		"subscription": "sub_456",
	})

	retriever := &mockRetriever{
		GetFunc: func(_ context.Context, id string) (*stripe.Subscription, error) {
			return &stripe.Subscription{
				ID:               id,
				Status:           stripe.SubscriptionStatusActive,
				CurrentPeriodEnd: 1790000000,
			}, nil
		},
	}

	update, actionable, err := billing.Classify(context.Background(), event, retriever)
	require.NoError(t, err)
	require.True(t, actionable)
	assert.Equal(t, "active", update.RawStatus)
	require.NotNil(t, update.PeriodEnd)
	assert.Equal(t, time.Unix(1790000000, 0).UTC(), *update.PeriodEnd)
}

func TestClassifySubscriptionUpdatedDirect(t *testing.T) {
	event := makeEvent(t, "customer.subscription.updated", map[string]any{
		"customer":             "cus_123",
		"status":               "active",
		"current_period_end":   1790000000,
		"cancel_at_period_end": true,
	})

	retriever := &mockRetriever{
		GetFunc: func(_ context.Context, _ string) (*stripe.Subscription, error) {
			t.Fatal("subscription events carry the payload inline")
			return nil, nil
		},
	}

	update, actionable, err := billing.Classify(context.Background(), event, retriever)
	require.NoError(t, err)
	require.True(t, actionable)
	assert.Equal(t, "active", update.RawStatus)
	assert.True(t, update.CancelAtPeriodEnd)
}

func TestClassifyScheduledCancelAtCountsAsPending(t *testing.T) {
	event := makeEvent(t, "customer.subscription.updated", map[string]any{
		"customer":             "cus_123",
		"status":               "active",
		"cancel_at_period_end": false,
		"cancel_at":            1790000000,
	})

	update, actionable, err := billing.Classify(context.Background(), event, &mockRetriever{})
	require.NoError(t, err)
	require.True(t, actionable)
	assert.True(t, update.CancelAtPeriodEnd)
}

func TestClassifySubscriptionDeletedForcesCanceled(t *testing.T) {
	event := makeEvent(t, "customer.subscription.deleted", map[string]any{
		"customer":           "cus_123",
		"status":             "active",
		"current_period_end": 1790000000,
	})

	update, actionable, err := billing.Classify(context.Background(), event, &mockRetriever{})
	require.NoError(t, err)
	require.True(t, actionable)
	assert.Equal(t, "canceled", update.RawStatus)
}

func TestClassifyUnknownEventIsNoOp(t *testing.T) {
	event := makeEvent(t, "customer.updated", map[string]any{"id": "cus_123"})

	retriever := &mockRetriever{
		GetFunc: func(_ context.Context, _ string) (*stripe.Subscription, error) {
			t.Fatal("retriever should not be called for ignored events")
			return nil, nil
		},
	}

	update, actionable, err := billing.Classify(context.Background(), event, retriever)
	require.NoError(t, err)
	assert.False(t, actionable)
	assert.Nil(t, update)
	assert.Equal(t, 0, retriever.calls)
}
