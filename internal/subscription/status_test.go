package subscription_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/journeysyoga/journeys/internal/subscription"
)

func TestFromProvider(t *testing.T) {
	cases := []struct {
		raw   string
		want  subscription.Status
		known bool
	}{
		{"active", subscription.StatusActive, true},
		{"trialing", subscription.StatusTrialing, true},
		{"past_due", subscription.StatusPastDue, true},
		{"canceled", subscription.StatusCanceled, true},
		{"unpaid", subscription.StatusFree, false},
		{"incomplete", subscription.StatusFree, false},
		{"incomplete_expired", subscription.StatusFree, false},
		{"paused", subscription.StatusFree, false},
		{"", subscription.StatusFree, false},
		{"some_future_status", subscription.StatusFree, false},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, known := subscription.FromProvider(tc.raw)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.known, known)
		})
	}
}

func TestHasAccessTotality(t *testing.T) {
	policy := subscription.AccessPolicy{}

	all := map[subscription.Status]bool{
		subscription.StatusFree:     false,
		subscription.StatusTrialing: true,
		subscription.StatusActive:   true,
		subscription.StatusPastDue:  false,
		subscription.StatusCanceled: false,
	}

	for status, want := range all {
		assert.Equal(t, want, policy.HasAccess(status), "status %s", status)
	}
}

func TestHasAccessPastDueGrace(t *testing.T) {
	strict := subscription.AccessPolicy{PastDueKeepsAccess: false}
	graceful := subscription.AccessPolicy{PastDueKeepsAccess: true}

	assert.False(t, strict.HasAccess(subscription.StatusPastDue))
	assert.True(t, graceful.HasAccess(subscription.StatusPastDue))

	// the grace period setting only affects past_due
	assert.False(t, graceful.HasAccess(subscription.StatusFree))
	assert.False(t, graceful.HasAccess(subscription.StatusCanceled))
	assert.True(t, graceful.HasAccess(subscription.StatusActive))
}

func TestUnknownStatusNeverGrantsAccess(t *testing.T) {
	policy := subscription.AccessPolicy{PastDueKeepsAccess: true}

	for _, raw := range []string{"unpaid", "incomplete", "incomplete_expired", "made_up"} {
		mapped, known := subscription.FromProvider(raw)
		assert.False(t, known)
		assert.False(t, policy.HasAccess(mapped))
	}
}
