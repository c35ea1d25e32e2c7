package billing

import (
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

// VerifyEvent checks the webhook signature over the exact raw bytes received
// and returns the typed event. The body must never be re-serialized before
// verification: re-serialization can alter byte layout and break the
// signature. No event is classified or reconciled without passing here.
func VerifyEvent(payload []byte, sigHeader, secret string) (stripe.Event, error) {
	const op = "billing.VerifyEvent"

	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, secret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	return event, nil
}
