package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
)

// Update is the normalized tuple a webhook event reduces to. PeriodEnd is an
// absolute UTC instant, never a provider-local relative value.
type Update struct {
	EventID           string
	CustomerID        string
	RawStatus         string
	PeriodEnd         *time.Time
	CancelAtPeriodEnd bool
}

// SubscriptionRetriever fetches a subscription object when the event only
// carries a bare reference.
type SubscriptionRetriever interface {
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
}

// Classify maps a verified event onto an Update, or reports that the event
// is not actionable (second return false). Callers never need to branch on
// whether the event carried an inline subscription object or a bare id: the
// follow-up fetch happens here.
func Classify(ctx context.Context, event stripe.Event, subs SubscriptionRetriever) (*Update, bool, error) {
	const op = "billing.Classify"

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, false, fmt.Errorf("%s: %w", op, err)
		}
		if sess.Mode != stripe.CheckoutSessionModeSubscription || sess.Customer == nil || sess.Subscription == nil {
			return nil, false, nil
		}
		sub, err := resolveSubscription(ctx, sess.Subscription, subs)
		if err != nil {
			return nil, false, fmt.Errorf("%s: %w", op, err)
		}
		return fromSubscription(event.ID, sess.Customer.ID, sub, string(sub.Status)), true, nil

	case "invoice.payment_succeeded":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, false, fmt.Errorf("%s: %w", op, err)
		}
		if inv.Customer == nil || inv.Subscription == nil {
			return nil, false, nil
		}
		sub, err := resolveSubscription(ctx, inv.Subscription, subs)
		if err != nil {
			return nil, false, fmt.Errorf("%s: %w", op, err)
		}
		return fromSubscription(event.ID, inv.Customer.ID, sub, string(sub.Status)), true, nil

	case "customer.subscription.created", "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, false, fmt.Errorf("%s: %w", op, err)
		}
		if sub.Customer == nil {
			return nil, false, nil
		}
		return fromSubscription(event.ID, sub.Customer.ID, &sub, string(sub.Status)), true, nil

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, false, fmt.Errorf("%s: %w", op, err)
		}
		if sub.Customer == nil {
			return nil, false, nil
		}
		// the subscription is gone, whatever status the payload carries
		return fromSubscription(event.ID, sub.Customer.ID, &sub, string(stripe.SubscriptionStatusCanceled)), true, nil

	default:
		// Not actionable. The caller acknowledges so the provider does not
		// retry events we intentionally ignore.
		return nil, false, nil
	}
}

// resolveSubscription returns the subscription object, fetching it when the
// reference was a bare id (recognizable by the missing status).
func resolveSubscription(ctx context.Context, ref *stripe.Subscription, subs SubscriptionRetriever) (*stripe.Subscription, error) {
	if ref.Status != "" {
		return ref, nil
	}
	return subs.GetSubscription(ctx, ref.ID)
}

func fromSubscription(eventID, customerID string, sub *stripe.Subscription, rawStatus string) *Update {
	var periodEnd *time.Time
	if sub.CurrentPeriodEnd > 0 {
		t := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		periodEnd = &t
	}
	return &Update{
		EventID:    eventID,
		CustomerID: customerID,
		RawStatus:  rawStatus,
		PeriodEnd:  periodEnd,
		// a scheduled cancel_at counts as pending cancellation too
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd || sub.CancelAt != 0,
	}
}
