// Package reconciler applies verified billing events to the user record
// store. Webhook delivery is at-least-once, unordered and possibly
// duplicated; the reconciler is safe under all three: updates are
// unconditional sets (idempotent by construction), ordering is last-write-
// wins with the provider as source of truth, and duplicates short-circuit on
// a best-effort event-id mark.
package reconciler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v79"

	"github.com/journeysyoga/journeys/internal/billing"
	"github.com/journeysyoga/journeys/internal/lib/sl"
	"github.com/journeysyoga/journeys/internal/metrics"
	"github.com/journeysyoga/journeys/internal/models"
	"github.com/journeysyoga/journeys/internal/storage"
	"github.com/journeysyoga/journeys/internal/subscription"
)

// Outcome describes how a webhook delivery was handled. Every outcome except
// a returned error is acknowledged to the provider with a success response.
type Outcome string

const (
	// OutcomeProcessed means the normalized tuple was written to the store.
	OutcomeProcessed Outcome = "processed"
	// OutcomeIgnored means the event kind is intentionally not actionable.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeDeferred means the billing customer is not linked to any record
	// yet; a later event will re-trigger resolution once the link exists.
	OutcomeDeferred Outcome = "deferred"
	// OutcomeDuplicate means the exact event id was already applied.
	OutcomeDuplicate Outcome = "duplicate"
)

// UserStore is the subset of the record store the reconciler writes through.
type UserStore interface {
	FindUserByBillingCustomerID(ctx context.Context, customerID string) (*models.UserRecord, error)
	ApplySubscriptionState(ctx context.Context, userID string, state models.SubscriptionState) error
}

// EventDeduper remembers processed event ids. Best-effort only.
type EventDeduper interface {
	EventSeen(ctx context.Context, eventID string) (bool, error)
	MarkEventSeen(ctx context.Context, eventID string, expiration time.Duration) error
}

// Notifier publishes subscription change events for downstream consumers.
type Notifier interface {
	PublishSubscriptionChanged(message any) error
}

// ChangedMessage is the notification payload published after each write.
type ChangedMessage struct {
	Email             string     `json:"email"`
	PreviousStatus    string     `json:"previous_status"`
	Status            string     `json:"status"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
	CurrentPeriodEnd  *time.Time `json:"current_period_end,omitempty"`
}

const eventMarkTTL = 24 * time.Hour

// Service reconciles billing events with the user record store.
type Service struct {
	log        *slog.Logger
	store      UserStore
	provider   billing.SubscriptionRetriever
	dedup      EventDeduper
	notifier   Notifier
	retryDelay time.Duration
}

// New creates a reconciler. dedup and notifier may be nil.
func New(log *slog.Logger, store UserStore, provider billing.SubscriptionRetriever, dedup EventDeduper, notifier Notifier, retryDelay time.Duration) *Service {
	return &Service{
		log:        log,
		store:      store,
		provider:   provider,
		dedup:      dedup,
		notifier:   notifier,
		retryDelay: retryDelay,
	}
}

// ProcessEvent applies one verified webhook event. A returned error means
// the handler should answer 5xx so the provider redelivers; every non-error
// outcome is acknowledged with success. At most one store write happens per
// call.
func (s *Service) ProcessEvent(ctx context.Context, event stripe.Event) (Outcome, error) {
	const op = "reconciler.ProcessEvent"

	log := s.log.With(
		slog.String("op", op),
		slog.String("event_id", event.ID),
		slog.String("event_type", string(event.Type)),
	)

	if s.dedup != nil {
		seen, err := s.dedup.EventSeen(ctx, event.ID)
		if err != nil {
			// the mark is an optimization, re-applying is safe
			log.Warn("event dedup check failed", sl.Err(err))
		} else if seen {
			log.Info("duplicate event delivery, already applied")
			metrics.WebhookEvents.WithLabelValues(string(OutcomeDuplicate)).Inc()
			return OutcomeDuplicate, nil
		}
	}

	update, actionable, err := s.classify(ctx, event)
	if err != nil {
		return "", err
	}
	if !actionable {
		log.Info("event not actionable, acknowledged without state change")
		metrics.WebhookEvents.WithLabelValues(string(OutcomeIgnored)).Inc()
		return OutcomeIgnored, nil
	}

	user, err := s.resolveCustomer(ctx, update.CustomerID)
	if errors.Is(err, storage.ErrUserNotFound) {
		log.Warn("billing customer not linked to any record yet, deferring",
			slog.String("customer_id", update.CustomerID))
		metrics.WebhookEvents.WithLabelValues(string(OutcomeDeferred)).Inc()
		return OutcomeDeferred, nil
	}
	if err != nil {
		return "", err
	}

	mapped, known := subscription.FromProvider(update.RawStatus)
	if !known {
		log.Warn("unrecognized provider status, mapped to free",
			slog.String("raw_status", update.RawStatus))
	}

	state := models.SubscriptionState{
		Status:            mapped,
		CurrentPeriodEnd:  update.PeriodEnd,
		CancelAtPeriodEnd: update.CancelAtPeriodEnd,
	}

	log.Info("applying subscription state",
		slog.String("email", user.Email),
		slog.String("previous_status", string(user.SubscriptionStatus)),
		slog.String("status", string(mapped)),
		slog.Bool("cancel_at_period_end", update.CancelAtPeriodEnd),
	)

	if err := s.store.ApplySubscriptionState(ctx, user.ID, state); err != nil {
		return "", err
	}
	metrics.ReconcileWrites.WithLabelValues(string(mapped)).Inc()
	metrics.WebhookEvents.WithLabelValues(string(OutcomeProcessed)).Inc()

	if s.dedup != nil {
		if err := s.dedup.MarkEventSeen(ctx, event.ID, eventMarkTTL); err != nil {
			log.Warn("failed to mark event as seen", sl.Err(err))
		}
	}

	if s.notifier != nil {
		msg := ChangedMessage{
			Email:             user.Email,
			PreviousStatus:    string(user.SubscriptionStatus),
			Status:            string(mapped),
			CancelAtPeriodEnd: update.CancelAtPeriodEnd,
			CurrentPeriodEnd:  update.PeriodEnd,
		}
		if err := s.notifier.PublishSubscriptionChanged(msg); err != nil {
			log.Warn("failed to publish subscription change", sl.Err(err))
		}
	}

	return OutcomeProcessed, nil
}

func (s *Service) classify(ctx context.Context, event stripe.Event) (*billing.Update, bool, error) {
	return billing.Classify(ctx, event, s.provider)
}

// resolveCustomer looks up the record owning a billing customer id. A miss
// usually means the webhook raced the checkout flow, which creates the
// billing customer before persisting the link; one bounded retry covers that
// window.
func (s *Service) resolveCustomer(ctx context.Context, customerID string) (*models.UserRecord, error) {
	user, err := s.store.FindUserByBillingCustomerID(ctx, customerID)
	if !errors.Is(err, storage.ErrUserNotFound) {
		return user, err
	}

	select {
	case <-time.After(s.retryDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return s.store.FindUserByBillingCustomerID(ctx, customerID)
}
