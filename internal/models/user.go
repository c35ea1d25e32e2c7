// Package models contains the persisted data structures of the application.
package models

import (
	"time"

	"github.com/journeysyoga/journeys/internal/subscription"
)

// UserRecord is the per-user document held in the user record store.
//
// BillingCustomerID is set at most once, on first checkout, and is unique
// across records. SubscriptionStatus, CancelAtPeriodEnd and CurrentPeriodEnd
// are mutated exclusively by the reconciler from verified billing events;
// user-facing code only reads them.
type UserRecord struct {
	ID                 string              `json:"id"`
	Email              string              `json:"email"`
	Name               string              `json:"name"`
	PasswordHash       string              `json:"-"`
	BillingCustomerID  *string             `json:"billing_customer_id,omitempty"`
	SubscriptionStatus subscription.Status `json:"subscription_status"`
	CancelAtPeriodEnd  bool                `json:"cancel_at_period_end"`
	CurrentPeriodEnd   *time.Time          `json:"current_period_end,omitempty"`
	OnboardingComplete bool                `json:"onboarding_complete"`
	Goals              []string            `json:"goals,omitempty"`
	MonthOfBirth       int                 `json:"month_of_birth,omitempty"`
	YearOfBirth        int                 `json:"year_of_birth,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
}

// SubscriptionState is the normalized tuple the reconciler writes to a user
// record. Applying the same state twice leaves the record unchanged.
type SubscriptionState struct {
	Status            subscription.Status
	CurrentPeriodEnd  *time.Time
	CancelAtPeriodEnd bool
}

// OnboardingProfile carries the data collected by the onboarding form.
type OnboardingProfile struct {
	Name         string
	MonthOfBirth int
	YearOfBirth  int
	Goals        []string
}
