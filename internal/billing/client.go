// Package billing wraps the Stripe API: the outbound client (customers,
// checkout, portal, subscription fetches), webhook signature verification,
// and classification of webhook events into normalized updates.
package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// Plan is the server-side source of truth for a purchasable price.
type Plan struct {
	TrialDays int64
}

// Client is a thin wrapper over the Stripe API with bounded call timeouts.
type Client struct {
	api     *client.API
	timeout time.Duration
}

func NewClient(secretKey string, timeout time.Duration) *Client {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Client{api: api, timeout: timeout}
}

func (c *Client) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// GetSubscription fetches a subscription object by id.
func (c *Client) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	const op = "billing.GetSubscription"

	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	sub, err := c.api.Subscriptions.Get(id, &stripe.SubscriptionParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// CreateCustomer creates a billing customer for the given user and returns
// its id. The user record id travels in metadata for cross-referencing.
func (c *Client) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	const op = "billing.CreateCustomer"

	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	customer, err := c.api.Customers.New(&stripe.CustomerParams{
		Params: stripe.Params{
			Context:  ctx,
			Metadata: map[string]string{"user_id": userID},
		},
		Email: stripe.String(email),
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return customer.ID, nil
}

// CreateCheckoutSession starts a subscription-mode checkout session and
// returns the redirect URL.
func (c *Client) CreateCheckoutSession(ctx context.Context, customerID, priceID string, trialDays int64, successURL, cancelURL string) (string, error) {
	const op = "billing.CreateCheckoutSession"

	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	params := &stripe.CheckoutSessionParams{
		Params:   stripe.Params{Context: ctx},
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(customerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		AllowPromotionCodes: stripe.Bool(true),
		SuccessURL:          stripe.String(successURL),
		CancelURL:           stripe.String(cancelURL),
	}
	if trialDays > 0 {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			TrialPeriodDays: stripe.Int64(trialDays),
		}
	}

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return sess.URL, nil
}

// CreatePortalSession starts a customer portal session for self-service
// subscription management and returns the redirect URL.
func (c *Client) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	const op = "billing.CreatePortalSession"

	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	sess, err := c.api.BillingPortalSessions.New(&stripe.BillingPortalSessionParams{
		Params:    stripe.Params{Context: ctx},
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return sess.URL, nil
}
