package checkout

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/journeysyoga/journeys/internal/http/middlewarectx"
	"github.com/journeysyoga/journeys/internal/http/response"
	"github.com/journeysyoga/journeys/internal/lib/sl"
	"github.com/journeysyoga/journeys/internal/models"
	"github.com/journeysyoga/journeys/internal/storage"
)

type CheckoutRequest struct {
	PriceID string `json:"price_id" validate:"required"`
}

type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.UserRecord, error)
	LinkBillingCustomer(ctx context.Context, userID, customerID string) error
}

type BillingClient interface {
	CreateCustomer(ctx context.Context, email, userID string) (string, error)
	CreateCheckoutSession(ctx context.Context, customerID, priceID string, trialDays int64, successURL, cancelURL string) (string, error)
}

// New
// @Summary Start a subscription checkout session
// @Tags billing
// @Accept  json
// @Produce json
// @Param   checkoutRequest body CheckoutRequest true "Plan to purchase (price_id)"
// @Success 200 {object} response.Response "Checkout redirect URL"
// @Failure 400 {object} response.Response "Unknown plan or malformed request"
// @Failure 401 {object} response.Response "Authentication required"
// @Failure 500 {object} response.Response "Internal server error"
// @Router /billing/checkout [post]
//
// The billing customer is created lazily on first checkout and linked to the
// record before the session starts, so the webhook that follows can resolve
// the customer id back to a user.
func New(log *slog.Logger, users UserStore, billingClient BillingClient, plans map[string]int64, appBaseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.checkout.New"
		var checkoutRequest CheckoutRequest

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if err := render.DecodeJSON(r.Body, &checkoutRequest); err != nil {
			log.Error("failed to decode request body", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("failed to decode request"))
			return
		}

		if err := validator.New().Struct(checkoutRequest); err != nil {
			validateErr := err.(validator.ValidationErrors)
			log.Error("invalid request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationError(validateErr))
			return
		}

		trialDays, ok := plans[checkoutRequest.PriceID]
		if !ok {
			log.Error("unknown plan requested", slog.String("price_id", checkoutRequest.PriceID))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("unknown plan"))
			return
		}

		email := middlewarectx.EmailFromContext(r.Context())
		user, err := users.FindUserByEmail(r.Context(), email)
		if err != nil {
			log.Error("failed to load user record", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to start checkout"))
			return
		}

		customerID, err := ensureCustomer(r.Context(), users, billingClient, user)
		if err != nil {
			log.Error("failed to ensure billing customer", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to start checkout"))
			return
		}

		successURL := appBaseURL + "/account?session_id={CHECKOUT_SESSION_ID}"
		cancelURL := appBaseURL + "/subscribe"
		url, err := billingClient.CreateCheckoutSession(r.Context(), customerID, checkoutRequest.PriceID, trialDays, successURL, cancelURL)
		if err != nil {
			log.Error("failed to create checkout session", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to start checkout"))
			return
		}

		log.Info("checkout session created",
			slog.String("email", email),
			slog.String("price_id", checkoutRequest.PriceID))
		render.JSON(w, r, response.OKWithData(map[string]any{
			"url": url,
		}))
	}
}

// ensureCustomer returns the record's billing customer id, creating and
// linking one on first checkout. A concurrent first checkout can win the
// link; in that case the freshly created customer is abandoned and the linked
// one is used.
func ensureCustomer(ctx context.Context, users UserStore, billingClient BillingClient, user *models.UserRecord) (string, error) {
	if user.BillingCustomerID != nil {
		return *user.BillingCustomerID, nil
	}

	customerID, err := billingClient.CreateCustomer(ctx, user.Email, user.ID)
	if err != nil {
		return "", err
	}

	err = users.LinkBillingCustomer(ctx, user.ID, customerID)
	if errors.Is(err, storage.ErrBillingAlreadyLinked) {
		fresh, ferr := users.FindUserByEmail(ctx, user.Email)
		if ferr != nil {
			return "", ferr
		}
		if fresh.BillingCustomerID == nil {
			return "", err
		}
		return *fresh.BillingCustomerID, nil
	}
	if err != nil {
		return "", err
	}
	return customerID, nil
}
