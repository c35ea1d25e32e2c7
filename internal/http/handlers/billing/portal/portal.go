package portal

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/journeysyoga/journeys/internal/http/middlewarectx"
	"github.com/journeysyoga/journeys/internal/http/response"
	"github.com/journeysyoga/journeys/internal/lib/sl"
	"github.com/journeysyoga/journeys/internal/models"
)

type UserProvider interface {
	FindUserByEmail(ctx context.Context, email string) (*models.UserRecord, error)
}

type BillingClient interface {
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

// New
// @Summary Open the self-service subscription management portal
// @Tags billing
// @Produce json
// @Success 200 {object} response.Response "Portal redirect URL"
// @Failure 401 {object} response.Response "Authentication required"
// @Failure 404 {object} response.Response "No subscription to manage"
// @Failure 500 {object} response.Response "Internal server error"
// @Router /billing/portal [post]
func New(log *slog.Logger, users UserProvider, billingClient BillingClient, appBaseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.portal.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		email := middlewarectx.EmailFromContext(r.Context())
		user, err := users.FindUserByEmail(r.Context(), email)
		if err != nil {
			log.Error("failed to load user record", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to open portal"))
			return
		}

		if user.BillingCustomerID == nil {
			log.Info("no billing customer on record", slog.String("email", email))
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("no subscription to manage"))
			return
		}

		url, err := billingClient.CreatePortalSession(r.Context(), *user.BillingCustomerID, appBaseURL+"/account")
		if err != nil {
			log.Error("failed to create portal session", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to open portal"))
			return
		}

		log.Info("portal session created", slog.String("email", email))
		render.JSON(w, r, response.OKWithData(map[string]any{
			"url": url,
		}))
	}
}
