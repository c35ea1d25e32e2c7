package account

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
	"github.com/journeysyoga/journeys/internal/subscription"
)

type UserProvider interface {
	FindUserByEmail(ctx context.Context, email string) (*models.UserRecord, error)
}

// New
// @Summary Account page data: profile and subscription state
// @Tags account
// @Produce json
// @Success 200 {object} response.Response "Profile with current subscription state"
// @Failure 401 {object} response.Response "Authentication required"
// @Failure 500 {object} response.Response "Internal server error"
// @Router /account [get]
//
// Subscription state is read fresh from the store on every call so the page
// reflects webhook updates immediately.
func New(log *slog.Logger, users UserProvider, policy subscription.AccessPolicy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.account.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		email := middlewarectx.EmailFromContext(r.Context())
		user, err := users.FindUserByEmail(r.Context(), email)
		if err != nil {
			log.Error("failed to load user record", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to load account"))
			return
		}

		render.JSON(w, r, response.OKWithData(map[string]any{
			"email":                user.Email,
			"name":                 user.Name,
			"subscription_status":  string(user.SubscriptionStatus),
			"has_access":           policy.HasAccess(user.SubscriptionStatus),
			"cancel_at_period_end": user.CancelAtPeriodEnd,
			"current_period_end":   user.CurrentPeriodEnd,
			"goals":                user.Goals,
		}))
	}
}
