package read

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/journeysyoga/journeys/internal/http/middlewarectx"
	"github.com/journeysyoga/journeys/internal/http/response"
	"github.com/journeysyoga/journeys/internal/lib/sl"
	"github.com/journeysyoga/journeys/internal/models"
	"github.com/journeysyoga/journeys/internal/storage"
	"github.com/journeysyoga/journeys/internal/subscription"
)

type Catalog interface {
	FindJourneyBySlug(ctx context.Context, slug string) (*models.Journey, error)
	ListPracticesByJourney(ctx context.Context, journeySlug string) ([]*models.Practice, error)
}

type UserProvider interface {
	FindUserByEmail(ctx context.Context, email string) (*models.UserRecord, error)
}

type ProgressStore interface {
	ListCompletedPractices(ctx context.Context, userID, journeySlug string) ([]string, error)
}

// PracticeItem is one schedule entry. Locked means the practice needs an
// access-granting status the requester does not have.
type PracticeItem struct {
	models.Practice
	Locked    bool `json:"locked"`
	Completed bool `json:"completed"`
}

// New
// @Summary Journey page data: schedule, locks and progress
// @Tags journey
// @Produce json
// @Param   slug path string true "Journey slug"
// @Success 200 {object} response.Response "Journey with ordered practices"
// @Failure 303 {object} response.Response "Premium journey without access, forwarded to subscribe"
// @Failure 404 {object} response.Response "Journey not found"
// @Failure 500 {object} response.Response "Internal server error"
// @Router /journeys/{slug} [get]
//
// A premium journey gates the whole schedule; on a free journey individual
// premium practices are still badged locked. The access check reads the
// subscription status fresh from the record store on every request.
func New(log *slog.Logger, catalog Catalog, users UserProvider, progress ProgressStore, policy subscription.AccessPolicy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.journey.read.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		slug := chi.URLParam(r, "slug")
		journey, err := catalog.FindJourneyBySlug(r.Context(), slug)
		if errors.Is(err, storage.ErrJourneyNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("journey not found"))
			return
		}
		if err != nil {
			log.Error("failed to load journey", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to load journey"))
			return
		}

		email := middlewarectx.EmailFromContext(r.Context())
		user, err := users.FindUserByEmail(r.Context(), email)
		if err != nil {
			if journey.IsPremium {
				// fail closed: without a readable status there is no access
				log.Error("failed to read subscription status, failing closed", sl.Err(err))
				http.Redirect(w, r, middlewarectx.SubscribePath, http.StatusSeeOther)
				return
			}
			log.Warn("failed to read user record, rendering without access", sl.Err(err))
			user = nil
		}

		hasAccess := user != nil && policy.HasAccess(user.SubscriptionStatus)
		if journey.IsPremium && !hasAccess {
			log.Info("premium journey without access", slog.String("slug", slug))
			http.Redirect(w, r, middlewarectx.SubscribePath, http.StatusSeeOther)
			return
		}

		practices, err := catalog.ListPracticesByJourney(r.Context(), slug)
		if err != nil {
			log.Error("failed to load journey schedule", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to load journey"))
			return
		}

		completed := map[string]bool{}
		if user != nil {
			slugs, err := progress.ListCompletedPractices(r.Context(), user.ID, slug)
			if err != nil {
				// progress is decoration, the schedule still renders
				log.Warn("failed to load journey progress", sl.Err(err))
			}
			for _, s := range slugs {
				completed[s] = true
			}
		}

		items := make([]PracticeItem, 0, len(practices))
		for _, p := range practices {
			items = append(items, PracticeItem{
				Practice:  *p,
				Locked:    p.IsPremium && !hasAccess,
				Completed: completed[p.Slug],
			})
		}

		render.JSON(w, r, response.OKWithData(map[string]any{
			"journey":   journey,
			"practices": items,
		}))
	}
}
