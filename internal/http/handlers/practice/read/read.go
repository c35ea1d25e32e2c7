package read

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

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

const practiceCacheTTL = 10 * time.Minute

type Catalog interface {
	FindPracticeBySlug(ctx context.Context, slug string) (*models.Practice, error)
}

type UserProvider interface {
	FindUserByEmail(ctx context.Context, email string) (*models.UserRecord, error)
}

// Cache holds catalog entries only. Subscription status must never be read
// from it.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// New
// @Summary Practice page data with playback id
// @Tags practice
// @Produce json
// @Param   slug path string true "Practice slug"
// @Success 200 {object} response.Response "Practice with playback id"
// @Failure 303 {object} response.Response "Premium practice without access, forwarded to subscribe"
// @Failure 404 {object} response.Response "Practice not found"
// @Failure 500 {object} response.Response "Internal server error"
// @Router /practices/{slug} [get]
//
// The premium check reads the subscription status fresh from the record
// store on every request. A webhook may have changed it seconds ago, so
// neither the session token nor any cache is trusted for this decision.
func New(log *slog.Logger, catalog Catalog, users UserProvider, catalogCache Cache, policy subscription.AccessPolicy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.practice.read.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		slug := chi.URLParam(r, "slug")
		practice, err := loadPractice(r.Context(), log, catalog, catalogCache, slug)
		if errors.Is(err, storage.ErrPracticeNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("practice not found"))
			return
		}
		if err != nil {
			log.Error("failed to load practice", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to load practice"))
			return
		}

		if practice.IsPremium {
			email := middlewarectx.EmailFromContext(r.Context())
			user, err := users.FindUserByEmail(r.Context(), email)
			if err != nil {
				// fail closed: without a readable status there is no access
				log.Error("failed to read subscription status, failing closed", sl.Err(err))
				http.Redirect(w, r, middlewarectx.SubscribePath, http.StatusSeeOther)
				return
			}
			if !policy.HasAccess(user.SubscriptionStatus) {
				log.Info("premium practice without access",
					slog.String("slug", slug),
					slog.String("status", string(user.SubscriptionStatus)))
				http.Redirect(w, r, middlewarectx.SubscribePath, http.StatusSeeOther)
				return
			}
		}

		render.JSON(w, r, response.OKWithData(practice))
	}
}

func loadPractice(ctx context.Context, log *slog.Logger, catalog Catalog, catalogCache Cache, slug string) (*models.Practice, error) {
	cacheKey := "practice:" + slug

	if catalogCache != nil {
		var cached models.Practice
		found, err := catalogCache.Get(ctx, cacheKey, &cached)
		if err != nil {
			log.Warn("practice cache read failed", sl.Err(err))
		} else if found {
			return &cached, nil
		}
	}

	practice, err := catalog.FindPracticeBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if catalogCache != nil {
		if err := catalogCache.Set(ctx, cacheKey, practice, practiceCacheTTL); err != nil {
			log.Warn("practice cache write failed", sl.Err(err))
		}
	}
	return practice, nil
}
