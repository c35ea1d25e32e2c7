package progress

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/journeysyoga/journeys/internal/http/middlewarectx"
	"github.com/journeysyoga/journeys/internal/http/response"
	"github.com/journeysyoga/journeys/internal/lib/sl"
	"github.com/journeysyoga/journeys/internal/models"
	"github.com/journeysyoga/journeys/internal/storage"
)

type ProgressRequest struct {
	PracticeSlug string `json:"practice_slug" validate:"required"`
}

type UserProvider interface {
	FindUserByEmail(ctx context.Context, email string) (*models.UserRecord, error)
}

type Catalog interface {
	FindPracticeBySlug(ctx context.Context, slug string) (*models.Practice, error)
}

type ProgressStore interface {
	TogglePracticeComplete(ctx context.Context, userID, journeySlug, practiceSlug string) (bool, error)
}

// New
// @Summary Toggle a practice's completion mark within a journey
// @Tags journey
// @Accept  json
// @Produce json
// @Param   slug path string true "Journey slug"
// @Param   progressRequest body ProgressRequest true "Practice to toggle (practice_slug)"
// @Success 200 {object} response.Response "Resulting completion state"
// @Failure 400 {object} response.Response "Practice does not belong to the journey or malformed request"
// @Failure 401 {object} response.Response "Authentication required"
// @Failure 404 {object} response.Response "Practice not found"
// @Failure 500 {object} response.Response "Internal server error"
// @Router /journeys/{slug}/progress [post]
func New(log *slog.Logger, users UserProvider, catalog Catalog, progress ProgressStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.journey.progress.New"
		var progressRequest ProgressRequest

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if err := render.DecodeJSON(r.Body, &progressRequest); err != nil {
			log.Error("failed to decode request body", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("failed to decode request"))
			return
		}

		if err := validator.New().Struct(progressRequest); err != nil {
			validateErr := err.(validator.ValidationErrors)
			log.Error("invalid request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationError(validateErr))
			return
		}

		journeySlug := chi.URLParam(r, "slug")
		practice, err := catalog.FindPracticeBySlug(r.Context(), progressRequest.PracticeSlug)
		if errors.Is(err, storage.ErrPracticeNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("practice not found"))
			return
		}
		if err != nil {
			log.Error("failed to load practice", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to update progress"))
			return
		}
		if practice.JourneySlug != journeySlug {
			log.Error("practice does not belong to journey",
				slog.String("practice_slug", practice.Slug),
				slog.String("journey_slug", journeySlug))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("practice does not belong to this journey"))
			return
		}

		email := middlewarectx.EmailFromContext(r.Context())
		user, err := users.FindUserByEmail(r.Context(), email)
		if err != nil {
			log.Error("failed to load user record", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to update progress"))
			return
		}

		completed, err := progress.TogglePracticeComplete(r.Context(), user.ID, journeySlug, practice.Slug)
		if err != nil {
			log.Error("failed to toggle practice completion", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to update progress"))
			return
		}

		log.Info("practice completion toggled",
			slog.String("email", email),
			slog.String("practice_slug", practice.Slug),
			slog.Bool("completed", completed))
		render.JSON(w, r, response.OKWithData(map[string]any{
			"practice_slug": practice.Slug,
			"completed":     completed,
		}))
	}
}
