package onboarding

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
	userservice "github.com/journeysyoga/journeys/internal/services/user"
)

type OnboardingRequest struct {
	Name         string   `json:"name" validate:"required,min=1,max=100"`
	MonthOfBirth int      `json:"month_of_birth" validate:"required,min=1,max=12"`
	YearOfBirth  int      `json:"year_of_birth" validate:"required,min=1900,max=2026"`
	Goals        []string `json:"goals" validate:"required,min=1,dive,oneof=flexibility strength stress_relief mindfulness sleep"`
}

type Onboarder interface {
	CompleteOnboarding(ctx context.Context, email string, profile models.OnboardingProfile) error
}

// New
// @Summary Complete the onboarding profile
// @Tags onboarding
// @Accept  json
// @Produce json
// @Param   onboardingRequest body OnboardingRequest true "Profile (name, birth month/year, goals)"
// @Success 200 {object} response.Response "Profile stored"
// @Failure 303 {object} response.Response "Already onboarded, forwarded home"
// @Failure 400 {object} response.Response "Validation error or malformed request"
// @Failure 500 {object} response.Response "Internal server error"
// @Router /onboarding [post]
func New(log *slog.Logger, onboarder Onboarder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.onboarding.New"
		var onboardingRequest OnboardingRequest

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if err := render.DecodeJSON(r.Body, &onboardingRequest); err != nil {
			log.Error("failed to decode request body", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("failed to decode request"))
			return
		}

		if err := validator.New().Struct(onboardingRequest); err != nil {
			validateErr := err.(validator.ValidationErrors)
			log.Error("invalid request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationError(validateErr))
			return
		}

		email := middlewarectx.EmailFromContext(r.Context())
		profile := models.OnboardingProfile{
			Name:         onboardingRequest.Name,
			MonthOfBirth: onboardingRequest.MonthOfBirth,
			YearOfBirth:  onboardingRequest.YearOfBirth,
			Goals:        onboardingRequest.Goals,
		}

		err := onboarder.CompleteOnboarding(r.Context(), email, profile)
		if errors.Is(err, userservice.ErrAlreadyOnboarded) {
			log.Info("onboarding already complete, forwarding home", slog.String("email", email))
			http.Redirect(w, r, middlewarectx.HomePath, http.StatusSeeOther)
			return
		}
		if err != nil {
			log.Error("failed to complete onboarding", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to complete onboarding"))
			return
		}

		log.Info("onboarding complete", slog.String("email", email))
		render.JSON(w, r, response.OK())
	}
}
