package login

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
	"github.com/journeysyoga/journeys/internal/lib/jwt"
	"github.com/journeysyoga/journeys/internal/lib/sl"
	"github.com/journeysyoga/journeys/internal/models"
	userservice "github.com/journeysyoga/journeys/internal/services/user"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type Authenticator interface {
	Authenticate(ctx context.Context, email, plainPassword string) (*models.UserRecord, error)
}

// New
// @Summary Sign in an existing user
// @Tags auth
// @Accept  json
// @Produce json
// @Param   loginRequest body LoginRequest true "Credentials (email, password)"
// @Success 200 {object} response.Response "Session token returned"
// @Failure 400 {object} response.Response "Validation error or malformed request"
// @Failure 401 {object} response.Response "Incorrect email or password"
// @Failure 500 {object} response.Response "Internal server error"
// @Router /login [post]
func New(log *slog.Logger, authenticator Authenticator, jwtMaker jwt.Maker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.login.New"
		var loginRequest LoginRequest

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if err := render.DecodeJSON(r.Body, &loginRequest); err != nil {
			log.Error("failed to decode request body", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("failed to decode request"))
			return
		}

		if err := validator.New().Struct(loginRequest); err != nil {
			validateErr := err.(validator.ValidationErrors)
			log.Error("invalid request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationError(validateErr))
			return
		}

		user, err := authenticator.Authenticate(r.Context(), loginRequest.Email, loginRequest.Password)
		if errors.Is(err, userservice.ErrInvalidCredentials) {
			log.Info("incorrect email or password")
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("incorrect email or password"))
			return
		}
		if err != nil {
			log.Error("failed to authenticate user", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to authenticate user"))
			return
		}

		token, err := jwtMaker.GenerateToken(user.Email, user.Name)
		if err != nil {
			log.Error("could not generate token", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not generate token"))
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     middlewarectx.SessionCookie,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		log.Info("user signed in", slog.String("email", user.Email))
		render.JSON(w, r, response.OKWithData(map[string]any{
			"token": token,
		}))
	}
}
