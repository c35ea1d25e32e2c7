package register

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
	"github.com/journeysyoga/journeys/internal/storage"
)

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Password string `json:"password" validate:"required,min=8"`
}

type Registration interface {
	Register(ctx context.Context, email, name, plainPassword string) (*models.UserRecord, error)
}

// New
// @Summary Register a new user
// @Tags auth
// @Accept  json
// @Produce json
// @Param   registerRequest body RegisterRequest true "Registration data (email, name, password)"
// @Success 200 {object} response.Response "User created, session token returned"
// @Failure 400 {object} response.Response "Validation error or malformed request"
// @Failure 409 {object} response.Response "Email already registered"
// @Failure 500 {object} response.Response "Internal server error"
// @Router /register [post]
func New(log *slog.Logger, registration Registration, jwtMaker jwt.Maker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.register.New"
		var registerRequest RegisterRequest

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if err := render.DecodeJSON(r.Body, &registerRequest); err != nil {
			log.Error("failed to decode request body", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("failed to decode request"))
			return
		}

		if err := validator.New().Struct(registerRequest); err != nil {
			validateErr := err.(validator.ValidationErrors)
			log.Error("invalid request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationError(validateErr))
			return
		}

		user, err := registration.Register(r.Context(), registerRequest.Email, registerRequest.Name, registerRequest.Password)
		if errors.Is(err, storage.ErrEmailTaken) {
			log.Info("email already registered", slog.String("email", registerRequest.Email))
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, response.Error("email already registered"))
			return
		}
		if err != nil {
			log.Error("failed to register new user", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to register new user"))
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

		log.Info("created new user", slog.String("email", user.Email))
		render.JSON(w, r, response.OKWithData(map[string]any{
			"email": user.Email,
			"token": token,
		}))
	}
}
