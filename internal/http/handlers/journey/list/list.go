package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/journeysyoga/journeys/internal/http/response"
	"github.com/journeysyoga/journeys/internal/lib/sl"
	"github.com/journeysyoga/journeys/internal/models"
)

type Catalog interface {
	ListJourneys(ctx context.Context) ([]*models.Journey, error)
}

// New
// @Summary List all journeys
// @Tags journey
// @Produce json
// @Success 200 {object} response.Response "Journey list"
// @Failure 500 {object} response.Response "Internal server error"
// @Router /journeys [get]
func New(log *slog.Logger, catalog Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.journey.list.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		journeys, err := catalog.ListJourneys(r.Context())
		if err != nil {
			log.Error("failed to list journeys", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to list journeys"))
			return
		}

		render.JSON(w, r, response.OKWithData(journeys))
	}
}
