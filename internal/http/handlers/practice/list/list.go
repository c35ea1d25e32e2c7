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
	ListPractices(ctx context.Context) ([]*models.Practice, error)
}

// New
// @Summary List all practices with premium flags
// @Tags practice
// @Produce json
// @Success 200 {object} response.Response "Practice list"
// @Failure 500 {object} response.Response "Internal server error"
// @Router /practices [get]
//
// Listings badge locked content with the premium flag; playback access is
// checked on the practice page itself, not here.
func New(log *slog.Logger, catalog Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.practice.list.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		practices, err := catalog.ListPractices(r.Context())
		if err != nil {
			log.Error("failed to list practices", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to list practices"))
			return
		}

		render.JSON(w, r, response.OKWithData(practices))
	}
}
