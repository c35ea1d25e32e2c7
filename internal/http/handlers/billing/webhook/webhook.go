package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/stripe/stripe-go/v79"

	"github.com/journeysyoga/journeys/internal/billing"
	"github.com/journeysyoga/journeys/internal/http/response"
	"github.com/journeysyoga/journeys/internal/lib/sl"
	"github.com/journeysyoga/journeys/internal/metrics"
	"github.com/journeysyoga/journeys/internal/services/reconciler"
)

// maxBodyBytes bounds the raw payload read. Stripe events are small; anything
// larger is not a legitimate delivery.
const maxBodyBytes = 64 * 1024

type EventProcessor interface {
	ProcessEvent(ctx context.Context, event stripe.Event) (reconciler.Outcome, error)
}

// New
// @Summary Billing provider webhook endpoint
// @Tags billing
// @Accept  json
// @Produce json
// @Success 200 {object} response.Response "Event processed or acknowledged"
// @Failure 400 {object} response.Response "Signature verification failed or malformed payload"
// @Failure 500 {object} response.Response "Internal failure, provider should redeliver"
// @Router /billing/webhook [post]
//
// Verification runs over the exact raw bytes of the body. The payload must
// not be decoded or re-serialized before the signature check.
func New(log *slog.Logger, webhookSecret string, processor EventProcessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.webhook.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			log.Error("failed to read request body", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("failed to read request body"))
			return
		}

		event, err := billing.VerifyEvent(payload, r.Header.Get("Stripe-Signature"), webhookSecret)
		if err != nil {
			log.Error("webhook signature verification failed", sl.Err(err))
			metrics.WebhookEvents.WithLabelValues("rejected").Inc()
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("signature verification failed"))
			return
		}

		outcome, err := processor.ProcessEvent(r.Context(), event)
		if err != nil {
			log.Error("failed to process webhook event",
				slog.String("event_id", event.ID),
				sl.Err(err))
			metrics.WebhookEvents.WithLabelValues("failed").Inc()
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to process event"))
			return
		}

		render.JSON(w, r, response.OKWithData(map[string]any{
			"outcome": string(outcome),
		}))
	}
}
