// Package journeys wires the application together and registers its routes.
package journeys

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/journeysyoga/journeys/internal/billing"
	"github.com/journeysyoga/journeys/internal/cache"
	"github.com/journeysyoga/journeys/internal/config"
	"github.com/journeysyoga/journeys/internal/http/handlers/account"
	"github.com/journeysyoga/journeys/internal/http/handlers/auth/login"
	"github.com/journeysyoga/journeys/internal/http/handlers/auth/register"
	"github.com/journeysyoga/journeys/internal/http/handlers/billing/checkout"
	"github.com/journeysyoga/journeys/internal/http/handlers/billing/portal"
	"github.com/journeysyoga/journeys/internal/http/handlers/billing/webhook"
	journeylist "github.com/journeysyoga/journeys/internal/http/handlers/journey/list"
	journeyprogress "github.com/journeysyoga/journeys/internal/http/handlers/journey/progress"
	journeyread "github.com/journeysyoga/journeys/internal/http/handlers/journey/read"
	"github.com/journeysyoga/journeys/internal/http/handlers/onboarding"
	practicelist "github.com/journeysyoga/journeys/internal/http/handlers/practice/list"
	practiceread "github.com/journeysyoga/journeys/internal/http/handlers/practice/read"
	"github.com/journeysyoga/journeys/internal/http/middlewarectx"
	"github.com/journeysyoga/journeys/internal/http/response"
	"github.com/journeysyoga/journeys/internal/lib/jwt"
	"github.com/journeysyoga/journeys/internal/services/reconciler"
	userservice "github.com/journeysyoga/journeys/internal/services/user"
	"github.com/journeysyoga/journeys/internal/storage"
	"github.com/journeysyoga/journeys/internal/subscription"
)

// RegisterRoutes registers all application routes.
func RegisterRoutes(
	r chi.Router,
	logger *slog.Logger,
	cfg *config.Config,
	db *storage.Storage,
	cacheRedis *cache.Cache,
	billingClient *billing.Client,
	jwtMaker jwt.Maker,
	userService *userservice.Service,
	reconcilerService *reconciler.Service,
	policy subscription.AccessPolicy,
) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)
	r.Use(middlewarectx.Session(jwtMaker, logger))

	// Page routes, behind the gate.
	r.Group(func(r chi.Router) {
		r.Use(middlewarectx.Gate(logger, db))

		r.Get(middlewarectx.LandingPath, func(w http.ResponseWriter, r *http.Request) {
			render.JSON(w, r, response.OKWithData(map[string]any{"page": "landing"}))
		})
		r.Get(middlewarectx.HomePath, practicelist.New(logger, db))
		r.Get("/account", account.New(logger, db, policy))
		r.Get("/journeys", journeylist.New(logger, db))
		r.Get("/journeys/{slug}", journeyread.New(logger, db, db, db, policy))
		r.Get("/all-videos", practicelist.New(logger, db))
		r.Get(middlewarectx.SubscribePath, func(w http.ResponseWriter, r *http.Request) {
			render.JSON(w, r, response.OKWithData(map[string]any{"plans": planIDs(cfg.Plans)}))
		})
		r.Get(middlewarectx.OnboardingPath, func(w http.ResponseWriter, r *http.Request) {
			render.JSON(w, r, response.OKWithData(map[string]any{"page": "onboarding"}))
		})
		r.Post(middlewarectx.OnboardingPath, onboarding.New(logger, userService))
		r.Get("/practice/{slug}", practiceread.New(logger, db, db, cacheRedis, policy))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/register", register.New(logger, userService, jwtMaker))
		r.Post("/login", login.New(logger, userService, jwtMaker))

		// Webhook endpoint, authenticated by signature rather than session.
		r.Post("/billing/webhook", webhook.New(logger, cfg.Stripe.WebhookSecret, reconcilerService))

		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RequireAuth(logger))
			r.Use(middlewarectx.RateLimit(logger, rate.NewLimiter(rate.Limit(20), 40)))
			r.Get("/account", account.New(logger, db, policy))
			r.Post("/onboarding", onboarding.New(logger, userService))
			r.Post("/billing/checkout", checkout.New(logger, db, billingClient, cfg.Plans, cfg.Stripe.AppBaseURL))
			r.Post("/billing/portal", portal.New(logger, db, billingClient, cfg.Stripe.AppBaseURL))
			r.Get("/practices", practicelist.New(logger, db))
			r.Get("/practices/{slug}", practiceread.New(logger, db, db, cacheRedis, policy))
			r.Get("/journeys", journeylist.New(logger, db))
			r.Get("/journeys/{slug}", journeyread.New(logger, db, db, db, policy))
			r.Post("/journeys/{slug}/progress", journeyprogress.New(logger, db, db, db))
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}

func planIDs(plans map[string]int64) []string {
	ids := make([]string, 0, len(plans))
	for id := range plans {
		ids = append(ids, id)
	}
	return ids
}
