package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/journeysyoga/journeys/internal/lib/sl"
	"github.com/journeysyoga/journeys/internal/metrics"
	"github.com/journeysyoga/journeys/internal/models"
)

// Page paths the gate routes between.
const (
	LandingPath    = "/"
	HomePath       = "/home"
	OnboardingPath = "/onboarding"
	SubscribePath  = "/subscribe"
)

// UserProvider reads the record backing the authenticated identity.
type UserProvider interface {
	FindUserByEmail(ctx context.Context, email string) (*models.UserRecord, error)
}

// Gate enforces the page routing rules on every protected page request:
//
//   - anonymous on anything but the landing page: back to the landing page
//   - authenticated with onboarding incomplete: to onboarding, always
//   - authenticated with onboarding complete: onboarding and landing both
//     forward to home
//
// The record read happens per request. If it fails the gate fails closed and
// sends the user to the landing page rather than guessing.
func Gate(log *slog.Logger, users UserProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.Gate"
			path := r.URL.Path

			email := EmailFromContext(r.Context())
			if email == "" {
				if path == LandingPath {
					next.ServeHTTP(w, r)
					return
				}
				redirect(w, r, LandingPath)
				return
			}

			user, err := users.FindUserByEmail(r.Context(), email)
			if err != nil {
				log.Error("failed to read user record, failing closed",
					slog.String("op", op),
					slog.String("request_id", middleware.GetReqID(r.Context())),
					sl.Err(err))
				redirect(w, r, LandingPath)
				return
			}

			if !user.OnboardingComplete {
				if path == OnboardingPath {
					next.ServeHTTP(w, r)
					return
				}
				redirect(w, r, OnboardingPath)
				return
			}

			if path == OnboardingPath || path == LandingPath {
				redirect(w, r, HomePath)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func redirect(w http.ResponseWriter, r *http.Request, target string) {
	metrics.GateRedirects.WithLabelValues(target).Inc()
	http.Redirect(w, r, target, http.StatusSeeOther)
}
