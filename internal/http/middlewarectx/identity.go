// Package middlewarectx contains the HTTP middleware: session parsing, the
// route gate and rate limiting.
//
// Session tokens carry identity only. Subscription status is never read from
// the token; every authorization decision about it re-reads the record store.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/journeysyoga/journeys/internal/http/response"
	"github.com/journeysyoga/journeys/internal/lib/jwt"
	"github.com/journeysyoga/journeys/internal/lib/sl"
)

// Key is the type for request context keys.
type Key string

const (
	// Email is the context key for the authenticated user's email.
	Email Key = "email"
	// Name is the context key for the authenticated user's display name.
	Name Key = "name"
)

// SessionCookie is the cookie the login handler sets.
const SessionCookie = "session"

// Session parses the session token from the Authorization header or the
// session cookie and, when valid, puts the identity into the request context.
// An absent or invalid token is not an error here: the request continues as
// anonymous and the gate or RequireAuth decides what that means per route.
func Session(maker jwt.Maker, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r)
			if tokenStr == "" {
				if cookie, err := r.Cookie(SessionCookie); err == nil {
					tokenStr = cookie.Value
				}
			}
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := maker.ParseToken(tokenStr)
			if err != nil {
				log.Warn("invalid session token, treating request as anonymous",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					sl.Err(err))
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), Email, claims.Email)
			ctx = context.WithValue(ctx, Name, claims.Name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous requests with 401. Used on the API group,
// where a redirect would be wrong.
func RequireAuth(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email, ok := r.Context().Value(Email).(string)
			if !ok || email == "" {
				log.Error("user identification missing",
					slog.String("request_id", middleware.GetReqID(r.Context())))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("authentication required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// EmailFromContext returns the authenticated email, or "" for anonymous.
func EmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(Email).(string)
	return email
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(authHeader, "Bearer ")
}
