package read_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/journeysyoga/journeys/internal/http/handlers/practice/read"
	"github.com/journeysyoga/journeys/internal/http/middlewarectx"
	"github.com/journeysyoga/journeys/internal/models"
	"github.com/journeysyoga/journeys/internal/storage"
	"github.com/journeysyoga/journeys/internal/subscription"
)

type mockCatalog struct {
	FindFunc func(ctx context.Context, slug string) (*models.Practice, error)
	calls    int
}

func (m *mockCatalog) FindPracticeBySlug(ctx context.Context, slug string) (*models.Practice, error) {
	m.calls++
	return m.FindFunc(ctx, slug)
}

type mockUserProvider struct {
	FindFunc func(ctx context.Context, email string) (*models.UserRecord, error)
	calls    int
}

func (m *mockUserProvider) FindUserByEmail(ctx context.Context, email string) (*models.UserRecord, error) {
	m.calls++
	return m.FindFunc(ctx, email)
}

type memoryCache struct {
	values map[string]any
}

func (m *memoryCache) Get(_ context.Context, key string, result any) (bool, error) {
	value, ok := m.values[key]
	if !ok {
		return false, nil
	}
	*result.(*models.Practice) = *value.(*models.Practice)
	return true, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	practice := *value.(*models.Practice)
	m.values[key] = &practice
	return nil
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }

func makeLogger() *slog.Logger {
	return slog.New(discardHandler{})
}

func practiceRequest(t *testing.T, slug, email string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/practices/"+slug, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("slug", slug)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if email != "" {
		ctx = context.WithValue(ctx, middlewarectx.Email, email)
	}
	return req.WithContext(ctx)
}

func userWithStatus(status subscription.Status) *models.UserRecord {
	return &models.UserRecord{
		ID:                 "user-1",
		Email:              "yogi@example.com",
		SubscriptionStatus: status,
		OnboardingComplete: true,
	}
}

func premiumPractice() *models.Practice {
	return &models.Practice{
		Slug:       "deep-stretch",
		Title:      "Deep Stretch",
		PlaybackID: "mux-playback-1",
		IsPremium:  true,
	}
}

func TestReadFreePracticeSkipsStatusCheck(t *testing.T) {
	catalog := &mockCatalog{
		FindFunc: func(_ context.Context, slug string) (*models.Practice, error) {
			return &models.Practice{Slug: slug, Title: "Morning Flow", PlaybackID: "mux-1"}, nil
		},
	}
	users := &mockUserProvider{
		FindFunc: func(_ context.Context, _ string) (*models.UserRecord, error) {
			t.Fatal("free practices must not trigger a status read")
			return nil, nil
		},
	}
	handler := read.New(makeLogger(), catalog, users, nil, subscription.AccessPolicy{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, practiceRequest(t, "morning-flow", "yogi@example.com"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, users.calls)
	assert.Contains(t, rec.Body.String(), "mux-1")
}

func TestReadPremiumPracticeWithAccess(t *testing.T) {
	catalog := &mockCatalog{
		FindFunc: func(_ context.Context, _ string) (*models.Practice, error) {
			return premiumPractice(), nil
		},
	}
	users := &mockUserProvider{
		FindFunc: func(_ context.Context, _ string) (*models.UserRecord, error) {
			return userWithStatus(subscription.StatusTrialing), nil
		},
	}
	handler := read.New(makeLogger(), catalog, users, nil, subscription.AccessPolicy{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, practiceRequest(t, "deep-stretch", "yogi@example.com"))

	require.Equal(t, http.StatusOK, rec.Code)
	// the status was read fresh from the store, not from any session state
	assert.Equal(t, 1, users.calls)
	assert.Contains(t, rec.Body.String(), "mux-playback-1")
}

func TestReadPremiumPracticeWithoutAccessForwardsToSubscribe(t *testing.T) {
	catalog := &mockCatalog{
		FindFunc: func(_ context.Context, _ string) (*models.Practice, error) {
			return premiumPractice(), nil
		},
	}

	for _, status := range []subscription.Status{
		subscription.StatusFree,
		subscription.StatusPastDue,
		subscription.StatusCanceled,
	} {
		t.Run(string(status), func(t *testing.T) {
			users := &mockUserProvider{
				FindFunc: func(_ context.Context, _ string) (*models.UserRecord, error) {
					return userWithStatus(status), nil
				},
			}
			handler := read.New(makeLogger(), catalog, users, nil, subscription.AccessPolicy{})

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, practiceRequest(t, "deep-stretch", "yogi@example.com"))

			require.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/subscribe", rec.Header().Get("Location"))
		})
	}
}

func TestReadPremiumPracticePastDueGrace(t *testing.T) {
	catalog := &mockCatalog{
		FindFunc: func(_ context.Context, _ string) (*models.Practice, error) {
			return premiumPractice(), nil
		},
	}
	users := &mockUserProvider{
		FindFunc: func(_ context.Context, _ string) (*models.UserRecord, error) {
			return userWithStatus(subscription.StatusPastDue), nil
		},
	}
	policy := subscription.AccessPolicy{PastDueKeepsAccess: true}
	handler := read.New(makeLogger(), catalog, users, nil, policy)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, practiceRequest(t, "deep-stretch", "yogi@example.com"))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadPremiumPracticeFailsClosedOnStoreError(t *testing.T) {
	catalog := &mockCatalog{
		FindFunc: func(_ context.Context, _ string) (*models.Practice, error) {
			return premiumPractice(), nil
		},
	}
	users := &mockUserProvider{
		FindFunc: func(_ context.Context, _ string) (*models.UserRecord, error) {
			return nil, errors.New("store unavailable")
		},
	}
	handler := read.New(makeLogger(), catalog, users, nil, subscription.AccessPolicy{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, practiceRequest(t, "deep-stretch", "yogi@example.com"))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/subscribe", rec.Header().Get("Location"))
}

func TestReadPracticeNotFound(t *testing.T) {
	catalog := &mockCatalog{
		FindFunc: func(_ context.Context, _ string) (*models.Practice, error) {
			return nil, storage.ErrPracticeNotFound
		},
	}
	handler := read.New(makeLogger(), catalog, &mockUserProvider{}, nil, subscription.AccessPolicy{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, practiceRequest(t, "nope", "yogi@example.com"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReadCachesPracticeButNeverStatus(t *testing.T) {
	catalog := &mockCatalog{
		FindFunc: func(_ context.Context, _ string) (*models.Practice, error) {
			return premiumPractice(), nil
		},
	}
	users := &mockUserProvider{
		FindFunc: func(_ context.Context, _ string) (*models.UserRecord, error) {
			return userWithStatus(subscription.StatusActive), nil
		},
	}
	cache := &memoryCache{values: map[string]any{}}
	handler := read.New(makeLogger(), catalog, users, cache, subscription.AccessPolicy{})

	for range 2 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, practiceRequest(t, "deep-stretch", "yogi@example.com"))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	// the second request hits the practice cache, the status read does not
	assert.Equal(t, 1, catalog.calls)
	assert.Equal(t, 2, users.calls)
}
