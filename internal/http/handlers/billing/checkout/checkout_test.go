package checkout_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/journeysyoga/journeys/internal/http/handlers/billing/checkout"
	"github.com/journeysyoga/journeys/internal/http/middlewarectx"
	"github.com/journeysyoga/journeys/internal/models"
	"github.com/journeysyoga/journeys/internal/storage"
)

type mockUserStore struct {
	FindFunc func(ctx context.Context, email string) (*models.UserRecord, error)
	LinkFunc func(ctx context.Context, userID, customerID string) error
}

func (m *mockUserStore) FindUserByEmail(ctx context.Context, email string) (*models.UserRecord, error) {
	return m.FindFunc(ctx, email)
}

func (m *mockUserStore) LinkBillingCustomer(ctx context.Context, userID, customerID string) error {
	return m.LinkFunc(ctx, userID, customerID)
}

type mockBilling struct {
	CreateCustomerFunc func(ctx context.Context, email, userID string) (string, error)
	CreateSessionFunc  func(ctx context.Context, customerID, priceID string, trialDays int64, successURL, cancelURL string) (string, error)
	customerCalls      int
}

func (m *mockBilling) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	m.customerCalls++
	return m.CreateCustomerFunc(ctx, email, userID)
}

func (m *mockBilling) CreateCheckoutSession(ctx context.Context, customerID, priceID string, trialDays int64, successURL, cancelURL string) (string, error) {
	return m.CreateSessionFunc(ctx, customerID, priceID, trialDays, successURL, cancelURL)
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }

func makeLogger() *slog.Logger {
	return slog.New(discardHandler{})
}

var testPlans = map[string]int64{"price_monthly": 7}

func checkoutRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/billing/checkout", bytes.NewBufferString(body))
	ctx := context.WithValue(req.Context(), middlewarectx.Email, "yogi@example.com")
	return req.WithContext(ctx)
}

func TestCheckoutCreatesAndLinksCustomerOnFirstPurchase(t *testing.T) {
	var linkedCustomer string
	store := &mockUserStore{
		FindFunc: func(_ context.Context, email string) (*models.UserRecord, error) {
			return &models.UserRecord{ID: "user-1", Email: email}, nil
		},
		LinkFunc: func(_ context.Context, userID, customerID string) error {
			require.Equal(t, "user-1", userID)
			linkedCustomer = customerID
			return nil
		},
	}
	billing := &mockBilling{
		CreateCustomerFunc: func(_ context.Context, email, userID string) (string, error) {
			assert.Equal(t, "yogi@example.com", email)
			assert.Equal(t, "user-1", userID)
			return "cus_new", nil
		},
		CreateSessionFunc: func(_ context.Context, customerID, priceID string, trialDays int64, successURL, cancelURL string) (string, error) {
			assert.Equal(t, "cus_new", customerID)
			assert.Equal(t, "price_monthly", priceID)
			assert.Equal(t, int64(7), trialDays)
			assert.Equal(t, "https://journeys.test/account?session_id={CHECKOUT_SESSION_ID}", successURL)
			assert.Equal(t, "https://journeys.test/subscribe", cancelURL)
			return "https://checkout.test/session", nil
		},
	}
	handler := checkout.New(makeLogger(), store, billing, testPlans, "https://journeys.test")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, checkoutRequest(`{"price_id":"price_monthly"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cus_new", linkedCustomer)
	assert.Contains(t, rec.Body.String(), "https://checkout.test/session")
}

func TestCheckoutReusesLinkedCustomer(t *testing.T) {
	cus := "cus_existing"
	store := &mockUserStore{
		FindFunc: func(_ context.Context, email string) (*models.UserRecord, error) {
			return &models.UserRecord{ID: "user-1", Email: email, BillingCustomerID: &cus}, nil
		},
		LinkFunc: func(_ context.Context, _, _ string) error {
			t.Fatal("an already linked record must not be re-linked")
			return nil
		},
	}
	billing := &mockBilling{
		CreateCustomerFunc: func(_ context.Context, _, _ string) (string, error) {
			t.Fatal("no new customer may be created for a linked record")
			return "", nil
		},
		CreateSessionFunc: func(_ context.Context, customerID, _ string, _ int64, _, _ string) (string, error) {
			assert.Equal(t, "cus_existing", customerID)
			return "https://checkout.test/session", nil
		},
	}
	handler := checkout.New(makeLogger(), store, billing, testPlans, "https://journeys.test")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, checkoutRequest(`{"price_id":"price_monthly"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, billing.customerCalls)
}

func TestCheckoutLinkRaceFallsBackToWinner(t *testing.T) {
	winner := "cus_winner"
	linked := false
	store := &mockUserStore{
		FindFunc: func(_ context.Context, email string) (*models.UserRecord, error) {
			u := &models.UserRecord{ID: "user-1", Email: email}
			if linked {
				u.BillingCustomerID = &winner
			}
			return u, nil
		},
		LinkFunc: func(_ context.Context, _, _ string) error {
			// a concurrent checkout linked a different customer first
			linked = true
			return storage.ErrBillingAlreadyLinked
		},
	}
	billing := &mockBilling{
		CreateCustomerFunc: func(_ context.Context, _, _ string) (string, error) {
			return "cus_loser", nil
		},
		CreateSessionFunc: func(_ context.Context, customerID, _ string, _ int64, _, _ string) (string, error) {
			assert.Equal(t, "cus_winner", customerID)
			return "https://checkout.test/session", nil
		},
	}
	handler := checkout.New(makeLogger(), store, billing, testPlans, "https://journeys.test")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, checkoutRequest(`{"price_id":"price_monthly"}`))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckoutUnknownPlanRejected(t *testing.T) {
	handler := checkout.New(makeLogger(), &mockUserStore{}, &mockBilling{}, testPlans, "https://journeys.test")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, checkoutRequest(`{"price_id":"price_unknown"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
