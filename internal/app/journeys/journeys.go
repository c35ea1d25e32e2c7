package journeys

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/journeysyoga/journeys/internal/billing"
	"github.com/journeysyoga/journeys/internal/cache"
	"github.com/journeysyoga/journeys/internal/config"
	"github.com/journeysyoga/journeys/internal/lib/jwt"
	"github.com/journeysyoga/journeys/internal/lib/sl"
	"github.com/journeysyoga/journeys/internal/migrations"
	"github.com/journeysyoga/journeys/internal/rabbitmq"
	"github.com/journeysyoga/journeys/internal/services/reconciler"
	userservice "github.com/journeysyoga/journeys/internal/services/user"
	"github.com/journeysyoga/journeys/internal/storage"
	"github.com/journeysyoga/journeys/internal/subscription"
)

// App holds the HTTP server and the resources it owns.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	cache  *cache.Cache
}

// New builds the application: storage with migrations, cache, the optional
// notification broker, the billing client, services and routes.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err := migrations.Run(cfg.StorageConnectionString, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	var notifier reconciler.Notifier
	if cfg.RabbitConnection.AddressRabbit != "" {
		conn, err := rabbitmq.Connect(cfg.RabbitConnection.AddressRabbit, cfg.RabbitConnection.RetriesRabbit, cfg.RabbitConnection.DelayRabbit)
		if err != nil {
			return nil, err
		}
		ch, err := rabbitmq.SetupChannel(conn)
		if err != nil {
			return nil, err
		}
		notifier = rabbitmq.NewPublisher(ch)
	} else {
		logger.Warn("notification broker address is empty, publishing disabled")
	}

	billingClient := billing.NewClient(cfg.Stripe.SecretKey, cfg.Stripe.ProviderCallTimeout)
	jwtMaker := jwt.NewMaker(cfg.JWTToken.JWTSecretKey, cfg.JWTToken.TokenTTL)
	policy := subscription.AccessPolicy{PastDueKeepsAccess: cfg.Access.PastDueKeepsAccess}

	userService := userservice.New(logger, db)
	reconcilerService := reconciler.New(logger, db, billingClient, cacheRedis, notifier, cfg.Stripe.ResolveRetryDelay)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, db, cacheRedis, billingClient, jwtMaker, userService, reconcilerService, policy)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.TimeoutHTTP,
		WriteTimeout: cfg.HTTPServer.TimeoutHTTP,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.closeResources()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.closeResources()
		return err
	}
}

func (a *App) closeResources() {
	if cerr := a.cache.Db.Close(); cerr != nil {
		a.logger.Warn("failed to close cache connection", sl.Err(cerr))
	}
	a.db.Close()
}
