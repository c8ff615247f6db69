// Package app assembles the services from configuration. It is shared by
// the API server and the chatsim CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"github.com/Jose-cardos0/ONLYNEX/internal/analysis/response"
	"github.com/Jose-cardos0/ONLYNEX/internal/config"
	"github.com/Jose-cardos0/ONLYNEX/internal/db"
	"github.com/Jose-cardos0/ONLYNEX/internal/handler"
	"github.com/Jose-cardos0/ONLYNEX/internal/middleware"
	"github.com/Jose-cardos0/ONLYNEX/internal/model/catalog"
	"github.com/Jose-cardos0/ONLYNEX/internal/service/ai"
	"github.com/Jose-cardos0/ONLYNEX/internal/service/auth"
	"github.com/Jose-cardos0/ONLYNEX/internal/service/chat"
	"github.com/Jose-cardos0/ONLYNEX/internal/service/collection"
	"github.com/Jose-cardos0/ONLYNEX/internal/service/subscription"
)

// App holds every long-lived service.
type App struct {
	Config        *config.Config
	Models        catalog.Store
	Ledger        *collection.Ledger
	Gateway       *ai.Gateway
	Chat          *chat.Service
	Subscriptions *subscription.Service
	Auth          *auth.Service
	Limiter       *middleware.RateLimiter

	closers []func() error
}

// New builds the application. Close must be called to release storage.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	models, err := loadModels(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	a.Models = catalog.NewMemoryStore(models)

	cardStore, accounts, err := a.openStores(ctx, cfg.Ledger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Ledger = collection.NewLedger(cardStore)

	a.Gateway = ai.NewGateway(response.NewMatcher(nil, nil, nil), ai.Options{
		Responder:     newResponder(ctx, cfg, a.Models),
		LocalFallback: cfg.Webhook.LocalFallback,
		Timeout:       cfg.Webhook.Timeout,
	})

	a.Chat = chat.NewService(a.Models, a.Gateway, a.Ledger, chat.Config{
		CardDropPeriod: cfg.Session.CardDropInterval,
		CardDropDwell:  cfg.Session.CardDropDwell,
		GreetingDelay:  cfg.Session.GreetingDelay,
		QueueSize:      cfg.Session.QueueSize,
		IdleTTL:        cfg.Session.IdleTTL,
		MaxPerUser:     cfg.Session.MaxPerUser,
	})

	a.Subscriptions = subscription.NewService(accounts, subscription.Config{
		Period:          cfg.Subscription.Period,
		DefaultPassword: cfg.Subscription.DefaultPassword,
	})
	if cfg.Auth.Enabled() {
		a.Auth = auth.NewService(accounts, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	} else {
		log.Println("[app] JWT_SECRET not set, trusting X-User-Id headers (development mode)")
	}
	a.Limiter = middleware.NewRateLimiter(cfg.RateLimit.MessagesPerSecond, cfg.RateLimit.Burst)

	return a, nil
}

// Router returns the HTTP surface over the application services.
func (a *App) Router() http.Handler {
	return handler.NewRouter(handler.Deps{
		Models:        a.Models,
		Chat:          a.Chat,
		Ledger:        a.Ledger,
		Gateway:       a.Gateway,
		Auth:          a.Auth,
		Subscriptions: a.Subscriptions,
		Limiter:       a.Limiter,
	})
}

// Close ends every open session and releases storage connections.
func (a *App) Close() error {
	if a.Chat != nil {
		a.Chat.CloseAll()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func loadModels(cfg config.CatalogConfig) ([]catalog.Model, error) {
	if cfg.Path == "" {
		return catalog.Seed(), nil
	}
	models, err := catalog.LoadFile(cfg.Path)
	if err != nil {
		return nil, err
	}
	log.Printf("[app] loaded %d models from %s", len(models), cfg.Path)
	return models, nil
}

// openStores picks the card store and the account store. Accounts live in
// the database for SQL backends and in memory otherwise.
func (a *App) openStores(ctx context.Context, cfg config.LedgerConfig) (collection.Store, subscription.Store, error) {
	switch cfg.Backend {
	case config.BackendFile:
		log.Printf("[app] ledger: file store in %s", cfg.DataDir)
		return collection.NewFileStore(cfg.DataDir), subscription.NewMemoryStore(), nil

	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.closers = append(a.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		log.Printf("[app] ledger: redis at %s", cfg.RedisAddr)
		return collection.NewRedisStore(rdb), subscription.NewMemoryStore(), nil

	case config.BackendPostgres, config.BackendSQLite:
		driver, dsn := db.DriverPostgres, cfg.DSN
		if cfg.Backend == config.BackendSQLite {
			driver, dsn = db.DriverSQLite, filepath.Clean(cfg.SQLitePath)
		}
		database, err := db.NewDatabase(ctx, driver, dsn)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, database.Close)
		if err := database.AutoMigrate(ctx); err != nil {
			return nil, nil, err
		}
		log.Printf("[app] ledger: %s database", cfg.Backend)
		return collection.NewSQLStore(database), subscription.NewSQLStore(database), nil

	default:
		log.Println("[app] ledger: in-memory store, saved cards are lost on restart")
		return collection.NewMemoryStore(), subscription.NewMemoryStore(), nil
	}
}

// newResponder prefers the webhook, then the Ark model. It returns nil when
// neither is configured, which leaves replies to the local matcher.
func newResponder(ctx context.Context, cfg *config.Config, models catalog.Store) ai.Responder {
	if cfg.Webhook.URL != "" {
		log.Printf("[app] replies: webhook %s", cfg.Webhook.URL)
		return ai.NewWebhookResponder(cfg.Webhook.URL, &http.Client{Timeout: cfg.Webhook.Timeout})
	}
	if !cfg.AI.Enabled() {
		log.Println("[app] replies: local matcher only")
		return nil
	}

	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		log.Printf("[app] ark model unavailable, using local matcher: %v", err)
		return nil
	}
	responder, err := ai.NewArkResponder(ctx, chatModel, models)
	if err != nil {
		log.Printf("[app] ark chain unavailable, using local matcher: %v", err)
		return nil
	}
	log.Printf("[app] replies: ark model %s", cfg.AI.Model)
	return responder
}
