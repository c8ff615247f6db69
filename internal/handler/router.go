package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Jose-cardos0/ONLYNEX/internal/handler/account"
	"github.com/Jose-cardos0/ONLYNEX/internal/handler/catalog"
	"github.com/Jose-cardos0/ONLYNEX/internal/handler/chat"
	"github.com/Jose-cardos0/ONLYNEX/internal/handler/collection"
	"github.com/Jose-cardos0/ONLYNEX/internal/handler/stream"
	"github.com/Jose-cardos0/ONLYNEX/internal/handler/ws"
	middlewarePkg "github.com/Jose-cardos0/ONLYNEX/internal/middleware"
	catalogModel "github.com/Jose-cardos0/ONLYNEX/internal/model/catalog"
	authService "github.com/Jose-cardos0/ONLYNEX/internal/service/auth"
	chatService "github.com/Jose-cardos0/ONLYNEX/internal/service/chat"
	collectionService "github.com/Jose-cardos0/ONLYNEX/internal/service/collection"
	subscriptionService "github.com/Jose-cardos0/ONLYNEX/internal/service/subscription"
	"github.com/Jose-cardos0/ONLYNEX/pkg/utils"
)

// HealthChecker reports whether the remote reply service is reachable.
type HealthChecker interface {
	Remote() bool
	HealthCheck(ctx context.Context) bool
}

// Deps are the services behind the HTTP surface. Auth and Subscriptions may
// be nil; without Auth the API runs in development identity mode.
type Deps struct {
	Models        catalogModel.Store
	Chat          *chatService.Service
	Ledger        *collectionService.Ledger
	Gateway       HealthChecker
	Auth          *authService.Service
	Subscriptions *subscriptionService.Service
	Limiter       *middlewarePkg.RateLimiter
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	var validator middlewarePkg.TokenValidator
	var authenticator account.Authenticator
	if deps.Auth != nil {
		validator = deps.Auth
		authenticator = deps.Auth
	}
	var events account.EventHandler
	if deps.Subscriptions != nil {
		events = deps.Subscriptions
	}
	identity := middlewarePkg.NewAuth(validator)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", healthHandler(deps.Gateway, deps.Chat))

		account.New(authenticator, events).RegisterRoutes(api)
		catalog.New(deps.Models).RegisterRoutes(api)

		api.Group(func(private chi.Router) {
			private.Use(identity.Handle)

			chat.New(deps.Chat, deps.Limiter).RegisterRoutes(private)
			stream.New(deps.Chat, stream.DefaultHeartbeat).RegisterRoutes(private)
			ws.New(deps.Chat, deps.Limiter).RegisterRoutes(private)
			collection.New(deps.Ledger, deps.Models).RegisterRoutes(private)
		})
	})

	return r
}

func healthHandler(gateway HealthChecker, sessions *chatService.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"status":   "ok",
			"time":     time.Now().UTC().Format(time.RFC3339),
			"sessions": sessions.Len(),
			"webhook":  "disabled",
		}
		if gateway != nil && gateway.Remote() {
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			if gateway.HealthCheck(ctx) {
				body["webhook"] = "up"
			} else {
				body["webhook"] = "down"
			}
		}
		utils.RespondJSON(w, http.StatusOK, body)
	}
}
