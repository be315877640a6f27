// Package api wires the HTTP surface: routes, middleware and handlers.
package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okdriver/backend/internal/api/handlers"
	"github.com/okdriver/backend/internal/auth"
	"github.com/okdriver/backend/internal/cache"
	"github.com/okdriver/backend/internal/config"
	"github.com/okdriver/backend/internal/database"
	"github.com/okdriver/backend/internal/middleware"
	"github.com/okdriver/backend/internal/oauth"
	"github.com/okdriver/backend/internal/ratelimit"
	"github.com/okdriver/backend/internal/repository"
	"github.com/okdriver/backend/internal/service"
)

// Dependencies are the collaborators the routes are served by
type Dependencies struct {
	Accounts      handlers.Accounts
	APIKeys       handlers.APIKeys
	KeyAuth       auth.APIKeyAuthenticator
	Subscriptions handlers.Subscriptions
	Google        handlers.GoogleVerifier
	JWT           *auth.JWTService
	Health        *handlers.HealthChecker
	Status        *handlers.StatusHandler
	// AuthLimiter throttles credential endpoints; nil disables it.
	AuthLimiter *ratelimit.RateLimiter
}

// NewRouter builds the services on top of db and redis and returns the router
func NewRouter(cfg *config.Config, db *database.DB, redisCache *cache.Redis, log *slog.Logger) *chi.Mux {
	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	apiKeyRepo := repository.NewAPIKeyRepository(db)
	planRepo := repository.NewPlanRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)

	// Initialize auth
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpiration)
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)

	// Initialize services
	subCache := cache.NewSubscriptionCache(redisCache, cfg.SubscriptionCacheTTL, log)
	accounts := service.NewAccountService(userRepo, apiKeyRepo, hasher, jwtService, log)
	apiKeys := service.NewAPIKeyService(apiKeyRepo, userRepo, log)
	subscriptions := service.NewSubscriptionService(planRepo, subRepo, subCache, log)

	health := handlers.NewHealthChecker(db.Ping, redisCache.Health)

	return NewMux(cfg, Dependencies{
		Accounts:      accounts,
		APIKeys:       apiKeys,
		KeyAuth:       apiKeys,
		Subscriptions: subscriptions,
		Google:        oauth.NewGoogleClient(cfg.GoogleUserInfoURL),
		JWT:           jwtService,
		Health:        health,
		Status:        handlers.NewStatusHandler(health, db.Stats, cfg.Env),
		AuthLimiter:   ratelimit.NewRateLimiter(redisCache, "auth", cfg.AuthRateLimitPerMinute, time.Minute, log),
	}, log)
}

// NewMux registers every route on a fresh router
func NewMux(cfg *config.Config, deps Dependencies, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	authMiddleware := auth.NewAuthMiddleware(deps.JWT, deps.KeyAuth)

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recoverer(log))
	r.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(deps.Accounts, deps.Google, log)
	profileHandler := handlers.NewProfileHandler(deps.Accounts, log)
	apiKeyHandler := handlers.NewAPIKeyHandler(deps.APIKeys, log)
	subscriptionHandler := handlers.NewSubscriptionHandler(deps.Subscriptions, log)

	// Health endpoints
	if deps.Health != nil {
		r.Get("/health", deps.Health.Health)
		r.Get("/health/ready", deps.Health.ReadinessProbe)
	}
	r.Get("/health/live", handlers.LivenessProbe)
	if deps.Status != nil {
		r.Get("/status", deps.Status.GetStatus)
	}

	// Public catalog
	r.Get("/plans", subscriptionHandler.ListPlans)

	// Credential endpoints, throttled per client IP
	r.Group(func(r chi.Router) {
		if deps.AuthLimiter != nil {
			r.Use(deps.AuthLimiter.Middleware)
		}
		r.Post("/save-user", authHandler.SaveUser)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)
		r.Post("/auth/google", authHandler.Google)
	})

	// Authenticated endpoints
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Post("/subscribe", subscriptionHandler.Subscribe)

		// Per-user endpoints: the caller may only address themselves
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSelf("userId"))

			r.Get("/profile/{userId}", profileHandler.GetProfile)
			r.Put("/profile/{userId}", profileHandler.UpdateProfile)

			r.Post("/api-key/{userId}", apiKeyHandler.Create)
			r.Get("/api-key/{userId}", apiKeyHandler.List)
			r.Put("/api-key/{userId}/{keyId}/deactivate", apiKeyHandler.Deactivate)

			r.Get("/subscription/{userId}", subscriptionHandler.GetActive)
		})
	})

	return r
}
