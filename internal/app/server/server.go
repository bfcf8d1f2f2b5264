package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/SnipURL/internal/app/ratelimit"
	"github.com/sifan077/SnipURL/internal/app/service"
	"github.com/sifan077/SnipURL/internal/http/handler"
	"github.com/sifan077/SnipURL/internal/http/middleware"
	infraprom "github.com/sifan077/SnipURL/internal/infra/prometheus"
	"go.uber.org/zap"
)

// Dependencies bundles infrastructure and services required by the HTTP server.
type Dependencies struct {
	Logger    *zap.Logger
	Postgres  *pgxpool.Pool
	Redis     *redis.Client
	NATS      *nats.Conn
	JetStream nats.JetStreamContext

	Shortener service.ShortenService
	Analytics service.AnalyticsService
	Auth      service.AuthService
	Limiter   *ratelimit.Limiter
	Metrics   *infraprom.Metrics

	BaseURL string
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerRoutes()
	return s
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the Fiber app for in-process testing.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) registerRoutes() {
	log := s.deps.Logger

	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Logger(log))
	s.app.Use(middleware.Recovery(log))
	s.app.Use(middleware.CORS())
	if s.deps.Metrics != nil {
		s.app.Use(middleware.Metrics(s.deps.Metrics))
	}

	apiHandler := handler.NewAPIHandler(handler.APIDeps{
		Logger:    log,
		Shortener: s.deps.Shortener,
		Metrics:   s.deps.Metrics,
		BaseURL:   s.deps.BaseURL,
	})
	redirectHandler := handler.NewRedirectHandler(handler.RedirectDeps{
		Logger:    log,
		Shortener: s.deps.Shortener,
		Analytics: s.deps.Analytics,
		Metrics:   s.deps.Metrics,
	})
	analyticsHandler := handler.NewAnalyticsHandler(handler.AnalyticsDeps{
		Logger:    log,
		Analytics: s.deps.Analytics,
	})
	authHandler := handler.NewAuthHandler(handler.AuthDeps{
		Logger: log,
		Auth:   s.deps.Auth,
	})
	systemHandler := handler.NewSystemHandler(handler.SystemDeps{
		Logger:  log,
		Pool:    s.deps.Postgres,
		Redis:   s.deps.Redis,
		NATS:    s.deps.NATS,
		Limiter: s.deps.Limiter,
	})

	optionalAuth := middleware.OptionalAuth(s.deps.Auth, log)
	requireAuth := middleware.RequireAuth(s.deps.Auth, log)
	requireAdmin := middleware.RequireAdmin(log)
	limit := func(endpoint string) fiber.Handler {
		return middleware.RateLimit(s.deps.Limiter, endpoint, s.deps.Metrics, log)
	}

	s.app.Post("/auth/register", limit("/auth/register"), authHandler.Register)
	s.app.Post("/auth/login", limit("/auth/login"), authHandler.Login)

	s.app.Post("/shorten/", optionalAuth, limit("/shorten/"), apiHandler.Shorten)
	s.app.Post("/bulk-shorten/", optionalAuth, limit("/bulk-shorten/"), apiHandler.BulkShorten)

	// /urls/ carries no dedicated policy and falls back to the default budget.
	s.app.Get("/urls/", requireAuth, limit("/urls/"), apiHandler.ListURLs)
	s.app.Delete("/urls/:code", requireAuth, limit("/urls/"), apiHandler.DeleteURL)
	s.app.Put("/urls/:code/expiration", requireAuth, limit("/urls/"), apiHandler.UpdateExpiration)

	s.app.Get("/analytics/url/:code", optionalAuth, limit("/analytics/"), analyticsHandler.URLAnalytics)
	s.app.Get("/analytics/user", requireAuth, limit("/analytics/"), analyticsHandler.UserAnalytics)
	s.app.Get("/analytics/global", requireAuth, requireAdmin, limit("/analytics/"), analyticsHandler.GlobalAnalytics)

	s.app.Get("/", systemHandler.Info)
	s.app.Get("/health", systemHandler.Health)
	s.app.Get("/rate-limits/status", optionalAuth, systemHandler.RateLimitStatus)
	s.app.Get("/rate-limits/config", systemHandler.RateLimitConfig)

	// Catch-all redirect route; must stay registered last.
	s.app.Get("/:code", optionalAuth, redirectHandler.Resolve)
}
