// Package server contains the HTTP and WebSocket handlers of the Happy Thoughts API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	_ "happythoughts/docs" // swagger docs
	"happythoughts/internal/bootstrap"
	"happythoughts/internal/cache"
	"happythoughts/internal/config"
	"happythoughts/internal/featureflags"
	"happythoughts/internal/middleware"
	"happythoughts/internal/models"
	"happythoughts/internal/observability"
	"happythoughts/internal/realtime"
	"happythoughts/internal/repository"
	"happythoughts/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	serviceName     = "happythoughts-api"
	globalRateLimit = 300
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	runtime        *bootstrap.Runtime
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	registry       *prometheus.Registry
	metrics        *observability.Metrics
	promMiddleware *fiberprometheus.FiberPrometheus
	featureFlags   *featureflags.Manager
	hub            *realtime.Hub
	notifier       *realtime.Notifier
	thoughtService *service.ThoughtService
	authService    *service.AuthService
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
}

// NewServerWithDeps creates a Server on top of already opened stores. The
// server takes ownership of rt and closes it on Shutdown.
func NewServerWithDeps(cfg *config.Config, rt *bootstrap.Runtime) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if rt == nil || rt.DB == nil {
		return nil, errors.New("a database handle is required")
	}
	if rt.Registry == nil {
		rt.Registry = bootstrap.NewRegistry()
	}
	if rt.Metrics == nil {
		rt.Metrics = observability.NewMetrics(rt.Registry)
	}

	flags := featureflags.NewManager(cfg.FeatureFlags)
	store := cache.NewStore(rt.Redis)

	var thoughtStore *cache.Store
	if flags.Active(featureflags.ThoughtCache) {
		thoughtStore = store
	}

	hub := realtime.NewHub(realtime.DefaultMaxConnections, rt.Metrics)
	notifier := realtime.NewNotifier(rt.Redis, hub)

	var publisher service.Publisher
	if flags.Active(featureflags.Realtime) {
		publisher = notifier
	}

	s := &Server{
		config:       cfg,
		runtime:      rt,
		db:           rt.DB,
		redis:        rt.Redis,
		registry:     rt.Registry,
		metrics:      rt.Metrics,
		featureFlags: flags,
		hub:          hub,
		notifier:     notifier,
		thoughtService: service.NewThoughtService(
			repository.NewThoughtRepository(rt.DB, thoughtStore, rt.Metrics), publisher, rt.Metrics),
		authService: service.NewAuthService(
			repository.NewUserRepository(rt.DB, rt.Metrics), store, cfg.BcryptCost, rt.Metrics),
		promMiddleware: fiberprometheus.NewWithRegistry(rt.Registry, serviceName, "happythoughts", "http", nil),
	}

	s.app = fiber.New(fiber.Config{
		AppName:      "Happy Thoughts API",
		ReadTimeout:  seconds(cfg.ReadTimeoutSec),
		WriteTimeout: seconds(cfg.WriteTimeoutSec),
		IdleTimeout:  seconds(cfg.IdleTimeoutSec),
		ErrorHandler: s.handleError,
	})
	s.SetupMiddleware(s.app)
	s.SetupRoutes(s.app)

	return s, nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// handleError turns errors that escaped a handler into the standard error body.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "unhandled request error",
			slog.String("path", c.Path()), slog.String("error", err.Error()))
	}
	return models.RespondWithError(c, status, err)
}

// App exposes the Fiber app, mainly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Tracing must run before the context middleware so the trace ID reaches the logger.
	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}
	app.Use(middleware.ContextMiddleware())
	app.Use(s.promMiddleware.Middleware)
	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected browser requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		MaxAge:       86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        globalRateLimit,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || middleware.RateLimitBypassed(s.config.Env)
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return models.Respond(c, &models.AppError{Code: models.CodeRateLimited, Message: "Too many requests"})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/", s.ListEndpoints)

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})))
	app.Get("/swagger/*", swagger.HandlerDefault)
	app.Get("/features", s.GetFeatureFlags)

	authRequired := middleware.AuthRequired(s.authService)

	app.Post("/signup", s.credentialRateLimit("signup"), s.Signup)
	app.Post("/login", s.credentialRateLimit("login"), s.Login)
	app.Get("/secrets", authRequired, s.GetSecret)

	app.Get("/thoughts", s.ListThoughts)
	app.Post("/thoughts", authRequired, s.CreateThought)
	// Define /:id/like before the generic /:id routes
	app.Post("/thoughts/:id/like", s.LikeThought)
	app.Get("/thoughts/:id", s.GetThought)
	app.Patch("/thoughts/:id", authRequired, s.UpdateThought)
	app.Delete("/thoughts/:id", authRequired, s.DeleteThought)

	app.Get("/ws", s.WebsocketHandler())
}

// credentialRateLimit limits signup and login attempts per client IP.
func (s *Server) credentialRateLimit(resource string) fiber.Handler {
	if s.config.RateLimitPerMinute <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return middleware.RateLimit(s.redis, s.config.Env, s.config.RateLimitPerMinute, time.Minute, resource)
}

// Start subscribes to thought events and serves HTTP on the configured port.
func (s *Server) Start() error {
	s.startRealtime()
	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	s.startRealtime()
	return s.app.Listener(ln)
}

func (s *Server) startRealtime() {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	if !s.featureFlags.Active(featureflags.Realtime) {
		return
	}
	// Without the subscription events still publish; only this instance's sockets miss them.
	if err := s.notifier.Start(ctx); err != nil {
		middleware.Logger.Error("failed to subscribe to thought events", slog.String("error", err.Error()))
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	var errs []error
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		errs = append(errs, err)
		middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		errs = append(errs, err)
		middleware.Logger.Error("error shutting down websocket hub", slog.String("error", err.Error()))
	}

	if err := s.runtime.Close(); err != nil {
		errs = append(errs, err)
		middleware.Logger.Error("error closing stores", slog.String("error", err.Error()))
	}

	middleware.Logger.Info("Server shutdown complete")
	return errors.Join(errs...)
}
