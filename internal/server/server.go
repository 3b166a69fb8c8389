// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "warbler/docs" // swagger docs
	"warbler/internal/cache"
	"warbler/internal/config"
	"warbler/internal/database"
	"warbler/internal/featureflags"
	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/notifications"
	"warbler/internal/observability"
	"warbler/internal/repository"
	"warbler/internal/service"
	"warbler/internal/session"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// wireableHub is implemented by every WebSocket hub that can be wired to
// the notifier and gracefully shut down.
type wireableHub interface {
	Name() string
	StartWiring(ctx context.Context, n *notifications.Notifier) error
	Shutdown(ctx context.Context) error
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	sessions       *session.Manager
	users          repository.UserRepository
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	convHub        *notifications.ConversationHub
	hubs           []wireableHub // all hubs for wiring/shutdown iteration
	featureFlags   *featureflags.Manager
	authSvc        *service.AuthService
	socialSvc      *service.SocialService
	messageSvc     *service.MessageService
	convSvc        *service.ConversationService
	userSvc        *service.UserService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and optionally
// performs explicit seeding. redisClient may be nil, in which case sessions
// cannot be revoked and live events are dispatched in process.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg.SessionCookieName == "" {
		cfg.SessionCookieName = "warbler_session"
	}

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	convRepo := repository.NewConversationRepository(db)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics(observability.ServiceName),
		sessions:       session.NewManager(cfg.JWTSecret, session.DefaultTTL, redisClient),
		users:          userRepo,
		notifier:       notifications.NewNotifier(redisClient),
		hub:            notifications.NewHub(),
		convHub:        notifications.NewConversationHub(),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}
	s.hubs = []wireableHub{s.hub, s.convHub}

	s.authSvc = service.NewAuthService(userRepo)
	s.socialSvc = service.NewSocialService(userRepo, followRepo, likeRepo, messageRepo, s.notifier,
		func(targetID uint) bool {
			return s.featureFlags.Enabled(featureflags.FollowNotifications, targetID)
		})
	s.messageSvc = service.NewMessageService(messageRepo, followRepo, userRepo)
	s.convSvc = service.NewConversationService(convRepo, userRepo, s.notifier)
	s.userSvc = service.NewUserService(userRepo, followRepo, likeRepo, messageRepo, s.authSvc)

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Tracing must run before ContextMiddleware so the trace ID reaches the logger.
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so error responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))

	app.Use(middleware.NoCache())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Warbler Metrics Dashboard",
	}))
	app.Get("/swagger/*", swagger.HandlerDefault)

	required := s.SessionRequired()
	optional := s.SessionOptional()

	// Auth
	app.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	app.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	app.Get("/logout", s.Logout)

	// Home timeline
	app.Get("/", optional, s.Homepage)

	// Users. Literal segments are registered before /:id.
	app.Get("/users", s.ListUsers)
	app.Post("/users/follow/:id", required, middleware.RateLimit(s.redis, 30, time.Minute, "follow"), s.Follow)
	app.Post("/users/stop-following/:id", required, s.StopFollowing)
	app.Post("/users/profile", required, s.UpdateProfile)
	app.Post("/users/delete", required, s.DeleteUser)
	app.Get("/users/:id/following", required, s.ShowFollowing)
	app.Get("/users/:id/followers", required, s.ShowFollowers)
	app.Get("/users/:id/likes", s.ShowLikes)
	app.Get("/users/:id", optional, s.ShowUser)

	// Messages
	app.Post("/messages/new", required, middleware.RateLimit(s.redis, 10, time.Minute, "post_message"), s.AddMessage)
	app.Post("/messages/:id/delete", required, s.DeleteMessage)
	app.Post("/messages/:id/like", required, s.ToggleLike)
	app.Get("/messages/:id", s.ShowMessage)

	// Conversations
	conversations := app.Group("/conversations", required)
	conversations.Get("/", s.ListConversations)
	conversations.Post("/add/:userID", s.AddConversation)
	conversations.Post("/:id/dm/add", middleware.RateLimit(s.redis, 15, time.Minute, "send_dm"), s.AddDM)
	conversations.Get("/:id", s.ShowConversation)

	// Live updates
	ws := app.Group("/ws", required, s.UpgradeRequired())
	ws.Get("/conversations/:id",
		s.featureFlags.Require(featureflags.LiveDMs, currentUserID),
		s.ConversationParticipant(),
		s.WebSocketConversationHandler())
	ws.Get("/notifications",
		s.featureFlags.Require(featureflags.FollowNotifications, currentUserID),
		s.WebSocketNotificationHandler())

	app.Get("/feature-flags", required, s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.db == nil {
		dbStatus = "unhealthy"
	} else if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis is optional: without it sessions cannot be revoked and events stay
	// in process, but every route still works.
	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"service": observability.ServiceName,
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// SessionRequired rejects requests without a valid session cookie or bearer token.
func (s *Server) SessionRequired() fiber.Handler {
	return middleware.SessionRequired(s.verifier(), s.config.SessionCookieName)
}

// SessionOptional attaches the session user when there is one.
func (s *Server) SessionOptional() fiber.Handler {
	return middleware.SessionOptional(s.verifier(), s.config.SessionCookieName)
}

// newApp builds the Fiber app with middleware and routes and wires the hubs
// to the notifier. Wiring stops when the server-scoped context is cancelled.
func (s *Server) newApp() *fiber.App {
	if s.shutdownCtx == nil {
		s.shutdownCtx, s.shutdownFn = context.WithCancel(context.Background())
	}

	app := fiber.New(fiber.Config{
		AppName:   "Warbler API",
		BodyLimit: 1 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code,
					&models.AppError{Code: statusCode(fe.Code), Message: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	for _, h := range s.hubs {
		if err := h.StartWiring(s.shutdownCtx, s.notifier); err != nil {
			middleware.Logger.Error("failed to start hub wiring",
				slog.String("hub", h.Name()),
				slog.String("error", err.Error()),
			)
		}
	}
	return app
}

// Start builds the app and listens on the configured port until Shutdown.
func (s *Server) Start() error {
	app := s.newApp()
	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Stop the hub subscribers first.
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	for _, h := range s.hubs {
		if err := h.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down hub",
				slog.String("hub", h.Name()),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
			}
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
