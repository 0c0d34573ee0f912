// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "catspot/docs" // swagger docs
	"catspot/internal/bootstrap"
	"catspot/internal/cache"
	"catspot/internal/config"
	"catspot/internal/featureflags"
	"catspot/internal/middleware"
	"catspot/internal/models"
	"catspot/internal/notifications"
	"catspot/internal/observability"
	"catspot/internal/repository"
	"catspot/internal/service"
	"catspot/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	// bodyLimit leaves room for phone photos before they are downscaled.
	bodyLimit = 16 * 1024 * 1024

	wsTicketTTL = 30 * time.Second
)

// wireableHub is implemented by every WebSocket hub that can be wired to
// Redis pub/sub and gracefully shut down.
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
	postRepo       repository.PostRepository
	commentRepo    repository.CommentRepository
	profileRepo    repository.ProfileRepository
	store          service.ObjectStore
	notifier       *notifications.Notifier
	commentHub     *notifications.PanelHub
	timelineHub    *notifications.PanelHub
	hubs           []wireableHub // all hubs for wiring/shutdown iteration
	featureFlags   *featureflags.Manager
	postService    *service.PostService
	commentService *service.CommentService
	profileService *service.ProfileService
}

// NewServer creates a new server instance with all dependencies
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	// Redis is optional; without it caching, rate limits and fan-out are skipped.
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}

	store, err := storage.NewObjectStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("object storage setup failed: %w", err)
	}

	return NewServerWithDeps(cfg, rt.DB, rt.Redis, store)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, store service.ObjectStore) (*Server, error) {
	middleware.InitMiddleware(cfg)
	if cache.GetClient() != redisClient {
		cache.SetClient(redisClient)
	}

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("catspot-api"),
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		profileRepo:    repository.NewProfileRepository(db),
		store:          store,
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}

	// Panels work on a single instance without Redis; they only miss fan-out.
	server.commentHub = notifications.NewPanelHub("comments")
	server.timelineHub = notifications.NewPanelHub("timeline")
	server.hubs = []wireableHub{server.commentHub, server.timelineHub}
	if redisClient != nil {
		server.notifier = notifications.NewNotifier(redisClient)
	}

	server.postService = service.NewPostService(server.postRepo, store, server.featureFlags, server.publisher(),
		service.TimelineOptions{CacheTTL: cfg.TimelineCacheTTL})
	server.commentService = service.NewCommentService(server.commentRepo, server.postRepo, server.publisher())
	server.profileService = service.NewProfileService(server.profileRepo)

	return server, nil
}

// publisher returns the notifier as a ChangePublisher, or nil when fan-out is off.
func (s *Server) publisher() service.ChangePublisher {
	if s.notifier == nil {
		return nil
	}
	return s.notifier
}

func (s *Server) timelineOptions() service.TimelineOptions {
	return service.TimelineOptions{CacheTTL: s.config.TimelineCacheTTL, Flags: s.featureFlags}
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and Viewer ID
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Accept-Language, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
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
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api.Get("/swagger/*", swagger.HandlerDefault)

	// Public reads resolve the viewer when a token is present.
	public := api.Group("", middleware.OptionalAuth)
	public.Get("/posts", s.GetPosts)
	public.Get("/posts/map", s.GetMapPins)
	public.Get("/posts/:id/comments", s.GetComments)
	public.Get("/posts/:id", s.GetPost)

	posts := api.Group("/posts", middleware.AuthRequired)
	posts.Post("/", middleware.RateLimit(
		s.redis, 5, 10*time.Minute, "create_post"), s.CreatePost)
	posts.Put("/:id/like", s.LikePost)
	posts.Delete("/:id/like", s.UnlikePost)
	posts.Post("/:id/comments", middleware.RateLimit(
		s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	posts.Delete("/:id", s.DeletePost)

	comments := api.Group("/comments", middleware.AuthRequired)
	comments.Put("/:commentId/like", s.LikeComment)
	comments.Delete("/:commentId/like", s.UnlikeComment)
	comments.Delete("/:commentId", s.DeleteComment)

	users := api.Group("/users", middleware.AuthRequired)
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)

	api.Post("/ws/ticket", middleware.AuthRequired, s.IssueWSTicket)

	ws := api.Group("/ws", s.WebSocketUpgrade())
	ws.Get("/posts/:id/comments", s.CommentPanelSocket())
	ws.Get("/timeline", s.TimelineSocket())
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

	// Redis backs cache and fan-out only, so it degrades rather than fails readiness.
	redisStatus := "healthy"
	if s.redis == nil {
		redisStatus = "unavailable"
	} else if err := s.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "unhealthy"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	switch {
	case dbStatus != "healthy":
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	case redisStatus != "healthy":
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "catspot",
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// NewApp builds the Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "catspot API",
		BodyLimit: bodyLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			observability.GlobalLogger.ErrorContext(c.UserContext(), "unhandled error",
				slog.String("path", c.Path()),
				slog.String("error", err.Error()),
			)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start wires the hubs to Redis and serves until the app shuts down.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if s.notifier != nil {
		for _, h := range s.hubs {
			if err := h.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				observability.GlobalLogger.Error("failed to start hub wiring",
					slog.String("hub", h.Name()),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	observability.GlobalLogger.Info("server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// baseContext is the parent of every websocket panel's context.
func (s *Server) baseContext() context.Context {
	if s.shutdownCtx != nil {
		return s.shutdownCtx
	}
	return context.Background()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			observability.GlobalLogger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	for _, h := range s.hubs {
		if err := h.Shutdown(ctx); err != nil {
			observability.GlobalLogger.Error("error shutting down hub",
				slog.String("hub", h.Name()),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				observability.GlobalLogger.Error("error closing sql DB", slog.String("error", cerr.Error()))
			}
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			observability.GlobalLogger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	observability.GlobalLogger.Info("server shutdown complete")
	return nil
}
