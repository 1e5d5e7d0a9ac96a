// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	_ "farmlink/docs" // swagger docs
	"farmlink/internal/cache"
	"farmlink/internal/config"
	"farmlink/internal/external"
	"farmlink/internal/featureflags"
	"farmlink/internal/imaging"
	"farmlink/internal/middleware"
	"farmlink/internal/models"
	"farmlink/internal/notifications"
	"farmlink/internal/observability"
	"farmlink/internal/repository"
	"farmlink/internal/service"
	"farmlink/internal/storage"

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

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	auth         *middleware.Authenticator
	accountRepo  repository.AccountRepository
	notifier     *notifications.Notifier
	hub          *notifications.Hub
	featureFlags *featureflags.Manager
	store        storage.Store
	httpClient   external.Doer
	weather      *external.WeatherClient
	market       *external.MarketClient

	accountService *service.AccountService
	postService    *service.PostService
	pollService    *service.PollService
	commentService *service.CommentService
	schemeService  *service.SchemeService
	statsService   *service.StatsService
	adminService   *service.AdminService
}

// Option customizes a Server built by NewServer.
type Option func(*Server)

// WithStore replaces the media store selected by configuration.
func WithStore(store storage.Store) Option {
	return func(s *Server) { s.store = store }
}

// WithHTTPClient sets the client used for weather and market requests.
func WithHTTPClient(doer external.Doer) Option {
	return func(s *Server) { s.httpClient = doer }
}

// NewServer creates a Server on already-initialized dependencies. rdb may be
// nil; the realtime feed and token revocation are then unavailable.
func NewServer(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client, opts ...Option) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server requires config and database")
	}
	s := &Server{
		config:         cfg,
		db:             db,
		redis:          rdb,
		promMiddleware: observability.HTTPMetrics(),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		store, err := storage.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("media storage: %w", err)
		}
		s.store = store
	}

	revocations := cache.NewTokenRevocations(rdb)
	s.auth = middleware.NewAuthenticator(cfg.JWTSecret, revocations).WithAccountLookup(s.lookupRole)

	// Initialize repositories
	s.accountRepo = repository.NewAccountRepository(db)
	postRepo := repository.NewPostRepository(db)
	pollRepo := repository.NewPollRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	schemeRepo := repository.NewSchemeRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	if rdb != nil {
		s.notifier = notifications.NewNotifier(rdb)
		s.hub = notifications.NewHub(rdb)
	}

	principals := service.PrincipalsFrom(s.accountRepo)
	s.accountService = service.NewAccountService(s.accountRepo, newTokenIssuer(cfg), revocations)
	s.postService = service.NewPostService(postRepo, principals).
		WithMedia(service.Media{
			Store:   s.store,
			BaseURL: mediaBaseURL(cfg),
			Image:   imaging.Options{MaxDimension: cfg.ImageMaxDimension},
		})
	if s.notifier != nil {
		s.postService.WithFeed(s.notifier)
	}
	s.pollService = service.NewPollService(pollRepo, s.postService, s.feed())
	s.commentService = service.NewCommentService(commentRepo, s.postService, principals, s.feed())
	s.schemeService = service.NewSchemeService(schemeRepo)
	s.statsService = service.NewStatsService(statsRepo)
	s.adminService = service.NewAdminService(s.accountRepo, s.featureFlags)

	s.weather = external.NewWeatherClient(cfg, s.httpClient)
	s.market = external.NewMarketClient(cfg, s.httpClient)

	return s, nil
}

// feed returns the notifier as a publisher, or nil when Redis is absent so
// that services skip publishing entirely.
func (s *Server) feed() service.FeedPublisher {
	if s.notifier == nil {
		return nil
	}
	return s.notifier
}

func mediaBaseURL(cfg *config.Config) string {
	if cfg.StorageBackend == "s3" {
		return cfg.S3PublicBaseURL
	}
	return cfg.MediaBaseURL
}

// lookupRole re-reads the caller's role and status on authenticated routes.
func (s *Server) lookupRole(ctx context.Context, accountID uint) (models.Role, bool, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return models.RoleUnassigned, false, err
	}
	return account.Role, account.IsActive, nil
}

// NewApp builds a Fiber app with the middleware stack and every route.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "FarmLink API",
		BodyLimit: (s.config.ImageMaxUploadSizeMB + 1) << 20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				switch fe.Code {
				case fiber.StatusNotFound:
					return respondError(c, models.NewNotFoundError("Route", c.Path()))
				case fiber.StatusRequestEntityTooLarge:
					return respondError(c, models.NewValidationError("Request body is too large"))
				}
			}
			return respondError(c, err)
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	// Security headers
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return respondError(c, models.NewRateLimitedError())
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	if local, ok := s.store.(*storage.Local); ok {
		app.Static(s.config.MediaBaseURL, local.Dir(), fiber.Static{MaxAge: 3600})
	}

	api := app.Group("/api")

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	required := s.auth.Required()
	optional := s.auth.Optional()

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(
		s.redis, 5, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", required, s.Logout)

	// Own profile
	profile := api.Group("/profile", required)
	profile.Get("/", s.GetMyProfile)
	profile.Put("/", s.UpdateMyProfile)
	profile.Patch("/", s.UpdateMyProfile)

	// Posts. Specific paths before the generic /:id routes.
	posts := api.Group("/posts")
	posts.Get("/", optional, s.GetPosts)
	posts.Post("/", required, middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Get("/saved", required, s.GetSavedPosts)
	posts.Post("/:id/like", required, s.LikePost)
	posts.Post("/:id/save", required, s.SavePost)
	posts.Get("/:id/pdf", optional, s.requireFlag(featureflags.PDFExport), s.ExportPostPDF)
	posts.Get("/:id/comments", optional, s.GetComments)
	posts.Post("/:id/comments", required, middleware.RateLimit(
		s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	posts.Get("/:id", optional, s.GetPost)
	posts.Put("/:id", required, s.UpdatePost)
	posts.Patch("/:id", required, s.UpdatePost)
	posts.Delete("/:id", required, s.DeletePost)

	api.Delete("/comments/:id", required, s.DeleteComment)

	// Polls
	polls := api.Group("/polls")
	polls.Post("/:id/vote", required, middleware.RateLimit(
		s.redis, 30, time.Minute, "vote"), s.VotePoll)
	polls.Get("/:id/results", optional, s.GetPollResults)

	// Government schemes
	schemes := api.Group("/schemes")
	schemes.Get("/", s.GetSchemes)
	schemes.Get("/:id", s.GetScheme)

	// Weather and market proxies
	weather := api.Group("/weather", optional, s.requireFlag(featureflags.Weather))
	weather.Get("/current", s.GetCurrentWeather)
	weather.Get("/forecast", s.GetWeatherForecast)
	api.Get("/market/prices", optional, s.requireFlag(featureflags.MarketPrices), s.GetMarketPrices)

	// Admin routes
	admin := api.Group("/admin", required, middleware.AdminRequired(s.lookupRole))
	admin.Get("/stats", s.GetAdminStats)
	admin.Get("/feature-flags", s.GetFeatureFlags)
	admin.Get("/users", s.GetAdminUsers)
	admin.Get("/users/:id", s.GetAdminUser)
	admin.Patch("/users/:id", s.UpdateAdminUser)
	admin.Delete("/users/:id", s.DeleteAdminUser)
	admin.Get("/blogs", s.GetAdminBlogs)
	admin.Delete("/blogs/:id", s.DeleteAdminBlog)
	admin.Get("/schemes", s.GetSchemes)
	admin.Post("/schemes", s.CreateScheme)
	admin.Get("/schemes/:id", s.GetScheme)
	admin.Put("/schemes/:id", s.UpdateScheme)
	admin.Delete("/schemes/:id", s.DeleteScheme)

	// Websocket feed
	app.Get("/ws/feed", s.auth.WebSocket(), s.requireFlag(featureflags.RealtimeFeed), s.FeedWebsocketHandler())
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
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start builds the app, wires the feed hub to Redis and listens on the
// configured port.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if s.notifier != nil && s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil && !errors.Is(err, context.Canceled) {
				middleware.Logger.Error("failed to start feed wiring", "error", err)
			}
		}()
	}

	middleware.Logger.Info("server starting", "port", s.config.Port, "env", s.config.Env)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancel the server-scoped context to stop the feed subscriber
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down feed hub", "error", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", "error", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr)
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
