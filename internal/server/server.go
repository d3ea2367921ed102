// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"workhive/internal/cache"
	"workhive/internal/config"
	"workhive/internal/database"
	"workhive/internal/featureflags"
	"workhive/internal/middleware"
	"workhive/internal/models"
	"workhive/internal/notifications"
	"workhive/internal/observability"
	"workhive/internal/repository"
	"workhive/internal/service"
	"workhive/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds the application's shared state and dependencies.
type Server struct {
	app    *fiber.App
	config *config.Config
	db     *gorm.DB
	redis  *redis.Client
	prom   *fiberprometheus.FiberPrometheus
	flags  *featureflags.Manager

	store storage.ObjectStore

	userRepo repository.UserRepository
	jobRepo  repository.JobPostRepository
	chatRepo repository.ChatRepository

	userService   *service.UserService
	jobService    *service.JobPostService
	chatService   *service.ChatService
	uploadService *service.UploadService
	reconciler    *service.Reconciler

	notifier *notifications.Notifier
	chatHub  *notifications.ChatHub

	shutdownCtx     context.Context
	shutdownFn      context.CancelFunc
	tracingShutdown func(context.Context) error
}

// NewServer creates a Server wired to real infrastructure: Postgres via the
// config DSN, Redis via REDIS_URL and S3 object storage.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connect: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	store, err := storage.NewS3Store(context.Background(), cfg.S3Region, cfg.S3Bucket, cfg.S3PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("object store: %w", err)
	}

	return NewServerWithDeps(cfg, db, cache.GetClient(), store), nil
}

// NewServerWithDeps creates a Server from pre-built dependencies. Tests use it
// with an in-memory sqlite DB, miniredis and a MemoryStore.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, rdb *redis.Client, store storage.ObjectStore) *Server {
	shutdownCtx, shutdownFn := context.WithCancel(context.Background())

	s := &Server{
		config:      cfg,
		db:          db,
		redis:       rdb,
		store:       store,
		shutdownCtx: shutdownCtx,
		shutdownFn:  shutdownFn,
	}

	s.flags = featureflags.NewManager(featureflags.Defaults + "," + cfg.FeatureFlags)

	s.userRepo = repository.NewUserRepository(db)
	s.jobRepo = repository.NewJobPostRepository(db)
	s.chatRepo = repository.NewChatRepository(db)

	s.notifier = notifications.NewNotifier(rdb)
	s.chatHub = notifications.NewChatHub()

	s.userService = service.NewUserService(s.userRepo)
	s.jobService = service.NewJobPostService(s.jobRepo, s.userService.IsAdmin)
	s.chatService = service.NewChatService(s.chatRepo, s.userRepo, s.notifier)
	s.uploadService = service.NewUploadService(store)

	interval := time.Duration(cfg.ReconcileIntervalSec) * time.Second
	if interval > 0 {
		s.reconciler = service.NewReconciler(s.chatRepo, interval)
	}

	s.prom = middleware.InitMetrics("workhive")

	s.app = fiber.New(fiber.Config{
		AppName:               "workhive",
		BodyLimit:             (service.MaxUploadSizeMB + 2) * 1024 * 1024,
		DisableStartupMessage: cfg.Env == "production",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
				"path", c.Path(), "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})

	s.SetupMiddleware()
	s.SetupRoutes()

	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// SetupMiddleware installs the global middleware chain. Order matters:
// recover first, then request identification, then everything that logs
// or measures.
func (s *Server) SetupMiddleware() {
	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(middleware.ContextMiddleware())
	s.app.Use(middleware.MetricsMiddleware(s.prom))
	s.app.Use(helmet.New())
	s.app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000"
	}
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Coarse per-client limiter; preflight requests are exempt.
	global := middleware.RateLimit(s.redis, 300, time.Minute, "global")
	s.app.Use(func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodOptions {
			return c.Next()
		}
		return global(c)
	})
}

// SetupRoutes registers every HTTP and WebSocket endpoint.
func (s *Server) SetupRoutes() {
	s.app.Get("/health", s.HealthCheck)
	s.app.Get("/health/live", s.LivenessCheck)
	s.app.Get("/health/ready", s.ReadinessCheck)
	s.prom.RegisterAt(s.app, "/metrics")

	api := s.app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/password-reset", middleware.RateLimit(s.redis, 3, 10*time.Minute, "pw_reset"), s.RequestPasswordReset)
	auth.Post("/password-reset/confirm", s.ConfirmPasswordReset)
	auth.Post("/logout", s.AuthRequired(), s.Logout)
	auth.Get("/me", s.AuthRequired(), s.Me)

	protected := api.Group("", s.AuthRequired())

	protected.Get("/flags", s.GetFeatureFlags)

	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)
	users.Get("/:id", s.GetUserProfile)

	jobs := protected.Group("/jobs")
	jobs.Post("", middleware.RateLimit(s.redis, 10, time.Minute, "create_job"), s.CreateJob)
	jobs.Get("", s.GetJobs)
	jobs.Get("/mine", s.GetMyJobs)
	jobs.Get("/:id", s.GetJob)
	jobs.Put("/:id", s.UpdateJob)
	jobs.Delete("/:id", s.DeleteJob)

	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/jobs", s.AdminListJobs)
	admin.Post("/jobs/:id/approve", s.ApproveJob)
	admin.Post("/jobs/:id/reject", s.RejectJob)
	admin.Delete("/jobs/:id", s.AdminDeleteJob)

	chat := protected.Group("/chat")
	chat.Get("/peers", s.GetChatPeers)
	chat.Get("/:peerId/messages", s.GetConversationMessages)
	chat.Post("/:peerId/messages", middleware.RateLimit(s.redis, 15, time.Minute, "send_chat"), s.SendChatMessage)
	chat.Delete("/:peerId/messages/:messageId", s.DeleteChatMessage)

	ws := api.Group("/ws", s.AuthRequired())
	ws.Use("/chat", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	ws.Get("/chat", s.WebSocketChatHandler())
}

// GetFeatureFlags handles GET /api/flags: the evaluated flag set for the
// authenticated user, so clients can hide gated features.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(s.flags.Snapshot(currentUserID(c)))
}

// HealthCheck handles GET /health
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// LivenessCheck handles GET /health/live
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "alive"})
}

// ReadinessCheck handles GET /health/ready. Ready means the database answers;
// Redis is reported but does not fail readiness because the API degrades
// gracefully without it.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	checks := fiber.Map{}
	healthy := true

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Context())
	}
	if err != nil {
		checks["database"] = "unreachable"
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	if s.redis != nil {
		if err := s.redis.Ping(c.Context()).Err(); err != nil {
			checks["redis"] = "unreachable"
		} else {
			checks["redis"] = "ok"
		}
	} else {
		checks["redis"] = "disabled"
	}

	status := fiber.StatusOK
	if !healthy {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{"checks": checks})
}

// AuthRequired validates the bearer JWT and stores the authenticated user ID
// in both fiber locals and the request context. WebSocket upgrades cannot set
// headers from the browser, so a `token` query parameter is accepted on
// /api/ws paths only.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := ""
		authHeader := c.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}
		if tokenString == "" && strings.HasPrefix(c.Path(), "/api/ws") {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewAuthError("missing or malformed token"))
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(s.config.JWTSecret), nil
		}, jwt.WithIssuer(tokenIssuer), jwt.WithAudience(tokenAudience))
		if err != nil || !token.Valid {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewAuthError("invalid or expired token"))
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewAuthError("invalid token claims"))
		}

		sub, _ := claims["sub"].(string)
		userID64, err := strconv.ParseUint(sub, 10, 32)
		if err != nil || userID64 == 0 {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewAuthError("invalid token subject"))
		}
		userID := uint(userID64)

		// Logged-out tokens carry a blacklisted jti until they expire.
		if jti, _ := claims["jti"].(string); jti != "" && s.redis != nil {
			blacklisted, err := s.redis.Exists(c.Context(), cache.TokenDenyKey(jti)).Result()
			if err == nil && blacklisted > 0 {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewAuthError("token has been revoked"))
			}
		}

		c.Locals("userID", userID)
		c.Locals("jwtClaims", claims)
		c.SetUserContext(context.WithValue(c.UserContext(), middleware.UserIDKey, userID))
		return c.Next()
	}
}

// AdminRequired allows only users whose is_admin column is set. It must run
// after AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("userID").(uint)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewAuthError("authentication required"))
		}
		isAdmin, err := s.userService.IsAdmin(c.UserContext(), userID)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError, err)
		}
		if !isAdmin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewUnauthorizedError("admin access required"))
		}
		return c.Next()
	}
}

// Start runs background workers and blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	ctx := s.shutdownCtx

	tracingShutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:  "workhive-api",
		Environment:  s.config.Env,
		Enabled:      s.config.TracingEnabled,
		Exporter:     s.config.TracingExporter,
		OTLPEndpoint: s.config.OTLPEndpoint,
		SamplerRatio: s.config.TracingSamplerRatio,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	s.tracingShutdown = tracingShutdown

	if s.config.AdminEmail != "" {
		if err := s.userService.EnsureAdmin(ctx, s.config.AdminEmail, s.config.AdminPassword); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	if err := s.chatHub.StartWiring(ctx, s.notifier); err != nil {
		middleware.Logger.Warn("chat fan-out unavailable", "error", err)
	}

	if s.reconciler != nil {
		go s.reconciler.Run(ctx)
	}

	middleware.Logger.Info("server starting", "port", s.config.Port, "env", s.config.Env)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops background workers and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownFn()
	s.chatHub.Shutdown()

	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return err
	}

	if s.tracingShutdown != nil {
		_ = s.tracingShutdown(ctx)
	}

	if s.redis != nil {
		_ = s.redis.Close()
	}
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}
