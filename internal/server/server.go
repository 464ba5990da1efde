// Package server contains the HTTP and WebSocket handlers for the Quad API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "quad/docs" // swagger docs
	"quad/internal/cache"
	"quad/internal/config"
	"quad/internal/database"
	"quad/internal/featureflags"
	"quad/internal/middleware"
	"quad/internal/models"
	"quad/internal/notifications"
	"quad/internal/repository"
	"quad/internal/service"

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

// Server holds all dependencies and provides handlers.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	userRepo         repository.UserRepository
	postRepo         repository.PostRepository
	commentRepo      repository.CommentRepository
	communityRepo    repository.CommunityRepository
	chatRepo         repository.ChatRepository
	notificationRepo repository.NotificationRepository
	donationRepo     repository.DonationRepository
	imageRepo        repository.ImageRepository

	postService         *service.PostService
	interactionService  *service.InteractionService
	commentService      *service.CommentService
	communityService    *service.CommunityService
	userService         *service.UserService
	chatService         *service.ChatService
	notificationService *service.NotificationService
	donationService     *service.DonationService
	imageService        *service.ImageService

	notifier     *notifications.Notifier
	hub          *notifications.Hub
	featureFlags *featureflags.Manager

	// consumedTickets keeps tickets already redeemed via GETDEL alive
	// in-process for the multi-pass websocket handshake.
	consumedTicketsMu sync.Mutex
	consumedTickets   map[string]consumedTicketEntry
}

// NewServer creates a server instance, establishing its own database and
// Redis connections from config.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and
// performs explicit seeding.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	communityRepo := repository.NewCommunityRepository(db)
	chatRepo := repository.NewChatRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	donationRepo := repository.NewDonationRepository(db)
	imageRepo := repository.NewImageRepository(db)

	prom := middleware.InitMetrics("quad-api")

	server := &Server{
		config:           cfg,
		db:               db,
		redis:            redisClient,
		promMiddleware:   prom,
		userRepo:         userRepo,
		postRepo:         postRepo,
		commentRepo:      commentRepo,
		communityRepo:    communityRepo,
		chatRepo:         chatRepo,
		notificationRepo: notificationRepo,
		donationRepo:     donationRepo,
		imageRepo:        imageRepo,
		featureFlags:     featureflags.NewManager(cfg.FeatureFlags),
		consumedTickets:  make(map[string]consumedTicketEntry),
	}

	server.postService = service.NewPostService(postRepo, communityRepo, server.isAdminByUserID)
	server.interactionService = service.NewInteractionService(postRepo, notificationRepo)
	server.commentService = service.NewCommentService(commentRepo, postRepo, notificationRepo, server.isAdminByUserID)
	server.communityService = service.NewCommunityService(communityRepo, notificationRepo, server.isAdminByUserID)
	server.userService = service.NewUserService(userRepo)
	server.chatService = service.NewChatService(chatRepo, userRepo)
	server.notificationService = service.NewNotificationService(notificationRepo)
	server.donationService = service.NewDonationService(donationRepo)
	server.imageService = service.NewImageService(imageRepo, cfg)

	// Without Redis there is nothing to publish through, and a notifier
	// would swallow events before the local hub broadcast.
	if redisClient != nil {
		server.notifier = notifications.NewNotifier(redisClient)
	}
	server.hub = notifications.NewHub(redisClient)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Propagate request ID and user ID into the request context.
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS must run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
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

	// Global rate limit, per IP.
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests.
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

// SetupRoutes configures all routes for the application.
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Quad Backend Metrics Dashboard",
	}))

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/refresh", s.Refresh)
	auth.Post("/logout", s.Logout)

	// Public post routes (browse/search)
	publicPosts := api.Group("/posts")
	publicPosts.Get("/", s.GetPosts)
	publicPosts.Get("/search", middleware.RateLimit(
		s.redis, 10, time.Minute, "search"), s.SearchPosts)
	publicPosts.Get("/:id/comments", s.GetComments)
	publicPosts.Get("/:id", s.GetPost)

	// Public community routes
	publicCommunities := api.Group("/communities")
	publicCommunities.Get("/", s.GetCommunities)
	publicCommunities.Get("/:slug/posts", s.GetCommunityPosts)
	publicCommunities.Get("/:slug", s.GetCommunityBySlug)

	// Public donation routes (feature-flag gated inside the handlers)
	publicDonations := api.Group("/donations")
	publicDonations.Get("/", s.GetDonations)
	publicDonations.Get("/summary", s.GetDonationSummary)

	// Content-addressed image serving
	app.Get("/media/i/:hash/:file", s.ServeImage)

	// Protected routes
	protected := api.Group("", s.AuthRequired())

	// User routes
	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)
	users.Post("/me/heartbeat", s.Heartbeat)
	users.Get("/me/bookmarks", s.GetMyBookmarks)
	users.Get("/", s.GetAllUsers)

	// WebSocket ticket issuance
	api.Post("/ws/ticket", s.AuthRequired(), s.IssueWSTicket)

	// Specific /:id/:resource routes BEFORE generic /:id route
	users.Get("/:id/posts", s.GetUserPosts)
	users.Post("/:id/promote-admin", s.AdminRequired(), s.PromoteToAdmin)
	users.Post("/:id/demote-admin", s.AdminRequired(), s.DemoteFromAdmin)
	users.Get("/:id", s.GetUserProfile)

	// Protected post routes
	posts := protected.Group("/posts")
	posts.Post("/", middleware.RateLimit(
		s.redis, 6, 5*time.Minute, "create_post"), s.CreatePost)
	// Specific /:id/:resource routes BEFORE generic /:id routes
	posts.Put("/:id/interactions/:kind", s.SetInteraction)
	posts.Post("/:id/interactions/:kind", s.ToggleInteraction)
	posts.Delete("/:id/interactions/:kind", s.ClearInteraction)
	posts.Post("/:id/comments", middleware.RateLimit(
		s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	posts.Put("/:id/comments/:commentId", s.UpdateComment)
	posts.Delete("/:id/comments/:commentId", s.DeleteComment)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	// Protected community routes
	communities := protected.Group("/communities")
	communities.Post("/", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "create_community"), s.CreateCommunity)
	communities.Get("/joined", s.GetJoinedCommunities)
	communities.Post("/:id/join", s.JoinCommunity)
	communities.Post("/:id/leave", s.LeaveCommunity)
	communities.Get("/:id/members", s.GetCommunityMembers)
	communities.Put("/:id/members/:userId/role", s.SetCommunityMemberRole)
	communities.Post("/:id/invitations", s.InviteToCommunity)
	communities.Put("/:id", s.UpdateCommunity)
	communities.Delete("/:id", s.DeleteCommunity)

	// Community invitations addressed to the current user
	invitations := protected.Group("/invitations")
	invitations.Get("/", s.GetMyInvitations)
	invitations.Post("/:id/respond", s.RespondToInvitation)

	// Notification routes
	notificationsGroup := protected.Group("/notifications")
	notificationsGroup.Get("/", s.GetNotifications)
	notificationsGroup.Get("/unread-count", s.GetUnreadNotificationCount)
	notificationsGroup.Post("/read-all", s.MarkAllNotificationsRead)
	notificationsGroup.Post("/:id/read", s.MarkNotificationRead)
	notificationsGroup.Delete("/:id", s.DeleteNotification)

	// Direct message routes
	conversations := protected.Group("/conversations")
	conversations.Post("/", s.CreateConversation)
	conversations.Get("/", s.GetConversations)
	conversations.Get("/:id/messages", s.GetMessages)
	conversations.Post("/:id/messages", middleware.RateLimit(
		s.redis, 15, time.Minute, "send_chat"), s.SendMessage)
	conversations.Post("/:id/read", s.MarkConversationRead)
	conversations.Get("/:id", s.GetConversation)

	// Donations (write side)
	protected.Post("/donations", middleware.RateLimit(
		s.redis, 5, time.Minute, "donate"), s.CreateDonation)

	// Media upload and status
	media := protected.Group("/media")
	media.Post("/images", middleware.RateLimit(
		s.redis, 10, time.Minute, "upload_image"), s.UploadImage)
	media.Get("/images/:hash", s.GetImageStatus)

	// WebSocket endpoint
	ws := api.Group("/ws", s.AuthRequired())
	ws.Get("/", s.WebsocketHandler())

	// Admin routes
	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
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
		// Redis backs tickets, presence and realtime seq counters, so it
		// is required for full readiness.
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

// Start starts the server.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := fiber.New(fiber.Config{
		AppName: "Quad API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("unhandled handler error", "error", err, "path", c.Path())
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	// Fan events published on any node out to local subscribers.
	if s.notifier != nil && s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				slog.Error("failed to start event hub wiring", "error", err)
			}
		}()
	}

	// Image variant generation runs alongside the API.
	if s.imageService != nil {
		s.imageService.StartBackgroundWorker(s.shutdownCtx)
	}

	slog.Info("server starting", "port", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			slog.Error("error shutting down HTTP server", "error", err)
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			slog.Error("error shutting down event hub", "error", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			slog.Error("error closing sql DB", "error", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			slog.Error("error closing redis", "error", rerr)
		}
	}

	slog.Info("server shutdown complete")
	return nil
}
