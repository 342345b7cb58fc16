// Package server contains the HTTP and WebSocket handlers of the marketplace API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	_ "resort/docs" // swagger docs
	"resort/internal/analytics"
	"resort/internal/config"
	"resort/internal/featureflags"
	"resort/internal/middleware"
	"resort/internal/models"
	"resort/internal/notifications"
	"resort/internal/repository"
	"resort/internal/service"
	"resort/internal/storage"

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

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	profileRepo repository.ProfileRepository

	hub          *notifications.Hub
	notifier     *notifications.Notifier
	featureFlags *featureflags.Manager
	store        *storage.Store

	authService        *service.AuthService
	profileService     *service.ProfileService
	listingService     *service.ListingService
	commentService     *service.CommentService
	favoriteService    *service.FavoriteService
	engagementService  *service.EngagementService
	connectionService  *service.ConnectionService
	messageService     *service.MessageService
	applicationService *service.HostApplicationService
	adminService       *service.AdminService
	analyticsService   *analytics.Service
}

// NewServer wires repositories, services and the realtime hub on top of an
// already-connected database. rdb may be nil; Redis-backed features degrade.
func NewServer(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server requires config and database")
	}

	users := repository.NewUserRepository(db)
	profiles := repository.NewProfileRepository(db)
	accommodations := repository.NewAccommodationRepository(db)
	experiences := repository.NewExperienceRepository(db)
	comments := repository.NewCommentRepository(db)
	favorites := repository.NewFavoriteRepository(db)
	connections := repository.NewConnectionRepository(db)
	messages := repository.NewMessageRepository(db)
	applications := repository.NewHostApplicationRepository(db)
	audit := repository.NewAuditLogRepository(db)
	engagement := repository.NewEngagementRepository(db)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          rdb,
		promMiddleware: middleware.InitMetrics("resort-api"),
		profileRepo:    profiles,
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		store:          storage.New(cfg),
	}

	s.hub = notifications.NewHub(rdb)
	s.notifier = notifications.NewNotifier(rdb, s.hub)
	events := newUnreadCountPublisher(s.notifier, messages)

	s.authService = service.NewAuthService(users, profiles)
	s.profileService = service.NewProfileService(profiles)
	s.listingService = service.NewListingService(accommodations, experiences, comments, favorites, audit)
	s.engagementService = service.NewEngagementService(engagement)
	s.commentService = service.NewCommentService(comments, s.listingService, s.engagementService, audit)
	s.favoriteService = service.NewFavoriteService(favorites, s.listingService, s.engagementService)
	s.connectionService = service.NewConnectionService(connections, profiles, events)
	s.messageService = service.NewMessageService(messages, profiles, connections, events)
	s.applicationService = service.NewHostApplicationService(applications, events)
	s.adminService = service.NewAdminService(service.AdminRepos{
		Profiles:       profiles,
		Accommodations: accommodations,
		Experiences:    experiences,
		Applications:   applications,
		Messages:       messages,
		Connections:    connections,
		Audit:          audit,
	}, s.messageService, events)
	s.analyticsService = analytics.NewService(analytics.Repos{
		Engagement:     engagement,
		Accommodations: accommodations,
		Experiences:    experiences,
	}, s.featureFlags, cfg.AnalyticsCacheTTL())

	return s, nil
}

// Hub exposes the realtime hub to the presence job.
func (s *Server) Hub() *notifications.Hub { return s.hub }

// Analytics exposes the analytics service to the scheduled jobs.
func (s *Server) Analytics() *analytics.Service { return s.analyticsService }

// Profiles exposes the profile repository to the scheduled jobs.
func (s *Server) Profiles() repository.ProfileRepository { return s.profileRepo }

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New(recover.Config{EnableStackTrace: !s.config.IsProduction()}))
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}
	app.Use(helmet.New(helmet.Config{CrossOriginResourcePolicy: "cross-origin"}))
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so throttled responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return models.RespondWithError(c, fiber.StatusTooManyRequests,
				&models.AppError{Code: models.CodeRateLimited, Message: "Too many requests, please try again later."})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Static("/storage", s.store.Dir(), fiber.Static{Browse: false, MaxAge: 3600})

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	auth := s.AuthRequired()
	admin := s.AdminRequired()
	optional := s.OptionalAuth()

	api.Get("/metrics/dashboard", auth, admin, monitor.New(monitor.Config{Title: "Resort Backend Metrics"}))

	authRoutes := api.Group("/auth")
	authRoutes.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	authRoutes.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	authRoutes.Post("/refresh", auth, s.Refresh)
	authRoutes.Post("/logout", auth, s.Logout)
	authRoutes.Get("/session", auth, s.Session)

	profiles := api.Group("/profiles")
	profiles.Get("/me", auth, s.GetMyProfile)
	profiles.Put("/me", auth, s.UpdateMyProfile)
	profiles.Get("/:id", s.GetProfile)

	accommodations := api.Group("/accommodations")
	accommodations.Get("/", s.BrowseAccommodations)
	accommodations.Get("/mine", auth, s.MyAccommodations)
	accommodations.Get("/:id", optional, s.GetAccommodation)
	accommodations.Post("/", auth, middleware.RateLimit(s.redis, 20, time.Hour, "create_listing"), s.CreateAccommodation)
	accommodations.Put("/:id", auth, s.UpdateAccommodation)
	accommodations.Delete("/:id", auth, s.DeleteAccommodation)

	experiences := api.Group("/experiences")
	experiences.Get("/", s.BrowseExperiences)
	experiences.Get("/mine", auth, s.MyExperiences)
	experiences.Get("/:id", optional, s.GetExperience)
	experiences.Post("/", auth, middleware.RateLimit(s.redis, 20, time.Hour, "create_listing"), s.CreateExperience)
	experiences.Put("/:id", auth, s.UpdateExperience)
	experiences.Delete("/:id", auth, s.DeleteExperience)

	listings := api.Group("/listings")
	listings.Get("/:kind/:id/comments", s.GetComments)
	listings.Post("/:kind/:id/comments", auth, middleware.RateLimit(s.redis, 5, time.Minute, "create_comment"), s.CreateComment)
	api.Delete("/comments/:id", auth, s.DeleteComment)

	favorites := api.Group("/favorites", optional)
	favorites.Get("/", s.GetFavorites)
	favorites.Post("/:kind/:id", s.AddFavorite)
	favorites.Delete("/:kind/:id", s.RemoveFavorite)

	api.Get("/tribe", auth, s.GetTribe)

	connections := api.Group("/connections", auth)
	connections.Get("/", s.GetConnections)
	connections.Get("/requests", s.GetIncomingRequests)
	connections.Get("/requests/sent", s.GetSentRequests)
	connections.Post("/requests", middleware.RateLimit(s.redis, 10, 10*time.Minute, "connection_request"), s.SendConnectionRequest)
	connections.Post("/requests/:requestId/accept", s.AcceptConnectionRequest)
	connections.Post("/requests/:requestId/decline", s.DeclineConnectionRequest)
	connections.Delete("/requests/:requestId", s.CancelConnectionRequest)
	connections.Delete("/:profileId", s.RemoveConnection)

	messages := api.Group("/messages", auth)
	messages.Get("/contacts", s.GetContacts)
	messages.Get("/unread-count", s.GetUnreadCount)
	messages.Get("/:contactId", s.GetThread)
	messages.Post("/:contactId", middleware.RateLimit(s.redis, 30, time.Minute, "send_message"), s.SendMessage)
	messages.Post("/:contactId/read", s.MarkThreadRead)

	hostApplications := api.Group("/host-applications", auth)
	hostApplications.Post("/", s.SubmitHostApplication)
	hostApplications.Get("/me", s.GetMyHostApplication)

	storageRoutes := api.Group("/storage", auth)
	storageRoutes.Post("/:bucket", middleware.RateLimit(s.redis, 30, time.Minute, "upload"), s.UploadObject)
	storageRoutes.Delete("/:bucket/*", s.DeleteObject)

	api.Post("/ws/ticket", auth, s.IssueWSTicket)
	api.Get("/ws", auth, s.WebsocketHandler())

	rpc := api.Group("/rpc")
	rpc.Post("/record_engagement_event", middleware.RateLimit(s.redis, 60, time.Minute, "engagement"), optional, s.RecordEngagementEvent)
	rpc.Post("/:name", auth, admin, s.CallRPC)

	adminRoutes := api.Group("/admin", auth, admin)
	adminRoutes.Get("/dashboard", s.AdminDashboard)
	adminRoutes.Get("/users", s.AdminListUsers)
	adminRoutes.Put("/users/:id/role", s.AdminUpdateUserRole)
	adminRoutes.Post("/users/:id/ban", s.AdminBanUser)
	adminRoutes.Post("/users/:id/unban", s.AdminUnbanUser)
	adminRoutes.Get("/host-applications", s.AdminListHostApplications)
	adminRoutes.Post("/host-applications/:id/approve", s.AdminApproveHostApplication)
	adminRoutes.Post("/host-applications/:id/decline", s.AdminDeclineHostApplication)
	adminRoutes.Get("/audit-logs", s.AdminListAuditLogs)
	adminRoutes.Post("/audit-logs", s.AdminLogAuditEvent)
	adminRoutes.Post("/listings/:kind/:id/publish", s.AdminSetPublished)
	adminRoutes.Delete("/listings/:kind/:id", s.AdminDeleteListing)
	adminRoutes.Delete("/comments/:id", s.DeleteComment)
	adminRoutes.Post("/messages", s.AdminSendMessage)
	adminRoutes.Get("/analytics/trending", s.AdminTrending)
	adminRoutes.Get("/analytics/engagement", s.AdminEngagement)
	adminRoutes.Get("/analytics/content", s.AdminContentAnalytics)
	adminRoutes.Get("/analytics/retention", s.AdminRetention)
	adminRoutes.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now().UTC(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional, so
// only the database decides readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status, overall := fiber.StatusOK, "healthy"
	if dbStatus != "healthy" {
		status, overall = fiber.StatusServiceUnavailable, "unhealthy"
	}
	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now().UTC(),
	})
}

// App builds the Fiber app with middleware and routes. Tests drive it with app.Test.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "Resort to Nature API",
		BodyLimit:    int(s.store.MaxBytes()) + 1<<20,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := models.CodeInternal
		switch {
		case fe.Code == fiber.StatusNotFound:
			code = models.CodeNotFound
		case fe.Code == fiber.StatusTooManyRequests:
			code = models.CodeRateLimited
		case fe.Code < 500:
			code = models.CodeValidation
		}
		return models.RespondWithError(c, fe.Code, &models.AppError{Code: code, Message: fe.Message})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
		slog.String("path", c.Path()),
		slog.String("error", err.Error()),
	)
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// Start wires the realtime fan-out and serves until Shutdown.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.App()

	if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
		middleware.Logger.Warn("realtime fan-out disabled", slog.String("error", err.Error()))
	}

	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + strings.TrimPrefix(s.config.Port, ":"))
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}
	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down realtime hub", slog.String("error", err.Error()))
	}
	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}
	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}
	middleware.Logger.Info("server shutdown complete")
	return nil
}
