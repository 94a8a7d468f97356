// Package server exposes the HTTP API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pulsevote/internal/bootstrap"
	"pulsevote/internal/config"
	"pulsevote/internal/feed"
	"pulsevote/internal/featureflags"
	"pulsevote/internal/middleware"
	"pulsevote/internal/models"
	"pulsevote/internal/notifications"
	"pulsevote/internal/repository"
	"pulsevote/internal/service"
	"pulsevote/internal/storage"
	"pulsevote/internal/suggest"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	readTimeout  = 15 * time.Second
	writeTimeout = 90 * time.Second
	idleTimeout  = 60 * time.Second
)

// Deps overrides collaborators that tests replace.
type Deps struct {
	Generator service.Generator
	Store     storage.ObjectStore
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	verifier       *middleware.TokenVerifier
	featureFlags   *featureflags.Manager
	notifier       *notifications.Notifier
	store          storage.ObjectStore

	profileRepo     repository.ProfileRepository
	interactionRepo repository.InteractionRepository
	aggregator      *feed.Aggregator

	preferenceService *service.PreferenceService
	groupService      *service.GroupService
	publisher         *service.SurveyPublisher
}

// NewServer connects to the database and Redis and builds the server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedCatalog: true})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb, Deps{})
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// A nil Redis client disables caching, rate limiting and event fan-out.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, deps Deps) (*Server, error) {
	store := deps.Store
	if store == nil {
		var err error
		store, err = storage.New(context.Background(), cfg)
		if err != nil {
			return nil, fmt.Errorf("image storage: %w", err)
		}
	}
	generator := deps.Generator
	if generator == nil {
		generator = suggest.NewClient(cfg, nil)
	}

	profileRepo := repository.NewProfileRepository(db)
	surveyRepo := repository.NewSurveyRepository(db)
	preferenceRepo := repository.NewPreferenceRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	interactionRepo := repository.NewInteractionRepository(db)
	imageRepo := repository.NewImageRepository(db)

	s := &Server{
		config:          cfg,
		db:              db,
		redis:           redisClient,
		promMiddleware:  middleware.InitMetrics("pulsevote-api"),
		verifier:        middleware.NewTokenVerifier(cfg),
		featureFlags:    featureflags.NewManager(cfg.FeatureFlags),
		store:           store,
		profileRepo:     profileRepo,
		interactionRepo: interactionRepo,
		aggregator:      feed.NewAggregator(surveyRepo, groupRepo),
	}
	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient)
	}

	// Without Redis the services fall back to a no-op publisher.
	var events service.EventPublisher
	if s.notifier != nil {
		events = s.notifier
	}

	images := service.NewImageService(imageRepo, store, cfg)
	s.preferenceService = service.NewPreferenceService(preferenceRepo, events)
	s.groupService = service.NewGroupService(groupRepo, profileRepo, surveyRepo, s.featureFlags, events, cfg.PublicBaseURL)
	s.publisher = service.NewSurveyPublisher(surveyRepo, preferenceRepo, profileRepo, generator, images, s.featureFlags, events)
	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{CrossOriginResourcePolicy: "cross-origin"}))
	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses
	// still carry CORS headers.
	app.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.AllowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: s.config.AllowedOrigins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
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
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	if local, ok := s.store.(*storage.Local); ok {
		app.Static("/media", local.Dir(), fiber.Static{MaxAge: 31536000})
	}

	api := app.Group("/api")
	optional := middleware.OptionalAuth(s.verifier)
	auth := middleware.AuthRequired(s.verifier)

	api.Get("/preferences", s.ListPreferences)
	api.Get("/feed", optional, s.GetFeed)

	surveys := api.Group("/surveys")
	surveys.Get("/:id/share", auth, s.GetShareLink)
	surveys.Post("/:id/votes", auth, middleware.RateLimit(s.redis, 30, time.Minute, "vote"), s.Vote)
	surveys.Post("/:id/reactions", auth, middleware.RateLimit(s.redis, 60, time.Minute, "react"), s.React)
	surveys.Post("/:id/comments", auth, middleware.RateLimit(s.redis, 10, time.Minute, "comment"), s.CreateComment)
	surveys.Get("/:id", optional, s.GetSurvey)

	me := api.Group("/me", auth)
	me.Get("/preferences", s.ListMyPreferences)
	me.Put("/preferences", s.ReplaceMyPreferences)
	me.Post("/preferences/:id/toggle", s.TogglePreference)

	groups := api.Group("/groups", auth)
	groups.Get("/", s.ListGroups)
	groups.Post("/", s.CreateGroup)
	groups.Post("/:id/members", middleware.RateLimit(s.redis, 20, time.Minute, "group_invite"), s.AddGroupMember)
	groups.Delete("/:id/members/:userId", s.RemoveGroupMember)
	groups.Get("/:id/surveys", s.ListGroupSurveys)
	groups.Post("/:id/surveys", s.CreateGroupSurvey)
	groups.Delete("/:id", s.DeleteGroup)

	admin := api.Group("/admin", auth, s.AdminRequired())
	admin.Get("/feature-flags", s.GetFeatureFlags)
	admin.Post("/preferences", s.CreatePreference)
	admin.Post("/suggestions", middleware.RateLimit(s.redis, 10, time.Minute, "ai_suggestions"), s.GenerateSuggestions)
	admin.Post("/suggestions/publish", s.PublishDraft)
	admin.Post("/images", middleware.RateLimit(s.redis, 10, time.Minute, "ai_images"), s.GenerateImage)
	admin.Post("/surveys", s.PublishSurvey)
	admin.Post("/auto-publish", s.AutoPublish)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports whether the database and Redis answer.
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

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AdminRequired rejects non-admin users with 403. It must run after
// AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin, err := s.profileRepo.IsAdmin(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		}
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// Publisher exposes the survey publisher for one-shot jobs.
func (s *Server) Publisher() *service.SurveyPublisher {
	return s.publisher
}

// App builds the Fiber app with middleware and routes.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "PulseVote API",
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
		BodyLimit:    (s.config.ImageMaxUploadSizeMB + 1) * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// Start starts the server
func (s *Server) Start() error {
	app := s.App()
	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
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
