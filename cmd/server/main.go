// Package main runs the events platform HTTP server with the organiser live feed and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-events/backend/config"
	"github.com/aura-events/backend/internal/analytics"
	"github.com/aura-events/backend/internal/auth"
	"github.com/aura-events/backend/internal/events"
	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/internal/organizations"
	"github.com/aura-events/backend/internal/pictures"
	"github.com/aura-events/backend/internal/realtime"
	"github.com/aura-events/backend/internal/registrations"
	"github.com/aura-events/backend/internal/reports"
	"github.com/aura-events/backend/pkg/database"
	"github.com/aura-events/backend/pkg/queue"
	"github.com/aura-events/backend/pkg/redis"
	"github.com/aura-events/backend/pkg/response"
	"github.com/aura-events/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	s3Client, err := storage.NewS3(ctx, storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		ReportsBucket:        cfg.AWS.ReportsBucket,
		PicturesBucket:       cfg.AWS.PicturesBucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Organizations
	orgRepo := organizations.NewRepository(pool)
	orgHandler := organizations.NewHandler(orgRepo, organizations.Defaults{
		Commission:          cfg.Platform.DefaultCommission,
		MaxEventLengthHours: cfg.Platform.DefaultMaxEventLengthHours,
	}, logger)

	// Events and their registrations ledger
	eventRepo := events.NewRepository(pool)
	registrationRepo := registrations.NewRepository(pool)
	reportRepo := reports.NewRepository(pool)
	eventService := events.NewService(events.Deps{
		Store:   eventRepo,
		Orgs:    orgRepo,
		Ledger:  registrationRepo,
		Reports: reportRepo,
		Jobs:    jobQueue,
		Tracker: analytics.NewTracker(jobQueue, logger),
		Logger:  logger,
	})
	eventService.SetFeed(hub)
	eventHandler := events.NewHandler(eventService, logger)
	registrationHandler := registrations.NewHandler(registrationRepo, logger)

	// Analytics, reports, pictures
	analyticsHandler := analytics.NewHandler(eventService, registrationRepo, analytics.NewRepository(pool), reportRepo, orgRepo, cfg.Analytics.APIHost, logger)
	reportHandler := reports.NewHandler(reportRepo, eventService, s3Client, logger)
	pictureHandler := pictures.NewHandler(s3Client, eventService, logger)

	wsValidate := func(token string) (uuid.UUID, string, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, "", err
		}
		return claims.UserID, string(claims.Role), nil
	}
	wsAuthorize := func(ctx context.Context, eventID, userID uuid.UUID) error {
		ev, err := eventService.GetByID(ctx, eventID)
		if err != nil {
			return err
		}
		return eventService.Authorize(ctx, ev, userID)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Public event pages
	router.GET("/events", eventHandler.PublicList)
	router.GET("/events/:id", middleware.OptionalJWT(jwtService), eventHandler.PublicGet)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/users", middleware.RequireRole(models.RoleAdmin), authHandler.List)

		// Organizations
		api.GET("/organizations", orgHandler.ListMyOrganizations)
		api.POST("/organizations", orgHandler.CreateOrganization)
		api.POST("/organizations/join", orgHandler.JoinOrganization)
		api.GET("/organizations/:id/members", orgHandler.ListMembers)
		api.PATCH("/organizations/:id/plan", middleware.RequireRole(models.RoleAdmin), orgHandler.UpdatePlan)

		// Attendee registration
		api.POST("/events/:id/register", eventHandler.Register)
		api.DELETE("/events/:id/registration", eventHandler.Unregister)

		// Report downloads check organization access themselves
		api.GET("/reports/:id/download-url", reportHandler.DownloadURL)

		// Organiser back office
		organisers := api.Group("/organisers", middleware.RequireRole(models.RoleOrganiser, models.RoleAdmin))
		organisers.POST("/events", eventHandler.Create)
		organisers.GET("/events", eventHandler.List)

		event := organisers.Group("/events/:id", events.RequireEventOrgAccess(eventService))
		{
			event.GET("", eventHandler.Get)
			event.PATCH("", eventHandler.Update)
			event.DELETE("", eventHandler.Delete)
			event.GET("/overview", eventHandler.Overview)
			event.POST("/publish", eventHandler.Publish)
			event.GET("/dashboard", analyticsHandler.Dashboard)
			event.GET("/summary", analyticsHandler.Summary)
			event.POST("/reports/:kind", eventHandler.RequestReport)
			event.GET("/reports", reportHandler.List)
			event.GET("/registrations", registrationHandler.List)
			event.POST("/registrations/:user_id/check-in", registrationHandler.CheckIn)
			event.POST("/picture/upload-url", pictureHandler.UploadURL)
			event.POST("/picture", pictureHandler.Upload)
		}
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, wsValidate, wsAuthorize))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
