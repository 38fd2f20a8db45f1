package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/campushq/announcements-api/api/swagger"
	"github.com/campushq/announcements-api/internal/handler"
	"github.com/campushq/announcements-api/internal/middleware"
	"github.com/campushq/announcements-api/internal/models"
	"github.com/campushq/announcements-api/internal/repository"
	"github.com/campushq/announcements-api/internal/service"
	"github.com/campushq/announcements-api/pkg/cache"
	"github.com/campushq/announcements-api/pkg/config"
	"github.com/campushq/announcements-api/pkg/database"
	"github.com/campushq/announcements-api/pkg/logger"
	"github.com/campushq/announcements-api/pkg/mailer"
	corsmiddleware "github.com/campushq/announcements-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campushq/announcements-api/pkg/middleware/requestid"
)

// @title Campus Hub Announcements API
// @version 1.0.0
// @description Time-boxed announcements with audience targeting and read tracking
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	// Membership checks fail closed without Redis, so a missing cache is
	// degraded service rather than a fatal error.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, membership cache disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	location, err := time.LoadLocation(cfg.Announcements.Timezone)
	if err != nil {
		logr.Sugar().Warnw("unknown timezone, falling back to UTC", "timezone", cfg.Announcements.Timezone)
		location = time.UTC
	}

	validate := validator.New()
	metricsService := service.NewMetricsService()

	announcementRepo := repository.NewAnnouncementRepository(db)
	readMarkRepo := repository.NewReadMarkRepository(db)
	userRepo := repository.NewUserRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	membershipCache := repository.NewMembershipCacheRepository(redisClient, logr, metricsService)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	catalogService := service.NewCatalogService(catalogRepo, logr)
	recipientService := service.NewRecipientService(userRepo, membershipCache, logr)
	smtpSender := mailer.NewSMTP(cfg.SMTP)
	notificationService := service.NewNotificationService(recipientService, smtpSender, cfg.Announcements.HubURL, logr)
	announcementService := service.NewAnnouncementService(announcementRepo, notificationService, catalogService, validate, logr, location)
	visibilityService := service.NewVisibilityService(announcementRepo, readMarkRepo, userRepo, membershipCache, cfg.Announcements.FeedLimit, logr)

	authHandler := handler.NewAuthHandler(authService)
	announcementHandler := handler.NewAnnouncementHandler(announcementService, recipientService)
	feedHandler := handler.NewFeedHandler(visibilityService, authService)
	catalogHandler := handler.NewCatalogHandler(catalogService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authService))
	authed.GET("/auth/me", authHandler.Me)

	authed.GET("/announcements/visible", feedHandler.Visible)
	authed.GET("/announcements/unread/count", feedHandler.UnreadCount)
	authed.POST("/announcements/:id/read", feedHandler.MarkRead)
	authed.DELETE("/announcements/:id/read", feedHandler.MarkUnread)

	admin := authed.Group("")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/announcements", announcementHandler.List)
	admin.POST("/announcements", announcementHandler.Create)
	admin.GET("/announcements/:id", announcementHandler.Get)
	admin.PUT("/announcements/:id", announcementHandler.Update)
	admin.DELETE("/announcements/:id", announcementHandler.Delete)
	admin.GET("/announcements/:id/recipients", announcementHandler.Recipients)
	admin.GET("/catalog/audiences", catalogHandler.Audiences)
	admin.POST("/catalog/master-courses", catalogHandler.MasterCourses)
	admin.POST("/catalog/scheduled-courses", catalogHandler.ScheduledCourses)
	admin.POST("/catalog/scheduled-course-groups", catalogHandler.ScheduledCourseGroups)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
