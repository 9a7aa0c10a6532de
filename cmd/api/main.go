package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "carservice/api/swagger" // swagger docs
	"carservice/internal/cache"
	"carservice/internal/config"
	"carservice/internal/database"
	"carservice/internal/handler"
	"carservice/internal/mailer"
	"carservice/internal/middleware"
	"carservice/internal/repository"
	"carservice/internal/service"
	"carservice/internal/websocket"
	"carservice/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           iCars Service Booking API
// @version         1.0
// @description     Car service booking CRM: customers, vehicles, bookings, feedback, notifications and analytics.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	zlog, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Logger setup failed: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	gin.SetMode(cfg.GinMode)

	db, err := database.NewConnection(cfg.DSN(), zlog)
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}
	zlog.Info("connected to PostgreSQL")

	// Dashboard cache: redis when configured
	dashboardCache := cache.NewNoopCache()
	if cfg.RedisAddr != "" {
		client, err := cache.NewRedisClient(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			zlog.Warn("redis unavailable, dashboard caching disabled", zap.Error(err))
		} else {
			defer func() { _ = client.Close() }()
			dashboardCache = cache.NewRedisCache(client, "carservice:")
		}
	}

	// Outgoing mail: SMTP when configured, otherwise messages are only logged
	var sender mailer.Sender
	if cfg.SMTPHost != "" {
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
	} else {
		sender = mailer.NewLogSender(zlog)
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(zlog, cfg.AllowedOrigins())
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	refreshRepo := repository.NewRefreshTokenRepository(db)
	vehicleRepo := repository.NewVehicleRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	commLogRepo := repository.NewCommunicationLogRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	userService := service.NewUserService(userRepo, refreshRepo, auditRepo, txManager, service.TokenConfig{
		Secret:     []byte(cfg.JWTSecret),
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})
	vehicleService := service.NewVehicleService(vehicleRepo)
	catalogService := service.NewCatalogService(catalogRepo, auditRepo, txManager)
	notificationService := service.NewNotificationService(templateRepo, commLogRepo, userRepo, auditRepo, sender, zlog, cfg.BroadcastConcurrency)
	bookingService := service.NewBookingService(bookingRepo, vehicleRepo, catalogRepo, userRepo, auditRepo, txManager, notificationService, wsHub, zlog)
	feedbackService := service.NewFeedbackService(bookingRepo, txManager)
	// Reports read every completed booking of the month; run them on one snapshot
	analyticsService := service.NewAnalyticsService(analyticsRepo, bookingRepo, userRepo, auditRepo, repository.NewSerializableTransactionManager(db))
	dashboardService := service.NewDashboardService(userRepo, vehicleRepo, catalogRepo, bookingRepo, dashboardCache, cfg.DashboardCacheTTL, zlog)
	auditService := service.NewAuditService(auditRepo)

	middleware.InitAuth(middleware.AuthConfig{
		Secret:        []byte(cfg.JWTSecret),
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		SecureCookies: cfg.IsProduction(),
	})
	authLimiter := middleware.NewRateLimiter(cfg.AuthRatePerMinute)
	go func() {
		for range time.Tick(10 * time.Minute) {
			authLimiter.Cleanup()
		}
	}()

	// Initialize Handlers
	handlers := []interface{ RegisterRoutes(*gin.RouterGroup) }{
		handler.NewUserHandler(userService, authLimiter.Middleware()),
		handler.NewVehicleHandler(vehicleService),
		handler.NewCatalogHandler(catalogService),
		handler.NewBookingHandler(bookingService, feedbackService),
		handler.NewDashboardHandler(dashboardService),
		handler.NewAnalyticsHandler(analyticsService),
		handler.NewCommunicationHandler(notificationService),
		handler.NewAuditHandler(auditService),
	}

	// Set up Gin Router
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(zlog))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins()
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c)
	})

	api := router.Group("/api")
	for _, h := range handlers {
		h.RegisterRoutes(api)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("server is shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
	}
}
