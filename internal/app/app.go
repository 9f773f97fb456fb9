package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	notificationHTTP "pulse-notify/internal/controller/http"
	"pulse-notify/internal/repo/cache"
	"pulse-notify/internal/repo/persistent"
	"pulse-notify/internal/stream"
	"pulse-notify/internal/usecase"
	"pulse-notify/pkg/config"
	"pulse-notify/pkg/jwt"
	"pulse-notify/pkg/logger"
	"pulse-notify/pkg/middleware"
	"pulse-notify/pkg/queue"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Run(cfg *config.Config, log *logger.Logger) {
	jwtService := jwt.NewService(cfg.JWTSecret)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisHost + ":" + cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	// The settings database is optional: without it the preference store
	// falls back to built-in defaults.
	var settingsRepo persistent.SettingsRepository
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Warn("Settings database unavailable, using built-in default preferences: %v", err)
	} else {
		settingsRepo = persistent.NewSettingsRepository(db)
	}

	broker := queue.NewManager(cfg, log)
	if err := broker.Connect(); err != nil {
		log.Fatal("Failed to connect to RabbitMQ: %v", err)
	}
	// The process must not accept traffic without topology.
	if err := broker.EnsureTopology(); err != nil {
		log.Fatal("Failed to ensure broker topology: %v", err)
	}

	redisCache := cache.NewRedisCache(redisClient)
	historyStore := cache.NewHistoryStore(redisCache, log)
	preferenceStore := cache.NewPreferenceStore(redisCache, settingsRepo, log)

	registry := stream.NewRegistry(log)
	publisher := usecase.NewPublisher(broker, log)
	dispatcher := usecase.NewDispatcher(broker, preferenceStore, historyStore, registry, log)

	notificationHandler := notificationHTTP.NewNotificationHandler(publisher, historyStore, log)
	preferenceHandler := notificationHTTP.NewPreferenceHandler(preferenceStore, log)
	streamHandler := notificationHTTP.NewStreamHandler(registry, jwtService, log)
	adminHandler := notificationHTTP.NewAdminHandler(registry, historyStore, broker, redisClient, log)

	// Setup router
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000", "*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * 3600,
	}))

	r.GET("/health", adminHandler.Health)

	api := r.Group("/api/v1")

	// Protected routes - require authentication
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(jwtService))
	{
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.GetUnreadCount)
		protected.POST("/notifications/:id/read", notificationHandler.MarkNotificationRead)
		protected.DELETE("/notifications/:id", notificationHandler.DeleteNotification)
		protected.DELETE("/notifications", notificationHandler.ClearNotifications)

		protected.GET("/preferences", preferenceHandler.GetPreferences)
		protected.PUT("/preferences", preferenceHandler.UpdatePreferences)
		protected.DELETE("/preferences", preferenceHandler.ResetPreferences)
	}

	// Stream endpoints - authenticate internally via query token
	api.GET("/notifications/stream", streamHandler.HandleStream)
	api.GET("/notifications/ws", streamHandler.HandleWebSocket)

	// Internal routes - no auth required (for internal service calls)
	internal := api.Group("")
	internal.Use(middleware.RateLimitMiddleware(redisClient, 100, time.Minute))
	{
		internal.POST("/notifications/send", notificationHandler.SendNotification)
		internal.POST("/notifications/batch", notificationHandler.SendBatch)
		internal.POST("/notifications/broadcast", notificationHandler.BroadcastNotification)
	}

	admin := api.Group("/admin")
	{
		admin.GET("/connections", adminHandler.GetConnections)
		admin.GET("/cache/:user_id", adminHandler.GetUserCacheInfo)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	if err := dispatcher.Start(consumerCtx, usecase.DispatcherConfig{
		Prefetch: cfg.PrefetchCount,
	}); err != nil {
		log.Fatal("Failed to start dispatcher: %v", err)
	}

	go func() {
		log.Info("Notification service starting on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Failed to start server: %v", err)
			panic(err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down notification service...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := dispatcher.Stop(""); err != nil {
		log.Error("Error stopping dispatcher: %v", err)
	}
	cancelConsumer()

	if err := broker.Close(); err != nil {
		log.Error("Error closing RabbitMQ: %v", err)
	}
	if err := redisClient.Close(); err != nil {
		log.Error("Error closing Redis: %v", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	log.Info("Notification service exited")
}
