package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/stitts-dev/voice-caddie/internal/api/handlers"
	"github.com/stitts-dev/voice-caddie/internal/api/middleware"
	"github.com/stitts-dev/voice-caddie/internal/services"
	"github.com/stitts-dev/voice-caddie/internal/storage"
	"github.com/stitts-dev/voice-caddie/internal/websocket"
	"github.com/stitts-dev/voice-caddie/pkg/config"
	"github.com/stitts-dev/voice-caddie/pkg/logger"
)

const serviceVersion = "1.0.0"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	structuredLogger := logger.InitLogger("info", cfg.IsDevelopment())
	logger.WithService(cfg.ServiceName).WithFields(logrus.Fields{
		"version":     serviceVersion,
		"environment": cfg.Env,
		"port":        cfg.Port,
	}).Info("Starting voice caddie service")

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Redis is optional; without it sessions run purely in memory
	var cacheService *services.CacheService
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.WithService(cfg.ServiceName).Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient = redis.NewClient(opt)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.WithService(cfg.ServiceName).Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		cacheService = services.NewCacheService(redisClient, structuredLogger)
	}

	// Postgres is optional; without it every session uses the stock bag
	var clubRepo *storage.ClubRepository
	if cfg.DatabaseURL != "" {
		db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
		if err != nil {
			logger.WithService(cfg.ServiceName).Fatalf("Failed to connect to database: %v", err)
		}
		clubRepo, err = storage.NewClubRepository(db, structuredLogger)
		if err != nil {
			logger.WithService(cfg.ServiceName).Fatalf("Failed to initialize club repository: %v", err)
		}
	}

	var speech services.SpeechProvider
	if cfg.SpeechProvider == "mock" {
		speech = services.NewMockSpeechProvider("150 yards to the pin")
	} else {
		speech = services.NewSpeechClient(cfg, structuredLogger)
	}

	var catalogs services.CatalogProvider
	if clubRepo != nil {
		catalogs = clubRepo
	}
	orchestrator := services.NewOrchestrator(cfg, speech, cacheService, catalogs, structuredLogger)

	wsHub := websocket.NewHub(structuredLogger)
	wsHub.OnMessage(func(sessionID string, data []byte) {
		resp, err := orchestrator.ProcessTextInput(sessionID, string(data))
		if err != nil {
			logger.WithSession(sessionID).WithError(err).Warn("WebSocket turn failed")
			return
		}
		wsHub.BroadcastToSession(sessionID, websocket.TurnEvent{
			Type:       "turn",
			SessionID:  sessionID,
			UserText:   string(data),
			CaddieText: resp.SpokenText,
			State:      string(resp.State),
			Payload:    resp.Recommendation,
		})
	})
	go wsHub.Run()

	// Reap idle sessions on the configured schedule
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.SessionReapInterval, func() {
		if reaped := orchestrator.ReapIdleSessions(); reaped > 0 {
			logger.WithService(cfg.ServiceName).WithField("reaped", reaped).Info("Reaped idle sessions")
		}
	}); err != nil {
		logger.WithService(cfg.ServiceName).Fatalf("Failed to schedule session reaper: %v", err)
	}
	if _, err := scheduler.AddFunc("0 3 * * *", func() {
		stats := orchestrator.ErrorStatistics()
		logger.WithService(cfg.ServiceName).WithFields(logrus.Fields{
			"total_errors": stats.TotalErrors,
			"success_rate": stats.SuccessRate,
		}).Info("Nightly error statistics rollup")
	}); err != nil {
		logger.WithService(cfg.ServiceName).Fatalf("Failed to schedule statistics rollup: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestLogger(structuredLogger))

	sessionHandler := handlers.NewSessionHandler(orchestrator, wsHub, structuredLogger)
	healthHandler := handlers.NewHealthHandler(speech, cacheService, serviceVersion)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/sessions", sessionHandler.StartSession)
		apiV1.GET("/sessions/:session_id", sessionHandler.GetSession)
		apiV1.POST("/sessions/:session_id/text", sessionHandler.TextInput)
		apiV1.POST("/sessions/:session_id/voice", sessionHandler.VoiceInput)
		apiV1.POST("/sessions/:session_id/reset", sessionHandler.ResetSession)
		apiV1.DELETE("/sessions/:session_id", sessionHandler.EndSession)

		apiV1.GET("/errors/statistics", sessionHandler.ErrorStatistics)
	}

	router.GET("/ws/sessions/:session_id", wsHub.HandleWebSocket)

	router.GET("/health", healthHandler.Health)
	router.HEAD("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.HEAD("/ready", healthHandler.Ready)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		logger.WithService(cfg.ServiceName).WithField("port", cfg.Port).Info("Voice caddie service started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithService(cfg.ServiceName).Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.WithService(cfg.ServiceName).Info("Shutting down voice caddie service...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithService(cfg.ServiceName).Fatalf("Voice caddie service forced to shutdown: %v", err)
	}

	logger.WithService(cfg.ServiceName).Info("Voice caddie service exited")
}
