package main

import (
	"context"   // Shutdown deadline and Redis ping
	"errors"    // Server close detection
	"net/http"  // HTTP server
	"os"        // Process signals
	"os/signal" // Graceful shutdown
	"syscall"   // SIGTERM
	"time"      // Timeouts

	"oficina/internal/api"      // Router and handlers
	"oficina/internal/audit"    // History recorder
	"oficina/internal/config"   // Configuration
	"oficina/internal/db"       // Database connection
	"oficina/internal/mailer"   // Outbound email
	"oficina/internal/realtime" // Websocket hub
	"oficina/internal/service"  // Transactional writes
	"oficina/internal/storage"  // Object storage
	"oficina/internal/utils"    // Report cache

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg, err := config.LoadConfig() // Load configuration
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to the database, retrying while it comes up
	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	deps := &api.Deps{
		DB:       gdb,
		Config:   cfg,
		Cache:    setupCache(ctx, cfg),
		Audit:    audit.NewRecorder(gdb),
		Orders:   service.NewOrders(gdb),
		Accounts: service.NewAccounts(gdb),
		Hub:      realtime.NewHub(cfg.FrontendURL),
	}
	if cfg.StorageEnabled() {
		up, err := storage.NewMinioUploader(ctx, storage.Options{
			Endpoint:  cfg.StorageEndpoint,
			AccessKey: cfg.StorageAccessKey,
			SecretKey: cfg.StorageSecretKey,
			Bucket:    cfg.StorageBucket,
			UseSSL:    cfg.StorageUseSSL,
			PublicURL: cfg.StoragePublicURL,
		})
		if err != nil {
			logrus.Fatalf("failed to connect to object storage: %v", err)
		}
		deps.Storage = up
	} else {
		logrus.Warn("STORAGE_ENDPOINT not set, uploads disabled")
	}
	if cfg.MailEnabled() {
		deps.Mailer = mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	} else {
		logrus.Warn("SMTP_HOST not set, emails disabled")
	}
	go deps.Hub.Run(ctx)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r := api.NewRouter(deps)
	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logrus.WithField("port", cfg.AppPort).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("graceful shutdown failed")
	}
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// setupLogger applies LOG_FORMAT and LOG_LEVEL
func setupLogger(cfg *config.Config) {
	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithField("level", cfg.LogLevel).Warn("unknown LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// setupCache returns the Redis report cache, or a no-op cache when Redis is absent or unreachable
func setupCache(ctx context.Context, cfg *config.Config) utils.Cache {
	if cfg.RedisAddr == "" {
		logrus.Warn("REDIS_ADDR not set, report caching disabled")
		return utils.NopCache{}
	}
	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})
	// Test Redis connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logrus.WithError(err).Warn("Redis not reachable, report caching disabled")
		_ = redisClient.Close()
		return utils.NopCache{}
	}
	return utils.NewRedisCache(redisClient)
}
