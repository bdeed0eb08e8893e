package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"twitter_api/internal/auth"
	"twitter_api/internal/backend"
	"twitter_api/internal/cache"
	"twitter_api/internal/config"
	"twitter_api/internal/handler"
	"twitter_api/internal/observability"
	"twitter_api/internal/queue"
)

const devCredentialSecret = "development-only-credential-secret"

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg := config.Load()
	setLogLevel(cfg.LogLevel)
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Prometheus metrics
	observability.InitMetrics()
	logrus.Info("Metrics initialized")

	ctx := context.Background()

	store, err := backend.Open(ctx, cfg, observability.GlobalMetrics)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open storage backend")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close storage backend")
		}
	}()

	var cacheStore cache.Store = cache.Noop{}
	rdb, err := cache.SetupRedis(&cfg.Redis)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to Redis")
	}
	if rdb != nil {
		defer func() {
			if err := rdb.Close(); err != nil {
				logrus.WithError(err).Error("Failed to close redis connection")
			}
		}()
		cacheStore = cache.NewRecordCache(rdb, cfg.Redis.TTL, observability.GlobalMetrics)
	} else {
		logrus.Info("REDIS_HOST not set, caching disabled")
	}

	var events queue.Publisher = queue.NopPublisher{}
	conn, err := queue.SetupRabbitMQ(&cfg.RabbitMQ)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to RabbitMQ")
	}
	if conn != nil {
		defer func() {
			if err := conn.Close(); err != nil {
				logrus.WithError(err).Error("Failed to close RabbitMQ connection")
			}
		}()
		publisher, err := queue.NewAMQPPublisher(conn, cfg.RabbitMQ.Queue, observability.GlobalMetrics)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to set up event publisher")
		}
		events = publisher
	} else {
		logrus.Info("RABBITMQ_URL not set, event publishing disabled")
	}

	secret := cfg.Credential.Secret
	if secret == "" {
		if !cfg.IsDevelopment() {
			logrus.Fatal("CREDENTIAL_SECRET is required outside development")
		}
		logrus.Warn("CREDENTIAL_SECRET not set, using the development secret")
		secret = devCredentialSecret
	}
	hasher, err := auth.NewHasher(secret)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create credential hasher")
	}

	r := handler.SetupHandler(handler.Dependencies{
		Backend: store,
		Hasher:  hasher,
		Cache:   cacheStore,
		Events:  events,
		Metrics: observability.GlobalMetrics,
	})

	// Expose /metrics endpoint for Prometheus to scrape
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	logrus.Info("Metrics endpoint exposed at /metrics")

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logrus.Infof("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server forced to shut down")
	}
}

func setLogLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.WithField("level", level).Warn("Unknown LOG_LEVEL, using info")
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}
