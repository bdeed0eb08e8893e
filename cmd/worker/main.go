package main

import (
	"context"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"twitter_api/internal/backend"
	"twitter_api/internal/config"
	"twitter_api/internal/observability"
	"twitter_api/internal/queue"
	"twitter_api/internal/tweet"
	"twitter_api/internal/user"
	"twitter_api/internal/worker"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg := config.Load()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(lvl)
	}

	if cfg.RabbitMQ.URL == "" {
		logrus.Fatal("RABBITMQ_URL is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Prometheus metrics
	observability.InitMetrics()
	logrus.Info("Metrics initialized")

	store, err := backend.Open(ctx, cfg, observability.GlobalMetrics)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open storage backend")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close storage backend")
		}
	}()

	conn, err := queue.SetupRabbitMQ(&cfg.RabbitMQ)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to RabbitMQ")
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close RabbitMQ connection")
		}
	}()

	consumerChannel, err := queue.CreateChannel(conn)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create RabbitMQ channel")
	}

	if _, err := queue.DeclareQueue(consumerChannel, cfg.RabbitMQ.Queue); err != nil {
		logrus.WithError(err).Fatal("Failed to declare RabbitMQ queue")
	}

	if err := consumerChannel.Close(); err != nil {
		logrus.WithError(err).Fatal("Failed to close RabbitMQ channel")
	}

	// Start metrics HTTP server for Prometheus scraping
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logrus.Infof("Worker metrics server started on :%s", cfg.Worker.MetricsPort)
		if err := http.ListenAndServe(":"+cfg.Worker.MetricsPort, mux); err != nil {
			logrus.WithError(err).Fatal("Failed to start metrics server")
		}
	}()

	auditor := worker.NewAuditor(
		user.NewUserRepository(store.Users),
		tweet.NewTweetRepository(store.Tweets),
		observability.GlobalMetrics,
	)

	var wg sync.WaitGroup
	for i := 1; i <= cfg.Worker.Concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := worker.StartWorker(ctx, conn, cfg.RabbitMQ.Queue, auditor, observability.GlobalMetrics, id); err != nil {
				logrus.WithError(err).Errorf("Worker %d stopped", id)
				stop()
			}
		}(i)
	}

	wg.Wait()
	logrus.Info("Worker shut down")
}
