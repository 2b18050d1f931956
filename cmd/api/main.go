package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saarfitness/gymhub/internal/config"
	"github.com/saarfitness/gymhub/internal/db"
	httpx "github.com/saarfitness/gymhub/internal/http"
	"github.com/saarfitness/gymhub/internal/notifications"
	"github.com/saarfitness/gymhub/internal/objstore"
	"github.com/saarfitness/gymhub/internal/observability"
	"github.com/saarfitness/gymhub/internal/queue/redisclient"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	// tracing is best effort; the exporter buffers until a collector shows up
	shutdownTracer, err := observability.InitTracer(context.Background(), "gymhub-api", cfg.OTLPEndpoint)

	if err != nil {
		log.Warn("tracer init failed", "err", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	// one pool per credential partition
	partitions, err := db.Open(cfg)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer partitions.Close()

	seedCtx, seedCancel := config.WithTimeout(5 * time.Second)

	if err := db.EnsureAdminUser(seedCtx, partitions.Admin, cfg); err != nil {
		log.Error("admin seed failed", "err", err)
	}
	seedCancel()

	redis := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redis.Close()

	pingCtx, pingCancel := config.WithTimeout(2 * time.Second)

	if err := redis.Ping(pingCtx); err != nil {
		log.Warn("redis unreachable, sweep locking degrades", "err", err)
	}
	pingCancel()

	var photos *objstore.Client

	if cfg.MinioEndpoint != "" {
		photos, err = objstore.NewClient(objstore.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})

		if err != nil {
			log.Error("minio init failed", "err", err)
			os.Exit(1)
		}

		bctx, bcancel := config.WithTimeout(5 * time.Second)

		if err := photos.EnsureBucket(bctx); err != nil {
			log.Error("minio bucket check failed", "err", err)
			os.Exit(1)
		}
		bcancel()
	} else {
		log.Warn("minio not configured, member photos disabled")
	}

	var notifier notifications.Notifier

	if cfg.SMTPHost != "" {
		notifier = notifications.NewSMTPNotifier(notifications.SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.SMTPFrom,
		})
	} else {
		log.Warn("smtp not configured, using log notifier")
		notifier = notifications.NewLogNotifier()
	}

	notifier = notifications.NewProtectedNotifier(notifier, notifications.ProtectedNotifierConfig{})

	registry := prometheus.NewRegistry()
	prom := observability.NewProm(registry)

	router := httpx.NewRouter(httpx.Deps{
		Cfg:      cfg,
		Log:      log,
		DB:       &partitions,
		Redis:    redis,
		Photos:   photos,
		Notifier: notifier,
		Prom:     prom,
		Registry: registry,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
			return
		}

		_ = shutdownTracer(ctx)
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
