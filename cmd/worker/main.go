package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/saarfitness/gymhub/internal/config"
	"github.com/saarfitness/gymhub/internal/db"
	"github.com/saarfitness/gymhub/internal/notifications"
	"github.com/saarfitness/gymhub/internal/observability"
	"github.com/saarfitness/gymhub/internal/queue/worker"
	"github.com/saarfitness/gymhub/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	// mail jobs live in the member partition
	pool, err := db.NewPool(cfg.MemberDBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	registry := prometheus.NewRegistry()
	prom := observability.NewProm(registry)

	jobsRepo := postgres.NewJobsRepo(pool, prom)

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

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		WorkerID:     workerID,
		PollInterval: 2 * time.Second,
		LockTTL:      60 * time.Second,
	}, jobsRepo, notifier, prom, log)

	// liveness/readiness on a sidecar port
	healthPort := cfg.Port + 1

	healthSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", healthPort),
		Handler:           w.HealthHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("health server failed", "err", err)
		}
	}()

	log.Info("worker started", "worker_id", workerID, "health_port", healthPort)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	shutdownCtx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	_ = healthSrv.Shutdown(shutdownCtx)

	log.Info("worker shutdown complete")
}
