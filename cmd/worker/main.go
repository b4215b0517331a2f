package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"attendancereport/internal/attendance"
	"attendancereport/internal/clock"
	"attendancereport/internal/config"
	"attendancereport/internal/metrics"
	"attendancereport/internal/queue"
	"attendancereport/internal/store"
	"attendancereport/internal/summary"
)

// Worker consumes export jobs and renders them into EXPORT_DIR.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	if cfg.QueueBackend == "memory" {
		log.Fatalf("QUEUE_BACKEND=memory is served in-process by the api; the worker needs redis")
	}

	db, err := store.NewDB(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Client.Close()
	if !redisClient.Healthy(ctx) {
		log.Printf("WARNING: redis not reachable at %s, waiting for it", cfg.RedisAddr)
	}

	clk := clock.System{}
	repo := attendance.NewRepository(db.Client, db.Driver)
	svc := attendance.NewService(repo, summary.New(cfg.Policy, clk), clk, cfg.DedupWindow).
		WithMetrics(metrics.New(prometheus.DefaultRegisterer))

	q := queue.NewRedisQueue(redisClient.Client, "")

	log.Printf("worker started, writing exports to %s", cfg.ExportDir)
	if err := svc.RunExports(ctx, q, cfg.ExportDir); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("worker failed: %v", err)
	}
	log.Println("worker stopped")
}
