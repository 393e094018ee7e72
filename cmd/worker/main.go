package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/benvon/task-manager/internal/config"
	"github.com/benvon/task-manager/internal/database"
	"github.com/benvon/task-manager/internal/logger"
	"github.com/benvon/task-manager/internal/queue"
	"github.com/benvon/task-manager/internal/workers"
	"go.uber.org/zap"
)

const rabbitMQConnectAttempts = 10

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	noScheduler := flag.Bool("no-scheduler", false, "Consume jobs without scheduling digests (for extra replicas)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.New(cfg.IsDevelopment(), debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.Int("digest_hour", cfg.DigestHour),
		zap.String("timezone", cfg.Timezone),
		zap.Bool("scheduler_enabled", !*noScheduler),
	)

	if cfg.RabbitMQURL == "" {
		zapLogger.Fatal("rabbitmq_url_required_for_worker")
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	if err := db.Migrate(context.Background()); err != nil {
		zapLogger.Fatal("failed_to_migrate_database", zap.Error(err))
	}
	zapLogger.Info("connected_to_database")

	taskRepo := database.NewTaskRepository(db)
	userRepo := database.NewUserRepository(db)
	notificationRepo := database.NewNotificationRepository(db)

	// Cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobQueue, err := queue.NewRabbitMQQueueWithRetry(ctx, cfg.RabbitMQURL, rabbitMQConnectAttempts, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq", zap.Int("prefetch", cfg.RabbitMQPrefetch))

	processor := workers.NewJobProcessor(notificationRepo, taskRepo, jobQueue, cfg.Location, zapLogger)
	dlqGC := queue.NewGarbageCollector(jobQueue, queue.DefaultDLQInterval, queue.DefaultDLQRetention, zapLogger)

	var wg sync.WaitGroup
	runLoop := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zapLogger.Error("worker_loop_stopped_with_error", zap.String("loop", name), zap.Error(err))
				stop()
			}
		}()
	}

	runLoop("processor", func(ctx context.Context) error {
		return processor.Run(ctx, cfg.RabbitMQPrefetch)
	})
	runLoop("dlq_gc", dlqGC.Start)
	if !*noScheduler {
		scheduler := workers.NewDigestScheduler(jobQueue, userRepo, cfg.DigestHour, cfg.Location, zapLogger)
		runLoop("digest_scheduler", scheduler.Run)
	}

	zapLogger.Info("worker_started")

	<-ctx.Done()
	zapLogger.Info("worker_shutting_down")
	wg.Wait()
	zapLogger.Info("worker_stopped")
}
