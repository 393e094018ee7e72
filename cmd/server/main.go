package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/task-manager/api/openapi"
	"github.com/benvon/task-manager/internal/auth"
	"github.com/benvon/task-manager/internal/backup"
	"github.com/benvon/task-manager/internal/config"
	"github.com/benvon/task-manager/internal/database"
	"github.com/benvon/task-manager/internal/handlers"
	"github.com/benvon/task-manager/internal/logger"
	"github.com/benvon/task-manager/internal/middleware"
	"github.com/benvon/task-manager/internal/notify"
	"github.com/benvon/task-manager/internal/queue"
	"github.com/benvon/task-manager/internal/services/tasks"
	"github.com/benvon/task-manager/internal/telemetry"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

// rabbitMQConnectAttempts covers a broker that starts after the server
const rabbitMQConnectAttempts = 10

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.New(cfg.IsDevelopment(), debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.Strings("allowed_origins", cfg.AllowedOrigins()),
		zap.String("timezone", cfg.Timezone),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// OpenTelemetry is a no-op unless enabled with an endpoint
	shutdownTracer, err := telemetry.Setup(context.Background(), cfg.OTELEnabled, logger.ServiceName, cfg.OTELEndpoint)
	if err != nil {
		zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		shutdownTracer = func(context.Context) error { return nil }
	}
	tracingActive := err == nil && cfg.OTELEnabled && cfg.OTELEndpoint != ""
	if cfg.OTELEnabled && cfg.OTELEndpoint == "" {
		zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
		}
	}()

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
	zapLogger.Info("connected_to_database", zap.String("dialect", string(db.Dialect())))

	// Redis backs the rate limiter when configured; otherwise limits are per process
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = middleware.NewRedisClient(context.Background(), cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
		zapLogger.Info("connected_to_redis")
	} else {
		zapLogger.Warn("redis_not_configured_using_in_memory_rate_limits")
	}
	limiterStore, err := middleware.NewLimiterStore(redisClient)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limit_store", zap.Error(err))
	}

	// Repositories
	taskRepo := database.NewTaskRepository(db)
	userRepo := database.NewUserRepository(db)
	notificationRepo := database.NewNotificationRepository(db)
	settingsRepo := database.NewSettingsRepository(db)
	backupRepo := database.NewBackupRepository(db)
	ratelimitConfigRepo := database.NewRatelimitConfigRepository(db)

	// Notifications go through RabbitMQ when configured so the worker persists them
	var dispatcher notify.Dispatcher = notify.NewDirect(notificationRepo)
	var jobQueue *queue.RabbitMQQueue
	if cfg.RabbitMQURL != "" {
		jobQueue, err = queue.NewRabbitMQQueueWithRetry(context.Background(), cfg.RabbitMQURL, rabbitMQConnectAttempts, zapLogger)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries", zap.Error(err))
		}
		defer func() {
			if err := jobQueue.Close(); err != nil {
				zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
			}
		}()
		dispatcher = notify.NewQueued(jobQueue)
		zapLogger.Info("connected_to_rabbitmq")
	} else {
		zapLogger.Info("rabbitmq_not_configured_writing_notifications_directly")
	}

	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		secret, err = auth.GenerateSecret()
		if err != nil {
			zapLogger.Fatal("failed_to_generate_jwt_secret", zap.Error(err))
		}
		zapLogger.Warn("jwt_secret_not_configured_sessions_reset_on_restart")
	}
	tokenManager, err := auth.NewTokenManager(secret, cfg.JWTIssuer, cfg.TokenTTL)
	if err != nil {
		zapLogger.Fatal("failed_to_create_token_manager", zap.Error(err))
	}

	// Services
	taskService := tasks.NewService(taskRepo, userRepo, dispatcher, cfg.Location, zapLogger)
	backupService, err := backup.NewService(taskRepo, backupRepo, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_create_backup_service", zap.Error(err))
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(userRepo, tokenManager, zapLogger)
	taskHandler := handlers.NewTaskHandler(taskService, zapLogger)
	statsHandler := handlers.NewStatsHandler(taskService, zapLogger)
	notificationHandler := handlers.NewNotificationHandler(notificationRepo, zapLogger)
	settingsHandler := handlers.NewSettingsHandler(settingsRepo, userRepo, zapLogger)
	backupHandler := handlers.NewBackupHandler(backupService, cfg.BackupMaxBytes, zapLogger)

	checks := map[string]handlers.CheckFunc{"database": db.HealthCheck}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	if jobQueue != nil {
		checks["queue"] = jobQueue.HealthCheck
	}
	healthChecker := handlers.NewHealthChecker(checks)

	r := mux.NewRouter()

	// gorilla/mux runs middleware in registration order, so the first one
	// registered is the outermost wrapper
	zapLogger.Info("setting_up_middleware")

	// 0. OpenTelemetry tracing (if enabled)
	if tracingActive {
		r.Use(otelmux.Middleware(logger.ServiceName))
		zapLogger.Info("otel_middleware_enabled")
	}
	// 1. Security headers (should be set on all responses)
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	// 2. Request ID for correlating logs
	r.Use(middleware.RequestID)
	// 3. CORS for the configured frontend origins
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	// 4. Content-Type validation for POST/PATCH/PUT requests
	r.Use(middleware.ContentType)
	// 5. Request timeout
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	// 6. Error handler (catches panics)
	r.Use(middleware.ErrorHandler(zapLogger))
	// 7. Audit logging (for security events)
	r.Use(middleware.Audit(zapLogger))
	// 8. Logging (innermost, executes last before handler)
	r.Use(middleware.Logging(zapLogger))

	// Rate limit is applied to API routes only, with the rate hot-reloaded from the database
	rateLimitReloader := middleware.NewRateLimitReloader(limiterStore, ratelimitConfigRepo, cfg.RateLimitDefault, zapLogger, time.Minute)
	rateLimitMW := rateLimitReloader.Middleware()
	authMW := middleware.Auth(tokenManager, userRepo, zapLogger)
	sizeMW := middleware.MaxRequestSize(cfg.MaxRequestBytes)

	zapLogger.Info("middleware_setup_complete")

	// Public routes (no rate limiting for health checks)
	healthChecker.RegisterRoutes(r)
	handlers.RegisterVersionRoute(r)
	handlers.NewOpenAPIHandler(openapi.Spec).RegisterRoutes(r)

	apiRouter := r.PathPrefix("/api/v1").Subrouter()

	// Auth routes
	authRouter := apiRouter.PathPrefix("/auth").Subrouter()

	publicAuthRouter := authRouter.PathPrefix("").Subrouter()
	publicAuthRouter.Use(rateLimitMW, sizeMW)
	authHandler.RegisterPublicRoutes(publicAuthRouter)

	protectedAuthRouter := authRouter.PathPrefix("").Subrouter()
	protectedAuthRouter.Use(authMW, rateLimitMW, sizeMW)
	authHandler.RegisterRoutes(protectedAuthRouter)

	// Task routes (protected)
	tasksRouter := apiRouter.PathPrefix("/tasks").Subrouter()
	tasksRouter.Use(authMW, rateLimitMW, sizeMW)
	taskHandler.RegisterRoutes(tasksRouter)

	// Notification routes (protected)
	notificationsRouter := apiRouter.PathPrefix("/notifications").Subrouter()
	notificationsRouter.Use(authMW, rateLimitMW, sizeMW)
	notificationHandler.RegisterRoutes(notificationsRouter)

	// Backup routes (protected); restore enforces BACKUP_MAX_BYTES itself
	backupsRouter := apiRouter.PathPrefix("/backups").Subrouter()
	backupsRouter.Use(authMW, rateLimitMW)
	backupHandler.RegisterRoutes(backupsRouter)

	// Stats and settings live directly under /api/v1
	userRouter := apiRouter.PathPrefix("").Subrouter()
	userRouter.Use(authMW, rateLimitMW, sizeMW)
	statsHandler.RegisterRoutes(userRouter)
	settingsHandler.RegisterRoutes(userRouter)

	// Catch-all OPTIONS handler for preflight requests; CORS has already set headers
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Rate limit hot-reload loop; the worker purges the dead-letter queue
	reloadCtx, reloadCancel := context.WithCancel(context.Background())
	defer reloadCancel()
	go rateLimitReloader.Start(reloadCtx)

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	reloadCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}
