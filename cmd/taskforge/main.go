package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/taskforge/taskforge/pkg/admin"
	"github.com/taskforge/taskforge/pkg/api"
	"github.com/taskforge/taskforge/pkg/audit"
	"github.com/taskforge/taskforge/pkg/auth"
	"github.com/taskforge/taskforge/pkg/config"
	"github.com/taskforge/taskforge/pkg/middleware"
	"github.com/taskforge/taskforge/pkg/observability"
	"github.com/taskforge/taskforge/pkg/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithField("service", api.ServiceName).Info("starting")

	// Database.
	db, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		logrus.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		logrus.Fatalf("Failed to initialize schema: %v", err)
	}
	logger.WithField("dialect", db.Dialect()).Info("database ready")

	userStore := storage.NewUserStore(db)
	taskStore := storage.NewTaskStore(db)

	// The deployment is unusable without an admin account, so a failed
	// bootstrap is fatal.
	if err := admin.Bootstrap(ctx, userStore, cfg.Admin, logger); err != nil {
		logrus.Fatalf("Admin bootstrap failed: %v", err)
	}

	// Auth.
	codec, err := auth.NewTokenCodec(cfg.Auth.SecretKey, cfg.Auth.Algorithm, cfg.Auth.TokenTTL)
	if err != nil {
		logrus.Fatalf("Failed to create token codec: %v", err)
	}
	resolver := auth.NewResolver(codec, userStore)

	// Metrics.
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	// Rate limit counter stores. The local store always exists; Redis is
	// layered on top when configured.
	localStore, err := middleware.NewLocalCounterStore(10000)
	if err != nil {
		logrus.Fatalf("Failed to create rate limit store: %v", err)
	}
	var counterStore middleware.CounterStore = localStore
	var redisClient *redis.Client
	if cfg.Security.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Security.RedisURL)
		if err != nil {
			logrus.Fatalf("Invalid REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis unreachable at startup; rate limiting starts on the local store")
		} else {
			logger.Info("shared rate limit store connected")
		}
		counterStore = middleware.NewRedisCounterStore(redisClient, "ratelimit")
	}

	health := observability.NewHealthChecker(db.DB, redisClient)

	if metrics != nil {
		go func() {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					metrics.DBConnectionsActive.Set(float64(db.Stats().OpenConnections))
				}
			}
		}()
	}

	server := api.NewServer(api.ServerConfig{
		Users:        userStore,
		Tasks:        taskStore,
		Resolver:     resolver,
		TokenCodec:   codec,
		CookieSecure: cfg.Auth.CookieSecure,
		Health:       health,
		Logger:       logger,
		Metrics:      metrics,
	})

	auditLogger := audit.NewLogger(logger)
	handler := middleware.Chain(server,
		middleware.NewSizeLimitMiddleware(cfg.Security.MaxRequestSize, logger),
		middleware.NewSecurityHeadersMiddleware(),
		audit.NewMiddleware(auditLogger, metrics, cfg.Security.LogAllRequests),
		middleware.NewCSRFMiddleware(cfg.Security.AllowedOrigins, logger),
		middleware.NewRateLimitMiddleware(counterStore, localStore, logger, metrics),
		middleware.NewUserContextMiddleware(resolver),
	)

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthRouter := mux.NewRouter()
	healthRouter.HandleFunc("/healthz", health.Liveness).Methods("GET")
	healthRouter.HandleFunc("/health", health.Readiness).Methods("GET")
	if metrics != nil {
		healthRouter.Handle("/metrics", metrics.Handler()).Methods("GET")
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthRouter,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("API server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("API server shutdown error")
		}
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("health server shutdown error")
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		logrus.Fatalf("Server error: %v", err)
	}
	logger.Info("stopped")
}
