package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"curation-bff/clients"
	apperrors "curation-bff/common/errors"
	"curation-bff/common/logger"
	commonmw "curation-bff/common/middleware"
	"curation-bff/config"
	"curation-bff/controllers"
	"curation-bff/events"
	"curation-bff/middleware"
	awspkg "curation-bff/pkg/aws"
	"curation-bff/repository"
	"curation-bff/routes"
	"curation-bff/services"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const serviceName = "curation-bff"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── AWS (optional) ──
	var awsCfg *sdkaws.Config
	if cfg.CloudWatchEnabled || cfg.EventsTopicARN != "" || cfg.CurationResultsQueue != "" {
		c, err := awspkg.LoadAWSConfig(ctx)
		if err != nil {
			zap.L().Warn("aws config unavailable, aws integrations disabled", zap.Error(err))
		} else {
			awsCfg = &c
		}
	}

	// ── CloudWatch Logs + Metrics ──
	var cwWriter *awspkg.CloudWatchLogsClient
	if cfg.CloudWatchEnabled && awsCfg != nil {
		if cwWriter, err = awspkg.NewCloudWatchLogsClient(ctx, *awsCfg, "", serviceName); err != nil {
			zap.L().Warn("cloudwatch logs init failed", zap.Error(err))
			cwWriter = nil
		}
	}
	if cwWriter != nil {
		logger.InitializeWithWriter(cfg.AppEnv, cwWriter)
	} else {
		logger.Initialize(cfg.AppEnv)
	}
	defer logger.Sync()
	log := logger.Log

	cfg.LoadSecrets(ctx)
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	var metricsClient *awspkg.MetricsClient
	if cfg.CloudWatchEnabled && awsCfg != nil {
		metricsClient = awspkg.NewMetricsClient(*awsCfg, "MarketplaceAdmin/Curation", true)
		log.Info("cloudwatch metrics enabled")
	}

	// ── Upstream clients ──
	newGateway := func(baseURL string) *clients.GatewayClient {
		return clients.NewGatewayClient(baseURL, cfg.AdminAPIKey, cfg.UpstreamTimeout, log).WithMetrics(metricsClient)
	}
	store := clients.NewRecordStoreClient(newGateway(cfg.ScraperServiceURL))
	gateway := newGateway(cfg.APIGatewayURL)

	// ── Job tracking and transition lock ──
	var (
		tracker repository.JobTracker
		lock    repository.TransitionLock
	)
	if cfg.RedisURL != "" {
		rdb, err := repository.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		tracker = repository.NewRedisJobTracker(rdb, cfg.JobTrackingTTL, log)
		lock = repository.NewRedisTransitionLock(rdb, cfg.CurationLockTTL, log)
		log.Info("connected to redis")
	} else {
		log.Warn("REDIS_URL not set, job tracking and locks are process-local")
		tracker = repository.NewMemoryJobTracker(cfg.JobTrackingTTL)
		lock = repository.NewMemoryTransitionLock(cfg.CurationLockTTL)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.EventsTopicARN != "" && awsCfg != nil {
		publisher = events.NewSNSPublisher(awspkg.NewSNSClient(*awsCfg), cfg.EventsTopicARN, log)
	}

	curationSvc, bulkSvc := services.New(services.Dependencies{
		Store:       store,
		Jobs:        clients.NewJobRunnerClient(newGateway(cfg.JobRunnerURL)),
		Categorizer: clients.NewCategorizerClient(gateway),
		Catalog:     clients.NewCatalogClient(gateway),
		Tracker:     tracker,
		Lock:        lock,
		Events:      publisher,
		Metrics:     metricsClient,
		Logger:      log,
	}, services.NewBulkCoordinator(cfg.BulkConcurrency, log), cfg.AutoApprove)

	// ── Job result inbox ──
	if cfg.CurationResultsQueue != "" && awsCfg != nil {
		if cfg.ServiceToken == "" {
			log.Warn("SERVICE_AUTH_TOKEN not set, job result queue consumer disabled")
		} else {
			consumer := awspkg.NewSQSConsumer(*awsCfg, cfg.CurationResultsQueue, log)
			handler := services.NewJobResultHandler(curationSvc, cfg.ServiceToken, log)
			go func() {
				if err := consumer.StartPolling(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("job result consumer stopped", zap.Error(err))
				}
			}()
			log.Info("job result queue consumer started")
		}
	}

	// ── HTTP ──
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger())
	r.Use(apperrors.ErrorMiddleware())
	r.Use(commonmw.SecurityHeaders())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", logger.RequestIDHeader},
		ExposeHeaders:    []string{logger.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	limiter := commonmw.PerMinute(cfg.RateLimitPerMinute)
	go limiter.Run(ctx.Done())
	r.Use(commonmw.RateLimitMiddleware(limiter))
	r.Use(commonmw.MetricsMiddleware(metricsClient, serviceName))

	routes.RegisterRoutes(r,
		controllers.NewCurationController(curationSvc, bulkSvc),
		controllers.NewProxyController(store),
		middleware.AuthMiddleware(cfg.DevAuthToken),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("curation bff listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
}
