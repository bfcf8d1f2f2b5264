package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sifan077/SnipURL/config"
	appmodel "github.com/sifan077/SnipURL/internal/app/model"
	appratelimit "github.com/sifan077/SnipURL/internal/app/ratelimit"
	apprepository "github.com/sifan077/SnipURL/internal/app/repository"
	appserver "github.com/sifan077/SnipURL/internal/app/server"
	appservice "github.com/sifan077/SnipURL/internal/app/service"
	"github.com/sifan077/SnipURL/internal/infra/logger"
	infraNATS "github.com/sifan077/SnipURL/internal/infra/nats"
	infraPostgres "github.com/sifan077/SnipURL/internal/infra/postgres"
	infraPrometheus "github.com/sifan077/SnipURL/internal/infra/prometheus"
	infraRedis "github.com/sifan077/SnipURL/internal/infra/redis"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	isDev := os.Getenv("APP_ENV") != "production"
	log := logger.MustInit(logger.Config{
		Development: isDev,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.String("postgres_user", cfg.Postgres.User),
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Int("redis_port", cfg.Redis.Port),
		zap.String("nats_host", cfg.NATS.Host),
		zap.Int("nats_port", cfg.NATS.Port),
	)

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT secret is not configured")
	}

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.AutoMigrate(ctx, gormDB,
		&appmodel.Mapping{}, &appmodel.ClickEvent{}, &appmodel.User{}); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()
	log.Info("Connected to Postgres successfully")

	redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Connected to Redis successfully")

	natsConn, js, err := infraNATS.Connect(cfg.NATS)
	if err != nil {
		log.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Drain()
	log.Info("Connected to NATS successfully", zap.Bool("jetstream_ready", js != nil))

	metrics := infraPrometheus.NewMetrics()

	if !isDev {
		promServer := infraPrometheus.NewServer(cfg.Prometheus)
		go func() {
			log.Info("Starting Prometheus metrics server",
				zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	mappingRepo := apprepository.NewMappingRepository(gormDB)
	clickRepo := apprepository.NewClickEventRepository(gormDB)
	userRepo := apprepository.NewUserRepository(gormDB)

	codeFilter := appservice.NewCodeFilter(0, 0)
	codes, err := mappingRepo.Codes(ctx)
	if err != nil {
		log.Fatal("Failed to load existing short codes", zap.Error(err))
	}
	codeFilter.Seed(codes)
	log.Info("Seeded code filter", zap.Int("codes", len(codes)))

	validator := appservice.NewURLValidator(cfg.Validator, log)
	generator := appservice.NewAliasGenerator(cfg.Shortener.CodeLength)

	shortener := appservice.NewShortenService(appservice.ShortenDeps{
		Mappings:    mappingRepo,
		Validator:   validator,
		Generator:   generator,
		Filter:      codeFilter,
		MaxAttempts: cfg.Shortener.MaxAttempts,
		BulkMaxURLs: cfg.Shortener.BulkMaxURLs,
		Logger:      log,
	})

	publisher := appservice.NewClickPublisher(js)
	analytics := appservice.NewAnalyticsService(appservice.AnalyticsDeps{
		Sink:     publisher,
		Clicks:   clickRepo,
		Mappings: mappingRepo,
		Logger:   log,
	})

	consumer := appservice.NewClickConsumer(js, log, clickRepo, mappingRepo, metrics)
	if err := consumer.Start(); err != nil {
		log.Fatal("Failed to start click consumer", zap.Error(err))
	}

	sweeper := appservice.NewExpirySweeper(log, mappingRepo, time.Minute)
	sweeper.Start()
	defer sweeper.Stop()

	auth := appservice.NewAuthService(userRepo, []byte(cfg.Auth.JWTSecret),
		time.Duration(cfg.Auth.TokenTTLMin)*time.Minute)

	limiter := appratelimit.New(cfg.RateLimit, appratelimit.NewRedisStore(redisClient), log)

	server := appserver.New(appserver.Dependencies{
		Logger:    log,
		Postgres:  pool,
		Redis:     redisClient,
		NATS:      natsConn,
		JetStream: js,
		Shortener: shortener,
		Analytics: analytics,
		Auth:      auth,
		Limiter:   limiter,
		Metrics:   metrics,
		BaseURL:   cfg.Server.BaseURL,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info("Starting HTTP server", zap.String("addr", addr))
	if err := server.Listen(addr); err != nil {
		log.Fatal("Fiber server exited", zap.Error(err))
	}
}
