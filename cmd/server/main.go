package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sifan077/LinkRewards/config"
	appmodel "github.com/sifan077/LinkRewards/internal/app/model"
	"github.com/sifan077/LinkRewards/internal/app/provider"
	apprepository "github.com/sifan077/LinkRewards/internal/app/repository"
	appserver "github.com/sifan077/LinkRewards/internal/app/server"
	"github.com/sifan077/LinkRewards/internal/app/service"
	"github.com/sifan077/LinkRewards/internal/app/settings"
	"github.com/sifan077/LinkRewards/internal/http/middleware"
	"github.com/sifan077/LinkRewards/internal/http/util"
	"github.com/sifan077/LinkRewards/internal/i18n"
	"github.com/sifan077/LinkRewards/internal/infra/logger"
	infraNATS "github.com/sifan077/LinkRewards/internal/infra/nats"
	infraPostgres "github.com/sifan077/LinkRewards/internal/infra/postgres"
	infraPrometheus "github.com/sifan077/LinkRewards/internal/infra/prometheus"
	infraRedis "github.com/sifan077/LinkRewards/internal/infra/redis"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx := context.Background()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatal("Failed to load config", zap.Error(err))
	}

	isDev := !cfg.App.Production()
	log := logger.MustInit(logger.Config{
		Development: isDev,
		Level:       cfg.Log.Level,
		Encoding:    cfg.Log.Encoding,
		File:        cfg.Log.File,
		MaxSize:     cfg.Log.MaxSize,
		MaxBackups:  cfg.Log.MaxBackups,
		MaxAge:      cfg.Log.MaxAge,
		Compress:    cfg.Log.Compress,
	})
	defer func() { _ = logger.Sync() }()

	log.Info("Configuration loaded successfully",
		zap.String("env", cfg.App.Env),
		zap.String("app_url", cfg.App.URL),
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Int("redis_port", cfg.Redis.Port),
		zap.String("nats_host", cfg.NATS.Host),
		zap.Int("nats_port", cfg.NATS.Port),
	)

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres, logger.NewGormLogger(log, logger.GormLevel(log.Level())))
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.AutoMigrate(ctx, gormDB, &appmodel.Link{}, &appmodel.Activity{}, &appmodel.TimedTask{}); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := settings.EnsureSchema(ctx, pool); err != nil {
		log.Fatal("Failed to prepare settings table", zap.Error(err))
	}
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

	linkRepo := apprepository.NewLinkRepository(gormDB)
	activityRepo := apprepository.NewActivityRepository(gormDB)
	taskRepo := apprepository.NewTimedTaskRepository(gormDB)

	activityConsumer := service.NewActivityConsumer(js, log, activityRepo)
	if err := activityConsumer.Start(); err != nil {
		log.Fatal("Failed to start activity consumer", zap.Error(err))
	}
	defer activityConsumer.Stop()
	activities := service.NewActivityPublisher(js)

	settingsSvc := settings.NewService(settings.NewPostgresStore(pool, cfg.App.PluginID))
	registry := provider.NewRegistry(cfg.Providers, redisClient, log)
	ledger := service.NewPostgresLedger(pool, cfg.Ledger)

	earnSvc := service.NewEarnService(service.EarnDeps{
		Logger:     log,
		Links:      linkRepo,
		Settings:   settingsSvc,
		Shorteners: registry,
		Ledger:     ledger,
		Activities: activities,
		AppURL:     cfg.App.URL,
	})
	adminSvc := service.NewAdminService(linkRepo, settingsSvc, activities)

	purgeJob := service.NewPurgeJob(log, linkRepo, taskRepo, cfg.Purge)
	if err := purgeJob.Start(); err != nil {
		log.Fatal("Failed to start purge job", zap.Error(err))
	}
	defer purgeJob.Stop()

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

	translator, err := i18n.New(cfg.App.DefaultLanguage)
	if err != nil {
		log.Fatal("Failed to load translations", zap.Error(err))
	}

	var signer *util.TokenSigner
	switch {
	case cfg.App.IdentitySecret != "":
		signer = util.NewTokenSigner([]byte(cfg.App.IdentitySecret), cfg.App.IdentityTTL)
	case isDev:
		log.Warn("IDENTITY_SECRET is not set, trusting identity headers without a token")
	default:
		log.Fatal("IDENTITY_SECRET is required in production")
	}

	server := appserver.New(appserver.Dependencies{
		Logger:       log,
		Redis:        redisClient,
		EarnService:  earnSvc,
		AdminService: adminSvc,
		Translator:   translator,
		Signer:       signer,
		RateLimit: middleware.RateLimitConfig{
			MaxRequests: cfg.RateLimit.MaxRequests,
			Window:      cfg.RateLimit.Window,
			KeyPrefix:   "ratelimit:http",
		},
	})

	go func() {
		log.Info("Starting HTTP server", zap.String("addr", cfg.App.Addr))
		if err := server.Listen(cfg.App.Addr); err != nil {
			log.Error("Fiber server exited", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown failed", zap.Error(err))
	}
}
