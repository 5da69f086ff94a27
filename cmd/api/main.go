package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/devring/devring-backend/internal/config"
	"github.com/devring/devring-backend/internal/handler"
	"github.com/devring/devring-backend/internal/middleware"
	searchrepo "github.com/devring/devring-backend/internal/repository/search"
	"github.com/devring/devring-backend/internal/routes"
	"github.com/devring/devring-backend/internal/service"
	pkgcache "github.com/devring/devring-backend/pkg/cache"
	pkglogger "github.com/devring/devring-backend/pkg/logger"
	pkgredis "github.com/devring/devring-backend/pkg/redis"
	pkgstorage "github.com/devring/devring-backend/pkg/storage"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// @title           Devring Search API
// @version         2.0
// @description     Unified search backend for the Devring community platform
//
// @license.name    MIT
//
// @host            localhost:8082
// @BasePath        /api/v2
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Authorization header using the Bearer scheme. Example: "Bearer {token}"

// getConfigPath returns config file path based on APP_ENV environment variable
func getConfigPath() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("configs/config.%s.yaml", env)
}

func main() {
	dotenvFiles := config.LoadDotEnv()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	pkglogger.InitStructured(env)
	log := pkglogger.GetLogger()
	log.Info().Str("env", env).Strs("dotenv", dotenvFiles).Msg("starting")

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := initDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	log.Info().Str("host", cfg.Database.Host).Msg("connected to Postgres")

	// Redis is optional: without it the response cache is skipped.
	var cacheSvc pkgcache.Service
	redisClient, err := pkgredis.NewClient(
		cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, continuing without cache")
		cacheSvc = pkgcache.NewService(nil)
	} else {
		cacheSvc = pkgcache.NewService(redisClient)
	}

	var signer service.AvatarSigner
	if cfg.Storage.Bucket != "" {
		s3Client, err := pkgstorage.NewS3Client(pkgstorage.S3Config{
			Endpoint:        cfg.Storage.Endpoint,
			Region:          cfg.Storage.Region,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			Bucket:          cfg.Storage.Bucket,
			BasePath:        cfg.Storage.BasePath,
			ForcePathStyle:  cfg.Storage.ForcePathStyle,
			PresignTTL:      time.Duration(cfg.Storage.PresignTTLMinutes) * time.Minute,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init storage client")
		}
		signer = s3Client
	} else {
		log.Warn().Msg("no storage bucket configured, avatar urls stay unsigned")
	}

	searchService := service.NewSearchService(
		searchrepo.NewPostRepository(db, cfg.Search.PostHalfLifeDays),
		searchrepo.NewActivityRepository(db, cfg.Search.ActivityHalfLifeDays),
		searchrepo.NewUserRepository(db, cfg.Search.UserSimilarityThreshold),
		searchrepo.NewTagRepository(db),
		signer,
		cacheSvc,
		service.SearchOptions{
			SlowQueryThreshold: time.Duration(cfg.Search.SlowQueryMs) * time.Millisecond,
			CacheTTL:           time.Duration(cfg.Search.CacheTTLSeconds) * time.Second,
		},
	)

	router := routes.Setup(cfg,
		handler.NewSearchHandler(searchService),
		handler.NewHealthHandler(db, cacheSvc),
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	go func() {
		log.Info().Int("port", cfg.App.Port).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	go reportDBStats(db)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}

func initDB(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormCfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// reportDBStats feeds the db connection gauge
func reportDBStats(db *gorm.DB) {
	for range time.Tick(15 * time.Second) {
		if sqlDB, err := db.DB(); err == nil {
			middleware.SetDBConnectionsActive(float64(sqlDB.Stats().OpenConnections))
		}
	}
}
