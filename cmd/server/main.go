package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/imagegallery/internal/cache"
	"github.com/imagegallery/internal/config"
	"github.com/imagegallery/internal/db"
	"github.com/imagegallery/internal/handler"
	"github.com/imagegallery/internal/logging"
	"github.com/imagegallery/internal/router"
	"github.com/imagegallery/internal/service"
	"github.com/imagegallery/internal/storage"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}

	store := initStorage(cfg, logger)
	defer store.Close()

	listCache := initCache(cfg, logger)
	if listCache != nil {
		defer listCache.Close()
	}

	galleries := service.NewGalleryService(db.DB, listCache, cfg.Cache.TTL, logger)
	uploads := service.NewUploadService(store, logger)
	api := handler.NewAPI(db.DB, galleries, uploads, logger)
	api.SetSiteName(cfg.SiteName)

	opts := router.Options{
		SessionSecret: cfg.SessionSecret,
		UploadURLPath: cfg.UploadURLPath,
		CORSOrigins:   cfg.CORSOrigins,
		Logger:        logger,
	}
	if cfg.Storage.Driver == "local" {
		opts.UploadDir = cfg.UploadDir
	}
	r, err := router.SetupRouter(api, opts)
	if err != nil {
		logger.Fatalf("failed to set up router: %v", err)
	}

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.WithFields(log.Fields{
		"addr":    cfg.ListenAddr,
		"storage": cfg.Storage.Driver,
		"cache":   cfg.Cache.Driver,
	}).Info("server starting")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("server shutdown")
	}

	logger.Info("server exiting")
}

func initStorage(cfg config.AppConfig, logger *log.Logger) storage.Store {
	switch cfg.Storage.Driver {
	case "minio":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		st, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.Storage.Minio.Endpoint,
			AccessKey: cfg.Storage.Minio.AccessKey,
			SecretKey: cfg.Storage.Minio.SecretKey,
			Bucket:    cfg.Storage.Minio.Bucket,
			UseSSL:    cfg.Storage.Minio.UseSSL,
			PublicURL: cfg.Storage.Minio.PublicURL,
		})
		if err != nil {
			logger.Fatalf("minio connection failed: %v", err)
		}
		return st
	default:
		st, err := storage.NewLocalStore(cfg.UploadDir, cfg.UploadURLPath)
		if err != nil {
			logger.Fatalf("failed to prepare upload dir: %v", err)
		}
		return st
	}
}

// initCache 返回 nil 表示不缓存图片列表
func initCache(cfg config.AppConfig, logger *log.Logger) cache.Cache {
	switch cfg.Cache.Driver {
	case "redis":
		c, err := cache.NewRedisCache(&redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		}, "gallery:")
		if err != nil {
			logger.Fatalf("redis connection failed: %v", err)
		}
		return c
	case "none":
		return nil
	default:
		return cache.NewMemoryCache(time.Minute)
	}
}
