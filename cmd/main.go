package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"anonchat/backend/internal/alert"
	"anonchat/backend/internal/api/handler"
	"anonchat/backend/internal/appeal"
	"anonchat/backend/internal/bangate"
	"anonchat/backend/internal/chathub"
	"anonchat/backend/internal/logger"
	"anonchat/backend/internal/moderation"
	"anonchat/backend/internal/ratelimit"
	"anonchat/backend/internal/stats"
	"anonchat/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setupDependencies() (*gorm.DB, *redis.Client) {
	dsn := env("DATABASE_DSN",
		"host=localhost user=user password=password dbname=anonchat port=5432 sslmode=disable")

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     env("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		logger.Log.Fatalf("Failed to connect Redis: %v", err)
	}

	logger.Log.Info("Database and Redis connections established")
	return db, rdb
}

func main() {
	logger.Log.Info("Starting AnonChat Backend...")

	if err := godotenv.Load(); err != nil {
		logger.Log.Warn("Error loading .env file")
	}
	logger.SetLevel(os.Getenv("LOG_LEVEL"))

	db, rdb := setupDependencies()
	svc := storage.NewService(db, rdb)
	if err := svc.Migrate(); err != nil {
		logger.Log.Fatalf("Failed to run migrations: %v", err)
	}

	moderator := moderation.New()
	if dir := os.Getenv("MODERATION_PATTERNS_DIR"); dir != "" {
		if err := moderator.LoadPatternsDir(dir); err != nil {
			logger.Log.Fatalf("Failed to load moderation patterns: %v", err)
		}
	}

	limiter := ratelimit.New()
	gate := bangate.New(svc)
	counters := stats.New(svc)
	registry := chathub.NewRegistry(svc)
	matcher := chathub.NewMatcher(registry, svc, counters)
	registry.SetQueue(matcher)
	appeals := appeal.NewService(svc, gate)
	alerts := alert.NewFromEnv()

	ctx := context.Background()
	go limiter.Run(ctx)
	go counters.Run(ctx)
	go registry.RunSweeper(ctx)
	go gate.Watch(ctx, svc.BanUpdates())

	r := gin.Default()
	h := &handler.Handler{
		Reg:           registry,
		Matcher:       matcher,
		Gate:          gate,
		Limiter:       limiter,
		Moderator:     moderator,
		Storage:       svc,
		Counters:      counters,
		Appeals:       appeals,
		Alerts:        alerts,
		JWTSecret:     []byte(env("ADMIN_JWT_SECRET", "change-me")),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
	h.Routes(r)

	server := &http.Server{
		Addr:           env("LISTEN_ADDR", ":8080"),
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	logger.Log.Infof("Listening on %s", server.Addr)
	logger.Log.Fatal(server.ListenAndServe())
}
