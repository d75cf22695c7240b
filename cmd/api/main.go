package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"sfa-backend/internal/config"
	"sfa-backend/internal/db"
	apihttp "sfa-backend/internal/http"
	"sfa-backend/internal/repository"
	"sfa-backend/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Ping(ctx, pool); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}

	sessionRepo := repository.NewPgSessionRepository(pool)
	userRepo := repository.NewPgUserRepository(pool)

	clockWindow := time.Duration(cfg.ClockRateWindowSec) * time.Second
	var (
		limiter    service.ClockRateLimiter
		tokenStore service.RefreshTokenStore
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			limiter = service.NewRedisClockRateLimiter(redisClient, clockWindow, cfg.ClockRateMax)
			tokenStore = service.NewRedisRefreshTokenStore(redisClient)
		}
		cancel()
	}
	if limiter == nil {
		limiter = service.NewClockRateLimiter(clockWindow, cfg.ClockRateMax)
	}

	jwtSvc := service.NewJWTServiceWithStore(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
		tokenStore,
	)

	attendanceSvc := service.NewAttendanceService(logger, sessionRepo)
	userSvc := service.NewUserService(logger, userRepo)

	userHandler := apihttp.NewUserHandler(logger, userSvc, jwtSvc)
	attendanceHandler := apihttp.NewAttendanceHandler(logger, attendanceSvc, limiter)
	router := apihttp.NewRouter(logger, jwtSvc, userHandler, attendanceHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
