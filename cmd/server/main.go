// Command server runs the chatroom API.
//
// It wires the SQLite store, Redis-backed queue/gate/cache, Stripe client,
// and the Gin router, then serves HTTP with graceful shutdown. The assistant
// reply worker runs in the same process by default; deployments that scale
// workers independently run cmd/worker instead and start this binary with
// WORKER_EMBEDDED=false.
//
// @title       Chatroom Backend API
// @version     1.0
// @description Chat backend with asynchronous AI replies, daily allowances, and tiered subscriptions.
// @BasePath    /api/v1
//
// @securityDefinitions.apikey BearerAuth
// @in   header
// @name Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	stripeclient "github.com/stripe/stripe-go/v82/client"

	"chatroom-backend/internal/ai"
	"chatroom-backend/internal/cache"
	"chatroom-backend/internal/config"
	httpapi "chatroom-backend/internal/http"
	"chatroom-backend/internal/observability"
	"chatroom-backend/internal/queue"
	"chatroom-backend/internal/ratelimit"
	"chatroom-backend/internal/repo"
	"chatroom-backend/internal/services"
	"chatroom-backend/internal/sysutil"
	"chatroom-backend/internal/worker"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		if shutdownOTel != nil {
			_ = shutdownOTel(context.Background())
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable")
	}

	q := queue.NewRedisQueue(rdb, queue.RedisQueueOptions{
		Visibility:  cfg.Queue.VisibilityTimeout,
		MaxAttempts: cfg.Queue.MaxAttempts,
		Block:       cfg.Queue.DequeueBlock,
	})
	defer q.Close()

	gate := ratelimit.NewRedisGate(rdb, "ratelimit", cfg.DailyMessageLimit)
	listingCache := cache.NewRedisCache(rdb, cfg.CacheTTL)

	sc := &stripeclient.API{}
	sc.Init(cfg.Stripe.SecretKey, nil)

	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:     db,
		Queue:  q,
		Gate:   gate,
		Cache:  listingCache,
		OTP:    &services.RedisOTPStore{Client: rdb},
		Stripe: sc,
	}, cfg)

	// Embedded reply worker. Disable when running cmd/worker separately.
	embedded := os.Getenv("WORKER_EMBEDDED")
	if embedded == "" || sysutil.IsTruthy(embedded) {
		w := &worker.Worker{
			DB:          db,
			Queue:       q,
			Provider:    ai.NewOpenAIProvider(cfg.AI.APIKey, cfg.AI.Model, cfg.AI.Timeout, cfg.AI.MaxTokens),
			Cache:       listingCache,
			Concurrency: cfg.Queue.Concurrency,
		}
		go w.Run(ctx)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
}
