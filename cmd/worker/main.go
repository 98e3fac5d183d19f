// Command worker runs the assistant reply worker on its own.
//
// It consumes reply jobs from the shared Redis queue, calls the AI provider,
// and appends assistant messages to the store. Run as many instances as
// needed; the queue's lease semantics keep each job with a single worker at
// a time.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"chatroom-backend/internal/ai"
	"chatroom-backend/internal/cache"
	"chatroom-backend/internal/config"
	"chatroom-backend/internal/observability"
	"chatroom-backend/internal/queue"
	"chatroom-backend/internal/repo"
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

	w := &worker.Worker{
		DB:          db,
		Queue:       q,
		Provider:    ai.NewOpenAIProvider(cfg.AI.APIKey, cfg.AI.Model, cfg.AI.Timeout, cfg.AI.MaxTokens),
		Cache:       cache.NewRedisCache(rdb, cfg.CacheTTL),
		Concurrency: cfg.Queue.Concurrency,
	}

	log.Info().Int("concurrency", cfg.Queue.Concurrency).Msg("reply worker starting")
	w.Run(ctx)
	log.Info().Msg("reply worker stopped")
}
