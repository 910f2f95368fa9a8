// Command txconfirm tracks Solana transactions until they reach a commitment
// level, expire or fail. Settings are read from TXCONFIRM_* environment variables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gabapcia/txconfirm/internal/config"
	"github.com/gabapcia/txconfirm/internal/confirmation"
	"github.com/gabapcia/txconfirm/internal/handlers/cli"
	"github.com/gabapcia/txconfirm/internal/infra/blockchain/solana"
	"github.com/gabapcia/txconfirm/internal/infra/storage/redis"
	"github.com/gabapcia/txconfirm/internal/pkg/logger"
	"github.com/gabapcia/txconfirm/internal/pkg/telemetry"
	transporthttp "github.com/gabapcia/txconfirm/internal/pkg/transport/http"
	"github.com/gabapcia/txconfirm/internal/pkg/transport/jsonrpc"
	"github.com/gabapcia/txconfirm/internal/txwatch"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(ctx, cfg.Telemetry.ServiceName)
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = shutdown(ctx)
		}()
	}

	if err := logger.Init(logger.WithLevel(cfg.LogLevel)); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	httpClient := transporthttp.NewClient(
		transporthttp.WithTimeout(cfg.Solana.RequestTimeout),
		transporthttp.WithRetryMax(cfg.Solana.RetryMax),
		transporthttp.WithRetryWaitMin(cfg.Solana.RetryWaitMin),
		transporthttp.WithRetryWaitMax(cfg.Solana.RetryWaitMax),
	)
	chain := solana.NewClient(jsonrpc.NewClient(httpClient, cfg.Solana.RPCEndpoint))

	tracker := confirmation.New(chain,
		confirmation.WithPollInterval(cfg.Tracking.PollInterval),
		confirmation.WithMaxConsecutiveFailures(cfg.Tracking.MaxConsecutiveFailures),
	)

	opts := []txwatch.Option{
		txwatch.WithBlockhashSource(chain),
		txwatch.WithSubmitter(chain),
		txwatch.WithDefaultCommitment(cfg.Tracking.TargetCommitment()),
		txwatch.WithDefaultMaxAttempts(cfg.Tracking.MaxAttempts),
		txwatch.WithMaxProcessingTime(cfg.Tracking.MaxProcessingTime),
		txwatch.WithConcurrency(cfg.Tracking.Concurrency),
	}

	if cfg.Redis.Enabled {
		store, err := redis.NewClient(ctx, cfg.Redis.Addr,
			redis.WithCredentials(cfg.Redis.Username, cfg.Redis.Password),
			redis.WithDB(cfg.Redis.DB),
			redis.WithOutcomeTTL(cfg.Redis.OutcomeTTL),
		)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer store.Close()

		opts = append(opts, txwatch.WithOutcomeStorage(store), txwatch.WithClaimGuard(store))
	}

	return cli.Run(ctx, txwatch.New(tracker, opts...))
}
