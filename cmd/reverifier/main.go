package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agentstore-payments/config"
	"agentstore-payments/internal/adapter/chain"
	pgStorage "agentstore-payments/internal/adapter/storage/postgres"
	redisStorage "agentstore-payments/internal/adapter/storage/redis"
	"agentstore-payments/internal/service"
	"agentstore-payments/pkg/logger"

	"github.com/rs/zerolog"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("reverifier", cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Dur("interval", cfg.Reverifier.Interval).
		Int("batch_size", cfg.Reverifier.BatchSize).
		Msg("Starting reverifier sweep")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize chain RPC client
	chainClient, err := chain.Dial(ctx, cfg.Chain.RPCURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to chain RPC")
	}
	log.Info().Int64("chain_id", cfg.Chain.ChainID).Msg("Chain RPC connected")

	entitlementRepo := pgStorage.NewEntitlementRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	entitlementCache := redisStorage.NewEntitlementCache(rdb)
	verifier := chain.NewVerifier(chainClient, cfg.Chain.MinConfirmations, cfg.Chain.RequestTimeout, log)

	reverifySvc := service.NewReverifyService(
		entitlementRepo,
		txRepo,
		verifier,
		entitlementCache,
		cfg.Reverifier.BatchSize,
		cfg.Chain.MinConfirmations,
		log,
	)

	// Run one sweep immediately, then on every tick until shutdown.
	runSweep(ctx, reverifySvc, log)

	ticker := time.NewTicker(cfg.Reverifier.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Reverifier shutting down")
			return
		case <-ticker.C:
			runSweep(ctx, reverifySvc, log)
		}
	}
}

func runSweep(ctx context.Context, svc *service.ReverifyServiceImpl, log zerolog.Logger) {
	stats, err := svc.Sweep(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Sweep failed")
		return
	}
	log.Info().
		Int("checked", stats.Checked).
		Int("promoted", stats.Promoted).
		Int("revoked", stats.Revoked).
		Int("expired", stats.Expired).
		Msg("Sweep completed")
}
