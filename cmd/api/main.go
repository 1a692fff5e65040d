package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agentstore-payments/config"
	"agentstore-payments/internal/adapter/chain"
	"agentstore-payments/internal/adapter/facilitator"
	httpHandler "agentstore-payments/internal/adapter/http/handler"
	"agentstore-payments/internal/adapter/pricefeed"
	pgStorage "agentstore-payments/internal/adapter/storage/postgres"
	redisStorage "agentstore-payments/internal/adapter/storage/redis"
	"agentstore-payments/internal/core/ports"
	"agentstore-payments/internal/service"
	"agentstore-payments/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("api", cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting AgentStore Payments")

	ctx := context.Background()

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

	// Initialize repositories
	agentRepo := pgStorage.NewAgentRepo(pool)
	publisherRepo := pgStorage.NewPublisherRepo(pool)
	entitlementRepo := pgStorage.NewEntitlementRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)

	// Initialize Redis stores
	nonceStore := redisStorage.NewNonceStore(rdb)
	entitlementCache := redisStorage.NewEntitlementCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize adapters
	verifier := chain.NewVerifier(chainClient, cfg.Chain.MinConfirmations, cfg.Chain.RequestTimeout, log)
	feed := pricefeed.NewClient(cfg.Oracle.FeedURL, cfg.Oracle.RequestTimeout)

	// Gasless settlement is optional: an empty URL disables the whole path.
	var facilitatorClient ports.FacilitatorClient
	if cfg.Facilitator.URL != "" {
		facilitatorClient = facilitator.NewHTTPClient(cfg.Facilitator.URL, cfg.Facilitator.RequestTimeout)
		log.Info().Str("url", cfg.Facilitator.URL).Msg("Facilitator configured")
	} else {
		log.Warn().Msg("No facilitator URL configured, gasless purchases disabled")
	}

	// Initialize core services
	oracle := service.NewOracleService(feed, cfg.Oracle.CacheTTL, cfg.Oracle.FallbackPrice, log)
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Initialize business services
	purchaseSvc := service.NewPurchaseService(
		agentRepo,
		publisherRepo,
		entitlementRepo,
		txRepo,
		oracle,
		verifier,
		service.PurchaseConfig{
			PlatformFeePercent: cfg.Platform.FeePercent,
			PlatformAddress:    cfg.Platform.PayoutAddress,
			SlippageBps:        cfg.Chain.SlippageBps,
			VerifyDeadline:     cfg.Reverifier.DeadlineWindow,
		},
		log,
	)
	settlementSvc := service.NewSettlementService(
		agentRepo,
		publisherRepo,
		entitlementRepo,
		txRepo,
		facilitatorClient,
		nonceStore,
		service.SettlementConfig{
			PlatformFeePercent: cfg.Platform.FeePercent,
			PlatformAddress:    cfg.Platform.PayoutAddress,
			Network:            cfg.Facilitator.Network,
			Currency:           cfg.Facilitator.Currency,
			VerifyDeadline:     cfg.Reverifier.DeadlineWindow,
		},
		log,
	)
	entitlementSvc := service.NewEntitlementService(entitlementRepo, entitlementCache, tokenSvc, cfg.JWT.Expiry, log)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		PurchaseSvc:    purchaseSvc,
		SettlementSvc:  settlementSvc,
		EntitlementSvc: entitlementSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
