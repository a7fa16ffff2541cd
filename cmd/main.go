package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nimrid/Corre/internal/adapters/jupiter"
	"github.com/nimrid/Corre/internal/adapters/lulo"
	"github.com/nimrid/Corre/internal/adapters/pajcash"
	"github.com/nimrid/Corre/internal/adapters/solanarpc"
	"github.com/nimrid/Corre/internal/api/handlers"
	"github.com/nimrid/Corre/internal/api/routes"
	"github.com/nimrid/Corre/internal/domain/entities"
	"github.com/nimrid/Corre/internal/domain/services/balance"
	"github.com/nimrid/Corre/internal/domain/services/billing"
	"github.com/nimrid/Corre/internal/domain/services/connectivity"
	"github.com/nimrid/Corre/internal/domain/services/offramp"
	"github.com/nimrid/Corre/internal/domain/services/orchestrator"
	"github.com/nimrid/Corre/internal/domain/services/wallet"
	"github.com/nimrid/Corre/internal/infrastructure/cache"
	"github.com/nimrid/Corre/internal/infrastructure/config"
	"github.com/nimrid/Corre/internal/workers/balancerefresh"
	"github.com/nimrid/Corre/pkg/graceful"
	"github.com/nimrid/Corre/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New(cfg.LogLevel, cfg.Environment)
	defer log.Sync()

	// Redis-backed store
	redisClient, err := cache.NewRedisClient(&cfg.Redis, log.Zap())
	if err != nil {
		log.Fatal("Failed to connect to Redis", "error", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Warn("Failed to close Redis connection", "error", err)
		}
	}()
	store := cache.NewStore(redisClient, log.Zap())

	// Signing wallet
	w, err := loadWallet()
	if err != nil {
		log.Fatal("Failed to load wallet", "error", err)
	}
	log.Info("Wallet loaded", "address", w.Address().String())

	// Adapters
	rpcClient := solanarpc.NewClient(solanarpc.Config{
		RPCURL:              cfg.Solana.RPCURL,
		Commitment:          cfg.Solana.Commitment,
		TokenProgramID:      cfg.Solana.TokenProgramID,
		Timeout:             time.Duration(cfg.Solana.Timeout) * time.Second,
		ConfirmPollInterval: time.Duration(cfg.Solana.ConfirmPollInterval) * time.Second,
		ConfirmMaxAttempts:  cfg.Solana.ConfirmMaxAttempts,
	}, log)

	luloClient := lulo.NewClient(lulo.Config{
		BaseURL: cfg.Lulo.BaseURL,
		APIKey:  cfg.Lulo.APIKey,
		Timeout: time.Duration(cfg.Lulo.Timeout) * time.Second,
	}, log)

	jupiterClient := jupiter.NewClient(jupiter.Config{
		BaseURL:     cfg.Jupiter.BaseURL,
		SlippageBps: cfg.Jupiter.SlippageBps,
		Timeout:     time.Duration(cfg.Jupiter.Timeout) * time.Second,
	}, log)

	pajClient := pajcash.NewClient(pajcash.Config{
		BaseURL: cfg.Paj.BaseURL,
		Timeout: time.Duration(cfg.Paj.Timeout) * time.Second,
	}, log)

	// Services
	monitor := connectivity.NewMonitor(rpcClient,
		time.Duration(cfg.Refresh.ConnectivityInterval)*time.Second, log)

	tokens := make(map[entities.Asset]string, len(cfg.Solana.Tokens))
	for name, token := range cfg.Solana.Tokens {
		asset := entities.Asset(normalizeAsset(name))
		if asset.IsValid() {
			tokens[asset] = token.Mint
		}
	}

	balances := balance.NewService(rpcClient, luloClient, store, monitor, tokens,
		time.Duration(cfg.Refresh.PoolDataTTL)*time.Second, log)

	offrampSvc := offramp.NewService(pajClient, store, cfg.Paj.SessionTTLDuration(), log)
	billingSvc := billing.NewService(store, log)

	engine := orchestrator.New(rpcClient, w, balances, log)
	operations := orchestrator.NewSources(engine, luloClient, jupiterClient, offrampSvc, rpcClient)

	// Workers
	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	monitor.Start(rootCtx)

	refresher := balancerefresh.NewWorker(balances, monitor, balancerefresh.Config{
		OnChainInterval: time.Duration(cfg.Refresh.OnChainInterval) * time.Second,
		PoolSchedule:    cfg.Refresh.PoolRefreshSchedule,
	}, log)
	if err := refresher.Start(rootCtx); err != nil {
		log.Fatal("Failed to start balance refresh worker", "error", err)
	}
	refresher.Track(rootCtx, w.Address().String())

	// HTTP server
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	h := handlers.New(w, balances, operations, engine, offrampSvc, billingSvc,
		refresher, store, monitor, log)
	routes.Setup(router, h, cfg, log)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	shutdown := graceful.NewShutdownManager(server, log)
	shutdown.Register(refresher)
	shutdown.Register(monitor)

	go func() {
		log.Info("Server starting", "addr", server.Addr, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", "error", err)
		}
	}()

	shutdown.WaitForShutdown()
}

// loadWallet reads the signing key from the environment.
func loadWallet() (wallet.Wallet, error) {
	key := os.Getenv("WALLET_PRIVATE_KEY")
	if key == "" {
		return nil, fmt.Errorf("WALLET_PRIVATE_KEY is not set")
	}
	return wallet.NewLocalWallet(key)
}

// normalizeAsset maps a config token name to its asset symbol.
func normalizeAsset(name string) string {
	switch name {
	case "usdc", "USDC":
		return "USDC"
	case "usdt", "USDT":
		return "USDT"
	}
	return name
}
