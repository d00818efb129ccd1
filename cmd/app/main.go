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

	"guess_dapp/internal/chain"
	"guess_dapp/internal/config"
	"guess_dapp/internal/game"
	httpServer "guess_dapp/internal/http"
	"guess_dapp/internal/http/handlers"
	"guess_dapp/internal/http/middleware"
	"guess_dapp/internal/logger"
	"guess_dapp/internal/service"
	"guess_dapp/internal/wallet"
	"guess_dapp/internal/ws"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", logger.Err(err))
	}
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT(cfg.JWTSecret)

	contract, err := chain.LoadContract(cfg.ContractAddress, cfg.ContractABI)
	if err != nil {
		logger.Fatal("load contract", logger.Err(err))
	}

	dialCtx, cancelDial := context.WithTimeout(context.Background(), 15*time.Second)
	client, eth, err := chain.Dial(dialCtx, cfg.RPCURL, contract, cfg.ChainID, cfg.ReceiptPoll)
	cancelDial()
	if err != nil {
		logger.Fatal("dial rpc", "url", cfg.RPCURL, logger.Err(err))
	}
	defer eth.Close()

	w := wallet.New(keySource(cfg))

	ctrl, err := game.New(game.Config{
		Contract:     contract,
		Capabilities: game.Capabilities{Claim: cfg.ClaimEnabled},
	}, client, w, nil, logger.Component("game"))
	if err != nil {
		logger.Fatal("create controller", logger.Err(err))
	}

	hub := ws.NewHub()
	ctrl.Listen(hub.Publish)

	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer middleware.CloseRedis()

	checks := []handlers.Check{{Name: "chain", Ping: client.Ping}}
	if rdb := middleware.RedisClient(); rdb != nil {
		checks = append(checks, handlers.Check{
			Name:     "redis",
			Ping:     func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			Optional: true,
		})
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	httpServer.RegisterRoutes(r, handlers.NewHandler(ctrl, w, client.ChainID()), hub, httpServer.Options{
		Version:       version,
		AllowedOrigin: cfg.AllowedOrigin,
		RateLimit:     cfg.APIRateLimit,
		RateWindow:    cfg.APIRateWindow,
		Checks:        checks,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started",
			"port", cfg.AppPort,
			"contract", contract.Address.Hex(),
			"abi", contract.Variant,
			"chain_id", client.ChainID().String(),
			"claim", cfg.ClaimEnabled,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", logger.Err(err))
		}
	}()

	// first read, like a page load
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := ctrl.FetchSecret(ctx); err != nil {
			logger.Warn("initial fetch failed", logger.Err(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", logger.Err(err))
	}
	hub.Close()
	ctrl.Close()

	logger.Info("server exited")
}

// keySource picks the signing key, an encrypted keystore wins over a raw key
func keySource(cfg *config.Config) wallet.KeySource {
	switch {
	case cfg.WalletKeystore != "":
		return wallet.KeystoreFile{Path: cfg.WalletKeystore}
	case cfg.WalletPrivateKey != "":
		return wallet.RawKey{Hex: cfg.WalletPrivateKey}
	default:
		logger.Warn("no wallet key configured, connect will fail")
		return nil
	}
}
