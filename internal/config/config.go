package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"guess_dapp/internal/chain"
)

type Config struct {
	AppPort       string
	LogLevel      string
	LogJSON       bool
	AllowedOrigin string
	JWTSecret     string

	// Chain
	RPCURL          string
	ChainID         *big.Int // nil: ask the node
	ContractAddress string
	ContractABI     chain.Variant
	ClaimEnabled    bool
	ReceiptPoll     time.Duration

	// Wallet, keystore wins over a raw key
	WalletKeystore   string
	WalletPrivateKey string

	// Redis (optional, rate limiting)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	APIRateLimit  int
	APIRateWindow time.Duration
}

// Load reads configuration from the environment and an optional .env file
func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []error
	required := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			errs = append(errs, fmt.Errorf("%s is not set", key))
		}
		return v
	}
	// floor is the smallest accepted value
	intEnv := func(key string, def, floor int) int {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < floor {
			errs = append(errs, fmt.Errorf("%s: invalid value %q", key, v))
			return def
		}
		return n
	}

	cfg := &Config{
		AppPort:          getEnv("APP_PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogJSON:          os.Getenv("LOG_JSON") == "true",
		AllowedOrigin:    os.Getenv("ALLOWED_ORIGIN"),
		JWTSecret:        required("JWT_SECRET"),
		RPCURL:           required("RPC_URL"),
		ContractAddress:  required("CONTRACT_ADDRESS"),
		WalletKeystore:   os.Getenv("WALLET_KEYSTORE"),
		WalletPrivateKey: os.Getenv("WALLET_PRIVATE_KEY"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          intEnv("REDIS_DB", 0, 0),
		APIRateLimit:     intEnv("API_RATE_LIMIT", 60, 1),
		APIRateWindow:    time.Duration(intEnv("API_RATE_WINDOW_SECONDS", 60, 1)) * time.Second,
		ReceiptPoll:      time.Duration(intEnv("RECEIPT_POLL_INTERVAL_MS", int(chain.DefaultPollInterval/time.Millisecond), 1)) * time.Millisecond,
	}

	variant, err := chain.ParseVariant(getEnv("CONTRACT_ABI", string(chain.VariantBasic)))
	if err != nil {
		errs = append(errs, err)
	}
	cfg.ContractABI = variant

	// the claim action follows the abi unless overridden
	cfg.ClaimEnabled = variant == chain.VariantClaim
	if v := os.Getenv("CLAIM_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("CLAIM_ENABLED: %w", err))
		}
		cfg.ClaimEnabled = b
	}

	if v := os.Getenv("CHAIN_ID"); v != "" {
		id, ok := new(big.Int).SetString(v, 10)
		if !ok || id.Sign() <= 0 {
			errs = append(errs, fmt.Errorf("CHAIN_ID: invalid value %q", v))
		}
		cfg.ChainID = id
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
