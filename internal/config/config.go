package config

import (
	"os"
	"strconv"

	"taskfi_backend/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	JWTSecret   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Chain settings
	RPCURL          string
	TokenAddress    string
	TreasuryKeyHex  string

	// Verification oracle
	OracleURL    string
	OracleAPIKey string
}

// Load reads the environment, .env included. Missing required settings are
// fatal at startup rather than at first use.
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	rpcURL := os.Getenv("CHAIN_RPC_URL")
	if rpcURL == "" {
		logger.Fatal("CHAIN_RPC_URL is not set")
	}

	tokenAddress := os.Getenv("TOKEN_ADDRESS")
	if tokenAddress == "" {
		logger.Fatal("TOKEN_ADDRESS is not set")
	}

	treasuryKey := os.Getenv("TREASURY_PRIVATE_KEY")
	if treasuryKey == "" {
		logger.Fatal("TREASURY_PRIVATE_KEY is not set")
	}

	oracleURL := os.Getenv("ORACLE_URL")
	if oracleURL == "" {
		logger.Fatal("ORACLE_URL is not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	return &Config{
		AppPort:        port,
		DatabaseURL:    dbURL,
		JWTSecret:      jwtSecret,
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        redisDB,
		RPCURL:         rpcURL,
		TokenAddress:   tokenAddress,
		TreasuryKeyHex: treasuryKey,
		OracleURL:      oracleURL,
		OracleAPIKey:   os.Getenv("ORACLE_API_KEY"),
	}
}
