package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"taskfi_backend/internal/config"
	"taskfi_backend/internal/db"
	httpServer "taskfi_backend/internal/http"
	"taskfi_backend/internal/http/handlers"
	"taskfi_backend/internal/http/middleware"
	"taskfi_backend/internal/logger"
	"taskfi_backend/internal/oracle"
	"taskfi_backend/internal/repository"
	"taskfi_backend/internal/service"
	"taskfi_backend/internal/wallet"
	"taskfi_backend/internal/ws"
)

var version = "dev"

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_JSON") == "true")

	cfg := config.Load()
	service.InitJWT()

	dbPool := db.Connect(cfg.DatabaseURL)
	defer dbPool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gateway, err := wallet.NewTokenGateway(ctx, cfg.RPCURL, cfg.TokenAddress, cfg.TreasuryKeyHex)
	if err != nil {
		logger.Fatal("chain gateway init failed", "err", err)
	}

	userRepo := repository.NewUserRepository(dbPool)
	taskRepo := repository.NewTaskRepository(dbPool)
	rewardRepo := repository.NewRewardRepository(dbPool)
	quizRepo := repository.NewQuizRepository(dbPool)

	hub := ws.NewHub()
	ledger := service.NewLedger(userRepo, rewardRepo, gateway, wallet.PersonalSignVerifier{}, hub)
	orc := oracle.NewClient(cfg.OracleURL, cfg.OracleAPIKey)
	taskSvc := service.NewTaskService(taskRepo, quizRepo, userRepo, ledger, orc, hub)
	balanceSvc := service.NewBalanceService(gateway, rdb)
	leaderboardSvc := service.NewLeaderboardService(userRepo, rdb)

	go balanceSvc.RunRefresher(ctx)

	h := &handlers.Handler{
		Ledger:      ledger,
		Tasks:       taskSvc,
		Balance:     balanceSvc,
		Leaderboard: leaderboardSvc,
		Users:       userRepo,
		Rewards:     rewardRepo,
		Quizzes:     quizRepo,
		Challenges:  wallet.NewChallengeStore(rdb),
		Hub:         hub,
	}
	health := handlers.NewHealthHandler(dbPool, rdb, version)

	r := gin.Default()

	// CORS for the browser frontend
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	httpServer.RegisterRoutes(r, h, health)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "err", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", "err", err)
	}

	logger.Info("server exited")
}
