package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoPolymarket/swapgate/internal/chain"
	"github.com/GoPolymarket/swapgate/internal/config"
	"github.com/GoPolymarket/swapgate/internal/feed"
	"github.com/GoPolymarket/swapgate/internal/handler"
	"github.com/GoPolymarket/swapgate/internal/middleware"
	"github.com/GoPolymarket/swapgate/internal/pkg/logger"
	"github.com/GoPolymarket/swapgate/internal/repository"
	"github.com/GoPolymarket/swapgate/internal/service"
	"github.com/GoPolymarket/swapgate/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)

	// 2. Chains
	registry, err := chain.LoadRegistry(cfg.Chains)
	if err != nil {
		log.Fatalf("Failed to load chains: %v", err)
	}
	defer registry.Close()
	codec := registry.Codec()

	// 3. Persistence (Redis > Memory, Postgres > ring buffer only)
	var (
		redisClient *repository.RedisClient
		processed   service.ProcessedStore
		priceCache  *repository.RedisPriceCache
	)
	processedTTL := time.Duration(cfg.Redis.ProcessedTTLSeconds) * time.Second
	if cfg.Redis.Addr != "" {
		redisClient, err = repository.NewRedisClient(cfg)
		if err == nil {
			logger.Info("✅ Connected to Redis")
			processed = repository.NewRedisProcessedStore(redisClient, processedTTL)
			priceCache = repository.NewRedisPriceCache(redisClient, time.Duration(cfg.Redis.PriceMaxAgeSeconds)*time.Second)
		} else {
			logger.Error("⚠️ Failed to connect to Redis, falling back to memory", "error", err)
		}
	}
	if processed == nil {
		processed = repository.NewMemoryProcessedStore(processedTTL)
	}

	var decisionRepo service.DecisionRepo
	if cfg.Database.DSN != "" {
		db, err := repository.NewDB(cfg)
		if err == nil {
			decisionRepo, err = repository.NewPostgresDecisionRepo(db)
		}
		if err == nil {
			logger.Info("✅ Connected to PostgreSQL")
		} else {
			logger.Error("⚠️ Failed to connect to DB, decisions will be kept in memory only", "error", err)
			decisionRepo = nil
		}
	}

	// 4. Admission
	staticPrices, err := service.NewStaticPrices(codec, cfg.Prices)
	if err != nil {
		log.Fatalf("Failed to load static prices: %v", err)
	}
	var prices *service.PriceService
	if priceCache != nil {
		prices = service.NewPriceService(priceCache, staticPrices)
	} else {
		prices = service.NewPriceService(staticPrices)
	}

	slippage, err := service.LoadSlippageResolver(codec, cfg.Slippage)
	if err != nil {
		log.Fatalf("Failed to load slippage overrides: %v", err)
	}

	validators, err := validator.FromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to build validators: %v", err)
	}

	ceiling := decimal.NullDecimal{}
	if cfg.Budget.MaxUnconfirmedUSD != nil {
		ceiling = decimal.NewNullDecimal(decimal.NewFromFloat(*cfg.Budget.MaxUnconfirmedUSD))
	}
	ledger := service.NewBudgetLedger(ceiling, logger.Get())

	decisionLog := service.NewDecisionLog(cfg.Admission.DecisionBuffer, decisionRepo)

	controller, err := service.NewAdmissionController(service.AdmissionOptions{
		Global:      validators.Global,
		Src:         validators.Src,
		Dst:         validators.Dst,
		Providers:   registry,
		Prices:      prices,
		Ledger:      ledger,
		Slippage:    slippage,
		Processed:   processed,
		Decisions:   decisionLog,
		Timeout:     time.Duration(cfg.Admission.ValidatorTimeoutMs) * time.Millisecond,
		Concurrency: cfg.Admission.BatchConcurrency,
		Logger:      logger.Get(),
	})
	if err != nil {
		log.Fatalf("Failed to initialize admission controller: %v", err)
	}

	// Order feed
	var feedSvc *feed.Service
	if cfg.Feed.URL != "" {
		feedSvc = feed.NewService(cfg.Feed.URL, registry.Chains(), codec, controller, cfg.Admission.BatchConcurrency)
		feedSvc.Start()
	}

	// 5. Handlers & Router
	orderHandler := handler.NewOrderHandler(controller, codec)
	budgetHandler := handler.NewBudgetHandler(controller)
	decisionHandler := handler.NewDecisionHandler(decisionLog)
	var priceHandler *handler.PriceHandler
	if priceCache != nil {
		priceHandler = handler.NewPriceHandler(priceCache, codec)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "swapgate"})
	})
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.Group("/v1")
	v1.Use(middleware.RateLimitMiddleware(cfg.RateLimit))
	v1.Use(middleware.ReadOnlyMiddleware(cfg.Server.ReadOnly))
	{
		v1.POST("/orders/evaluate", orderHandler.Evaluate)
		v1.POST("/orders/evaluate/batch", orderHandler.EvaluateBatch)
		v1.GET("/budget", budgetHandler.Snapshot)
		v1.DELETE("/budget/:id", middleware.AdminMiddleware(cfg.Auth), budgetHandler.Release)
		v1.GET("/slippage", budgetHandler.Slippage)
		v1.GET("/decisions", decisionHandler.List)
		if priceHandler != nil {
			v1.PUT("/prices", middleware.AdminMiddleware(cfg.Auth), priceHandler.Set)
		}
	}

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("🚀 SwapGate started", "port", cfg.Server.Port, "chains", len(cfg.Chains))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if feedSvc != nil {
		feedSvc.Stop()
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	decisionLog.Close()
	if redisClient != nil {
		_ = redisClient.Close()
	}

	logger.Info("Server exiting")
}
