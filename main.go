package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"storefront-service/internal/cache"
	"storefront-service/internal/config"
	"storefront-service/internal/database"
	"storefront-service/internal/handlers"
	"storefront-service/internal/logger"
	"storefront-service/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	if mode := os.Getenv("GIN_MODE"); mode != "" {
		gin.SetMode(mode)
	}

	cfg := config.Load()

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	// Initialize Database
	database.Connect()
	database.Migrate()
	db := database.DB

	// Redis: catalog cache, idempotency guard, purchase locks
	redisCache := cache.New(cfg.RedisURL)
	defer redisCache.Close()

	// Asynq client for queued work
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisURL})
	defer asynqClient.Close()

	// Core services
	walletService := services.NewWalletService(db, zlog)
	pricingService := services.NewPricingService(db, zlog)
	activityService := services.NewActivityService(db, asynqClient, zlog)
	accountService := services.NewAccountService(db, walletService, activityService, zlog)

	// Provider gateways
	peamsubService := services.NewPeamsubService(db, redisCache, cfg, zlog)
	wepayService := services.NewWepayService(db, redisCache, cfg, zlog)
	slip2goService := services.NewSlip2GoService(cfg, zlog)

	settlementService := services.NewSettlementService(db, walletService, asynqClient, zlog, cfg.SettlementTimeout)
	settlementService.RegisterGateway(services.ProviderPeamsub, peamsubService)
	settlementService.RegisterGateway(services.ProviderWepay, wepayService)

	purchaseService := services.NewPurchaseService(db, redisCache, walletService, pricingService, settlementService, activityService, zlog)
	purchaseService.RegisterGateway(services.ProviderPeamsub, peamsubService)
	purchaseService.RegisterGateway(services.ProviderWepay, wepayService)

	topupService := services.NewTopupService(db, walletService, slip2goService, activityService, zlog)

	// Handlers
	storefront := &handlers.StorefrontHandler{
		Peamsub:  peamsubService,
		Wepay:    wepayService,
		Purchase: purchaseService,
		Wallet:   walletService,
		Topup:    topupService,
		Account:  accountService,
		Activity: activityService,
	}
	admin := &handlers.AdminHandler{
		Pricing:    pricingService,
		Account:    accountService,
		Topup:      topupService,
		Settlement: settlementService,
		Wepay:      wepayService,
	}

	// Initialize Gin
	r := gin.Default()

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "Storefront service up",
		})
	})

	api := r.Group("/", handlers.Identity())
	{
		api.POST("/register", storefront.Register)
		api.GET("/catalog/:provider/products", storefront.GetCatalog)
		api.POST("/catalog/:provider/refresh", storefront.RefreshCatalog)
		api.GET("/wallet/balance", storefront.GetBalance)
		api.POST("/purchases", storefront.CreatePurchase)
		api.GET("/purchases", storefront.ListPurchases)
		api.POST("/topups/slip", storefront.SubmitSlipTopup)
		api.GET("/topups", storefront.ListTopups)
		api.GET("/notifications", storefront.ListNotifications)
	}

	adminGroup := r.Group("/admin", handlers.Identity(), handlers.RequireAdmin(db))
	{
		adminGroup.POST("/overrides", admin.SaveOverride)
		adminGroup.GET("/overrides", admin.ListOverrides)
		adminGroup.DELETE("/overrides/:type/:productId", admin.DeleteOverride)
		adminGroup.GET("/users", admin.ListUsers)
		adminGroup.POST("/users/:uid/suspend", admin.SuspendUser)
		adminGroup.POST("/users/:uid/unsuspend", admin.UnsuspendUser)
		adminGroup.POST("/users/:uid/role", admin.SetRole)
		adminGroup.POST("/users/:uid/balance", admin.AdjustBalance)
		adminGroup.POST("/topups/manual", admin.ManualTopup)
		adminGroup.GET("/topups", admin.ListTopups)
		adminGroup.POST("/topups/:id/fail", admin.FailTopup)
		adminGroup.GET("/settlements", admin.ListSettlements)
		adminGroup.POST("/settlements/:reference/reconcile", admin.ReconcileSettlement)
		adminGroup.GET("/provider/balance", admin.ProviderBalance)
	}

	// Start reconciliation scheduler
	settlementService.StartScheduler()

	zlog.Info("HTTP server starting on port " + cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
