package main

import (
	"log"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"storefront-service/internal/config"
	"storefront-service/internal/consumers"
	"storefront-service/internal/database"
	"storefront-service/internal/logger"
	"storefront-service/internal/services"
	"storefront-service/internal/worker"
)

func main() {
	// Load env
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found in ../../.env, trying .env")
		if err := godotenv.Load(".env"); err != nil {
			log.Println("No .env file found, using system env")
		}
	}

	cfg := config.Load()

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	// Connect DB
	database.Connect()
	db := database.DB

	// Asynq client so the settlement service can re-enqueue follow-ups
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisURL})
	defer asynqClient.Close()

	// Services
	walletService := services.NewWalletService(db, zlog)
	activityService := services.NewActivityService(db, nil, zlog)

	peamsubService := services.NewPeamsubService(db, nil, cfg, zlog)
	wepayService := services.NewWepayService(db, nil, cfg, zlog)

	settlementService := services.NewSettlementService(db, walletService, asynqClient, zlog, cfg.SettlementTimeout)
	settlementService.RegisterGateway(services.ProviderPeamsub, peamsubService)
	settlementService.RegisterGateway(services.ProviderWepay, wepayService)

	processor := consumers.NewSettlementProcessor(db, settlementService, activityService, zlog)

	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisURL}

	log.Println("Starting Asynq Worker...")
	worker.StartWorker(redisOpt, processor)
}
