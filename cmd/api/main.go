package main

import (
	"context"
	"log"

	"cloud.google.com/go/firestore"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"novaland/internal/adapter/api"
	"novaland/internal/adapter/api/handler"
	apimiddleware "novaland/internal/adapter/api/middleware"
	"novaland/internal/adapter/api/router"
	"novaland/internal/adapter/repository"
	"novaland/internal/infrastructure/ledger"
	"novaland/internal/infrastructure/ratelimit"
	"novaland/internal/infrastructure/websocket"
	"novaland/internal/usecase"
	"novaland/pkg/config"
	"novaland/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirestoreProject)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}
	defer firestoreClient.Close()

	// Probe the chain once for its ID so the signer binds to the right
	// network.
	probe, err := ethclient.Dial(cfg.ChainRPCURL)
	if err != nil {
		log.Fatalf("Failed to connect to chain RPC: %v", err)
	}
	chainID, err := probe.ChainID(ctx)
	probe.Close()
	if err != nil {
		log.Fatalf("Failed to read chain id: %v", err)
	}

	signer, err := ledger.NewKeySigner(cfg.SettlementKey, chainID)
	if err != nil {
		log.Fatalf("Failed to load settlement key: %v", err)
	}

	ethClient, err := ledger.NewEthClient(cfg.ChainRPCURL, cfg.ContractAddress, signer)
	if err != nil {
		log.Fatalf("Failed to initialize ledger client: %v", err)
	}

	propertyRepo := ledger.NewPropertyCatalog(ethClient)
	negotiationRepo := repository.NewFirestoreNegotiationRepository(firestoreClient)

	feed := websocket.NewFeed()

	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine(ctx)

	threadUseCase := usecase.NewThreadUseCase(negotiationRepo, propertyRepo, feed, rateLimiter)
	settlementUseCase := usecase.NewSettlementUseCase(negotiationRepo, propertyRepo, ethClient, feed, cfg.SettlementTimeout)
	offerUseCase := usecase.NewOfferUseCase(negotiationRepo, propertyRepo, settlementUseCase, feed, rateLimiter)
	reconciliationUseCase := usecase.NewReconciliationUseCase(negotiationRepo, ethClient, feed)

	reconciliationUseCase.Start(ctx, cfg.ReconcileInterval)

	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	walletMiddleware := apimiddleware.NewWalletMiddleware()

	threadHandler := handler.NewThreadHandler(threadUseCase)
	offerHandler := handler.NewOfferHandler(offerUseCase)
	wsHandler := handler.NewWebSocketHandler(feed)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	router.Setup(e, threadHandler, offerHandler, wsHandler, walletMiddleware)

	log.Printf("Starting server on port %s...", cfg.ServerPort)
	if err := e.Start(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
