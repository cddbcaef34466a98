package main

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "allocation-engine/docs"
	"allocation-engine/internal/config"
	"allocation-engine/internal/handler"
	"allocation-engine/internal/middleware"
	"allocation-engine/internal/repository"
	"allocation-engine/internal/service"
	"allocation-engine/pkg/logger"
)

// @title Allocation Workflow API
// @version 1.0
// @description API for reconciling imported payment transactions against member policies and driving the allocation approval workflow

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(cfg.App.LogLevel)
	logger.GetLogger().Info("Starting Allocation Workflow Service")

	db, err := connectDB(cfg.Database)
	if err != nil {
		logger.GetLogger().WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	logger.GetLogger().Info("Database connection established")

	// Repositories
	txRepo := repository.NewTransactionRepository(db)
	policyRepo := repository.NewPolicyRepository(db)
	allocRepo := repository.NewAllocationRepository(db)

	// Services
	reconService := service.NewReconciliationService(txRepo, policyRepo)
	allocService := service.NewAllocationService(allocRepo, txRepo)

	// Handlers
	txHandler := handler.NewTransactionHandler(txRepo, reconService, cfg.App)
	reconHandler := handler.NewReconciliationHandler(reconService, cfg.App)
	allocHandler := handler.NewAllocationHandler(allocService, cfg.App)

	router := setupRouter(txHandler, reconHandler, allocHandler)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.GetLogger().WithField("address", addr).Info("Server starting")

	if err := router.Run(addr); err != nil {
		logger.GetLogger().WithError(err).Fatal("Failed to start server")
	}
}

func connectDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

func setupRouter(
	txHandler *handler.TransactionHandler,
	reconHandler *handler.ReconciliationHandler,
	allocHandler *handler.AllocationHandler,
) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Identity())
	{
		transactions := v1.Group("/transactions")
		{
			transactions.GET("", txHandler.ListTransactions)
			transactions.GET("/unmatched", txHandler.GetUnmatched)
			transactions.POST("/:id/resolution", txHandler.ApplyResolution)
		}

		reconciliation := v1.Group("/reconciliation")
		{
			reconciliation.GET("/comparison", reconHandler.GetComparison)
			reconciliation.POST("/reference-file", reconHandler.UploadReferenceFile)
		}

		allocations := v1.Group("/allocations")
		{
			allocations.GET("", allocHandler.ListAllocations)
			allocations.POST("", allocHandler.CreateAllocation)
			allocations.GET("/:id", allocHandler.GetAllocation)
			allocations.POST("/:id/transition", allocHandler.Transition)
			allocations.POST("/:id/notes", allocHandler.AddNote)
			allocations.POST("/:id/evidence", allocHandler.AddEvidence)
			allocations.POST("/submit", allocHandler.Submit)
			allocations.POST("/scan-duplicates", allocHandler.ScanDuplicates)
			allocations.POST("/allocate", allocHandler.Allocate)
			allocations.POST("/mark-duplicate", allocHandler.MarkDuplicate)
			allocations.POST("/export", allocHandler.Export)
		}
	}

	return router
}
