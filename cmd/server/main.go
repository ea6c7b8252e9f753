package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"nusapos/config"
	"nusapos/internal/cache"
	"nusapos/internal/database"
	"nusapos/internal/gateway/handlers"
	"nusapos/internal/gateway/middleware"
	"nusapos/internal/services/pos"
	"nusapos/internal/services/promotion"
	"nusapos/internal/store/postgres"
	"nusapos/internal/utils"

	goredis "github.com/go-redis/redis/v8"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.NewConnection(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.MigratePOSDB(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	redisClient, err := config.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	repo := postgres.NewStore(db)
	promoCache := cache.NewRedisPromotionCache(redisClient)
	publisher := pos.NewRedisPublisher(redisClient)

	catalog := promotion.NewCatalog(repo, promoCache)
	resolver := promotion.NewResolver(catalog)
	posService := pos.NewService(repo, publisher, nil, cfg.POS.HoldTTL)

	jwtManager := utils.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	taxRate, err := decimal.NewFromString(cfg.POS.TaxRate)
	if err != nil {
		log.Printf("Invalid POS_TAX_RATE %q, falling back to 10: %v", cfg.POS.TaxRate, err)
		taxRate = decimal.NewFromInt(10)
	}

	authHandler := handlers.NewAuthHTTPHandler(jwtManager, cfg.Auth.APIKey)
	posHandler := handlers.NewPOSHTTPHandler(posService)
	promoHandler := handlers.NewPromotionHTTPHandler(catalog, resolver, taxRate)

	r := gin.Default()

	r.Use(middleware.CORS())
	r.Use(middleware.RateLimit("120-M"))

	// --- Public API Group ---
	public := r.Group("/api/v1")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
		}
	}

	// --- Protected API Group ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth(jwtManager))
	{
		posGroup := protected.Group("/pos")
		{
			posGroup.GET("/products", posHandler.SearchProducts)
			posGroup.GET("/products/barcode/:barcode", posHandler.GetProductByBarcode)
			posGroup.GET("/products/sku/:sku", posHandler.GetProductBySKU)

			posGroup.POST("/transactions", posHandler.CreateTransaction)
			posGroup.GET("/transactions", posHandler.ListTransactions)
			posGroup.GET("/transactions/:id", posHandler.GetTransaction)
			posGroup.GET("/transactions/:id/items", posHandler.GetTransactionItems)
			posGroup.POST("/transactions/:id/items", posHandler.AddTransactionItem)
			posGroup.POST("/transactions/:id/hold", posHandler.HoldTransaction)
			posGroup.POST("/transactions/:id/refunds", posHandler.CreateRefund)
			posGroup.GET("/transactions/:id/refunds", posHandler.ListRefundsByTransaction)

			posGroup.GET("/held-transactions", posHandler.ListHeldTransactions)
			posGroup.POST("/held-transactions/:id/resume", posHandler.ResumeTransaction)
			posGroup.POST("/held-transactions/:id/discard", posHandler.DiscardHeldTransaction)

			posGroup.POST("/refunds/:id/approve", posHandler.ApproveRefund)
			posGroup.POST("/refunds/:id/reject", posHandler.RejectRefund)
			posGroup.POST("/refunds/:id/complete", posHandler.CompleteRefund)
		}

		promotions := protected.Group("/promotions")
		{
			promotions.POST("", promoHandler.CreatePromotion)
			promotions.GET("", promoHandler.ListActivePromotions)
			promotions.GET("/:id/validate", promoHandler.ValidatePromotion)
			promotions.POST("/:id/deactivate", promoHandler.DeactivatePromotion)
			promotions.POST("/check-conflicts", promoHandler.CheckConflicts)
			promotions.POST("/calculate-discount", promoHandler.CalculateDiscount)
		}
	}

	r.GET("/health", healthCheckHandler(db, redisClient))

	port := ":" + cfg.Server.Port
	log.Printf("Starting server on port %s", port)
	if err := r.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func healthCheckHandler(db *gorm.DB, redisClient *goredis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		status := "healthy"
		httpStatus := http.StatusOK
		components := map[string]string{
			"database": "healthy",
			"redis":    "healthy",
		}

		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			components["database"] = "unavailable"
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			components["redis"] = "unavailable"
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}

		c.JSON(httpStatus, gin.H{
			"status":     status,
			"components": components,
			"timestamp":  time.Now(),
		})
	}
}
