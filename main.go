package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/production-tracker-api/config"
	"github.com/kendall-kelly/production-tracker-api/middleware"
	"github.com/kendall-kelly/production-tracker-api/routes"
	"github.com/kendall-kelly/production-tracker-api/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.InitLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	zap.S().Infow("Starting Production Tracker API server", "env", cfg.GoEnv)

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		zap.S().Fatalw("Failed to connect to database", "error", err)
	}

	// Auto-migrate database models
	db := config.GetDB()
	if err := config.Migrate(db); err != nil {
		zap.S().Fatalw("Failed to migrate database", "error", err)
	}
	zap.S().Info("Database migration completed successfully")

	if cfg.NotificationsEnabled {
		services.InitDispatcher(services.NewDBNotifier(db))
	}

	if cfg.AWSS3Bucket != "" {
		store, err := services.NewS3Service(context.Background(), cfg)
		if err != nil {
			zap.S().Fatalw("Failed to initialize S3", "error", err)
		}
		services.InitImageService(store)
	} else {
		zap.S().Warn("AWS_S3_BUCKET not set, step attachments are disabled")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := setupRouter(cfg, middleware.EnsureValidToken(cfg), middleware.LoadRequester())

	// Start server
	port := ":" + cfg.Port
	zap.S().Infow("Server is running", "addr", "http://localhost"+port)
	if err := router.Run(port); err != nil {
		zap.S().Fatalw("Failed to start server", "error", err)
	}
	services.GetDispatcher().Wait()
}

// setupRouter wires middleware and routes; auth guards every workflow route
func setupRouter(cfg *config.Config, auth ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(ginzap.Ginzap(zap.L(), time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(zap.L(), true))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Database status endpoint
		v1.GET("/database/status", databaseStatus)
	}

	routes.Register(v1, auth...)

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Production Tracker API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()
	if db == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Database connection not initialized",
			},
		})
		return
	}

	// Get the underlying SQL database to check connection
	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	// Ping the database to verify connection
	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	tables, err := db.Migrator().GetTables()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
