package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/storefront-labs/recommendation-engine/internal/database"
	"github.com/storefront-labs/recommendation-engine/internal/handlers"
	"github.com/storefront-labs/recommendation-engine/internal/services"
	"github.com/storefront-labs/recommendation-engine/pkg/helper"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: no .env file loaded: %v\n", err)
	}

	config := helper.LoadConfigFromEnv()

	log, err := newLogger(config.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Pick the store: Neo4j when configured, in-memory otherwise
	var (
		store  database.Store
		health func(context.Context) error
	)
	if config.Neo4j.URI != "" {
		client, err := database.NewNeo4jClient(config.Neo4j)
		if err != nil {
			log.Fatalw("failed to connect to Neo4j", "error", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Close(ctx); err != nil {
				log.Errorw("error closing Neo4j connection", "error", err)
			}
		}()
		log.Infow("connected to Neo4j", "uri", config.Neo4j.URI, "database", config.Neo4j.Database)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		if err := database.EnsureSchema(ctx, client); err != nil {
			cancel()
			log.Fatalw("failed to ensure schema", "error", err)
		}

		if config.ImportDataURL != "" {
			importer := database.NewCSVImporter(client, log)
			if err := importer.ImportAllData(ctx, config.ImportDataURL, config.ImportClearFirst); err != nil {
				cancel()
				log.Fatalw("catalog import failed", "error", err)
			}
			status, err := importer.GetImportStatus(ctx)
			if err != nil {
				cancel()
				log.Fatalw("failed to get import status", "error", err)
			}
			log.Infow("catalog imported", "status", status)
		}
		cancel()

		store = database.NewNeo4jStore(client)
		health = client.Health
	} else {
		log.Warnw("NEO4J_URI not set, using in-memory store")
		store = database.NewMemoryStore()
	}

	// Initialize services and handlers
	recommendationService := services.NewRecommendationService(store, log)
	apiHandler := handlers.NewAPIHandler(recommendationService, health, log)

	// Setup Gin router
	if config.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	apiHandler.SetupRoutes(router)

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	// Create server with graceful shutdown
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.Port),
		Handler: router,
	}

	go func() {
		log.Infow("server starting", "port", config.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Infow("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Infow("server exited properly")
}

func newLogger(env string) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	switch strings.ToLower(env) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
