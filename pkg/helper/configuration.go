package helper

import (
	"os"

	"github.com/storefront-labs/recommendation-engine/internal/database"
)

// AppConfig holds the service configuration loaded from the environment.
// An empty Neo4j URI selects the in-memory store (dev mode).
type AppConfig struct {
	Neo4j            database.Config
	Port             string
	Env              string // "dev" or "prod"
	ImportDataURL    string
	ImportClearFirst bool
}

// LoadConfigFromEnv loads the service configuration from environment
// variables
func LoadConfigFromEnv() AppConfig {
	return AppConfig{
		Neo4j: database.Config{
			URI:      getEnvOrDefault("NEO4J_URI", ""),
			Username: getEnvOrDefault("NEO4J_USERNAME", "neo4j"),
			Password: getEnvOrDefault("NEO4J_PASSWORD", ""),
			Database: getEnvOrDefault("NEO4J_DATABASE", "neo4j"),
		},
		Port:             getEnvOrDefault("APP_PORT", "8080"),
		Env:              getEnvOrDefault("APP_ENV", "dev"),
		ImportDataURL:    getEnvOrDefault("IMPORT_DATA_URL", ""),
		ImportClearFirst: getEnvOrDefault("IMPORT_CLEAR_FIRST", "") == "true",
	}
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
