package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	AppId       string

	PostgresURI string
	MongoURI    string
	MongoDBName string

	// Base URL of the map server that owns the layer ACL, e.g.
	// https://maps.example.org/geoserver
	GeoserverURL string

	// Service account used when listing layers on behalf of a user.
	GeoserverUser  string
	GeoserverRoles string

	// SkipAuth injects a superuser identity; development only.
	SkipAuth bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		AppId:          getEnv("APP_ID", "go-reports"),
		PostgresURI:    getEnv("POSTGRES_URI", "postgres://localhost:5432/go_reports?sslmode=disable"),
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:    getEnv("MONGO_DB_NAME", "go-reports"),
		GeoserverURL:   getEnv("GEOSERVER_URL", "http://localhost:8600/geoserver"),
		GeoserverUser:  getEnv("GEOSERVER_USER", "geoserver_privileged_user"),
		GeoserverRoles: getEnv("GEOSERVER_ROLES", "ROLE_ADMINISTRATOR"),
		SkipAuth:       getEnv("SKIP_AUTH", "false") == "true",
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
