package config

import (
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort  string
	SessionsDir string
	PublicDir   string
	LogDir      string
	LogLevel    string
}

// Load builds the configuration from the environment. A .env file is read if
// present but is not required.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:  getEnv("PORT", "3000"),
		SessionsDir: getEnv("SESSIONS_DIR", "sessions"),
		PublicDir:   getEnv("PUBLIC_DIR", "public"),
		LogDir:      getEnv("LOG_DIR", "logs"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// EnsureSessionsDir ensures the sessions root directory exists
func (c *Config) EnsureSessionsDir() error {
	return os.MkdirAll(c.SessionsDir, 0755)
}

// GetCorsConfig returns CORS configuration for the application
func (c *Config) GetCorsConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}
	corsConfig.ExposeHeaders = []string{"Content-Length", "Content-Type"}
	corsConfig.AllowCredentials = false
	corsConfig.MaxAge = 12 * time.Hour
	return corsConfig
}
