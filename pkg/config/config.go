package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port    string
		Env     string
		Timeout time.Duration
		BaseURL string
	}

	// Database configuration (gorm-backed durable store)
	Database struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		MaxConns int
	}

	// Store selects the durable store backend: memory, redis, or postgres
	Store struct {
		Backend string
	}

	// Redis configuration (redis-backed durable store)
	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	// Session lifecycle
	Session struct {
		TTL           time.Duration
		SweepInterval time.Duration
		Retention     time.Duration
	}

	// Message history
	History struct {
		WelcomeMessage string
		MaxMessages    int
	}

	// Widget behavior
	Widget struct {
		AllowedOrigins []string
	}

	// JWT configuration for embed tokens
	JWT struct {
		Secret string
		Expiry time.Duration
	}

	// Security configuration
	Security struct {
		RateLimit      float64
		RateLimitBurst int
		AdminKeyHash   string
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// Service endpoints
	Services struct {
		ChatServiceURL string
		ConfigStoreURL string
	}
}

var (
	instance *Config
	once     sync.Once
)

// New creates a new Config instance with values from environment variables.
// Uses singleton pattern to ensure only one instance exists.
func New() *Config {
	once.Do(func() {
		// Load .env file if exists
		godotenv.Load()

		instance = &Config{}

		// Server config
		instance.Server.Port = getEnvString("PORT", "8082")
		instance.Server.Env = getEnvString("APP_ENV", "development")
		instance.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)
		instance.Server.BaseURL = getEnvString("BASE_URL", "http://localhost:"+instance.Server.Port)

		// Database config
		instance.Database.Host = getEnvString("DB_HOST", "localhost")
		instance.Database.Port = getEnvString("DB_PORT", "5432")
		instance.Database.User = getEnvString("DB_USER", "postgres")
		instance.Database.Password = getEnvString("DB_PASSWORD", "postgres")
		instance.Database.Name = getEnvString("DB_NAME", "widget-engine")
		instance.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
		instance.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)

		// Store backend
		instance.Store.Backend = getEnvString("STORE_BACKEND", "memory")

		// Redis config
		instance.Redis.Addr = getEnvString("REDIS_URL", "localhost:6379")
		instance.Redis.Password = getEnvString("REDIS_PASSWORD", "")
		instance.Redis.DB = getEnvInt("REDIS_DB", 0)

		// Session lifecycle
		instance.Session.TTL = getEnvDuration("SESSION_TTL", 24*time.Hour)
		instance.Session.SweepInterval = getEnvDuration("SESSION_SWEEP_INTERVAL", time.Hour)
		instance.Session.Retention = getEnvDuration("SESSION_RETENTION", 7*24*time.Hour)

		// History
		instance.History.WelcomeMessage = getEnvString("WELCOME_MESSAGE",
			"Hi! I'm your assistant. How can I help you today?")
		instance.History.MaxMessages = getEnvInt("HISTORY_MAX_MESSAGES", 200)

		// Widget
		instance.Widget.AllowedOrigins = getEnvStringSlice("WIDGET_ALLOWED_ORIGINS", []string{"*"})

		// JWT config
		instance.JWT.Secret = getEnvString("JWT_SECRET", "")
		instance.JWT.Expiry = getEnvDuration("JWT_EXPIRY", 24*time.Hour)

		// Security config
		instance.Security.RateLimit = getEnvFloat("RATE_LIMIT", 10)
		instance.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 20)
		instance.Security.AdminKeyHash = getEnvString("ADMIN_KEY_HASH", "")

		// Logging config
		instance.Logging.Level = getEnvString("LOG_LEVEL", "info")
		instance.Logging.Format = getEnvString("LOG_FORMAT", "json")

		// Service endpoints
		instance.Services.ChatServiceURL = getEnvString("CHAT_SERVICE_URL", "http://localhost:5100")
		instance.Services.ConfigStoreURL = getEnvString("CONFIG_STORE_URL", "http://localhost:5101")
	})

	return instance
}

// Get returns the config instance, creating it if needed
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

// Reset clears the singleton (testing only)
func Reset() {
	instance = nil
	once = sync.Once{}
}

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
