package config

import (
	"log"
	"strconv"
	"time"

	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Server ServerConfig
	DB     DBConfig
	Redis  RedisConfig
	Auth   AuthConfig
	POS    POSConfig
}

type ServerConfig struct {
	Port string
}

type DBConfig struct {
	DSN string
}

type AuthConfig struct {
	JWTSecret string
	APIKey    string
	TokenTTL  time.Duration
}

type POSConfig struct {
	HoldTTL time.Duration
	TaxRate string
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	tokenTTL, err := time.ParseDuration(getEnv("AUTH_TOKEN_TTL", "8h"))
	if err != nil {
		tokenTTL = 8 * time.Hour
	}

	holdTTL, err := time.ParseDuration(getEnv("POS_HOLD_TTL", "4h"))
	if err != nil {
		holdTTL = 4 * time.Hour
	}

	return Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		DB: DBConfig{
			DSN: getEnv("POS_DSN", ""),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			APIKey:    getEnv("POS_API_KEY", ""),
			TokenTTL:  tokenTTL,
		},
		POS: POSConfig{
			HoldTTL: holdTTL,
			TaxRate: getEnv("POS_TAX_RATE", "10"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
