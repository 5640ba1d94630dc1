package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port int

	// client side
	APIBaseURL    string
	StoragePath   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	UserCacheTTL  time.Duration
	LandingRoute  string

	// devserver side
	DBURL               string
	JWTSecret           string
	JWTAccessTTLMinutes int
	AdminEmail          string
	AdminPassword       string
	AdminName           string
	AdminRole           string
	OTLPEndpoint        string
}

func Load() Config {
	// .env is optional; real env always wins
	_ = godotenv.Load()

	return Config{
		Env:  getEnv("APP_ENV", "dev"),
		Port: getEnvInt("PORT", 8080),

		APIBaseURL:    getEnv("LOCKERROOM_API_URL", "http://127.0.0.1:8080"),
		StoragePath:   getEnv("LOCKERROOM_STORAGE_PATH", defaultStoragePath()),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		UserCacheTTL:  time.Duration(getEnvInt("USER_CACHE_TTL_MS", 300_000)) * time.Millisecond,
		LandingRoute:  getEnv("LOCKERROOM_LANDING_ROUTE", "/login"),

		DBURL:               getEnv("DB_URL", ""),
		JWTSecret:           getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTAccessTTLMinutes: getEnvInt("JWT_ACCESS_TTL_MINUTES", 60),
		AdminEmail:          getEnv("ADMIN_EMAIL", ""),
		AdminPassword:       getEnv("ADMIN_PASSWORD", ""),
		AdminName:           getEnv("ADMIN_NAME", "System Admin"),
		AdminRole:           getEnv("ADMIN_ROLE", "system_admin"),
		OTLPEndpoint:        getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

func defaultStoragePath() string {
	home, err := os.UserHomeDir()

	if err != nil {
		return ".lockerroom/session.json"
	}

	return filepath.Join(home, ".lockerroom", "session.json")
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}
