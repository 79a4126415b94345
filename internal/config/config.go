// Package config reads process settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DevJWTSecret signs tokens when JWT_SECRET is unset. It is public, so any
// token signed with it can be forged.
const DevJWTSecret = "dev-secret"

var ErrDevJWTSecret = errors.New("JWT_SECRET must be set when MONGO_URI is configured")

type Server struct {
	Port         string
	CacheEnabled bool
	RedisHost    string
	RedisPort    string
	RedisTTL     time.Duration

	MongoURI      string
	MongoDatabase string

	JWTSecret string
	JWTTTL    time.Duration

	ProviderURL   string
	ProviderName  string
	ProviderRPS   float64
	ProviderBurst int

	APIRateRPS   float64
	APIRateBurst int
}

type Client struct {
	APIURL  string
	Token   string
	DataDir string

	// RedisURL moves the anonymous cart from DataDir into Redis.
	RedisURL     string
	RedisCartTTL time.Duration

	JWTSecret string
	JWTTTL    time.Duration

	PollInterval    time.Duration
	PollMaxAttempts int
	PollMaxDuration time.Duration
}

// LoadDotEnv loads the given files, or ./.env when none are named. Missing
// files are ignored and variables already set in the environment win.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to load env file", "file", f, "error", err)
		}
	}
}

func LoadServer() Server {
	return Server{
		Port:         getEnv("PORT", "8080"),
		CacheEnabled: getEnvBool("CACHE_ENABLED", true),
		RedisHost:    getEnv("REDIS_HOST", "localhost"),
		RedisPort:    getEnv("REDIS_PORT", "6379"),
		RedisTTL:     getEnvDuration("REDIS_TTL", 5*time.Minute),

		MongoURI:      getEnv("MONGO_URI", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "flightbooking"),

		JWTSecret: getEnv("JWT_SECRET", DevJWTSecret),
		JWTTTL:    getEnvDuration("JWT_TTL", 24*time.Hour),

		ProviderURL:   getEnv("PROVIDER_URL", ""),
		ProviderName:  getEnv("PROVIDER_NAME", "vendor"),
		ProviderRPS:   getEnvFloat("PROVIDER_RPS", 10),
		ProviderBurst: getEnvInt("PROVIDER_BURST", 20),

		APIRateRPS:   getEnvFloat("API_RATE_RPS", 5),
		APIRateBurst: getEnvInt("API_RATE_BURST", 10),
	}
}

// DevSecret reports whether the server would sign tokens with DevJWTSecret.
func (s Server) DevSecret() bool {
	return s.JWTSecret == DevJWTSecret
}

// Validate rejects settings that are only safe for local development. Carts
// persisted in Mongo outlive the process, so they must not be reachable with
// forgeable tokens.
func (s Server) Validate() error {
	if s.DevSecret() && s.MongoURI != "" {
		return ErrDevJWTSecret
	}
	return nil
}

func LoadClient() Client {
	return Client{
		APIURL:  getEnv("FLIGHTBOOKING_API_URL", "http://localhost:8080/api/v1"),
		Token:   getEnv("FLIGHTBOOKING_TOKEN", ""),
		DataDir: getEnv("FLIGHTBOOKING_DATA_DIR", defaultDataDir()),

		RedisURL:     getEnv("FLIGHTBOOKING_REDIS_URL", ""),
		RedisCartTTL: getEnvDuration("FLIGHTBOOKING_REDIS_CART_TTL", 7*24*time.Hour),

		JWTSecret: getEnv("JWT_SECRET", DevJWTSecret),
		JWTTTL:    getEnvDuration("JWT_TTL", 24*time.Hour),

		PollInterval:    getEnvDuration("POLL_INTERVAL", 2*time.Second),
		PollMaxAttempts: getEnvInt("POLL_MAX_ATTEMPTS", 30),
		PollMaxDuration: getEnvDuration("POLL_MAX_DURATION", 0),
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".flightbooking"
	}
	return filepath.Join(home, ".flightbooking")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}
