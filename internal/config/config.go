package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	Env        string
	LogLevel   string
	ServerPort string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// MessageStore selects the message log backend: postgres or memory.
	MessageStore string
	// SeedUsers fills the in-memory user directory, e.g. "1:alice,2:bob".
	SeedUsers string

	RedisURL        string
	ProfileCacheTTL time.Duration

	JWTSecret string

	S3Endpoint       string
	S3PublicEndpoint string
	S3AccessKey      string
	S3SecretKey      string
	S3Bucket         string
	S3UseSSL         bool
	UploadMaxBytes   int64

	WSMessageRate     float64
	WSMessageBurst    int
	WSSendBuffer      int
	WSMaxMessageBytes int64
	StoreTimeout      time.Duration

	CORSOrigins     []string
	ShutdownTimeout time.Duration
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Env:        getEnv("APP_ENV", "dev"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		ServerPort: getEnv("SERVER_PORT", "8080"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "chat"),
		DBPassword: getEnv("DB_PASSWORD", "chat_dev_password"),
		DBName:     getEnv("DB_NAME", "chat"),

		MessageStore: strings.ToLower(getEnv("MESSAGE_STORE", StorePostgres)),
		SeedUsers:    getEnv("SEED_USERS", ""),

		RedisURL:  getEnv("REDIS_URL", ""),
		JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),

		S3Endpoint:       getEnv("S3_ENDPOINT", ""),
		S3PublicEndpoint: getEnv("S3_PUBLIC_ENDPOINT", ""),
		S3AccessKey:      getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:      getEnv("S3_SECRET_KEY", ""),
		S3Bucket:         getEnv("S3_BUCKET", "chat-attachments"),

		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
	}

	var err error
	if cfg.ProfileCacheTTL, err = parseDurationEnv("PROFILE_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.S3UseSSL, err = parseBoolEnv("S3_USE_SSL", false); err != nil {
		return nil, err
	}
	if cfg.UploadMaxBytes, err = parseInt64Env("UPLOAD_MAX_BYTES", 10<<20); err != nil {
		return nil, err
	}
	if cfg.WSMessageRate, err = parseFloatEnv("WS_MESSAGE_RATE", 5); err != nil {
		return nil, err
	}
	if cfg.WSMessageBurst, err = parseIntEnv("WS_MESSAGE_BURST", 10); err != nil {
		return nil, err
	}
	if cfg.WSSendBuffer, err = parseIntEnv("WS_SEND_BUFFER", 256); err != nil {
		return nil, err
	}
	if cfg.WSMaxMessageBytes, err = parseInt64Env("WS_MAX_MESSAGE_BYTES", 32<<10); err != nil {
		return nil, err
	}
	if cfg.StoreTimeout, err = parseDurationEnv("STORE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = parseDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	if cfg.MessageStore != StorePostgres && cfg.MessageStore != StoreMemory {
		return nil, fmt.Errorf("MESSAGE_STORE must be %q or %q, got %q", StorePostgres, StoreMemory, cfg.MessageStore)
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must not be empty")
	}

	return cfg, nil
}

// DatabaseURL is the pgx connection string for the configured database.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func parseBoolEnv(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func parseIntEnv(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func parseInt64Env(key string, fallback int64) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func parseFloatEnv(key string, fallback float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
