package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StatusSourcePostgres = "postgres"
	StatusSourceAMQP     = "amqp"
	StatusSourceNone     = "none"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL    string
	JWTSecretKey   string
	APIKeyHash     string
	ServerPort     int
	AllowedOrigins []string

	StatusSource string
	AMQPURL      string
	AMQPQueue    string

	NotifyWebhookURL string
	NotifyTimeout    time.Duration

	ReconcileInterval time.Duration
	ReconcileLookback time.Duration
	RewardConcurrency int

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
	ReportPrefix      string
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	cfg := &Config{
		DatabaseURL:       dbURL,
		JWTSecretKey:      jwtKey,
		APIKeyHash:        os.Getenv("INGEST_API_KEY_HASH"),
		ServerPort:        port,
		AllowedOrigins:    listEnv("CORS_ALLOWED_ORIGINS"),
		StatusSource:      strings.ToLower(stringEnv("STATUS_SOURCE", StatusSourcePostgres)),
		AMQPURL:           os.Getenv("AMQP_URL"),
		AMQPQueue:         stringEnv("AMQP_QUEUE", "event_status_changes"),
		NotifyWebhookURL:  os.Getenv("NOTIFY_WEBHOOK_URL"),
		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
		ReportPrefix:      stringEnv("R2_REPORT_PREFIX", "repair-reports"),
	}

	switch cfg.StatusSource {
	case StatusSourcePostgres, StatusSourceNone:
	case StatusSourceAMQP:
		if cfg.AMQPURL == "" {
			return nil, fmt.Errorf("AMQP_URL must be set when STATUS_SOURCE=amqp")
		}
	default:
		return nil, fmt.Errorf("STATUS_SOURCE must be one of postgres, amqp, none, got %q", cfg.StatusSource)
	}

	if cfg.NotifyTimeout, err = durationEnv("NOTIFY_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.ReconcileInterval, err = durationEnv("RECONCILE_INTERVAL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ReconcileLookback, err = durationEnv("RECONCILE_LOOKBACK", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RewardConcurrency, err = intEnv("REWARD_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if cfg.RewardConcurrency < 1 {
		return nil, fmt.Errorf("REWARD_CONCURRENCY must be positive, got %d", cfg.RewardConcurrency)
	}

	return cfg, nil
}

func stringEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}

func listEnv(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
