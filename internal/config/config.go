package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	ServiceName string
	ServicePort int
	LogLevel    string
	Database    DatabaseConfig
	Gemini      GeminiConfig
	Static      StaticConfig
	HTTP        HTTPConfig
	RabbitMQ    RabbitMQConfig
	Anomaly     AnomalyConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// GeminiConfig holds settings for the image inference service
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// StaticConfig controls where uploaded images are written and served from
type StaticConfig struct {
	Dir       string
	URLPrefix string
}

// HTTPConfig holds HTTP server limits and CORS settings
type HTTPConfig struct {
	MaxBodyBytes   int64
	AllowedOrigins []string
}

// RabbitMQConfig holds RabbitMQ connection and queue settings.
// An empty URL disables event publishing and queued uploads.
type RabbitMQConfig struct {
	URL              string
	EventsExchange   string
	UploadedKey      string
	ConfirmedKey     string
	UploadExchange   string
	UploadQueue      string
	UploadRoutingKey string
	DLQQueue         string
	PrefetchCount    int
}

// Enabled reports whether a broker is configured
func (c RabbitMQConfig) Enabled() bool {
	return c.URL != ""
}

// AnomalyConfig holds plausibility check settings
type AnomalyConfig struct {
	SpikeThreshold            float64
	MinDataPointsForDetection int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "meter-reading-service"),
		ServicePort: getEnvAsInt("SERVICE_PORT", 3000),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Gemini: GeminiConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			Model:   getEnv("GEMINI_MODEL", "gemini-1.5-pro"),
			Timeout: time.Duration(getEnvAsInt("INFERENCE_TIMEOUT_SECONDS", 60)) * time.Second,
		},
		Static: StaticConfig{
			Dir:       getEnv("STATIC_DIR", "./static"),
			URLPrefix: strings.TrimRight(getEnv("STATIC_URL_PREFIX", "/static"), "/"),
		},
		HTTP: HTTPConfig{
			MaxBodyBytes:   int64(getEnvAsInt("MAX_BODY_MB", 50)) << 20,
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		RabbitMQ: RabbitMQConfig{
			URL:              getEnv("RABBITMQ_URL", ""),
			EventsExchange:   getEnv("RABBITMQ_EVENTS_EXCHANGE", "meter-reading.events.exchange"),
			UploadedKey:      getEnv("RABBITMQ_UPLOADED_ROUTING_KEY", "reading.uploaded"),
			ConfirmedKey:     getEnv("RABBITMQ_CONFIRMED_ROUTING_KEY", "reading.confirmed"),
			UploadExchange:   getEnv("RABBITMQ_UPLOAD_EXCHANGE", "meter-reading.upload.exchange"),
			UploadQueue:      getEnv("RABBITMQ_UPLOAD_QUEUE", "meter-reading.upload.queue"),
			UploadRoutingKey: getEnv("RABBITMQ_UPLOAD_ROUTING_KEY", "reading.upload.requested"),
			DLQQueue:         getEnv("RABBITMQ_DLQ_QUEUE", "meter-reading.upload.dlq"),
			PrefetchCount:    getEnvAsInt("RABBITMQ_PREFETCH", 4),
		},
		Anomaly: AnomalyConfig{
			SpikeThreshold:            getEnvAsFloat("ANOMALY_SPIKE_THRESHOLD", 3.0),
			MinDataPointsForDetection: getEnvAsInt("ANOMALY_MIN_DATA_POINTS", 3),
		},
	}

	// Validate required fields
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set in environment variables")
	}
	if cfg.Gemini.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required but not set in environment variables")
	}
	if cfg.Gemini.Timeout <= 0 {
		return nil, fmt.Errorf("INFERENCE_TIMEOUT_SECONDS must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
