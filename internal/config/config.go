package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Logging  LoggingConfig
	Delivery DeliveryConfig
	Widget   WidgetConfig
	Kafka    KafkaConfig
	Security SecurityConfig
}

type ServerConfig struct {
	Port string
}

type LoggingConfig struct {
	Directory string
	Level     string
	Format    string
}

// DeliveryConfig drives the outbound delivery API client. The credential fields
// are defaults used when the field options in the host omit them.
type DeliveryConfig struct {
	HostFamily    string
	EndpointsFile string
	Timeout       time.Duration
	APIKey        string
	DeliveryToken string
	Environment   string
	Region        string
}

type WidgetConfig struct {
	InitTimeout time.Duration
	SendBuffer  int
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
	Topics  []string
	Events  []string
}

type SecurityConfig struct {
	JWTSecret    string
	JWTPublicKey string
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	deliveryTimeout, err := durationEnv("DELIVERY_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	initTimeout, err := durationEnv("WIDGET_INIT_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	sendBuffer, err := intEnv("WIDGET_SEND_BUFFER", 16)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Logging: LoggingConfig{
			Directory: getEnvOrDefault("LOG_DIRECTORY", "./logs"),
			Level:     getEnvOrDefault("LOG_LEVEL", "info"),
			Format:    getEnvOrDefault("LOG_FORMAT", "text"),
		},
		Delivery: DeliveryConfig{
			HostFamily:    strings.ToLower(getEnvOrDefault("DELIVERY_HOST_FAMILY", "delivery")),
			EndpointsFile: strings.TrimSpace(os.Getenv("DELIVERY_ENDPOINTS_FILE")),
			Timeout:       deliveryTimeout,
			APIKey:        strings.TrimSpace(os.Getenv("DELIVERY_API_KEY")),
			DeliveryToken: strings.TrimSpace(os.Getenv("DELIVERY_TOKEN")),
			Environment:   getEnvOrDefault("DELIVERY_ENVIRONMENT", "production"),
			Region:        getEnvOrDefault("DELIVERY_REGION", "NA"),
		},
		Widget: WidgetConfig{
			InitTimeout: initTimeout,
			SendBuffer:  sendBuffer,
		},
		Kafka: KafkaConfig{
			Brokers: splitList(firstEnv("KAFKA_BROKERS", "KAFKA_BROKER")),
			GroupID: getEnvOrDefault("KAFKA_GROUP_ID", "branch-picker"),
			Topics:  splitList(getEnvOrDefault("KAFKA_TOPICS", "cms.entries")),
			Events:  splitList(getEnvOrDefault("KAFKA_EVENTS", "entry.publish,entry.unpublish,entry.delete")),
		},
		Security: SecurityConfig{
			JWTSecret:    strings.TrimSpace(os.Getenv("JWT_SECRET")),
			JWTPublicKey: strings.TrimSpace(os.Getenv("JWT_PUBLIC_KEY")),
		},
	}

	switch cfg.Delivery.HostFamily {
	case "delivery", "management":
	default:
		return nil, fmt.Errorf("DELIVERY_HOST_FAMILY must be delivery or management, got %q", cfg.Delivery.HostFamily)
	}

	return cfg, nil
}

// AuthEnabled reports whether bridge and API callers must present a token.
func (c *Config) AuthEnabled() bool {
	return c.Security.JWTSecret != "" || c.Security.JWTPublicKey != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return value, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return value, nil
}
