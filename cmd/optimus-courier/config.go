package main

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	serviceName = "optimus-courier"

	storeMongo  = "mongo"
	storeMemory = "memory"
)

// Config holds process configuration read from the environment
type Config struct {
	ServerAddr     string
	Environment    string
	LogLevel       string
	Store          string
	MongoURI       string
	MongoDatabase  string
	KafkaBrokers   string
	KafkaEnabled   bool
	OTLPEndpoint   string
	TracingEnabled bool
	SettingsFile   string
	OptimusBaseURL string
	OptimusTimeout time.Duration
	AuthSecret     string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SendmailPath string
}

func loadConfig() *Config {
	return &Config{
		ServerAddr:     getEnv("SERVER_ADDR", ":8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Store:          strings.ToLower(getEnv("STORE", storeMongo)),
		MongoURI:       getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:  getEnv("MONGODB_DATABASE", "optimus_courier"),
		KafkaBrokers:   getEnv("KAFKA_BROKERS", "localhost:9092"),
		KafkaEnabled:   getEnvBool("KAFKA_ENABLED", true),
		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		SettingsFile:   getEnv("SETTINGS_FILE", "settings.yaml"),
		OptimusBaseURL: getEnv("OPTIMUS_BASE_URL", ""),
		OptimusTimeout: getEnvDuration("OPTIMUS_TIMEOUT", 30*time.Second),
		AuthSecret:     getEnv("AUTH_SECRET", ""),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SendmailPath: getEnv("SENDMAIL_PATH", "/usr/sbin/sendmail"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}
