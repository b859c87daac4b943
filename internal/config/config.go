package config

import "os"

type Config struct {
	Port           string
	DatabaseDSN    string
	UploadDir      string
	Env            string
	RedisAddr      string
	KafkaBrokers   string
	KafkaTopic     string
	MaxUploadBytes int64
}

// Load loads configuration from environment with sensible defaults.
// Precedence: explicit env var > .env file (if loaded by caller) > default.
func Load() Config {
	cfg := Config{}
	cfg.Port = getEnv("PORT", "8080")
	cfg.DatabaseDSN = getEnv("DATABASE_DSN", "invoice_extractor.db")
	cfg.UploadDir = getEnv("UPLOAD_DIR", "uploads")
	cfg.Env = getEnv("APP_ENV", "development")
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.KafkaBrokers = os.Getenv("KAFKA_BROKERS")
	cfg.KafkaTopic = getEnv("KAFKA_TOPIC", "invoice.orders")
	cfg.MaxUploadBytes = 10 << 20
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
