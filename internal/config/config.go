package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	// Record store server side.
	DatabaseURL  string
	RecordDBPath string
	SeedFile     string

	// Storefront client side.
	RecordStoreURL  string
	LocalDBPath     string
	NotificationTTL time.Duration

	JWTSecret []byte

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string
}

// Load reads .env when present and then the process environment.
func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "storefront"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 3001),
		LogLevel:    os.Getenv("LOG_LEVEL"),

		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RecordDBPath: EnvDefault("RECORD_DB_PATH", "recordstore.db"),
		SeedFile:     os.Getenv("SEED_FILE"),

		RecordStoreURL:  EnvDefault("RECORD_STORE_URL", "http://localhost:3001"),
		LocalDBPath:     EnvDefault("LOCAL_DB_PATH", "storefront.db"),
		NotificationTTL: EnvDurationMsDefault("NOTIFICATION_TTL_MS", 3000*time.Millisecond),

		JWTSecret: []byte(os.Getenv("JWT_SECRET")),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "product"),
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// EnvDurationMsDefault reads a whole number of milliseconds.
func EnvDurationMsDefault(key string, def time.Duration) time.Duration {
	n := EnvIntDefault(key, -1)
	if n <= 0 {
		return def
	}
	return time.Duration(n) * time.Millisecond
}
