package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	// REST backend
	BackendURL     string
	BackendTimeout time.Duration
	BackendRPS     float64
	BackendBurst   int

	RedisAddr     string
	RedisPassword string
	CartTTL       time.Duration

	MongoURI    string
	MongoDBName string

	// sqlite file path or postgres URL
	ReceiptsDSN string

	// empty disables the outbox publisher and the status poller
	KafkaBrokers     []string
	OrderEventsTopic string
	OrderStatusTopic string
	KafkaGroupID     string

	JWTSecret      string
	CommissionRate decimal.Decimal
	CatalogTTL     time.Duration
	// upper bound on backend pages fetched per catalog refresh
	CatalogMaxPages int
	SessionIdleTTL  time.Duration

	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		RequestTimeout:     parseDuration(getEnv("REQUEST_TIMEOUT", "30s"), 30*time.Second),
		ShutdownTimeout:    parseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s"), 10*time.Second),
		MaxRequestBodySize: 1 << 20, // 1MB

		BackendURL:     strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:5000/api/v1"), "/"),
		BackendTimeout: parseDuration(getEnv("BACKEND_TIMEOUT", "10s"), 10*time.Second),
		BackendRPS:     parseFloat(getEnv("BACKEND_RPS", "20"), 20),
		BackendBurst:   parseInt(getEnv("BACKEND_BURST", "40"), 40),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		CartTTL:       parseDuration(getEnv("CART_TTL", "720h"), 720*time.Hour),

		MongoURI:    os.Getenv("MONGO_URI"),
		MongoDBName: getEnv("MONGO_DB_NAME", "storefront"),

		ReceiptsDSN: getEnv("RECEIPTS_DSN", "file:receipts.db"),

		KafkaBrokers:     splitCSV(os.Getenv("KAFKA_BROKERS")),
		OrderEventsTopic: getEnv("ORDER_EVENTS_TOPIC", "storefront.order-placed"),
		OrderStatusTopic: getEnv("ORDER_STATUS_TOPIC", "storefront.order-status"),
		KafkaGroupID:     getEnv("KAFKA_GROUP_ID", "storefront"),

		JWTSecret:       os.Getenv("JWT_SECRET"),
		CommissionRate:  parseDecimal(getEnv("COMMISSION_RATE", "5"), decimal.NewFromInt(5)),
		CatalogTTL:      parseDuration(getEnv("CATALOG_TTL", "1m"), time.Minute),
		CatalogMaxPages: parseInt(getEnv("CATALOG_MAX_PAGES", "50"), 50),
		SessionIdleTTL:  parseDuration(getEnv("SESSION_IDLE_TTL", "2h"), 2*time.Hour),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// KafkaEnabled reports whether at least one broker is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); strings.TrimSpace(v) != "" {
		return v
	}
	return defaultValue
}

func splitCSV(v string) []string {
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

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func parseInt(v string, def int) int {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func parseFloat(v string, def float64) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}

func parseDecimal(v string, def decimal.Decimal) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		return def
	}
	return d
}
