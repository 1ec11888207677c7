package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Storefront struct {
	HTTPPort            string
	PublicBaseURL       string
	BackendURL          string
	LogLevel            string
	EnableTracing       bool
	RequestTimeout      time.Duration
	ShutdownTimeout     time.Duration
	LoadTimeout         time.Duration
	WriteThroughTimeout time.Duration
	ResolveTimeout      time.Duration
	ReadyPollInterval   time.Duration
	BreakerMaxFailures  uint32
	BreakerOpenTimeout  time.Duration
	NotificationLimit   int
	MaxRequestBodySize  int64
}

type Backend struct {
	HTTPPort           string
	PublicBaseURL      string
	LogLevel           string
	EnableTracing      bool
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	MongoURI    string
	MongoDBName string

	RedisAddr     string
	RedisPassword string

	DBHost         string
	DBPort         int
	DBUser         string
	DBPassword     string
	DBName         string
	MigrationsPath string

	KafkaBrokers []string
	KafkaTopic   string

	ProcessorURL       string
	ProcessorSecretKey string
	AllowedCountries   []string
}

// Load reads the given .env files (default ".env") into the environment.
// Missing files are not an error; variables already set win.
func Load(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

func LoadStorefront() *Storefront {
	return &Storefront{
		HTTPPort:            getEnv("HTTP_PORT", "8080"),
		PublicBaseURL:       getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		BackendURL:          getEnv("BACKEND_URL", "http://localhost:8090"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		EnableTracing:       getEnv("ENABLE_TRACING", "0") == "1",
		RequestTimeout:      getDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:     getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		LoadTimeout:         getDuration("CART_LOAD_TIMEOUT", 10*time.Second),
		WriteThroughTimeout: getDuration("CART_WRITE_TIMEOUT", 5*time.Second),
		ResolveTimeout:      getDuration("CHECKOUT_RESOLVE_TIMEOUT", 20*time.Second),
		ReadyPollInterval:   getDuration("BACKEND_READY_POLL", 2*time.Second),
		BreakerMaxFailures:  uint32(getInt("BREAKER_MAX_FAILURES", 5)),
		BreakerOpenTimeout:  getDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second),
		NotificationLimit:   getInt("NOTIFICATION_LIMIT", 50),
		MaxRequestBodySize:  1 << 20, // 1MB
	}
}

func LoadBackend() *Backend {
	return &Backend{
		HTTPPort:           getEnv("HTTP_PORT", "8090"),
		PublicBaseURL:      getEnv("PUBLIC_BASE_URL", "http://localhost:8090"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		EnableTracing:      getEnv("ENABLE_TRACING", "0") == "1",
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: 1 << 20,

		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName: getEnv("MONGO_DB_NAME", "cartdb"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getInt("DB_PORT", 5432),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", "postgres"),
		DBName:         getEnv("DB_NAME", "storefront"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./internal/payment/migrations"),

		KafkaBrokers: getList("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "checkout-completed"),

		ProcessorURL:       getEnv("PROCESSOR_URL", "https://api.stripe.com"),
		ProcessorSecretKey: getEnv("PROCESSOR_SECRET_KEY", ""),
		AllowedCountries:   getList("ALLOWED_COUNTRIES", []string{"US", "CA", "GB"}),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getList(key string, defaultValue []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
