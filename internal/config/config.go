package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DatabaseConfig PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // DATABASE_URL, takes precedence over the discrete fields
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN returns the lib/pq connection string.
func (c DatabaseConfig) GetDSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig broker settings.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// Config pool-monitor service configuration.
type Config struct {
	HTTP struct {
		Addr string
	}

	DBEnabled bool
	Database  DatabaseConfig
	Migrate   bool

	RedisEnabled bool
	Redis        RedisConfig
	Cache        struct {
		LatestKeyPrefix string        // e.g. "pool:device:"
		LatestSuffix    string        // e.g. ":latest"
		LatestTTL       time.Duration // latest reading TTL
	}

	MQTTEnabled bool
	MQTT        MQTTConfig
	Topics      struct {
		Data         string // subscription filter, "pool/+/data"
		ConfigFormat string // publish topic, "pool/%s/config"
	}

	Alert struct {
		DedupWindow    time.Duration
		Stream         string
		StreamMaxLen   int64
		WebhookURL     string
		WebhookTimeout time.Duration
	}

	Auth struct {
		Enabled           bool
		JWTSecret         string
		TokenTTL          time.Duration
		SeedAdmin         string
		SeedAdminPassword string
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load reads the optional .env file, then environment variables with defaults.
func Load() (*Config, error) {
	if err := loadDotEnv(getEnv("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{}

	// HTTP
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":"+getEnv("PORT", "5000"))

	// Database
	cfg.DBEnabled = getBool("DB_ENABLED", true)
	cfg.Database.URL = getEnv("DATABASE_URL", "")
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "pool_monitor")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getInt("DB_MAX_CONNS", 20)
	cfg.Database.MaxIdle = getInt("DB_MAX_IDLE", 5)
	cfg.Migrate = getBool("DB_MIGRATE", true)

	// Redis
	cfg.RedisEnabled = getBool("REDIS_ENABLED", false)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getInt("REDIS_DB", 0)
	cfg.Cache.LatestKeyPrefix = getEnv("CACHE_LATEST_PREFIX", "pool:device:")
	cfg.Cache.LatestSuffix = ":latest"
	cfg.Cache.LatestTTL = getDuration("CACHE_LATEST_TTL", 10*time.Minute)

	// MQTT
	cfg.MQTTEnabled = getBool("MQTT_ENABLED", false)
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "pool-monitor")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(getInt("MQTT_QOS", 1))
	cfg.Topics.Data = getEnv("MQTT_DATA_TOPIC", "pool/+/data")
	cfg.Topics.ConfigFormat = getEnv("MQTT_CONFIG_TOPIC", "pool/%s/config")

	// Alerting
	cfg.Alert.DedupWindow = getDuration("ALERT_DEDUP_WINDOW", 5*time.Minute)
	cfg.Alert.Stream = getEnv("ALERT_STREAM", "pool:alerts")
	cfg.Alert.StreamMaxLen = int64(getInt("ALERT_STREAM_MAXLEN", 10000))
	cfg.Alert.WebhookURL = getEnv("ALERT_WEBHOOK_URL", "")
	cfg.Alert.WebhookTimeout = getDuration("ALERT_WEBHOOK_TIMEOUT", 5*time.Second)

	// Auth
	cfg.Auth.Enabled = getBool("AUTH_ENABLED", false)
	cfg.Auth.JWTSecret = getEnv("AUTH_JWT_SECRET", "")
	cfg.Auth.TokenTTL = getDuration("AUTH_TOKEN_TTL", 24*time.Hour)
	cfg.Auth.SeedAdmin = getEnv("SEED_ADMIN", "")
	cfg.Auth.SeedAdminPassword = getEnv("SEED_ADMIN_PASSWORD", "")

	// Log
	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")
	if getBool("DEBUG", false) {
		cfg.Log.Level = "debug"
	}

	if cfg.Auth.Enabled && cfg.Auth.JWTSecret == "" {
		return nil, errors.New("AUTH_JWT_SECRET is required when AUTH_ENABLED=true")
	}

	return cfg, nil
}

// loadDotEnv reads path into the environment without overriding variables already set.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
