package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, ":5000", cfg.HTTP.Addr)

	assert.True(t, cfg.DBEnabled)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "pool_monitor", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 20, cfg.Database.MaxConns)

	assert.False(t, cfg.RedisEnabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "pool:device:", cfg.Cache.LatestKeyPrefix)
	assert.Equal(t, ":latest", cfg.Cache.LatestSuffix)
	assert.Equal(t, 10*time.Minute, cfg.Cache.LatestTTL)

	assert.False(t, cfg.MQTTEnabled)
	assert.Equal(t, "pool/+/data", cfg.Topics.Data)
	assert.Equal(t, "pool/%s/config", cfg.Topics.ConfigFormat)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)

	assert.Equal(t, 5*time.Minute, cfg.Alert.DedupWindow)
	assert.Equal(t, "pool:alerts", cfg.Alert.Stream)
	assert.Empty(t, cfg.Alert.WebhookURL)

	assert.False(t, cfg.Auth.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Clearenv()
	t.Setenv("PORT", "8081")
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_ADDR", "test-redis:6380")
	t.Setenv("MQTT_ENABLED", "1")
	t.Setenv("MQTT_QOS", "0")
	t.Setenv("ALERT_DEDUP_WINDOW", "90s")
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("DEBUG", "True")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.HTTP.Addr)
	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.False(t, cfg.DBEnabled)
	assert.True(t, cfg.RedisEnabled)
	assert.Equal(t, "test-redis:6380", cfg.Redis.Addr)
	assert.True(t, cfg.MQTTEnabled)
	assert.Equal(t, byte(0), cfg.MQTT.QoS)
	assert.Equal(t, 90*time.Second, cfg.Alert.DedupWindow)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_AuthRequiresSecret(t *testing.T) {
	os.Clearenv()
	t.Setenv("AUTH_ENABLED", "true")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_JWT_SECRET")
}

func TestLoad_DotEnvFile(t *testing.T) {
	os.Clearenv()
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DB_NAME=from_file\nLOG_FORMAT=console\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from_file", cfg.Database.Database)
	// variables already present win over the file
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestDatabaseConfig_GetDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "pool", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=pool sslmode=disable", c.GetDSN())

	c.URL = "postgres://u:p@db/pool"
	assert.Equal(t, "postgres://u:p@db/pool", c.GetDSN())
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_KEY", "test-value")
	assert.Equal(t, "test-value", getEnv("TEST_KEY", "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT_KEY", "default"))
}
