package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("STORE_MODE", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SHIPPING_FEE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ModeAuto, cfg.StoreMode)
	assert.Equal(t, int64(5000), cfg.Store.ShippingFee)
	assert.Equal(t, 5*time.Second, cfg.Outbox.Interval)
	assert.Equal(t, 4, cfg.Import.ImageConcurrency)
}

func TestLoadOnlineRequiresDatabase(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("STORE_MODE", "online")
	t.Setenv("DB_HOST", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_HOST")
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("STORE_MODE", "hybrid")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadProductionRequiresJWTSecret(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("STORE_MODE", "offline")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadKafkaBrokers(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("STORE_MODE", "offline")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}
