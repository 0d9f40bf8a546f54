package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("KAFKA_BROKERS", " kafka-1:9092, ,kafka-2:9092 ")
	t.Setenv("LOG_MAX_SIZE", "not-a-number")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 100, cfg.LogMaxSize)
	assert.Equal(t, "order-events", cfg.KafkaOrderEventsTopic)
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBHost: "db", DBUser: "shop", DBPassword: "secret", DBName: "blockify", DBPort: "5432"}
	assert.Equal(t, "host=db user=shop password=secret dbname=blockify port=5432 sslmode=disable", cfg.DSN())
}
