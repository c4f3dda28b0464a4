package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Contains(t, cfg.Database.ConnString, "dbname=transfert")
	assert.Equal(t, "receipts", cfg.Receipts.Dir)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("AUTH_SECRET", "prod-secret")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Empty(t, cfg.Database.ConnString, "memory driver needs no conn string")
	assert.Equal(t, "prod-secret", cfg.Auth.Secret)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadExplicitConnString(t *testing.T) {
	t.Setenv("DB_CONN_STR", "host=db port=5432 user=app password=app dbname=ledger sslmode=disable")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "host=db port=5432 user=app password=app dbname=ledger sslmode=disable", cfg.Database.ConnString)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("invalid port", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "not-a-port")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("port out of range", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "70000")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("invalid timeout", func(t *testing.T) {
		t.Setenv("SERVER_READ_TIMEOUT", "soon")
		_, err := Load()
		assert.Error(t, err)
	})
}
