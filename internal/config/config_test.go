package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnv = []string{
	"TRAPPER_ADDRESS", "ADDRESS", "FILE_STORAGE_PATH", "DATABASE_DSN",
	"MIGRATIONS_URL", "AUDIT_FILE", "AUDIT_URL", "STORE_INTERVAL", "RESTORE",
}

func clearEnv(t *testing.T) {
	for _, env := range configEnv {
		t.Setenv(env, "")
	}
}

func TestNewTrapperConfigDefaults(t *testing.T) {
	clearEnv(t)

	config, err := NewTrapperConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultTrapperAddress, config.TrapperAddress)
	assert.Equal(t, DefaultHTTPAddress, config.HTTPAddress)
	assert.Equal(t, 300, config.StoreInterval)
	assert.False(t, config.Restore)
	assert.Empty(t, config.DatabaseDSN)
	assert.Equal(t, DefaultMigrationsURL, config.MigrationsURL)
}

func TestNewTrapperConfigOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TRAPPER_ADDRESS", ":20051")
	t.Setenv("STORE_INTERVAL", "0")
	t.Setenv("RESTORE", "true")

	config, err := NewTrapperConfig([]string{"-t", ":1", "-a", ":9090", "-audit-file", "audit.log"})
	require.NoError(t, err)

	assert.Equal(t, ":20051", config.TrapperAddress)
	assert.Equal(t, ":9090", config.HTTPAddress)
	assert.Equal(t, 0, config.StoreInterval)
	assert.True(t, config.Restore)
	assert.Equal(t, "audit.log", config.AuditFile)
}

func TestNewTrapperConfigInvalidEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_INTERVAL", "soon")

	_, err := NewTrapperConfig(nil)
	assert.Error(t, err)

	t.Setenv("STORE_INTERVAL", "")
	t.Setenv("RESTORE", "maybe")
	_, err = NewTrapperConfig(nil)
	assert.Error(t, err)
}
