package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverridesDefaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_MAX_OPEN_CONNS", "3")
	t.Setenv("DB_MAX_IDLE_CONNS", "-1")
	t.Setenv("TOKEN_TTL_MINUTES", "abc")
	t.Setenv("CORS_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("RAFFLE_NAME", "Spring Fair Raffle")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 3, cfg.DBMaxOpenConns)
	assert.Equal(t, Default().DBMaxIdleConns, cfg.DBMaxIdleConns)
	assert.Equal(t, Default().TokenTTLMinutes, cfg.TokenTTLMinutes)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, "Spring Fair Raffle", cfg.RaffleName)
}

func TestLoadDotEnvMissingFileIsIgnored(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestLoadDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("RAFFLE_NAME=FromFile\nCLAIM_INSTRUCTIONS=Booth 4\n"), 0o644))
	t.Setenv("RAFFLE_NAME", "FromEnv")
	t.Setenv("CLAIM_INSTRUCTIONS", "")
	os.Unsetenv("CLAIM_INSTRUCTIONS")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "FromEnv", os.Getenv("RAFFLE_NAME"))
	assert.Equal(t, "Booth 4", os.Getenv("CLAIM_INSTRUCTIONS"))
}

func TestLoadLogging(t *testing.T) {
	assert.True(t, Load().Verbose)

	t.Setenv("VERBOSE", "false")
	t.Setenv("LOG_FILE", "/var/log/raffle.log")
	cfg := Load()
	assert.False(t, cfg.Verbose)
	assert.Equal(t, "/var/log/raffle.log", cfg.LogFile)
}
