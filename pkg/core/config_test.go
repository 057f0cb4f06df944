package core

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"darksight/pkg/state"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, config.Validate())
	assert.Equal(t, state.DefaultDepth, config.TreeDepth)
	assert.Equal(t, zerolog.InfoLevel, config.Level())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(EnvTreeDepth, "20")
	t.Setenv(EnvDBPath, "")
	t.Setenv(EnvRPCAddr, "0.0.0.0:9999")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvDBCache, "32")

	config, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 20, config.TreeDepth)
	assert.Equal(t, "", config.StateDBPath)
	assert.Equal(t, "0.0.0.0:9999", config.RPCAddr)
	assert.Equal(t, 32, config.DBCache)
	assert.Equal(t, zerolog.DebugLevel, config.Level())
}

func TestLoadFromEnvRejects(t *testing.T) {
	t.Setenv(EnvTreeDepth, "65")
	_, err := LoadFromEnv()
	assert.True(t, errors.Is(err, state.ErrInvalidDepth))

	t.Setenv(EnvTreeDepth, "deep")
	_, err = LoadFromEnv()
	assert.Error(t, err)

	t.Setenv(EnvTreeDepth, "16")
	t.Setenv(EnvLogLevel, "loud")
	_, err = LoadFromEnv()
	assert.Error(t, err)
}
