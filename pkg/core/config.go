package core

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"

	"darksight/pkg/state"
)

// Environment variables read by LoadFromEnv
const (
	EnvTreeDepth = "DARKSIGHT_TREE_DEPTH"
	EnvDBPath    = "DARKSIGHT_DB_PATH"
	EnvRPCAddr   = "DARKSIGHT_RPC_ADDR"
	EnvLogLevel  = "DARKSIGHT_LOG_LEVEL"
	EnvDBCache   = "DARKSIGHT_DB_CACHE"
)

type Config struct {
	// Tree configuration
	TreeDepth int

	// Storage configuration. An empty StateDBPath keeps the tree in memory.
	StateDBPath string
	DBCache     int
	DBHandles   int

	// RPC configuration
	RPCAddr string

	// Logging
	LogLevel string
}

func DefaultConfig() *Config {
	return &Config{
		TreeDepth:   state.DefaultDepth,
		StateDBPath: "./statedb",
		DBCache:     64,
		DBHandles:   128,
		RPCAddr:     "127.0.0.1:8645",
		LogLevel:    "info",
	}
}

// LoadFromEnv returns DefaultConfig overridden by DARKSIGHT_* variables
func LoadFromEnv() (*Config, error) {
	config := DefaultConfig()

	if v := os.Getenv(EnvTreeDepth); v != "" {
		depth, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", EnvTreeDepth, err)
		}
		config.TreeDepth = depth
	}
	if v, ok := os.LookupEnv(EnvDBPath); ok {
		config.StateDBPath = v
	}
	if v := os.Getenv(EnvDBCache); v != "" {
		cache, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", EnvDBCache, err)
		}
		config.DBCache = cache
	}
	if v := os.Getenv(EnvRPCAddr); v != "" {
		config.RPCAddr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		config.LogLevel = v
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration for values the daemon cannot start with
func (c *Config) Validate() error {
	if c.TreeDepth < 1 || c.TreeDepth > state.MaxDepth {
		return fmt.Errorf("%w: %d", state.ErrInvalidDepth, c.TreeDepth)
	}
	if c.RPCAddr == "" {
		return errors.New("rpc address must not be empty")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return nil
}

// Level returns the configured zerolog level
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
