package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"darksight/pkg/core"
	"darksight/pkg/rpc"
	"darksight/pkg/state"
	"darksight/pkg/witness"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config, err := core.LoadFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	zerolog.SetGlobalLevel(config.Level())

	// Open the local tree mirror
	var tree *state.Tree
	if config.StateDBPath == "" {
		tree, err = state.NewTree(config.TreeDepth)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create tree")
		}
		log.Warn().Msg("No state db configured, tree is kept in memory")
	} else {
		store, err := state.OpenLevelDB(config.StateDBPath, config.DBCache, config.DBHandles)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open state db")
		}
		defer store.Close()

		tree, err = state.OpenTree(store, config.TreeDepth)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load tree")
		}
	}

	server := rpc.NewServer(witness.NewGenerator(tree), config.RPCAddr)
	if err := server.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start RPC server")
	}

	log.Info().
		Int("depth", tree.Depth()).
		Uint64("applied", tree.Applied()).
		Str("root", tree.CurrentRoot().Hex()).
		Msg("Witness service ready")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	// Graceful shutdown
	if err := server.Stop(); err != nil {
		log.Error().Err(err).Msg("Failed to stop RPC server")
	}
}
