package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"darksight/pkg/core"
	"darksight/pkg/state"
)

var (
	treeDepth int
	dbPath    string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "witnessctl",
	Short: "Offline tooling for deposit commitments, nullifiers and witnesses",
	Long: "witnessctl drives the local witness layer without the daemon.\n" +
		"It can commit to values, derive nullifiers, replay the on-chain commitment log\n" +
		"into a local tree, and build or check deposit witnesses.\n" +
		"Pass --db to work against a persistent tree, otherwise the tree lives in memory.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		zerolog.SetGlobalLevel(level)
	},
}

func init() {
	defaults := core.DefaultConfig()
	rootCmd.PersistentFlags().IntVar(&treeDepth, "depth", defaults.TreeDepth, "depth of the commitment tree")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path of a persistent tree database")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openTree opens the tree selected by the persistent flags. The returned
// close function is never nil.
func openTree() (*state.Tree, func(), error) {
	if dbPath == "" {
		tree, err := state.NewTree(treeDepth)
		return tree, func() {}, err
	}

	defaults := core.DefaultConfig()
	store, err := state.OpenLevelDB(dbPath, defaults.DBCache, defaults.DBHandles)
	if err != nil {
		return nil, func() {}, err
	}
	closeFn := func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close state db")
		}
	}
	tree, err := state.OpenTree(store, treeDepth)
	if err != nil {
		closeFn()
		return nil, func() {}, err
	}
	return tree, closeFn, nil
}

// readLog loads a JSON array of log entries
func readLog(path string) ([]state.LogEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	var entries []state.LogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse log %s: %w", path, err)
	}
	return entries, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
