package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"darksight/pkg/crypto"
	"darksight/pkg/field"
	"darksight/pkg/state"
	"darksight/pkg/witness"
)

type result struct {
	Leaves     int
	Operation  string
	Duration   float64 // seconds
	Throughput float64 // ops/sec
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	depth := flag.Int("depth", state.DefaultDepth, "tree depth")
	counts := flag.String("counts", "1000,5000,10000", "comma separated leaf counts")
	dbDir := flag.String("db", "", "benchmark against leveldb stores created in this directory")
	out := flag.String("out", "witness_throughput.csv", "csv output file")
	flag.Parse()

	var results []result
	for _, s := range strings.Split(*counts, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n <= 0 {
			log.Fatal().Str("count", s).Msg("Invalid leaf count")
		}

		tree, closeTree := newTree(*depth, *dbDir, n)
		results = append(results, run(tree, n)...)
		closeTree()
	}

	if err := writeCSV(*out, results); err != nil {
		log.Fatal().Err(err).Msg("Failed to write results")
	}
	log.Info().Str("file", *out).Msg("Throughput results written")
}

func newTree(depth int, dir string, n int) (*state.Tree, func()) {
	if dir == "" {
		tree, err := state.NewTree(depth)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create tree")
		}
		return tree, func() {}
	}

	path := filepath.Join(dir, fmt.Sprintf("bench-%d-%d", depth, n))
	if err := os.RemoveAll(path); err != nil {
		log.Fatal().Err(err).Msg("Failed to clear benchmark db")
	}
	store, err := state.OpenLevelDB(path, 64, 128)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open benchmark db")
	}
	tree, err := state.OpenTree(store, depth)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open tree")
	}
	return tree, func() { store.Close() }
}

// run applies n log entries, then generates n paths, then builds n witnesses
// at fresh indices
func run(tree *state.Tree, n int) []result {
	leaves := make([]field.Element, n)
	for i := range leaves {
		leaves[i] = field.FromUint64(uint64(i) + 1)
	}

	measure := func(op string, f func(i int) error) result {
		start := time.Now()
		for i := 0; i < n; i++ {
			if err := f(i); err != nil {
				log.Fatal().Err(err).Str("op", op).Int("i", i).Msg("Benchmark operation failed")
			}
		}
		d := time.Since(start).Seconds()
		r := result{Leaves: n, Operation: op, Duration: d, Throughput: float64(n) / d}
		log.Info().
			Int("leaves", n).
			Str("op", op).
			Float64("seconds", d).
			Float64("ops_per_sec", r.Throughput).
			Msg("Measured")
		return r
	}

	var results []result
	results = append(results, measure("apply", func(i int) error {
		_, err := tree.Apply(state.LogEntry{Seq: tree.Applied(), Index: uint64(i), Leaf: leaves[i]})
		return err
	}))
	results = append(results, measure("path", func(i int) error {
		path, err := tree.GeneratePath(uint64(i))
		if err != nil {
			return err
		}
		if !tree.Verify(leaves[i], path, tree.CurrentRoot()) {
			return fmt.Errorf("path %d does not verify", i)
		}
		return nil
	}))

	gen := witness.NewGenerator(tree)
	secret := field.FromUint64(42)
	results = append(results, measure("build", func(i int) error {
		blinding, err := crypto.NewBlinding()
		if err != nil {
			return err
		}
		_, err = gen.Build(witness.Request{
			Value:    crypto.ValueFromUint64(uint64(i)),
			Blinding: blinding,
			Secret:   secret,
			Index:    uint64(n + i),
			OldRoot:  tree.CurrentRoot(),
		})
		return err
	}))
	return results
}

func writeCSV(path string, results []result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"leaves", "operation", "duration_seconds", "throughput_ops"}); err != nil {
		return err
	}
	for _, r := range results {
		if err := w.Write([]string{
			fmt.Sprintf("%d", r.Leaves),
			r.Operation,
			fmt.Sprintf("%.6f", r.Duration),
			fmt.Sprintf("%.2f", r.Throughput),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
