package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"darksight/pkg/core"
	zkCrypto "darksight/pkg/crypto"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	depth := flag.Int("depth", core.DefaultConfig().TreeDepth, "tree depth the deposit circuit is compiled for")
	outDir := flag.String("out", ".", "directory for deposit.pk, deposit.vk and Verifier.sol")
	flag.Parse()

	// Generate key pairs
	prover, err := zkCrypto.NewProver(*depth)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create prover")
	}
	log.Info().
		Int("depth", *depth).
		Int("constraints", prover.NbConstraints()).
		Msg("Compiled deposit circuit")

	pk := create(filepath.Join(*outDir, "deposit.pk"))
	defer pk.Close()
	vk := create(filepath.Join(*outDir, "deposit.vk"))
	defer vk.Close()
	if err := prover.WriteKeys(pk, vk); err != nil {
		log.Fatal().Err(err).Msg("Failed to write keys")
	}

	sol := create(filepath.Join(*outDir, "Verifier.sol"))
	defer sol.Close()
	if err := prover.ExportSolidity(sol); err != nil {
		log.Fatal().Err(err).Msg("Failed to export verifier")
	}

	log.Info().Str("dir", *outDir).Msg("Wrote deposit circuit keys")
}

func create(path string) *os.File {
	f, err := os.Create(path)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Failed to create file")
	}
	return f
}
