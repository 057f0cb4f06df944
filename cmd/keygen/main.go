package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"darksight/pkg/crypto"
	"darksight/pkg/field"
)

func main() {
	// Configure logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Parse flags
	count := flag.Int("n", 1, "Number of deposit key sets to generate")
	flag.Parse()

	for i := 0; i < *count; i++ {
		// Spend secret, used to derive the nullifier
		secret, err := field.Random()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to generate secret")
		}

		// Blinding factor for the Pedersen commitment
		blinding, err := crypto.NewBlinding()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to generate blinding factor")
		}

		if i > 0 {
			fmt.Println()
		}
		fmt.Println("Generated new deposit keys")
		fmt.Println("--------------------------")
		fmt.Printf("Secret:   %s\n", secret.Hex())
		fmt.Printf("Blinding: %s\n", blinding.Hex())
	}

	fmt.Println("\nTo build a witness with these keys:")
	fmt.Println("./witnessctl build --value <amount> --index <leaf> --secret <secret> --blinding <blinding>")
}
