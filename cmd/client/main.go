package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"darksight/pkg/crypto"
	"darksight/pkg/field"
	"darksight/pkg/rpc"
)

// deposit is one wallet-side deposit and the secrets needed to spend it
type deposit struct {
	value    uint64
	blinding field.Element
	secret   field.Element
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Parse command line flags
	url := flag.String("rpc", "http://127.0.0.1:8645", "URL of the witness service")
	count := flag.Int("n", 10, "Number of deposits to build")
	start := flag.Uint64("index", 0, "First leaf index to deposit at")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := rpc.NewClient(*url)

	// Try connecting a few times with a delay between attempts
	var root *rpc.RootResult
	var err error
	for attempts := 0; attempts < 5; attempts++ {
		if root, err = client.Root(ctx); err != nil {
			log.Warn().Err(err).Int("attempt", attempts+1).Msg("Failed to reach witness service, retrying...")
			time.Sleep(time.Second * 2)
			continue
		}
		break
	}
	if root == nil {
		log.Fatal().Msg("Failed to reach witness service after multiple attempts")
	}

	log.Info().
		Int("depth", root.Depth).
		Int("leaves", root.Leaves).
		Str("root", root.Root.Hex()).
		Msg("Connected to witness service")

	for i := 0; i < *count; i++ {
		d, err := newDeposit()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to generate deposit")
		}
		index := *start + uint64(i)

		rec, err := client.Build(ctx, rpc.BuildParams{
			Value:    fmt.Sprintf("%d", d.value),
			Blinding: &d.blinding,
			Secret:   &d.secret,
			Index:    index,
			OldRoot:  root.Root,
		})
		if err != nil {
			log.Error().Err(err).Uint64("index", index).Msg("Failed to build witness")
			if root, err = client.Root(ctx); err != nil {
				log.Fatal().Err(err).Msg("Failed to refresh root")
			}
			continue
		}

		// check the witness both locally and against the service
		if !rec.Verify() || !rec.Commitment.Open(crypto.ValueFromUint64(d.value), d.blinding) {
			log.Fatal().Uint64("index", index).Msg("Service returned an inconsistent witness")
		}
		valid, err := client.Verify(ctx, rpc.VerifyParams{
			Leaf: rec.Commitment.Leaf(),
			Path: rec.Path,
			Root: rec.NewRoot,
		})
		if err != nil || !valid {
			log.Fatal().Err(err).Uint64("index", index).Msg("Service rejected its own path")
		}

		log.Info().
			Uint64("index", index).
			Uint64("value", d.value).
			Str("nullifier", rec.Nullifier.Hex()).
			Str("new_root", rec.NewRoot.Hex()).
			Msg("Built deposit witness")

		root.Root = rec.NewRoot
	}
}

// newDeposit draws a random value between 1 and 1000 with fresh secrets
func newDeposit() (deposit, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000))
	if err != nil {
		return deposit{}, err
	}
	blinding, err := crypto.NewBlinding()
	if err != nil {
		return deposit{}, err
	}
	secret, err := field.Random()
	if err != nil {
		return deposit{}, err
	}
	return deposit{value: n.Uint64() + 1, blinding: blinding, secret: secret}, nil
}
