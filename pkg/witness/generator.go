package witness

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"darksight/pkg/crypto"
	"darksight/pkg/field"
	"darksight/pkg/state"
)

// Error types
var (
	ErrStaleRoot       = state.ErrStaleRoot
	ErrValueOutOfRange = errors.New("value exceeds commitment bound")
	ErrMalformedRecord = errors.New("malformed witness record")
)

// Request carries the wallet inputs of one deposit
type Request struct {
	Value    field.Element
	Blinding field.Element
	Secret   field.Element
	Index    uint64
	// OldRoot is the root the caller observed before requesting the witness
	OldRoot state.Root
}

// Generator assembles deposit witnesses against a local tree mirror
type Generator struct {
	tree *state.Tree
}

// NewGenerator creates a generator over tree
func NewGenerator(tree *state.Tree) *Generator {
	return &Generator{tree: tree}
}

// Tree returns the mirror the generator writes to
func (g *Generator) Tree() *state.Tree {
	return g.tree
}

// Build commits to the value, inserts the commitment at req.Index and derives
// the nullifier. It fails with ErrStaleRoot, leaving the tree untouched, when
// the tree has moved past req.OldRoot.
func (g *Generator) Build(req Request) (*Record, error) {
	if req.Value.BigInt().Cmp(crypto.ValueBound) >= 0 {
		return nil, fmt.Errorf("%w: %s", ErrValueOutOfRange, req.Value)
	}

	commitment := crypto.Commit(req.Value, req.Blinding)
	nullifier := crypto.DeriveNullifier(req.Secret, crypto.IndexElement(req.Index))

	newRoot, path, err := g.tree.InsertIfRoot(req.OldRoot, req.Index, commitment.Leaf())
	if err != nil {
		return nil, fmt.Errorf("failed to insert commitment at %d: %w", req.Index, err)
	}

	log.Info().
		Uint64("index", req.Index).
		Str("commitment", commitment.Hex()).
		Str("old_root", req.OldRoot.Hex()).
		Str("new_root", newRoot.Hex()).
		Msg("Built deposit witness")

	return &Record{
		Commitment: commitment,
		Nullifier:  nullifier,
		Path:       path,
		OldRoot:    req.OldRoot,
		NewRoot:    newRoot,
	}, nil
}
