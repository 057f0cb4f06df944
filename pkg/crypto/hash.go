package crypto

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"darksight/pkg/field"
)

// Domain tags. Leaf and nullifier hashes take three inputs with a leading tag,
// tree nodes take two untagged inputs.
var (
	TagLeaf      = field.Reduce(ethcrypto.Keccak256([]byte("darksight/leaf/v1")))
	TagNullifier = field.Reduce(ethcrypto.Keccak256([]byte("darksight/nullifier/v1")))
)

// Hash computes the MiMC (Miyaguchi-Preneel) hash of inputs. gnark's
// std/hash/mimc evaluates the same function inside a circuit.
func Hash(inputs ...field.Element) field.Element {
	h := mimc.NewMiMC()
	for i := range inputs {
		b := inputs[i].Bytes()
		if _, err := h.Write(b[:]); err != nil {
			panic(fmt.Sprintf("mimc rejected canonical element: %v", err))
		}
	}
	return field.Reduce(h.Sum(nil))
}

// HashNode computes a tree node from its children
func HashNode(left, right field.Element) field.Element {
	return Hash(left, right)
}

// HashLeaf computes the tree leaf for a commitment point (x, y)
func HashLeaf(x, y field.Element) field.Element {
	return Hash(TagLeaf, x, y)
}
