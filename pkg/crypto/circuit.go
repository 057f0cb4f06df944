package crypto

import (
	ed "github.com/consensys/gnark-crypto/ecc/twistededwards"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/twistededwards"
	"github.com/consensys/gnark/std/hash/mimc"

	"darksight/pkg/curve"
	"darksight/pkg/field"
)

// valueBits is the bit width of ValueBound
const valueBits = 64

// DepositCircuit is the reference statement for a deposit witness: the
// commitment opens to a bounded value, its leaf sits at LeafIndex under
// NewRoot, the position was empty under OldRoot, and the nullifier belongs to
// Secret and LeafIndex.
type DepositCircuit struct {
	// Public inputs
	CommitmentX frontend.Variable `gnark:",public"`
	CommitmentY frontend.Variable `gnark:",public"`
	Nullifier   frontend.Variable `gnark:",public"`
	OldRoot     frontend.Variable `gnark:",public"`
	NewRoot     frontend.Variable `gnark:",public"`
	LeafIndex   frontend.Variable `gnark:",public"`

	// Private inputs
	Value        frontend.Variable   `gnark:",secret"`
	Blinding     frontend.Variable   `gnark:",secret"`
	Secret       frontend.Variable   `gnark:",secret"`
	PathElements []frontend.Variable `gnark:",secret"`
	PathIndices  []frontend.Variable `gnark:",secret"`
}

// NewDepositCircuit allocates a circuit for a tree of the given depth
func NewDepositCircuit(depth int) *DepositCircuit {
	return &DepositCircuit{
		PathElements: make([]frontend.Variable, depth),
		PathIndices:  make([]frontend.Variable, depth),
	}
}

// Define implements the circuit logic for deposit verification
func (c *DepositCircuit) Define(api frontend.API) error {
	ec, err := twistededwards.NewEdCurve(api, ed.BN254)
	if err != nil {
		return err
	}

	// range check
	api.ToBinary(c.Value, valueBits)

	vG := ec.ScalarMul(constPoint(curve.G()), c.Value)
	rH := ec.ScalarMul(constPoint(curve.H()), c.Blinding)
	commitment := ec.Add(vG, rH)
	api.AssertIsEqual(commitment.X, c.CommitmentX)
	api.AssertIsEqual(commitment.Y, c.CommitmentY)

	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}

	h.Write(TagLeaf.BigInt(), commitment.X, commitment.Y)
	leaf := h.Sum()

	api.AssertIsEqual(c.foldPath(api, &h, leaf), c.NewRoot)
	api.AssertIsEqual(c.foldPath(api, &h, 0), c.OldRoot)

	for _, bit := range c.PathIndices {
		api.AssertIsBoolean(bit)
	}
	api.AssertIsEqual(api.FromBinary(c.PathIndices...), c.LeafIndex)

	h.Reset()
	h.Write(TagNullifier.BigInt(), c.Secret, c.LeafIndex)
	api.AssertIsEqual(h.Sum(), c.Nullifier)

	return nil
}

// foldPath hashes node up through the path; direction 1 means node is the
// right child
func (c *DepositCircuit) foldPath(api frontend.API, h *mimc.MiMC, node frontend.Variable) frontend.Variable {
	for i := range c.PathElements {
		left := api.Select(c.PathIndices[i], c.PathElements[i], node)
		right := api.Select(c.PathIndices[i], node, c.PathElements[i])
		h.Reset()
		h.Write(left, right)
		node = h.Sum()
	}
	return node
}

func constPoint(p curve.Point) twistededwards.Point {
	x, y := p.XY()
	return twistededwards.Point{X: x.BigInt(), Y: y.BigInt()}
}

// Assignment fills a circuit from native values. The blinding factor is
// reduced into the subgroup order so the in-circuit bit decomposition matches.
func Assignment(
	commitment Commitment,
	nullifier Nullifier,
	oldRoot, newRoot field.Element,
	leafIndex uint64,
	siblings []field.Element,
	directions []uint,
	value, blinding, secret field.Element,
) *DepositCircuit {
	x, y := commitment.point.XY()
	w := NewDepositCircuit(len(siblings))
	w.CommitmentX = x.BigInt()
	w.CommitmentY = y.BigInt()
	w.Nullifier = nullifier.BigInt()
	w.OldRoot = oldRoot.BigInt()
	w.NewRoot = newRoot.BigInt()
	w.LeafIndex = leafIndex
	w.Value = value.BigInt()
	w.Blinding = curve.ReduceScalar(blinding).BigInt()
	w.Secret = secret.BigInt()
	for i := range siblings {
		w.PathElements[i] = siblings[i].BigInt()
		w.PathIndices[i] = directions[i]
	}
	return w
}
