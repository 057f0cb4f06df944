package crypto

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"darksight/pkg/curve"
	"darksight/pkg/field"
)

// ValueBound is the exclusive upper bound on committed amounts. The range
// check itself is enforced by the proving circuit.
var ValueBound = new(big.Int).Lsh(big.NewInt(1), 64)

// Commitment is a Pedersen commitment C = value·G + blinding·H. It carries
// nothing but the curve point.
type Commitment struct {
	point curve.Point
}

// ValueFromUint64 converts an amount into the field
func ValueFromUint64(v uint64) field.Element {
	return field.FromUint64(v)
}

// NewBlinding draws a full-entropy blinding factor
func NewBlinding() (field.Element, error) {
	return field.Random()
}

// Commit returns value·G + blinding·H
func Commit(value, blinding field.Element) Commitment {
	vG := curve.G().ScalarMul(value)
	rH := curve.H().ScalarMul(blinding)
	return Commitment{point: vG.Add(rH)}
}

// Open reports whether (value, blinding) opens c
func (c Commitment) Open(value, blinding field.Element) bool {
	return c.Equal(Commit(value, blinding))
}

// Add returns the homomorphic sum: Commit(v1, r1) + Commit(v2, r2) = Commit(v1+v2, r1+r2)
func (c Commitment) Add(other Commitment) Commitment {
	return Commitment{point: c.point.Add(other.point)}
}

// Equal reports whether both commitments are the same point
func (c Commitment) Equal(other Commitment) bool {
	return c.point.Equal(other.point)
}

// Leaf returns the field element inserted into the commitment tree
func (c Commitment) Leaf() field.Element {
	x, y := c.point.XY()
	return HashLeaf(x, y)
}

// DecimalEncoding returns the point as the two decimal strings a circuit
// prover takes for its public commitment input
func (c Commitment) DecimalEncoding() []string {
	x, y := c.point.XY()
	return []string{x.String(), y.String()}
}

// Bytes returns the compressed point
func (c Commitment) Bytes() [curve.PointBytes]byte {
	return c.point.Bytes()
}

// Hex returns the 0x-prefixed compressed point
func (c Commitment) Hex() string {
	b := c.point.Bytes()
	return hexutil.Encode(b[:])
}

// CommitmentFromBytes decodes a compressed commitment
func CommitmentFromBytes(b []byte) (Commitment, error) {
	p, err := curve.FromBytes(b)
	if err != nil {
		return Commitment{}, fmt.Errorf("invalid commitment: %w", err)
	}
	return Commitment{point: p}, nil
}

// MarshalText implements encoding.TextMarshaler
func (c Commitment) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *Commitment) UnmarshalText(text []byte) error {
	b, err := hexutil.Decode(string(text))
	if err != nil {
		return fmt.Errorf("invalid commitment: %w", err)
	}
	dec, err := CommitmentFromBytes(b)
	if err != nil {
		return err
	}
	*c = dec
	return nil
}
