package curve

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"

	"darksight/pkg/field"
)

// ErrMalformedPoint is returned when an encoding does not decode to a point of
// the prime-order subgroup
var ErrMalformedPoint = errors.New("malformed curve point")

// PointBytes is the size of a compressed point
const PointBytes = fr.Bytes

// scalarBits is the fixed ladder width; every field element fits in it
const scalarBits = 256

// Point is a point on the twisted Edwards curve embedded in the BN254 scalar
// field (Baby JubJub). The zero value is not a valid point; use Identity.
type Point struct {
	p twistededwards.PointAffine
}

// Identity returns the neutral element (0, 1)
func Identity() Point {
	var p Point
	p.p.Y.SetOne()
	return p
}

// Order returns the order of the prime subgroup
func Order() *big.Int {
	params := twistededwards.GetEdwardsCurve()
	return new(big.Int).Set(&params.Order)
}

// Add returns a + b. Operands may be secret intermediates (v·G, r·H), so the
// sum is taken in projective form and normalized without a gcd inversion.
func (a Point) Add(b Point) Point {
	var pa, pb twistededwards.PointProj
	pa.FromAffine(&a.p)
	pb.FromAffine(&b.p)
	pa.Add(&pa, &pb)
	return fromProj(&pa)
}

// Neg returns -a
func (a Point) Neg() Point {
	var r Point
	r.p.Neg(&a.p)
	return r
}

// ScalarMul returns k·a. The ladder runs a fixed number of iterations over
// complete projective formulas and swaps operands with masked selects, so the
// sequence of field operations does not depend on k.
func (a Point) ScalarMul(k field.Element) Point {
	var base twistededwards.PointProj
	base.FromAffine(&a.p)

	var r0, r1 twistededwards.PointProj
	r0.Y.SetOne()
	r0.Z.SetOne()
	r1.Set(&base)

	bits := k.Bits()
	for i := scalarBits - 1; i >= 0; i-- {
		b := int((bits[i/64] >> uint(i%64)) & 1)
		cswap(&r0, &r1, b)
		r1.Add(&r0, &r1)
		r0.Double(&r0)
		cswap(&r0, &r1, b)
	}

	return fromProj(&r0)
}

// cswap swaps a and b when c == 1
func cswap(a, b *twistededwards.PointProj, c int) {
	var t twistededwards.PointProj
	t.X.Select(c, &a.X, &b.X)
	t.Y.Select(c, &a.Y, &b.Y)
	t.Z.Select(c, &a.Z, &b.Z)
	b.X.Select(c, &b.X, &a.X)
	b.Y.Select(c, &b.Y, &a.Y)
	b.Z.Select(c, &b.Z, &a.Z)
	a.Set(&t)
}

// fromProj normalizes with a Fermat inversion of Z
func fromProj(p *twistededwards.PointProj) Point {
	// complete formulas keep Z non-zero for points of the curve
	zInv, _ := field.FromFR(p.Z).Inverse()
	zi := zInv.FR()

	var r Point
	r.p.X.Mul(&p.X, &zi)
	r.p.Y.Mul(&p.Y, &zi)
	return r
}

// Equal reports whether a and b are the same point
func (a Point) Equal(b Point) bool {
	return a.p.Equal(&b.p)
}

// IsIdentity reports whether a is the neutral element
func (a Point) IsIdentity() bool {
	return a.p.IsZero()
}

// IsOnCurve reports whether a satisfies the curve equation
func (a Point) IsOnCurve() bool {
	return a.p.IsOnCurve()
}

// InSubgroup reports whether a lies in the prime-order subgroup. It uses the
// variable time multiplication and must only be called on public points.
func (a Point) InSubgroup() bool {
	if !a.p.IsOnCurve() {
		return false
	}
	params := twistededwards.GetEdwardsCurve()
	var r twistededwards.PointAffine
	r.ScalarMultiplication(&a.p, &params.Order)
	return r.IsZero()
}

// XY returns the affine coordinates
func (a Point) XY() (field.Element, field.Element) {
	return field.FromFR(a.p.X), field.FromFR(a.p.Y)
}

// Bytes returns the 32-byte compressed encoding
func (a Point) Bytes() [PointBytes]byte {
	return a.p.Bytes()
}

// FromBytes decodes a compressed point, rejecting non-canonical encodings and
// points outside the prime-order subgroup
func FromBytes(b []byte) (Point, error) {
	if len(b) != PointBytes {
		return Point{}, fmt.Errorf("%w: want %d bytes, got %d", ErrMalformedPoint, PointBytes, len(b))
	}
	var p Point
	if _, err := p.p.SetBytes(b); err != nil {
		return Point{}, fmt.Errorf("%w: %v", ErrMalformedPoint, err)
	}
	if !p.InSubgroup() {
		return Point{}, fmt.Errorf("%w: not in prime-order subgroup", ErrMalformedPoint)
	}
	enc := p.p.Bytes()
	if !bytes.Equal(enc[:], b) {
		return Point{}, fmt.Errorf("%w: non-canonical encoding", ErrMalformedPoint)
	}
	return p, nil
}

// FromXY builds a point from affine coordinates
func FromXY(x, y field.Element) (Point, error) {
	p := Point{p: twistededwards.NewPointAffine(x.FR(), y.FR())}
	if !p.InSubgroup() {
		return Point{}, fmt.Errorf("%w: (%s, %s)", ErrMalformedPoint, x, y)
	}
	return p, nil
}

// ReduceScalar returns k mod Order(). k·P is unchanged for subgroup points.
// It runs in variable time and is meant for assembling prover inputs.
func ReduceScalar(k field.Element) field.Element {
	r, _ := field.FromBigInt(new(big.Int).Mod(k.BigInt(), Order()))
	return r
}
