package field

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Error types
var (
	ErrDivisionByZero        = errors.New("division by zero")
	ErrMalformedFieldElement = errors.New("malformed field element")
)

// Bytes is the size of a canonical encoded element
const Bytes = fr.Bytes

// invExponent is p-2, the public exponent used for inversion
var invExponent = new(big.Int).Sub(fr.Modulus(), big.NewInt(2))

// Element is an integer modulo the BN254 scalar field prime. The zero value is
// the additive identity. Elements are values: every operation returns a new
// Element and never mutates its operands.
type Element struct {
	v fr.Element
}

// Modulus returns a copy of the field modulus
func Modulus() *big.Int {
	return fr.Modulus()
}

// Zero returns the additive identity
func Zero() Element {
	return Element{}
}

// One returns the multiplicative identity
func One() Element {
	return Element{v: fr.One()}
}

// FromUint64 returns v as a field element
func FromUint64(v uint64) Element {
	return Element{v: fr.NewElement(v)}
}

// FromBigInt returns v as a field element. v must be in [0, modulus).
func FromBigInt(v *big.Int) (Element, error) {
	if v == nil || v.Sign() < 0 || v.Cmp(fr.Modulus()) >= 0 {
		return Element{}, fmt.Errorf("%w: value out of range", ErrMalformedFieldElement)
	}
	var e Element
	e.v.SetBigInt(v)
	return e, nil
}

// FromBytes decodes a 32-byte big-endian canonical encoding
func FromBytes(b []byte) (Element, error) {
	var e Element
	if err := e.v.SetBytesCanonical(b); err != nil {
		return Element{}, fmt.Errorf("%w: %v", ErrMalformedFieldElement, err)
	}
	return e, nil
}

// FromHex decodes a 0x-prefixed hex string of at most 32 bytes
func FromHex(s string) (Element, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return Element{}, fmt.Errorf("%w: %v", ErrMalformedFieldElement, err)
	}
	if len(b) > Bytes {
		return Element{}, fmt.Errorf("%w: %d bytes", ErrMalformedFieldElement, len(b))
	}
	var buf [Bytes]byte
	copy(buf[Bytes-len(b):], b)
	return FromBytes(buf[:])
}

// FromDecimal parses a base 10 string
func FromDecimal(s string) (Element, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Element{}, fmt.Errorf("%w: invalid decimal %q", ErrMalformedFieldElement, s)
	}
	return FromBigInt(v)
}

// Reduce maps an arbitrary big-endian byte string into the field
func Reduce(b []byte) Element {
	var e Element
	e.v.SetBytes(b)
	return e
}

// Random returns a uniformly random element read from crypto/rand
func Random() (Element, error) {
	var e Element
	if _, err := e.v.SetRandom(); err != nil {
		return Element{}, fmt.Errorf("failed to sample field element: %w", err)
	}
	return e, nil
}

// Add returns a + b
func (a Element) Add(b Element) Element {
	var r Element
	r.v.Add(&a.v, &b.v)
	return r
}

// Sub returns a - b
func (a Element) Sub(b Element) Element {
	var r Element
	r.v.Sub(&a.v, &b.v)
	return r
}

// Mul returns a * b
func (a Element) Mul(b Element) Element {
	var r Element
	r.v.Mul(&a.v, &b.v)
	return r
}

// Square returns a * a
func (a Element) Square() Element {
	var r Element
	r.v.Square(&a.v)
	return r
}

// Neg returns -a
func (a Element) Neg() Element {
	var r Element
	r.v.Neg(&a.v)
	return r
}

// Inverse returns a⁻¹. The exponentiation by p-2 only branches on the public
// exponent, so the running time does not depend on a.
func (a Element) Inverse() (Element, error) {
	if a.v.IsZero() {
		return Element{}, ErrDivisionByZero
	}
	var r Element
	r.v.Exp(a.v, invExponent)
	return r, nil
}

// Div returns a / b
func (a Element) Div(b Element) (Element, error) {
	inv, err := b.Inverse()
	if err != nil {
		return Element{}, err
	}
	return a.Mul(inv), nil
}

// Equal reports whether a == b in constant time
func (a Element) Equal(b Element) bool {
	return a.v.Equal(&b.v)
}

// IsZero reports whether a is the additive identity
func (a Element) IsZero() bool {
	return a.v.IsZero()
}

// Select returns a when c == 0 and b otherwise, without branching on c
func Select(c int, a, b Element) Element {
	var r Element
	r.v.Select(c, &a.v, &b.v)
	return r
}

// Bytes returns the 32-byte big-endian canonical encoding
func (a Element) Bytes() [Bytes]byte {
	return a.v.Bytes()
}

// Marshal returns the canonical encoding as a slice
func (a Element) Marshal() []byte {
	b := a.v.Bytes()
	return b[:]
}

// Hex returns the 0x-prefixed canonical encoding
func (a Element) Hex() string {
	return hexutil.Encode(a.Marshal())
}

// String returns the decimal representation
func (a Element) String() string {
	return a.v.String()
}

// BigInt returns the canonical integer value
func (a Element) BigInt() *big.Int {
	return a.v.BigInt(new(big.Int))
}

// Bits returns the regular (non-Montgomery) value as little-endian words
func (a Element) Bits() [4]uint64 {
	return a.v.Bits()
}

// FR exposes the underlying gnark-crypto element
func (a Element) FR() fr.Element {
	return a.v
}

// FromFR wraps a gnark-crypto element
func FromFR(v fr.Element) Element {
	return Element{v: v}
}

// MarshalText implements encoding.TextMarshaler
func (a Element) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *Element) UnmarshalText(text []byte) error {
	e, err := FromHex(string(text))
	if err != nil {
		return err
	}
	*a = e
	return nil
}
