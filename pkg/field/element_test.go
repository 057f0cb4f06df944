package field

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModulusMatchesBN254(t *testing.T) {
	want, _ := new(big.Int).SetString("21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)
	assert.Equal(t, 0, Modulus().Cmp(want))
}

func TestArithmetic(t *testing.T) {
	a := FromUint64(7)
	b := FromUint64(5)

	assert.True(t, a.Add(b).Equal(FromUint64(12)))
	assert.True(t, a.Sub(b).Equal(FromUint64(2)))
	assert.True(t, a.Mul(b).Equal(FromUint64(35)))
	assert.True(t, a.Square().Equal(FromUint64(49)))

	// b - a wraps around the modulus
	wrapped := b.Sub(a)
	want := new(big.Int).Sub(Modulus(), big.NewInt(2))
	assert.Equal(t, 0, wrapped.BigInt().Cmp(want))
	assert.True(t, wrapped.Add(FromUint64(2)).IsZero())
	assert.True(t, a.Add(a.Neg()).IsZero())
}

func TestInverse(t *testing.T) {
	for i := 0; i < 16; i++ {
		x, err := Random()
		require.NoError(t, err)
		if x.IsZero() {
			continue
		}
		inv, err := x.Inverse()
		require.NoError(t, err)
		assert.True(t, x.Mul(inv).Equal(One()))
	}

	q, err := FromUint64(35).Div(FromUint64(5))
	require.NoError(t, err)
	assert.True(t, q.Equal(FromUint64(7)))
}

func TestInverseOfZero(t *testing.T) {
	_, err := Zero().Inverse()
	assert.True(t, errors.Is(err, ErrDivisionByZero))

	_, err = One().Div(Zero())
	assert.True(t, errors.Is(err, ErrDivisionByZero))
}

func TestFromBytesRejectsNonCanonical(t *testing.T) {
	// modulus itself is out of range
	buf := make([]byte, Bytes)
	Modulus().FillBytes(buf)
	_, err := FromBytes(buf)
	assert.True(t, errors.Is(err, ErrMalformedFieldElement))

	_, err = FromBytes([]byte{1, 2, 3})
	assert.True(t, errors.Is(err, ErrMalformedFieldElement))

	maxValid := new(big.Int).Sub(Modulus(), big.NewInt(1))
	maxValid.FillBytes(buf)
	e, err := FromBytes(buf)
	require.NoError(t, err)
	assert.Equal(t, 0, e.BigInt().Cmp(maxValid))
}

func TestFromBigIntRange(t *testing.T) {
	_, err := FromBigInt(big.NewInt(-1))
	assert.True(t, errors.Is(err, ErrMalformedFieldElement))

	_, err = FromBigInt(Modulus())
	assert.True(t, errors.Is(err, ErrMalformedFieldElement))

	e, err := FromBigInt(big.NewInt(42))
	require.NoError(t, err)
	assert.True(t, e.Equal(FromUint64(42)))
}

func TestReduce(t *testing.T) {
	buf := make([]byte, 40)
	for i := range buf {
		buf[i] = 0xff
	}
	e := Reduce(buf)
	want := new(big.Int).Mod(new(big.Int).SetBytes(buf), Modulus())
	assert.Equal(t, 0, e.BigInt().Cmp(want))
}

func TestHexAndText(t *testing.T) {
	x, err := Random()
	require.NoError(t, err)

	y, err := FromHex(x.Hex())
	require.NoError(t, err)
	assert.True(t, x.Equal(y))

	short, err := FromHex("0x2a")
	require.NoError(t, err)
	assert.True(t, short.Equal(FromUint64(42)))

	text, err := x.MarshalText()
	require.NoError(t, err)
	var z Element
	require.NoError(t, z.UnmarshalText(text))
	assert.True(t, x.Equal(z))

	_, err = FromHex("2a")
	assert.True(t, errors.Is(err, ErrMalformedFieldElement))

	d, err := FromDecimal("1000000")
	require.NoError(t, err)
	assert.Equal(t, "1000000", d.String())
}

func TestSelect(t *testing.T) {
	a := FromUint64(1)
	b := FromUint64(2)
	assert.True(t, Select(0, a, b).Equal(a))
	assert.True(t, Select(1, a, b).Equal(b))
}
