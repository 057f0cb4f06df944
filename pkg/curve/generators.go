package curve

import (
	"encoding/binary"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	"github.com/ethereum/go-ethereum/crypto"
)

// HSeed is the public seed H is derived from
const HSeed = "darksight/pedersen/H/v1"

var (
	genOnce sync.Once
	g, h    Point
)

func initGenerators() {
	params := twistededwards.GetEdwardsCurve()
	g = Point{p: params.Base}
	h = hashToPoint([]byte(HSeed))
}

// G returns the value generator (the standard base point of the subgroup)
func G() Point {
	genOnce.Do(initGenerators)
	return g
}

// H returns the blinding generator. It is derived by try-and-increment from a
// public seed, so nobody knows log_G(H).
func H() Point {
	genOnce.Do(initGenerators)
	return h
}

// hashToPoint maps seed to a non-identity point of the prime-order subgroup.
// Candidates y = Keccak256(seed || ctr) are tried until
// x² = (1 - y²) / (a - d·y²) has a root, then the cofactor is cleared.
func hashToPoint(seed []byte) Point {
	params := twistededwards.GetEdwardsCurve()
	var cofactor big.Int
	params.Cofactor.BigInt(&cofactor)

	var ctr [4]byte
	for i := uint32(0); ; i++ {
		binary.BigEndian.PutUint32(ctr[:], i)

		var y, y2, num, den, x fr.Element
		y.SetBytes(crypto.Keccak256(seed, ctr[:]))

		y2.Square(&y)
		num.SetOne()
		num.Sub(&num, &y2)
		den.Mul(&params.D, &y2)
		den.Sub(&params.A, &den)
		if den.IsZero() {
			continue
		}
		x.Div(&num, &den)
		if x.Sqrt(&x) == nil {
			continue
		}

		candidate := twistededwards.NewPointAffine(x, y)
		if !candidate.IsOnCurve() {
			continue
		}
		var p twistededwards.PointAffine
		p.ScalarMultiplication(&candidate, &cofactor)
		if p.IsZero() {
			continue
		}
		return Point{p: p}
	}
}
