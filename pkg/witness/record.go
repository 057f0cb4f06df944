package witness

import (
	"encoding/binary"
	"fmt"

	"darksight/pkg/crypto"
	"darksight/pkg/curve"
	"darksight/pkg/field"
	"darksight/pkg/state"
)

// headerSize covers commitment, nullifier, both roots, index and depth
const headerSize = curve.PointBytes + 3*field.Bytes + 8 + 1

// Record is the public part of a deposit witness handed to the prover
type Record struct {
	Commitment crypto.Commitment `json:"commitment"`
	Nullifier  crypto.Nullifier  `json:"nullifier"`
	Path       state.Path        `json:"path"`
	OldRoot    state.Root        `json:"old_root"`
	NewRoot    state.Root        `json:"new_root"`
}

// Index returns the leaf index the record was built for
func (r *Record) Index() uint64 {
	return r.Path.Index
}

// Verify checks that the path carries the commitment to NewRoot and the empty
// leaf to OldRoot. A record built over an occupied index replaces the earlier
// leaf, so its OldRoot does not hold an empty leaf there and Verify reports
// false even though the tree accepted the insertion.
func (r *Record) Verify() bool {
	return state.VerifyPath(r.Commitment.Leaf(), r.Path, r.NewRoot) &&
		state.VerifyPath(field.Zero(), r.Path, r.OldRoot)
}

// MarshalBinary encodes the record as
// commitment ‖ nullifier ‖ oldRoot ‖ newRoot ‖ index (8, BE) ‖ depth (1) ‖
// siblings (depth×32) ‖ directions (depth×1)
func (r *Record) MarshalBinary() ([]byte, error) {
	depth := r.Path.Depth()
	if depth == 0 || depth > state.MaxDepth || len(r.Path.Directions) != depth {
		return nil, fmt.Errorf("%w: path depth %d", ErrMalformedRecord, depth)
	}

	buf := make([]byte, 0, headerSize+depth*(field.Bytes+1))
	c := r.Commitment.Bytes()
	buf = append(buf, c[:]...)
	buf = append(buf, r.Nullifier.Marshal()...)
	buf = append(buf, r.OldRoot.Marshal()...)
	buf = append(buf, r.NewRoot.Marshal()...)
	buf = binary.BigEndian.AppendUint64(buf, r.Path.Index)
	buf = append(buf, byte(depth))
	for _, s := range r.Path.Siblings {
		buf = append(buf, s.Marshal()...)
	}
	for _, d := range r.Path.Directions {
		if d > 1 {
			return nil, fmt.Errorf("%w: direction %d", ErrMalformedRecord, d)
		}
		buf = append(buf, byte(d))
	}
	return buf, nil
}

// UnmarshalBinary decodes a record written by MarshalBinary, rejecting
// non-canonical field elements, invalid points and directions that disagree
// with the index
func (r *Record) UnmarshalBinary(data []byte) error {
	if len(data) < headerSize {
		return fmt.Errorf("%w: %d bytes", ErrMalformedRecord, len(data))
	}
	depth := int(data[headerSize-1])
	if depth == 0 || depth > state.MaxDepth {
		return fmt.Errorf("%w: depth %d", ErrMalformedRecord, depth)
	}
	if len(data) != headerSize+depth*(field.Bytes+1) {
		return fmt.Errorf("%w: %d bytes for depth %d", ErrMalformedRecord, len(data), depth)
	}

	var out Record
	var err error
	off := 0
	next := func(n int) []byte {
		b := data[off : off+n]
		off += n
		return b
	}

	if out.Commitment, err = crypto.CommitmentFromBytes(next(curve.PointBytes)); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	for _, dst := range []*field.Element{&out.Nullifier, &out.OldRoot, &out.NewRoot} {
		if *dst, err = field.FromBytes(next(field.Bytes)); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedRecord, err)
		}
	}
	out.Path.Index = binary.BigEndian.Uint64(next(8))
	next(1)

	if depth < state.MaxDepth && out.Path.Index>>uint(depth) != 0 {
		return fmt.Errorf("%w: index %d exceeds depth %d", ErrMalformedRecord, out.Path.Index, depth)
	}

	out.Path.Siblings = make([]field.Element, depth)
	for i := range out.Path.Siblings {
		if out.Path.Siblings[i], err = field.FromBytes(next(field.Bytes)); err != nil {
			return fmt.Errorf("%w: sibling %d: %w", ErrMalformedRecord, i, err)
		}
	}
	out.Path.Directions = make([]uint, depth)
	for i, b := range next(depth) {
		if uint64(b) != (out.Path.Index>>uint(i))&1 {
			return fmt.Errorf("%w: direction %d does not match index", ErrMalformedRecord, i)
		}
		out.Path.Directions[i] = uint(b)
	}

	*r = out
	return nil
}

// CircuitInputs returns the record as decimal strings keyed the way circom
// style provers expect
func (r *Record) CircuitInputs() map[string]interface{} {
	elements := make([]string, len(r.Path.Siblings))
	for i, s := range r.Path.Siblings {
		elements[i] = s.String()
	}
	indices := make([]uint, len(r.Path.Directions))
	copy(indices, r.Path.Directions)

	return map[string]interface{}{
		"commitment":   r.Commitment.DecimalEncoding(),
		"nullifier":    r.Nullifier.String(),
		"old_root":     r.OldRoot.String(),
		"new_root":     r.NewRoot.String(),
		"pathElements": elements,
		"pathIndices":  indices,
	}
}

// Assignment completes the record with the private inputs for the reference
// deposit circuit
func (r *Record) Assignment(value, blinding, secret field.Element) *crypto.DepositCircuit {
	return crypto.Assignment(
		r.Commitment,
		r.Nullifier,
		r.OldRoot,
		r.NewRoot,
		r.Path.Index,
		r.Path.Siblings,
		r.Path.Directions,
		value, blinding, secret,
	)
}
