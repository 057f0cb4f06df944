package crypto

import "darksight/pkg/field"

// Nullifier is the one-time spend tag published when a position is spent
type Nullifier = field.Element

// DeriveNullifier returns Hash(TagNullifier, secret, leafIndex)
func DeriveNullifier(secret, leafIndex field.Element) Nullifier {
	return Hash(TagNullifier, secret, leafIndex)
}

// IndexElement lifts a leaf index into the field
func IndexElement(index uint64) field.Element {
	return field.FromUint64(index)
}
