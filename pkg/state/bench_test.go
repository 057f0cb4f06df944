package state

import (
	"testing"

	"darksight/pkg/field"
)

func BenchmarkInsert(b *testing.B) {
	tree, err := NewTree(DefaultDepth)
	if err != nil {
		b.Fatal(err)
	}
	leaf := field.FromUint64(7)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := tree.Insert(uint64(i), leaf); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkGeneratePath(b *testing.B) {
	tree, err := NewTree(DefaultDepth)
	if err != nil {
		b.Fatal(err)
	}
	for i := uint64(0); i < 1024; i++ {
		if _, err := tree.Insert(i, field.FromUint64(i+1)); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := tree.GeneratePath(uint64(i) % 1024); err != nil {
			b.Fatal(err)
		}
	}
}
