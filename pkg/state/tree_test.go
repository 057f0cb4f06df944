package state

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"darksight/pkg/crypto"
	"darksight/pkg/field"
)

func newTestTree(t *testing.T, depth int) *Tree {
	t.Helper()
	tree, err := NewTree(depth)
	require.NoError(t, err)
	return tree
}

func testLeaf(t *testing.T, value uint64) field.Element {
	t.Helper()
	blinding, err := crypto.NewBlinding()
	require.NoError(t, err)
	return crypto.Commit(crypto.ValueFromUint64(value), blinding).Leaf()
}

func TestNewTreeDepthBounds(t *testing.T) {
	for _, depth := range []int{0, -1, MaxDepth + 1} {
		_, err := NewTree(depth)
		assert.True(t, errors.Is(err, ErrInvalidDepth), "depth %d", depth)
	}
	for _, depth := range []int{1, DefaultDepth, MaxDepth} {
		_, err := NewTree(depth)
		assert.NoError(t, err, "depth %d", depth)
	}
}

func TestEmptyRoot(t *testing.T) {
	tree := newTestTree(t, 4)

	empty4, err := tree.EmptyHash(4)
	require.NoError(t, err)
	assert.True(t, tree.CurrentRoot().Equal(empty4))

	empty0, err := tree.EmptyHash(0)
	require.NoError(t, err)
	assert.True(t, empty0.IsZero())

	// every level is the hash of two copies of the level below
	for level := 1; level <= 4; level++ {
		below, _ := tree.EmptyHash(level - 1)
		here, _ := tree.EmptyHash(level)
		assert.True(t, here.Equal(crypto.HashNode(below, below)))
	}

	_, err = tree.EmptyHash(5)
	assert.Error(t, err)

	// the empty root is a public constant of the depth
	other := newTestTree(t, 4)
	assert.True(t, other.CurrentRoot().Equal(tree.CurrentRoot()))
	assert.Equal(t, 0, tree.Len())
}

func TestInsertAndVerifyScenario(t *testing.T) {
	tree := newTestTree(t, 4)
	c5 := testLeaf(t, 500)

	root, err := tree.Insert(5, c5)
	require.NoError(t, err)
	assert.True(t, root.Equal(tree.CurrentRoot()))

	path, err := tree.GeneratePath(5)
	require.NoError(t, err)
	require.Len(t, path.Siblings, 4)
	require.Len(t, path.Directions, 4)
	assert.Equal(t, []uint{1, 0, 1, 0}, path.Directions)

	assert.True(t, tree.Verify(c5, path, tree.CurrentRoot()))
	assert.True(t, VerifyPath(c5, path, root))

	empty4, _ := tree.EmptyHash(4)
	assert.False(t, tree.Verify(c5, path, empty4))
	assert.False(t, tree.Verify(testLeaf(t, 500), path, root))

	leaf, err := tree.Leaf(5)
	require.NoError(t, err)
	assert.True(t, leaf.Equal(c5))
	assert.Equal(t, 1, tree.Len())
}

func TestInsertOutOfRange(t *testing.T) {
	tree := newTestTree(t, 4)
	before := tree.CurrentRoot()

	_, err := tree.Insert(16, testLeaf(t, 1))
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))

	_, err = tree.GeneratePath(16)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))

	_, err = tree.Insert(15, testLeaf(t, 1))
	assert.NoError(t, err)
	assert.False(t, tree.CurrentRoot().Equal(before))
}

func TestSharedAncestorSibling(t *testing.T) {
	only3 := newTestTree(t, 4)
	both := newTestTree(t, 4)

	c3 := testLeaf(t, 3)
	c9 := testLeaf(t, 9)

	_, err := only3.Insert(3, c3)
	require.NoError(t, err)
	_, err = both.Insert(3, c3)
	require.NoError(t, err)
	_, err = both.Insert(9, c9)
	require.NoError(t, err)

	assert.False(t, only3.CurrentRoot().Equal(both.CurrentRoot()))

	path, err := both.GeneratePath(3)
	require.NoError(t, err)
	assert.True(t, both.Verify(c3, path, both.CurrentRoot()))

	// 3 and 9 first meet under the root: the level-3 sibling covers 9
	for level := 0; level < 3; level++ {
		empty, _ := both.EmptyHash(level)
		assert.True(t, path.Siblings[level].Equal(empty), "level %d", level)
	}
	empty3, _ := both.EmptyHash(3)
	assert.False(t, path.Siblings[3].Equal(empty3))

	// the path of 9 still verifies after both insertions
	path9, err := both.GeneratePath(9)
	require.NoError(t, err)
	assert.True(t, both.Verify(c9, path9, both.CurrentRoot()))
}

func TestInsertionOrderIndependent(t *testing.T) {
	a := newTestTree(t, 8)
	b := newTestTree(t, 8)

	leaves := map[uint64]field.Element{
		0:   testLeaf(t, 1),
		1:   testLeaf(t, 2),
		77:  testLeaf(t, 3),
		255: testLeaf(t, 4),
	}
	order := []uint64{0, 1, 77, 255}
	for _, i := range order {
		_, err := a.Insert(i, leaves[i])
		require.NoError(t, err)
	}
	for j := len(order) - 1; j >= 0; j-- {
		_, err := b.Insert(order[j], leaves[order[j]])
		require.NoError(t, err)
	}
	assert.True(t, a.CurrentRoot().Equal(b.CurrentRoot()))

	for _, i := range order {
		path, err := a.GeneratePath(i)
		require.NoError(t, err)
		assert.True(t, a.Verify(leaves[i], path, a.CurrentRoot()), "index %d", i)
	}
}

func TestOverwriteIsLastWriteWins(t *testing.T) {
	tree := newTestTree(t, 4)
	first := testLeaf(t, 1)
	second := testLeaf(t, 2)

	_, err := tree.Insert(7, first)
	require.NoError(t, err)
	_, err = tree.Insert(7, second)
	require.NoError(t, err)

	path, err := tree.GeneratePath(7)
	require.NoError(t, err)
	assert.True(t, tree.Verify(second, path, tree.CurrentRoot()))
	assert.False(t, tree.Verify(first, path, tree.CurrentRoot()))
	assert.Equal(t, 1, tree.Len())

	// writing the empty leaf back restores the empty root
	_, err = tree.Insert(7, field.Zero())
	require.NoError(t, err)
	empty4, _ := tree.EmptyHash(4)
	assert.True(t, tree.CurrentRoot().Equal(empty4))
	assert.Equal(t, 0, tree.Len())
}

func TestReadsDoNotMutate(t *testing.T) {
	tree := newTestTree(t, 4)
	c := testLeaf(t, 11)
	_, err := tree.Insert(11, c)
	require.NoError(t, err)

	root := tree.CurrentRoot()
	first, err := tree.GeneratePath(11)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		path, err := tree.GeneratePath(11)
		require.NoError(t, err)
		assert.Equal(t, first, path)
		assert.True(t, tree.Verify(c, path, root))
		assert.False(t, tree.Verify(c, path, field.One()))
		_, err = tree.GeneratePath(uint64(i))
		require.NoError(t, err)
	}
	assert.True(t, tree.CurrentRoot().Equal(root))
	assert.Equal(t, 1, tree.Len())
}

func TestVerifyRejectsMalformedPath(t *testing.T) {
	tree := newTestTree(t, 4)
	c := testLeaf(t, 2)
	_, err := tree.Insert(2, c)
	require.NoError(t, err)
	root := tree.CurrentRoot()

	path, err := tree.GeneratePath(2)
	require.NoError(t, err)

	bad := path
	bad.Directions = []uint{0, 2, 0, 0}
	assert.False(t, VerifyPath(c, bad, root))

	short := Path{Index: 2, Siblings: path.Siblings[:3], Directions: path.Directions[:3]}
	assert.False(t, tree.Verify(c, short, root))

	mismatched := Path{Index: 2, Siblings: path.Siblings, Directions: path.Directions[:3]}
	assert.False(t, VerifyPath(c, mismatched, root))

	assert.False(t, VerifyPath(c, Path{}, root))
}

func TestInsertIfRoot(t *testing.T) {
	tree := newTestTree(t, 4)
	oldRoot := tree.CurrentRoot()

	c := testLeaf(t, 1)
	newRoot, path, err := tree.InsertIfRoot(oldRoot, 4, c)
	require.NoError(t, err)
	assert.True(t, newRoot.Equal(tree.CurrentRoot()))
	assert.True(t, VerifyPath(c, path, newRoot))

	// the path of the fresh position also folds the empty leaf to the old root
	assert.True(t, VerifyPath(field.Zero(), path, oldRoot))

	// oldRoot is now stale
	_, _, err = tree.InsertIfRoot(oldRoot, 5, testLeaf(t, 2))
	assert.True(t, errors.Is(err, ErrStaleRoot))
	assert.True(t, tree.CurrentRoot().Equal(newRoot))
	leaf, err := tree.Leaf(5)
	require.NoError(t, err)
	assert.True(t, leaf.IsZero())
}

func TestMaxDepthTree(t *testing.T) {
	tree := newTestTree(t, MaxDepth)
	c := testLeaf(t, 1)
	index := ^uint64(0)

	_, err := tree.Insert(index, c)
	require.NoError(t, err)

	path, err := tree.GeneratePath(index)
	require.NoError(t, err)
	require.Len(t, path.Siblings, MaxDepth)
	for _, d := range path.Directions {
		assert.Equal(t, uint(1), d)
	}
	assert.True(t, tree.Verify(c, path, tree.CurrentRoot()))
}

func TestConcurrentInsertsAndReads(t *testing.T) {
	tree := newTestTree(t, 8)

	leaves := make([]field.Element, 64)
	for i := range leaves {
		leaves[i] = testLeaf(t, uint64(i))
	}

	var wg sync.WaitGroup
	for i := range leaves {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := tree.Insert(uint64(i), leaves[i])
			assert.NoError(t, err)
		}(i)
		go func(i int) {
			defer wg.Done()
			_, err := tree.GeneratePath(uint64(i))
			assert.NoError(t, err)
			tree.CurrentRoot()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, len(leaves), tree.Len())

	sequential := newTestTree(t, 8)
	for i := range leaves {
		_, err := sequential.Insert(uint64(i), leaves[i])
		require.NoError(t, err)
	}
	assert.True(t, sequential.CurrentRoot().Equal(tree.CurrentRoot()))

	for i := range leaves {
		path, err := tree.GeneratePath(uint64(i))
		require.NoError(t, err)
		assert.True(t, tree.Verify(leaves[i], path, tree.CurrentRoot()))
	}
}

func TestProofIsConsistent(t *testing.T) {
	tree := newTestTree(t, 4)
	c := testLeaf(t, 8)
	_, err := tree.Insert(8, c)
	require.NoError(t, err)

	leaf, path, root, err := tree.Proof(8)
	require.NoError(t, err)
	assert.True(t, leaf.Equal(c))
	assert.True(t, tree.Verify(leaf, path, root))

	leaf, path, root, err = tree.Proof(0)
	require.NoError(t, err)
	assert.True(t, leaf.IsZero())
	assert.True(t, tree.Verify(leaf, path, root))

	_, _, _, err = tree.Proof(16)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
}
