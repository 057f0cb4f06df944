package state

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"darksight/pkg/field"
)

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(memorydb.New())

	tree, err := OpenTree(store, 6)
	require.NoError(t, err)

	leaves := map[uint64]field.Element{
		2:  testLeaf(t, 10),
		17: testLeaf(t, 20),
		63: testLeaf(t, 30),
	}
	for i, leaf := range leaves {
		_, err := tree.Insert(i, leaf)
		require.NoError(t, err)
	}

	cp, err := store.readCheckpoint()
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, uint8(6), cp.Depth)
	assert.Equal(t, tree.CurrentRoot().Marshal(), cp.Root)

	reopened, err := OpenTree(store, 6)
	require.NoError(t, err)
	assert.True(t, reopened.CurrentRoot().Equal(tree.CurrentRoot()))
	assert.Equal(t, tree.Len(), reopened.Len())

	for i, leaf := range leaves {
		path, err := reopened.GeneratePath(i)
		require.NoError(t, err)
		assert.True(t, reopened.Verify(leaf, path, reopened.CurrentRoot()))

		orig, err := tree.GeneratePath(i)
		require.NoError(t, err)
		assert.Equal(t, orig, path)
	}

	// writes continue through the reopened tree
	_, err = reopened.Insert(40, testLeaf(t, 40))
	require.NoError(t, err)
	again, err := OpenTree(store, 6)
	require.NoError(t, err)
	assert.True(t, again.CurrentRoot().Equal(reopened.CurrentRoot()))
}

func TestStoreDepthMismatch(t *testing.T) {
	store := NewStore(memorydb.New())

	tree, err := OpenTree(store, 4)
	require.NoError(t, err)
	_, err = tree.Insert(1, testLeaf(t, 1))
	require.NoError(t, err)

	_, err = OpenTree(store, 5)
	assert.True(t, errors.Is(err, ErrDepthMismatch))
}

func TestStoreOverwriteToEmptyDeletesNodes(t *testing.T) {
	db := memorydb.New()
	store := NewStore(db)

	tree, err := OpenTree(store, 4)
	require.NoError(t, err)
	_, err = tree.Insert(3, testLeaf(t, 3))
	require.NoError(t, err)
	_, err = tree.Insert(3, field.Zero())
	require.NoError(t, err)

	has, err := db.Has(nodeDBKey(nodeKey{level: 0, index: 3}))
	require.NoError(t, err)
	assert.False(t, has)

	reopened, err := OpenTree(store, 4)
	require.NoError(t, err)
	empty, _ := reopened.EmptyHash(4)
	assert.True(t, reopened.CurrentRoot().Equal(empty))
	assert.Equal(t, 0, reopened.Len())
}

func TestLevelDBStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tree")

	store, err := OpenLevelDB(dir, 16, 16)
	require.NoError(t, err)
	tree, err := OpenTree(store, 8)
	require.NoError(t, err)

	c := testLeaf(t, 99)
	_, err = tree.Apply(LogEntry{Seq: 0, Index: 200, Leaf: c})
	require.NoError(t, err)
	root := tree.CurrentRoot()
	require.NoError(t, store.Close())

	store, err = OpenLevelDB(dir, 16, 16)
	require.NoError(t, err)
	defer store.Close()

	reopened, err := OpenTree(store, 8)
	require.NoError(t, err)
	assert.True(t, reopened.CurrentRoot().Equal(root))
	assert.Equal(t, uint64(1), reopened.Applied())

	leaf, err := reopened.Leaf(200)
	require.NoError(t, err)
	assert.True(t, leaf.Equal(c))
}

func TestNodeKeyEncoding(t *testing.T) {
	k := nodeKey{level: 7, index: 0x0102030405060708}
	enc := nodeDBKey(k)
	assert.Equal(t, []byte{'n', 7, 1, 2, 3, 4, 5, 6, 7, 8}, enc)

	dec, ok := parseNodeDBKey(enc)
	require.True(t, ok)
	assert.Equal(t, k, dec)

	_, ok = parseNodeDBKey(checkpointKey)
	assert.False(t, ok)
}
