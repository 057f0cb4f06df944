package state

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"darksight/pkg/field"
)

func testLog(t *testing.T, indices ...uint64) []LogEntry {
	t.Helper()
	entries := make([]LogEntry, len(indices))
	for i, index := range indices {
		entries[i] = LogEntry{Seq: uint64(i), Index: index, Leaf: testLeaf(t, index)}
	}
	return entries
}

func TestApplyInOrder(t *testing.T) {
	tree := newTestTree(t, 4)
	entries := testLog(t, 0, 1, 2)

	for _, e := range entries {
		_, err := tree.Apply(e)
		require.NoError(t, err)
	}
	assert.Equal(t, uint64(3), tree.Applied())

	for _, e := range entries {
		path, err := tree.GeneratePath(e.Index)
		require.NoError(t, err)
		assert.True(t, tree.Verify(e.Leaf, path, tree.CurrentRoot()))
	}
}

func TestApplyRejectsOutOfOrder(t *testing.T) {
	tree := newTestTree(t, 4)
	entries := testLog(t, 0, 1, 2)

	_, err := tree.Apply(entries[1])
	assert.True(t, errors.Is(err, ErrOutOfOrder))

	_, err = tree.Apply(entries[0])
	require.NoError(t, err)
	root := tree.CurrentRoot()

	// replaying an applied entry is rejected by Apply
	_, err = tree.Apply(entries[0])
	assert.True(t, errors.Is(err, ErrOutOfOrder))
	_, err = tree.Apply(entries[2])
	assert.True(t, errors.Is(err, ErrOutOfOrder))

	assert.True(t, tree.CurrentRoot().Equal(root))
	assert.Equal(t, uint64(1), tree.Applied())
}

func TestApplyOutOfRange(t *testing.T) {
	tree := newTestTree(t, 4)
	_, err := tree.Apply(LogEntry{Seq: 0, Index: 16, Leaf: field.One()})
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))
	assert.Equal(t, uint64(0), tree.Applied())
}

func TestReplayResumes(t *testing.T) {
	entries := testLog(t, 5, 3, 9, 12)

	full := newTestTree(t, 4)
	want, err := Replay(full, entries)
	require.NoError(t, err)

	store := NewStore(memorydb.New())
	partial, err := OpenTree(store, 4)
	require.NoError(t, err)
	_, err = Replay(partial, entries[:2])
	require.NoError(t, err)

	resumed, err := OpenTree(store, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), resumed.Applied())

	got, err := Replay(resumed, entries)
	require.NoError(t, err)
	assert.True(t, got.Equal(want))
	assert.Equal(t, uint64(4), resumed.Applied())
}

func TestReplayStopsOnGap(t *testing.T) {
	entries := testLog(t, 1, 2, 3)
	entries[2].Seq = 5

	tree := newTestTree(t, 4)
	_, err := Replay(tree, entries)
	assert.True(t, errors.Is(err, ErrOutOfOrder))
	assert.Equal(t, uint64(2), tree.Applied())
}
