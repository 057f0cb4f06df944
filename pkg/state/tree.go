package state

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"darksight/pkg/crypto"
	"darksight/pkg/field"
)

// Tree is a fixed-depth sparse Merkle tree mirroring the on-chain commitment
// tree. Only nodes that differ from the empty subtree hash are stored.
type Tree struct {
	mu         sync.RWMutex
	depth      int
	zeroHashes []field.Element
	nodes      map[nodeKey]field.Element
	root       Root
	applied    uint64
	store      *Store
}

// NewTree creates an empty in-memory tree of the given depth
func NewTree(depth int) (*Tree, error) {
	if depth < 1 || depth > MaxDepth {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidDepth, depth, MaxDepth)
	}

	tree := &Tree{
		depth:      depth,
		zeroHashes: make([]field.Element, depth+1),
		nodes:      make(map[nodeKey]field.Element),
	}

	// Compute zero hashes for empty branches
	tree.zeroHashes[0] = field.Zero()
	for i := 1; i <= depth; i++ {
		tree.zeroHashes[i] = crypto.HashNode(tree.zeroHashes[i-1], tree.zeroHashes[i-1])
	}
	tree.root = tree.zeroHashes[depth]

	return tree, nil
}

// Depth returns the fixed depth of the tree
func (t *Tree) Depth() int {
	return t.depth
}

// EmptyHash returns the root of an empty subtree of the given height.
// EmptyHash(Depth()) is the root of the empty tree.
func (t *Tree) EmptyHash(level int) (field.Element, error) {
	if level < 0 || level > t.depth {
		return field.Element{}, fmt.Errorf("%w: level %d", ErrInvalidDepth, level)
	}
	return t.zeroHashes[level], nil
}

// CurrentRoot returns the cached root
func (t *Tree) CurrentRoot() Root {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root
}

// Applied returns the number of log entries applied so far
func (t *Tree) Applied() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.applied
}

// Len returns the number of leaves that differ from the empty leaf
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for k := range t.nodes {
		if k.level == 0 {
			n++
		}
	}
	return n
}

// Leaf returns the leaf at index, or the empty leaf when unset
func (t *Tree) Leaf(index uint64) (field.Element, error) {
	if err := t.checkIndex(index); err != nil {
		return field.Element{}, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.node(0, index), nil
}

// Insert places leaf at index and returns the new root. An occupied position
// is overwritten.
func (t *Tree) Insert(index uint64, leaf field.Element) (Root, error) {
	if err := t.checkIndex(index); err != nil {
		return Root{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.insertLocked(index, leaf, t.applied); err != nil {
		return Root{}, err
	}
	return t.root, nil
}

// InsertIfRoot inserts leaf only if the current root equals expected, and
// returns the new root together with the path of the inserted leaf. The check,
// the insertion and the path are taken under one lock.
func (t *Tree) InsertIfRoot(expected Root, index uint64, leaf field.Element) (Root, Path, error) {
	if err := t.checkIndex(index); err != nil {
		return Root{}, Path{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.root.Equal(expected) {
		return Root{}, Path{}, fmt.Errorf("%w: expected %s, current %s", ErrStaleRoot, expected.Hex(), t.root.Hex())
	}
	if err := t.insertLocked(index, leaf, t.applied); err != nil {
		return Root{}, Path{}, err
	}
	return t.root, t.pathLocked(index), nil
}

// GeneratePath returns the authentication path for index against the current
// root. Unset siblings default to the empty subtree hash of their level.
func (t *Tree) GeneratePath(index uint64) (Path, error) {
	if err := t.checkIndex(index); err != nil {
		return Path{}, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pathLocked(index), nil
}

// Proof returns the leaf at index with its path and the root the path
// authenticates against, all read under one lock
func (t *Tree) Proof(index uint64) (field.Element, Path, Root, error) {
	if err := t.checkIndex(index); err != nil {
		return field.Element{}, Path{}, Root{}, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.node(0, index), t.pathLocked(index), t.root, nil
}

// Verify reports whether path authenticates leaf under root for this tree's
// depth
func (t *Tree) Verify(leaf field.Element, path Path, root Root) bool {
	if len(path.Siblings) != t.depth {
		return false
	}
	return VerifyPath(leaf, path, root)
}

func (t *Tree) checkIndex(index uint64) error {
	if t.depth < MaxDepth && index>>uint(t.depth) != 0 {
		return fmt.Errorf("%w: %d >= 2^%d", ErrIndexOutOfRange, index, t.depth)
	}
	return nil
}

// node returns the stored node or the empty hash of its level
func (t *Tree) node(level int, index uint64) field.Element {
	if v, ok := t.nodes[nodeKey{level: uint8(level), index: index}]; ok {
		return v
	}
	return t.zeroHashes[level]
}

func (t *Tree) pathLocked(index uint64) Path {
	path := Path{
		Index:      index,
		Siblings:   make([]field.Element, t.depth),
		Directions: make([]uint, t.depth),
	}

	idx := index
	for level := 0; level < t.depth; level++ {
		path.Siblings[level] = t.node(level, idx^1)
		path.Directions[level] = uint(idx & 1)
		idx >>= 1
	}
	return path
}

// insertLocked computes every node on the path first, persists them when a
// store is attached and only then updates memory, so a failed write leaves the
// tree unchanged
func (t *Tree) insertLocked(index uint64, leaf field.Element, applied uint64) error {
	updates := make([]nodeUpdate, 0, t.depth+1)

	node := leaf
	idx := index
	updates = append(updates, t.update(0, idx, node))
	for level := 0; level < t.depth; level++ {
		sibling := t.node(level, idx^1)
		if idx&1 == 1 {
			node = crypto.HashNode(sibling, node)
		} else {
			node = crypto.HashNode(node, sibling)
		}
		idx >>= 1
		updates = append(updates, t.update(level+1, idx, node))
	}

	if t.store != nil {
		if err := t.store.write(updates, checkpoint{Depth: uint8(t.depth), Applied: applied, Root: node.Marshal()}); err != nil {
			return fmt.Errorf("failed to persist insertion at %d: %w", index, err)
		}
	}

	for _, u := range updates {
		if u.empty {
			delete(t.nodes, u.key)
		} else {
			t.nodes[u.key] = u.value
		}
	}
	t.root = node
	t.applied = applied

	log.Debug().
		Uint64("index", index).
		Str("root", node.Hex()).
		Msg("Inserted leaf")

	return nil
}

func (t *Tree) update(level int, index uint64, value field.Element) nodeUpdate {
	return nodeUpdate{
		key:   nodeKey{level: uint8(level), index: index},
		value: value,
		empty: value.Equal(t.zeroHashes[level]),
	}
}
