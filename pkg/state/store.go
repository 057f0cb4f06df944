package state

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/rs/zerolog/log"

	"darksight/pkg/field"
)

var (
	// nodePrefix + level (1 byte) + index (8 bytes BE) -> 32-byte node
	nodePrefix = []byte("n")

	// checkpointKey -> RLP(checkpoint)
	checkpointKey = []byte("m")
)

// checkpoint is the tree metadata written with every insertion
type checkpoint struct {
	Depth   uint8
	Applied uint64
	Root    []byte
}

// Store persists tree nodes in a key-value database
type Store struct {
	db ethdb.KeyValueStore
}

// NewStore wraps an open key-value database
func NewStore(db ethdb.KeyValueStore) *Store {
	return &Store{db: db}
}

// OpenLevelDB opens (or creates) an on-disk store
func OpenLevelDB(path string, cache, handles int) (*Store, error) {
	db, err := leveldb.New(path, cache, handles, "darksight/tree/", false)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb at %s: %w", path, err)
	}
	return NewStore(db), nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

func nodeDBKey(k nodeKey) []byte {
	key := make([]byte, 0, len(nodePrefix)+1+8)
	key = append(key, nodePrefix...)
	key = append(key, k.level)
	return binary.BigEndian.AppendUint64(key, k.index)
}

func parseNodeDBKey(key []byte) (nodeKey, bool) {
	if len(key) != len(nodePrefix)+1+8 || !bytes.HasPrefix(key, nodePrefix) {
		return nodeKey{}, false
	}
	rest := key[len(nodePrefix):]
	return nodeKey{level: rest[0], index: binary.BigEndian.Uint64(rest[1:])}, true
}

// write commits node updates and the checkpoint in one batch
func (s *Store) write(updates []nodeUpdate, cp checkpoint) error {
	batch := s.db.NewBatch()
	for _, u := range updates {
		key := nodeDBKey(u.key)
		if u.empty {
			if err := batch.Delete(key); err != nil {
				return err
			}
			continue
		}
		if err := batch.Put(key, u.value.Marshal()); err != nil {
			return err
		}
	}

	enc, err := rlp.EncodeToBytes(&cp)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := batch.Put(checkpointKey, enc); err != nil {
		return err
	}
	return batch.Write()
}

func (s *Store) readCheckpoint() (*checkpoint, error) {
	has, err := s.db.Has(checkpointKey)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, nil
	}
	enc, err := s.db.Get(checkpointKey)
	if err != nil {
		return nil, err
	}
	var cp checkpoint
	if err := rlp.DecodeBytes(enc, &cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return &cp, nil
}

// OpenTree loads the tree held by store, or starts an empty tree of the given
// depth when the store is fresh. Every later insertion is written through.
func OpenTree(store *Store, depth int) (*Tree, error) {
	tree, err := NewTree(depth)
	if err != nil {
		return nil, err
	}

	cp, err := store.readCheckpoint()
	if err != nil {
		return nil, err
	}
	if cp == nil {
		tree.store = store
		log.Info().Int("depth", depth).Msg("Initialized empty tree")
		return tree, nil
	}
	if int(cp.Depth) != depth {
		return nil, fmt.Errorf("%w: stored %d, requested %d", ErrDepthMismatch, cp.Depth, depth)
	}

	it := store.db.NewIterator(nodePrefix, nil)
	defer it.Release()
	for it.Next() {
		key, ok := parseNodeDBKey(it.Key())
		if !ok || int(key.level) > depth {
			continue
		}
		value, err := field.FromBytes(it.Value())
		if err != nil {
			return nil, fmt.Errorf("corrupt node at level %d index %d: %w", key.level, key.index, err)
		}
		tree.nodes[key] = value
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate nodes: %w", err)
	}

	root, err := field.FromBytes(cp.Root)
	if err != nil {
		return nil, fmt.Errorf("corrupt checkpoint root: %w", err)
	}
	if !tree.node(depth, 0).Equal(root) {
		return nil, fmt.Errorf("checkpoint root %s does not match stored nodes", root.Hex())
	}
	tree.root = root
	tree.applied = cp.Applied
	tree.store = store

	log.Info().
		Int("depth", depth).
		Uint64("applied", cp.Applied).
		Str("root", root.Hex()).
		Msg("Loaded tree from store")

	return tree, nil
}
