package state

import (
	"errors"

	"darksight/pkg/field"
)

// Error types
var (
	ErrIndexOutOfRange = errors.New("leaf index out of range")
	ErrInvalidDepth    = errors.New("invalid tree depth")
	ErrStaleRoot       = errors.New("stale root")
	ErrOutOfOrder      = errors.New("log entry out of order")
	ErrDepthMismatch   = errors.New("persisted tree depth mismatch")
)

// MaxDepth is the deepest supported tree; indices are uint64
const MaxDepth = 64

// DefaultDepth is the depth of the on-chain commitment tree
const DefaultDepth = 32

// Root is the node at level Depth
type Root = field.Element

// nodeKey addresses a node by level (0 = leaves) and index within the level
type nodeKey struct {
	level uint8
	index uint64
}

// nodeUpdate is one node written by an insertion
type nodeUpdate struct {
	key   nodeKey
	value field.Element
	empty bool // value equals the empty hash of its level
}

// LogEntry is one committed leaf of the canonical on-chain log
type LogEntry struct {
	Seq   uint64        `json:"seq"`
	Index uint64        `json:"index"`
	Leaf  field.Element `json:"leaf"`
}
