package state

import (
	"darksight/pkg/crypto"
	"darksight/pkg/field"
)

// Path is the authentication path of one leaf. Siblings[i] and Directions[i]
// belong to level i, leaves first. Direction 1 means the current node is the
// right child.
type Path struct {
	Index      uint64          `json:"index"`
	Siblings   []field.Element `json:"siblings"`
	Directions []uint          `json:"directions"`
}

// Depth returns the number of levels the path covers
func (p Path) Depth() int {
	return len(p.Siblings)
}

// ComputeRoot folds leaf up through the path. It returns false when the path
// is malformed.
func (p Path) ComputeRoot(leaf field.Element) (Root, bool) {
	if len(p.Siblings) != len(p.Directions) || len(p.Siblings) == 0 || len(p.Siblings) > MaxDepth {
		return Root{}, false
	}

	node := leaf
	for i, sibling := range p.Siblings {
		switch p.Directions[i] {
		case 0:
			node = crypto.HashNode(node, sibling)
		case 1:
			node = crypto.HashNode(sibling, node)
		default:
			return Root{}, false
		}
	}
	return node, true
}

// VerifyPath reports whether path authenticates leaf under root. It does not
// consult any tree state.
func VerifyPath(leaf field.Element, path Path, root Root) bool {
	computed, ok := path.ComputeRoot(leaf)
	return ok && computed.Equal(root)
}
