package state

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Apply inserts one entry of the canonical log. Entries must arrive in order:
// entry.Seq has to equal Applied().
func (t *Tree) Apply(entry LogEntry) (Root, error) {
	if err := t.checkIndex(entry.Index); err != nil {
		return Root{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if entry.Seq != t.applied {
		return Root{}, fmt.Errorf("%w: got seq %d, want %d", ErrOutOfOrder, entry.Seq, t.applied)
	}
	if err := t.insertLocked(entry.Index, entry.Leaf, t.applied+1); err != nil {
		return Root{}, err
	}
	return t.root, nil
}

// Replay applies entries in order and stops at the first failure. Entries
// already applied are skipped so a log can be replayed from its start after a
// restart.
func Replay(tree *Tree, entries []LogEntry) (Root, error) {
	skipped := 0
	for _, entry := range entries {
		if entry.Seq < tree.Applied() {
			skipped++
			continue
		}
		if _, err := tree.Apply(entry); err != nil {
			return Root{}, fmt.Errorf("failed to apply log entry %d: %w", entry.Seq, err)
		}
	}

	root := tree.CurrentRoot()
	log.Info().
		Int("entries", len(entries)).
		Int("skipped", skipped).
		Uint64("applied", tree.Applied()).
		Str("root", root.Hex()).
		Msg("Replayed commitment log")

	return root, nil
}
