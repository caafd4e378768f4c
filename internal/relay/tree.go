package relay

import (
	"sort"
	"strings"
)

// Tree is the relay's key-value state: leaf values keyed by full path.
// A path holds either a leaf value or descendants, never both.
type Tree struct {
	leaves map[string][]byte
}

func NewTree() *Tree {
	return &Tree{leaves: make(map[string][]byte)}
}

// Set replaces the subtree at path with a single leaf. Any ancestor that held
// a leaf value is turned into an interior node.
func (t *Tree) Set(path string, value []byte) {
	t.removeSubtree(path)
	for i := strings.LastIndexByte(path, '/'); i > 0; i = strings.LastIndexByte(path[:i], '/') {
		delete(t.leaves, path[:i])
	}
	t.leaves[path] = append([]byte(nil), value...)
}

// Remove deletes path and everything below it. It reports whether anything
// was deleted.
func (t *Tree) Remove(path string) bool {
	return t.removeSubtree(path) > 0
}

func (t *Tree) removeSubtree(path string) int {
	n := 0
	for k := range t.leaves {
		if isWithin(k, path) {
			delete(t.leaves, k)
			n++
		}
	}
	return n
}

// Snapshot returns the current value of path and its descendants.
func (t *Tree) Snapshot(path string) Snapshot {
	snap := Snapshot{Path: path}
	for k, v := range t.leaves {
		if !isWithin(k, path) {
			continue
		}
		if snap.Entries == nil {
			snap.Entries = make(map[string][]byte)
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(k, path), "/")
		snap.Entries[rel] = append([]byte(nil), v...)
	}
	return snap
}

// Len returns the number of leaves.
func (t *Tree) Len() int {
	return len(t.leaves)
}

// Snapshot is the observed state of a path: the leaf stored exactly at Path is
// keyed by "", descendants by their path relative to Path.
type Snapshot struct {
	Path    string            `msgpack:"path"`
	Entries map[string][]byte `msgpack:"entries,omitempty"`
}

// Exists reports whether anything is stored at or below the path.
func (s Snapshot) Exists() bool {
	return len(s.Entries) > 0
}

// Value returns the leaf stored exactly at the path, or nil.
func (s Snapshot) Value() []byte {
	return s.Entries[""]
}

// Children returns the leaves stored directly below the path, keyed by child
// name. Deeper descendants are not included.
func (s Snapshot) Children() map[string][]byte {
	out := make(map[string][]byte)
	for rel, v := range s.Entries {
		if rel == "" || strings.Contains(rel, "/") {
			continue
		}
		out[rel] = v
	}
	return out
}

// Keys returns the relative paths of all entries in sorted order.
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s.Entries))
	for k := range s.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
