// Package index implements the keydir: the in-memory (or, for the bbolt
// backend, on-disk) index mapping every live key to its most recent
// on-disk position. Concrete backends are selected at engine-open time
// through NewIndexer so the engine itself never depends on a specific
// backend's package.
package index

import (
	"bytes"
	"fmt"

	"github.com/caskdb/caskdb/internal/data"
)

// Type selects a keydir backend.
type Type uint8

const (
	// BTree is the default in-memory ordered index.
	BTree Type = iota
	// BBolt is an on-disk B+tree index.
	BBolt
)

// String renders a Type for logging and config round-tripping.
func (t Type) String() string {
	switch t {
	case BTree:
		return "btree"
	case BBolt:
		return "bbolt"
	default:
		return "unknown"
	}
}

// ParseType maps a config string onto a Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "", "btree":
		return BTree, nil
	case "bbolt":
		return BBolt, nil
	default:
		return 0, fmt.Errorf("index: unknown index type %q", s)
	}
}

// Indexer is the capability set a keydir backend must implement: point
// lookups, mutation, a full-key snapshot, and ordered iteration.
type Indexer interface {
	// Put inserts or overwrites key's position, reporting whether a
	// prior mapping existed.
	Put(key []byte, pos *data.LogRecordPos) (replaced bool, err error)

	// Get returns key's position, or ok=false if key is absent.
	Get(key []byte) (pos *data.LogRecordPos, ok bool)

	// Delete removes key's mapping, reporting whether it existed.
	Delete(key []byte) (existed bool, err error)

	// ListKeys returns every key currently indexed, in ascending order.
	ListKeys() [][]byte

	// Iterator returns a snapshot cursor over the keyspace as of this
	// call, honoring opts.
	Iterator(opts IteratorOptions) IndexIterator

	// Close releases any resources (file handles, etc) the backend
	// holds. It is a no-op for the pure in-memory backend.
	Close() error
}

// IteratorOptions configures an Indexer's traversal.
type IteratorOptions struct {
	// Prefix restricts iteration to keys beginning with Prefix. An
	// empty Prefix matches every key.
	Prefix []byte
	// Reverse iterates in descending lexicographic order instead of
	// ascending.
	Reverse bool
}

// IndexIterator is a lazy, forward-only cursor produced by Indexer.Iterator.
// It is a stable snapshot: later mutations to the Indexer never change what
// an already-constructed iterator yields.
type IndexIterator interface {
	// Rewind returns the cursor to the start of the traversal.
	Rewind()

	// Seek positions the cursor at the first entry >= key (or <= key
	// when Reverse is set). If no such entry exists, the next Next
	// call returns ok=false.
	Seek(key []byte)

	// Next returns the entry at the cursor and advances it, or
	// ok=false once the traversal is exhausted.
	Next() (key []byte, pos *data.LogRecordPos, ok bool)

	// Close releases any resources held by the iterator.
	Close()
}

// NewIndexer constructs the backend selected by typ. dirPath and
// syncWrites are only meaningful for on-disk backends (BBolt); the
// in-memory BTree backend ignores them.
func NewIndexer(typ Type, dirPath string, syncWrites bool) (Indexer, error) {
	switch typ {
	case BTree:
		return newBTreeIndexer(), nil
	case BBolt:
		return newBBoltIndexer(dirPath, syncWrites)
	default:
		return nil, fmt.Errorf("index: unsupported index type %v", typ)
	}
}

// compareKeys orders two keys the way every backend in this package must:
// plain byte-lexicographic order.
func compareKeys(a, b []byte) int {
	return bytes.Compare(a, b)
}
