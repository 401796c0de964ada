package index

import (
	"sync"

	"github.com/google/btree"

	"github.com/caskdb/caskdb/internal/data"
)

// btreeItem is the element type stored in the google/btree tree: a key and
// its current position. Ordering is purely by key, byte-lexicographically.
type btreeItem struct {
	key []byte
	pos *data.LogRecordPos
}

func btreeItemLess(a, b btreeItem) bool {
	return compareKeys(a.key, b.key) < 0
}

// btreeIndexer is the default in-memory keydir: an ordered map keyed by
// byte-lexicographic key order, guarded by a reader-writer lock so many
// Gets may proceed alongside at most one mutator.
type btreeIndexer struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[btreeItem]
}

func newBTreeIndexer() *btreeIndexer {
	return &btreeIndexer{
		tree: btree.NewG(32, btreeItemLess),
	}
}

func (idx *btreeIndexer) Put(key []byte, pos *data.LogRecordPos) (bool, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	_, replaced := idx.tree.ReplaceOrInsert(btreeItem{key: key, pos: pos})
	return replaced, nil
}

func (idx *btreeIndexer) Get(key []byte) (*data.LogRecordPos, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	item, ok := idx.tree.Get(btreeItem{key: key})
	if !ok {
		return nil, false
	}
	return item.pos, true
}

func (idx *btreeIndexer) Delete(key []byte) (bool, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	_, existed := idx.tree.Delete(btreeItem{key: key})
	return existed, nil
}

func (idx *btreeIndexer) ListKeys() [][]byte {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	keys := make([][]byte, 0, idx.tree.Len())
	idx.tree.Ascend(func(item btreeItem) bool {
		keys = append(keys, item.key)
		return true
	})
	return keys
}

func (idx *btreeIndexer) Iterator(opts IteratorOptions) IndexIterator {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	items := make([]btreeItem, 0, idx.tree.Len())
	if opts.Reverse {
		idx.tree.Descend(func(item btreeItem) bool {
			items = append(items, item)
			return true
		})
	} else {
		idx.tree.Ascend(func(item btreeItem) bool {
			items = append(items, item)
			return true
		})
	}

	return newSliceIterator(items, opts)
}

func (idx *btreeIndexer) Close() error {
	return nil
}
