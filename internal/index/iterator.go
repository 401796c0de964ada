package index

import (
	"bytes"
	"sort"

	"github.com/caskdb/caskdb/internal/data"
)

// sliceIterator is the shared snapshot-vector iterator both Indexer
// backends use: the full traversal order is materialised up front (already
// in the caller's requested direction), so that later writes to the
// Indexer can never change what an in-flight iterator yields.
type sliceIterator struct {
	items []btreeItem
	pos   int
	opts  IteratorOptions
}

func newSliceIterator(items []btreeItem, opts IteratorOptions) *sliceIterator {
	return &sliceIterator{items: items, opts: opts}
}

func (it *sliceIterator) Rewind() {
	it.pos = 0
}

// Seek positions the cursor at the first entry matching the traversal
// direction's "at or past key" relation, via binary search over the
// already-ordered snapshot.
func (it *sliceIterator) Seek(key []byte) {
	it.pos = sort.Search(len(it.items), func(i int) bool {
		cmp := compareKeys(it.items[i].key, key)
		if it.opts.Reverse {
			return cmp <= 0
		}
		return cmp >= 0
	})
}

func (it *sliceIterator) Next() ([]byte, *data.LogRecordPos, bool) {
	for it.pos < len(it.items) {
		item := it.items[it.pos]
		it.pos++
		if len(it.opts.Prefix) == 0 || bytes.HasPrefix(item.key, it.opts.Prefix) {
			return item.key, item.pos, true
		}
	}
	return nil, nil, false
}

func (it *sliceIterator) Close() {}
