package index

import (
	"fmt"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/caskdb/caskdb/internal/data"
)

// BBoltFileName is the on-disk index file bbolt-backed databases keep
// alongside the ".data" segments. It is recognised by name and excluded
// from ".data" file enumeration at Open.
const BBoltFileName = "keydir.bbolt"

var keydirBucket = []byte("keydir")

// bboltIndexer is the on-disk B+tree keydir variant: every Put/Get/Delete
// is a short bbolt transaction against a single bucket, and Iterator
// materialises a snapshot slice the same way the in-memory btree backend
// does, via one read-only transaction.
type bboltIndexer struct {
	db *bolt.DB
}

func newBBoltIndexer(dirPath string, syncWrites bool) (*bboltIndexer, error) {
	path := filepath.Join(dirPath, BBoltFileName)
	db, err := bolt.Open(path, 0644, &bolt.Options{
		Timeout: time.Second,
		NoSync:  !syncWrites,
	})
	if err != nil {
		return nil, fmt.Errorf("index: failed to open bbolt index at %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(keydirBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("index: failed to initialize bbolt bucket: %w", err)
	}

	return &bboltIndexer{db: db}, nil
}

func (idx *bboltIndexer) Put(key []byte, pos *data.LogRecordPos) (bool, error) {
	var replaced bool
	err := idx.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(keydirBucket)
		replaced = bucket.Get(key) != nil
		return bucket.Put(key, data.EncodePos(pos))
	})
	if err != nil {
		return false, fmt.Errorf("index: bbolt put failed: %w", err)
	}
	return replaced, nil
}

func (idx *bboltIndexer) Get(key []byte) (*data.LogRecordPos, bool) {
	var pos *data.LogRecordPos
	_ = idx.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(keydirBucket)
		raw := bucket.Get(key)
		if raw == nil {
			return nil
		}
		decoded, err := data.DecodePos(raw)
		if err != nil {
			return err
		}
		pos = decoded
		return nil
	})
	return pos, pos != nil
}

func (idx *bboltIndexer) Delete(key []byte) (bool, error) {
	var existed bool
	err := idx.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(keydirBucket)
		existed = bucket.Get(key) != nil
		if !existed {
			return nil
		}
		return bucket.Delete(key)
	})
	if err != nil {
		return false, fmt.Errorf("index: bbolt delete failed: %w", err)
	}
	return existed, nil
}

func (idx *bboltIndexer) ListKeys() [][]byte {
	var keys [][]byte
	_ = idx.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(keydirBucket)
		return bucket.ForEach(func(k, _ []byte) error {
			cp := make([]byte, len(k))
			copy(cp, k)
			keys = append(keys, cp)
			return nil
		})
	})
	return keys
}

func (idx *bboltIndexer) Iterator(opts IteratorOptions) IndexIterator {
	items := make([]btreeItem, 0)
	_ = idx.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(keydirBucket)
		return bucket.ForEach(func(k, v []byte) error {
			pos, err := data.DecodePos(v)
			if err != nil {
				return err
			}
			key := make([]byte, len(k))
			copy(key, k)
			items = append(items, btreeItem{key: key, pos: pos})
			return nil
		})
	})

	// bucket.ForEach already yields keys in ascending byte order; only
	// reverse needs an explicit flip.
	if opts.Reverse {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}

	return newSliceIterator(items, opts)
}

func (idx *bboltIndexer) Close() error {
	return idx.db.Close()
}
