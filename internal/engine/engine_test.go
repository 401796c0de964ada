package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caskdb/caskdb/internal/data"
	"github.com/caskdb/caskdb/internal/index"
)

func testOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		DirPath:      t.TempDir(),
		DataFileSize: 1 << 20,
		IndexType:    index.BTree,
	}
}

func TestEngine_BasicRoundTrip(t *testing.T) {
	e, err := Open(testOptions(t))
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Put([]byte("k1"), []byte("v1")))
	require.NoError(t, e.Put([]byte("k2"), []byte("v2")))

	v, err := e.Get([]byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(v))

	v, err = e.Get([]byte("k2"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(v))

	_, err = e.Get([]byte("k3"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestEngine_Overwrite(t *testing.T) {
	e, err := Open(testOptions(t))
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Put([]byte("k"), []byte("a")))
	require.NoError(t, e.Put([]byte("k"), []byte("bb")))
	require.NoError(t, e.Put([]byte("k"), []byte("ccc")))

	v, err := e.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "ccc", string(v))
}

func TestEngine_DeleteThenGet(t *testing.T) {
	e, err := Open(testOptions(t))
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Put([]byte("k"), []byte("v")))
	require.NoError(t, e.Delete([]byte("k")))

	_, err = e.Get([]byte("k"))
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// Deleting an absent key is a no-op, not an error.
	require.NoError(t, e.Delete([]byte("never-existed")))
}

func TestEngine_EmptyKeyRejected(t *testing.T) {
	e, err := Open(testOptions(t))
	require.NoError(t, err)
	defer e.Close()

	assert.ErrorIs(t, e.Put([]byte{}, []byte("v")), ErrKeyIsEmpty)
	assert.ErrorIs(t, e.Delete([]byte{}), ErrKeyIsEmpty)
	_, err = e.Get([]byte{})
	assert.ErrorIs(t, err, ErrKeyIsEmpty)
}

func TestEngine_Rotation(t *testing.T) {
	opts := testOptions(t)
	opts.DataFileSize = 64

	e, err := Open(opts)
	require.NoError(t, err)
	defer e.Close()

	for i := 0; i < 10; i++ {
		key := []byte{'k', byte('0' + i)}
		value := []byte("0123456789")
		require.NoError(t, e.Put(key, value))
	}

	e.olderMu.RLock()
	sealed := len(e.olderFiles)
	e.olderMu.RUnlock()
	assert.GreaterOrEqual(t, sealed+1, 3)

	for i := 0; i < 10; i++ {
		key := []byte{'k', byte('0' + i)}
		v, err := e.Get(key)
		require.NoError(t, err)
		assert.Equal(t, "0123456789", string(v))
	}
}

func TestEngine_CrashRecovery(t *testing.T) {
	opts := testOptions(t)
	opts.SyncWrites = true

	e, err := Open(opts)
	require.NoError(t, err)

	require.NoError(t, e.Put([]byte("k"), []byte("a")))
	require.NoError(t, e.Put([]byte("k"), []byte("bb")))
	require.NoError(t, e.Put([]byte("k"), []byte("ccc")))

	expectedWriteOff := e.activeFile.GetWriteOff()

	// Simulate a crash: release only the advisory directory lock (what the
	// OS would do on process exit) without running the orderly Close path.
	require.NoError(t, e.dirLock.Unlock())

	reopened, err := Open(opts)
	require.NoError(t, err)
	defer reopened.Close()

	v, err := reopened.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "ccc", string(v))
	assert.Equal(t, expectedWriteOff, reopened.activeFile.GetWriteOff())
}

func TestEngine_PrefixIterator(t *testing.T) {
	e, err := Open(testOptions(t))
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Put([]byte("apple"), []byte("1")))
	require.NoError(t, e.Put([]byte("apricot"), []byte("2")))
	require.NoError(t, e.Put([]byte("banana"), []byte("3")))

	it := e.NewIterator(index.IteratorOptions{Prefix: []byte("ap")})
	defer it.Close()

	var keys []string
	for {
		k, _, ok := it.Next()
		if !ok {
			break
		}
		keys = append(keys, string(k))
	}
	assert.Equal(t, []string{"apple", "apricot"}, keys)
}

func TestEngine_ConcurrentSingleProcessLock(t *testing.T) {
	opts := testOptions(t)

	e, err := Open(opts)
	require.NoError(t, err)

	_, err = Open(opts)
	assert.ErrorIs(t, err, ErrDatabaseAlreadyInUse)

	require.NoError(t, e.Close())

	e2, err := Open(opts)
	require.NoError(t, err)
	require.NoError(t, e2.Close())
}

func TestEngine_FoldEarlyExit(t *testing.T) {
	e, err := Open(testOptions(t))
	require.NoError(t, err)
	defer e.Close()

	for _, k := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, e.Put([]byte(k), []byte(k)))
	}

	var calls int
	err = e.Fold(func(key, value []byte) bool {
		calls++
		return calls < 2
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestEngine_BBoltIndexBackend(t *testing.T) {
	opts := testOptions(t)
	opts.IndexType = index.BBolt

	e, err := Open(opts)
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Put([]byte("k"), []byte("v")))
	v, err := e.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "v", string(v))
}

func TestEngine_ListKeys(t *testing.T) {
	e, err := Open(testOptions(t))
	require.NoError(t, err)
	defer e.Close()

	for _, k := range []string{"b", "a", "c"} {
		require.NoError(t, e.Put([]byte(k), []byte("x")))
	}

	keys := e.ListKeys()
	got := make([]string, len(keys))
	for i, k := range keys {
		got[i] = string(k)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

// TestEngine_IndexUpdateFailedAfterAppend forces the degraded window
// documented in SPEC_FULL.md §7/§9: a successful log append whose index
// publish then fails. Closing the bbolt index out from under the engine is
// the simplest way to make Put's index.Put call fail without touching the
// log append path at all.
func TestEngine_IndexUpdateFailedAfterAppend(t *testing.T) {
	opts := testOptions(t)
	opts.IndexType = index.BBolt

	e, err := Open(opts)
	require.NoError(t, err)
	defer e.closeDataFiles()
	defer e.dirLock.Unlock()

	require.NoError(t, e.index.Close())

	err = e.Put([]byte("k"), []byte("v"))
	assert.ErrorIs(t, err, ErrIndexUpdateFailed)
}

// TestEngine_GetReadsThroughToLog walks Get's layering by hand (index lookup
// then log read) and checks the record read back from the data file,
// guarding against drift between the engine and data packages' record shape.
func TestEngine_GetReadsThroughToLog(t *testing.T) {
	e, err := Open(testOptions(t))
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Put([]byte("k"), []byte("v")))

	pos, ok := e.index.Get([]byte("k"))
	require.True(t, ok)

	record, err := e.readLogRecord(pos)
	require.NoError(t, err)
	assert.Equal(t, data.RecordNormal, record.Type)
	assert.Equal(t, "v", string(record.Value))
}
