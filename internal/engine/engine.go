// Package engine implements the control plane that binds the append-only
// log file set to the in-memory keydir: the append path, the read path,
// rotation of the active file at a size threshold, and the crash-recovery
// replay that rebuilds the keydir from the logs on open.
package engine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"golang.org/x/exp/slices"

	"github.com/caskdb/caskdb/internal/data"
	"github.com/caskdb/caskdb/internal/index"
)

const initialFileID uint32 = 0

const lockFileName = ".caskdb.lock"

// Engine is a single-node, embedded Bitcask-style key/value store. It owns
// exactly one active DataFile, zero or more sealed older DataFiles, and one
// keydir (Indexer). All exported methods are safe for concurrent use.
type Engine struct {
	options Options

	activeMu   sync.RWMutex
	activeFile *data.DataFile

	olderMu    sync.RWMutex
	olderFiles map[uint32]*data.DataFile

	index index.Indexer

	// fileIDs is set once during Open's directory scan and used only by
	// the recovery replay; it is never mutated afterward.
	fileIDs []uint32

	dirLock *flock.Flock
}

// Open creates or reopens a database directory, rebuilding the keydir from
// whatever log segments are present before returning.
func Open(options Options) (*Engine, error) {
	if err := options.validate(); err != nil {
		return nil, err
	}

	if err := ensureDir(options.DirPath); err != nil {
		return nil, err
	}

	dirLock := flock.New(filepath.Join(options.DirPath, lockFileName))
	locked, err := dirLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("engine: failed to acquire directory lock: %w", err)
	}
	if !locked {
		return nil, ErrDatabaseAlreadyInUse
	}

	fileIDs, err := scanDataFileIDs(options.DirPath)
	if err != nil {
		dirLock.Unlock()
		return nil, err
	}

	engine := &Engine{
		options:    options,
		olderFiles: make(map[uint32]*data.DataFile),
		fileIDs:    fileIDs,
		dirLock:    dirLock,
	}

	if err := engine.openDataFiles(fileIDs); err != nil {
		dirLock.Unlock()
		return nil, err
	}

	idx, err := index.NewIndexer(options.IndexType, options.DirPath, options.SyncWrites)
	if err != nil {
		engine.closeDataFiles()
		dirLock.Unlock()
		return nil, err
	}
	engine.index = idx

	if err := engine.loadIndexFromDataFiles(); err != nil {
		idx.Close()
		engine.closeDataFiles()
		dirLock.Unlock()
		return nil, err
	}

	slog.Info("engine: opened database", "dir", options.DirPath, "files", len(fileIDs), "index_type", options.IndexType.String())
	return engine, nil
}

func ensureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			slog.Error("engine: failed to create database directory", "dir", dir, "error", err)
			return ErrFailedToCreateDatabaseDir
		}
	}
	return nil
}

// scanDataFileIDs enumerates dir for "<id>.data" entries and returns their
// ids sorted ascending. Entries without the ".data" suffix are skipped; a
// ".data" entry whose stem doesn't parse as a uint32 is fatal, since it
// signals a corrupted or misdirected database.
func scanDataFileIDs(dir string) ([]uint32, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Error("engine: failed to read database directory", "dir", dir, "error", err)
		return nil, ErrFailedToReadDatabaseDir
	}

	var ids []uint32
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == lockFileName || name == index.BBoltFileName {
			continue
		}
		if filepath.Ext(name) != data.DataFileNameSuffix {
			continue
		}
		id, ok := data.ParseDataFileID(name)
		if !ok {
			slog.Error("engine: unparseable data file name", "name", name)
			return nil, ErrDataDirectoryCorrupted
		}
		ids = append(ids, id)
	}

	slices.Sort(ids)
	return ids, nil
}

// openDataFiles opens every discovered segment, sealing all but the
// highest-numbered one into olderFiles. If no segments exist, a fresh file
// at initialFileID becomes the active file.
func (e *Engine) openDataFiles(fileIDs []uint32) error {
	if len(fileIDs) == 0 {
		df, err := data.OpenDataFile(e.options.DirPath, initialFileID)
		if err != nil {
			return ErrFailedToOpenDataFile
		}
		e.activeFile = df
		return nil
	}

	for i, id := range fileIDs {
		df, err := data.OpenDataFile(e.options.DirPath, id)
		if err != nil {
			return ErrFailedToOpenDataFile
		}
		if i == len(fileIDs)-1 {
			e.activeFile = df
		} else {
			e.olderFiles[id] = df
		}
	}
	return nil
}

func (e *Engine) closeDataFiles() {
	if e.activeFile != nil {
		e.activeFile.Close()
	}
	for _, df := range e.olderFiles {
		df.Close()
	}
}

// Put stores value under key, rejecting an empty key.
func (e *Engine) Put(key, value []byte) error {
	if len(key) == 0 {
		return ErrKeyIsEmpty
	}

	record := &data.LogRecord{Key: key, Value: value, Type: data.RecordNormal}
	pos, err := e.appendLogRecord(record)
	if err != nil {
		return err
	}

	if _, err := e.index.Put(key, pos); err != nil {
		slog.Error("engine: index update failed after successful append", "key", string(key), "error", err)
		return fmt.Errorf("%w: %v", ErrIndexUpdateFailed, err)
	}

	slog.Info("engine: put", "key", string(key), "file_id", pos.FileID, "offset", pos.Offset, "value_size", len(value))
	return nil
}

// Get returns the value stored under key, or ErrKeyNotFound if it is
// absent (including if it was logically deleted).
func (e *Engine) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, ErrKeyIsEmpty
	}

	pos, ok := e.index.Get(key)
	if !ok {
		return nil, ErrKeyNotFound
	}

	record, err := e.readLogRecord(pos)
	if err != nil {
		return nil, err
	}

	if record.Type == data.RecordDeleted {
		slog.Warn("engine: keydir pointed at a tombstone", "key", string(key))
		return nil, ErrKeyNotFound
	}

	return record.Value, nil
}

// Delete removes key. It is a no-op (no I/O) if key is not present.
func (e *Engine) Delete(key []byte) error {
	if len(key) == 0 {
		return ErrKeyIsEmpty
	}

	if _, ok := e.index.Get(key); !ok {
		return nil
	}

	record := &data.LogRecord{Key: key, Value: nil, Type: data.RecordDeleted}
	if _, err := e.appendLogRecord(record); err != nil {
		return err
	}

	if _, err := e.index.Delete(key); err != nil {
		slog.Error("engine: index delete failed after successful append", "key", string(key), "error", err)
		return fmt.Errorf("%w: %v", ErrIndexUpdateFailed, err)
	}

	slog.Info("engine: delete", "key", string(key))
	return nil
}

// readLogRecord fetches the record pos refers to, from whichever of the
// active or older files owns it.
func (e *Engine) readLogRecord(pos *data.LogRecordPos) (*data.LogRecord, error) {
	e.activeMu.RLock()
	if e.activeFile.GetFileID() == pos.FileID {
		df := e.activeFile
		e.activeMu.RUnlock()
		return e.readFromFile(df, pos)
	}
	e.activeMu.RUnlock()

	e.olderMu.RLock()
	df, ok := e.olderFiles[pos.FileID]
	e.olderMu.RUnlock()
	if !ok {
		return nil, ErrDataFileNotFound
	}
	return e.readFromFile(df, pos)
}

func (e *Engine) readFromFile(df *data.DataFile, pos *data.LogRecordPos) (*data.LogRecord, error) {
	record, _, err := df.ReadRecord(pos.Offset)
	if err != nil {
		slog.Error("engine: failed to read record", "file_id", pos.FileID, "offset", pos.Offset, "error", err)
		return nil, fmt.Errorf("failed to read record at file %d offset %d: %w", pos.FileID, pos.Offset, err)
	}
	return record, nil
}

// appendLogRecord encodes record, rotating the active file first if it
// would overflow options.DataFileSize, then appends under the active-file
// writer lock and returns the position the record landed at.
func (e *Engine) appendLogRecord(record *data.LogRecord) (*data.LogRecordPos, error) {
	e.activeMu.Lock()
	defer e.activeMu.Unlock()

	encoded := data.Encode(record)
	n := uint64(len(encoded))

	if e.activeFile.GetWriteOff()+n > uint64(e.options.DataFileSize) {
		if err := e.rotateLocked(); err != nil {
			return nil, err
		}
	}

	writeOffBefore := e.activeFile.GetWriteOff()
	if _, err := e.activeFile.Append(encoded); err != nil {
		return nil, err
	}

	if e.options.SyncWrites {
		if err := e.activeFile.Sync(); err != nil {
			return nil, err
		}
	}

	return &data.LogRecordPos{FileID: e.activeFile.GetFileID(), Offset: writeOffBefore}, nil
}

// rotateLocked seals the current active file into olderFiles and installs
// a fresh one at the next file id. Callers must already hold activeMu.
func (e *Engine) rotateLocked() error {
	if err := e.activeFile.Sync(); err != nil {
		return err
	}

	sealedID := e.activeFile.GetFileID()
	sealed := e.activeFile

	newFile, err := data.OpenDataFile(e.options.DirPath, sealedID+1)
	if err != nil {
		return ErrFailedToOpenDataFile
	}

	e.olderMu.Lock()
	e.olderFiles[sealedID] = sealed
	e.olderMu.Unlock()

	e.activeFile = newFile
	slog.Info("engine: rotated active file", "sealed_file_id", sealedID, "new_file_id", sealedID+1)
	return nil
}

// ListKeys returns every live key, in ascending order.
func (e *Engine) ListKeys() [][]byte {
	return e.index.ListKeys()
}

// Fold invokes fn with each live key and its current value, in ascending
// key order, stopping early if fn returns false.
func (e *Engine) Fold(fn func(key, value []byte) bool) error {
	it := e.index.Iterator(index.IteratorOptions{})
	defer it.Close()

	for {
		key, pos, ok := it.Next()
		if !ok {
			return nil
		}
		record, err := e.readLogRecord(pos)
		if err != nil {
			return err
		}
		if !fn(key, record.Value) {
			return nil
		}
	}
}

// NewIterator exposes the keydir's ordered traversal directly.
func (e *Engine) NewIterator(opts index.IteratorOptions) index.IndexIterator {
	return e.index.Iterator(opts)
}

// Sync flushes and fsyncs the active file, independent of SyncWrites.
func (e *Engine) Sync() error {
	e.activeMu.RLock()
	defer e.activeMu.RUnlock()
	return e.activeFile.Sync()
}

// Close flushes and syncs the active file, closes every data file handle,
// closes the index, and releases the directory lock.
func (e *Engine) Close() error {
	e.activeMu.Lock()
	defer e.activeMu.Unlock()

	if err := e.activeFile.Sync(); err != nil {
		slog.Error("engine: failed to sync active file on close", "error", err)
	}

	e.closeDataFiles()

	if err := e.index.Close(); err != nil {
		slog.Error("engine: failed to close index", "error", err)
	}

	if err := e.dirLock.Unlock(); err != nil {
		slog.Error("engine: failed to release directory lock", "error", err)
		return fmt.Errorf("engine: failed to release directory lock: %w", err)
	}

	slog.Info("engine: closed database", "dir", e.options.DirPath)
	return nil
}
