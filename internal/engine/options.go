package engine

import "github.com/caskdb/caskdb/internal/index"

// Options configures Open. DirPath and DataFileSize are required;
// SyncWrites and IndexType have meaningful zero values (no per-write fsync,
// default in-memory btree index).
type Options struct {
	// DirPath is the directory data files live in. Created if absent.
	DirPath string

	// DataFileSize is the target maximum number of bytes per data file,
	// enforced at record granularity (a single record is allowed to push
	// a file past this size, never to be split across files).
	DataFileSize int64

	// SyncWrites, if true, fsyncs the active file after every Put/Delete.
	SyncWrites bool

	// IndexType selects the keydir backend.
	IndexType index.Type
}

func (o Options) validate() error {
	if o.DirPath == "" {
		return ErrDirPathIsEmpty
	}
	if o.DataFileSize <= 0 {
		return ErrDataFileSizeTooSmall
	}
	return nil
}
