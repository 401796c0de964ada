// Package fio provides the abstract file I/O capability that the storage
// engine builds on. It exposes positional reads, append writes, and fsync
// without committing the rest of the engine to any particular backing
// (a plain file today; memory-mapped or buffered backends are drop-in
// replacements since callers only ever see the FileIO interface).
package fio

import (
	"os"
)

// DataFilePerm is the permission mode used when creating new data files.
const DataFilePerm = 0644

// FileIO is the capability a DataFile needs from its backing storage:
// positional reads, append writes, and durability control. Read and Write
// must be safe to call concurrently from different goroutines on the same
// handle - a positional read must never disturb another goroutine's
// append cursor.
type FileIO interface {
	// Read reads len(buf) bytes starting at offset, without disturbing
	// the file's append position.
	Read(buf []byte, offset int64) (int, error)

	// Write appends buf to the end of the file and returns the number
	// of bytes written.
	Write(buf []byte) (int, error)

	// Sync forces any buffered writes to stable storage.
	Sync() error

	// Size returns the current size of the file in bytes.
	Size() (int64, error)

	// Close releases the underlying handle.
	Close() error
}

// OSFileIO wraps a regular os.File opened for append. The kernel
// serializes concurrent Write calls at the byte-range level, and Read uses
// ReadAt (pread), which never touches the file's shared offset, so the two
// can run concurrently without extra locking here.
type OSFileIO struct {
	file *os.File
}

// NewOSFileIO opens (creating if necessary) the file at path for
// read/append access.
func NewOSFileIO(path string) (*OSFileIO, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, DataFilePerm)
	if err != nil {
		return nil, err
	}
	return &OSFileIO{file: file}, nil
}

func (f *OSFileIO) Read(buf []byte, offset int64) (int, error) {
	return f.file.ReadAt(buf, offset)
}

func (f *OSFileIO) Write(buf []byte) (int, error) {
	return f.file.Write(buf)
}

func (f *OSFileIO) Sync() error {
	return f.file.Sync()
}

func (f *OSFileIO) Size() (int64, error) {
	info, err := f.file.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (f *OSFileIO) Close() error {
	return f.file.Close()
}
