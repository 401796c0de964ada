package data

import (
	"fmt"
	"hash/crc32"
	"log/slog"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"github.com/caskdb/caskdb/internal/fio"
)

// DataFileNameSuffix names every log segment in a database directory.
const DataFileNameSuffix = ".data"

// DataFile is a single numbered, append-only log segment. It owns one
// FileIO handle and tracks how many bytes have been appended to it so the
// engine can decide when to rotate.
type DataFile struct {
	fileID   uint32
	writeOff atomic.Uint64
	io       fio.FileIO
}

// DataFileName returns the on-disk path for file id fileID under dir.
func DataFileName(dir string, fileID uint32) string {
	return filepath.Join(dir, fmt.Sprintf("%d%s", fileID, DataFileNameSuffix))
}

// ParseDataFileID extracts the file id from a data file's base name,
// returning ok=false if name does not look like "<id>.data".
func ParseDataFileID(name string) (uint32, bool) {
	if filepath.Ext(name) != DataFileNameSuffix {
		return 0, false
	}
	stem := name[:len(name)-len(DataFileNameSuffix)]
	id, err := strconv.ParseUint(stem, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(id), true
}

// OpenDataFile opens or creates the data file for fileID under dir. The
// write offset is seeded from the file's current size; callers doing
// recovery replay will reposition it via SetWriteOff once the true tail is
// known.
func OpenDataFile(dir string, fileID uint32) (*DataFile, error) {
	path := DataFileName(dir, fileID)
	ioHandle, err := fio.NewOSFileIO(path)
	if err != nil {
		slog.Error("data: failed to open data file", "path", path, "error", err)
		return nil, fmt.Errorf("failed to open data file %s: %w", path, err)
	}

	size, err := ioHandle.Size()
	if err != nil {
		slog.Error("data: failed to stat data file", "path", path, "error", err)
		return nil, fmt.Errorf("failed to stat data file %s: %w", path, err)
	}

	df := &DataFile{fileID: fileID, io: ioHandle}
	df.writeOff.Store(uint64(size))
	return df, nil
}

// NewDataFileWithIO builds a DataFile from an already-open FileIO handle,
// used by tests that want to exercise DataFile logic against an in-memory
// backend.
func NewDataFileWithIO(fileID uint32, ioHandle fio.FileIO) *DataFile {
	return &DataFile{fileID: fileID, io: ioHandle}
}

// GetFileID returns the file's numeric id.
func (df *DataFile) GetFileID() uint32 {
	return df.fileID
}

// GetWriteOff returns the number of bytes appended so far.
func (df *DataFile) GetWriteOff() uint64 {
	return df.writeOff.Load()
}

// SetWriteOff repositions the write cursor. Used by the engine once
// recovery replay has determined the true tail of the active file.
func (df *DataFile) SetWriteOff(offset uint64) {
	df.writeOff.Store(offset)
}

// ReadRecord decodes the record starting at offset. It returns
// ErrReadEOF if offset is at or past the current write offset, and
// ErrCorruptRecord if the record's declared size runs past the file's
// current write offset (a torn tail record) or its CRC does not match.
func (df *DataFile) ReadRecord(offset uint64) (*LogRecord, int, error) {
	writeOff := df.writeOff.Load()
	if offset >= writeOff {
		return nil, 0, ErrReadEOF
	}

	headerSpan := uint64(MaxLogRecordHeaderSize)
	if remaining := writeOff - offset; headerSpan > remaining {
		headerSpan = remaining
	}

	headerBuf := make([]byte, headerSpan)
	n, err := df.io.Read(headerBuf, int64(offset))
	if err != nil {
		slog.Error("data: failed to read record header", "file_id", df.fileID, "offset", offset, "error", err)
		return nil, 0, fmt.Errorf("failed to read record header at offset %d: %w", offset, err)
	}
	headerBuf = headerBuf[:n]

	header, err := decodeHeader(headerBuf)
	if err != nil {
		return nil, 0, err
	}

	total := header.headerLen + int(header.keySize) + int(header.valueSize) + crc32.Size
	if offset+uint64(total) > writeOff {
		return nil, 0, ErrCorruptRecord
	}

	full := make([]byte, total)
	n, err = df.io.Read(full, int64(offset))
	if err != nil {
		slog.Error("data: failed to read record body", "file_id", df.fileID, "offset", offset, "error", err)
		return nil, 0, fmt.Errorf("failed to read record body at offset %d: %w", offset, err)
	}
	if n != total {
		return nil, 0, ErrCorruptRecord
	}

	record, size, err := Decode(full)
	if err != nil {
		return nil, 0, err
	}
	return record, size, nil
}

// Append writes the pre-encoded record bytes to the tail of the file and
// advances the write offset by the number of bytes written. Either the
// offset advances by exactly len(buf) and the bytes are durable-to-OS, or
// the call fails and the offset is left unchanged.
func (df *DataFile) Append(buf []byte) (uint64, error) {
	n, err := df.io.Write(buf)
	if err != nil {
		slog.Error("data: failed to append record", "file_id", df.fileID, "error", err)
		return 0, fmt.Errorf("failed to append to data file %d: %w", df.fileID, err)
	}
	df.writeOff.Add(uint64(n))
	return uint64(n), nil
}

// Sync forces durability of all prior appends.
func (df *DataFile) Sync() error {
	if err := df.io.Sync(); err != nil {
		slog.Error("data: failed to sync data file", "file_id", df.fileID, "error", err)
		return fmt.Errorf("failed to sync data file %d: %w", df.fileID, err)
	}
	return nil
}

// Close releases the underlying file handle.
func (df *DataFile) Close() error {
	return df.io.Close()
}
