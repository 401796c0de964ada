// Package data defines the on-disk record format shared by every data file:
// the LogRecord encoding with its CRC32 integrity check, and the
// LogRecordPos pointer that the keydir uses to address a record.
package data

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// RecordType distinguishes a normal write from a tombstone.
type RecordType = byte

const (
	// RecordNormal marks an ordinary key/value write.
	RecordNormal RecordType = 1
	// RecordDeleted marks a tombstone for a previously-written key.
	RecordDeleted RecordType = 2
)

var (
	// ErrCorruptRecord is returned by Decode when the CRC doesn't match,
	// the record type is unrecognized, or the stream ends before the
	// declared key/value sizes are satisfied.
	ErrCorruptRecord = errors.New("data: corrupt record")

	// ErrReadEOF is an internal sentinel signaling a clean end of file
	// at a record boundary. It is never returned to engine callers.
	ErrReadEOF = errors.New("data: read past end of file")
)

// maxLogRecordHeaderSize bounds the header (type + two varint sizes) a
// caller needs to read before it knows how much of the body remains:
// 1 type byte plus two uint32 varints, each at most binary.MaxVarintLen32.
const maxLogRecordHeaderSize = 1 + 2*binary.MaxVarintLen32

// MaxLogRecordHeaderSize is exported so DataFile can pre-size its header
// read buffer.
const MaxLogRecordHeaderSize = maxLogRecordHeaderSize

// LogRecord is the unit of persistence: a key/value pair or a tombstone.
type LogRecord struct {
	Key   []byte
	Value []byte
	Type  RecordType
}

// LogRecordPos is a pointer into the log set: the file a record lives in
// and its byte offset within that file.
type LogRecordPos struct {
	FileID uint32
	Offset uint64
}

// Encode serializes record into:
//
//	[type:1][key_size:varint][value_size:varint][key][value][crc:4 LE]
//
// and returns the encoded bytes.
func Encode(record *LogRecord) []byte {
	header := make([]byte, maxLogRecordHeaderSize)
	header[0] = record.Type
	n := 1
	n += binary.PutUvarint(header[n:], uint64(len(record.Key)))
	n += binary.PutUvarint(header[n:], uint64(len(record.Value)))

	size := n + len(record.Key) + len(record.Value) + crc32.Size
	buf := make([]byte, size)
	copy(buf, header[:n])
	copy(buf[n:], record.Key)
	copy(buf[n+len(record.Key):], record.Value)

	crc := crc32.ChecksumIEEE(buf[:n+len(record.Key)+len(record.Value)])
	binary.LittleEndian.PutUint32(buf[size-crc32.Size:], crc)

	return buf
}

// Decode reads one record out of buf, which must contain at least the
// full encoded record (header + key + value + crc). It returns the
// decoded record and the total number of bytes it occupied.
func Decode(buf []byte) (*LogRecord, int, error) {
	if len(buf) < 1 {
		return nil, 0, ErrReadEOF
	}

	recType := buf[0]
	if recType != RecordNormal && recType != RecordDeleted {
		return nil, 0, ErrCorruptRecord
	}

	n := 1
	keySize, k := binary.Uvarint(buf[n:])
	if k <= 0 {
		return nil, 0, ErrCorruptRecord
	}
	n += k

	valueSize, v := binary.Uvarint(buf[n:])
	if v <= 0 {
		return nil, 0, ErrCorruptRecord
	}
	n += v

	total := n + int(keySize) + int(valueSize) + crc32.Size
	if len(buf) < total {
		return nil, 0, ErrCorruptRecord
	}

	key := make([]byte, keySize)
	copy(key, buf[n:n+int(keySize)])
	value := make([]byte, valueSize)
	copy(value, buf[n+int(keySize):n+int(keySize)+int(valueSize)])

	wantCRC := binary.LittleEndian.Uint32(buf[total-crc32.Size : total])
	gotCRC := crc32.ChecksumIEEE(buf[:total-crc32.Size])
	if gotCRC != wantCRC {
		return nil, 0, ErrCorruptRecord
	}

	return &LogRecord{Key: key, Value: value, Type: recType}, total, nil
}

// recordHeader is the parsed, but not yet CRC-verified, prefix of a record:
// its type and the declared sizes of its key and value.
type recordHeader struct {
	recType   byte
	keySize   uint64
	valueSize uint64
	// headerLen is the number of bytes the type + two varints occupied.
	headerLen int
}

// decodeHeader parses the fixed type byte and the two size varints from
// the front of buf. It does not validate the CRC or require the key/value
// bytes to be present yet - callers use it to learn how many more bytes to
// read before calling Decode on the assembled record.
func decodeHeader(buf []byte) (*recordHeader, error) {
	if len(buf) < 1 {
		return nil, ErrCorruptRecord
	}
	recType := buf[0]
	if recType != RecordNormal && recType != RecordDeleted {
		return nil, ErrCorruptRecord
	}

	n := 1
	keySize, k := binary.Uvarint(buf[n:])
	if k <= 0 {
		return nil, ErrCorruptRecord
	}
	n += k

	valueSize, v := binary.Uvarint(buf[n:])
	if v <= 0 {
		return nil, ErrCorruptRecord
	}
	n += v

	return &recordHeader{recType: recType, keySize: keySize, valueSize: valueSize, headerLen: n}, nil
}

// EncodePos serializes a LogRecordPos, for use by index backends (such as
// the bbolt-backed keydir) that persist positions rather than keeping them
// purely in memory.
func EncodePos(pos *LogRecordPos) []byte {
	buf := make([]byte, binary.MaxVarintLen32+binary.MaxVarintLen64)
	n := binary.PutUvarint(buf, uint64(pos.FileID))
	n += binary.PutUvarint(buf[n:], pos.Offset)
	return buf[:n]
}

// DecodePos is the inverse of EncodePos.
func DecodePos(buf []byte) (*LogRecordPos, error) {
	fileID, n := binary.Uvarint(buf)
	if n <= 0 {
		return nil, ErrCorruptRecord
	}
	offset, m := binary.Uvarint(buf[n:])
	if m <= 0 {
		return nil, ErrCorruptRecord
	}
	return &LogRecordPos{FileID: uint32(fileID), Offset: offset}, nil
}
