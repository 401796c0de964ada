package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caskdb/caskdb/internal/fio"
)

func TestDataFile_AppendAndReadRecord(t *testing.T) {
	df := NewDataFileWithIO(1, fio.NewMemFileIO())

	records := []*LogRecord{
		{Key: []byte("alpha"), Value: []byte("one"), Type: RecordNormal},
		{Key: []byte("beta"), Value: []byte("two"), Type: RecordNormal},
		{Key: []byte("alpha"), Value: nil, Type: RecordDeleted},
	}

	var offsets []uint64
	for _, r := range records {
		offsets = append(offsets, df.GetWriteOff())
		_, err := df.Append(Encode(r))
		require.NoError(t, err)
	}

	for i, r := range records {
		got, _, err := df.ReadRecord(offsets[i])
		require.NoError(t, err)
		assert.Equal(t, r.Key, got.Key)
		assert.Equal(t, r.Type, got.Type)
		if len(r.Value) > 0 {
			assert.Equal(t, r.Value, got.Value)
		}
	}
}

func TestDataFile_ReadRecord_EOF(t *testing.T) {
	df := NewDataFileWithIO(1, fio.NewMemFileIO())

	_, err := df.Append(Encode(&LogRecord{Key: []byte("k"), Value: []byte("v"), Type: RecordNormal}))
	require.NoError(t, err)

	_, _, err = df.ReadRecord(df.GetWriteOff())
	assert.ErrorIs(t, err, ErrReadEOF)
}

func TestDataFile_ReadRecord_TornTail(t *testing.T) {
	df := NewDataFileWithIO(1, fio.NewMemFileIO())

	encoded := Encode(&LogRecord{Key: []byte("k"), Value: []byte("value"), Type: RecordNormal})
	_, err := df.Append(encoded[:len(encoded)-3])
	require.NoError(t, err)

	_, _, err = df.ReadRecord(0)
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestParseDataFileID(t *testing.T) {
	id, ok := ParseDataFileID("42.data")
	require.True(t, ok)
	assert.Equal(t, uint32(42), id)

	_, ok = ParseDataFileID("not-a-datafile.txt")
	assert.False(t, ok)
}
