package fio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemFileIO_WriteReadSize(t *testing.T) {
	f := NewMemFileIO()

	n, err := f.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = f.Write([]byte("def"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	size, err := f.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(6), size)

	buf := make([]byte, 6)
	n, err = f.Read(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, "abcdef", string(buf))
}

func TestMemFileIO_ReadPastEnd(t *testing.T) {
	f := NewMemFileIO()
	_, err := f.Write([]byte("abc"))
	require.NoError(t, err)

	buf := make([]byte, 4)
	n, err := f.Read(buf, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
