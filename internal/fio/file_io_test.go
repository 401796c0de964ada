package fio

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileIO_WriteReadSync(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0.data")

	f, err := NewOSFileIO(path)
	require.NoError(t, err)
	defer f.Close()

	n, err := f.Write([]byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)

	require.NoError(t, f.Sync())

	size, err := f.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(11), size)

	buf := make([]byte, 5)
	n, err = f.Read(buf, 6)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "world", string(buf))
}

func TestOSFileIO_ReopenPreservesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0.data")

	f, err := NewOSFileIO(path)
	require.NoError(t, err)
	_, err = f.Write([]byte("persisted"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	reopened, err := NewOSFileIO(path)
	require.NoError(t, err)
	defer reopened.Close()

	size, err := reopened.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(9), size)

	buf := make([]byte, 9)
	_, err = reopened.Read(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(buf))
}
