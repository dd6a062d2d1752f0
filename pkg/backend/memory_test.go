package backend

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryReadWrite(t *testing.T) {
	m := NewMemory()
	n, err := m.WriteAt([]byte("hello"), 2)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	buf := make([]byte, 5)
	n, err = m.ReadAt(buf, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(buf))
}

func TestMemoryReadAtEOF(t *testing.T) {
	m := NewMemory()
	m.WriteAt([]byte("ab"), 0)

	buf := make([]byte, 5)
	n, err := m.ReadAt(buf, 0)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 2, n)
}

func TestMemoryTruncateGrowsAndShrinks(t *testing.T) {
	m := NewMemory()
	m.WriteAt([]byte("abcdef"), 0)

	require.NoError(t, m.Truncate(3))
	assert.Equal(t, []byte("abc"), m.Bytes())

	require.NoError(t, m.Truncate(5))
	assert.Equal(t, []byte{'a', 'b', 'c', 0, 0}, m.Bytes())
}

func TestMemoryDeleteAtZeroesRange(t *testing.T) {
	m := NewMemory()
	m.WriteAt([]byte("abcdef"), 0)
	require.NoError(t, m.DeleteAt(1, 2))
	assert.Equal(t, []byte{'a', 0, 0, 'd', 'e', 'f'}, m.Bytes())
}

func TestMemoryUnlinkClearsData(t *testing.T) {
	m := NewMemory()
	m.WriteAt([]byte("abc"), 0)
	require.NoError(t, m.Unlink())
	size, err := m.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(0), size)
}
