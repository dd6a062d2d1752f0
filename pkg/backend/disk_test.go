package backend

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.bin")
	d := NewDisk(path, true)
	require.NoError(t, d.Open())
	defer d.Close()

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestDiskOpenWithoutCreateFailsOnMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.bin")
	d := NewDisk(path, false)
	err := d.Open()
	assert.Error(t, err)
}

func TestDiskReadWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.bin")
	d := NewDisk(path, true)
	require.NoError(t, d.Open())
	defer d.Close()

	_, err := d.WriteAt([]byte("payload"), 10)
	require.NoError(t, err)

	buf := make([]byte, 7)
	n, err := d.ReadAt(buf, 10)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, "payload", string(buf))
}

func TestDiskUnlinkRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.bin")
	d := NewDisk(path, true)
	require.NoError(t, d.Open())
	d.WriteAt([]byte("x"), 0)

	require.NoError(t, d.Unlink())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
