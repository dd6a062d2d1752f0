// Package backend provides concrete layer.Backend implementations: an
// in-memory buffer, a file on disk, and a layer.Store used as the
// backend for another layer.Store.
//
// Grounded on the teacher's storage.MemoryBackend and storage.DiskBackend:
// same growable-slice and os.File strategies, generalized to satisfy
// layer's narrower, capability-probed sub-interfaces (io.ReaderAt-style
// short reads at EOF instead of an error) rather than one fixed Backend
// interface.
package backend

import (
	"io"
	"sync"
)

// Memory is an in-memory layer.Backend backed by a growable byte slice.
type Memory struct {
	mu   sync.Mutex
	data []byte
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Open() error { return nil }

// ReadAt follows io.ReaderAt convention: it returns as many bytes as are
// available starting at offset, along with io.EOF if that's fewer than
// len(buf).
func (m *Memory) ReadAt(buf []byte, offset int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if offset < 0 || offset >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(buf, m.data[offset:])
	if n < len(buf) {
		return n, io.EOF
	}
	return n, nil
}

func (m *Memory) WriteAt(buf []byte, offset int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	end := offset + int64(len(buf))
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[offset:], buf)
	return len(buf), nil
}

func (m *Memory) DeleteAt(offset, size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	end := offset + size
	if end > int64(len(m.data)) {
		end = int64(len(m.data))
	}
	for i := offset; i < end; i++ {
		m.data[i] = 0
	}
	return nil
}

func (m *Memory) Truncate(size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if size > int64(len(m.data)) {
		grown := make([]byte, size)
		copy(grown, m.data)
		m.data = grown
	} else {
		m.data = m.data[:size]
	}
	return nil
}

func (m *Memory) Stat() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.data)), nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Unlink() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}

// Bytes returns a copy of the backend's current contents, for tests.
func (m *Memory) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out
}
