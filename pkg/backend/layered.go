package backend

import "github.com/duskfs/layerstore/pkg/layer"

// Layered adapts a *layer.Store so it can serve as the Backend for
// another *layer.Store, realizing spec.md §1's "another instance of
// itself" composition. Every capability call forwards to the inner
// store's equivalent operation.
type Layered struct {
	inner *layer.Store
}

// NewLayered wraps an already-constructed inner store as a Backend.
func NewLayered(inner *layer.Store) *Layered {
	return &Layered{inner: inner}
}

func (l *Layered) Open() error { return l.inner.Open() }

func (l *Layered) ReadAt(buf []byte, offset int64) (int, error) {
	data, err := l.inner.Read(offset, int64(len(buf)))
	if err != nil {
		return 0, err
	}
	return copy(buf, data), nil
}

func (l *Layered) WriteAt(buf []byte, offset int64) (int, error) {
	if err := l.inner.Write(offset, buf); err != nil {
		return 0, err
	}
	return len(buf), nil
}

func (l *Layered) DeleteAt(offset, size int64) error {
	return l.inner.Delete(offset, size)
}

func (l *Layered) Truncate(size int64) error {
	return l.inner.Truncate(size)
}

func (l *Layered) Stat() (int64, error) {
	return l.inner.Stat()
}

func (l *Layered) Close() error {
	return l.inner.Close()
}

func (l *Layered) Unlink() error {
	return l.inner.Unlink()
}
