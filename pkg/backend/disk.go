package backend

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Disk is an os.File-backed layer.Backend. Unlike the teacher's
// DiskBackend, the file is not opened until Open is called: layer.Store
// probes for an Opener and calls it during its own lifecycle open, which
// lets CreateIfMissing decide whether a missing path is an error.
type Disk struct {
	path            string
	createIfMissing bool

	mu   sync.Mutex
	file *os.File
}

// NewDisk returns a Disk backend for path. createIfMissing should mirror
// the value passed as layer.Options.CreateIfMissing for the owning
// Store: when false, Open fails instead of creating the file, so the
// store can surface layer.ErrNotFound.
func NewDisk(path string, createIfMissing bool) *Disk {
	return &Disk{path: path, createIfMissing: createIfMissing}
}

func (d *Disk) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file != nil {
		return nil
	}
	flags := os.O_RDWR
	if d.createIfMissing {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(d.path, flags, 0644)
	if err != nil {
		return fmt.Errorf("backend: open %s: %w", d.path, err)
	}
	d.file = f
	return nil
}

func (d *Disk) ReadAt(buf []byte, offset int64) (int, error) {
	d.mu.Lock()
	f := d.file
	d.mu.Unlock()
	if f == nil {
		return 0, os.ErrClosed
	}
	return f.ReadAt(buf, offset)
}

func (d *Disk) WriteAt(buf []byte, offset int64) (int, error) {
	d.mu.Lock()
	f := d.file
	d.mu.Unlock()
	if f == nil {
		return 0, os.ErrClosed
	}
	return f.WriteAt(buf, offset)
}

// DeleteAt zero-fills the range; a plain file has no sparse-punch
// primitive available portably, so deletion is a literal overwrite with
// zeros rather than a hole punch.
func (d *Disk) DeleteAt(offset, size int64) error {
	d.mu.Lock()
	f := d.file
	d.mu.Unlock()
	if f == nil {
		return os.ErrClosed
	}
	zeros := make([]byte, size)
	_, err := f.WriteAt(zeros, offset)
	return err
}

func (d *Disk) Truncate(size int64) error {
	d.mu.Lock()
	f := d.file
	d.mu.Unlock()
	if f == nil {
		return os.ErrClosed
	}
	return f.Truncate(size)
}

func (d *Disk) Stat() (int64, error) {
	d.mu.Lock()
	f := d.file
	d.mu.Unlock()
	if f == nil {
		return 0, os.ErrClosed
	}
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (d *Disk) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

func (d *Disk) Unlink() error {
	if err := d.Close(); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Remove(d.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("backend: remove %s: %w", d.path, err)
	}
	return nil
}

var _ io.Closer = (*Disk)(nil)
