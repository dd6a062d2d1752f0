package layer

import (
	"errors"
	"fmt"
	"io/fs"
)

// openLocked implements spec.md §4.H's open state transition. It is
// idempotent and must be called with s.mu held; Read, Write, Delete,
// Truncate, Flush, Stat, Evict and Unlink call it first via ensureUsable
// so an implicit open happens on first use, the way spec.md §4.F
// requires.
func (s *Store) openLocked() error {
	if s.opened {
		return nil
	}

	if o, ok := supportsOpen(s.backend); ok {
		if err := o.Open(); err != nil {
			if !s.opts.CreateIfMissing && errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w: %v", ErrNotFound, err)
			}
			return fmt.Errorf("layer: open backend: %w", err)
		}
	}
	s.fileExists = true

	if st, ok := supportsStat(s.backend); ok {
		if n, err := st.Stat(); err == nil {
			s.size.reconcileAtOpen(n)
		}
		// A stat failure is swallowed per spec.md §4.H: treat as empty.
	}

	s.opened = true
	return nil
}

// Open performs the implicit open explicitly. It is idempotent: calling
// it on an already-open store completes immediately.
func (s *Store) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.unlinked {
		return ErrUnlinked
	}
	return s.openLocked()
}

// Close flushes (if FlushOnClose) and closes the backend. A flush
// failure during close is logged, never returned: spec.md §7 requires
// close to proceed regardless. Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	if s.opts.FlushOnClose {
		if err := s.flushLocked(0, s.size.current()); err != nil {
			s.logFlushErr(err)
		}
	}

	s.closed = true

	if c, ok := supportsClose(s.backend); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("layer: close backend: %w", err)
		}
	}
	return nil
}

// Unlink ensures the store is open, then deletes the backend entirely if
// it supports that capability; otherwise it clears all in-memory state
// (pages, dirty flags, pins, size) without touching anything durable.
// Unlink is idempotent.
func (s *Store) Unlink() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unlinked {
		return nil
	}
	if err := s.ensureUsable(); err != nil {
		return err
	}

	if u, ok := supportsUnlink(s.backend); ok {
		if err := u.Unlink(); err != nil {
			return fmt.Errorf("layer: unlink backend: %w", err)
		}
	} else {
		s.pins = newPinSet()
		s.cache = newPageCache(s.opts.MaxPages, s.pins)
		s.cache.onEvict = s.handleEvict
		s.mask = nil
		s.size.setExact(0)
	}

	s.unlinked = true
	return nil
}
