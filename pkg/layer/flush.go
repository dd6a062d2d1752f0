package layer

import "fmt"

// Flush writes dirty pages (and zero-fills any logical hole) within
// [offset, offset+size) back through the backend, clearing the dirty
// flag on every page it successfully writes. Dirty pages outside the
// requested range are left untouched. If size extends past the current
// logical size and the backend supports truncation, the backend is
// truncated down to the current size once the range has been written —
// this is what lets a caller finalize a truncate-shrink by flushing the
// store's original, larger range.
func (s *Store) Flush(offset, size int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureUsable(); err != nil {
		return err
	}
	return s.flushLocked(offset, size)
}

func (s *Store) flushLocked(offset, requestedSize int64) error {
	cur := s.size.current()
	size := requestedSize
	if offset+size > cur {
		size = cur - offset
	}
	if size < 0 {
		size = 0
	}

	if w, ok := supportsWrite(s.backend); ok && size > 0 {
		err := s.forEachSpan(offset, size, func(sp pageSpan) error {
			writeAt := sp.pageStart + int64(sp.startInPage)
			writeLen := sp.endInPage - sp.startInPage

			if p, ok := s.cache.get(sp.index); ok {
				buf := make([]byte, writeLen)
				p.readInto(buf, sp.startInPage, sp.endInPage)
				if _, err := w.WriteAt(buf, writeAt); err != nil {
					return fmt.Errorf("layer: flush page %d: %w", sp.index, err)
				}
				p.dirty = false
				return nil
			}

			// No resident page: this is a logical zero-hole inside the
			// flushed range (spec.md §4.G step 3b). Materialize it so the
			// backend doesn't retain stale bytes there.
			zeros := make([]byte, writeLen)
			if _, err := w.WriteAt(zeros, writeAt); err != nil {
				return fmt.Errorf("layer: flush zero-hole at page %d: %w", sp.index, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if cur < offset+requestedSize {
		if t, ok := supportsTruncate(s.backend); ok {
			if err := t.Truncate(cur); err != nil {
				return fmt.Errorf("layer: flush truncate: %w", err)
			}
		}
	}
	return nil
}
