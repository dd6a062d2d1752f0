// Package layer implements a layered random-access byte store: an
// in-memory, page-granular overlay over an arbitrary random-access
// Backend. It absorbs reads and writes at byte granularity, keeps a
// bounded working set of pages resident under LRU discipline, tracks
// dirty pages, and writes them back to the backend on flush, eviction,
// or close.
//
// The design is carried over from the teacher's storage.BufferPool: a
// map keyed by page index, a container/list for LRU order, and a
// dispose hook invoked on eviction — generalized here from fixed-format
// database pages to an arbitrary byte-addressed overlay, with pinning,
// a write bitmask, and a strict size limit layered on top.
package layer

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
)

// Default configuration values, matching spec.md §6.
const (
	DefaultPageSize = 1 << 20 // 1 MiB
	DefaultMaxPages = 100
)

// Options configures a Store. The zero value is not valid; use
// DefaultOptions and override individual fields.
type Options struct {
	// PageSize is the page granularity in bytes.
	PageSize int64
	// MaxPages bounds the number of resident pages under LRU discipline.
	MaxPages int
	// CreateIfMissing selects how a failed backend Open is reported. The
	// Store does not pass it to the backend, which decides by itself
	// whether a missing target is created (see backend.NewDisk). When
	// false, an Open error that reports fs.ErrNotExist is returned as
	// ErrNotFound.
	CreateIfMissing bool
	// StrictSizeEnforcement, when non-nil, rejects any read or write
	// whose range extends past this byte offset.
	StrictSizeEnforcement *int64
	// FlushOnClose flushes the full logical range before Close calls the
	// backend's own Close.
	FlushOnClose bool
	// AutoFlushOnEvict flushes a dirty page through the backend before
	// it's dropped for memory pressure.
	AutoFlushOnEvict bool
	// OnFlushError receives flush failures that spec.md §7 says must be
	// logged rather than propagated (eviction-time and close-time
	// flushes). Defaults to a no-op; cmd/ binaries wire this to log.Printf.
	OnFlushError func(error)
}

// DefaultOptions returns the Store configuration from spec.md §6.
func DefaultOptions() *Options {
	return &Options{
		PageSize:         DefaultPageSize,
		MaxPages:         DefaultMaxPages,
		CreateIfMissing:  true,
		FlushOnClose:     true,
		AutoFlushOnEvict: true,
	}
}

// Store is a layered random-access byte store over a Backend.
type Store struct {
	mu      sync.Mutex
	backend Backend
	opts    Options

	cache *pageCache
	pins  *pinSet
	mask  *bitmaskGate
	size  sizeTracker

	fileExists bool
	opened     bool
	closed     bool
	unlinked   bool
}

// New constructs a Store over backend. A nil opts uses DefaultOptions.
func New(backend Backend, opts *Options) *Store {
	var o Options
	if opts != nil {
		o = *opts
	} else {
		o = *DefaultOptions()
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}

	s := &Store{backend: backend, opts: o}
	s.pins = newPinSet()
	s.cache = newPageCache(o.MaxPages, s.pins)
	s.cache.onEvict = s.handleEvict
	return s
}

func (s *Store) ensureUsable() error {
	if s.closed {
		return ErrClosed
	}
	if s.unlinked {
		return ErrUnlinked
	}
	return s.openLocked()
}

func (s *Store) logFlushErr(err error) {
	if s.opts.OnFlushError != nil {
		s.opts.OnFlushError(err)
	}
}

// handleEvict is the page cache's dispose hook (spec.md §4.B). Pin
// immunity is already enforced by the cache before this is invoked; this
// only decides whether a dirty page gets one last flush on its way out.
func (s *Store) handleEvict(p *page) {
	if !p.dirty || !s.opts.AutoFlushOnEvict {
		return
	}
	if err := s.flushPageLocked(p); err != nil {
		s.logFlushErr(err)
	}
}

func (s *Store) flushPageLocked(p *page) error {
	w, ok := supportsWrite(s.backend)
	if !ok {
		p.dirty = false
		return nil
	}
	if len(p.data) == 0 {
		p.dirty = false
		return nil
	}
	absOffset := int64(p.index) * s.opts.PageSize
	if _, err := w.WriteAt(p.data, absOffset); err != nil {
		return fmt.Errorf("layer: flush page %d on evict: %w", p.index, err)
	}
	p.dirty = false
	return nil
}

// pageSpan describes one page's contribution to a byte-range operation.
type pageSpan struct {
	index       uint64
	pageStart   int64
	startInPage int
	endInPage   int
}

// forEachSpan splits [offset, offset+size) into per-page spans, in order,
// the way spec.md §4.F and §4.G both describe their page loops.
func (s *Store) forEachSpan(offset, size int64, visit func(pageSpan) error) error {
	if size <= 0 {
		return nil
	}
	ps := s.opts.PageSize
	idx := uint64(offset / ps)
	written := int64(0)
	for written < size {
		pageStart := int64(idx) * ps
		startInPage := int(offset + written - pageStart)
		remaining := size - written
		endInPage := startInPage + int(remaining)
		if endInPage > int(ps) {
			endInPage = int(ps)
		}
		if err := visit(pageSpan{idx, pageStart, startInPage, endInPage}); err != nil {
			return err
		}
		written += int64(endInPage - startInPage)
		idx++
	}
	return nil
}

// loadOrFetch returns the resident page at idx, loading it from the
// backend on a cache miss. The load always attempts a backend read
// first — per spec.md §9's design note, create-on-write without
// read-before-write can silently corrupt a page whose on-backend bytes
// outside the write range are non-zero, so the safe default is to always
// read through before materializing an empty page.
func (s *Store) loadOrFetch(idx uint64) (*page, error) {
	if p, ok := s.cache.get(idx); ok {
		return p, nil
	}
	p := newPage(idx)
	if s.fileExists {
		if r, ok := supportsRead(s.backend); ok {
			buf := make([]byte, s.opts.PageSize)
			pageStart := int64(idx) * s.opts.PageSize
			n, err := r.ReadAt(buf, pageStart)
			if err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("layer: load page %d: %w", idx, err)
			}
			if n > 0 {
				p.data = buf[:n]
			}
		}
	}
	s.cache.insert(p)
	return p, nil
}

func (s *Store) markDirty(p *page) {
	p.dirty = true
	if !s.pins.isPinned(p.index) {
		s.cache.touch(p)
	}
}

func (s *Store) withinStrictLimit(offset, size int64) bool {
	if s.opts.StrictSizeEnforcement == nil {
		return true
	}
	return offset+size <= *s.opts.StrictSizeEnforcement
}

// Read returns exactly size bytes starting at offset. Bytes past the
// logical size, or never written, read as zero.
func (s *Store) Read(offset, size int64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureUsable(); err != nil {
		return nil, err
	}
	if !s.withinStrictLimit(offset, size) {
		return nil, ErrLimitExceeded
	}

	out := make([]byte, size)
	err := s.forEachSpan(offset, size, func(sp pageSpan) error {
		p, err := s.loadOrFetch(sp.index)
		if err != nil {
			return err
		}
		relStart := int64(sp.pageStart+int64(sp.startInPage)) - offset
		p.readInto(out[relStart:relStart+int64(sp.endInPage-sp.startInPage)], sp.startInPage, sp.endInPage)
		s.cache.touch(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Write copies data into the overlay starting at offset, growing the
// logical size as needed, and marks every touched page dirty. Bytes
// gated shut by an active bitmask are silently skipped: the page is left
// unmodified and does not contribute to the resulting size growth.
func (s *Store) Write(offset int64, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureUsable(); err != nil {
		return err
	}
	n := int64(len(data))
	if !s.withinStrictLimit(offset, n) {
		return ErrLimitExceeded
	}

	highWater, err := s.writeRangeLocked(offset, data)
	if err != nil {
		return err
	}
	if highWater > s.size.size {
		s.size.size = highWater
	}
	return nil
}

// writeRangeLocked performs the per-page write loop and returns the
// highest absolute offset actually written (-1 if every byte was gated
// shut), for the caller to fold into size bookkeeping.
func (s *Store) writeRangeLocked(offset int64, data []byte) (int64, error) {
	highWater := int64(-1)
	err := s.forEachSpan(offset, int64(len(data)), func(sp pageSpan) error {
		subLen := sp.endInPage - sp.startInPage
		relStart := int64(sp.pageStart+int64(sp.startInPage)) - offset
		sub := data[relStart : relStart+int64(subLen)]
		absOffset := sp.pageStart + int64(sp.startInPage)

		if s.mask != nil && !s.mask.allowed(uint64(absOffset), subLen) {
			return nil
		}

		p, err := s.loadOrFetch(sp.index)
		if err != nil {
			return err
		}
		p.growTo(sp.endInPage)
		copy(p.data[sp.startInPage:sp.endInPage], sub)
		s.markDirty(p)

		if end := absOffset + int64(subLen); end > highWater {
			highWater = end
		}
		return nil
	})
	if err != nil {
		return -1, err
	}
	return highWater, nil
}

// Delete zero-fills [offset, offset+size). Pass a negative size to mean
// "to end of file": if size is negative or the range reaches the current
// logical size, the overlay's size shrinks to offset (a trailing delete).
func (s *Store) Delete(offset, size int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureUsable(); err != nil {
		return err
	}

	cur := s.size.current()
	end := offset + size
	if size < 0 || end > cur {
		end = cur
	}
	if end < offset {
		end = offset
	}

	err := s.forEachSpan(offset, end-offset, func(sp pageSpan) error {
		// Absent pages are loaded first so that later reads see the
		// zeros rather than the backend's old bytes.
		p, err := s.loadOrFetch(sp.index)
		if err != nil {
			return err
		}
		p.growTo(sp.endInPage)
		for i := sp.startInPage; i < sp.endInPage; i++ {
			p.data[i] = 0
		}
		s.markDirty(p)
		return nil
	})
	if err != nil {
		return err
	}

	if end == cur {
		s.size.shrinkForTrailingDelete(offset)
	}
	return nil
}

// Truncate grows or shrinks the logical size to exactly newLen.
func (s *Store) Truncate(newLen int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureUsable(); err != nil {
		return err
	}
	if newLen < 0 {
		newLen = 0
	}

	cur := s.size.current()
	if newLen > cur {
		zeros := make([]byte, newLen-cur)
		if _, err := s.writeRangeLocked(cur, zeros); err != nil {
			return err
		}
		s.size.setExact(newLen)
		return nil
	}

	ps := s.opts.PageSize
	boundary := uint64(newLen / ps)
	s.cache.evictRangeWithoutFlush(boundary)
	if p, ok := s.cache.get(boundary); ok {
		if newLen%ps == 0 {
			s.cache.evictExplicit(boundary)
		} else {
			p.truncateTo(int(newLen % ps))
			p.dirty = true
		}
	}
	s.size.setExact(newLen)

	if t, ok := supportsTruncate(s.backend); ok {
		if err := t.Truncate(newLen); err != nil {
			return fmt.Errorf("layer: backend truncate: %w", err)
		}
	}
	return nil
}

// Stat returns the current logical size.
func (s *Store) Stat() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureUsable(); err != nil {
		return 0, err
	}
	return s.size.current(), nil
}

// Size is a synchronous accessor for the current logical size.
func (s *Store) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size.current()
}

// Length is an alias for Size, matching spec.md §6's exposed Store
// interface naming both.
func (s *Store) Length() int64 { return s.Size() }

// Pin excludes every page touched by [offset, offset+size) from
// eviction, regardless of LRU order. Pinning a range that isn't
// resident yet is valid — later loads of those pages are immune from
// the moment they're inserted.
func (s *Store) Pin(offset, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	first, last := s.pageIndexRange(offset, size)
	for idx := first; idx <= last; idx++ {
		s.pins.pin(idx)
	}
}

// Unpin removes the pin immunity installed by Pin over the same range.
func (s *Store) Unpin(offset, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	first, last := s.pageIndexRange(offset, size)
	for idx := first; idx <= last; idx++ {
		s.pins.unpin(idx)
	}
}

func (s *Store) pageIndexRange(offset, size int64) (first, last uint64) {
	ps := s.opts.PageSize
	first = uint64(offset / ps)
	if size <= 0 {
		return first, first
	}
	last = uint64((offset + size - 1) / ps)
	return first, last
}

// SetBitmask installs a write gate: bit i of buf governs whether byte
// offset i may be written. It has no effect on reads, deletes, or
// truncates.
func (s *Store) SetBitmask(buf []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mask = newBitmaskGate(buf)
}

// ClearBitmask removes the write gate installed by SetBitmask. Writes
// issued after this call are unconditionally permitted again.
func (s *Store) ClearBitmask() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mask = nil
}

// Evict discards a fraction of the resident, unpinned cache, optionally
// flushing the whole store first so the eviction itself never needs to
// touch the backend. percent is clamped to [0, 1]; 0 is a no-op.
func (s *Store) Evict(percent float64, flushFirst bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureUsable(); err != nil {
		return err
	}
	if percent <= 0 {
		return nil
	}
	if percent > 1 {
		percent = 1
	}

	if flushFirst {
		if err := s.flushLocked(0, s.size.current()); err != nil {
			return err
		}
	}

	target := int(math.Ceil(percent * float64(s.cache.count())))
	if target <= 0 {
		return nil
	}
	evicted := 0
	s.cache.evictMatching(func(p *page) bool {
		if evicted >= target {
			return false
		}
		evicted++
		return true
	})
	return nil
}
