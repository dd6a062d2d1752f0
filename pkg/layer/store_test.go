package layer

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// memBackend is a minimal in-package Reader/Writer/Truncater/Stater
// backend for exercising Store without pulling in pkg/backend.
type memBackend struct {
	data []byte
}

func (m *memBackend) ReadAt(buf []byte, offset int64) (int, error) {
	if offset >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(buf, m.data[offset:])
	if n < len(buf) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memBackend) WriteAt(buf []byte, offset int64) (int, error) {
	end := offset + int64(len(buf))
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[offset:], buf)
	return len(buf), nil
}

func (m *memBackend) Truncate(size int64) error {
	if size > int64(len(m.data)) {
		grown := make([]byte, size)
		copy(grown, m.data)
		m.data = grown
	} else {
		m.data = m.data[:size]
	}
	return nil
}

func (m *memBackend) Stat() (int64, error) {
	return int64(len(m.data)), nil
}

func testOptions() *Options {
	o := DefaultOptions()
	o.PageSize = 1024
	o.MaxPages = 10
	return o
}

// P1: read-your-writes.
func TestReadYourWrites(t *testing.T) {
	s := New(&memBackend{}, testOptions())
	if err := s.Write(10, []byte("hello")); err != nil {
		t.Fatal(err)
	}
	got, err := s.Read(10, 5)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q", got)
	}
}

// P2: zero-fill of holes never written.
func TestZeroFillHoles(t *testing.T) {
	s := New(&memBackend{}, testOptions())
	if err := s.Write(2000, []byte("x")); err != nil {
		t.Fatal(err)
	}
	got, err := s.Read(0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, make([]byte, 10)) {
		t.Fatalf("expected zeros, got %v", got)
	}
}

// P3: size monotonicity under write.
func TestSizeGrowsOnWrite(t *testing.T) {
	s := New(&memBackend{}, testOptions())
	s.Write(0, []byte("abc"))
	if s.Size() != 3 {
		t.Fatalf("size = %d, want 3", s.Size())
	}
	s.Write(0, []byte("a"))
	if s.Size() != 3 {
		t.Fatalf("size shrank: %d", s.Size())
	}
}

// P4: truncate-grow zero-fills the new range.
func TestTruncateGrowZeroFills(t *testing.T) {
	s := New(&memBackend{}, testOptions())
	s.Write(0, []byte("ab"))
	if err := s.Truncate(10); err != nil {
		t.Fatal(err)
	}
	got, err := s.Read(0, 10)
	if err != nil {
		t.Fatal(err)
	}
	want := append([]byte("ab"), make([]byte, 8)...)
	if !bytes.Equal(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if s.Size() != 10 {
		t.Fatalf("size = %d, want 10", s.Size())
	}
}

// P5: truncate-shrink is lossy and size == L.
func TestTruncateShrink(t *testing.T) {
	s := New(&memBackend{}, testOptions())
	s.Write(0, bytes.Repeat([]byte{1}, 2000))
	if err := s.Truncate(5); err != nil {
		t.Fatal(err)
	}
	if s.Size() != 5 {
		t.Fatalf("size = %d, want 5", s.Size())
	}
	got, err := s.Read(0, 5)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, bytes.Repeat([]byte{1}, 5)) {
		t.Fatalf("got %v", got)
	}
}

// P6: flush commits resident dirty pages directly to the backend.
func TestFlushCommitsToBackend(t *testing.T) {
	b := &memBackend{}
	s := New(b, testOptions())
	s.Write(0, []byte("payload"))
	if err := s.Flush(0, s.Size()); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b.data[:7], []byte("payload")) {
		t.Fatalf("backend not updated: %v", b.data)
	}
}

// P7: pin immunity survives eviction pressure.
func TestPinSurvivesEviction(t *testing.T) {
	opts := testOptions()
	opts.MaxPages = 2
	s := New(&memBackend{}, opts)

	s.Pin(0, 1) // pin page 0
	s.Write(0, []byte("keep"))
	s.Write(1024, []byte("two"))
	s.Write(2048, []byte("three"))
	s.Write(3072, []byte("four"))

	got, err := s.Read(0, 4)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "keep" {
		t.Fatalf("pinned page lost: %q", got)
	}
}

// P8: bitmask gate leaves gated bytes unchanged.
func TestBitmaskGatesWrites(t *testing.T) {
	s := New(&memBackend{}, testOptions())
	s.Write(0, []byte("AAAA"))

	mask := []byte{0b00000101} // bits 0 and 2 open, 1 and 3 closed
	s.SetBitmask(mask)
	if err := s.Write(0, []byte("BBBB")); err != nil {
		t.Fatal(err)
	}

	got, err := s.Read(0, 4)
	if err != nil {
		t.Fatal(err)
	}
	// Whole in-page subrange is gated as one unit (spec.md §4.F): any
	// unset bit in [0,4) skips the entire write, so nothing changes.
	if string(got) != "AAAA" {
		t.Fatalf("got %q, want unchanged AAAA", got)
	}
}

// P9: strict limit fails without side effects.
func TestStrictSizeLimitRejectsWithoutSideEffects(t *testing.T) {
	opts := testOptions()
	limit := int64(10)
	opts.StrictSizeEnforcement = &limit
	s := New(&memBackend{}, opts)

	err := s.Write(8, []byte("abcdef"))
	if !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("err = %v, want ErrLimitExceeded", err)
	}
	if s.Size() != 0 {
		t.Fatalf("size changed on rejected write: %d", s.Size())
	}
}

// P10: flush is idempotent.
func TestFlushIdempotent(t *testing.T) {
	b := &memBackend{}
	s := New(b, testOptions())
	s.Write(0, []byte("data"))
	if err := s.Flush(0, s.Size()); err != nil {
		t.Fatal(err)
	}
	before := append([]byte(nil), b.data...)
	if err := s.Flush(0, s.Size()); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, b.data) {
		t.Fatalf("second flush changed backend: %v vs %v", before, b.data)
	}
}

// P11: deleting a trailing range sets size to the delete's offset.
func TestDeleteTrailingSetsSize(t *testing.T) {
	s := New(&memBackend{}, testOptions())
	s.Write(0, []byte("abcdef"))
	if err := s.Delete(3, -1); err != nil {
		t.Fatal(err)
	}
	if s.Size() != 3 {
		t.Fatalf("size = %d, want 3", s.Size())
	}
}

func TestDeleteNonTrailingZerosWithoutShrinking(t *testing.T) {
	s := New(&memBackend{}, testOptions())
	s.Write(0, []byte("abcdef"))
	if err := s.Delete(1, 2); err != nil {
		t.Fatal(err)
	}
	if s.Size() != 6 {
		t.Fatalf("size = %d, want 6", s.Size())
	}
	got, err := s.Read(0, 6)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte{'a', 0, 0, 'd', 'e', 'f'}) {
		t.Fatalf("got %v", got)
	}
}

func TestReadSpansMultiplePages(t *testing.T) {
	s := New(&memBackend{}, testOptions())
	data := bytes.Repeat([]byte{7}, 3000)
	if err := s.Write(0, data); err != nil {
		t.Fatal(err)
	}
	got, err := s.Read(500, 2000)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data[500:2500]) {
		t.Fatal("cross-page read mismatch")
	}
}

func TestEvictFlushesDirtyPagesByDefault(t *testing.T) {
	opts := testOptions()
	opts.MaxPages = 1
	b := &memBackend{}
	s := New(b, opts)

	s.Write(0, []byte("first"))
	s.Write(1024, []byte("second")) // forces eviction of page 0

	if !bytes.Equal(b.data[:5], []byte("first")) {
		t.Fatalf("evicted dirty page was not flushed: %v", b.data)
	}
}
