package layer

// Strict wraps a Store so that reads past the current logical size fail
// with ErrOutOfRange instead of zero-padding, per spec.md §4.I. Every
// other operation — Write, Delete, Truncate, Flush, Pin, lifecycle — is
// forwarded unchanged; only Read's out-of-range behavior differs.
type Strict struct {
	*Store
}

// NewStrict constructs a Strict store over backend, the same way New
// constructs a plain Store.
func NewStrict(backend Backend, opts *Options) *Strict {
	return &Strict{Store: New(backend, opts)}
}

// Read returns ErrOutOfRange if the requested range extends past the
// current logical size, without loading any pages. Otherwise it behaves
// exactly like Store.Read.
func (s *Strict) Read(offset, size int64) ([]byte, error) {
	s.mu.Lock()
	if err := s.ensureUsable(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	cur := s.size.current()
	s.mu.Unlock()

	if offset+size > cur {
		return nil, ErrOutOfRange
	}
	return s.Store.Read(offset, size)
}
