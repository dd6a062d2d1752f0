package layer

// Backend is the uniform, capability-probed contract a Store layers
// itself over. A concrete backend (RAM buffer, local file, remote store,
// another Store) implements only the narrow sub-interfaces it actually
// supports; the Store probes for each one with a type assertion rather
// than requiring a single fat interface. This mirrors the teacher's
// storage.Backend interface, generalized so that a capability can be
// legitimately absent instead of every backend having to stub it out.
//
// Backend itself carries no methods: it exists purely as a documented
// anchor type for the sub-interfaces below, and as the type a Store
// actually stores and type-asserts against.
type Backend interface{}

// Opener is implemented by backends that require an explicit open step
// before I/O (e.g. a file that must be created or a connection that must
// be dialed). A backend without this capability is implicitly open.
type Opener interface {
	Open() error
}

// Reader is implemented by backends that can be read from. ReadAt must
// yield exactly len(buf) bytes or fail; a short read is only acceptable
// at end-of-file, and callers (the Store) are responsible for zero-
// padding the remainder themselves.
type Reader interface {
	ReadAt(buf []byte, offset int64) (int, error)
}

// Writer is implemented by backends that can be written to. WriteAt must
// write all of buf, implicitly extending the backend's length if the
// write lands past the current end.
type Writer interface {
	WriteAt(buf []byte, offset int64) (int, error)
}

// Deleter is implemented by backends with a native zero-fill primitive.
// Store never calls DeleteAt: Store.Delete zeroes overlay pages, and the
// zeros reach the backend through WriteAt on flush or eviction. pkg/rpc's
// Server forwards remote DeleteAt requests to it.
type Deleter interface {
	DeleteAt(offset, size int64) error
}

// Truncater is implemented by backends that can resize in place.
type Truncater interface {
	Truncate(size int64) error
}

// Stater is implemented by backends that can report their current length.
type Stater interface {
	Stat() (int64, error)
}

// Closer is implemented by backends with a terminal close step.
type Closer interface {
	Close() error
}

// Unlinker is implemented by backends that can delete themselves
// entirely. A backend without this capability has Unlink realized as an
// in-memory-only clear by the Store.
type Unlinker interface {
	Unlink() error
}

func supportsOpen(b Backend) (Opener, bool)        { o, ok := b.(Opener); return o, ok }
func supportsRead(b Backend) (Reader, bool)        { r, ok := b.(Reader); return r, ok }
func supportsWrite(b Backend) (Writer, bool)       { w, ok := b.(Writer); return w, ok }
func supportsDelete(b Backend) (Deleter, bool)     { d, ok := b.(Deleter); return d, ok }
func supportsTruncate(b Backend) (Truncater, bool) { t, ok := b.(Truncater); return t, ok }
func supportsStat(b Backend) (Stater, bool)        { s, ok := b.(Stater); return s, ok }
func supportsClose(b Backend) (Closer, bool)       { c, ok := b.(Closer); return c, ok }
func supportsUnlink(b Backend) (Unlinker, bool)    { u, ok := b.(Unlinker); return u, ok }

// SupportsRead, SupportsWrite and the rest of the exported Supports*
// helpers let collaborators outside this package (pkg/rpc's server, in
// particular) probe a Backend's capabilities the same way Store does
// internally, without duplicating the type assertions.
func SupportsOpen(b Backend) (Opener, bool)        { return supportsOpen(b) }
func SupportsRead(b Backend) (Reader, bool)        { return supportsRead(b) }
func SupportsWrite(b Backend) (Writer, bool)       { return supportsWrite(b) }
func SupportsDelete(b Backend) (Deleter, bool)     { return supportsDelete(b) }
func SupportsTruncate(b Backend) (Truncater, bool) { return supportsTruncate(b) }
func SupportsStat(b Backend) (Stater, bool)        { return supportsStat(b) }
func SupportsClose(b Backend) (Closer, bool)       { return supportsClose(b) }
func SupportsUnlink(b Backend) (Unlinker, bool)    { return supportsUnlink(b) }
