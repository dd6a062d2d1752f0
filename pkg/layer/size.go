package layer

// sizeTracker holds the overlay's logical length and the bookkeeping
// rules from spec.md §4.E. It carries no lock of its own: the owning
// Store serializes access to it under its own mutex, the same way the
// teacher's CachedPage fields are only ever touched under the buffer
// pool's mutex.
type sizeTracker struct {
	size int64
}

// reconcileAtOpen applies spec.md §4.E's open-time rule: size becomes the
// larger of what it already was and what the backend reports.
func (t *sizeTracker) reconcileAtOpen(backendSize int64) {
	if backendSize > t.size {
		t.size = backendSize
	}
}

// growForWrite applies the write-time rule: size can only grow.
func (t *sizeTracker) growForWrite(offset int64, n int) {
	end := offset + int64(n)
	if end > t.size {
		t.size = end
	}
}

// shrinkForTrailingDelete applies the del-time rule: a delete whose range
// reaches (or passes) the current size truncates the logical length to
// the delete's start offset.
func (t *sizeTracker) shrinkForTrailingDelete(offset int64) {
	t.size = offset
}

// setExact applies the truncate-time rule: size becomes exactly L.
func (t *sizeTracker) setExact(n int64) {
	t.size = n
}

func (t *sizeTracker) current() int64 {
	return t.size
}
