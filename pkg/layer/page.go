package layer

import "container/list"

// page is a resident, fixed-granularity window of the logical byte file.
// Its data slice may be shorter than pageSize: bytes beyond len(data) but
// within pageSize are logically zero and have never been materialized.
type page struct {
	index   uint64
	data    []byte
	dirty   bool
	lruElem *list.Element
}

func newPage(index uint64) *page {
	return &page{index: index}
}

// growTo extends the page's backing buffer to at least n bytes (bounded by
// the caller to pageSize), zero-filling the gap.
func (p *page) growTo(n int) {
	if n <= len(p.data) {
		return
	}
	grown := make([]byte, n)
	copy(grown, p.data)
	p.data = grown
}

// readInto copies the page's logical bytes in [start, end) into dst,
// treating any byte past len(p.data) as zero.
func (p *page) readInto(dst []byte, start, end int) {
	if start >= len(p.data) {
		return
	}
	if end > len(p.data) {
		end = len(p.data)
	}
	copy(dst, p.data[start:end])
}

// truncateTo shortens the page's backing buffer to at most n bytes.
func (p *page) truncateTo(n int) {
	if n < len(p.data) {
		p.data = p.data[:n]
	}
}
