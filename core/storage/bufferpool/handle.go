package bufferpool

import "github.com/blastdb/blastdb/core/storage/page"

// PageHandle is a scoped accessor bound to one (fd, pageNum). It tracks
// whether it holds a pin locally, and Close releases that pin along every
// exit path:
//
//	h := pool.Handle(fd, pageNum)
//	defer h.Close()
//
// Pin is not idempotent — pinning twice through the same handle pins the
// page twice in the pool, and only the last pin is returned by Close.
type PageHandle struct {
	pool    *PagePool
	fd      page.FileID
	pageNum page.PageNum
	pinned  bool
}

// Handle binds a page handle to (fd, pageNum) on this pool.
func (p *PagePool) Handle(fd page.FileID, pageNum page.PageNum) *PageHandle {
	return &PageHandle{pool: p, fd: fd, pageNum: pageNum}
}

// GetData fetches the bound page's frame through the pool.
func (h *PageHandle) GetData() ([]byte, error) {
	return h.pool.GetPageData(h.fd, h.pageNum)
}

// Pin pins the bound page and remembers the pin locally.
func (h *PageHandle) Pin() {
	h.pinned = true
	h.pool.Pin(h.fd, h.pageNum)
}

// Unpin releases the pin and clears the local flag.
func (h *PageHandle) Unpin() {
	h.pinned = false
	h.pool.Unpin(h.fd, h.pageNum)
}

// Close releases the pin if and only if the handle still holds one. Safe
// to defer immediately after construction and to call more than once.
func (h *PageHandle) Close() {
	if h.pinned {
		h.pinned = false
		h.pool.Unpin(h.fd, h.pageNum)
	}
}
