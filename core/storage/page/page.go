// Package page defines the in-memory page frames and their descriptor
// records used by the buffer pool.
package page

// PageSize is the fixed size of every page frame in bytes.
const PageSize = 4096

// FileID identifies an open page file. The buffer pool treats it as an
// opaque handle; the disk manager maps it to an *os.File.
type FileID int32

// InvalidFileID marks a descriptor whose frame has never held a page.
// A descriptor with this file id is never present in the pool's hash index.
const InvalidFileID FileID = -1

// PageNum is a page's index within its file.
type PageNum uint32

// Frame is one fixed-size in-memory page buffer. Frames are allocated once
// at pool construction and live for the pool's lifetime.
type Frame struct {
	Data [PageSize]byte
}

// Descriptor holds the bookkeeping for one frame: which (file, page) pair
// currently occupies it, its pin count and dirty flag, and its position in
// the pool's circular LRU order. Prev and Next are indices into the pool's
// descriptor slice rather than pointers; the descriptor slice is the single
// owner of all descriptors.
type Descriptor struct {
	FileID   FileID
	PageNum  PageNum
	PinCount int
	Dirty    bool
	Prev     int
	Next     int
}

// Reset clears the occupancy state ahead of a rebind to a new page.
// LRU links are left alone; the pool maintains those separately.
func (d *Descriptor) Reset() {
	d.FileID = InvalidFileID
	d.PageNum = 0
	d.PinCount = 0
	d.Dirty = false
}

// Pinned reports whether the descriptor is protected from eviction.
func (d *Descriptor) Pinned() bool {
	return d.PinCount > 0
}
