// Package bufferpool implements the page-level buffer pool: a fixed set of
// 4 KiB frames managed under a pinned-page LRU replacement policy with
// dirty write-back. Page materialization and write-back are delegated to
// caller-supplied hooks, so the pool never touches a file itself.
//
// The pool is not safe for concurrent use; a single owner drives it.
package bufferpool

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/blastdb/blastdb/core/storage/page"
)

// InitFunc materializes a page: it is invoked after a fresh frame has been
// claimed for (fd, pageNum) and fills the frame with the page's contents.
// FlushFunc writes a dirty frame back to storage before its frame is
// reused. Both must be total and must not call back into the pool.
type (
	InitFunc  func(fd page.FileID, pageNum page.PageNum, frame []byte)
	FlushFunc func(fd page.FileID, pageNum page.PageNum, frame []byte)
)

// ErrPoolExhausted is returned by GetPageData on a miss when the LRU tail,
// the only eviction candidate, is pinned (in particular when every frame
// is pinned). Other unpinned frames are not considered. The pool state is
// left untouched; the caller decides whether to unpin something and retry.
var ErrPoolExhausted = errors.New("buffer pool exhausted: the LRU victim frame is pinned")

// PagePool owns pageSum frames and their descriptors for its lifetime.
// Descriptors form a circular doubly-linked order through slice indices,
// head being the most recently used frame and tail the eviction victim.
type PagePool struct {
	frames []page.Frame
	descs  []page.Descriptor
	index  map[uint64]int // packed (fd, pageNum) -> frame index

	head int
	tail int

	initFunc  InitFunc
	flushFunc FlushFunc

	logger  *zap.Logger
	stats   Stats
	metrics *poolMetrics
}

// New allocates a pool of pageSum frames. pageSum must be positive and
// both hooks must be non-nil; violations are programming errors and panic.
func New(pageSum int, initFunc InitFunc, flushFunc FlushFunc, logger *zap.Logger) *PagePool {
	if pageSum <= 0 {
		panic(fmt.Sprintf("bufferpool: pageSum must be positive, got %d", pageSum))
	}
	if initFunc == nil || flushFunc == nil {
		panic("bufferpool: init and flush hooks must be non-nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &PagePool{
		frames:    make([]page.Frame, pageSum),
		descs:     make([]page.Descriptor, pageSum),
		index:     make(map[uint64]int, pageSum),
		head:      0,
		tail:      pageSum - 1,
		initFunc:  initFunc,
		flushFunc: flushFunc,
		logger:    logger,
	}
	for i := range p.descs {
		d := &p.descs[i]
		d.Reset()
		d.Prev = (i - 1 + pageSum) % pageSum
		d.Next = (i + 1) % pageSum
	}
	logger.Info("buffer pool initialized",
		zap.Int("frames", pageSum),
		zap.Int("page_size", page.PageSize),
	)
	return p
}

// PageSum returns the fixed frame count.
func (p *PagePool) PageSum() int {
	return len(p.frames)
}

// Resident reports whether (fd, pageNum) currently occupies a frame.
func (p *PagePool) Resident(fd page.FileID, pageNum page.PageNum) bool {
	_, ok := p.index[packKey(fd, pageNum)]
	return ok
}

// GetPageData returns the frame holding (fd, pageNum), loading it on a
// miss. A hit promotes the frame to the head of the LRU order and fires no
// hooks. A miss claims the tail frame: a dirty victim is written back via
// the flush hook, the hash index is rebound, and the init hook materializes
// the new contents. The returned slice aliases the pool-owned frame and
// stays valid only until a later GetPageData could evict it; callers that
// need stability must pin first.
func (p *PagePool) GetPageData(fd page.FileID, pageNum page.PageNum) ([]byte, error) {
	key := packKey(fd, pageNum)
	if idx, ok := p.index[key]; ok {
		p.toHead(idx)
		p.stats.Hits++
		p.metrics.hit()
		return p.frames[idx].Data[:], nil
	}

	victim := p.tail
	d := &p.descs[victim]
	if d.Pinned() {
		p.stats.Exhausted++
		p.metrics.exhausted()
		p.logger.Warn("no evictable frame",
			zap.Int32("fd", int32(fd)),
			zap.Uint32("page", uint32(pageNum)),
		)
		return nil, ErrPoolExhausted
	}

	if d.Dirty {
		p.flushFunc(d.FileID, d.PageNum, p.frames[victim].Data[:])
		p.stats.WriteBacks++
		p.metrics.writeBack()
	}
	if d.FileID != page.InvalidFileID {
		delete(p.index, packKey(d.FileID, d.PageNum))
		p.stats.Evictions++
		p.metrics.eviction()
		p.logger.Debug("evicted page",
			zap.Int32("fd", int32(d.FileID)),
			zap.Uint32("page", uint32(d.PageNum)),
		)
	}

	p.index[key] = victim
	p.toHead(victim)
	d.FileID = fd
	d.PageNum = pageNum
	d.PinCount = 0
	d.Dirty = false

	p.initFunc(fd, pageNum, p.frames[victim].Data[:])
	p.stats.Misses++
	p.metrics.miss()
	return p.frames[victim].Data[:], nil
}

// Pin protects a resident page from eviction. Pinning a non-resident page
// is a programming error.
func (p *PagePool) Pin(fd page.FileID, pageNum page.PageNum) {
	idx := p.mustResident(fd, pageNum, "pin")
	p.descs[idx].PinCount++
}

// Unpin releases one pin on a resident page. Unpinning a non-resident page
// or underflowing the pin count is a programming error.
func (p *PagePool) Unpin(fd page.FileID, pageNum page.PageNum) {
	idx := p.mustResident(fd, pageNum, "unpin")
	d := &p.descs[idx]
	if d.PinCount <= 0 {
		panic(fmt.Sprintf("bufferpool: unpin of unpinned page (fd=%d, page=%d)", fd, pageNum))
	}
	d.PinCount--
}

// MarkDirty flags a resident page for write-back on eviction.
func (p *PagePool) MarkDirty(fd page.FileID, pageNum page.PageNum) {
	idx := p.mustResident(fd, pageNum, "mark dirty")
	p.descs[idx].Dirty = true
}

// FlushAll writes back every dirty resident page through the flush hook
// and clears the dirty flags. Nothing is evicted and the LRU order is
// untouched.
func (p *PagePool) FlushAll() {
	for i := range p.descs {
		d := &p.descs[i]
		if d.FileID == page.InvalidFileID || !d.Dirty {
			continue
		}
		p.flushFunc(d.FileID, d.PageNum, p.frames[i].Data[:])
		d.Dirty = false
		p.stats.WriteBacks++
		p.metrics.writeBack()
	}
}

// Stats returns a snapshot of the pool counters.
func (p *PagePool) Stats() Stats {
	return p.stats
}

func (p *PagePool) mustResident(fd page.FileID, pageNum page.PageNum, op string) int {
	idx, ok := p.index[packKey(fd, pageNum)]
	if !ok {
		panic(fmt.Sprintf("bufferpool: %s of non-resident page (fd=%d, page=%d)", op, fd, pageNum))
	}
	return idx
}

// toHead promotes descriptor n to the head of the circular LRU order.
// When n is the tail the links already form the right cycle and only the
// head/tail markers move.
func (p *PagePool) toHead(n int) {
	if n == p.head {
		return
	}
	if n == p.tail {
		p.tail = p.descs[n].Prev
		p.head = n
		return
	}
	d := &p.descs[n]
	p.descs[d.Prev].Next = d.Next
	p.descs[d.Next].Prev = d.Prev
	d.Prev = p.tail
	d.Next = p.head
	p.descs[p.tail].Next = n
	p.descs[p.head].Prev = n
	p.head = n
}

// packKey folds (fd, pageNum) into one map key. Injective for the 32-bit
// fd and page number ranges in use.
func packKey(fd page.FileID, pageNum page.PageNum) uint64 {
	return uint64(uint32(fd))<<32 | uint64(pageNum)
}
