package storage

import (
	"container/list"
	"fmt"
	"sync"
)

// frame is one buffer pool slot: a pinned/unpinned page plus its LRU
// position. Grounded on original_source's BufferPoolFrame, with an explicit
// `used` flag replacing the original's "page_id == 0 means empty" sentinel
// (page 0 is a legitimate header page, so that convention can't survive a
// buffer pool that is ever asked to hold it).
type frame struct {
	page     *Page
	pageID   uint32
	pinCount int
	dirty    bool
	used     bool
	elem     *list.Element
}

// BufferPool is a fixed-size pinning page cache with LRU eviction over
// unpinned frames, grounded on original_source's BufferPool.cpp. Eviction
// and the page table use container/list + map the way btree/pager.go's
// Pager does for its own cache.
type BufferPool struct {
	mu      sync.Mutex
	pm      *PageManager
	frames  []*frame
	table   map[uint32]*frame
	lru     *list.List // front = most recently used

	stats Stats
}

func NewBufferPool(pm *PageManager, poolSize int) (*BufferPool, error) {
	if pm == nil {
		return nil, fmt.Errorf("new buffer pool: page manager cannot be nil")
	}
	if poolSize <= 0 {
		return nil, fmt.Errorf("new buffer pool: pool size must be positive, got %d", poolSize)
	}

	bp := &BufferPool{
		pm:     pm,
		frames: make([]*frame, poolSize),
		table:  make(map[uint32]*frame),
		lru:    list.New(),
	}
	for i := range bp.frames {
		bp.frames[i] = &frame{}
	}
	return bp, nil
}

// GetPage returns the pinned Page for pageID, fetching it from disk into a
// victim frame if it is not already cached. Callers must Unpin exactly once
// per successful GetPage/NewPage.
func (bp *BufferPool) GetPage(pageID uint32) (*Page, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if f, ok := bp.table[pageID]; ok {
		f.pinCount++
		bp.stats.CacheHits++
		bp.stats.PinCount++
		bp.touchLRU(f)
		return f.page, nil
	}

	f, err := bp.findVictim()
	if err != nil {
		return nil, err
	}
	if f.used {
		if err := bp.evict(f); err != nil {
			return nil, err
		}
	}

	page := &Page{}
	if err := bp.pm.ReadPage(pageID, page); err != nil {
		return nil, err
	}
	bp.stats.CacheMisses++

	f.page = page
	f.pageID = pageID
	f.pinCount = 1
	f.dirty = false
	f.used = true
	f.elem = bp.lru.PushFront(f)
	bp.table[pageID] = f
	bp.stats.PinCount++
	return page, nil
}

// NewPage allocates a fresh page via the PageManager and pins it in a
// victim frame, returning the page and its new id.
func (bp *BufferPool) NewPage(pageType PageType) (*Page, uint32, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	pageID, err := bp.pm.AllocatePage(pageType)
	if err != nil {
		return nil, 0, err
	}

	f, err := bp.findVictim()
	if err != nil {
		return nil, 0, err
	}
	if f.used {
		if err := bp.evict(f); err != nil {
			return nil, 0, err
		}
	}

	page := NewPage(pageID, pageType)
	f.page = page
	f.pageID = pageID
	f.pinCount = 1
	f.dirty = true
	f.used = true
	f.elem = bp.lru.PushFront(f)
	bp.table[pageID] = f
	bp.stats.PinCount++
	return page, pageID, nil
}

// Unpin decrements a page's pin count, optionally marking it dirty.
func (bp *BufferPool) Unpin(pageID uint32, isDirty bool) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	f, ok := bp.table[pageID]
	if !ok {
		return fmt.Errorf("unpin page %d: %w", pageID, ErrAlreadyUnpinned)
	}
	if f.pinCount <= 0 {
		return fmt.Errorf("unpin page %d: %w", pageID, ErrAlreadyUnpinned)
	}
	f.pinCount--
	if isDirty {
		f.dirty = true
		f.page.SetDirty(true)
	}
	bp.stats.UnpinCount++
	return nil
}

// FlushPage writes a frame's page back to disk if dirty.
func (bp *BufferPool) FlushPage(pageID uint32) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	f, ok := bp.table[pageID]
	if !ok {
		return nil
	}
	return bp.flushFrame(f)
}

func (bp *BufferPool) flushFrame(f *frame) error {
	if !f.dirty && !f.page.IsDirty() {
		return nil
	}
	if err := bp.pm.WritePage(f.page); err != nil {
		return err
	}
	f.dirty = false
	f.page.SetDirty(false)
	return nil
}

// FlushAll writes every dirty frame back and fsyncs the underlying file.
func (bp *BufferPool) FlushAll() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	for _, f := range bp.table {
		if err := bp.flushFrame(f); err != nil {
			return err
		}
	}
	return bp.pm.Flush()
}

// DeletePage evicts pageID from the pool (refusing if still pinned) and
// marks it free in the page manager.
func (bp *BufferPool) DeletePage(pageID uint32) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if f, ok := bp.table[pageID]; ok {
		if f.pinCount > 0 {
			return fmt.Errorf("delete page %d: still pinned", pageID)
		}
		bp.lru.Remove(f.elem)
		delete(bp.table, pageID)
		f.used = false
		f.pageID = 0
		f.dirty = false
		f.pinCount = 0
		f.elem = nil
	}
	bp.pm.DeallocatePage(pageID)
	return nil
}

func (bp *BufferPool) findVictim() (*frame, error) {
	for _, f := range bp.frames {
		if !f.used {
			return f, nil
		}
	}
	for e := bp.lru.Back(); e != nil; e = e.Prev() {
		f := e.Value.(*frame)
		if f.pinCount == 0 {
			return f, nil
		}
	}
	return nil, ErrPoolExhausted
}

func (bp *BufferPool) evict(f *frame) error {
	if err := bp.flushFrame(f); err != nil {
		return err
	}
	if f.elem != nil {
		bp.lru.Remove(f.elem)
	}
	delete(bp.table, f.pageID)
	f.used = false
	f.pageID = 0
	f.dirty = false
	f.pinCount = 0
	f.elem = nil
	bp.stats.Evictions++
	return nil
}

func (bp *BufferPool) touchLRU(f *frame) {
	bp.lru.MoveToFront(f.elem)
}

func (bp *BufferPool) Stats() Stats {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.stats
}
