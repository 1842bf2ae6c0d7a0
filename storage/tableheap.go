package storage

import (
	"fmt"
	"path/filepath"
)

// TableHeap is one table's record storage: a chain of data pages reachable
// by full scan, with a rover hint (lastSearchPageID) short-circuiting the
// linear first-fit insert search. Grounded on original_source's
// TableHeap.cpp.
type TableHeap struct {
	name             string
	pageMgr          *PageManager
	bufferPool       *BufferPool
	firstPageID      uint32
	lastSearchPageID uint32
}

// NewTableHeap wires a PageManager+BufferPool pair for table name and, if
// the underlying file is brand new (only the header page exists), allocates
// the first data page.
func NewTableHeap(name string, pm *PageManager, bp *BufferPool) (*TableHeap, error) {
	th := &TableHeap{name: name, pageMgr: pm, bufferPool: bp, firstPageID: 1, lastSearchPageID: 1}
	if pm.PageCount() <= 1 {
		if err := th.initialize(); err != nil {
			return nil, err
		}
	}
	return th, nil
}

// OpenTableHeap opens (or creates) `<dbDirectory>/<name>.db`, wiring a fresh
// PageManager and BufferPool of poolSize frames for it. The BufferPool and
// PageManager returned are also handed to the table's BPlusTree by the
// catalog, since index pages and data pages share the same per-table file
// (original_source's Catalog::createTable passes
// `tableHeap->getBufferPool()`/`getPageManager()` straight into the
// BPlusTree constructor).
func OpenTableHeap(dbDirectory, name string, poolSize int) (*TableHeap, error) {
	path := filepath.Join(dbDirectory, name+".db")
	pm, err := OpenPageManager(path)
	if err != nil {
		return nil, err
	}
	bp, err := NewBufferPool(pm, poolSize)
	if err != nil {
		return nil, err
	}
	return NewTableHeap(name, pm, bp)
}

func (th *TableHeap) BufferPool() *BufferPool { return th.bufferPool }
func (th *TableHeap) PageManager() *PageManager { return th.pageMgr }

// Stats merges the page manager's allocation bookkeeping with the buffer
// pool's cache bookkeeping into the combined view the `\stats` REPL
// command reports.
func (th *TableHeap) Stats() Stats {
	pageStats := th.pageMgr.Stats()
	poolStats := th.bufferPool.Stats()
	pageStats.CacheHits = poolStats.CacheHits
	pageStats.CacheMisses = poolStats.CacheMisses
	pageStats.Evictions = poolStats.Evictions
	pageStats.PinCount = poolStats.PinCount
	pageStats.UnpinCount = poolStats.UnpinCount
	return pageStats
}

// Close flushes all dirty pages and closes the underlying file.
func (th *TableHeap) Close() error {
	if err := th.bufferPool.FlushAll(); err != nil {
		return err
	}
	return th.pageMgr.Close()
}

func (th *TableHeap) initialize() error {
	_, pageID, err := th.bufferPool.NewPage(PageTypeData)
	if err != nil {
		return err
	}
	th.firstPageID = pageID
	th.lastSearchPageID = pageID
	return th.bufferPool.Unpin(pageID, true)
}

// InsertRecord serializes values and places them in the first page with
// enough free space (tracked via the rover hint), returning the new RID.
func (th *TableHeap) InsertRecord(values []Value) (RID, error) {
	serialized := EncodeRecord(values)
	if len(serialized) > PageSize-HeaderSize-SlotSize {
		return InvalidRID, ErrRecordTooLarge
	}

	pageID, err := th.findPageWithSpace(len(serialized))
	if err != nil {
		return InvalidRID, err
	}

	page, err := th.bufferPool.GetPage(pageID)
	if err != nil {
		return InvalidRID, err
	}

	slotID, err := page.InsertRecord(serialized)
	if err != nil {
		_ = th.bufferPool.Unpin(pageID, false)
		return InvalidRID, fmt.Errorf("insert record into page %d: %w", pageID, err)
	}

	if err := th.bufferPool.Unpin(pageID, true); err != nil {
		return InvalidRID, err
	}
	return RID{PageID: pageID, SlotID: slotID}, nil
}

// GetRecord returns the decoded tuple at rid.
func (th *TableHeap) GetRecord(rid RID) ([]Value, error) {
	if !rid.IsValid() {
		return nil, fmt.Errorf("get record: %w", ErrNotFound)
	}
	page, err := th.bufferPool.GetPage(rid.PageID)
	if err != nil {
		return nil, err
	}
	data, err := page.GetRecord(rid.SlotID)
	if err != nil {
		_ = th.bufferPool.Unpin(rid.PageID, false)
		return nil, fmt.Errorf("get record %s: %w", rid, err)
	}
	values, err := DecodeRecord(data)
	if err != nil {
		_ = th.bufferPool.Unpin(rid.PageID, false)
		return nil, err
	}
	if err := th.bufferPool.Unpin(rid.PageID, false); err != nil {
		return nil, err
	}
	return values, nil
}

// UpdateRecord overwrites the tuple at rid with values.
func (th *TableHeap) UpdateRecord(rid RID, values []Value) error {
	if !rid.IsValid() {
		return fmt.Errorf("update record: %w", ErrNotFound)
	}
	serialized := EncodeRecord(values)

	page, err := th.bufferPool.GetPage(rid.PageID)
	if err != nil {
		return err
	}
	updateErr := page.UpdateRecord(rid.SlotID, serialized)
	if err := th.bufferPool.Unpin(rid.PageID, updateErr == nil); err != nil {
		return err
	}
	return updateErr
}

// DeleteRecord tombstones the slot at rid.
func (th *TableHeap) DeleteRecord(rid RID) error {
	if !rid.IsValid() {
		return fmt.Errorf("delete record: %w", ErrNotFound)
	}
	page, err := th.bufferPool.GetPage(rid.PageID)
	if err != nil {
		return err
	}
	deleteErr := page.DeleteRecord(rid.SlotID)
	if err := th.bufferPool.Unpin(rid.PageID, deleteErr == nil); err != nil {
		return err
	}
	return deleteErr
}

// findPageWithSpace implements the rover-hint linear first-fit search: scan
// forward from lastSearchPageID, falling back to firstPageID when the hint
// is stale, and allocating a fresh data page if nothing fits.
func (th *TableHeap) findPageWithSpace(requiredSpace int) (uint32, error) {
	pageCount := th.pageMgr.PageCount()

	if th.lastSearchPageID < th.firstPageID || th.lastSearchPageID >= pageCount {
		th.lastSearchPageID = th.firstPageID
	}

	for pageID := th.lastSearchPageID; pageID < pageCount; pageID++ {
		page, err := th.bufferPool.GetPage(pageID)
		if err != nil {
			return 0, err
		}
		fits := page.PageType() == PageTypeData && int(page.FreeSpace()) >= requiredSpace+SlotSize
		if err := th.bufferPool.Unpin(pageID, false); err != nil {
			return 0, err
		}
		if fits {
			th.lastSearchPageID = pageID
			return pageID, nil
		}
	}

	_, newPageID, err := th.bufferPool.NewPage(PageTypeData)
	if err != nil {
		return 0, err
	}
	if err := th.bufferPool.Unpin(newPageID, true); err != nil {
		return 0, err
	}
	th.lastSearchPageID = newPageID
	return newPageID, nil
}

// TableIterator performs a full scan over every live record in the heap,
// skipping non-data pages (B+Tree pages interleaved in the same file) and
// tombstoned slots, holding at most one pinned page at a time.
type TableIterator struct {
	heap          *TableHeap
	currentPageID uint32
	currentSlotID uint16
	currentPage   *Page
	havePage      bool
	valid         bool
}

// Begin returns an iterator positioned at the first live record, if any.
func (th *TableHeap) Begin() (*TableIterator, error) {
	it := &TableIterator{heap: th, currentPageID: th.firstPageID, currentSlotID: 0}
	if err := it.advance(); err != nil {
		return nil, err
	}
	return it, nil
}

func (it *TableIterator) Valid() bool { return it.valid }

// Next advances to the next live record.
func (it *TableIterator) Next() error {
	if !it.valid {
		return nil
	}
	it.currentSlotID++
	return it.advance()
}

func (it *TableIterator) RID() RID { return RID{PageID: it.currentPageID, SlotID: it.currentSlotID} }

// Record decodes the tuple the iterator currently points to.
func (it *TableIterator) Record() ([]Value, error) {
	if !it.valid {
		return nil, fmt.Errorf("table iterator: %w", ErrNotFound)
	}
	data, err := it.currentPage.GetRecord(it.currentSlotID)
	if err != nil {
		return nil, err
	}
	return DecodeRecord(data)
}

// Close releases the iterator's currently pinned page, if any. Safe to call
// on an already-exhausted iterator.
func (it *TableIterator) Close() error {
	if it.havePage {
		it.havePage = false
		page := it.currentPage
		it.currentPage = nil
		return it.heap.bufferPool.Unpin(page.PageID(), false)
	}
	return nil
}

// advance holds at most one page pinned at a time: it keeps the current
// page's pin across consecutive Record()/Next() calls and only releases it
// when moving to the next page, matching original_source's Iterator::advance.
func (it *TableIterator) advance() error {
	for {
		if !it.havePage {
			if it.currentPageID >= it.heap.pageMgr.PageCount() {
				it.valid = false
				return nil
			}
			page, err := it.heap.bufferPool.GetPage(it.currentPageID)
			if err != nil {
				return err
			}
			if page.PageType() != PageTypeData {
				if err := it.heap.bufferPool.Unpin(it.currentPageID, false); err != nil {
					return err
				}
				it.currentPageID++
				continue
			}
			it.currentPage = page
			it.havePage = true
			it.currentSlotID = 0
		}

		slotCount := it.currentPage.SlotCount()
		if it.currentSlotID < slotCount {
			if _, err := it.currentPage.GetRecord(it.currentSlotID); err == nil {
				it.valid = true
				return nil
			}
			it.currentSlotID++
			continue
		}

		if err := it.heap.bufferPool.Unpin(it.currentPageID, false); err != nil {
			return err
		}
		it.currentPage = nil
		it.havePage = false
		it.currentPageID++
	}
}
