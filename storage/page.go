package storage

import (
	"encoding/binary"
	"fmt"
)

// PageSize is the fixed, non-configurable page size (spec.md Non-goals:
// variable page sizes). Grounded on original_source's Page::PAGE_SIZE, but
// 8192 rather than the teacher's 4096.
const PageSize = 8192

// PageType tags what a page holds.
type PageType uint8

const (
	PageTypeInvalid PageType = 0
	PageTypeData    PageType = 1
	PageTypeHeader  PageType = 2
	PageTypeFree    PageType = 3
	PageTypeBTreeInternal PageType = 4
	PageTypeBTreeLeaf     PageType = 5
)

// Header layout, packed tightly (no struct padding, unlike the C++ original
// whose sizeof(PageHeader) pads page_type to a 4-byte boundary). Go lays out
// bytes explicitly so there is no such padding to account for.
//
//	page_id    u32 @ 0
//	page_type  u8  @ 4
//	free_ptr   u16 @ 5
//	slot_count u16 @ 7
//	free_size  u16 @ 9
const HeaderSize = 11

// Slot: offset u16, length u16, is_deleted u8. Slot i sits at
// PageSize - (i+1)*SlotSize, growing backward from the end of the page —
// same convention as original_source's Page::getSlot.
const SlotSize = 5

// Page is one fixed-size slotted page, held entirely in memory while pinned.
type Page struct {
	data    [PageSize]byte
	isDirty bool
}

func NewPage(pageID uint32, pageType PageType) *Page {
	p := &Page{}
	p.Init(pageID, pageType)
	return p
}

// Init zeroes the page and writes a fresh header, marking it dirty.
func (p *Page) Init(pageID uint32, pageType PageType) {
	for i := range p.data {
		p.data[i] = 0
	}
	binary.LittleEndian.PutUint32(p.data[0:4], pageID)
	p.data[4] = byte(pageType)
	binary.LittleEndian.PutUint16(p.data[5:7], uint16(HeaderSize))
	binary.LittleEndian.PutUint16(p.data[7:9], 0)
	binary.LittleEndian.PutUint16(p.data[9:11], uint16(PageSize-HeaderSize))
	p.isDirty = true
}

func (p *Page) PageID() uint32    { return binary.LittleEndian.Uint32(p.data[0:4]) }
func (p *Page) PageType() PageType { return PageType(p.data[4]) }
func (p *Page) SlotCount() uint16 { return binary.LittleEndian.Uint16(p.data[7:9]) }
func (p *Page) FreeSpace() uint16 { return binary.LittleEndian.Uint16(p.data[9:11]) }
func (p *Page) freePtr() uint16   { return binary.LittleEndian.Uint16(p.data[5:7]) }

func (p *Page) setFreePtr(v uint16)   { binary.LittleEndian.PutUint16(p.data[5:7], v) }
func (p *Page) setSlotCount(v uint16) { binary.LittleEndian.PutUint16(p.data[7:9], v) }
func (p *Page) setFreeSpace(v uint16) { binary.LittleEndian.PutUint16(p.data[9:11], v) }
func (p *Page) setPageType(t PageType) { p.data[4] = byte(t) }

func (p *Page) IsDirty() bool    { return p.isDirty }
func (p *Page) SetDirty(d bool)  { p.isDirty = d }

// Data exposes the raw page bytes for I/O (PageManager reads/writes this
// directly) and for B+Tree node views layered on top of a Page.
func (p *Page) Data() []byte { return p.data[:] }

func (p *Page) slotOffset(slotID uint16) int {
	return PageSize - int(slotID+1)*SlotSize
}

func (p *Page) slot(slotID uint16) (offset, length uint16, deleted bool) {
	o := p.slotOffset(slotID)
	offset = binary.LittleEndian.Uint16(p.data[o : o+2])
	length = binary.LittleEndian.Uint16(p.data[o+2 : o+4])
	deleted = p.data[o+4] != 0
	return
}

func (p *Page) setSlot(slotID uint16, offset, length uint16, deleted bool) {
	o := p.slotOffset(slotID)
	binary.LittleEndian.PutUint16(p.data[o:o+2], offset)
	binary.LittleEndian.PutUint16(p.data[o+2:o+4], length)
	if deleted {
		p.data[o+4] = 1
	} else {
		p.data[o+4] = 0
	}
}

// InsertRecord copies record_data into the page's free space and returns its
// slot id, reusing a tombstoned slot's id when one exists. Returns
// ErrNoSpace when the record plus a slot entry does not fit.
func (p *Page) InsertRecord(record []byte) (uint16, error) {
	if len(record) == 0 {
		return 0, fmt.Errorf("insert record: empty record: %w", ErrNoSpace)
	}
	if len(record) > PageSize-HeaderSize-SlotSize {
		return 0, ErrRecordTooLarge
	}
	needed := len(record) + SlotSize
	if int(p.FreeSpace()) < needed {
		return 0, ErrNoSpace
	}

	slotID := uint16(0)
	reused := false
	slotCount := p.SlotCount()
	for i := uint16(0); i < slotCount; i++ {
		_, _, deleted := p.slot(i)
		if deleted {
			slotID = i
			reused = true
			break
		}
	}
	if !reused {
		slotID = slotCount
		p.setSlotCount(slotCount + 1)
	}

	recordOffset := p.freePtr()
	copy(p.data[recordOffset:int(recordOffset)+len(record)], record)
	p.setSlot(slotID, recordOffset, uint16(len(record)), false)

	p.setFreePtr(recordOffset + uint16(len(record)))
	p.updateFreeSpace()
	p.isDirty = true
	return slotID, nil
}

// DeleteRecord tombstones a slot without reclaiming its bytes; Compact does
// the reclaiming later.
func (p *Page) DeleteRecord(slotID uint16) error {
	if slotID >= p.SlotCount() {
		return ErrNotFound
	}
	offset, length, deleted := p.slot(slotID)
	if deleted {
		return ErrNotFound
	}
	p.setSlot(slotID, offset, length, true)
	p.updateFreeSpace()
	p.isDirty = true
	return nil
}

// GetRecord returns a copy of the bytes stored at slotID.
func (p *Page) GetRecord(slotID uint16) ([]byte, error) {
	if slotID >= p.SlotCount() {
		return nil, ErrNotFound
	}
	offset, length, deleted := p.slot(slotID)
	if deleted {
		return nil, ErrNotFound
	}
	out := make([]byte, length)
	copy(out, p.data[offset:int(offset)+int(length)])
	return out, nil
}

// UpdateRecord overwrites a slot's record. If the new record is no larger
// than the old one it is written in place; otherwise the slot is deleted,
// the page compacted, and the record reinserted at the end of the record
// area, exactly as original_source's Page::updateRecord does.
func (p *Page) UpdateRecord(slotID uint16, record []byte) error {
	if slotID >= p.SlotCount() {
		return ErrNotFound
	}
	offset, length, deleted := p.slot(slotID)
	if deleted {
		return ErrNotFound
	}

	if len(record) <= int(length) {
		copy(p.data[offset:int(offset)+len(record)], record)
		p.setSlot(slotID, offset, uint16(len(record)), false)
		p.isDirty = true
		return nil
	}

	if err := p.DeleteRecord(slotID); err != nil {
		return err
	}
	p.Compact()

	if int(p.FreeSpace()) < len(record) {
		return ErrNoSpace
	}
	recordOffset := p.freePtr()
	copy(p.data[recordOffset:int(recordOffset)+len(record)], record)
	p.setSlot(slotID, recordOffset, uint16(len(record)), false)
	p.setFreePtr(recordOffset + uint16(len(record)))
	p.updateFreeSpace()
	p.isDirty = true
	return nil
}

// Compact squeezes out tombstoned slots' bytes, sliding live records down
// against the header so the record area has no internal holes.
func (p *Page) Compact() {
	slotCount := p.SlotCount()
	if slotCount == 0 {
		return
	}

	var temp [PageSize]byte
	writeOffset := uint16(HeaderSize)

	type liveSlot struct {
		id     uint16
		offset uint16
		length uint16
	}
	var live []liveSlot

	for i := uint16(0); i < slotCount; i++ {
		offset, length, deleted := p.slot(i)
		if deleted {
			continue
		}
		copy(temp[writeOffset:int(writeOffset)+int(length)], p.data[offset:int(offset)+int(length)])
		live = append(live, liveSlot{id: i, offset: writeOffset, length: length})
		writeOffset += length
	}

	copy(p.data[HeaderSize:writeOffset], temp[HeaderSize:writeOffset])
	for _, ls := range live {
		p.setSlot(ls.id, ls.offset, ls.length, false)
	}

	p.setFreePtr(writeOffset)
	p.updateFreeSpace()
	p.isDirty = true
}

func (p *Page) updateFreeSpace() {
	recordsEnd := p.freePtr()
	slotsStart := uint16(PageSize) - p.SlotCount()*SlotSize
	if slotsStart >= recordsEnd {
		p.setFreeSpace(slotsStart - recordsEnd)
	} else {
		p.setFreeSpace(0)
	}
}
