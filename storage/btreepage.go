package storage

import "encoding/binary"

// InvalidPageID marks "no parent" / "no next leaf" / "no child" in B+Tree
// node headers, same convention as original_source's BTreePage::INVALID_PAGE_ID.
const InvalidPageID uint32 = 0

// Every B+Tree node (internal or leaf) layers a small fixed header on top of
// the generic Page header, then a flat array of fixed-size entries. Entries
// never move except by bulk memmove-style insert/split, mirroring
// original_source's BTreePage.h/.cpp.
const (
	btreeHeaderSize = 4 + 2 + 2 // parent_page_id u32, size u16, max_size u16

	// BTreeInternalHeaderSize = Page header + BTreeHeader.
	BTreeInternalHeaderSize = HeaderSize + btreeHeaderSize
	// BTreeLeafHeaderSize additionally carries a next_page_id u32 for leaf
	// sibling chaining.
	BTreeLeafHeaderSize = HeaderSize + btreeHeaderSize + 4

	// EntrySize is fixed for both node kinds: a 32-byte serialized key
	// prefix plus a 4-byte child page id (internal) or a 6-byte RID (leaf),
	// with the rest left as padding.
	EntrySize    = 40
	KeyMaxBytes  = 32
)

func btreeParentOffset() int { return HeaderSize }
func btreeSizeOffset() int   { return HeaderSize + 4 }
func btreeMaxSizeOffset() int { return HeaderSize + 6 }

// btreeNode carries the header accessors shared by internal and leaf nodes.
type btreeNode struct{ page *Page }

func (n btreeNode) ParentPageID() uint32 {
	return binary.LittleEndian.Uint32(n.page.Data()[btreeParentOffset() : btreeParentOffset()+4])
}
func (n btreeNode) SetParentPageID(id uint32) {
	binary.LittleEndian.PutUint32(n.page.Data()[btreeParentOffset():btreeParentOffset()+4], id)
}
func (n btreeNode) Size() uint16 {
	return binary.LittleEndian.Uint16(n.page.Data()[btreeSizeOffset() : btreeSizeOffset()+2])
}
func (n btreeNode) SetSize(s uint16) {
	binary.LittleEndian.PutUint16(n.page.Data()[btreeSizeOffset():btreeSizeOffset()+2], s)
}
func (n btreeNode) MaxSize() uint16 {
	return binary.LittleEndian.Uint16(n.page.Data()[btreeMaxSizeOffset() : btreeMaxSizeOffset()+2])
}
func (n btreeNode) SetMaxSize(s uint16) {
	binary.LittleEndian.PutUint16(n.page.Data()[btreeMaxSizeOffset():btreeMaxSizeOffset()+2], s)
}
func (n btreeNode) IsRoot() bool { return n.ParentPageID() == InvalidPageID }
func (n btreeNode) IsLeaf() bool { return n.page.PageType() == PageTypeBTreeLeaf }

func encodeKeyPrefix(key Value) [KeyMaxBytes]byte {
	var out [KeyMaxBytes]byte
	serialized := EncodeRecord([]Value{key})
	n := len(serialized)
	if n > KeyMaxBytes {
		n = KeyMaxBytes
	}
	copy(out[:], serialized[:n])
	return out
}

func decodeKeyPrefix(buf []byte) Value {
	vals, err := DecodeRecord(buf)
	if err != nil || len(vals) == 0 {
		return NullValue()
	}
	return vals[0]
}

// BTreeInternalNode is a BTreePage view storing (key, child page id) pairs;
// valueAt(0) is the child for every key less than keyAt(1) (the sentinel
// convention from original_source: index 0's key is never meaningful).
type BTreeInternalNode struct{ btreeNode }

func NewBTreeInternalNode(p *Page) BTreeInternalNode { return BTreeInternalNode{btreeNode{p}} }

func (n BTreeInternalNode) Init(parentID uint32) {
	n.page.setPageType(PageTypeBTreeInternal)
	n.SetParentPageID(parentID)
	n.SetSize(0)
	n.SetMaxSize(uint16((PageSize - BTreeInternalHeaderSize) / EntrySize))
}

func (n BTreeInternalNode) entryOffset(index int) int {
	return BTreeInternalHeaderSize + index*EntrySize
}

func (n BTreeInternalNode) KeyAt(index int) Value {
	off := n.entryOffset(index)
	return decodeKeyPrefix(n.page.Data()[off : off+KeyMaxBytes])
}

func (n BTreeInternalNode) SetKeyAt(index int, key Value) {
	off := n.entryOffset(index)
	prefix := encodeKeyPrefix(key)
	copy(n.page.Data()[off:off+KeyMaxBytes], prefix[:])
}

func (n BTreeInternalNode) ValueAt(index int) uint32 {
	off := n.entryOffset(index) + KeyMaxBytes
	return binary.LittleEndian.Uint32(n.page.Data()[off : off+4])
}

func (n BTreeInternalNode) SetValueAt(index int, childPageID uint32) {
	off := n.entryOffset(index) + KeyMaxBytes
	binary.LittleEndian.PutUint32(n.page.Data()[off:off+4], childPageID)
}

// Lookup finds the child page id for key: the last index i with
// keyAt(i) <= key (or index 0 if key is less than every real key).
func (n BTreeInternalNode) Lookup(key Value) uint32 {
	count := int(n.Size())
	if count == 0 {
		return InvalidPageID
	}
	idx := 0
	for idx < count-1 {
		cmp, err := n.KeyAt(idx + 1).Compare(key)
		if err != nil || cmp > 0 {
			break
		}
		idx++
	}
	return n.ValueAt(idx)
}

// Insert keeps entries ordered by key, shifting larger entries right.
func (n BTreeInternalNode) Insert(key Value, childPageID uint32) {
	index := int(n.Size())
	for index > 0 {
		cmp, err := n.KeyAt(index - 1).Compare(key)
		if err != nil || cmp <= 0 {
			break
		}
		n.copyEntry(index-1, index)
		index--
	}
	n.SetKeyAt(index, key)
	n.SetValueAt(index, childPageID)
	n.SetSize(n.Size() + 1)
}

func (n BTreeInternalNode) copyEntry(from, to int) {
	src := n.entryOffset(from)
	dst := n.entryOffset(to)
	copy(n.page.Data()[dst:dst+EntrySize], n.page.Data()[src:src+EntrySize])
}

// MoveHalfTo relocates this node's upper half of entries into recipient, for
// use when this node has just overflowed past MaxSize.
func (n BTreeInternalNode) MoveHalfTo(recipient BTreeInternalNode) {
	size := int(n.Size())
	half := size / 2
	moveCount := size - half
	srcOff := n.entryOffset(half)
	dstOff := recipient.entryOffset(0)
	copy(recipient.page.Data()[dstOff:dstOff+moveCount*EntrySize], n.page.Data()[srcOff:srcOff+moveCount*EntrySize])
	recipient.SetSize(uint16(moveCount))
	n.SetSize(uint16(half))
}

// BTreeLeafNode is a BTreePage view storing (key, RID) pairs, plus a
// next_page_id for leaf-to-leaf sibling chaining.
type BTreeLeafNode struct{ btreeNode }

func NewBTreeLeafNode(p *Page) BTreeLeafNode { return BTreeLeafNode{btreeNode{p}} }

func (n BTreeLeafNode) Init(parentID uint32) {
	n.page.setPageType(PageTypeBTreeLeaf)
	n.SetParentPageID(parentID)
	n.SetSize(0)
	n.SetNextPageID(InvalidPageID)
	n.SetMaxSize(uint16((PageSize - BTreeLeafHeaderSize) / EntrySize))
}

func (n BTreeLeafNode) nextPageIDOffset() int { return HeaderSize + btreeHeaderSize }

func (n BTreeLeafNode) NextPageID() uint32 {
	off := n.nextPageIDOffset()
	return binary.LittleEndian.Uint32(n.page.Data()[off : off+4])
}

func (n BTreeLeafNode) SetNextPageID(id uint32) {
	off := n.nextPageIDOffset()
	binary.LittleEndian.PutUint32(n.page.Data()[off:off+4], id)
}

func (n BTreeLeafNode) entryOffset(index int) int {
	return BTreeLeafHeaderSize + index*EntrySize
}

func (n BTreeLeafNode) KeyAt(index int) Value {
	off := n.entryOffset(index)
	return decodeKeyPrefix(n.page.Data()[off : off+KeyMaxBytes])
}

func (n BTreeLeafNode) SetKeyAt(index int, key Value) {
	off := n.entryOffset(index)
	prefix := encodeKeyPrefix(key)
	copy(n.page.Data()[off:off+KeyMaxBytes], prefix[:])
}

func (n BTreeLeafNode) ValueAt(index int) RID {
	off := n.entryOffset(index) + KeyMaxBytes
	pageID := binary.LittleEndian.Uint32(n.page.Data()[off : off+4])
	slotID := binary.LittleEndian.Uint16(n.page.Data()[off+4 : off+6])
	return RID{PageID: pageID, SlotID: slotID}
}

func (n BTreeLeafNode) SetValueAt(index int, rid RID) {
	off := n.entryOffset(index) + KeyMaxBytes
	binary.LittleEndian.PutUint32(n.page.Data()[off:off+4], rid.PageID)
	binary.LittleEndian.PutUint16(n.page.Data()[off+4:off+6], rid.SlotID)
}

// Lookup does a binary search for an exact key match, returning -1 if key
// is absent.
func (n BTreeLeafNode) Lookup(key Value) int {
	left, right := 0, int(n.Size())-1
	for left <= right {
		mid := left + (right-left)/2
		cmp, err := n.KeyAt(mid).Compare(key)
		if err != nil {
			return -1
		}
		if cmp == 0 {
			return mid
		}
		if cmp < 0 {
			left = mid + 1
		} else {
			right = mid - 1
		}
	}
	return -1
}

// Insert keeps entries ordered by key, shifting larger entries right.
func (n BTreeLeafNode) Insert(key Value, value RID) {
	index := int(n.Size())
	for index > 0 {
		cmp, err := n.KeyAt(index - 1).Compare(key)
		if err != nil || cmp <= 0 {
			break
		}
		n.copyEntry(index-1, index)
		index--
	}
	n.SetKeyAt(index, key)
	n.SetValueAt(index, value)
	n.SetSize(n.Size() + 1)
}

func (n BTreeLeafNode) copyEntry(from, to int) {
	src := n.entryOffset(from)
	dst := n.entryOffset(to)
	copy(n.page.Data()[dst:dst+EntrySize], n.page.Data()[src:src+EntrySize])
}

// MoveHalfTo relocates the upper half of entries into recipient, preserving
// relative order so both halves stay sorted.
func (n BTreeLeafNode) MoveHalfTo(recipient BTreeLeafNode) {
	size := int(n.Size())
	half := size / 2
	moveCount := size - half
	srcOff := n.entryOffset(half)
	dstOff := recipient.entryOffset(0)
	copy(recipient.page.Data()[dstOff:dstOff+moveCount*EntrySize], n.page.Data()[srcOff:srcOff+moveCount*EntrySize])
	recipient.SetSize(uint16(moveCount))
	n.SetSize(uint16(half))
}
