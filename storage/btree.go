package storage

import "fmt"

// BPlusTree is a disk-resident secondary index over one table column.
// Grounded on original_source's BPlusTree.h/.cpp: point lookup via
// root-to-leaf descent, insert-with-split propagating a rising key upward,
// no deletion or rebalancing (spec.md Non-goals).
type BPlusTree struct {
	name       string
	bufferPool *BufferPool
	pageMgr    *PageManager
	rootPageID uint32
}

func NewBPlusTree(name string, bp *BufferPool, pm *PageManager) *BPlusTree {
	return &BPlusTree{name: name, bufferPool: bp, pageMgr: pm, rootPageID: InvalidPageID}
}

// RootPageID exposes the current root for persistence in the catalog.
func (t *BPlusTree) RootPageID() uint32 { return t.rootPageID }

// SetRootPageID restores a root loaded from the catalog on reopen.
func (t *BPlusTree) SetRootPageID(id uint32) { t.rootPageID = id }

// checkKeyFits bounds keys to the fixed 32-byte (KeyMaxBytes) serialized prefix
// every B+Tree entry allots (OQ3: reject too-long keys rather than
// silently truncate them into ambiguous collisions).
func checkKeyFits(key Value) error {
	if len(EncodeRecord([]Value{key})) > KeyMaxBytes {
		return fmt.Errorf("key %v: %w", key, ErrKeyTooLong)
	}
	return nil
}

// GetValue returns the RID stored for key, or the invalid RID if absent.
func (t *BPlusTree) GetValue(key Value) (RID, error) {
	if t.rootPageID == InvalidPageID {
		return InvalidRID, nil
	}

	leafID, err := t.findLeafPageID(key)
	if err != nil {
		return InvalidRID, err
	}
	page, err := t.bufferPool.GetPage(leafID)
	if err != nil {
		return InvalidRID, err
	}
	leaf := NewBTreeLeafNode(page)
	idx := leaf.Lookup(key)
	result := InvalidRID
	if idx != -1 {
		result = leaf.ValueAt(idx)
	}
	if err := t.bufferPool.Unpin(leafID, false); err != nil {
		return InvalidRID, err
	}
	return result, nil
}

// findLeafPageID descends from the root to the leaf that would hold key.
func (t *BPlusTree) findLeafPageID(key Value) (uint32, error) {
	currID := t.rootPageID
	for {
		page, err := t.bufferPool.GetPage(currID)
		if err != nil {
			return 0, err
		}
		node := btreeNode{page}
		if node.IsLeaf() {
			if err := t.bufferPool.Unpin(currID, false); err != nil {
				return 0, err
			}
			return currID, nil
		}

		internal := NewBTreeInternalNode(page)
		nextID := internal.Lookup(key)
		if err := t.bufferPool.Unpin(currID, false); err != nil {
			return 0, err
		}
		if nextID == InvalidPageID {
			return 0, fmt.Errorf("find leaf: invalid child page id from internal node %d: %w", currID, ErrInvalidPage)
		}
		currID = nextID
	}
}

// Insert adds (key, rid), splitting nodes and propagating a rising key up
// to the parent (creating a new root if necessary) whenever a node fills.
func (t *BPlusTree) Insert(key Value, rid RID) error {
	if err := checkKeyFits(key); err != nil {
		return err
	}

	if t.rootPageID == InvalidPageID {
		page, pageID, err := t.bufferPool.NewPage(PageTypeBTreeLeaf)
		if err != nil {
			return err
		}
		leaf := NewBTreeLeafNode(page)
		leaf.Init(InvalidPageID)
		leaf.Insert(key, rid)
		t.rootPageID = pageID
		return t.bufferPool.Unpin(pageID, true)
	}

	leafID, err := t.findLeafPageID(key)
	if err != nil {
		return err
	}
	page, err := t.bufferPool.GetPage(leafID)
	if err != nil {
		return err
	}
	leaf := NewBTreeLeafNode(page)
	leaf.Insert(key, rid)

	if leaf.Size() >= leaf.MaxSize() {
		return t.splitLeaf(leaf, leafID)
	}
	return t.bufferPool.Unpin(leafID, true)
}

func (t *BPlusTree) splitLeaf(leaf BTreeLeafNode, oldLeafID uint32) error {
	newPage, newPageID, err := t.bufferPool.NewPage(PageTypeBTreeLeaf)
	if err != nil {
		return err
	}
	newLeaf := NewBTreeLeafNode(newPage)
	newLeaf.Init(leaf.ParentPageID())
	leaf.MoveHalfTo(newLeaf)

	newLeaf.SetNextPageID(leaf.NextPageID())
	leaf.SetNextPageID(newPageID)

	risingKey := newLeaf.KeyAt(0)

	if err := t.bufferPool.Unpin(oldLeafID, true); err != nil {
		return err
	}
	if err := t.bufferPool.Unpin(newPageID, true); err != nil {
		return err
	}

	return t.insertIntoParent(oldLeafID, risingKey, newPageID)
}

func (t *BPlusTree) insertIntoParent(oldPageID uint32, key Value, newPageID uint32) error {
	oldPage, err := t.bufferPool.GetPage(oldPageID)
	if err != nil {
		return err
	}
	oldNode := btreeNode{oldPage}
	parentID := oldNode.ParentPageID()
	if err := t.bufferPool.Unpin(oldPageID, false); err != nil {
		return err
	}

	if parentID == InvalidPageID {
		return t.createNewRoot(oldPageID, key, newPageID)
	}

	parentPage, err := t.bufferPool.GetPage(parentID)
	if err != nil {
		return err
	}
	parent := NewBTreeInternalNode(parentPage)
	parent.Insert(key, newPageID)

	if parent.Size() >= parent.MaxSize() {
		return t.splitInternal(parent, parentID)
	}
	return t.bufferPool.Unpin(parentID, true)
}

// createNewRoot builds a fresh internal root over the two halves of a split
// node, using the sentinel convention from original_source: entry 0's key
// is never compared against (it covers "everything less than entry 1's key").
func (t *BPlusTree) createNewRoot(oldPageID uint32, key Value, newPageID uint32) error {
	rootPage, rootPageID, err := t.bufferPool.NewPage(PageTypeBTreeInternal)
	if err != nil {
		return err
	}
	root := NewBTreeInternalNode(rootPage)
	root.Init(InvalidPageID)
	root.Insert(NullValue(), oldPageID)
	root.Insert(key, newPageID)

	t.rootPageID = rootPageID

	if err := t.setParent(oldPageID, rootPageID); err != nil {
		return err
	}
	if err := t.setParent(newPageID, rootPageID); err != nil {
		return err
	}
	return t.bufferPool.Unpin(rootPageID, true)
}

func (t *BPlusTree) setParent(childPageID, parentPageID uint32) error {
	page, err := t.bufferPool.GetPage(childPageID)
	if err != nil {
		return err
	}
	btreeNode{page}.SetParentPageID(parentPageID)
	return t.bufferPool.Unpin(childPageID, true)
}

func (t *BPlusTree) splitInternal(internal BTreeInternalNode, oldID uint32) error {
	newPage, newPageID, err := t.bufferPool.NewPage(PageTypeBTreeInternal)
	if err != nil {
		return err
	}
	newNode := NewBTreeInternalNode(newPage)
	newNode.Init(internal.ParentPageID())
	internal.MoveHalfTo(newNode)

	risingKey := newNode.KeyAt(0)

	for i := 0; i < int(newNode.Size()); i++ {
		childID := newNode.ValueAt(i)
		if err := t.setParent(childID, newPageID); err != nil {
			return err
		}
	}

	if err := t.bufferPool.Unpin(oldID, true); err != nil {
		return err
	}
	if err := t.bufferPool.Unpin(newPageID, true); err != nil {
		return err
	}

	return t.insertIntoParent(oldID, risingKey, newPageID)
}

// LeafIterator walks leaf entries left-to-right starting at the leaf that
// would hold startKey, re-evaluating nothing itself — callers (exec's
// index-scan access path) filter rows against the rest of the predicate.
type LeafIterator struct {
	tree      *BPlusTree
	pageID    uint32
	index     int
	pinned    bool
	done      bool
}

// SeekIterator returns an iterator positioned at the first entry whose key
// is >= startKey; if the tree has no such key the iterator is returned
// already exhausted (Valid reports false).
func (t *BPlusTree) SeekIterator(startKey Value) (*LeafIterator, error) {
	if t.rootPageID == InvalidPageID {
		return &LeafIterator{tree: t, done: true}, nil
	}
	leafID, err := t.findLeafPageID(startKey)
	if err != nil {
		return nil, err
	}
	page, err := t.bufferPool.GetPage(leafID)
	if err != nil {
		return nil, err
	}
	leaf := NewBTreeLeafNode(page)

	idx := 0
	for idx < int(leaf.Size()) {
		cmp, err := leaf.KeyAt(idx).Compare(startKey)
		if err != nil || cmp >= 0 {
			break
		}
		idx++
	}
	if err := t.bufferPool.Unpin(leafID, false); err != nil {
		return nil, err
	}

	it := &LeafIterator{tree: t, pageID: leafID, index: idx, pinned: true}
	if err := it.advanceToValidEntry(); err != nil {
		return nil, err
	}
	return it, nil
}

func (it *LeafIterator) advanceToValidEntry() error {
	for {
		if !it.pinned {
			it.done = true
			return nil
		}
		page, err := it.tree.bufferPool.GetPage(it.pageID)
		if err != nil {
			return err
		}
		leaf := NewBTreeLeafNode(page)
		size := int(leaf.Size())
		if it.index < size {
			if err := it.tree.bufferPool.Unpin(it.pageID, false); err != nil {
				return err
			}
			return nil
		}

		next := leaf.NextPageID()
		if err := it.tree.bufferPool.Unpin(it.pageID, false); err != nil {
			return err
		}
		if next == InvalidPageID {
			it.pinned = false
			it.done = true
			return nil
		}
		it.pageID = next
		it.index = 0
	}
}

// Valid reports whether Key/RID can be called.
func (it *LeafIterator) Valid() bool { return !it.done }

// Key returns the current entry's key.
func (it *LeafIterator) Key() (Value, error) {
	page, err := it.tree.bufferPool.GetPage(it.pageID)
	if err != nil {
		return Value{}, err
	}
	leaf := NewBTreeLeafNode(page)
	key := leaf.KeyAt(it.index)
	return key, it.tree.bufferPool.Unpin(it.pageID, false)
}

// RID returns the current entry's RID.
func (it *LeafIterator) RID() (RID, error) {
	page, err := it.tree.bufferPool.GetPage(it.pageID)
	if err != nil {
		return InvalidRID, err
	}
	leaf := NewBTreeLeafNode(page)
	rid := leaf.ValueAt(it.index)
	return rid, it.tree.bufferPool.Unpin(it.pageID, false)
}

// Advance moves to the next entry, crossing leaf boundaries as needed.
func (it *LeafIterator) Advance() error {
	if it.done {
		return nil
	}
	it.index++
	it.pinned = true
	return it.advanceToValidEntry()
}
