package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Page_InsertGetRecord_RoundTrips(t *testing.T) {
	t.Parallel()

	p := NewPage(1, PageTypeData)
	slotID, err := p.InsertRecord([]byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, uint16(0), slotID)

	got, err := p.GetRecord(slotID)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), got)
	assert.Equal(t, uint16(1), p.SlotCount())
}

func Test_Page_InsertRecord_ReusesTombstonedSlot(t *testing.T) {
	t.Parallel()

	p := NewPage(1, PageTypeData)
	slotA, err := p.InsertRecord([]byte("aaa"))
	require.NoError(t, err)
	_, err = p.InsertRecord([]byte("bbb"))
	require.NoError(t, err)

	require.NoError(t, p.DeleteRecord(slotA))

	reusedSlot, err := p.InsertRecord([]byte("cc"))
	require.NoError(t, err)
	assert.Equal(t, slotA, reusedSlot)
	assert.Equal(t, uint16(2), p.SlotCount())
}

func Test_Page_GetRecord_TombstonedOrOutOfRange(t *testing.T) {
	t.Parallel()

	p := NewPage(1, PageTypeData)
	slotID, err := p.InsertRecord([]byte("x"))
	require.NoError(t, err)

	_, err = p.GetRecord(slotID + 1)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, p.DeleteRecord(slotID))
	_, err = p.GetRecord(slotID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func Test_Page_InsertRecord_ErrNoSpaceWhenFull(t *testing.T) {
	t.Parallel()

	p := NewPage(1, PageTypeData)
	big := make([]byte, PageSize)
	_, err := p.InsertRecord(big)
	assert.ErrorIs(t, err, ErrRecordTooLarge)

	filler := make([]byte, PageSize-HeaderSize-SlotSize)
	_, err = p.InsertRecord(filler)
	require.NoError(t, err)

	_, err = p.InsertRecord([]byte("one more byte than fits"))
	assert.ErrorIs(t, err, ErrNoSpace)
}

func Test_Page_UpdateRecord_InPlaceWhenItFits(t *testing.T) {
	t.Parallel()

	p := NewPage(1, PageTypeData)
	slotID, err := p.InsertRecord([]byte("0123456789"))
	require.NoError(t, err)
	freeBefore := p.FreeSpace()

	require.NoError(t, p.UpdateRecord(slotID, []byte("short")))

	got, err := p.GetRecord(slotID)
	require.NoError(t, err)
	assert.Equal(t, []byte("short"), got)
	// An in-place shrink does not reclaim bytes; only Compact does.
	assert.Equal(t, freeBefore, p.FreeSpace())
}

func Test_Page_UpdateRecord_CompactsWhenLarger(t *testing.T) {
	t.Parallel()

	p := NewPage(1, PageTypeData)
	slotA, err := p.InsertRecord([]byte("aaa"))
	require.NoError(t, err)
	slotB, err := p.InsertRecord([]byte("bbb"))
	require.NoError(t, err)

	require.NoError(t, p.UpdateRecord(slotA, []byte("a-much-longer-replacement-value")))

	gotA, err := p.GetRecord(slotA)
	require.NoError(t, err)
	assert.Equal(t, []byte("a-much-longer-replacement-value"), gotA)

	gotB, err := p.GetRecord(slotB)
	require.NoError(t, err)
	assert.Equal(t, []byte("bbb"), gotB)
}

func Test_Page_Compact_ReclaimsTombstonedSpace(t *testing.T) {
	t.Parallel()

	p := NewPage(1, PageTypeData)
	slotA, err := p.InsertRecord([]byte("aaaaaaaaaa"))
	require.NoError(t, err)
	slotB, err := p.InsertRecord([]byte("bbbbbbbbbb"))
	require.NoError(t, err)

	require.NoError(t, p.DeleteRecord(slotA))
	freeBeforeCompact := p.FreeSpace()
	p.Compact()
	assert.Greater(t, p.FreeSpace(), freeBeforeCompact)

	gotB, err := p.GetRecord(slotB)
	require.NoError(t, err)
	assert.Equal(t, []byte("bbbbbbbbbb"), gotB)
}
