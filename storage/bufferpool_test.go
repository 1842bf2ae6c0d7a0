package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samoreilly/asteroiddb/common/testutil"
)

func newTestBufferPool(t *testing.T, poolSize int) *BufferPool {
	t.Helper()
	path := filepath.Join(testutil.TempDir(t), "test.db")
	pm, err := OpenPageManager(path)
	require.NoError(t, err)
	t.Cleanup(func() { pm.Close() })

	bp, err := NewBufferPool(pm, poolSize)
	require.NoError(t, err)
	return bp
}

func Test_BufferPool_NewPage_UnpinFlush_RoundTrips(t *testing.T) {
	t.Parallel()

	bp := newTestBufferPool(t, 4)

	page, pageID, err := bp.NewPage(PageTypeData)
	require.NoError(t, err)
	_, err = page.InsertRecord([]byte("value"))
	require.NoError(t, err)
	require.NoError(t, bp.Unpin(pageID, true))
	require.NoError(t, bp.FlushPage(pageID))

	reread, err := bp.GetPage(pageID)
	require.NoError(t, err)
	got, err := reread.GetRecord(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), got)
	require.NoError(t, bp.Unpin(pageID, false))
}

func Test_BufferPool_Unpin_ErrorsWhenNotPinned(t *testing.T) {
	t.Parallel()

	bp := newTestBufferPool(t, 4)
	_, pageID, err := bp.NewPage(PageTypeData)
	require.NoError(t, err)
	require.NoError(t, bp.Unpin(pageID, false))

	err = bp.Unpin(pageID, false)
	assert.ErrorIs(t, err, ErrAlreadyUnpinned)
}

func Test_BufferPool_NewPage_ExhaustsWhenEveryFrameIsPinned(t *testing.T) {
	t.Parallel()

	bp := newTestBufferPool(t, 2)

	_, idA, err := bp.NewPage(PageTypeData)
	require.NoError(t, err)
	_, idB, err := bp.NewPage(PageTypeData)
	require.NoError(t, err)

	_, _, err = bp.NewPage(PageTypeData)
	assert.ErrorIs(t, err, ErrPoolExhausted)

	require.NoError(t, bp.Unpin(idA, false))
	require.NoError(t, bp.Unpin(idB, false))
}

func Test_BufferPool_NewPage_EvictsUnpinnedFrameWhenFull(t *testing.T) {
	t.Parallel()

	bp := newTestBufferPool(t, 2)

	_, idA, err := bp.NewPage(PageTypeData)
	require.NoError(t, err)
	_, idB, err := bp.NewPage(PageTypeData)
	require.NoError(t, err)
	require.NoError(t, bp.Unpin(idA, false))
	require.NoError(t, bp.Unpin(idB, false))

	_, idC, err := bp.NewPage(PageTypeData)
	require.NoError(t, err)
	require.NoError(t, bp.Unpin(idC, false))

	stats := bp.Stats()
	assert.GreaterOrEqual(t, stats.Evictions, int64(1))
}
