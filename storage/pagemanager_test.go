package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/samoreilly/asteroiddb/common/testutil"
)

func Test_PageManager_AllocatePage_GrowsAndReusesFreedIDs(t *testing.T) {
	t.Parallel()

	path := filepath.Join(testutil.TempDir(t), "test.db")
	pm, err := OpenPageManager(path)
	require.NoError(t, err)
	defer pm.Close()

	a, err := pm.AllocatePage(PageTypeData)
	require.NoError(t, err)
	b, err := pm.AllocatePage(PageTypeData)
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	pm.DeallocatePage(a)
	c, err := pm.AllocatePage(PageTypeData)
	require.NoError(t, err)
	require.Equal(t, a, c)
}

func Test_PageManager_WriteReadPage_RoundTrips(t *testing.T) {
	t.Parallel()

	path := filepath.Join(testutil.TempDir(t), "test.db")
	pm, err := OpenPageManager(path)
	require.NoError(t, err)
	defer pm.Close()

	pageID, err := pm.AllocatePage(PageTypeData)
	require.NoError(t, err)

	page := NewPage(pageID, PageTypeData)
	_, err = page.InsertRecord([]byte("persisted"))
	require.NoError(t, err)
	require.NoError(t, pm.WritePage(page))

	reread := &Page{}
	require.NoError(t, pm.ReadPage(pageID, reread))
	got, err := reread.GetRecord(0)
	require.NoError(t, err)
	require.Equal(t, []byte("persisted"), got)
}

func Test_PageManager_FreeListSurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(testutil.TempDir(t), "test.db")
	pm, err := OpenPageManager(path)
	require.NoError(t, err)

	a, err := pm.AllocatePage(PageTypeData)
	require.NoError(t, err)
	_, err = pm.AllocatePage(PageTypeData)
	require.NoError(t, err)
	pm.DeallocatePage(a)
	require.NoError(t, pm.Close())

	reopened, err := OpenPageManager(path)
	require.NoError(t, err)
	defer reopened.Close()

	reused, err := reopened.AllocatePage(PageTypeData)
	require.NoError(t, err)
	require.Equal(t, a, reused)
}
