package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samoreilly/asteroiddb/common/testutil"
)

func Test_Load_MissingFileReturnsDefaultsWithDataDirectorySet(t *testing.T) {
	t.Parallel()

	dir := testutil.TempDir(t)
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.DataDirectory)
	assert.Equal(t, 128, cfg.BufferPoolSize)
	assert.Empty(t, cfg.HistoryFile)
}

func Test_Load_FileOverlaysOntoDefaults(t *testing.T) {
	t.Parallel()

	dir := testutil.TempDir(t)
	writeConfig(t, dir, `{"buffer_pool_size": 256}`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.BufferPoolSize)
	assert.Equal(t, dir, cfg.DataDirectory)
}

func Test_Load_ToleratesJSONCCommentsAndTrailingCommas(t *testing.T) {
	t.Parallel()

	dir := testutil.TempDir(t)
	writeConfig(t, dir, "{\n  // buffer pool size in frames\n  \"buffer_pool_size\": 32,\n}\n")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.BufferPoolSize)
}

func Test_Load_InvalidJSONIsError(t *testing.T) {
	t.Parallel()

	dir := testutil.TempDir(t)
	writeConfig(t, dir, `{not valid json`)

	_, err := Load(dir)
	assert.Error(t, err)
}

func Test_Load_NonPositiveBufferPoolSizeIsError(t *testing.T) {
	t.Parallel()

	dir := testutil.TempDir(t)
	writeConfig(t, dir, `{"buffer_pool_size": -1}`)

	_, err := Load(dir)
	assert.ErrorIs(t, err, errBufferPoolSizeInvalid)
}

func Test_Load_HistoryFileOverlaysWhenPresent(t *testing.T) {
	t.Parallel()

	dir := testutil.TempDir(t)
	writeConfig(t, dir, `{"history_file": "custom_history"}`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "custom_history", cfg.HistoryFile)
}

func Test_DefaultConfig_HasPositiveBufferPoolSize(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.NoError(t, validate(cfg))
}

func writeConfig(t *testing.T, dir, contents string) {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}
