package main

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samoreilly/asteroiddb/asteroiddb"
	"github.com/samoreilly/asteroiddb/common/testutil"
)

func newTestShell(t *testing.T) *shell {
	t.Helper()
	db, err := asteroiddb.Open(testutil.TempDir(t), 0)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &shell{db: db}
}

// captureStdout redirects os.Stdout for the duration of fn and returns
// everything written to it, since the shell's output methods write
// directly to fmt.Println rather than an injectable writer.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)

	orig := os.Stdout
	os.Stdout = w
	fn()
	os.Stdout = orig
	require.NoError(t, w.Close())

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func Test_DispatchMeta_RecognizesKnownCommands(t *testing.T) {
	t.Parallel()

	s := newTestShell(t)
	for _, line := range []string{"\\d", "\\d widgets", "\\stats", "help", "?"} {
		assert.True(t, s.dispatchMeta(line), "expected %q to be handled as a meta command", line)
	}
}

func Test_DispatchMeta_FallsThroughForSQL(t *testing.T) {
	t.Parallel()

	s := newTestShell(t)
	assert.False(t, s.dispatchMeta("SELECT * FROM widgets"))
}

func Test_Describe_NoArgsListsTables(t *testing.T) {
	t.Parallel()

	s := newTestShell(t)
	_, err := s.db.Exec("CREATE TABLE widgets (id INT, name VARCHAR)")
	require.NoError(t, err)

	out := captureStdout(t, func() { s.describe(nil) })
	assert.Contains(t, out, "widgets")
}

func Test_Describe_NoTablesPrintsPlaceholder(t *testing.T) {
	t.Parallel()

	s := newTestShell(t)
	out := captureStdout(t, func() { s.describe(nil) })
	assert.Contains(t, out, "(no tables)")
}

func Test_Describe_WithTableNamePrintsColumns(t *testing.T) {
	t.Parallel()

	s := newTestShell(t)
	_, err := s.db.Exec("CREATE TABLE widgets (id INT, name VARCHAR)")
	require.NoError(t, err)

	out := captureStdout(t, func() { s.describe([]string{"widgets"}) })
	assert.Contains(t, out, "id")
	assert.Contains(t, out, "name")
	assert.Contains(t, out, "(indexed)")
}

func Test_Describe_UnknownTablePrintsError(t *testing.T) {
	t.Parallel()

	s := newTestShell(t)
	out := captureStdout(t, func() { s.describe([]string{"ghost"}) })
	assert.Contains(t, out, "Error")
}

func Test_PrintStats_WithNoTablesPrintsPlaceholder(t *testing.T) {
	t.Parallel()

	s := newTestShell(t)
	s.sessionID = uuid.New()
	out := captureStdout(t, func() { s.printStats(nil) })
	assert.Contains(t, out, "(no tables)")
	assert.Contains(t, out, s.sessionID.String())
}

func Test_PrintStats_ReportsCountersForExistingTable(t *testing.T) {
	t.Parallel()

	s := newTestShell(t)
	s.sessionID = uuid.New()
	_, err := s.db.Exec("CREATE TABLE widgets (id INT)")
	require.NoError(t, err)
	_, err = s.db.Exec("INSERT INTO widgets VALUES (1)")
	require.NoError(t, err)

	out := captureStdout(t, func() { s.printStats(nil) })
	assert.True(t, strings.Contains(out, "widgets:"))
	assert.Contains(t, out, "pages allocated=")
}

func Test_Completer_MatchesPrefix(t *testing.T) {
	t.Parallel()

	s := newTestShell(t)
	matches := s.completer("sel")
	assert.Contains(t, matches, "select")
}

func Test_Completer_NoMatchesForUnknownPrefix(t *testing.T) {
	t.Parallel()

	s := newTestShell(t)
	assert.Empty(t, s.completer("zzz"))
}
