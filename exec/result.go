package exec

import (
	"fmt"
	"strings"
	"time"

	"github.com/samoreilly/asteroiddb/storage"
)

// Result is what every Execute call returns: a fixed-width-rendered table
// for SELECT, or a row count for the mutating statements. Grounded on
// original_source's SelectExecutor::printResults, reshaped so rendering is
// a pure function of the result rather than something the executor prints
// to stdout directly.
type Result struct {
	Columns      []string
	Rows         [][]storage.Value
	RowsAffected int
	IndexUsed    string // non-empty names the indexed column a SELECT used (index seek or index scan)
	Warning      string // e.g. "DELETE has no WHERE support; all rows were removed"
	Elapsed      time.Duration
}

const columnWidth = 15

// Render formats the result the way the original engine's REPL prints
// SELECT output: a left-aligned header row, a dashed separator, the rows,
// and a trailing "(N rows, M ms)" footer. A non-empty Warning is printed
// first, on its own "Warning: ..." line.
func (r *Result) Render() string {
	var b strings.Builder

	if r.Warning != "" {
		fmt.Fprintf(&b, "Warning: %s\n", r.Warning)
	}

	if len(r.Columns) == 0 {
		fmt.Fprintf(&b, "No results (0 rows, %d ms)", r.Elapsed.Milliseconds())
		return b.String()
	}

	b.WriteString("\n")
	for _, col := range r.Columns {
		fmt.Fprintf(&b, "%-*s", columnWidth, col)
	}
	b.WriteString("\n")
	for range r.Columns {
		b.WriteString(strings.Repeat("-", columnWidth))
	}
	b.WriteString("\n")

	for _, row := range r.Rows {
		for _, v := range row {
			fmt.Fprintf(&b, "%-*s", columnWidth, v.String())
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\n(%d rows, %d ms)", len(r.Rows), r.Elapsed.Milliseconds())
	return b.String()
}
