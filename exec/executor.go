package exec

import (
	"fmt"
	"time"

	"github.com/samoreilly/asteroiddb/catalog"
	"github.com/samoreilly/asteroiddb/sql"
	"github.com/samoreilly/asteroiddb/storage"
)

// Executor runs parsed statements against one catalog. Grounded on
// original_source's ExecutorEngine, but dispatch uses a Go type switch in
// place of dynamic_cast against a closed set of Statement variants, and
// every execute* method returns a Result/error pair instead of printing
// to stdout.
type Executor struct {
	catalog *catalog.Catalog
}

func New(cat *catalog.Catalog) *Executor {
	return &Executor{catalog: cat}
}

// Execute runs stmt and returns its Result.
func (e *Executor) Execute(stmt sql.Statement) (*Result, error) {
	if stmt == nil {
		return nil, ErrNilStatement
	}
	start := time.Now()

	var (
		result *Result
		err    error
	)
	switch s := stmt.(type) {
	case *sql.CreateStatement:
		result, err = e.executeCreate(s)
	case *sql.InsertStatement:
		result, err = e.executeInsert(s)
	case *sql.SelectStatement:
		result, err = e.executeSelect(s)
	case *sql.DeleteStatement:
		result, err = e.executeDelete(s)
	default:
		return nil, fmt.Errorf("execute: %w", ErrUnsupportedStatement)
	}
	if err != nil {
		return nil, err
	}
	result.Elapsed = time.Since(start)
	return result, nil
}

func (e *Executor) executeCreate(stmt *sql.CreateStatement) (*Result, error) {
	columns := make([]catalog.ColumnInfo, len(stmt.Columns))
	for i, c := range stmt.Columns {
		columns[i] = catalog.ColumnInfo{Name: c.Name, Type: c.Type}
	}
	if err := e.catalog.CreateTable(stmt.Table, columns); err != nil {
		return nil, fmt.Errorf("create table %q: %w", stmt.Table, err)
	}
	return &Result{RowsAffected: 0}, nil
}

// executeInsert evaluates every row's value expressions, reorders them to
// schema order when an explicit column list was given, stores the tuple,
// and — unlike original_source's InsertExecutor, which never touched the
// index after an insert — maintains the auto-indexed column's B+Tree entry
// and persists the (possibly now-stale) root page id (OQ6).
func (e *Executor) executeInsert(stmt *sql.InsertStatement) (*Result, error) {
	heap, err := e.catalog.GetTable(stmt.Table)
	if err != nil {
		return nil, fmt.Errorf("insert into %q: %w", stmt.Table, err)
	}
	schema, err := e.catalog.GetSchema(stmt.Table)
	if err != nil {
		return nil, fmt.Errorf("insert into %q: %w", stmt.Table, err)
	}

	columnOrder := stmt.Columns
	if len(columnOrder) == 0 {
		columnOrder = make([]string, len(schema.Columns))
		for i, c := range schema.Columns {
			columnOrder[i] = c.Name
		}
	}

	columnIndices := make([]int, len(columnOrder))
	for i, name := range columnOrder {
		idx := schema.ColumnIndex(name)
		if idx < 0 {
			return nil, fmt.Errorf("insert into %q: column %q does not exist", stmt.Table, name)
		}
		columnIndices[i] = idx
	}

	var index *storage.BPlusTree
	if schema.IndexColumn != -1 {
		index, err = e.catalog.GetIndex(stmt.Table)
		if err != nil {
			return nil, fmt.Errorf("insert into %q: %w", stmt.Table, err)
		}
	}

	rowEnv := &Row{schema: schema}
	inserted := 0
	for rowNum, exprs := range stmt.Rows {
		if len(exprs) != len(columnOrder) {
			return nil, fmt.Errorf("insert into %q, row %d: %w (%d values for %d columns)",
				stmt.Table, rowNum+1, ErrColumnCountMismatch, len(exprs), len(columnOrder))
		}

		values := make([]storage.Value, len(schema.Columns))
		for i, expr := range exprs {
			v, err := expr.Eval(rowEnv)
			if err != nil {
				return nil, fmt.Errorf("insert into %q, row %d: %w", stmt.Table, rowNum+1, err)
			}
			values[columnIndices[i]] = v
		}

		rid, err := heap.InsertRecord(values)
		if err != nil {
			return nil, fmt.Errorf("insert into %q, row %d: %w", stmt.Table, rowNum+1, err)
		}

		if index != nil {
			if err := index.Insert(values[schema.IndexColumn], rid); err != nil {
				return nil, fmt.Errorf("insert into %q, row %d: index update: %w", stmt.Table, rowNum+1, err)
			}
		}
		inserted++
	}

	if index != nil && inserted > 0 {
		if err := e.catalog.Save(); err != nil {
			return nil, fmt.Errorf("insert into %q: persist catalog: %w", stmt.Table, err)
		}
	}

	return &Result{RowsAffected: inserted}, nil
}

// executeSelect picks an index access path over a full scan whenever the
// WHERE clause constrains the auto-indexed column with a usable comparison.
// "=" gets a true index seek: one B+Tree descent to a single RID, then one
// heap get. ">"/">=" get an index scan: the tree is seeked to the starting
// key and walked forward, filtering every row against the full WHERE clause
// as it goes. Mirrors original_source's findStartIndex / indexScan branch
// in SelectExecutor::execute, which draws the same seek/scan distinction.
func (e *Executor) executeSelect(stmt *sql.SelectStatement) (*Result, error) {
	heap, err := e.catalog.GetTable(stmt.Table)
	if err != nil {
		return nil, fmt.Errorf("select from %q: %w", stmt.Table, err)
	}
	schema, err := e.catalog.GetSchema(stmt.Table)
	if err != nil {
		return nil, fmt.Errorf("select from %q: %w", stmt.Table, err)
	}

	selectedIndices, selectedNames, err := resolveSelectedColumns(schema, stmt.Columns)
	if err != nil {
		return nil, fmt.Errorf("select from %q: %w", stmt.Table, err)
	}

	result := &Result{Columns: selectedNames}

	var index *storage.BPlusTree
	if schema.IndexColumn != -1 {
		index, err = e.catalog.GetIndex(stmt.Table)
		if err != nil {
			return nil, fmt.Errorf("select from %q: %w", stmt.Table, err)
		}
	}

	var startKey storage.Value
	var startOp string
	useIndex := false
	if index != nil && stmt.WhereClause != nil {
		startKey, startOp, useIndex = findIndexStartKey(stmt.WhereClause, schema.Columns[schema.IndexColumn].Name)
	}

	collect := func(values []storage.Value) error {
		row := NewRow(schema, values)
		matched, err := evaluateWhere(stmt.WhereClause, row)
		if err != nil {
			return err
		}
		if !matched {
			return nil
		}
		result.Rows = append(result.Rows, projectColumns(values, selectedIndices))
		return nil
	}

	switch {
	case useIndex && startOp == "=":
		result.IndexUsed = schema.Columns[schema.IndexColumn].Name
		rid, err := index.GetValue(startKey)
		if err != nil {
			return nil, fmt.Errorf("select from %q: %w", stmt.Table, err)
		}
		if rid.IsValid() {
			values, err := heap.GetRecord(rid)
			if err == nil {
				if err := collect(values); err != nil {
					return nil, fmt.Errorf("select from %q: %w", stmt.Table, err)
				}
			}
		}
	case useIndex:
		result.IndexUsed = schema.Columns[schema.IndexColumn].Name
		it, err := index.SeekIterator(startKey)
		if err != nil {
			return nil, fmt.Errorf("select from %q: %w", stmt.Table, err)
		}
		for it.Valid() {
			rid, err := it.RID()
			if err != nil {
				return nil, fmt.Errorf("select from %q: %w", stmt.Table, err)
			}
			values, err := heap.GetRecord(rid)
			if err == nil {
				if err := collect(values); err != nil {
					return nil, fmt.Errorf("select from %q: %w", stmt.Table, err)
				}
			}
			if err := it.Advance(); err != nil {
				return nil, fmt.Errorf("select from %q: %w", stmt.Table, err)
			}
		}
	default:
		it, err := heap.Begin()
		if err != nil {
			return nil, fmt.Errorf("select from %q: %w", stmt.Table, err)
		}
		for it.Valid() {
			values, err := it.Record()
			if err != nil {
				_ = it.Close()
				return nil, fmt.Errorf("select from %q: %w", stmt.Table, err)
			}
			if err := collect(values); err != nil {
				_ = it.Close()
				return nil, fmt.Errorf("select from %q: %w", stmt.Table, err)
			}
			if err := it.Next(); err != nil {
				_ = it.Close()
				return nil, fmt.Errorf("select from %q: %w", stmt.Table, err)
			}
		}
		if err := it.Close(); err != nil {
			return nil, fmt.Errorf("select from %q: %w", stmt.Table, err)
		}
	}

	return result, nil
}

// executeDelete removes every row in the table. original_source's
// DeleteStatement never carried a WhereClause (its comment: "Note:
// DeleteStatement in Node.h doesn't have whereClause field. So we'll
// delete all rows for now") and OQ1 keeps that behavior rather than
// inventing row-filtered delete; a parsed-but-ignored WHERE produces a
// Warning instead of silently doing something the SQL text didn't ask for.
func (e *Executor) executeDelete(stmt *sql.DeleteStatement) (*Result, error) {
	heap, err := e.catalog.GetTable(stmt.Table)
	if err != nil {
		return nil, fmt.Errorf("delete from %q: %w", stmt.Table, err)
	}

	var toDelete []storage.RID
	it, err := heap.Begin()
	if err != nil {
		return nil, fmt.Errorf("delete from %q: %w", stmt.Table, err)
	}
	for it.Valid() {
		toDelete = append(toDelete, it.RID())
		if err := it.Next(); err != nil {
			_ = it.Close()
			return nil, fmt.Errorf("delete from %q: %w", stmt.Table, err)
		}
	}
	if err := it.Close(); err != nil {
		return nil, fmt.Errorf("delete from %q: %w", stmt.Table, err)
	}

	deleted := 0
	for _, rid := range toDelete {
		if err := heap.DeleteRecord(rid); err != nil {
			return nil, fmt.Errorf("delete from %q: %w", stmt.Table, err)
		}
		deleted++
	}

	result := &Result{RowsAffected: deleted}
	if stmt.IgnoredWhere != nil {
		result.Warning = "DELETE has no WHERE support; all rows were removed"
	}
	return result, nil
}

func evaluateWhere(where sql.Expression, row *Row) (bool, error) {
	if where == nil {
		return true, nil
	}
	v, err := where.Eval(row)
	if err != nil {
		return false, err
	}
	return v.Kind() == storage.KindBool && v.AsBool(), nil
}

func resolveSelectedColumns(schema *catalog.TableSchema, requested []string) ([]int, []string, error) {
	if len(requested) == 1 && requested[0] == "*" {
		indices := make([]int, len(schema.Columns))
		names := make([]string, len(schema.Columns))
		for i, c := range schema.Columns {
			indices[i] = i
			names[i] = c.Name
		}
		return indices, names, nil
	}

	indices := make([]int, len(requested))
	names := make([]string, len(requested))
	for i, name := range requested {
		idx := schema.ColumnIndex(name)
		if idx < 0 {
			return nil, nil, fmt.Errorf("column %q does not exist", name)
		}
		indices[i] = idx
		names[i] = name
	}
	return indices, names, nil
}

func projectColumns(values []storage.Value, indices []int) []storage.Value {
	projected := make([]storage.Value, 0, len(indices))
	for _, idx := range indices {
		if idx < len(values) {
			projected = append(projected, values[idx])
		}
	}
	return projected
}
