package catalog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/samoreilly/asteroiddb/storage"
)

// ColumnInfo is one column's name and declared type name (INT, DOUBLE,
// VARCHAR, BOOL — accepted but not enforced beyond the Record codec's own
// type tags, per spec.md §6.2).
type ColumnInfo struct {
	Name string
	Type string
}

// TableSchema describes one table: its columns, and its single
// auto-indexed column (always column 0, or none if the table has no
// columns). Grounded on original_source's TableSchema.
type TableSchema struct {
	TableName       string
	Columns         []ColumnInfo
	IndexColumn     int // -1 if none
	IndexRootPageID uint32
}

func (s *TableSchema) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (s *TableSchema) HasColumn(name string) bool { return s.ColumnIndex(name) >= 0 }

type tableEntry struct {
	heap   *storage.TableHeap
	index  *storage.BPlusTree // nil if the table has no columns
	schema TableSchema
}

// Catalog owns every open table's schema, TableHeap, and secondary index
// for one database directory, and persists schemas to `catalog.meta`.
// Grounded on original_source/core/engine/executor/Catalog.h/.cpp.
type Catalog struct {
	dbDirectory string
	poolSize    int
	tables      map[string]*tableEntry
}

const metaFileName = "catalog.meta"

// Open loads an existing catalog.meta (if present) from dbDirectory,
// reopening every table's storage, or starts a fresh empty catalog.
func Open(dbDirectory string, poolSize int) (*Catalog, error) {
	c := &Catalog{dbDirectory: dbDirectory, poolSize: poolSize, tables: make(map[string]*tableEntry)}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateTable registers a new table, auto-indexing column 0 (spec.md §4.7),
// and persists the updated catalog.
func (c *Catalog) CreateTable(tableName string, columns []ColumnInfo) error {
	if c.TableExists(tableName) {
		return fmt.Errorf("create table %q: %w", tableName, ErrTableExists)
	}

	schema := TableSchema{TableName: tableName, Columns: columns, IndexColumn: -1}
	if len(columns) > 0 {
		schema.IndexColumn = 0
	}

	heap, err := storage.OpenTableHeap(c.dbDirectory, tableName, c.poolSize)
	if err != nil {
		return fmt.Errorf("create table %q: %w", tableName, err)
	}

	entry := &tableEntry{heap: heap, schema: schema}
	if schema.IndexColumn != -1 {
		tree := storage.NewBPlusTree(tableName+"_idx", heap.BufferPool(), heap.PageManager())
		entry.index = tree
		schema.IndexRootPageID = tree.RootPageID()
		entry.schema = schema
	}

	c.tables[tableName] = entry
	return c.save()
}

func (c *Catalog) TableExists(tableName string) bool {
	_, ok := c.tables[tableName]
	return ok
}

// GetTable returns the table's heap, or ErrTableNotFound.
func (c *Catalog) GetTable(tableName string) (*storage.TableHeap, error) {
	e, ok := c.tables[tableName]
	if !ok {
		return nil, fmt.Errorf("get table %q: %w", tableName, ErrTableNotFound)
	}
	return e.heap, nil
}

// GetSchema returns a copy of the table's schema.
func (c *Catalog) GetSchema(tableName string) (*TableSchema, error) {
	e, ok := c.tables[tableName]
	if !ok {
		return nil, fmt.Errorf("get schema %q: %w", tableName, ErrTableNotFound)
	}
	schema := e.schema
	return &schema, nil
}

// GetIndex returns the table's secondary index, or nil if it has none.
func (c *Catalog) GetIndex(tableName string) (*storage.BPlusTree, error) {
	e, ok := c.tables[tableName]
	if !ok {
		return nil, fmt.Errorf("get index %q: %w", tableName, ErrTableNotFound)
	}
	return e.index, nil
}

// DropTable removes the table from the catalog, closes its storage, and
// unlinks its .db file. Unlinking is a deliberate fix over
// original_source's dropTable, which erases the in-memory entries but
// leaves the file on disk (OQ2).
func (c *Catalog) DropTable(tableName string) error {
	e, ok := c.tables[tableName]
	if !ok {
		return fmt.Errorf("drop table %q: %w", tableName, ErrTableNotFound)
	}

	if err := e.heap.Close(); err != nil {
		return fmt.Errorf("drop table %q: %w", tableName, err)
	}
	delete(c.tables, tableName)

	path := filepath.Join(c.dbDirectory, tableName+".db")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("drop table %q: remove %s: %w", tableName, path, err)
	}

	return c.save()
}

// TableNames returns every table's name, for the REPL's `\d` listing.
func (c *Catalog) TableNames() []string {
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	return names
}

// Save persists the current catalog state (including each table's live
// B+Tree root page id) to catalog.meta. exec calls this after any INSERT
// that may have grown or split the auto-indexed column's tree.
func (c *Catalog) Save() error { return c.save() }

// save rewrites catalog.meta atomically, in the plain-text format
// original_source's Catalog::save() defines: a table count, then per table
// "name colCount indexCol indexRootPageId" followed by one "name type" line
// per column.
func (c *Catalog) save() error {
	var b strings.Builder
	fmt.Fprintf(&b, "%d\n", len(c.tables))
	for name, e := range c.tables {
		s := e.schema
		if e.index != nil {
			s.IndexRootPageID = e.index.RootPageID()
			e.schema.IndexRootPageID = s.IndexRootPageID
		}
		fmt.Fprintf(&b, "%s %d %d %d\n", name, len(s.Columns), s.IndexColumn, s.IndexRootPageID)
		for _, col := range s.Columns {
			fmt.Fprintf(&b, "%s %s\n", col.Name, col.Type)
		}
	}

	path := filepath.Join(c.dbDirectory, metaFileName)
	if err := atomic.WriteFile(path, strings.NewReader(b.String())); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	return nil
}

// load reads catalog.meta (if present) and reopens each table's storage.
func (c *Catalog) load() error {
	path := filepath.Join(c.dbDirectory, metaFileName)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("load catalog: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(bufio.ScanWords)

	nextToken := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		return scanner.Text(), true
	}

	countTok, ok := nextToken()
	if !ok {
		return nil
	}
	tableCount, err := strconv.Atoi(countTok)
	if err != nil {
		return fmt.Errorf("load catalog: bad table count: %w", err)
	}

	for i := 0; i < tableCount; i++ {
		name, ok := nextToken()
		if !ok {
			break
		}
		colCountTok, ok := nextToken()
		if !ok {
			break
		}
		indexColTok, ok := nextToken()
		if !ok {
			break
		}
		indexRootTok, ok := nextToken()
		if !ok {
			break
		}

		colCount, err := strconv.Atoi(colCountTok)
		if err != nil {
			return fmt.Errorf("load catalog: bad column count for %q: %w", name, err)
		}
		indexCol, err := strconv.Atoi(indexColTok)
		if err != nil {
			return fmt.Errorf("load catalog: bad index column for %q: %w", name, err)
		}
		indexRoot, err := strconv.ParseUint(indexRootTok, 10, 32)
		if err != nil {
			return fmt.Errorf("load catalog: bad index root for %q: %w", name, err)
		}

		schema := TableSchema{TableName: name, IndexColumn: indexCol, IndexRootPageID: uint32(indexRoot)}
		for j := 0; j < colCount; j++ {
			colName, ok := nextToken()
			if !ok {
				break
			}
			colType, ok := nextToken()
			if !ok {
				break
			}
			schema.Columns = append(schema.Columns, ColumnInfo{Name: colName, Type: colType})
		}

		heap, err := storage.OpenTableHeap(c.dbDirectory, name, c.poolSize)
		if err != nil {
			return fmt.Errorf("load catalog: reopen table %q: %w", name, err)
		}
		entry := &tableEntry{heap: heap, schema: schema}
		if schema.IndexColumn != -1 {
			tree := storage.NewBPlusTree(name+"_idx", heap.BufferPool(), heap.PageManager())
			tree.SetRootPageID(schema.IndexRootPageID)
			entry.index = tree
		}
		c.tables[name] = entry
	}
	return nil
}

// Close flushes and closes every open table.
func (c *Catalog) Close() error {
	for name, e := range c.tables {
		if err := e.heap.Close(); err != nil {
			return fmt.Errorf("close table %q: %w", name, err)
		}
	}
	return nil
}
