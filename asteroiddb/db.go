// Package asteroiddb is the embedder-facing entry point: open a database
// directory, run SQL statements, close it.
package asteroiddb

import (
	"fmt"

	"github.com/samoreilly/asteroiddb/catalog"
	"github.com/samoreilly/asteroiddb/config"
	"github.com/samoreilly/asteroiddb/exec"
	"github.com/samoreilly/asteroiddb/sql"
	"github.com/samoreilly/asteroiddb/storage"
)

// DB wires a Catalog and an Executor to one database directory. There is
// no original_source analogue for this type — the original engine only
// ever existed as a single monolithic REPL process — so it follows the
// teacher's idiom (plain constructor, method set, sentinel errors) rather
// than any specific source file.
type DB struct {
	cfg      config.Config
	catalog  *catalog.Catalog
	executor *exec.Executor
}

// Open opens (or creates) the database rooted at dataDirectory, loading
// config.FileName if present. poolSizeOverride, when positive, wins over
// both the config file and DefaultConfig — it's how cmd/asteroiddb's
// `--pool-size` flag reaches the buffer pool without the CLI reaching into
// the config package directly.
func Open(dataDirectory string, poolSizeOverride int) (*DB, error) {
	cfg, err := config.Load(dataDirectory)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if poolSizeOverride > 0 {
		cfg.BufferPoolSize = poolSizeOverride
	}

	cat, err := catalog.Open(cfg.DataDirectory, cfg.BufferPoolSize)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return &DB{cfg: cfg, catalog: cat, executor: exec.New(cat)}, nil
}

// Exec parses and runs one SQL statement.
func (db *DB) Exec(statement string) (*exec.Result, error) {
	stmt, err := sql.Parse(statement)
	if err != nil {
		return nil, err
	}
	return db.executor.Execute(stmt)
}

// TableNames lists every table currently registered in the catalog.
func (db *DB) TableNames() []string { return db.catalog.TableNames() }

// Schema returns the named table's schema.
func (db *DB) Schema(tableName string) (*catalog.TableSchema, error) {
	return db.catalog.GetSchema(tableName)
}

// Stats returns the named table's combined page-manager/buffer-pool
// bookkeeping, for the REPL's `\stats` command.
func (db *DB) Stats(tableName string) (storage.Stats, error) {
	heap, err := db.catalog.GetTable(tableName)
	if err != nil {
		return storage.Stats{}, err
	}
	return heap.Stats(), nil
}

// Close flushes and closes every open table.
func (db *DB) Close() error {
	return db.catalog.Close()
}
