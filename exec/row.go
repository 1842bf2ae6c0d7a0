package exec

import (
	"github.com/samoreilly/asteroiddb/catalog"
	"github.com/samoreilly/asteroiddb/storage"
)

// Row adapts one decoded tuple plus its schema to sql.Env, so WHERE and
// VALUES expressions can resolve column names without the evaluator
// reaching into any shared executor state. Grounded on
// original_source's ExecutorEngine::setCurrentRow, but as an explicit
// per-call value instead of mutable context carried on the executor.
type Row struct {
	schema *catalog.TableSchema
	values []storage.Value
}

func NewRow(schema *catalog.TableSchema, values []storage.Value) *Row {
	return &Row{schema: schema, values: values}
}

func (r *Row) Get(column string) (storage.Value, bool) {
	idx := r.schema.ColumnIndex(column)
	if idx < 0 || idx >= len(r.values) {
		return storage.Value{}, false
	}
	return r.values[idx], true
}
