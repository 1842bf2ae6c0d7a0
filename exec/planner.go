package exec

import (
	"github.com/samoreilly/asteroiddb/sql"
	"github.com/samoreilly/asteroiddb/storage"
)

// findIndexStartKey walks a WHERE clause looking for "indexedColumn op
// literal" (or the literal-on-the-left flip of it) so SELECT can use the
// index instead of scanning the whole table. The matched operator is
// returned alongside the key so the caller can tell an equality match
// (a single-RID index seek) apart from a range bound (an index scan
// starting at that key). Grounded on original_source's
// SelectExecutor.cpp::findStartIndex: an AND recurses into both sides and
// the last qualifying comparison wins, rather than merging ranges, matching
// the original's documented simplification.
func findIndexStartKey(expr sql.Expression, indexedColumn string) (key storage.Value, op string, ok bool) {
	bin, isBinary := expr.(*sql.Binary)
	if !isBinary {
		return storage.Value{}, "", false
	}

	if bin.Op == "and" {
		if k, o, found := findIndexStartKey(bin.Left, indexedColumn); found {
			key, op, ok = k, o, true
		}
		if k, o, found := findIndexStartKey(bin.Right, indexedColumn); found {
			key, op, ok = k, o, true
		}
		return key, op, ok
	}

	ident, lit, matchedOp := matchColumnLiteral(bin.Left, bin.Right, bin.Op)
	if ident == nil || lit == nil || ident.Name != indexedColumn {
		return storage.Value{}, "", false
	}

	switch matchedOp {
	case "=", ">=", ">":
		return lit.Value, matchedOp, true
	default:
		return storage.Value{}, "", false
	}
}

// matchColumnLiteral recognizes "identifier op literal" on either side of a
// binary expression, flipping the operator's direction when the literal
// comes first so the caller always sees "column op literal".
func matchColumnLiteral(left, right sql.Expression, op string) (*sql.Identifier, *sql.Literal, string) {
	if ident, ok := left.(*sql.Identifier); ok {
		if lit, ok := right.(*sql.Literal); ok {
			return ident, lit, op
		}
	}
	if ident, ok := right.(*sql.Identifier); ok {
		if lit, ok := left.(*sql.Literal); ok {
			return ident, lit, flipComparison(op)
		}
	}
	return nil, nil, op
}

func flipComparison(op string) string {
	switch op {
	case ">":
		return "<"
	case "<":
		return ">"
	case ">=":
		return "<="
	case "<=":
		return ">="
	default:
		return op
	}
}
