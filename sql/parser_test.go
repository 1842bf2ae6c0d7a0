package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samoreilly/asteroiddb/storage"
)

func Test_Parse_Create_ParsesColumnsAndConstraints(t *testing.T) {
	t.Parallel()

	stmt, err := Parse("CREATE TABLE widgets (id INT PRIMARY KEY, name VARCHAR)")
	require.NoError(t, err)

	create, ok := stmt.(*CreateStatement)
	require.True(t, ok)
	assert.Equal(t, "widgets", create.Table)
	require.Len(t, create.Columns, 2)
	assert.Equal(t, "id", create.Columns[0].Name)
	assert.Equal(t, "int", create.Columns[0].Type)
	assert.Equal(t, []string{"primary", "key"}, create.Columns[0].Constraints)
	assert.Equal(t, "name", create.Columns[1].Name)
	assert.Equal(t, "varchar", create.Columns[1].Type)
	assert.Empty(t, create.Columns[1].Constraints)
}

func Test_Parse_Insert_DefaultColumnsAndMultipleRows(t *testing.T) {
	t.Parallel()

	stmt, err := Parse("INSERT INTO widgets VALUES (1, 'a'), (2, 'b')")
	require.NoError(t, err)

	insert, ok := stmt.(*InsertStatement)
	require.True(t, ok)
	assert.Equal(t, "widgets", insert.Table)
	assert.Empty(t, insert.Columns)
	require.Len(t, insert.Rows, 2)
	require.Len(t, insert.Rows[0], 2)

	val, err := insert.Rows[0][0].Eval(nil)
	require.NoError(t, err)
	assert.True(t, val.Equal(storage.IntValue(1)))
}

func Test_Parse_Insert_ExplicitColumnList(t *testing.T) {
	t.Parallel()

	stmt, err := Parse("INSERT INTO widgets (name, id) VALUES ('a', 1)")
	require.NoError(t, err)

	insert, ok := stmt.(*InsertStatement)
	require.True(t, ok)
	assert.Equal(t, []string{"name", "id"}, insert.Columns)
}

func Test_Parse_Select_StarAndColumnList(t *testing.T) {
	t.Parallel()

	stmt, err := Parse("SELECT * FROM widgets")
	require.NoError(t, err)
	sel, ok := stmt.(*SelectStatement)
	require.True(t, ok)
	assert.Equal(t, []string{"*"}, sel.Columns)
	assert.Nil(t, sel.WhereClause)

	stmt, err = Parse("SELECT id, name FROM widgets")
	require.NoError(t, err)
	sel, ok = stmt.(*SelectStatement)
	require.True(t, ok)
	assert.Equal(t, []string{"id", "name"}, sel.Columns)
}

func Test_Parse_Select_WhereOperatorPrecedence(t *testing.T) {
	t.Parallel()

	// "a = 1 or b = 2 and c = 3" should parse as "a=1 or (b=2 and c=3)"
	stmt, err := Parse("SELECT * FROM t WHERE a = 1 OR b = 2 AND c = 3")
	require.NoError(t, err)
	sel := stmt.(*SelectStatement)

	top, ok := sel.WhereClause.(*Binary)
	require.True(t, ok)
	assert.Equal(t, "or", top.Op)

	right, ok := top.Right.(*Binary)
	require.True(t, ok)
	assert.Equal(t, "and", right.Op)
}

func Test_Parse_Select_ParenthesizedExpressionOverridesPrecedence(t *testing.T) {
	t.Parallel()

	stmt, err := Parse("SELECT * FROM t WHERE a = 1 AND (b = 2 OR c = 3)")
	require.NoError(t, err)
	sel := stmt.(*SelectStatement)

	top, ok := sel.WhereClause.(*Binary)
	require.True(t, ok)
	assert.Equal(t, "and", top.Op)

	right, ok := top.Right.(*Binary)
	require.True(t, ok)
	assert.Equal(t, "or", right.Op)
}

func Test_Parse_Delete_ParsesAndIgnoresWhereClause(t *testing.T) {
	t.Parallel()

	stmt, err := Parse("DELETE FROM widgets WHERE id = 1")
	require.NoError(t, err)

	del, ok := stmt.(*DeleteStatement)
	require.True(t, ok)
	assert.Equal(t, "widgets", del.Table)
	assert.NotNil(t, del.IgnoredWhere)
}

func Test_Parse_Delete_NoWhereClauseIsNil(t *testing.T) {
	t.Parallel()

	stmt, err := Parse("DELETE FROM widgets")
	require.NoError(t, err)
	del := stmt.(*DeleteStatement)
	assert.Nil(t, del.IgnoredWhere)
}

func Test_Parse_NullTrueFalseLiterals(t *testing.T) {
	t.Parallel()

	stmt, err := Parse("SELECT * FROM t WHERE a = null")
	require.NoError(t, err)
	sel := stmt.(*SelectStatement)
	bin := sel.WhereClause.(*Binary)
	lit, ok := bin.Right.(*Literal)
	require.True(t, ok)
	assert.True(t, lit.Value.IsNull())

	stmt, err = Parse("SELECT * FROM t WHERE a = true OR b = false")
	require.NoError(t, err)
	top := stmt.(*SelectStatement).WhereClause.(*Binary)
	trueLit, ok := top.Left.(*Binary).Right.(*Literal)
	require.True(t, ok)
	assert.True(t, trueLit.Value.Equal(storage.BoolValue(true)))
	falseLit, ok := top.Right.(*Binary).Right.(*Literal)
	require.True(t, ok)
	assert.True(t, falseLit.Value.Equal(storage.BoolValue(false)))
}

func Test_Parse_TrailingGarbageAfterStatementIsParseError(t *testing.T) {
	t.Parallel()

	_, err := Parse("SELECT * FROM widgets garbage")
	assert.ErrorIs(t, err, ErrParse)
}

func Test_Parse_UnrecognizedStatementKeywordIsParseError(t *testing.T) {
	t.Parallel()

	_, err := Parse("UPDATE widgets SET a = 1")
	assert.ErrorIs(t, err, ErrParse)
}

func Test_Parse_OptionalTrailingSemicolon(t *testing.T) {
	t.Parallel()

	_, err := Parse("SELECT * FROM widgets;")
	require.NoError(t, err)
}
