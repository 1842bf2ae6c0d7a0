package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenTexts(tokens []Token) []string {
	texts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Kind == TokenEOF {
			continue
		}
		texts = append(texts, tok.Text)
	}
	return texts
}

func Test_Lexer_Tokenize_KeywordsAreCaseInsensitiveAndLowercased(t *testing.T) {
	t.Parallel()

	tokens, err := NewLexer("SELECT * FROM Widgets").Tokenize()
	require.NoError(t, err)

	require.Len(t, tokens, 5) // select, *, from, Widgets, EOF
	assert.Equal(t, TokenKeyword, tokens[0].Kind)
	assert.Equal(t, "select", tokens[0].Text)
	assert.Equal(t, TokenKeyword, tokens[2].Kind)
	assert.Equal(t, "from", tokens[2].Text)
	assert.Equal(t, TokenIdent, tokens[3].Kind)
	assert.Equal(t, "Widgets", tokens[3].Text)
}

func Test_Lexer_Tokenize_MultiCharacterOperators(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		in   string
		want string
	}{
		{"NotEqual", "!=", "!="},
		{"LessEqual", "<=", "<="},
		{"GreaterEqual", ">=", ">="},
		{"AngleBracketsNormalizeToNotEqual", "<>", "!="},
		{"LessThan", "<", "<"},
		{"GreaterThan", ">", ">"},
		{"Equal", "=", "="},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tokens, err := NewLexer("a " + tc.in + " b").Tokenize()
			require.NoError(t, err)
			require.Len(t, tokens, 4)
			assert.Equal(t, TokenSymbol, tokens[1].Kind)
			assert.Equal(t, tc.want, tokens[1].Text)
		})
	}
}

func Test_Lexer_Tokenize_QuotedStringWithEscapedQuote(t *testing.T) {
	t.Parallel()

	tokens, err := NewLexer("'it''s a test'").Tokenize()
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, TokenString, tokens[0].Kind)
	assert.Equal(t, "it's a test", tokens[0].Text)
}

func Test_Lexer_Tokenize_UnterminatedStringIsParseError(t *testing.T) {
	t.Parallel()

	_, err := NewLexer("'unterminated").Tokenize()
	assert.ErrorIs(t, err, ErrParse)
}

func Test_Lexer_Tokenize_NumbersIntAndDouble(t *testing.T) {
	t.Parallel()

	tokens, err := NewLexer("42 3.14").Tokenize()
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, TokenNumber, tokens[0].Kind)
	assert.Equal(t, "42", tokens[0].Text)
	assert.Equal(t, TokenNumber, tokens[1].Kind)
	assert.Equal(t, "3.14", tokens[1].Text)
}

func Test_Lexer_Tokenize_UnexpectedCharacterIsParseError(t *testing.T) {
	t.Parallel()

	_, err := NewLexer("a @ b").Tokenize()
	assert.ErrorIs(t, err, ErrParse)
}

func Test_Lexer_Tokenize_FullStatementProducesExpectedTokenTexts(t *testing.T) {
	t.Parallel()

	tokens, err := NewLexer("INSERT INTO t (a, b) VALUES (1, 'x')").Tokenize()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"insert", "into", "t", "(", "a", ",", "b", ")",
		"values", "(", "1", ",", "x", ")",
	}, tokenTexts(tokens))
}
