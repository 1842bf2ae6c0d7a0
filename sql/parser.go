package sql

import (
	"fmt"
	"strconv"

	"github.com/samoreilly/asteroiddb/storage"
)

// Parser is a recursive-descent parser over a Lexer's token stream.
// Reimplemented idiomatically from the shape of
// original_source/core/sql/ast/Parser.cpp (statement-then-clause
// structure), not translated from it.
type Parser struct {
	tokens []Token
	pos    int
}

// Parse lexes and parses one SQL statement.
func Parse(input string) (Statement, error) {
	tokens, err := NewLexer(input).Tokenize()
	if err != nil {
		return nil, err
	}
	p := &Parser{tokens: tokens}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	p.consumeOptionalSemicolon()
	if !p.atEOF() {
		return nil, fmt.Errorf("unexpected token %s after statement: %w", p.cur(), ErrParse)
	}
	return stmt, nil
}

func (p *Parser) cur() Token  { return p.tokens[p.pos] }
func (p *Parser) atEOF() bool { return p.cur().Kind == TokenEOF }

func (p *Parser) advance() Token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) consumeOptionalSemicolon() {
	if p.cur().Kind == TokenSymbol && p.cur().Text == ";" {
		p.advance()
	}
}

func (p *Parser) expectKeyword(kw string) (Token, error) {
	if p.cur().Kind == TokenKeyword && p.cur().Text == kw {
		return p.advance(), nil
	}
	return Token{}, fmt.Errorf("expected keyword %q, got %s: %w", kw, p.cur(), ErrParse)
}

func (p *Parser) expectSymbol(sym string) (Token, error) {
	if p.cur().Kind == TokenSymbol && p.cur().Text == sym {
		return p.advance(), nil
	}
	return Token{}, fmt.Errorf("expected %q, got %s: %w", sym, p.cur(), ErrParse)
}

func (p *Parser) expectIdent() (string, error) {
	if p.cur().Kind == TokenIdent {
		return p.advance().Text, nil
	}
	return "", fmt.Errorf("expected identifier, got %s: %w", p.cur(), ErrParse)
}

func (p *Parser) parseStatement() (Statement, error) {
	switch {
	case p.cur().Kind == TokenKeyword && p.cur().Text == "create":
		return p.parseCreate()
	case p.cur().Kind == TokenKeyword && p.cur().Text == "insert":
		return p.parseInsert()
	case p.cur().Kind == TokenKeyword && p.cur().Text == "select":
		return p.parseSelect()
	case p.cur().Kind == TokenKeyword && p.cur().Text == "delete":
		return p.parseDelete()
	default:
		return nil, fmt.Errorf("unrecognized statement starting at %s: %w", p.cur(), ErrParse)
	}
}

// parseCreate: CREATE TABLE name ( col type [constraint...], ... )
func (p *Parser) parseCreate() (Statement, error) {
	if _, err := p.expectKeyword("create"); err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("table"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectSymbol("("); err != nil {
		return nil, err
	}

	var columns []CreateColumn
	for {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		typeName, err := p.parseTypeName()
		if err != nil {
			return nil, err
		}
		col := CreateColumn{Name: name, Type: typeName}
		for p.isConstraintKeyword() {
			col.Constraints = append(col.Constraints, p.advance().Text)
		}
		columns = append(columns, col)

		if p.cur().Kind == TokenSymbol && p.cur().Text == "," {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return &CreateStatement{Table: table, Columns: columns}, nil
}

func (p *Parser) parseTypeName() (string, error) {
	tok := p.cur()
	if tok.Kind == TokenKeyword || tok.Kind == TokenIdent {
		p.advance()
		return tok.Text, nil
	}
	return "", fmt.Errorf("expected a type name, got %s: %w", tok, ErrParse)
}

func (p *Parser) isConstraintKeyword() bool {
	if p.cur().Kind != TokenKeyword {
		return false
	}
	switch p.cur().Text {
	case "primary", "key", "unique", "not", "null":
		return true
	}
	return false
}

// parseInsert: INSERT INTO name [(col, ...)] VALUES (expr, ...) [, (expr, ...)]*
func (p *Parser) parseInsert() (Statement, error) {
	if _, err := p.expectKeyword("insert"); err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("into"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	var columns []string
	if p.cur().Kind == TokenSymbol && p.cur().Text == "(" {
		p.advance()
		for {
			col, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			columns = append(columns, col)
			if p.cur().Kind == TokenSymbol && p.cur().Text == "," {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
	}

	if _, err := p.expectKeyword("values"); err != nil {
		return nil, err
	}

	var rows [][]Expression
	for {
		if _, err := p.expectSymbol("("); err != nil {
			return nil, err
		}
		var row []Expression
		for {
			expr, err := p.parsePrimary()
			if err != nil {
				return nil, err
			}
			row = append(row, expr)
			if p.cur().Kind == TokenSymbol && p.cur().Text == "," {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		rows = append(rows, row)

		if p.cur().Kind == TokenSymbol && p.cur().Text == "," {
			p.advance()
			continue
		}
		break
	}

	return &InsertStatement{Table: table, Columns: columns, Rows: rows}, nil
}

// parseSelect: SELECT (* | col, ...) FROM name [WHERE expr]
func (p *Parser) parseSelect() (Statement, error) {
	if _, err := p.expectKeyword("select"); err != nil {
		return nil, err
	}

	var columns []string
	if p.cur().Kind == TokenSymbol && p.cur().Text == "*" {
		p.advance()
		columns = []string{"*"}
	} else {
		for {
			col, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			columns = append(columns, col)
			if p.cur().Kind == TokenSymbol && p.cur().Text == "," {
				p.advance()
				continue
			}
			break
		}
	}

	if _, err := p.expectKeyword("from"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	var where Expression
	if p.cur().Kind == TokenKeyword && p.cur().Text == "where" {
		p.advance()
		where, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}

	return &SelectStatement{Table: table, Columns: columns, WhereClause: where}, nil
}

// parseDelete: DELETE FROM name [WHERE expr] — WHERE is parsed (so the
// statement round-trips and the caller can warn about it) but never
// attached to the resulting statement's execution semantics (OQ1).
func (p *Parser) parseDelete() (Statement, error) {
	if _, err := p.expectKeyword("delete"); err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("from"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	var where Expression
	if p.cur().Kind == TokenKeyword && p.cur().Text == "where" {
		p.advance()
		where, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}

	return &DeleteStatement{Table: table, IgnoredWhere: where}, nil
}

// Expression grammar, lowest to highest precedence:
//   expr   -> and ( "or" and )*
//   and    -> comparison ( "and" comparison )*
//   comparison -> primary ( op primary )?

func (p *Parser) parseExpression() (Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == TokenKeyword && p.cur().Text == "or" {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Binary{Left: left, Op: "or", Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expression, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == TokenKeyword && p.cur().Text == "and" {
		p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &Binary{Left: left, Op: "and", Right: right}
	}
	return left, nil
}

var comparisonOps = map[string]bool{"=": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true}

func (p *Parser) parseComparison() (Expression, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind == TokenSymbol && comparisonOps[p.cur().Text] {
		op := p.advance().Text
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &Binary{Left: left, Op: op, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parsePrimary() (Expression, error) {
	tok := p.cur()

	if tok.Kind == TokenSymbol && tok.Text == "(" {
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return expr, nil
	}

	if tok.Kind == TokenKeyword {
		switch tok.Text {
		case "null":
			p.advance()
			return &Literal{Value: storage.NullValue()}, nil
		case "true":
			p.advance()
			return &Literal{Value: storage.BoolValue(true)}, nil
		case "false":
			p.advance()
			return &Literal{Value: storage.BoolValue(false)}, nil
		}
	}

	if tok.Kind == TokenNumber {
		p.advance()
		return parseNumberLiteral(tok.Text)
	}

	if tok.Kind == TokenString {
		p.advance()
		return &Literal{Value: storage.StringValue(tok.Text)}, nil
	}

	if tok.Kind == TokenIdent {
		p.advance()
		return &Identifier{Name: tok.Text}, nil
	}

	return nil, fmt.Errorf("unexpected token %s in expression: %w", tok, ErrParse)
}

func parseNumberLiteral(text string) (Expression, error) {
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return &Literal{Value: storage.IntValue(i)}, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid numeric literal %q: %w", text, ErrParse)
	}
	return &Literal{Value: storage.DoubleValue(f)}, nil
}
