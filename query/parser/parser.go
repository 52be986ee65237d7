// Package parser turns the textual query language into executable
// pipelines. Grammar:
//
//	from <type|*>
//	  [| where <field> <op> <value> [and|or ...]]
//	  [| related[(<degrees>)] [<type>]]
//	  [| order <field> [asc|desc]]
//	  [| limit <n>]
//	  [| count [<field>] | sum <field> | average <field> | median <field>
//	   | select <field>[, <field>]...]
//
// Clauses execute in the order they are written. A trailing aggregation
// clause must come last.
package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/teranos/lore/kb"
	"github.com/teranos/lore/query"
)

var operators = map[string]query.Operator{
	"==":         query.OpEqual,
	"!=":         query.OpNotEqual,
	">":          query.OpGreater,
	"<":          query.OpLess,
	">=":         query.OpGreaterOrEqual,
	"<=":         query.OpLessOrEqual,
	"contains":   query.OpContains,
	"startswith": query.OpStartsWith,
	"endswith":   query.OpEndsWith,
	"in":         query.OpIn,
}

var clauseKeywords = []string{
	"where", "related", "order", "limit",
	"count", "sum", "average", "median", "select",
}

type parser struct {
	tokens []token
	pos    int
}

// Parse compiles a query string into an executable pipeline.
func Parse(input string) (*query.Query, error) {
	tokens, perr := tokenize(input)
	if perr != nil {
		return nil, perr
	}
	if len(tokens) == 0 {
		return nil, NewParseError(ErrorKindSyntax, "empty query").
			WithSuggestion("start with 'from <type>' or 'from *'")
	}

	p := &parser{tokens: tokens}
	q, err := p.parseQuery()
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (p *parser) parseQuery() (*query.Query, *ParseError) {
	if !p.peekIs("from") {
		return nil, p.errorHere(ErrorKindSyntax, "query must start with 'from'").
			WithSuggestion("start with 'from <type>' or 'from *'")
	}
	p.next()

	tok, ok := p.next()
	if !ok {
		return nil, p.errorHere(ErrorKindSyntax, "missing entity type after 'from'").
			WithSuggestion("name an entity type, or use '*' for all types")
	}

	q := &query.Query{}
	if tok.kind != tokenQuoted && tok.value == "*" {
		q.Selector = query.Selector{All: true}
	} else {
		q.Selector = query.Selector{Type: kb.EntityType(tok.value)}
	}

	for p.pos < len(p.tokens) {
		if !p.peekIsPunct("|") {
			return nil, p.errorHere(ErrorKindSyntax, "expected '|' between clauses").
				WithToken(p.peekDisplay())
		}
		p.next()

		clause, ok := p.next()
		if !ok {
			return nil, p.errorHere(ErrorKindSyntax, "missing clause after '|'").
				WithSuggestion("expected one of: " + strings.Join(clauseKeywords, ", "))
		}

		var err *ParseError
		switch strings.ToLower(clause.value) {
		case "where":
			err = p.parseWhere(q)
		case "related":
			err = p.parseRelated(q)
		case "order":
			err = p.parseOrder(q)
		case "limit":
			err = p.parseLimit(q)
		case "count", "sum", "average", "median", "select":
			err = p.parseAggregation(q, strings.ToLower(clause.value))
			if err == nil && p.pos < len(p.tokens) {
				return nil, p.errorHere(ErrorKindClause, "aggregation must be the final clause").
					WithToken(p.peekDisplay())
			}
		default:
			return nil, p.errorAt(clause, ErrorKindClause,
				fmt.Sprintf("unknown clause '%s'", clause.value)).
				WithSuggestion("expected one of: " + strings.Join(clauseKeywords, ", "))
		}
		if err != nil {
			return nil, err
		}
	}
	return q, nil
}

func (p *parser) parseWhere(q *query.Query) *ParseError {
	var conditions []query.Condition
	combinator := query.Combinator("")

	for {
		cond, err := p.parseCondition()
		if err != nil {
			return err
		}
		conditions = append(conditions, cond)

		if p.peekIs("and") || p.peekIs("or") {
			tok, _ := p.next()
			next := query.Combinator(strings.ToLower(tok.value))
			if combinator != "" && combinator != next {
				return p.errorAt(tok, ErrorKindClause, "cannot mix 'and' and 'or' in one where clause").
					WithSuggestion("split into separate where clauses")
			}
			combinator = next
			continue
		}
		break
	}

	if combinator == query.CombinatorOr {
		q.Operations = append(q.Operations, query.Where{Filter: query.Or(conditions...)})
	} else {
		q.Operations = append(q.Operations, query.Where{Filter: query.And(conditions...)})
	}
	return nil
}

func (p *parser) parseCondition() (query.Condition, *ParseError) {
	fieldTok, ok := p.next()
	if !ok {
		return query.Condition{}, p.errorHere(ErrorKindSyntax, "missing field name in where clause")
	}
	if fieldTok.kind != tokenWord {
		return query.Condition{}, p.errorAt(fieldTok, ErrorKindSyntax, "field name must be a bare word")
	}

	opTok, ok := p.next()
	if !ok {
		return query.Condition{}, p.errorHere(ErrorKindSyntax,
			fmt.Sprintf("missing operator after field '%s'", fieldTok.value))
	}
	op, known := operators[strings.ToLower(opTok.value)]
	if !known {
		return query.Condition{}, p.errorAt(opTok, ErrorKindSyntax,
			fmt.Sprintf("unknown operator '%s'", opTok.value)).
			WithSuggestion("operators: == != > < >= <= contains startswith endswith in")
	}

	value, err := p.parseValue()
	if err != nil {
		return query.Condition{}, err
	}
	return query.Condition{
		Field: query.ParseFieldRef(fieldTok.value),
		Op:    op,
		Value: value,
	}, nil
}

// parseValue reads one value literal, consuming a currency code token
// when a number is followed by one.
func (p *parser) parseValue() (kb.Value, *ParseError) {
	tok, ok := p.next()
	if !ok {
		return kb.Value{}, p.errorHere(ErrorKindLiteral, "missing value literal")
	}

	if tok.kind == tokenQuoted {
		switch tok.tag {
		case "":
			return kb.NewString(tok.value), nil
		case "enum":
			return kb.NewEnum(tok.value), nil
		case "path":
			return kb.NewPath(tok.value), nil
		default:
			return kb.Value{}, p.errorAt(tok, ErrorKindLiteral,
				fmt.Sprintf("unknown literal tag '%s'", tok.tag)).
				WithSuggestion(`tagged literals are enum"..." and path"..."`)
		}
	}

	if tok.kind == tokenPunct {
		if tok.value == "[" {
			return p.parseListLiteral()
		}
		return kb.Value{}, p.errorAt(tok, ErrorKindLiteral,
			fmt.Sprintf("unexpected '%s' where a value was expected", tok.value))
	}

	word := tok.value
	switch strings.ToLower(word) {
	case "true":
		return kb.NewBoolean(true), nil
	case "false":
		return kb.NewBoolean(false), nil
	}

	if i, err := strconv.ParseInt(word, 10, 64); err == nil {
		if code, ok := p.takeCurrencyCode(); ok {
			return currencyLiteral(word, code)
		}
		return kb.NewInteger(i), nil
	}
	if f, err := strconv.ParseFloat(word, 64); err == nil {
		if code, ok := p.takeCurrencyCode(); ok {
			return currencyLiteral(word, code)
		}
		return kb.NewFloat(f), nil
	}

	if strings.Contains(word, ".") {
		// RFC 3339 timestamps with fractional seconds contain a dot but
		// are not references. They stay strings like every other datetime
		// literal; the filter layer interprets them.
		if _, err := time.Parse(time.RFC3339, word); err == nil {
			return kb.NewString(word), nil
		}
		if ref, err := kb.ParseReference(word); err == nil {
			return kb.NewReference(ref), nil
		}
	}

	// Bare words (including dates and RFC 3339 timestamps) stay strings;
	// the filter layer interprets them against datetime fields.
	return kb.NewString(word), nil
}

func (p *parser) parseListLiteral() (kb.Value, *ParseError) {
	var elems []kb.Value
	if p.peekIsPunct("]") {
		p.next()
		return kb.NewList(nil), nil
	}
	for {
		v, err := p.parseValue()
		if err != nil {
			return kb.Value{}, err
		}
		elems = append(elems, v)

		if p.peekIsPunct(",") {
			p.next()
			continue
		}
		if p.peekIsPunct("]") {
			p.next()
			return kb.NewList(elems), nil
		}
		return kb.Value{}, p.errorHere(ErrorKindSyntax, "expected ',' or ']' in list literal").
			WithToken(p.peekDisplay())
	}
}

// takeCurrencyCode consumes the next token when it looks like an ISO
// currency code following a numeric amount.
func (p *parser) takeCurrencyCode() (string, bool) {
	if p.pos >= len(p.tokens) {
		return "", false
	}
	tok := p.tokens[p.pos]
	if tok.kind != tokenWord || len(tok.value) != 3 {
		return "", false
	}
	for _, r := range tok.value {
		if r < 'A' || r > 'Z' {
			return "", false
		}
	}
	p.pos++
	return tok.value, true
}

func currencyLiteral(amount, code string) (kb.Value, *ParseError) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return kb.Value{}, NewParseError(ErrorKindLiteral,
			fmt.Sprintf("invalid currency amount '%s'", amount))
	}
	return kb.NewCurrency(d, code), nil
}

func (p *parser) parseRelated(q *query.Query) *ParseError {
	op := query.Related{Degrees: 1}

	if p.peekIsPunct("(") {
		p.next()
		tok, ok := p.next()
		if !ok || tok.kind != tokenWord {
			return p.errorHere(ErrorKindSyntax, "expected a degree count inside 'related(...)'")
		}
		n, err := strconv.Atoi(tok.value)
		if err != nil || n < 1 {
			return p.errorAt(tok, ErrorKindLiteral,
				fmt.Sprintf("invalid traversal degree '%s'", tok.value)).
				WithSuggestion("use a positive integer, e.g. related(2)")
		}
		op.Degrees = n
		if !p.peekIsPunct(")") {
			return p.errorHere(ErrorKindSyntax, "missing ')' after traversal degree").
				WithToken(p.peekDisplay())
		}
		p.next()
	}

	if p.pos < len(p.tokens) && !p.peekIsPunct("|") {
		tok, _ := p.next()
		if tok.kind != tokenWord {
			return p.errorAt(tok, ErrorKindSyntax, "type filter in 'related' must be a bare word")
		}
		op.Type = kb.EntityType(tok.value)
	}

	q.Operations = append(q.Operations, op)
	return nil
}

func (p *parser) parseOrder(q *query.Query) *ParseError {
	tok, ok := p.next()
	if !ok || tok.kind != tokenWord {
		return p.errorHere(ErrorKindSyntax, "missing field name in order clause")
	}

	op := query.Order{Field: query.ParseFieldRef(tok.value), Direction: query.Ascending}
	if p.peekIs("asc") {
		p.next()
	} else if p.peekIs("desc") {
		p.next()
		op.Direction = query.Descending
	}

	q.Operations = append(q.Operations, op)
	return nil
}

func (p *parser) parseLimit(q *query.Query) *ParseError {
	tok, ok := p.next()
	if !ok || tok.kind != tokenWord {
		return p.errorHere(ErrorKindSyntax, "missing count in limit clause")
	}
	n, err := strconv.Atoi(tok.value)
	if err != nil || n < 0 {
		return p.errorAt(tok, ErrorKindLiteral,
			fmt.Sprintf("invalid limit '%s'", tok.value)).
			WithSuggestion("use a non-negative integer, e.g. limit 10")
	}
	q.Operations = append(q.Operations, query.Limit{N: n})
	return nil
}

func (p *parser) parseAggregation(q *query.Query, kind string) *ParseError {
	agg := &query.Aggregation{Kind: query.AggregateKind(kind)}

	switch kind {
	case "count":
		// Field is optional: bare count tallies every entity
		if p.pos < len(p.tokens) && p.peekKind() == tokenWord {
			tok, _ := p.next()
			agg.Fields = []query.FieldRef{query.ParseFieldRef(tok.value)}
		}

	case "sum", "average", "median":
		tok, ok := p.next()
		if !ok || tok.kind != tokenWord {
			return p.errorHere(ErrorKindSyntax,
				fmt.Sprintf("'%s' requires a field name", kind))
		}
		agg.Fields = []query.FieldRef{query.ParseFieldRef(tok.value)}

	case "select":
		for {
			tok, ok := p.next()
			if !ok || tok.kind != tokenWord {
				return p.errorHere(ErrorKindSyntax, "'select' requires at least one field name")
			}
			agg.Fields = append(agg.Fields, query.ParseFieldRef(tok.value))
			if p.peekIsPunct(",") {
				p.next()
				continue
			}
			break
		}
	}

	q.Aggregation = agg
	return nil
}

// Token stream helpers

func (p *parser) next() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	tok := p.tokens[p.pos]
	p.pos++
	return tok, true
}

func (p *parser) peekIs(word string) bool {
	return p.pos < len(p.tokens) && p.tokens[p.pos].kind == tokenWord && p.tokens[p.pos].is(word)
}

func (p *parser) peekIsPunct(s string) bool {
	return p.pos < len(p.tokens) && p.tokens[p.pos].kind == tokenPunct && p.tokens[p.pos].value == s
}

func (p *parser) peekKind() tokenKind {
	if p.pos >= len(p.tokens) {
		return tokenPunct
	}
	return p.tokens[p.pos].kind
}

func (p *parser) peekDisplay() string {
	if p.pos >= len(p.tokens) {
		return ""
	}
	return p.tokens[p.pos].display()
}

func (p *parser) errorHere(kind ErrorKind, message string) *ParseError {
	return NewParseError(kind, message).WithPosition(p.pos, len(p.tokens))
}

func (p *parser) errorAt(tok token, kind ErrorKind, message string) *ParseError {
	return NewParseError(kind, message).
		WithPosition(tok.position, len(p.tokens)).
		WithToken(tok.display())
}
