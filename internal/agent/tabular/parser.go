package tabular

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// The supported expression grammar. Snippets operate on the handle df and
// chain a fixed set of read-only primitives:
//
//	expr     = atom { trailer }
//	atom     = "df" | "len" "(" expr ")"
//	trailer  = "[" subscript "]" | "." method
//	subscript = STRING | "[" STRING { "," STRING } "]" | condition
//	condition = andOr of: operand cmp literal, parenthesized
//	operand  = "df" "[" STRING "]"
//	method   = head | tail | sort_values | groupby | unique |
//	           value_counts | nunique | sum | mean | min | max | count
//
// Anything outside this grammar fails to parse and is rejected by
// validation.

type node interface{}

type dfNode struct{}

type lenNode struct{ Arg node }

type selectColNode struct {
	Src node
	Col string
}

type selectColsNode struct {
	Src  node
	Cols []string
}

type filterNode struct {
	Src  node
	Cond condNode
}

type headNode struct {
	Src  node
	N    int
	Tail bool
}

type sortNode struct {
	Src       node
	Col       string
	Ascending bool
}

type groupByNode struct {
	Src node
	By  string
}

// methodNode covers the zero-argument terminal methods.
type methodNode struct {
	Src    node
	Method string
}

type condNode interface{ condMark() }

type compareCond struct {
	Col     string
	Op      string
	Literal interface{}
}

type logicalCond struct {
	Op          string // "&" or "|"
	Left, Right condNode
}

func (compareCond) condMark() {}
func (logicalCond) condMark() {}

var terminalMethods = map[string]bool{
	"unique":       true,
	"value_counts": true,
	"nunique":      true,
	"sum":          true,
	"mean":         true,
	"min":          true,
	"max":          true,
	"count":        true,
}

// --- lexer ---

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokNumber
	tokPunct
	tokEOF
)

type token struct {
	kind tokenKind
	text string
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	runes := []rune(input)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '\'' || r == '"':
			quote := r
			j := i + 1
			for j < len(runes) && runes[j] != quote {
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("unterminated string")
			}
			tokens = append(tokens, token{tokString, string(runes[i+1 : j])})
			i = j + 1
		case unicode.IsDigit(r) || (r == '-' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			j := i + 1
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			tokens = append(tokens, token{tokNumber, string(runes[i:j])})
			i = j
		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
				j++
			}
			tokens = append(tokens, token{tokIdent, string(runes[i:j])})
			i = j
		case strings.ContainsRune("[](),.&|", r):
			tokens = append(tokens, token{tokPunct, string(r)})
			i++
		case r == '=' || r == '!' || r == '<' || r == '>':
			if i+1 < len(runes) && runes[i+1] == '=' {
				tokens = append(tokens, token{tokPunct, string(runes[i : i+2])})
				i += 2
			} else if r != '!' {
				tokens = append(tokens, token{tokPunct, string(r)})
				i++
			} else {
				return nil, fmt.Errorf("unexpected character %q", r)
			}
		default:
			return nil, fmt.Errorf("unexpected character %q", r)
		}
	}
	tokens = append(tokens, token{tokEOF, ""})
	return tokens, nil
}

// --- parser ---

type parser struct {
	tokens []token
	pos    int
}

func parseExpression(input string) (node, error) {
	tokens, err := tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("unexpected trailing input near %q", p.peek().text)
	}
	return expr, nil
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expectPunct(text string) error {
	t := p.next()
	if t.kind != tokPunct || t.text != text {
		return fmt.Errorf("expected %q, found %q", text, t.text)
	}
	return nil
}

func (p *parser) parseExpr() (node, error) {
	atom, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	return p.parseTrailers(atom)
}

func (p *parser) parseAtom() (node, error) {
	t := p.next()
	if t.kind != tokIdent {
		return nil, fmt.Errorf("expected expression, found %q", t.text)
	}
	switch t.text {
	case "df":
		return dfNode{}, nil
	case "len":
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return lenNode{Arg: arg}, nil
	default:
		return nil, fmt.Errorf("unknown identifier %q", t.text)
	}
}

func (p *parser) parseTrailers(expr node) (node, error) {
	for {
		t := p.peek()
		if t.kind != tokPunct {
			return expr, nil
		}
		switch t.text {
		case "[":
			p.next()
			sub, err := p.parseSubscript(expr)
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			expr = sub
		case ".":
			p.next()
			method, err := p.parseMethod(expr)
			if err != nil {
				return nil, err
			}
			expr = method
		default:
			return expr, nil
		}
	}
}

func (p *parser) parseSubscript(src node) (node, error) {
	t := p.peek()
	switch {
	case t.kind == tokString:
		p.next()
		return selectColNode{Src: src, Col: t.text}, nil
	case t.kind == tokPunct && t.text == "[":
		p.next()
		var cols []string
		for {
			col := p.next()
			if col.kind != tokString {
				return nil, fmt.Errorf("expected column name, found %q", col.text)
			}
			cols = append(cols, col.text)
			sep := p.next()
			if sep.kind == tokPunct && sep.text == "," {
				continue
			}
			if sep.kind == tokPunct && sep.text == "]" {
				return selectColsNode{Src: src, Cols: cols}, nil
			}
			return nil, fmt.Errorf("expected ',' or ']', found %q", sep.text)
		}
	default:
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		return filterNode{Src: src, Cond: cond}, nil
	}
}

func (p *parser) parseCondition() (condNode, error) {
	left, err := p.parseCondTerm()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokPunct || (t.text != "&" && t.text != "|") {
			return left, nil
		}
		p.next()
		right, err := p.parseCondTerm()
		if err != nil {
			return nil, err
		}
		left = logicalCond{Op: t.text, Left: left, Right: right}
	}
}

func (p *parser) parseCondTerm() (condNode, error) {
	t := p.peek()
	if t.kind == tokPunct && t.text == "(" {
		p.next()
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return cond, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (condNode, error) {
	t := p.next()
	if t.kind != tokIdent || t.text != "df" {
		return nil, fmt.Errorf("condition must reference df, found %q", t.text)
	}
	if err := p.expectPunct("["); err != nil {
		return nil, err
	}
	col := p.next()
	if col.kind != tokString {
		return nil, fmt.Errorf("expected column name, found %q", col.text)
	}
	if err := p.expectPunct("]"); err != nil {
		return nil, err
	}

	op := p.next()
	switch {
	case op.kind == tokPunct:
		switch op.text {
		case "==", "!=", "<", ">", "<=", ">=":
		default:
			return nil, fmt.Errorf("unsupported comparison %q", op.text)
		}
	default:
		return nil, fmt.Errorf("expected comparison operator, found %q", op.text)
	}

	literal, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	return compareCond{Col: col.text, Op: op.text, Literal: literal}, nil
}

func (p *parser) parseLiteral() (interface{}, error) {
	t := p.next()
	switch t.kind {
	case tokString:
		return t.text, nil
	case tokNumber:
		if strings.Contains(t.text, ".") {
			f, err := strconv.ParseFloat(t.text, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q", t.text)
			}
			return f, nil
		}
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", t.text)
		}
		return n, nil
	case tokIdent:
		switch t.text {
		case "True":
			return true, nil
		case "False":
			return false, nil
		case "None":
			return nil, nil
		}
		return nil, fmt.Errorf("unsupported literal %q", t.text)
	default:
		return nil, fmt.Errorf("expected literal, found %q", t.text)
	}
}

func (p *parser) parseMethod(src node) (node, error) {
	name := p.next()
	if name.kind != tokIdent {
		return nil, fmt.Errorf("expected method name, found %q", name.text)
	}

	switch name.text {
	case "head", "tail":
		n, err := p.parseOptionalCount(5)
		if err != nil {
			return nil, err
		}
		return headNode{Src: src, N: n, Tail: name.text == "tail"}, nil
	case "sort_values":
		return p.parseSortValues(src)
	case "groupby":
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		by := p.next()
		if by.kind != tokString {
			return nil, fmt.Errorf("expected column name, found %q", by.text)
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return groupByNode{Src: src, By: by.text}, nil
	default:
		if !terminalMethods[name.text] {
			return nil, fmt.Errorf("unsupported method %q", name.text)
		}
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return methodNode{Src: src, Method: name.text}, nil
	}
}

func (p *parser) parseOptionalCount(def int) (int, error) {
	if err := p.expectPunct("("); err != nil {
		return 0, err
	}
	t := p.peek()
	if t.kind == tokPunct && t.text == ")" {
		p.next()
		return def, nil
	}
	num := p.next()
	if num.kind != tokNumber {
		return 0, fmt.Errorf("expected row count, found %q", num.text)
	}
	n, err := strconv.Atoi(num.text)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid row count %q", num.text)
	}
	if err := p.expectPunct(")"); err != nil {
		return 0, err
	}
	return n, nil
}

// parseSortValues accepts sort_values("col"), sort_values(by="col") and an
// optional ascending keyword argument.
func (p *parser) parseSortValues(src node) (node, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}

	sortExpr := sortNode{Src: src, Ascending: true}
	colSet := false
	for {
		t := p.next()
		switch {
		case t.kind == tokString:
			sortExpr.Col = t.text
			colSet = true
		case t.kind == tokIdent && (t.text == "by" || t.text == "ascending"):
			if err := p.expectPunct("="); err != nil {
				return nil, err
			}
			v := p.next()
			if t.text == "by" {
				if v.kind != tokString {
					return nil, fmt.Errorf("expected column name, found %q", v.text)
				}
				sortExpr.Col = v.text
				colSet = true
			} else {
				switch v.text {
				case "True":
					sortExpr.Ascending = true
				case "False":
					sortExpr.Ascending = false
				default:
					return nil, fmt.Errorf("expected True or False, found %q", v.text)
				}
			}
		default:
			return nil, fmt.Errorf("unexpected argument %q", t.text)
		}

		sep := p.next()
		if sep.kind == tokPunct && sep.text == "," {
			continue
		}
		if sep.kind == tokPunct && sep.text == ")" {
			if !colSet {
				return nil, fmt.Errorf("sort_values requires a column")
			}
			return sortExpr, nil
		}
		return nil, fmt.Errorf("expected ',' or ')', found %q", sep.text)
	}
}
