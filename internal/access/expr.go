package access

import (
	"fmt"
	"strconv"
	"strings"
)

// EvaluateExpression evaluates a condition-rule expression against a
// restricted context. The grammar is deliberately small: comparisons
// (== != > < >= <=), boolean connectives (&& || !), parentheses, literals
// (numbers, quoted strings, true, false, null) and dotted field access into
// the context. Rule content comes from administrative input, so nothing here
// ever executes as code.
func EvaluateExpression(expression string, ctx map[string]interface{}) (bool, error) {
	tokens, err := lexExpression(expression)
	if err != nil {
		return false, err
	}

	p := &exprParser{tokens: tokens, ctx: ctx}
	value, err := p.parseOr()
	if err != nil {
		return false, err
	}
	if p.peek().kind != tokEOF {
		return false, fmt.Errorf("unexpected token %q", p.peek().text)
	}

	return truthy(value), nil
}

const (
	tokEOF = iota
	tokIdent
	tokNumber
	tokString
	tokOp
)

type exprToken struct {
	kind int
	text string
	num  float64
}

func lexExpression(input string) ([]exprToken, error) {
	var tokens []exprToken
	i := 0
	for i < len(input) {
		c := input[i]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '(' || c == ')':
			tokens = append(tokens, exprToken{kind: tokOp, text: string(c)})
			i++

		case c == '&' || c == '|':
			if i+1 >= len(input) || input[i+1] != c {
				return nil, fmt.Errorf("invalid operator at position %d", i)
			}
			tokens = append(tokens, exprToken{kind: tokOp, text: input[i : i+2]})
			i += 2

		case c == '!' || c == '=' || c == '>' || c == '<':
			if i+1 < len(input) && input[i+1] == '=' {
				tokens = append(tokens, exprToken{kind: tokOp, text: input[i : i+2]})
				i += 2
			} else if c == '=' {
				return nil, fmt.Errorf("invalid operator at position %d", i)
			} else {
				tokens = append(tokens, exprToken{kind: tokOp, text: string(c)})
				i++
			}

		case c == '\'' || c == '"':
			quote := c
			j := i + 1
			for j < len(input) && input[j] != quote {
				j++
			}
			if j >= len(input) {
				return nil, fmt.Errorf("unterminated string at position %d", i)
			}
			tokens = append(tokens, exprToken{kind: tokString, text: input[i+1 : j]})
			i = j + 1

		case c >= '0' && c <= '9' || c == '-' && i+1 < len(input) && input[i+1] >= '0' && input[i+1] <= '9':
			j := i + 1
			for j < len(input) && (input[j] >= '0' && input[j] <= '9' || input[j] == '.') {
				j++
			}
			n, err := strconv.ParseFloat(input[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q", input[i:j])
			}
			tokens = append(tokens, exprToken{kind: tokNumber, text: input[i:j], num: n})
			i = j

		case isIdentChar(c):
			j := i + 1
			for j < len(input) && (isIdentChar(input[j]) || input[j] == '.' || input[j] >= '0' && input[j] <= '9') {
				j++
			}
			tokens = append(tokens, exprToken{kind: tokIdent, text: input[i:j]})
			i = j

		default:
			return nil, fmt.Errorf("unexpected character %q at position %d", c, i)
		}
	}

	tokens = append(tokens, exprToken{kind: tokEOF})
	return tokens, nil
}

func isIdentChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

type exprParser struct {
	tokens []exprToken
	pos    int
	ctx    map[string]interface{}
}

func (p *exprParser) peek() exprToken {
	return p.tokens[p.pos]
}

func (p *exprParser) next() exprToken {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *exprParser) accept(op string) bool {
	if t := p.peek(); t.kind == tokOp && t.text == op {
		p.pos++
		return true
	}
	return false
}

func (p *exprParser) parseOr() (interface{}, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.accept("||") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = truthy(left) || truthy(right)
	}
	return left, nil
}

func (p *exprParser) parseAnd() (interface{}, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.accept("&&") {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = truthy(left) && truthy(right)
	}
	return left, nil
}

func (p *exprParser) parseUnary() (interface{}, error) {
	if p.accept("!") {
		value, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return !truthy(value), nil
	}
	return p.parseComparison()
}

func (p *exprParser) parseComparison() (interface{}, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	t := p.peek()
	if t.kind != tokOp {
		return left, nil
	}

	switch t.text {
	case "==", "!=", ">", "<", ">=", "<=":
		p.next()
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		return compareExprValues(t.text, left, right), nil
	}

	return left, nil
}

func (p *exprParser) parseOperand() (interface{}, error) {
	if p.accept("(") {
		value, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.accept(")") {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		return value, nil
	}

	t := p.next()
	switch t.kind {
	case tokNumber:
		return t.num, nil
	case tokString:
		return t.text, nil
	case tokIdent:
		switch t.text {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "null":
			return nil, nil
		}
		value, _ := LookupField(p.ctx, t.text)
		return value, nil
	}

	return nil, fmt.Errorf("unexpected token %q", t.text)
}

func compareExprValues(operator string, left, right interface{}) bool {
	switch operator {
	case "==":
		return looseEqual(left, right)
	case "!=":
		return !looseEqual(left, right)
	}

	if lf, lok := toFloat64(left); lok {
		rf, rok := toFloat64(right)
		if !rok {
			return false
		}
		switch operator {
		case ">":
			return lf > rf
		case "<":
			return lf < rf
		case ">=":
			return lf >= rf
		default:
			return lf <= rf
		}
	}

	ls, lok := left.(string)
	rs, rok := right.(string)
	if lok && rok {
		switch operator {
		case ">":
			return strings.Compare(ls, rs) > 0
		case "<":
			return strings.Compare(ls, rs) < 0
		case ">=":
			return strings.Compare(ls, rs) >= 0
		default:
			return strings.Compare(ls, rs) <= 0
		}
	}

	return false
}

func truthy(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	}
	return true
}
