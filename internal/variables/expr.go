package variables

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"echocli/internal/dataset"
	"echocli/internal/errors"
)

// Calc evaluates an arithmetic expression over the dataset row by row
// and stores the result as a new column. Supported operators are + - * /
// and ** for exponentiation; operands are numeric literals and column
// references. Rows where an operand is missing, a division hits zero, or
// the result is not finite get a missing cell instead of failing the
// whole command. The number of such rows is returned.
func Calc(d *dataset.Dataset, name, expression string) (missing int, err error) {
	node, err := parseExpr(expression)
	if err != nil {
		return 0, err
	}

	// Bind the referenced columns up front so an unknown name fails
	// before any evaluation.
	env := make(map[string]boundColumn)
	for _, ref := range node.columnRefs(nil) {
		if _, ok := env[ref]; ok {
			continue
		}
		vals, valid, err := d.Floats(ref)
		if err != nil {
			return 0, errors.ColumnNotFound(ref, d.Columns())
		}
		env[ref] = boundColumn{vals: vals, valid: valid}
	}

	rows := d.NumRows()
	cells := make([]dataset.Cell, rows)
	for i := 0; i < rows; i++ {
		v, ok := node.eval(env, i)
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			cells[i] = dataset.Missing()
			missing++
			continue
		}
		cells[i] = dataset.Float(v)
	}
	if err := d.SetColumn(name, cells); err != nil {
		return 0, err
	}
	return missing, nil
}

type boundColumn struct {
	vals  []float64
	valid []bool
}

// exprNode is one node of the parsed expression tree.
type exprNode interface {
	eval(env map[string]boundColumn, row int) (float64, bool)
	columnRefs(acc []string) []string
}

type literalNode float64

func (n literalNode) eval(map[string]boundColumn, int) (float64, bool) { return float64(n), true }
func (n literalNode) columnRefs(acc []string) []string                 { return acc }

type columnNode string

func (n columnNode) eval(env map[string]boundColumn, row int) (float64, bool) {
	col := env[string(n)]
	if row >= len(col.vals) || !col.valid[row] {
		return 0, false
	}
	return col.vals[row], true
}

func (n columnNode) columnRefs(acc []string) []string { return append(acc, string(n)) }

type negateNode struct{ operand exprNode }

func (n negateNode) eval(env map[string]boundColumn, row int) (float64, bool) {
	v, ok := n.operand.eval(env, row)
	return -v, ok
}

func (n negateNode) columnRefs(acc []string) []string { return n.operand.columnRefs(acc) }

type binaryNode struct {
	op          string
	left, right exprNode
}

func (n binaryNode) eval(env map[string]boundColumn, row int) (float64, bool) {
	l, ok := n.left.eval(env, row)
	if !ok {
		return 0, false
	}
	r, ok := n.right.eval(env, row)
	if !ok {
		return 0, false
	}
	switch n.op {
	case "+":
		return l + r, true
	case "-":
		return l - r, true
	case "*":
		return l * r, true
	case "/":
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case "**":
		return math.Pow(l, r), true
	}
	return 0, false
}

func (n binaryNode) columnRefs(acc []string) []string {
	return n.right.columnRefs(n.left.columnRefs(acc))
}

// parseExpr runs a recursive-descent parse with the usual precedence:
// ** binds tightest and is right-associative, then unary minus, then
// * and /, then + and -.
func parseExpr(expression string) (exprNode, error) {
	toks, err := lex(expression)
	if err != nil {
		return nil, err
	}
	p := &exprParser{tokens: toks}
	node, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		return nil, errors.Parse("unexpected %q in expression", p.tokens[p.pos])
	}
	return node, nil
}

type exprParser struct {
	tokens []string
	pos    int
}

func (p *exprParser) peek() string {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return ""
}

func (p *exprParser) next() string {
	tok := p.peek()
	p.pos++
	return tok
}

func (p *exprParser) parseAdditive() (exprNode, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.peek() == "+" || p.peek() == "-" {
		op := p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *exprParser) parseMultiplicative() (exprNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek() == "*" || p.peek() == "/" {
		op := p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
	return left, nil
}

func (p *exprParser) parseUnary() (exprNode, error) {
	if p.peek() == "-" {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return negateNode{operand: operand}, nil
	}
	return p.parsePower()
}

func (p *exprParser) parsePower() (exprNode, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.peek() == "**" {
		p.next()
		// Right-associative: 2**3**2 is 2**(3**2).
		exp, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return binaryNode{op: "**", left: base, right: exp}, nil
	}
	return base, nil
}

func (p *exprParser) parsePrimary() (exprNode, error) {
	tok := p.next()
	switch {
	case tok == "":
		return nil, errors.Parse("expression ends unexpectedly")
	case tok == "(":
		node, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		if p.next() != ")" {
			return nil, errors.Parse("missing closing parenthesis in expression")
		}
		return node, nil
	case isNumberToken(tok):
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, errors.Parse("bad numeric literal %q in expression", tok)
		}
		return literalNode(f), nil
	case isIdentToken(tok):
		return columnNode(tok), nil
	}
	return nil, errors.Parse("unexpected %q in expression", tok)
}

// lex splits the expression into numbers, identifiers, operators and
// parentheses. "**" is one token.
func lex(expression string) ([]string, error) {
	var toks []string
	runes := []rune(expression)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '*' && i+1 < len(runes) && runes[i+1] == '*':
			toks = append(toks, "**")
			i += 2
		case strings.ContainsRune("+-*/()", r):
			toks = append(toks, string(r))
			i++
		case unicode.IsDigit(r) || r == '.':
			j := i
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			toks = append(toks, string(runes[i:j]))
			i = j
		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
				j++
			}
			toks = append(toks, string(runes[i:j]))
			i = j
		default:
			return nil, errors.Parse("unexpected character %q in expression", string(r))
		}
	}
	if len(toks) == 0 {
		return nil, errors.Parse("empty expression")
	}
	return toks, nil
}

func isNumberToken(tok string) bool {
	return tok != "" && (unicode.IsDigit(rune(tok[0])) || tok[0] == '.')
}

func isIdentToken(tok string) bool {
	r := rune(tok[0])
	return unicode.IsLetter(r) || r == '_'
}
