package flow

import (
	"regexp"
	"strconv"
	"strings"
)

// Condition evaluates to a boolean against a variable map.
type Condition interface {
	Evaluate(vars map[string]any) bool
}

// ExpressionCondition evaluates a string template such as "{{score}} > 80".
//
// Evaluation substitutes all {{token}} occurrences (missing variables become
// the empty string), then parses the substituted text into a small expression
// tree. The parse order is fixed: numeric comparison, string equality,
// substring check ("X in Y" / "X contains Y"), boolean literal, and finally
// truthy-if-non-empty. Every parse or evaluation error degrades to false; the
// evaluator never panics and never returns an error.
type ExpressionCondition struct {
	raw string
}

// NewExpressionCondition creates a condition from a template expression.
func NewExpressionCondition(expr string) *ExpressionCondition {
	return &ExpressionCondition{raw: expr}
}

// Expression returns the unsubstituted source text.
func (c *ExpressionCondition) Expression() string {
	return c.raw
}

// Evaluate substitutes vars into the expression and evaluates the result.
func (c *ExpressionCondition) Evaluate(vars map[string]any) bool {
	text := substitute(c.raw, vars, false)
	return parseExpression(text).eval()
}

// exprNode is one variant of the parsed expression tree.
type exprNode interface {
	eval() bool
}

// comparisonExpr is a numeric comparison: both sides parsed as floats.
type comparisonExpr struct {
	left  float64
	op    string
	right float64
}

func (e comparisonExpr) eval() bool {
	switch e.op {
	case ">":
		return e.left > e.right
	case ">=":
		return e.left >= e.right
	case "<":
		return e.left < e.right
	case "<=":
		return e.left <= e.right
	case "==":
		return e.left == e.right
	case "!=":
		return e.left != e.right
	}
	return false
}

// equalityExpr is a generic string equality or inequality.
type equalityExpr struct {
	left   string
	right  string
	negate bool
}

func (e equalityExpr) eval() bool {
	eq := e.left == e.right
	if e.negate {
		return !eq
	}
	return eq
}

// containsExpr is a case-insensitive substring check.
type containsExpr struct {
	needle   string
	haystack string
}

func (e containsExpr) eval() bool {
	return strings.Contains(strings.ToLower(e.haystack), strings.ToLower(e.needle))
}

// literalExpr is a resolved boolean constant.
type literalExpr bool

func (e literalExpr) eval() bool { return bool(e) }

// truthyExpr is the fallback: true iff the text is non-empty.
type truthyExpr string

func (e truthyExpr) eval() bool { return strings.TrimSpace(string(e)) != "" }

// comparatorPattern splits "L op R" on the first comparison operator.
// Two-character operators are listed first so ">=" does not parse as ">".
var comparatorPattern = regexp.MustCompile(`^(.*?)(>=|<=|==|!=|>|<)(.*)$`)

// inPattern and containsPattern match the substring forms case-insensitively.
var (
	inPattern       = regexp.MustCompile(`(?i)^(.+?)\s+in\s+(.+)$`)
	containsPattern = regexp.MustCompile(`(?i)^(.+?)\s+contains\s+(.+)$`)
)

// parseExpression turns substituted text into an expression node. Anything
// unparseable collapses to a false literal.
func parseExpression(text string) exprNode {
	text = strings.TrimSpace(text)

	if m := comparatorPattern.FindStringSubmatch(text); m != nil {
		left := strings.TrimSpace(m[1])
		op := m[2]
		right := strings.TrimSpace(m[3])

		// A missing variable substituted to "" leaves an empty left side:
		// fail-safe false rather than a comparison against nothing.
		if left == "" {
			return literalExpr(false)
		}

		lf, lerr := strconv.ParseFloat(trimQuotes(left), 64)
		rf, rerr := strconv.ParseFloat(trimQuotes(right), 64)
		if lerr == nil && rerr == nil {
			return comparisonExpr{left: lf, op: op, right: rf}
		}
		if op == "==" || op == "!=" {
			return equalityExpr{
				left:   trimQuotes(left),
				right:  trimQuotes(right),
				negate: op == "!=",
			}
		}
		// Ordering operator over non-numeric operands.
		return literalExpr(false)
	}

	if m := inPattern.FindStringSubmatch(text); m != nil {
		return containsExpr{
			needle:   trimQuotes(strings.TrimSpace(m[1])),
			haystack: trimQuotes(strings.TrimSpace(m[2])),
		}
	}
	if m := containsPattern.FindStringSubmatch(text); m != nil {
		return containsExpr{
			needle:   trimQuotes(strings.TrimSpace(m[2])),
			haystack: trimQuotes(strings.TrimSpace(m[1])),
		}
	}

	switch strings.ToLower(text) {
	case "true":
		return literalExpr(true)
	case "false":
		return literalExpr(false)
	}

	return truthyExpr(text)
}

// trimQuotes strips one layer of single or double quotes.
func trimQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
