package rules

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/spigell/candidate-screener/internal/record"
)

// Condition operators.
const (
	OpEquals         = "equals"
	OpNotEquals      = "not-equals"
	OpContains       = "contains"
	OpNotContains    = "not-contains"
	OpStartsWith     = "starts-with"
	OpEndsWith       = "ends-with"
	OpGreaterThan    = "greater-than"
	OpLessThan       = "less-than"
	OpGreaterOrEqual = "greater-than-or-equal"
	OpLessOrEqual    = "less-than-or-equal"
	OpRegex          = "regex"
	OpExists         = "exists"
	OpNotExists      = "not-exists"
)

var operatorAliases = map[string]string{
	"eq":      OpEquals,
	"ne":      OpNotEquals,
	"neq":     OpNotEquals,
	"gt":      OpGreaterThan,
	"lt":      OpLessThan,
	"gte":     OpGreaterOrEqual,
	"ge":      OpGreaterOrEqual,
	"lte":     OpLessOrEqual,
	"le":      OpLessOrEqual,
	"matches": OpRegex,
	">":       OpGreaterThan,
	"<":       OpLessThan,
	">=":      OpGreaterOrEqual,
	"<=":      OpLessOrEqual,
	"==":      OpEquals,
	"!=":      OpNotEquals,
	"≥":       OpGreaterOrEqual,
	"≤":       OpLessOrEqual,
}

// CanonicalOperator lowercases op and resolves the accepted aliases
// (snake_case, camelCase and symbolic comparisons).
func CanonicalOperator(op string) string {
	op = strings.TrimSpace(op)
	if op == "" {
		return ""
	}
	var b strings.Builder
	var prev rune
	for _, r := range op {
		switch {
		case r == '_' || r == ' ':
			b.WriteRune('-')
		case r >= 'A' && r <= 'Z':
			if prev >= 'a' && prev <= 'z' {
				b.WriteRune('-')
			}
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune(r)
		}
		prev = r
	}
	canonical := b.String()
	if alias, ok := operatorAliases[strings.ToLower(op)]; ok {
		return alias
	}
	if alias, ok := operatorAliases[canonical]; ok {
		return alias
	}
	return canonical
}

// IsNegative reports whether op is satisfied only when no element of a list
// matches.
func IsNegative(op string) bool {
	switch CanonicalOperator(op) {
	case OpNotEquals, OpNotContains:
		return true
	default:
		return false
	}
}

// OperandError describes an operand that could not be interpreted, such as an
// unparsable number or an invalid regular expression.
type OperandError struct {
	Operator string
	Operand  string
	Err      error
}

func (e *OperandError) Error() string {
	return fmt.Sprintf("operator %s: invalid operand %q: %v", e.Operator, e.Operand, e.Err)
}

func (e *OperandError) Unwrap() error { return e.Err }

var regexCache sync.Map

func compile(pattern string) (*regexp.Regexp, error) {
	if cached, ok := regexCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, err
	}
	regexCache.Store(pattern, re)
	return re, nil
}

// Match applies the operator to a looked-up value. It never panics: invalid
// operands and unknown operators evaluate to false and are reported through the
// returned error, which callers only log.
//
// exists holds for a present value with at least one non-blank text; numbers
// always count. A blank string or a list of blank strings is treated like a
// missing field, so not-exists holds for both.
func Match(operator string, actual record.Value, operand string) (bool, error) {
	op := CanonicalOperator(operator)

	switch op {
	case OpExists:
		return !actual.IsAbsent() && !actual.Empty(), nil
	case OpNotExists:
		return actual.IsAbsent() || actual.Empty(), nil
	}

	if actual.IsAbsent() {
		return false, nil
	}

	switch op {
	case OpGreaterThan, OpLessThan, OpGreaterOrEqual, OpLessOrEqual:
		return compareNumbers(op, actual, operand)
	case OpRegex:
		re, err := compile(operand)
		if err != nil {
			return false, &OperandError{Operator: op, Operand: operand, Err: err}
		}
		return anyText(actual, re.MatchString), nil
	case OpEquals, OpContains, OpStartsWith, OpEndsWith:
		want := strings.ToLower(strings.TrimSpace(operand))
		return anyText(actual, func(s string) bool { return textMatch(op, s, want) }), nil
	case OpNotEquals:
		want := strings.ToLower(strings.TrimSpace(operand))
		return !anyText(actual, func(s string) bool { return textMatch(OpEquals, s, want) }), nil
	case OpNotContains:
		want := strings.ToLower(strings.TrimSpace(operand))
		return !anyText(actual, func(s string) bool { return textMatch(OpContains, s, want) }), nil
	default:
		return false, fmt.Errorf("unknown operator %q", operator)
	}
}

func textMatch(op, actual, want string) bool {
	actual = strings.ToLower(strings.TrimSpace(actual))
	switch op {
	case OpEquals:
		return actual == want
	case OpContains:
		return strings.Contains(actual, want)
	case OpStartsWith:
		return strings.HasPrefix(actual, want)
	case OpEndsWith:
		return strings.HasSuffix(actual, want)
	default:
		return false
	}
}

func anyText(v record.Value, fn func(string) bool) bool {
	for _, text := range v.Texts() {
		if fn(text) {
			return true
		}
	}
	return false
}

func compareNumbers(op string, actual record.Value, operand string) (bool, error) {
	left, ok := actual.Float()
	if !ok {
		return false, &OperandError{Operator: op, Operand: strings.Join(actual.Texts(), ","), Err: errNotNumber}
	}
	right, ok := record.StringValue(operand).Float()
	if !ok {
		return false, &OperandError{Operator: op, Operand: operand, Err: errNotNumber}
	}

	switch op {
	case OpGreaterThan:
		return left > right, nil
	case OpLessThan:
		return left < right, nil
	case OpGreaterOrEqual:
		return left >= right, nil
	default:
		return left <= right, nil
	}
}

var errNotNumber = fmt.Errorf("not a number")
