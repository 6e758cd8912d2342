// internal/engine/operators.go
package engine

import (
	"regexp"
	"strings"
)

/*
 * Operator comparison logic.
 *
 * Implements the condition operators as pure functions over two resolved
 * values plus modifiers. Every operator is total: type-mismatched or
 * nonsensical comparisons degrade to false, never to a panic or error, so a
 * single odd payload value can never abort rule evaluation.
 *
 * Operators:
 *   - equals/not_equals: loose deep equality, any-element semantics when
 *     either side is a list
 *   - in/any_of/not_in: membership with equality semantics
 *   - contains/not_contains/contains_any/contains_all: substring for
 *     strings, element membership for lists
 *   - starts_with/ends_with: string-only, case-fold aware
 *   - regex/matches: pattern match over the stringified value
 *   - gt/gte/lt/lte, between: numeric coercion of both operands
 *   - date_after/date_before: date coercion of both operands
 *   - exists/not_exists/missing, truthy/falsy: presence and boolean checks
 *
 * An unknown operator name falls back to membership when the operand is a
 * list and equality otherwise; rule authors get permissive matching instead
 * of a hard failure.
 *
 * Why function-based: a switch over ~20 small comparisons reads better than
 * twenty single-method interface implementations.
 */

// Options carries the modifiers a condition applies to its operator.
type Options struct {
	CaseInsensitive bool
	AnyOf           []any
	AllOf           []any
	RegexFlags      string
}

// Apply evaluates operator op over actual and expected. Total: always
// returns a boolean, never panics, regardless of operand types.
func Apply(op string, actual, expected any, opts Options) bool {
	switch strings.TrimSpace(strings.ToLower(op)) {
	case "equals", "eq", "":
		return compareEquals(actual, expected, opts.CaseInsensitive)
	case "not_equals", "neq":
		return !compareEquals(actual, expected, opts.CaseInsensitive)
	case "in", "any_of":
		return compareIn(actual, expected, opts)
	case "not_in":
		return !compareIn(actual, expected, opts)
	case "contains":
		return compareContains(actual, expected, opts.CaseInsensitive)
	case "not_contains":
		return !compareContains(actual, expected, opts.CaseInsensitive)
	case "contains_any":
		return compareContainsList(actual, expected, opts, false)
	case "contains_all":
		return compareContainsList(actual, expected, opts, true)
	case "starts_with":
		return compareAffix(actual, expected, opts.CaseInsensitive, strings.HasPrefix)
	case "ends_with":
		return compareAffix(actual, expected, opts.CaseInsensitive, strings.HasSuffix)
	case "regex", "matches":
		return compareRegex(actual, expected, opts)
	case "gt":
		return compareNumeric(actual, expected) == 1
	case "gte":
		c := compareNumeric(actual, expected)
		return c == 1 || c == 0
	case "lt":
		return compareNumeric(actual, expected) == -1
	case "lte":
		c := compareNumeric(actual, expected)
		return c == -1 || c == 0
	case "date_after":
		return compareDates(actual, expected) == 1
	case "date_before":
		return compareDates(actual, expected) == -1
	case "between":
		return compareBetween(actual, expected, opts)
	case "exists":
		return present(actual)
	case "not_exists", "missing":
		return !present(actual)
	case "truthy":
		return truthy(actual)
	case "falsy":
		return !truthy(actual)
	default:
		// Unknown operator: membership when the operand is a list,
		// equality otherwise.
		if _, ok := operandList(expected, opts); ok {
			return compareIn(actual, expected, opts)
		}
		return compareEquals(actual, expected, opts.CaseInsensitive)
	}
}

// CompilePattern builds the regex a regex/matches condition will use,
// surfacing the compile error so malformed rule definitions can be reported
// per rule instead of silently never matching.
func CompilePattern(expected any, opts Options) (*regexp.Regexp, error) {
	pattern, ok := expected.(string)
	if !ok {
		pattern = stringify(expected)
	}
	flags := opts.RegexFlags
	if flags == "" && opts.CaseInsensitive {
		flags = "i"
	}
	var prefix strings.Builder
	for _, f := range flags {
		switch f {
		case 'i':
			prefix.WriteString("(?i)")
		case 's':
			prefix.WriteString("(?s)")
		case 'm':
			prefix.WriteString("(?m)")
		}
		// Other flags (e.g. the global flag of other engines) have no
		// Go equivalent and are ignored.
	}
	return regexp.Compile(prefix.String() + pattern)
}

// compareEquals implements loose equality with any-element semantics: a
// list on either side matches when any of its elements equals the other
// operand. Whole-list equality also counts.
func compareEquals(actual, expected any, fold bool) bool {
	if looseEqual(actual, expected, fold) {
		return true
	}
	if list, ok := asList(actual); ok {
		for _, el := range list {
			if looseEqual(el, expected, fold) {
				return true
			}
		}
	}
	if list, ok := asList(expected); ok {
		for _, el := range list {
			if looseEqual(actual, el, fold) {
				return true
			}
		}
	}
	return false
}

// operandList extracts the membership list for in-family operators:
// anyOf modifier first, then a list-shaped expected operand.
func operandList(expected any, opts Options) ([]any, bool) {
	if len(opts.AnyOf) > 0 {
		return opts.AnyOf, true
	}
	return asList(expected)
}

func compareIn(actual, expected any, opts Options) bool {
	list, ok := operandList(expected, opts)
	if !ok {
		// Scalar operand degrades to equality
		return compareEquals(actual, expected, opts.CaseInsensitive)
	}
	for _, el := range list {
		if compareEquals(actual, el, opts.CaseInsensitive) {
			return true
		}
	}
	return false
}

// compareContains is substring containment for strings and element
// membership for lists; anything else is false.
func compareContains(actual, expected any, fold bool) bool {
	switch v := actual.(type) {
	case string:
		needle := stringify(expected)
		if fold {
			return strings.Contains(strings.ToLower(v), strings.ToLower(needle))
		}
		return strings.Contains(v, needle)
	default:
		if list, ok := asList(actual); ok {
			for _, el := range list {
				if looseEqual(el, expected, fold) {
					return true
				}
			}
		}
		return false
	}
}

// compareContainsList applies contains against each element of the expected
// list, combined with OR (any) or AND (all). An empty list matches nothing
// for any and everything for all.
func compareContainsList(actual, expected any, opts Options, all bool) bool {
	var list []any
	var ok bool
	if all && len(opts.AllOf) > 0 {
		list, ok = opts.AllOf, true
	} else {
		list, ok = operandList(expected, opts)
	}
	if !ok {
		return compareContains(actual, expected, opts.CaseInsensitive)
	}
	for _, el := range list {
		matched := compareContains(actual, el, opts.CaseInsensitive)
		if all && !matched {
			return false
		}
		if !all && matched {
			return true
		}
	}
	return all
}

// compareAffix is the shared implementation of starts_with and ends_with.
// String-only: a non-string actual never matches.
func compareAffix(actual, expected any, fold bool, test func(string, string) bool) bool {
	s, ok := actual.(string)
	if !ok {
		return false
	}
	affix := stringify(expected)
	if fold {
		return test(strings.ToLower(s), strings.ToLower(affix))
	}
	return test(s, affix)
}

func compareRegex(actual, expected any, opts Options) bool {
	if actual == nil {
		return false
	}
	re, err := CompilePattern(expected, opts)
	if err != nil {
		return false
	}
	return re.MatchString(stringify(actual))
}

// compareNumeric performs three-way numeric comparison (-1/0/1) after
// coercing both operands. Incomparable operands return a sentinel that is
// neither -1, 0 nor 1 so every ordering operator fails closed.
func compareNumeric(a, b any) int {
	fa, oka := asFloat(a)
	fb, okb := asFloat(b)
	if !oka || !okb {
		return incomparable
	}
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	default:
		return 0
	}
}

func compareDates(a, b any) int {
	ta, oka := asTime(a)
	tb, okb := asTime(b)
	if !oka || !okb {
		return incomparable
	}
	switch {
	case ta.Before(tb):
		return -1
	case ta.After(tb):
		return 1
	default:
		return 0
	}
}

const incomparable = -2

// compareBetween checks an inclusive [min, max] numeric range. The operand
// is a 2-element list; anything else fails closed.
func compareBetween(actual, expected any, opts Options) bool {
	bounds, ok := operandList(expected, opts)
	if !ok || len(bounds) < 2 {
		return false
	}
	v, okV := asFloat(actual)
	lo, okLo := asFloat(bounds[0])
	hi, okHi := asFloat(bounds[1])
	if !okV || !okLo || !okHi {
		return false
	}
	return v >= lo && v <= hi
}
