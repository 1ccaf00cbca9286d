// Package indexrange parses index selection expressions such as "1,3-8,10"
// and tests integer membership against them.
package indexrange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrParse = errors.New("malformed range expression")
)

// Term is an inclusive range. A single index is stored with Low == High.
// Low greater than High is accepted and simply never matches.
type Term struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

func (t Term) contains(v int) bool {
	return t.Low <= v && v <= t.High
}

func (t Term) String() string {
	if t.Low == t.High {
		return strconv.Itoa(t.Low)
	}

	return fmt.Sprintf("%d-%d", t.Low, t.High)
}

// Spec is the parsed form of an expression, terms kept in source order.
type Spec []Term

// Parse reads expr := term (',' term)*, term := INT | INT '-' INT.
func Parse(expr string) (Spec, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrParse)
	}

	parts := strings.Split(expr, ",")
	spec := make(Spec, 0, len(parts))
	for _, part := range parts {
		term, err := parseTerm(part)
		if err != nil {
			return nil, err
		}

		spec = append(spec, term)
	}

	return spec, nil
}

// MustParse is like Parse but panics on error. Only meant for constant expressions.
func MustParse(expr string) Spec {
	spec, err := Parse(expr)
	if err != nil {
		panic(err)
	}

	return spec
}

func parseTerm(part string) (term Term, err error) {
	low, high, isRange := strings.Cut(part, "-")
	term.Low, err = parseInt(low)
	if err != nil {
		return
	}

	if !isRange {
		term.High = term.Low
		return
	}

	term.High, err = parseInt(high)
	return
}

func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseInt(s, 10, 0)
	if err != nil {
		return 0, fmt.Errorf("%w: bad integer %q", ErrParse, s)
	}

	return int(v), nil
}

// Contains reports whether v equals a single term or falls inside a range term.
func (s Spec) Contains(v int) bool {
	for _, term := range s {
		if term.contains(v) {
			return true
		}
	}

	return false
}

func (s Spec) String() string {
	terms := make([]string, 0, len(s))
	for _, term := range s {
		terms = append(terms, term.String())
	}

	return strings.Join(terms, ",")
}

// Matches is a shorthand for spec.Contains(v).
func Matches(v int, spec Spec) bool {
	return spec.Contains(v)
}
