// Package dice parses and evaluates dice notation embedded in narration text.
package dice

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidNotation indicates text that is not a well-formed dice expression.
var ErrInvalidNotation = errors.New("invalid dice notation, expected NdM, NdM+K or NdM-K")

// maxDice bounds the number of dice a single token may request. Tokens above
// the bound are treated as malformed and left untouched.
const maxDice = 1000

// tokenPattern matches brace-delimited dice tokens such as {1d20} or {2d6+3}.
// Counts and modifiers must not carry leading zeros, and a modifier may
// appear at most once, so inputs like {1d20++5} or {0d6} never match.
var tokenPattern = regexp.MustCompile(`\{([1-9]\d*)d([1-9]\d*)([+-][1-9]\d*)?\}`)

// barePattern matches a full string holding one unbraced dice expression,
// the form accepted by the /roll command.
var barePattern = regexp.MustCompile(`^([1-9]\d*)d([1-9]\d*)([+-][1-9]\d*)?$`)

// stripPattern matches every brace-delimited span, well-formed or not,
// including spans that wrap across lines.
var stripPattern = regexp.MustCompile(`(?s)\{.*?\}`)

// Source draws individual die faces. Implementations return a value in
// [1, sides] for sides >= 1.
type Source interface {
	Roll(sides int) int
}

type randSource struct{}

func (randSource) Roll(sides int) int {
	return rand.Intn(sides) + 1
}

// Expr is one parsed dice expression.
type Expr struct {
	Count    int
	Sides    int
	Modifier int
}

func (e Expr) String() string {
	switch {
	case e.Modifier > 0:
		return fmt.Sprintf("%dd%d+%d", e.Count, e.Sides, e.Modifier)
	case e.Modifier < 0:
		return fmt.Sprintf("%dd%d-%d", e.Count, e.Sides, -e.Modifier)
	default:
		return fmt.Sprintf("%dd%d", e.Count, e.Sides)
	}
}

// Result holds the outcome of evaluating one expression.
type Result struct {
	Expr  Expr
	Draws []int
	Total int
}

// String renders the audit form of a roll, e.g. "2d6+3 → [4, 5] + 3 = 12"
// or "1d20 → 17". The individual draws appear in brackets only when more
// than one die was rolled, and the modifier is omitted when zero.
func (r Result) String() string {
	var b strings.Builder
	b.WriteString(r.Expr.String())
	b.WriteString(" → ")
	if len(r.Draws) == 1 {
		b.WriteString(strconv.Itoa(r.Draws[0]))
	} else {
		b.WriteString("[")
		for i, d := range r.Draws {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.Itoa(d))
		}
		b.WriteString("]")
	}
	if r.Expr.Modifier != 0 || len(r.Draws) > 1 {
		switch {
		case r.Expr.Modifier > 0:
			fmt.Fprintf(&b, " + %d", r.Expr.Modifier)
		case r.Expr.Modifier < 0:
			fmt.Fprintf(&b, " - %d", -r.Expr.Modifier)
		}
		fmt.Fprintf(&b, " = %d", r.Total)
	}
	return b.String()
}

// Roller evaluates dice expressions against an injectable random source.
type Roller struct {
	src Source
}

// NewRoller returns a Roller backed by src. A nil src falls back to an
// unseeded math/rand source.
func NewRoller(src Source) *Roller {
	if src == nil {
		src = randSource{}
	}
	return &Roller{src: src}
}

// Parse validates a bare dice expression such as "2d6+3".
func Parse(text string) (Expr, error) {
	m := barePattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return Expr{}, ErrInvalidNotation
	}
	expr, ok := exprFromMatch(m)
	if !ok {
		return Expr{}, ErrInvalidNotation
	}
	return expr, nil
}

// Roll evaluates one expression.
func (r *Roller) Roll(expr Expr) Result {
	draws := make([]int, expr.Count)
	total := expr.Modifier
	for i := range draws {
		draws[i] = r.src.Roll(expr.Sides)
		total += draws[i]
	}
	return Result{Expr: expr, Draws: draws, Total: total}
}

// Resolve rewrites every well-formed {NdM±K} token in text into its rolled
// result, scanning left to right over non-overlapping matches. Malformed
// brace content is left verbatim. The original expression is preserved as a
// prefix of each substitution, and the rewritten form never re-matches the
// token pattern, so Resolve is safe to apply to its own output.
func (r *Roller) Resolve(text string) string {
	return tokenPattern.ReplaceAllStringFunc(text, func(tok string) string {
		m := tokenPattern.FindStringSubmatch(tok)
		expr, ok := exprFromMatch(m)
		if !ok {
			return tok
		}
		return "{" + r.Roll(expr).String() + "}"
	})
}

// Strip removes every brace-delimited span from text, including malformed
// ones. Used to produce voice-clean narration.
func Strip(text string) string {
	return stripPattern.ReplaceAllString(text, "")
}

func exprFromMatch(m []string) (Expr, bool) {
	count, err := strconv.Atoi(m[1])
	if err != nil || count > maxDice {
		return Expr{}, false
	}
	sides, err := strconv.Atoi(m[2])
	if err != nil {
		return Expr{}, false
	}
	modifier := 0
	if m[3] != "" {
		modifier, err = strconv.Atoi(m[3])
		if err != nil {
			return Expr{}, false
		}
	}
	return Expr{Count: count, Sides: sides, Modifier: modifier}, true
}
