package tree

import (
	"fmt"
	"strconv"
	"strings"
)

// Line is a source line marker.
//
// Real lines have Sub == 0. Synthetic lines are generated for statements
// injected by the compiler: they keep Base from a real line and a non-zero
// Sub, so that they sort strictly after Base and strictly before Base+1.
type Line struct {
	Base int    // 1-based line number
	Sub  uint64 // 0 for real lines
}

// MaxSub is the largest Sub a synthetic line may carry. String renders Sub
// in eight digits, so synthetic lines of one base sort the same as decimals
// and as Lines.
const MaxSub uint64 = 99_999_999

// NewLine returns the real line n.
func NewLine(n int) Line {
	return Line{Base: n}
}

// IsValid returns true if the line points into a source file (Base > 0) or
// is synthetic.
func (l Line) IsValid() bool {
	return l.Base > 0 || l.Sub > 0
}

// IsSynthetic returns true if the line was generated by the compiler.
func (l Line) IsSynthetic() bool {
	return l.Sub > 0
}

// Less reports whether l sorts before o.
func (l Line) Less(o Line) bool {
	if l.Base != o.Base {
		return l.Base < o.Base
	}
	return l.Sub < o.Sub
}

// Compare returns -1, 0 or +1 depending on whether l sorts before, equal to
// or after o.
func (l Line) Compare(o Line) int {
	switch {
	case l.Less(o):
		return -1
	case o.Less(l):
		return 1
	default:
		return 0
	}
}

// String renders real lines as "3" and synthetic ones as "2.00000001".
func (l Line) String() string {
	if l.Sub == 0 {
		return strconv.Itoa(l.Base)
	}
	return fmt.Sprintf("%d.%08d", l.Base, l.Sub)
}

// ParseLine parses the String form of a line.
func ParseLine(s string) (Line, error) {
	base, sub, synthetic := strings.Cut(s, ".")
	n, err := strconv.Atoi(base)
	if err != nil {
		return Line{}, fmt.Errorf("invalid line %q: %w", s, err)
	}
	if !synthetic {
		return Line{Base: n}, nil
	}
	m, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || m == 0 || m > MaxSub {
		return Line{}, fmt.Errorf("invalid synthetic line %q", s)
	}
	return Line{Base: n, Sub: m}, nil
}
