package catalog

import (
	"slices"
	"strconv"
	"strings"
)

// Tuple is an immutable, order-sensitive sequence of strings that can be
// used directly as a map key. Two tuples are equal iff their elements are
// equal element-wise and in the same order.
type Tuple struct {
	enc string
}

// NewTuple builds a Tuple from the given values.
func NewTuple(values ...string) Tuple {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(v))
	}
	return Tuple{enc: b.String()}
}

// Values returns a fresh copy of the tuple elements.
func (t Tuple) Values() []string {
	var out []string
	rest := t.enc
	for rest != "" {
		q, err := strconv.QuotedPrefix(rest)
		if err != nil {
			break
		}
		v, _ := strconv.Unquote(q)
		out = append(out, v)
		rest = strings.TrimPrefix(rest[len(q):], ",")
	}
	return out
}

// String joins the elements with ", ".
func (t Tuple) String() string { return t.Join(", ") }

// Join joins the elements with sep.
func (t Tuple) Join(sep string) string { return strings.Join(t.Values(), sep) }

// Compare orders tuples lexicographically by element.
func (t Tuple) Compare(o Tuple) int {
	if t.enc == o.enc {
		return 0
	}
	return slices.Compare(t.Values(), o.Values())
}
