package affinity

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/text/cases"
)

var fold = cases.Fold()

// tokens case-folds s and splits it into runs of letters and digits.
func tokens(s string) mapset.Set[string] {
	fields := strings.FieldsFunc(fold.String(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return mapset.NewSet(fields...)
}

// Similarity scores two keywords in [0, 1] by comparing their token sets.
// Keywords that share no token score 0. Otherwise the score is the best
// edit-distance ratio among the shared tokens, the shared tokens plus each
// side's remainder, and the two full sorted token strings.
func Similarity(a, b string) float64 {
	ta, tb := tokens(a), tokens(b)
	shared := ta.Intersect(tb)
	if shared.Cardinality() == 0 {
		return 0
	}

	sect := joinSorted(shared)
	diffAB := joinSorted(ta.Difference(tb))
	diffBA := joinSorted(tb.Difference(ta))

	c1 := strings.TrimSpace(sect + " " + diffAB)
	c2 := strings.TrimSpace(sect + " " + diffBA)

	return max(ratio(sect, c1), ratio(sect, c2), ratio(c1, c2))
}

func joinSorted(s mapset.Set[string]) string {
	out := s.ToSlice()
	slices.Sort(out)
	return strings.Join(out, " ")
}

// ratio is 1 minus the Levenshtein distance normalised by the longer input.
func ratio(a, b string) float64 {
	n := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if n == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(n)
}
