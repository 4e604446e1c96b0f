package catalog

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestTuple_OrderSensitive(t *testing.T) {
	counts := map[Tuple]int{}
	counts[NewTuple("A", "B")]++
	counts[NewTuple("A", "B")]++
	counts[NewTuple("B", "A")]++

	if got := counts[NewTuple("A", "B")]; got != 2 {
		t.Errorf("count[A,B] = %d, want 2", got)
	}
	if got := counts[NewTuple("B", "A")]; got != 1 {
		t.Errorf("count[B,A] = %d, want 1", got)
	}
}

func TestTuple_RoundTrip(t *testing.T) {
	tests := [][]string{
		nil,
		{""},
		{"a,b", `quote"d`, "back\\slash"},
		{"café", "日本"},
	}
	for _, vals := range tests {
		got := NewTuple(vals...).Values()
		if diff := cmp.Diff(vals, got, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("Values mismatch for %q:\n%s", vals, diff)
		}
	}
}

func TestTuple_EmptyDistinctFromEmptyString(t *testing.T) {
	if NewTuple() == NewTuple("") {
		t.Error("empty tuple must differ from a tuple holding one empty string")
	}
	if NewTuple("a", "b") == NewTuple("a,b") {
		t.Error("separator inside an element must not collide")
	}
}

func TestTuple_Compare(t *testing.T) {
	a, b, c := NewTuple("A"), NewTuple("A", "B"), NewTuple("B")
	if a.Compare(b) >= 0 || b.Compare(c) >= 0 || c.Compare(a) <= 0 {
		t.Error("tuples should order lexicographically: [A] < [A B] < [B]")
	}
	if b.Compare(NewTuple("A", "B")) != 0 {
		t.Error("equal tuples should compare 0")
	}
}

func TestTuple_String(t *testing.T) {
	if got := NewTuple("005:12", "005:13").String(); got != "005:12, 005:13" {
		t.Errorf("String() = %q", got)
	}
}
