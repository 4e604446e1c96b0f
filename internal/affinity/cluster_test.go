package affinity

import (
	"math"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"podracer/internal/logging"
)

func quiet() Option { return WithLogger(logging.Discard()) }

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"water", "water", 1},
		{"Water", "WATER", 1},
		{"budget", "zoology", 0},
		{"water quality", "quality, water", 1},
		{"water", "water quality", 1},
		{"", "", 0},
		{"---", "water", 0},
	}
	for _, tt := range tests {
		if got := Similarity(tt.a, tt.b); !near(got, tt.want) {
			t.Errorf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSimilarity_Properties(t *testing.T) {
	words := []string{"water", "water quality", "ground water", "air quality", "budget", "Économie"}
	for _, a := range words {
		for _, b := range words {
			s := Similarity(a, b)
			if s < 0 || s > 1 {
				t.Errorf("Similarity(%q, %q) = %v, want within [0, 1]", a, b, s)
			}
			if r := Similarity(b, a); !near(s, r) {
				t.Errorf("Similarity not symmetric for %q/%q: %v vs %v", a, b, s, r)
			}
		}
		if s := Similarity(a, a); !near(s, 1) {
			t.Errorf("Similarity(%q, %q) = %v, want 1", a, a, s)
		}
	}
	// Partial overlap lands strictly between the extremes.
	if s := Similarity("ground water", "surface water"); s <= 0 || s >= 1 {
		t.Errorf("Similarity(ground water, surface water) = %v, want in (0, 1)", s)
	}
}

func TestCluster_SingleKeyword(t *testing.T) {
	res := Cluster(map[string]int{"water": 5}, quiet())
	if diff := cmp.Diff(map[string][]string{"water": {"water"}}, res.Clusters); diff != "" {
		t.Errorf("Clusters (-want +got):\n%s", diff)
	}
	if !res.Converged {
		t.Error("Converged = false, want true")
	}
}

func TestCluster_Empty(t *testing.T) {
	if res := Cluster(nil, quiet()); len(res.Clusters) != 0 {
		t.Errorf("Clusters = %v, want empty", res.Clusters)
	}
}

func TestCluster_UnrelatedKeywordsStayApart(t *testing.T) {
	res := Cluster(map[string]int{"budget": 3, "zoology": 1}, quiet())
	want := map[string][]string{
		"budget":  {"budget"},
		"zoology": {"zoology"},
	}
	if diff := cmp.Diff(want, res.Clusters); diff != "" {
		t.Errorf("Clusters (-want +got):\n%s", diff)
	}
}

func TestCluster_EqualInputs(t *testing.T) {
	// No shared tokens and equal counts: similarity 0 everywhere off the
	// diagonal and a positive preference, so every keyword leads itself.
	res := Cluster(map[string]int{"alpha": 1, "beta": 1, "gamma": 1}, quiet())
	if len(res.Clusters) != 3 || !res.Converged {
		t.Errorf("Clusters = %v, Converged = %v, want 3 singleton clusters", res.Clusters, res.Converged)
	}

	// Zero counts give zero preference, which does not beat similarity 0.
	res = Cluster(map[string]int{"alpha": 0, "beta": 0}, quiet())
	if diff := cmp.Diff(map[string][]string{"alpha": {"alpha", "beta"}}, res.Clusters); diff != "" {
		t.Errorf("Clusters (-want +got):\n%s", diff)
	}
}

func TestCluster_Partition(t *testing.T) {
	counts := map[string]int{
		"water":          12,
		"water quality":  4,
		"Water":          2,
		"ground water":   3,
		"air quality":    5,
		"air":            6,
		"budget":         9,
		"federal budget": 2,
		"zoology":        1,
		"climate":        7,
		"climate change": 3,
	}
	res := Cluster(counts, quiet())
	if len(res.Clusters) == 0 {
		t.Fatal("no clusters")
	}

	var all []string
	for ex, members := range res.Clusters {
		if _, ok := counts[ex]; !ok {
			t.Errorf("exemplar %q is not an input keyword", ex)
		}
		if !slices.Contains(members, ex) {
			t.Errorf("exemplar %q missing from its own cluster %v", ex, members)
		}
		if !slices.IsSorted(members) {
			t.Errorf("members of %q not sorted: %v", ex, members)
		}
		all = append(all, members...)
	}
	slices.Sort(all)

	var want []string
	for k := range counts {
		want = append(want, k)
	}
	slices.Sort(want)
	if diff := cmp.Diff(want, all); diff != "" {
		t.Errorf("clusters do not partition the keywords (-want +got):\n%s", diff)
	}
}

func TestCluster_Deterministic(t *testing.T) {
	counts := map[string]int{
		"water": 3, "water quality": 2, "air quality": 2, "air": 1, "budget": 4, "zoology": 1,
	}
	first := Cluster(counts, quiet())
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, Cluster(counts, quiet())); diff != "" {
			t.Fatalf("run %d differs (-first +got):\n%s", i, diff)
		}
	}
}

func TestCluster_IterationCap(t *testing.T) {
	counts := map[string]int{"water": 3, "water quality": 2, "air quality": 2, "budget": 4}
	res := Cluster(counts, quiet(), WithMaxIterations(1), WithConvergenceIterations(1))
	if res.Converged {
		t.Error("Converged = true, want false")
	}
	if res.Iterations != 1 {
		t.Errorf("Iterations = %d, want 1", res.Iterations)
	}

	var n int
	for _, members := range res.Clusters {
		n += len(members)
	}
	if n != len(counts) {
		t.Errorf("clustered %d keywords, want %d", n, len(counts))
	}
}

func TestExemplars_Sorted(t *testing.T) {
	r := Result{Clusters: map[string][]string{"b": {"b"}, "a": {"a"}, "c": {"c"}}}
	if diff := cmp.Diff([]string{"a", "b", "c"}, r.Exemplars()); diff != "" {
		t.Errorf("Exemplars (-want +got):\n%s", diff)
	}
}
