// Package affinity groups keywords that read alike, using affinity
// propagation over a pairwise token-set similarity matrix. Frequent
// keywords are preferred as cluster exemplars.
//
//	res := affinity.Cluster(idx.KeywordCounts)
//	for _, ex := range res.Exemplars() {
//		fmt.Println(ex, res.Clusters[ex])
//	}
package affinity

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"podracer/internal/logging"
)

const (
	DefaultDamping               = 0.5
	DefaultMaxIterations         = 200
	DefaultConvergenceIterations = 15
)

// Result maps each exemplar keyword to the sorted keywords of its cluster.
// The clusters partition the input keywords.
type Result struct {
	Clusters   map[string][]string `json:"clusters"`
	Converged  bool                `json:"converged"`
	Iterations int                 `json:"iterations"`
}

// Exemplars returns the cluster exemplars in sorted order.
func (r Result) Exemplars() []string {
	out := make([]string, 0, len(r.Clusters))
	for ex := range r.Clusters {
		out = append(out, ex)
	}
	slices.Sort(out)
	return out
}

type config struct {
	damping     float64
	maxIter     int
	convergence int
	seed        uint64
	logger      *slog.Logger
}

// Option configures Cluster.
type Option func(*config)

// WithDamping sets the damping factor. Values outside [0.5, 1) are ignored.
func WithDamping(d float64) Option {
	return func(c *config) {
		if d >= 0.5 && d < 1 {
			c.damping = d
		}
	}
}

// WithMaxIterations caps the number of message-passing rounds.
func WithMaxIterations(n int) Option {
	return func(c *config) {
		if n >= 1 {
			c.maxIter = n
		}
	}
}

// WithConvergenceIterations sets how many rounds the exemplar set must stay
// unchanged before the run stops.
func WithConvergenceIterations(n int) Option {
	return func(c *config) {
		if n >= 1 {
			c.convergence = n
		}
	}
}

// WithSeed seeds the tie-breaking noise.
func WithSeed(seed uint64) Option { return func(c *config) { c.seed = seed } }

// WithLogger overrides the component logger.
func WithLogger(l *slog.Logger) Option { return func(c *config) { c.logger = l } }

// Cluster groups the keywords of counts. A keyword's exemplar preference is
// its share of all occurrences. The result is deterministic for a given
// input and seed.
func Cluster(counts map[string]int, opts ...Option) Result {
	cfg := config{
		damping:     DefaultDamping,
		maxIter:     DefaultMaxIterations,
		convergence: DefaultConvergenceIterations,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.New("affinity")
	}

	keywords := make([]string, 0, len(counts))
	total := 0
	for k, c := range counts {
		keywords = append(keywords, k)
		total += c
	}
	slices.Sort(keywords)
	n := len(keywords)

	switch n {
	case 0:
		return Result{Clusters: map[string][]string{}, Converged: true}
	case 1:
		return Result{Clusters: map[string][]string{keywords[0]: {keywords[0]}}, Converged: true}
	}

	pref := make([]float64, n)
	for i, k := range keywords {
		if total > 0 {
			pref[i] = float64(counts[k]) / float64(total)
		}
	}

	s := make([][]float64, n)
	for i := range s {
		s[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := Similarity(keywords[i], keywords[j])
			s[i][j], s[j][i] = v, v
		}
	}

	if equalInputs(s, pref) {
		if pref[0] > s[0][n-1] {
			return group(keywords, identity(n), identity(n), true, 0)
		}
		return group(keywords, []int{0}, make([]int, n), true, 0)
	}

	for i := range s {
		s[i][i] = pref[i]
	}

	ap := propagate(s, cfg)
	if !ap.converged {
		cfg.logger.Warn("affinity propagation did not converge",
			"keywords", n, "iterations", ap.iterations)
	}
	if len(ap.exemplars) == 0 {
		return group(keywords, identity(n), identity(n), false, ap.iterations)
	}
	return group(keywords, ap.exemplars, ap.labels, ap.converged, ap.iterations)
}

// equalInputs reports whether every preference is the same and every
// off-diagonal similarity is the same. Message passing cannot break that
// symmetry, so the outcome is decided directly.
func equalInputs(s [][]float64, pref []float64) bool {
	for _, p := range pref {
		if p != pref[0] {
			return false
		}
	}
	first := s[0][1]
	for i := range s {
		for j := range s[i] {
			if i != j && s[i][j] != first {
				return false
			}
		}
	}
	return true
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// group builds the Result from exemplar indices and per-keyword labels,
// where labels[i] indexes into exemplars.
func group(keywords []string, exemplars, labels []int, converged bool, iterations int) Result {
	sets := make([]mapset.Set[string], len(exemplars))
	for i := range sets {
		sets[i] = mapset.NewSet[string]()
	}
	for i, l := range labels {
		sets[l].Add(keywords[i])
	}

	res := Result{
		Clusters:   make(map[string][]string, len(exemplars)),
		Converged:  converged,
		Iterations: iterations,
	}
	for c, ex := range exemplars {
		members := sets[c].ToSlice()
		slices.Sort(members)
		res.Clusters[keywords[ex]] = members
	}
	return res
}

type propagation struct {
	exemplars  []int
	labels     []int
	converged  bool
	iterations int
}

const (
	eps  = 0x1p-52   // float64 machine epsilon
	tiny = 0x1p-1022 // smallest normal float64
)

// propagate runs responsibility/availability message passing on s, whose
// diagonal holds the preferences. s is modified in place by the noise.
func propagate(s [][]float64, cfg config) propagation {
	n := len(s)
	rng := rand.New(rand.NewPCG(cfg.seed, cfg.seed))
	for i := range s {
		for j := range s[i] {
			s[i][j] += (eps*s[i][j] + tiny*100) * rng.NormFloat64()
		}
	}

	r := matrix(n)
	a := matrix(n)
	history := make([][]bool, n)
	for i := range history {
		history[i] = make([]bool, cfg.convergence)
	}
	exemplar := make([]bool, n)

	d := cfg.damping
	out := propagation{iterations: cfg.maxIter}
	for it := 0; it < cfg.maxIter; it++ {
		// Responsibilities.
		for i := 0; i < n; i++ {
			best, second := math.Inf(-1), math.Inf(-1)
			arg := 0
			for k := 0; k < n; k++ {
				v := a[i][k] + s[i][k]
				if v > best {
					second = best
					best, arg = v, k
				} else if v > second {
					second = v
				}
			}
			for k := 0; k < n; k++ {
				m := best
				if k == arg {
					m = second
				}
				r[i][k] = d*r[i][k] + (1-d)*(s[i][k]-m)
			}
		}

		// Availabilities.
		for k := 0; k < n; k++ {
			sum := 0.0
			for i := 0; i < n; i++ {
				if i != k {
					sum += math.Max(0, r[i][k])
				}
			}
			for i := 0; i < n; i++ {
				var next float64
				if i == k {
					next = sum
				} else {
					next = math.Min(0, r[k][k]+sum-math.Max(0, r[i][k]))
				}
				a[i][k] = d*a[i][k] + (1-d)*next
			}
		}

		count := 0
		for k := 0; k < n; k++ {
			exemplar[k] = a[k][k]+r[k][k] > 0
			history[k][it%cfg.convergence] = exemplar[k]
			if exemplar[k] {
				count++
			}
		}

		if it >= cfg.convergence {
			stable := 0
			for k := 0; k < n; k++ {
				seen := 0
				for _, e := range history[k] {
					if e {
						seen++
					}
				}
				if seen == 0 || seen == cfg.convergence {
					stable++
				}
			}
			if stable == n && count > 0 {
				out.converged = true
				out.iterations = it + 1
				break
			}
		}
	}

	var centers []int
	for k, e := range exemplar {
		if e {
			centers = append(centers, k)
		}
	}
	if len(centers) == 0 {
		return out
	}

	labels := assign(s, centers)
	// Move each exemplar to the member most similar to the rest of its
	// cluster, then reassign.
	for c := range centers {
		var members []int
		for i, l := range labels {
			if l == c {
				members = append(members, i)
			}
		}
		best, bestSum := members[0], math.Inf(-1)
		for _, j := range members {
			sum := 0.0
			for _, i := range members {
				sum += s[i][j]
			}
			if sum > bestSum {
				best, bestSum = j, sum
			}
		}
		centers[c] = best
	}
	labels = assign(s, centers)

	// Centers may have collapsed onto the same keyword during refinement.
	uniq := slices.Clone(centers)
	slices.Sort(uniq)
	uniq = slices.Compact(uniq)
	for i, l := range labels {
		labels[i], _ = slices.BinarySearch(uniq, centers[l])
	}

	out.exemplars = uniq
	out.labels = labels
	return out
}

// assign labels every point with the index of its most similar center;
// centers are labelled with themselves.
func assign(s [][]float64, centers []int) []int {
	labels := make([]int, len(s))
	for i := range s {
		best := math.Inf(-1)
		for c, k := range centers {
			if s[i][k] > best {
				best, labels[i] = s[i][k], c
			}
		}
	}
	for c, k := range centers {
		labels[k] = c
	}
	return labels
}

func matrix(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	return m
}
