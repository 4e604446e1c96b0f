// Package audit aggregates the dataset entries of one catalog manifest into
// duplicate buckets and count indices, optionally probing every landing
// page and distribution URL.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"podracer/internal/catalog"
	"podracer/internal/linkcheck"
	"podracer/internal/logging"
)

// ErrEngineUsed is returned when Analyze is called twice on one Engine.
// Indices are never merged across manifests; create a new Engine instead.
var ErrEngineUsed = errors.New("audit: engine already used; create a new Engine per manifest")

// Prober checks that a URL is reachable. *linkcheck.Checker implements it.
type Prober interface {
	Check(ctx context.Context, url string) (linkcheck.Outcome, error)
}

// Result is the output of one analysis run.
type Result struct {
	RunID         string
	ManifestID    string
	Datasets      int
	Distributions int
	Analyzed      int
	Skipped       int
	Indices       *Indices
	Messages      []string
}

// Engine owns the indices and message log of a single run.
type Engine struct {
	verbose  bool
	prober   Prober
	parallel int
	logger   *slog.Logger

	used bool
	idx  *Indices
	msgs []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithVerbose enables per-dataset and per-distribution messages.
func WithVerbose(v bool) Option { return func(e *Engine) { e.verbose = v } }

// WithLinkCheck enables probing through p. A nil p disables link checking.
func WithLinkCheck(p Prober) Option { return func(e *Engine) { e.prober = p } }

// WithParallel bounds the number of concurrent probes. Message order does
// not depend on it.
func WithParallel(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.parallel = n
	}
}

// WithLogger overrides the component logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// New creates an Engine for a single manifest.
func New(opts ...Option) *Engine {
	e := &Engine{parallel: 1}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.New("audit")
	}
	e.idx = newIndices()
	return e
}

// entry tracks one manifest dataset through the three phases of a run.
type entry struct {
	label  string
	rec    *catalog.DatasetRecord
	err    error
	probes []*probe
}

type probe struct {
	field        string
	url          string
	distribution int // -1 for the landing page
	outcome      linkcheck.Outcome
}

// Analyze aggregates every dataset of m in input order. Malformed entries
// are skipped with a diagnostic; only an unclassified probe failure or
// cancellation aborts the run.
func (e *Engine) Analyze(ctx context.Context, m *catalog.Manifest) (*Result, error) {
	if e.used {
		return nil, ErrEngineUsed
	}
	e.used = true

	runID := uuid.NewString()
	logger := e.logger.With("run_id", runID)
	logger.InfoContext(ctx, "analysis started", "manifest", m.ID, "datasets", len(m.Datasets), "link_check", e.prober != nil)

	res := &Result{
		RunID:         runID,
		ManifestID:    m.ID,
		Datasets:      len(m.Datasets),
		Distributions: m.DistributionCount(),
		Indices:       e.idx,
	}
	e.header(m, res)

	// Phase 1: parse and aggregate, strictly sequential.
	entries := make([]*entry, len(m.Datasets))
	var probes []*probe
	for i, raw := range m.Datasets {
		en := &entry{label: strconv.Itoa(i)}
		entries[i] = en

		rec, err := catalog.ParseRecord(raw)
		if err != nil {
			en.err = err
			res.Skipped++
			logger.DebugContext(ctx, "dataset skipped", "dataset", i, "error", err)
			continue
		}
		en.rec = rec
		e.idx.add(rec)
		res.Analyzed++

		if e.prober != nil {
			en.probes = probesFor(rec)
			probes = append(probes, en.probes...)
		}
	}

	// Phase 2: probe, bounded by the parallel limit.
	if len(probes) > 0 {
		if err := e.probeAll(ctx, probes); err != nil {
			return nil, err
		}
	}

	// Phase 3: diagnostics in dataset order.
	for i, en := range entries {
		e.describe(i, en)
	}

	res.Messages = e.msgs
	logger.InfoContext(ctx, "analysis finished",
		"analyzed", res.Analyzed,
		"skipped", res.Skipped,
		"link_failures", len(e.idx.LinkFailures),
	)
	return res, nil
}

func probesFor(rec *catalog.DatasetRecord) []*probe {
	var out []*probe
	if rec.LandingPage != "" {
		out = append(out, &probe{field: "landingPage", url: rec.LandingPage, distribution: -1})
	}
	for j, d := range rec.Distributions {
		if d.DownloadURL != nil {
			out = append(out, &probe{field: "downloadURL", url: *d.DownloadURL, distribution: j})
		}
		if d.AccessURL != nil {
			out = append(out, &probe{field: "accessURL", url: *d.AccessURL, distribution: j})
		}
	}
	return out
}

func (e *Engine) probeAll(ctx context.Context, probes []*probe) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallel)
	for _, p := range probes {
		g.Go(func() error {
			out, err := e.prober.Check(gctx, p.url)
			if err != nil {
				return err
			}
			p.outcome = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("audit: link check: %w", err)
	}
	return nil
}

func (e *Engine) header(m *catalog.Manifest, res *Result) {
	e.msg(0, "Analysis of", m.ID)
	e.msg(1, res.Datasets, "datasets")
	e.msg(1, res.Distributions, "distributions")
	if m.SourceCount >= 0 {
		e.msg(1, m.SourceCount, "sources")
	}
	if m.CollectionCount >= 0 {
		e.msg(1, m.CollectionCount, "collections")
	}
	e.msgs = append(e.msgs, "")
}

func (e *Engine) describe(i int, en *entry) {
	if en.err != nil {
		e.msg(0, "Dataset", en.label, "skipped:", en.err)
		return
	}
	rec := en.rec
	if e.verbose {
		e.msg(0, "Dataset", en.label, rec.Title)
	}

	byDist := make(map[int][]*probe)
	for _, p := range en.probes {
		if p.distribution < 0 {
			if p.outcome.Failed() {
				e.fail(i, rec, p)
				e.msg(0, "Dataset", en.label, rec.Title, "- landingPage check", p.outcome.Description())
			}
			continue
		}
		byDist[p.distribution] = append(byDist[p.distribution], p)
	}

	var problems []*probe
	for j, d := range rec.Distributions {
		if e.verbose {
			e.msg(1, "Distribution", d.Title)
		}
		if e.prober == nil {
			if e.verbose {
				for _, f := range urlFields(d) {
					e.msg(2, f[0], f[1])
				}
			}
			continue
		}
		for _, p := range byDist[j] {
			if e.verbose {
				status := "OK"
				if p.outcome.Failed() {
					status = p.outcome.Description()
				}
				e.msg(2, p.field, p.url, status)
			}
			if p.outcome.Failed() {
				e.fail(i, rec, p)
				problems = append(problems, p)
			}
		}
	}

	if !e.verbose && len(problems) > 0 {
		e.msg(0, "Dataset", en.label, rec.Title, "has distribution problems:")
		for _, p := range problems {
			e.msg(1, p.field, p.outcome.Description())
		}
	}
}

func urlFields(d catalog.DistributionRecord) [][2]string {
	var out [][2]string
	if d.DownloadURL != nil {
		out = append(out, [2]string{"downloadURL", *d.DownloadURL})
	}
	if d.AccessURL != nil {
		out = append(out, [2]string{"accessURL", *d.AccessURL})
	}
	return out
}

func (e *Engine) fail(i int, rec *catalog.DatasetRecord, p *probe) {
	e.idx.LinkFailures = append(e.idx.LinkFailures, LinkFailure{
		Dataset: i,
		Title:   rec.Title,
		Field:   p.field,
		Outcome: p.outcome,
	})
}

func (e *Engine) msg(indent int, parts ...any) {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = fmt.Sprint(p)
	}
	e.msgs = append(e.msgs, strings.Repeat("  ", indent)+strings.Join(s, " "))
}
