// Package wiring composes the podracer pipeline: load a manifest, analyze
// it, assemble the report and optionally cluster its keywords.
//
// The end-to-end Ginkgo specs live next to it:
//
//	go run github.com/onsi/ginkgo/v2/ginkgo ./internal/wiring/...
package wiring

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"

	"podracer/internal/affinity"
	"podracer/internal/audit"
	"podracer/internal/catalog"
	"podracer/internal/report"
)

// Loader resolves a manifest reference. *manifest.Loader implements it.
type Loader interface {
	Load(ctx context.Context, ref string) (*catalog.Manifest, error)
}

// Options selects the optional stages of a run.
type Options struct {
	Verbose  bool
	Parallel int
	// Prober enables link checking when non-nil.
	Prober audit.Prober
	Format report.Mode

	// SkipReport suppresses the audit report, for cluster-only runs.
	SkipReport     bool
	Cluster        bool
	ClusterOptions []affinity.Option

	// Metrics, when set together with MetricsFile, is written to that file
	// in the Prometheus text format after the run.
	Metrics     prometheus.Gatherer
	MetricsFile string
}

// Outcome is everything a run produced.
type Outcome struct {
	Result   *audit.Result
	Report   *report.Report
	Clusters *affinity.Result
}

// Run loads ref, analyzes it and writes the selected output to w.
func Run(ctx context.Context, loader Loader, ref string, w io.Writer, opts Options) (*Outcome, error) {
	m, err := loader.Load(ctx, ref)
	if err != nil {
		return nil, err
	}

	auditOpts := []audit.Option{
		audit.WithVerbose(opts.Verbose),
		audit.WithParallel(opts.Parallel),
	}
	if opts.Prober != nil {
		auditOpts = append(auditOpts, audit.WithLinkCheck(opts.Prober))
	}
	res, err := audit.New(auditOpts...).Analyze(ctx, m)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Result: res, Report: report.Build(res)}
	if opts.Cluster {
		cl := affinity.Cluster(res.Indices.KeywordCounts, opts.ClusterOptions...)
		out.Clusters = &cl
	}

	// A JSON report carries the clusters itself so stdout stays one document.
	embed := opts.Format == report.JSON && !opts.SkipReport
	if embed {
		out.Report.Clusters = out.Clusters
	}
	if !opts.SkipReport {
		if err := report.Render(w, out.Report, opts.Format); err != nil {
			return nil, fmt.Errorf("render report: %w", err)
		}
	}
	if out.Clusters != nil && !embed {
		if err := report.RenderClusters(w, *out.Clusters, opts.Format); err != nil {
			return nil, fmt.Errorf("render clusters: %w", err)
		}
	}

	if opts.Metrics != nil && opts.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.MetricsFile, opts.Metrics); err != nil {
			return nil, fmt.Errorf("write metrics: %w", err)
		}
	}
	return out, nil
}
