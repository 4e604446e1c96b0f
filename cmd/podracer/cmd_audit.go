package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"podracer/internal/config"
	"podracer/internal/linkcheck"
	"podracer/internal/logging"
	"podracer/internal/report"
	"podracer/internal/wiring"
)

var auditFlags struct {
	verbose     bool
	linkCheck   bool
	cluster     bool
	parallel    int
	delay       time.Duration
	timeout     time.Duration
	rate        float64
	format      string
	metricsFile string
	insecure    bool
	userAgent   string
}

var auditCmd = &cobra.Command{
	Use:   "audit <url|path>",
	Short: "Audit a data.json manifest and print the quality report",
	Long: `Audit loads a catalog manifest from a URL or a local file, analyzes every
dataset and prints duplicate identifiers, duplicate titles, questionable
keywords and the keyword, license, program, bureau, access level, contact
and publisher counts.

With --link-check every landing page and distribution URL is probed with a
HEAD request; failures are listed per dataset and grouped by domain.`,
	Args: cobra.ExactArgs(1),
	RunE: runAudit,
}

func init() {
	f := auditCmd.Flags()
	f.BoolVarP(&auditFlags.verbose, "verbose", "v", false, "Log every checked URL and dataset with problems")
	f.BoolVar(&auditFlags.linkCheck, "link-check", false, "Probe landing pages and distribution URLs")
	f.BoolVar(&auditFlags.cluster, "keyword-cluster", false, "Append keyword clusters to the report")
	f.IntVar(&auditFlags.parallel, "parallel", 1, "Concurrent link probes (1 = serial)")
	f.DurationVar(&auditFlags.delay, "delay", linkcheck.DefaultDelay, "Pause before each probe")
	f.DurationVar(&auditFlags.timeout, "timeout", linkcheck.DefaultTimeout, "Per-probe timeout")
	f.Float64Var(&auditFlags.rate, "rate", 0, "Probes per second across workers; 0 uses --delay")
	f.StringVarP(&auditFlags.format, "format", "o", "text", "Output format (text, ascii, markdown, json)")
	f.StringVar(&auditFlags.metricsFile, "metrics-file", "", "Write link check metrics in Prometheus text format to this path")
	f.BoolVar(&auditFlags.insecure, "insecure", false, "Skip TLS verification when fetching the manifest")
	f.StringVar(&auditFlags.userAgent, "user-agent", "", "User-Agent for manifest fetches and probes")
}

// applyAuditFlags copies explicitly set flags over the file config.
func applyAuditFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("verbose") {
		cfg.Report.Verbose = auditFlags.verbose
	}
	if f.Changed("link-check") {
		cfg.LinkCheck.Enabled = auditFlags.linkCheck
	}
	if f.Changed("keyword-cluster") {
		cfg.Cluster.Enabled = auditFlags.cluster
	}
	if f.Changed("parallel") {
		cfg.LinkCheck.Parallel = auditFlags.parallel
	}
	if f.Changed("delay") {
		cfg.LinkCheck.Delay = config.Duration(auditFlags.delay)
	}
	if f.Changed("timeout") {
		cfg.LinkCheck.Timeout = config.Duration(auditFlags.timeout)
	}
	if f.Changed("rate") {
		cfg.LinkCheck.Rate = auditFlags.rate
	}
	if f.Changed("format") {
		cfg.Report.Format = auditFlags.format
	}
	if f.Changed("metrics-file") {
		cfg.Report.MetricsFile = auditFlags.metricsFile
	}
	if f.Changed("insecure") {
		cfg.Manifest.InsecureTLS = auditFlags.insecure
	}
	if f.Changed("user-agent") {
		cfg.LinkCheck.UserAgent = auditFlags.userAgent
	}
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyAuditFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	mode, err := report.ParseMode(cfg.Report.Format)
	if err != nil {
		return err
	}
	loader, err := newLoader(cfg)
	if err != nil {
		return err
	}

	opts := wiring.Options{
		Verbose:        cfg.Report.Verbose,
		Parallel:       cfg.LinkCheck.Parallel,
		Format:         mode,
		Cluster:        cfg.Cluster.Enabled,
		ClusterOptions: cfg.ClusterOptions(),
	}
	if cfg.LinkCheck.Enabled {
		reg := prometheus.NewRegistry()
		checker, err := linkcheck.New(append(cfg.CheckerOptions(),
			linkcheck.WithRegisterer(reg),
			linkcheck.WithLogger(logging.New("linkcheck")),
		)...)
		if err != nil {
			return err
		}
		opts.Prober = checker
		opts.Metrics = reg
		opts.MetricsFile = cfg.Report.MetricsFile
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	start := time.Now()
	out, err := wiring.Run(ctx, loader, args[0], cmd.OutOrStdout(), opts)
	if err != nil {
		return err
	}
	logging.New("audit").Info("audit complete",
		"run_id", out.Result.RunID,
		"analyzed", out.Result.Analyzed,
		"skipped", out.Result.Skipped,
		"link_failures", len(out.Result.Indices.LinkFailures),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}
