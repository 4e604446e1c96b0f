package main

import (
	"github.com/spf13/cobra"

	"podracer/internal/affinity"
	"podracer/internal/report"
	"podracer/internal/wiring"
)

var clusterFlags struct {
	format        string
	damping       float64
	maxIterations int
	seed          uint64
}

var clusterCmd = &cobra.Command{
	Use:   "cluster <url|path>",
	Short: "Group the manifest's keywords with affinity propagation",
	Long: `Cluster loads a manifest, collects its keywords and groups similar ones
around an exemplar keyword. No report is printed and no links are checked.`,
	Args: cobra.ExactArgs(1),
	RunE: runCluster,
}

func init() {
	f := clusterCmd.Flags()
	f.StringVarP(&clusterFlags.format, "format", "o", "text", "Output format (text, ascii, markdown, json)")
	f.Float64Var(&clusterFlags.damping, "damping", affinity.DefaultDamping, "Damping factor in [0.5, 1)")
	f.IntVar(&clusterFlags.maxIterations, "max-iterations", affinity.DefaultMaxIterations, "Iteration cap")
	f.Uint64Var(&clusterFlags.seed, "seed", 0, "Seed for the tie-breaking noise")
}

func runCluster(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	f := cmd.Flags()
	if f.Changed("format") {
		cfg.Report.Format = clusterFlags.format
	}
	if f.Changed("damping") {
		cfg.Cluster.Damping = clusterFlags.damping
	}
	if f.Changed("max-iterations") {
		cfg.Cluster.MaxIterations = clusterFlags.maxIterations
	}
	if f.Changed("seed") {
		cfg.Cluster.Seed = clusterFlags.seed
	}
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

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	_, err = wiring.Run(ctx, loader, args[0], cmd.OutOrStdout(), wiring.Options{
		Format:         mode,
		SkipReport:     true,
		Cluster:        true,
		ClusterOptions: cfg.ClusterOptions(),
	})
	return err
}
