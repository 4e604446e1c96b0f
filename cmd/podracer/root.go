package main

import (
	"github.com/spf13/cobra"

	"podracer/internal/config"
	"podracer/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	logLevel  string
	logFormat string
	config    string
}

var rootCmd = &cobra.Command{
	Use:   "podracer",
	Short: "Quality audit for data.json catalog manifests",
	Long: "Podracer reads a Project Open Data catalog (data.json), reports duplicate\n" +
		"identifiers and titles, questionable keywords and metadata counts, and can\n" +
		"probe every landing page and distribution URL.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:      true,
	PersistentPreRunE: initLogging,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	pf.StringVar(&rootFlags.logFormat, "log-format", "text", "Log format (text, json)")
	pf.StringVar(&rootFlags.config, "config", "", "Path to a YAML or JSON config file")

	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(clusterCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = version
}

func initLogging(cmd *cobra.Command, _ []string) error {
	level, err := logging.ParseLevel(rootFlags.logLevel)
	if err != nil {
		return err
	}
	logging.Init(level, rootFlags.logFormat, cmd.ErrOrStderr())
	return nil
}

// loadConfig reads --config when given and falls back to the defaults.
func loadConfig() (*config.Config, error) {
	if rootFlags.config == "" {
		return config.Default(), nil
	}
	return config.LoadFromPath(rootFlags.config)
}
