// podracer audits a data.json catalog manifest: duplicate identifiers and
// titles, questionable keywords, license/program/bureau/contact/publisher
// counts, optional link checking and keyword clustering.
//
// Usage:
//
//	podracer audit <url|path> [--verbose] [--link-check] [--keyword-cluster] [--format text|ascii|markdown|json]
//	podracer cluster <url|path>
//	podracer serve
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
