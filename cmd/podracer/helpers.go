package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"podracer/internal/config"
	"podracer/internal/logging"
	"podracer/internal/manifest"
)

func newLoader(cfg *config.Config) (*manifest.Loader, error) {
	opts := []manifest.Option{
		manifest.WithTimeout(cfg.Manifest.Timeout.Std()),
		manifest.WithInsecureTLS(cfg.Manifest.InsecureTLS),
		manifest.WithLogger(logging.New("manifest")),
	}
	if cfg.LinkCheck.UserAgent != "" {
		opts = append(opts, manifest.WithUserAgent(cfg.LinkCheck.UserAgent))
	}
	return manifest.New(opts...)
}

// signalContext cancels on SIGINT or SIGTERM so in-flight probes stop.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
