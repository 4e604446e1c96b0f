package mcp

import (
	"context"
	"os"
	"time"

	"podracer/internal/logging"
)

// WatchParentInterval is how often WatchParent polls the parent PID.
var WatchParentInterval = 2 * time.Second

// WatchParent cancels the server context when the process that launched it
// goes away, so orphaned stdio servers do not linger. It never touches
// stdin, which belongs to the MCP transport.
//
// The goroutine exits when ctx is canceled or parent death is detected.
func WatchParent(ctx context.Context, cancel context.CancelFunc) {
	ppid := os.Getppid()
	logger := logging.New("mcp")
	interval := WatchParentInterval
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if os.Getppid() != ppid {
					logger.Warn("parent process exited, shutting down", "ppid", ppid)
					cancel()
					return
				}
			}
		}
	}()
}
