package cli

import (
	"fmt"
	"time"

	"github.com/mindpath-app/mindpath/internal/daemon"
)

// openDaemon wires the runtime for a one-shot command. Logging is held at
// warn unless --verbose is set so command output stays readable.
func openDaemon() (*daemon.Daemon, error) {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if !verbose {
		cfg.Logging.Level = "warn"
	}
	return daemon.NewWithConfig(cfg)
}

// parseAt accepts RFC 3339 or a bare date (taken as local noon). Empty means now.
func parseAt(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("--at %q: want RFC 3339 or YYYY-MM-DD", s)
	}
	return t.Add(12 * time.Hour), nil
}
