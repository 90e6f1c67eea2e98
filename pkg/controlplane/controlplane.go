package controlplane

import (
    "context"
    "errors"
    "log"
    "os/exec"
    "strings"

    "github.com/fleetware/couchrally/pkg/internal/logutil"
)

// ErrUnavailable indicates the target node process could not be reached at
// all (as opposed to answering with an error). Callers retry it under their
// own policy; this package never retries.
var ErrUnavailable = errors.New("controlplane: node unavailable")

// Runner is the opaque command/response channel to the control-plane tool.
// Implementations return the combined textual output; a non-nil error is
// only meaningful together with the output, since the tool signals most
// conditions through text rather than exit codes.
type Runner interface {
    Run(ctx context.Context, args ...string) (string, error)
}

// CLIRunner shells out to the vendor's command-line tool.
type CLIRunner struct {
    // Path is the executable to invoke, e.g. "couchbase-cli".
    Path string
    // Logger is optional.
    Logger *log.Logger
}

// Run executes the tool and returns its combined output. Exit errors are
// passed through alongside the output so callers can classify the text.
func (r *CLIRunner) Run(ctx context.Context, args ...string) (string, error) {
    path := r.Path
    if path == "" {
        path = "couchbase-cli"
    }
    cmd := exec.CommandContext(ctx, path, args...)
    out, err := cmd.CombinedOutput()
    text := strings.TrimSpace(string(out))
    if err != nil {
        logutil.Warnf(r.Logger, "controlplane: %s %s exited with error: %v", path, args[0], err)
    }
    return text, err
}

var _ Runner = (*CLIRunner)(nil)
