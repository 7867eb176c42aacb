package executor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Executor runs external commands. The video layer depends on this interface
// so frame extraction can be tested without ffmpeg installed.
type Executor interface {
	// Run executes the command and returns its raw stdout. Stderr is folded
	// into the returned error on failure.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type cmdExecutor struct{}

// New creates an Executor backed by os/exec
func New() Executor {
	return &cmdExecutor{}
}

func (e *cmdExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		if stderrStr != "" {
			return nil, fmt.Errorf("command %q failed: %w: %s", name, err, stderrStr)
		}
		return nil, fmt.Errorf("command %q failed: %w", name, err)
	}

	return stdout.Bytes(), nil
}
