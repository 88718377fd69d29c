package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Agent directive arguments, the only two the invocation contract defines.
const (
	DirectiveConnect = "connect"
	DirectiveStop    = "stop"
)

var ErrLaunch = errors.New("agent: launch failed")

// Runner abstracts one agent invocation for the tunnel supervisor.
type Runner interface {
	Invoke(ctx context.Context, directive string) (stdout []byte, stderr []byte, exitCode int32, err error)
}

// ExecRunner invokes the agent executable on the local host.
type ExecRunner struct {
	Path string
	// Args are fixed arguments placed before the directive.
	Args []string
}

// Invoke runs the agent with the given directive appended to the argv.
// Context expiry kills the child before returning; the context error is
// surfaced so callers can classify the interruption.
func (r ExecRunner) Invoke(ctx context.Context, directive string) ([]byte, []byte, int32, error) {
	args := append(append([]string{}, r.Args...), directive)
	cmd := exec.CommandContext(ctx, r.Path, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), stderr.Bytes(), 0, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return stdout.Bytes(), stderr.Bytes(), -1, fmt.Errorf("agent: %s interrupted: %w", directive, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.Bytes(), stderr.Bytes(), int32(exitErr.ExitCode()), err
	}

	// exec.Error and anything else pre-start counts as a launch failure.
	return stdout.Bytes(), stderr.Bytes(), 127, fmt.Errorf("%w: %v", ErrLaunch, err)
}
