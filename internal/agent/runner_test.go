package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/ghostconnect/internal/testutil/testlog"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ghost-agent")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestExecRunnerSuccess(t *testing.T) {
	testlog.Start(t)

	path := writeScript(t, `printf '{"success": true}'`)
	runner := ExecRunner{Path: path}

	stdout, stderr, exit, err := runner.Invoke(context.Background(), DirectiveConnect)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if exit != 0 {
		t.Fatalf("unexpected exit: %d", exit)
	}
	if string(stdout) != `{"success": true}` {
		t.Fatalf("unexpected stdout: %q", stdout)
	}
	if len(stderr) != 0 {
		t.Fatalf("unexpected stderr: %q", stderr)
	}
}

func TestExecRunnerPassesDirectiveLast(t *testing.T) {
	testlog.Start(t)

	path := writeScript(t, `printf '%s' "$*"`)
	runner := ExecRunner{Path: path, Args: []string{"--profile", "ghost"}}

	stdout, _, _, err := runner.Invoke(context.Background(), DirectiveStop)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if string(stdout) != "--profile ghost stop" {
		t.Fatalf("unexpected argv: %q", stdout)
	}
}

func TestExecRunnerNonzeroExit(t *testing.T) {
	testlog.Start(t)

	path := writeScript(t, `printf 'partial' ; printf 'boom' >&2 ; exit 3`)
	runner := ExecRunner{Path: path}

	stdout, stderr, exit, err := runner.Invoke(context.Background(), DirectiveConnect)
	if err == nil {
		t.Fatalf("expected error for nonzero exit")
	}
	if errors.Is(err, ErrLaunch) {
		t.Fatalf("nonzero exit is not a launch failure: %v", err)
	}
	if exit != 3 {
		t.Fatalf("unexpected exit: %d", exit)
	}
	if string(stdout) != "partial" {
		t.Fatalf("unexpected stdout: %q", stdout)
	}
	if !strings.Contains(string(stderr), "boom") {
		t.Fatalf("unexpected stderr: %q", stderr)
	}
}

func TestExecRunnerMissingBinary(t *testing.T) {
	testlog.Start(t)

	runner := ExecRunner{Path: filepath.Join(t.TempDir(), "does-not-exist")}

	_, _, exit, err := runner.Invoke(context.Background(), DirectiveConnect)
	if !errors.Is(err, ErrLaunch) {
		t.Fatalf("expected ErrLaunch, got %v", err)
	}
	if exit != 127 {
		t.Fatalf("unexpected exit: %d", exit)
	}
}

func TestExecRunnerContextDeadlineKillsChild(t *testing.T) {
	testlog.Start(t)

	path := writeScript(t, `sleep 10`)
	runner := ExecRunner{Path: path}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, _, err := runner.Invoke(ctx, DirectiveConnect)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("child was not killed promptly: %v", elapsed)
	}
}
