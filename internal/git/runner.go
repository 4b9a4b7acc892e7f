// Package git runs the git executable for operations that go-git does not
// cover: patch application, three-way merges, rebase sequencing,
// cherry-pick, revert, stash and text search.
package git

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/splice/internal/log"
	"github.com/zjrosen/splice/internal/tracing"
)

// RunOptions describes one git invocation.
type RunOptions struct {
	Args  []string
	Stdin string   // Written to the process before waiting on it
	Env   []string // Extra KEY=VALUE pairs added to the inherited environment
}

// Runner executes git. Implementations return stdout on success and a
// *ProcessError when git exits non-zero.
type Runner interface {
	Run(ctx context.Context, opts RunOptions) (string, error)
}

// Compile-time check that ExecRunner implements Runner.
var _ Runner = (*ExecRunner)(nil)

// ExecRunner runs git as a child process in a fixed directory.
// The context is used for tracing only; a started process always runs to
// completion.
type ExecRunner struct {
	binary  string
	workDir string
}

// NewExecRunner returns a runner for workDir. An empty binary means "git".
func NewExecRunner(binary, workDir string) *ExecRunner {
	if binary == "" {
		binary = "git"
	}
	return &ExecRunner{binary: binary, workDir: workDir}
}

// WorkDir returns the directory git runs in.
func (r *ExecRunner) WorkDir() string {
	return r.workDir
}

// Run executes git with opts and returns stdout untrimmed.
func (r *ExecRunner) Run(ctx context.Context, opts RunOptions) (string, error) {
	//nolint:gosec // G204: args come from controlled sources
	cmd := exec.Command(r.binary, opts.Args...)
	cmd.Dir = r.workDir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "LC_ALL=C")
	cmd.Env = append(cmd.Env, opts.Env...)
	if opts.Stdin != "" {
		cmd.Stdin = strings.NewReader(opts.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	span := trace.SpanFromContext(ctx)
	span.AddEvent(tracing.EventProcessSpawned, trace.WithAttributes(
		attribute.String(tracing.AttrGitArgs, strings.Join(opts.Args, " ")),
	))

	start := time.Now()
	err := cmd.Run()
	log.Debug(log.CatExec, "git",
		"args", strings.Join(opts.Args, " "),
		"stdin_bytes", len(opts.Stdin),
		"duration", time.Since(start),
		"ok", err == nil)

	if err == nil {
		return stdout.String(), nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		if errors.Is(err, exec.ErrNotFound) {
			return "", &ProcessError{Args: opts.Args, ExitCode: -1, Stderr: err.Error(), Err: ErrGitNotFound}
		}
		return "", &ProcessError{Args: opts.Args, ExitCode: -1, Stderr: err.Error()}
	}

	stderrStr := strings.TrimSpace(stderr.String())
	return stdout.String(), &ProcessError{
		Args:     opts.Args,
		ExitCode: exitErr.ExitCode(),
		Stderr:   stderrStr,
		Err:      parseGitError(stderrStr, stdout.String()),
	}
}

// ExitCode returns the exit status carried by err, or -1.
func ExitCode(err error) int {
	var pe *ProcessError
	if errors.As(err, &pe) {
		return pe.ExitCode
	}
	return -1
}
