package git

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Compile-time check that FakeRunner implements Runner.
var _ Runner = (*FakeRunner)(nil)

// FakeResponse is a scripted reply for one invocation.
type FakeResponse struct {
	Stdout string
	Err    error
}

// FakeRunner records invocations and replies from a script keyed by the
// joined argument list. Unscripted calls succeed with empty output.
type FakeRunner struct {
	mu        sync.Mutex
	responses map[string][]FakeResponse
	calls     []RunOptions
}

// NewFakeRunner returns an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{responses: make(map[string][]FakeResponse)}
}

// On queues a response for the exact argument list. Queued responses are
// consumed in order; the last one repeats.
func (f *FakeRunner) On(args []string, resp FakeResponse) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.Join(args, " ")
	f.responses[key] = append(f.responses[key], resp)
	return f
}

// Fail queues a ProcessError for args.
func (f *FakeRunner) Fail(args []string, exitCode int, stderr string) *FakeRunner {
	return f.On(args, FakeResponse{Err: &ProcessError{
		Args:     args,
		ExitCode: exitCode,
		Stderr:   stderr,
		Err:      parseGitError(stderr, ""),
	}})
}

// Run records opts and returns the scripted response.
func (f *FakeRunner) Run(_ context.Context, opts RunOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, opts)

	key := strings.Join(opts.Args, " ")
	queue := f.responses[key]
	if len(queue) == 0 {
		return "", nil
	}
	resp := queue[0]
	if len(queue) > 1 {
		f.responses[key] = queue[1:]
	}
	return resp.Stdout, resp.Err
}

// Calls returns a copy of every recorded invocation.
func (f *FakeRunner) Calls() []RunOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]RunOptions, len(f.calls))
	copy(out, f.calls)
	return out
}

// Called reports whether args were run, and the stdin of the last such call.
func (f *FakeRunner) Called(args ...string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.Join(args, " ")
	for i := len(f.calls) - 1; i >= 0; i-- {
		if strings.Join(f.calls[i].Args, " ") == key {
			return f.calls[i].Stdin, true
		}
	}
	return "", false
}

// String summarizes recorded calls, one per line.
func (f *FakeRunner) String() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var b strings.Builder
	for _, c := range f.calls {
		fmt.Fprintf(&b, "git %s\n", strings.Join(c.Args, " "))
	}
	return b.String()
}
