package scheduler

import (
	"context"
	"path/filepath"
	"slices"
	"sync"
)

// fakeCall records one invocation seen by fakeRunner.
type fakeCall struct {
	Args []string
	Opts RunOptions
}

// fakeRunner dispatches on the base name of args[0].
type fakeRunner struct {
	mu       sync.Mutex
	calls    []fakeCall
	handlers map[string]func(args []string) (CommandOutcome, error)
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{handlers: make(map[string]func([]string) (CommandOutcome, error))}
}

func (f *fakeRunner) on(tool string, h func(args []string) (CommandOutcome, error)) *fakeRunner {
	f.handlers[tool] = h
	return f
}

func (f *fakeRunner) Run(ctx context.Context, args []string, opts RunOptions) (CommandOutcome, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{Args: slices.Clone(args), Opts: opts})
	h := f.handlers[filepath.Base(args[0])]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return CommandOutcome{Args: args}, NewInvocationError(args, err)
	}
	if h == nil {
		return CommandOutcome{}, NewToolNotFoundError(args[0], nil)
	}
	out, err := h(args)
	out.Args = slices.Clone(args)
	return out, err
}

func (f *fakeRunner) callsTo(tool string) []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fakeCall
	for _, c := range f.calls {
		if filepath.Base(c.Args[0]) == tool {
			out = append(out, c)
		}
	}
	return out
}

// ok returns a handler printing stdout with exit code 0.
func ok(stdout string) func([]string) (CommandOutcome, error) {
	return func([]string) (CommandOutcome, error) {
		return CommandOutcome{Stdout: stdout}, nil
	}
}

// exits returns a handler exiting with code and stderr.
func exits(code int, stdout, stderr string) func([]string) (CommandOutcome, error) {
	return func([]string) (CommandOutcome, error) {
		return CommandOutcome{ExitCode: code, Stdout: stdout, Stderr: stderr}, nil
	}
}

// sacctScript answers state queries from states in order (repeating the
// last one) and final lookups with final.
func sacctScript(final func([]string) (CommandOutcome, error), states ...string) func([]string) (CommandOutcome, error) {
	var mu sync.Mutex
	i := 0
	return func(args []string) (CommandOutcome, error) {
		if !slices.Contains(args, "--format=State") {
			return final(args)
		}
		mu.Lock()
		defer mu.Unlock()
		s := states[min(i, len(states)-1)]
		i++
		return CommandOutcome{Stdout: s + "\n"}, nil
	}
}

// scriptedQuerier replays results in order, repeating the last one.
type scriptedQuerier struct {
	mu      sync.Mutex
	results []queryResult
	calls   int
}

type queryResult struct {
	state JobState
	err   error
}

func (q *scriptedQuerier) QueryState(ctx context.Context, jobID int) (JobState, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	r := q.results[min(q.calls, len(q.results)-1)]
	q.calls++
	return r.state, r.err
}

func (q *scriptedQuerier) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.calls
}
