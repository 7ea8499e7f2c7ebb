package proc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"slices"
	"syscall"
)

// Options controls how a pipeline is executed. It is passed explicitly to
// every call so that pipelines with different settings can run side by side.
type Options struct {
	// Verbose writes the command preview to Diag before spawning.
	Verbose bool
	// DryRun reports the pipeline without spawning anything. It implies
	// Verbose. Endpoints are not opened, so no output file is created or
	// truncated.
	DryRun bool
	// Diag receives the command preview. Defaults to os.Stderr.
	Diag io.Writer
	// Dir is the working directory of every stage and the base for
	// relative file endpoints. Empty means the current directory.
	Dir string
	// Env holds variables added to the inherited environment.
	Env map[string]string
	// Context, when set, kills the running stages once it is done.
	Context context.Context
}

// Reporting reports whether command previews are written.
func (o Options) Reporting() bool { return o.Verbose || o.DryRun }

// DiagWriter returns the destination of command previews.
func (o Options) DiagWriter() io.Writer {
	if o.Diag != nil {
		return o.Diag
	}
	return os.Stderr
}

// State is the lifecycle position of an Execution.
type State int

const (
	StateBuilt State = iota
	StateReporting
	StateSpawning
	StateSkipped
	StateWaiting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateBuilt:
		return "built"
	case StateReporting:
		return "reporting"
	case StateSpawning:
		return "spawning"
	case StateSkipped:
		return "skipped"
	case StateWaiting:
		return "waiting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result holds the exit status of every stage, in stage order. Stages that
// never started report -1.
type Result struct {
	ExitCodes []int
	DryRun    bool
}

// Success reports whether every stage exited with status 0.
func (r *Result) Success() bool {
	if r == nil {
		return false
	}
	for _, c := range r.ExitCodes {
		if c != 0 {
			return false
		}
	}
	return true
}

// Execution is a started pipeline.
//
// When the request binds an ExplicitPipe endpoint, Start returns before
// waiting: the caller writes Input and closes it, reads Output to EOF, and
// then calls Wait. Waiting first could block forever on a full pipe buffer.
// In every other case Start has already waited when it returns and Wait
// only hands back the recorded result.
type Execution struct {
	// Input is the write end of an ExplicitPipe input, nil otherwise.
	Input *os.File
	// Output is the read end of an ExplicitPipe output, nil otherwise.
	// It must be drained before Wait, which closes it.
	Output *os.File

	req    *Request
	opts   Options
	state  State
	cmds   []*exec.Cmd
	result *Result
	err    error
}

// Start resolves the endpoints, reports the pipeline if requested and spawns
// every stage, connecting consecutive stages with anonymous pipes. The
// returned Execution is never nil; on failure its Result describes what ran.
func Start(req *Request, opts Options) (*Execution, error) {
	x := &Execution{req: req, opts: opts, state: StateBuilt}
	n := req.Len()

	if opts.DryRun {
		x.report()
		x.state = StateSkipped
		x.result = &Result{ExitCodes: make([]int, n), DryRun: true}
		return x, nil
	}

	in, err := resolve(req.input, dirInput, opts.Dir)
	if err != nil {
		x.result = unstarted(n)
		return x, x.fail(0, CommandLine(req), err)
	}
	out, err := resolve(req.output, dirOutput, opts.Dir)
	if err != nil {
		in.release()
		x.result = unstarted(n)
		return x, x.fail(n-1, CommandLine(req), err)
	}
	std, err := inheritedStdio()
	if err != nil {
		in.release()
		out.release()
		x.result = unstarted(n)
		return x, x.fail(0, CommandLine(req), err)
	}

	x.report()
	x.state = StateSpawning
	x.Input, x.Output = in.caller, out.caller

	stdin, stdinOwned := in.child, in.owned
	for i, spec := range req.stages {
		stdout, stdoutOwned := out.child, out.owned
		var next *os.File
		if i < n-1 {
			r, w, err := os.Pipe()
			if err != nil {
				closeOwned(stdin, stdinOwned)
				closeOwned(out.child, out.owned)
				x.abort()
				return x, x.fail(i, spec.String(), &SpawnError{Stage: i, Argv: spec.Argv(), Err: fmt.Errorf("creating pipe: %w", err)})
			}
			stdout, stdoutOwned, next = w, true, r
		}

		cmd := x.command(spec, stdin, stdout, std.err)
		startErr := cmd.Start()

		// The child has its own copies of these descriptors. Holding on to
		// a write end here would keep the downstream stage from seeing EOF.
		closeOwned(stdin, stdinOwned)
		closeOwned(stdout, stdoutOwned)

		if startErr != nil {
			closeOwned(next, next != nil)
			if i < n-1 {
				closeOwned(out.child, out.owned)
			}
			x.abort()
			return x, x.fail(i, spec.String(), &SpawnError{Stage: i, Argv: spec.Argv(), Err: startErr})
		}
		slog.Debug("stage started", "stage", i, "action", req.actions[i], "pid", cmd.Process.Pid)

		x.cmds = append(x.cmds, cmd)
		stdin, stdinOwned = next, true
	}

	x.state = StateWaiting
	if req.deferredWait() {
		return x, nil
	}
	_, err = x.Wait()
	return x, err
}

// Wait closes Input if the caller has not done so, waits for every stage in
// stage order and closes Output. The first failing stage determines the
// returned error; later exit codes are still collected. Calling Wait again
// returns the same result.
func (x *Execution) Wait() (*Result, error) {
	if x.state != StateWaiting {
		return x.result, x.err
	}
	if x.Input != nil {
		_ = x.Input.Close()
	}

	codes := make([]int, x.req.Len())
	var first error
	for i, cmd := range x.cmds {
		err := cmd.Wait()
		codes[i] = exitCode(cmd)
		slog.Debug("stage exited", "stage", i, "action", x.req.actions[i], "code", codes[i])
		if err != nil && first == nil {
			first = x.exitError(i, err)
		}
	}
	if x.Output != nil {
		_ = x.Output.Close()
	}

	x.result = &Result{ExitCodes: codes}
	if first != nil {
		x.err = first
		x.state = StateFailed
	} else {
		x.state = StateDone
	}
	return x.result, x.err
}

// Close releases the execution. Stages that have not been waited on are
// killed and reaped. It is safe to call after Wait and is meant to be
// deferred right after a successful Start.
func (x *Execution) Close() error {
	x.closeCallerEnds()
	if x.state != StateWaiting {
		return nil
	}
	for _, cmd := range x.cmds {
		_ = cmd.Process.Kill()
	}
	_, err := x.Wait()
	return err
}

// State returns the current lifecycle state.
func (x *Execution) State() State { return x.state }

// Result returns the recorded result, or nil while stages are still running.
func (x *Execution) Result() *Result { return x.result }

func (x *Execution) report() {
	if !x.opts.Reporting() {
		return
	}
	x.state = StateReporting
	writeReport(x.opts.DiagWriter(), Report(x.req))
}

func (x *Execution) command(s Spec, stdin, stdout, stderr *os.File) *exec.Cmd {
	var cmd *exec.Cmd
	if x.opts.Context != nil {
		cmd = exec.CommandContext(x.opts.Context, s.argv[0], s.argv[1:]...)
	} else {
		cmd = exec.Command(s.argv[0], s.argv[1:]...)
	}
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Dir = x.opts.Dir
	if len(x.opts.Env) > 0 {
		cmd.Env = os.Environ()
		for _, k := range slices.Sorted(maps.Keys(x.opts.Env)) {
			cmd.Env = append(cmd.Env, k+"="+x.opts.Env[k])
		}
	}
	return cmd
}

func (x *Execution) fail(stage int, command string, err error) error {
	x.err = &Error{Action: x.req.actions[stage], Command: command, Err: err}
	x.state = StateFailed
	return x.err
}

func (x *Execution) exitError(stage int, err error) error {
	spec := x.req.stages[stage]
	code := -1
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		code = ee.ExitCode()
	}
	return &Error{
		Action:  x.req.actions[stage],
		Command: spec.String(),
		Err:     &ExitError{Stage: stage, Argv: spec.Argv(), Code: code, Err: err},
	}
}

// abort kills and reaps the stages started so far after a spawn failure.
func (x *Execution) abort() {
	x.closeCallerEnds()
	x.result = unstarted(x.req.Len())
	for i, cmd := range x.cmds {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		x.result.ExitCodes[i] = exitCode(cmd)
	}
	x.cmds = nil
}

func (x *Execution) closeCallerEnds() {
	if x.Input != nil {
		_ = x.Input.Close()
	}
	if x.Output != nil {
		_ = x.Output.Close()
	}
}

// Run starts req and waits for it. An ExplicitPipe input receives EOF
// immediately and an ExplicitPipe output is discarded; use Output to
// exchange data with the pipeline.
func Run(req *Request, opts Options) (*Result, error) {
	x, err := Start(req, opts)
	if err != nil {
		return x.Result(), err
	}
	defer x.Close()

	if x.Input != nil {
		_ = x.Input.Close()
	}
	if x.Output != nil {
		_, _ = io.Copy(io.Discard, x.Output)
	}
	return x.Wait()
}

// Output starts req, copies stdin into its ExplicitPipe input (if any)
// while reading its ExplicitPipe output (if any) to EOF, then waits.
// Passing stdin requires an ExplicitPipe input. In dry-run mode the
// returned output is nil.
func Output(req *Request, opts Options, stdin io.Reader) ([]byte, *Result, error) {
	if stdin != nil && req.input.kind != ExplicitPipe {
		return nil, nil, fmt.Errorf("proc: stdin supplied but input endpoint is %s", req.input)
	}

	x, err := Start(req, opts)
	if err != nil {
		return nil, x.Result(), err
	}
	defer x.Close()

	var written chan error
	if x.Input != nil {
		written = make(chan error, 1)
		go func(w *os.File) {
			var err error
			if stdin != nil {
				_, err = io.Copy(w, stdin)
			}
			if cerr := w.Close(); err == nil {
				err = cerr
			}
			written <- err
		}(x.Input)
	}

	var out []byte
	var readErr error
	if x.Output != nil {
		out, readErr = io.ReadAll(x.Output)
	}

	var writeErr error
	if written != nil {
		writeErr = <-written
	}

	res, err := x.Wait()
	if err != nil {
		return out, res, err
	}
	if readErr != nil {
		return out, res, fmt.Errorf("reading pipeline output: %w", readErr)
	}
	// A stage may legitimately stop reading early.
	if writeErr != nil && !errors.Is(writeErr, syscall.EPIPE) {
		return out, res, fmt.Errorf("writing pipeline input: %w", writeErr)
	}
	return out, res, nil
}

func unstarted(n int) *Result {
	codes := make([]int, n)
	for i := range codes {
		codes[i] = -1
	}
	return &Result{ExitCodes: codes}
}

func exitCode(cmd *exec.Cmd) int {
	if cmd.ProcessState == nil {
		return -1
	}
	return cmd.ProcessState.ExitCode()
}

func closeOwned(f *os.File, owned bool) {
	if owned && f != nil {
		_ = f.Close()
	}
}
