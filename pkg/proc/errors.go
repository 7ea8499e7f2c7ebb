package proc

import (
	"errors"
	"fmt"
	"io/fs"
)

// Error is the single error kind returned by pipeline operations. It names
// what the failing stage was meant to do and the command line involved; the
// underlying *OpenError, *SpawnError or *ExitError is available through
// errors.As.
type Error struct {
	Action  string
	Command string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("Unable to %s - %v", e.Action, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// OpenError reports an endpoint that could not be opened.
type OpenError struct {
	Path string
	Mode Mode
	Err  error
}

func (e *OpenError) Error() string {
	cause := e.Err
	var pe *fs.PathError
	if errors.As(cause, &pe) {
		cause = pe.Err
	}
	return fmt.Sprintf("cannot open %q for %s: %v", e.Path, e.Mode, cause)
}

func (e *OpenError) Unwrap() error { return e.Err }

// SpawnError reports a stage whose executable could not be started.
type SpawnError struct {
	Stage int
	Argv  []string
	Err   error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("cannot start command [%s]: %v", QuoteJoin(e.Argv), e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ExitError reports a stage that ran but did not exit with status 0.
// Code is -1 when the process was terminated by a signal.
type ExitError struct {
	Stage int
	Argv  []string
	Code  int
	Err   error
}

func (e *ExitError) Error() string {
	if e.Code < 0 && e.Err != nil {
		return fmt.Sprintf("Abnormal exit (%v) from command [%s].", e.Err, QuoteJoin(e.Argv))
	}
	return fmt.Sprintf("Nonzero exit (%d) from command [%s].", e.Code, QuoteJoin(e.Argv))
}

func (e *ExitError) Unwrap() error { return e.Err }
