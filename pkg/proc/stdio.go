package proc

import (
	"log/slog"
	"os"
	"sync"
)

type stdio struct {
	in, out, err *os.File
}

// Inherited streams are probed once per process. A process started without
// a console (or with a closed descriptor) has no usable stdin/stdout/stderr;
// stages then get the null device instead of a dead descriptor.
var stdioState struct {
	sync.Mutex
	ready bool
	std   stdio
	null  *os.File
}

// SetupStdio probes the calling process's standard streams and caches the
// result. It is idempotent and is called implicitly by the first pipeline
// that binds an Inherited endpoint.
func SetupStdio() error {
	_, err := inheritedStdio()
	return err
}

// TeardownStdio releases the null device opened as a fallback, if any, and
// forgets the cached probe.
func TeardownStdio() error {
	stdioState.Lock()
	defer stdioState.Unlock()

	var err error
	if stdioState.null != nil {
		err = stdioState.null.Close()
	}
	stdioState.ready = false
	stdioState.std = stdio{}
	stdioState.null = nil
	return err
}

func inheritedStdio() (stdio, error) {
	stdioState.Lock()
	defer stdioState.Unlock()

	if stdioState.ready {
		return stdioState.std, nil
	}

	std := stdio{in: os.Stdin, out: os.Stdout, err: os.Stderr}
	for _, f := range []**os.File{&std.in, &std.out, &std.err} {
		if usable(*f) {
			continue
		}
		if stdioState.null == nil {
			null, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
			if err != nil {
				return stdio{}, &OpenError{Path: os.DevNull, Mode: ModeWrite, Err: err}
			}
			stdioState.null = null
		}
		*f = stdioState.null
	}
	if stdioState.null != nil {
		slog.Debug("standard streams unavailable, using null device", "device", os.DevNull)
	}

	stdioState.std = std
	stdioState.ready = true
	return std, nil
}

func usable(f *os.File) bool {
	if f == nil {
		return false
	}
	_, err := f.Stat()
	return err == nil
}
