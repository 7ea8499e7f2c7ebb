package proc

import (
	"fmt"
	"os"
	"path/filepath"
)

// Kind tags the variant held by an Endpoint.
type Kind int

const (
	// Inherited binds the calling process's own standard stream.
	Inherited Kind = iota
	// FilePath binds a file opened at spawn time.
	FilePath
	// ExplicitPipe binds one end of a fresh anonymous pipe; the other end
	// is handed to the caller.
	ExplicitPipe
)

func (k Kind) String() string {
	switch k {
	case Inherited:
		return "inherited"
	case FilePath:
		return "file"
	case ExplicitPipe:
		return "pipe"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Mode is the access mode of a FilePath endpoint.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
	ModeAppend
)

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "reading"
	case ModeWrite:
		return "writing"
	case ModeAppend:
		return "appending"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

func (m Mode) flags() int {
	switch m {
	case ModeWrite:
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case ModeAppend:
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND
	default:
		return os.O_RDONLY
	}
}

// Endpoint describes where a pipeline's first input comes from or where its
// last output goes. It records intent only; nothing is opened until the
// pipeline is started. The zero value is Inherit().
type Endpoint struct {
	kind Kind
	path string
	mode Mode
}

// Inherit returns an endpoint bound to the calling process's standard stream.
func Inherit() Endpoint { return Endpoint{kind: Inherited} }

// ReadFile returns an endpoint that reads from path.
func ReadFile(path string) Endpoint { return Endpoint{kind: FilePath, path: path, mode: ModeRead} }

// WriteFile returns an endpoint that creates or truncates path.
func WriteFile(path string) Endpoint { return Endpoint{kind: FilePath, path: path, mode: ModeWrite} }

// AppendFile returns an endpoint that creates path or appends to it.
func AppendFile(path string) Endpoint { return Endpoint{kind: FilePath, path: path, mode: ModeAppend} }

// Pipe returns an endpoint backed by an anonymous pipe whose free end is
// exposed on the Execution.
func Pipe() Endpoint { return Endpoint{kind: ExplicitPipe} }

func (e Endpoint) Kind() Kind   { return e.kind }
func (e Endpoint) Path() string { return e.path }
func (e Endpoint) Mode() Mode   { return e.mode }

func (e Endpoint) String() string {
	if e.kind == FilePath {
		return fmt.Sprintf("file %q (%s)", e.path, e.mode)
	}
	return e.kind.String()
}

type direction int

const (
	dirInput direction = iota
	dirOutput
)

// binding is a resolved endpoint.
type binding struct {
	child  *os.File // handed to the stage
	caller *os.File // kept for the caller, ExplicitPipe only
	owned  bool     // child was opened here and must be closed after spawn
}

func (b binding) release() {
	if b.owned {
		_ = b.child.Close()
	}
	if b.caller != nil {
		_ = b.caller.Close()
	}
}

// resolve turns an endpoint into an open stream. Relative file paths are
// taken relative to dir when it is set.
func resolve(e Endpoint, d direction, dir string) (binding, error) {
	switch e.kind {
	case FilePath:
		path := e.path
		if dir != "" && !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		f, err := os.OpenFile(path, e.mode.flags(), 0o644)
		if err != nil {
			return binding{}, &OpenError{Path: e.path, Mode: e.mode, Err: err}
		}
		return binding{child: f, owned: true}, nil
	case ExplicitPipe:
		r, w, err := os.Pipe()
		if err != nil {
			mode := ModeRead
			if d == dirInput {
				mode = ModeWrite
			}
			return binding{}, &OpenError{Path: "|", Mode: mode, Err: err}
		}
		if d == dirInput {
			return binding{child: r, caller: w, owned: true}, nil
		}
		return binding{child: w, caller: r, owned: true}, nil
	default:
		std, err := inheritedStdio()
		if err != nil {
			return binding{}, err
		}
		if d == dirInput {
			return binding{child: std.in}, nil
		}
		return binding{child: std.out}, nil
	}
}
