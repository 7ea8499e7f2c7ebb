package proc

import (
	"fmt"
	"slices"
)

// Spec describes one executable invocation. The first element of the
// argument vector names the program.
type Spec struct {
	argv []string
}

// NewSpec returns a Spec for argv. It panics if argv is empty or names no program.
func NewSpec(argv ...string) Spec {
	if len(argv) == 0 || argv[0] == "" {
		panic("proc: empty argv")
	}
	return Spec{argv: slices.Clone(argv)}
}

// Program returns the executable name.
func (s Spec) Program() string { return s.argv[0] }

// Args returns the arguments following the program name.
func (s Spec) Args() []string { return slices.Clone(s.argv[1:]) }

// Argv returns a copy of the full argument vector.
func (s Spec) Argv() []string { return slices.Clone(s.argv) }

func (s Spec) String() string { return QuoteJoin(s.argv) }

// Request is a pipeline of one or more stages together with the endpoints
// bound to the first stage's stdin and the last stage's stdout.
type Request struct {
	stages  []Spec
	actions []string
	input   Endpoint
	output  Endpoint
}

// NewRequest builds a Request. actions holds one human readable description
// per stage ("trace rays", "compute histogram"). Mismatched lengths, an empty
// stage list, an uninitialized Spec or an input endpoint opened for writing
// are programming errors and panic.
func NewRequest(stages []Spec, actions []string, input, output Endpoint) *Request {
	if len(stages) == 0 {
		panic("proc: request has no stages")
	}
	if len(actions) != len(stages) {
		panic(fmt.Sprintf("proc: %d action descriptions for %d stages", len(actions), len(stages)))
	}
	for i, s := range stages {
		if len(s.argv) == 0 {
			panic(fmt.Sprintf("proc: stage %d has an empty argv", i))
		}
	}
	if input.kind == FilePath && input.mode != ModeRead {
		panic(fmt.Sprintf("proc: input endpoint %s is not readable", input))
	}
	if output.kind == FilePath && output.mode == ModeRead {
		panic(fmt.Sprintf("proc: output endpoint %s is not writable", output))
	}
	return &Request{
		stages:  slices.Clone(stages),
		actions: slices.Clone(actions),
		input:   input,
		output:  output,
	}
}

// Single is shorthand for a one-stage Request.
func Single(spec Spec, action string, input, output Endpoint) *Request {
	return NewRequest([]Spec{spec}, []string{action}, input, output)
}

// Len returns the number of stages.
func (r *Request) Len() int { return len(r.stages) }

// Actions returns a copy of the per-stage action descriptions.
func (r *Request) Actions() []string { return slices.Clone(r.actions) }

// Input returns the endpoint bound to the first stage's stdin.
func (r *Request) Input() Endpoint { return r.input }

// Output returns the endpoint bound to the last stage's stdout.
func (r *Request) Output() Endpoint { return r.output }

// deferredWait reports whether the caller holds a pipe end that must be
// serviced before the stages can be waited on.
func (r *Request) deferredWait() bool {
	return r.input.kind == ExplicitPipe || r.output.kind == ExplicitPipe
}
